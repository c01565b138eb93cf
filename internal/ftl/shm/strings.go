package shm

import "bytes"

// StringTable resolves u64 string-ids into borrowed byte-slices within the
// strings segment (§4.B). Id 0 is reserved for the empty string; ids beyond
// the segment resolve to an empty slice rather than failing, matching FTL's
// own defensive behaviour (`strings.get_str(...).unwrap_or_default()` in
// original_source/src/ftl/memory_model/upstream.rs).
type StringTable struct {
	seg *Segment
}

// NewStringTable wraps the mapped strings segment.
func NewStringTable(seg *Segment) *StringTable {
	return &StringTable{seg: seg}
}

// Get returns the NUL-terminated slice starting at id, or an empty slice if
// id is 0 or out of range. The returned slice aliases the mapped segment and
// is valid only while the snapshot's lock is held; callers that need to
// retain the value past the snapshot must copy it (Str does this).
func (t *StringTable) Get(id uint64) []byte {
	data := t.seg.Bytes()
	if id == 0 || id >= uint64(len(data)) {
		return nil
	}
	end := bytes.IndexByte(data[id:], 0)
	if end < 0 {
		return data[id:]
	}
	return data[id : id+uint64(end)]
}

// Str is Get followed by a copy, for values that must outlive the snapshot
// guard (e.g. anything placed in an aggregator result or logged).
func (t *StringTable) Str(id uint64) string {
	b := t.Get(id)
	if len(b) == 0 {
		return ""
	}
	return string(b)
}
