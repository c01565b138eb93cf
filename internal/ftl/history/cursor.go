package history

import (
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pihole/pihole-api/internal/apierror"
)

// Cursor is the opaque pagination token described in §4.G and §9 ("Opaque
// cursors avoid coupling clients to log indices; keep the encoding
// reversible and versioned so epoch changes are detectable"). It encodes
// the database id of the next query to emit plus the epoch
// (global_shm_counter) it was minted under.
type Cursor struct {
	DatabaseID int64
	Epoch      uint32
}

const cursorVersion = "v1"

// Encode produces the opaque, URL-safe cursor string.
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%s:%d:%d", cursorVersion, c.Epoch, c.DatabaseID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses Encode. An empty string decodes to the zero Cursor
// (start of stream).
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, apierror.Wrap(apierror.KindBadRequest, "decoding cursor", err)
	}
	parts := strings.SplitN(string(raw), ":", 3)
	if len(parts) != 3 || parts[0] != cursorVersion {
		return Cursor{}, apierror.New(apierror.KindBadRequest, "malformed cursor")
	}
	epoch, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return Cursor{}, apierror.New(apierror.KindBadRequest, "malformed cursor epoch")
	}
	id, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return Cursor{}, apierror.New(apierror.KindBadRequest, "malformed cursor id")
	}
	return Cursor{DatabaseID: id, Epoch: uint32(epoch)}, nil
}

// Page is one page of history results.
type Page struct {
	Records    []Record
	NextCursor *Cursor
}

// Seek implements the cursor-seek half of §4.G: binary search the ascending
// database-id-ordered log for the first record whose DatabaseID is >= the
// cursor's, falling back to a linear scan when ids are absent (DatabaseID ==
// 0, FTL's sentinel for "not yet written to the long-term database").
//
// "Cursors are stable only within a global_shm_counter epoch... clients
// that present a cursor from a prior epoch receive results starting at the
// nearest surviving id" — Seek does not compare c.Epoch with the current
// epoch; it performs the same id search either way (the nearest surviving
// id is whatever the search lands on in the current log).
func Seek(all []Record, c Cursor) int {
	if c.DatabaseID == 0 {
		return 0
	}

	hasIDs := false
	for _, r := range all {
		if r.Query.DatabaseID != 0 {
			hasIDs = true
			break
		}
	}

	if !hasIDs {
		for i, r := range all {
			if int64(i) >= c.DatabaseID {
				return i
			}
		}
		return len(all)
	}

	return sort.Search(len(all), func(i int) bool {
		return all[i].Query.DatabaseID >= c.DatabaseID
	})
}

// Paginate applies Seek, then Filter, then truncates to limit, returning the
// page plus a next cursor pointing strictly past the last emitted record, or
// nil if the filtered tail was exhausted (§4.G).
func Paginate(all []Record, predicates []Predicate, c Cursor, epoch uint32, limit int) Page {
	return paginate(all, predicates, c, epoch, limit, nil)
}

// PaginateObserved behaves exactly like Paginate, additionally reporting
// per-predicate pass-through counts to observe (§4.M), the same way
// FilterObserved does.
func PaginateObserved(all []Record, predicates []Predicate, c Cursor, epoch uint32, limit int, observe func(predicate string)) Page {
	return paginate(all, predicates, c, epoch, limit, observe)
}

func paginate(all []Record, predicates []Predicate, c Cursor, epoch uint32, limit int, observe func(string)) Page {
	start := Seek(all, c)
	candidates := all[start:]

	idxs := filterIndices(candidates, predicates, PredicateNames(), observe)
	filtered := make([]Record, len(idxs))
	for i, idx := range idxs {
		filtered[i] = candidates[idx]
	}

	if limit <= 0 || limit > len(filtered) {
		limit = len(filtered)
	}

	page := filtered[:limit]

	if limit == len(filtered) {
		return Page{Records: page, NextCursor: nil}
	}

	// Cursors address by real DatabaseID when the log carries one (FTL has
	// written the page to the long-term database); otherwise they address
	// by log position, since every record's DatabaseID is the 0 sentinel
	// and Seek's !hasIDs fallback interprets the cursor as an index into
	// all, not a database id.
	hasIDs := false
	for _, r := range all {
		if r.Query.DatabaseID != 0 {
			hasIDs = true
			break
		}
	}

	var next Cursor
	if hasIDs {
		next = Cursor{DatabaseID: page[limit-1].Query.DatabaseID + 1, Epoch: epoch}
	} else {
		next = Cursor{DatabaseID: int64(start+idxs[limit-1]) + 1, Epoch: epoch}
	}
	return Page{Records: page, NextCursor: &next}
}
