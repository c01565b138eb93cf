package shm

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	"github.com/pihole/pihole-api/internal/apierror"
)

// Name identifies one of the resolver's well-known shared-memory segments
// (SPEC_FULL §6). The on-disk object is `<prefix>-<name>` under the POSIX
// shm mount.
type Name string

const (
	SegmentLock              Name = "lock"
	SegmentSettings          Name = "settings"
	SegmentCounters          Name = "counters"
	SegmentStrings           Name = "strings"
	SegmentClients           Name = "clients"
	SegmentDomains           Name = "domains"
	SegmentUpstreams         Name = "upstreams"
	SegmentQueries           Name = "queries"
	SegmentOverTime          Name = "overTime"
	SegmentPerClientOverTime Name = "per-client-overTime"
)

// Segment is a single mapped shared-memory region with a known record
// stride. It is the Go analogue of FTL's SharedMemory wrapper: it holds the
// mapped base, its byte length, and validates indexed access against both.
type Segment struct {
	name     Name
	mmap     mmap.MMap
	file     *os.File
	stride   int
	writable bool
}

// Open maps the named segment read-only (or read-write when writable is
// set, as the facade does for the lock segment) from the given POSIX shm
// directory. stride is the fixed record size for bounds checking; pass 1
// for byte-addressed segments (the string table).
func Open(shmDir, prefix string, name Name, stride int, writable bool) (*Segment, error) {
	path := filepath.Join(shmDir, fmt.Sprintf("%s-%s", prefix, name))

	flag := os.O_RDONLY
	prot := mmap.RDONLY
	if writable {
		flag = os.O_RDWR
		prot = mmap.RDWR
	}

	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, apierror.Wrap(apierror.KindSharedMemoryOpenError, "opening segment "+string(name), err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, apierror.Wrap(apierror.KindSharedMemoryOpenError, "stating segment "+string(name), err)
	}
	if stride > 0 && info.Size()%int64(stride) != 0 {
		f.Close()
		return nil, apierror.New(apierror.KindSharedMemoryOpenError,
			fmt.Sprintf("segment %s size %d is not a multiple of stride %d", name, info.Size(), stride))
	}

	m, err := mmap.Map(f, prot, 0)
	if err != nil {
		f.Close()
		return nil, apierror.Wrap(apierror.KindSharedMemoryOpenError, "mapping segment "+string(name), err)
	}

	return &Segment{name: name, mmap: m, file: f, stride: stride, writable: writable}, nil
}

// Remap unmaps and re-maps the segment from its already-open file
// descriptor, without closing or reopening that descriptor. The resolver
// resizes its shared-memory segments with ftruncate + a fresh mmap rather
// than replacing the file, so re-stating the same descriptor and remapping
// it is sufficient to observe the new size and contents. Called by
// Facade.remap when global_shm_counter indicates the resolver has advanced,
// per spec's "re-mapping is forced whenever Settings.global_shm_counter
// changes."
func (s *Segment) Remap() error {
	if s.mmap != nil {
		if err := s.mmap.Unmap(); err != nil {
			return apierror.Wrap(apierror.KindSharedMemoryOpenError, "unmapping segment "+string(s.name)+" for remap", err)
		}
		s.mmap = nil
	}

	info, err := s.file.Stat()
	if err != nil {
		return apierror.Wrap(apierror.KindSharedMemoryOpenError, "stating segment "+string(s.name)+" for remap", err)
	}
	if s.stride > 0 && info.Size()%int64(s.stride) != 0 {
		return apierror.New(apierror.KindSharedMemoryOpenError,
			fmt.Sprintf("segment %s size %d is not a multiple of stride %d after remap", s.name, info.Size(), s.stride))
	}

	prot := mmap.RDONLY
	if s.writable {
		prot = mmap.RDWR
	}
	m, err := mmap.Map(s.file, prot, 0)
	if err != nil {
		return apierror.Wrap(apierror.KindSharedMemoryOpenError, "mapping segment "+string(s.name)+" for remap", err)
	}
	s.mmap = m
	return nil
}

// Close unmaps the segment and closes its backing file descriptor.
func (s *Segment) Close() error {
	var err error
	if s.mmap != nil {
		err = s.mmap.Unmap()
	}
	if s.file != nil {
		if cerr := s.file.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Len returns the number of whole records currently mapped.
func (s *Segment) Len() int {
	if s.stride == 0 {
		return 0
	}
	return len(s.mmap) / s.stride
}

// Record returns the raw bytes for record i, validating `i*stride+stride <=
// length` per §4.A. Out-of-range access is a StaleSnapshot error: the
// segment was resized since this index was computed and the snapshot must
// be retaken.
func (s *Segment) Record(i int) ([]byte, error) {
	start := i * s.stride
	end := start + s.stride
	if i < 0 || end > len(s.mmap) {
		return nil, apierror.New(apierror.KindStaleSnapshot,
			fmt.Sprintf("record %d out of range for segment %s (len %d)", i, s.name, len(s.mmap)))
	}
	return s.mmap[start:end], nil
}

// Bytes returns the entire mapped region, for byte-addressed segments (the
// string table and the lock segment).
func (s *Segment) Bytes() []byte { return s.mmap }

// Name returns the segment's well-known name.
func (s *Segment) Name() Name { return s.name }
