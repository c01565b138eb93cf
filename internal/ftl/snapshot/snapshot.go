// Package snapshot implements the telemetry snapshot facade (§4.D): the
// only public surface for shared-memory access. It bundles the segment
// binder, string table and inter-process lock (internal/ftl/shm,
// internal/ftl/lock) and hands callers a scoped, consistent view.
package snapshot

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/pihole/pihole-api/internal/apierror"
	"github.com/pihole/pihole-api/internal/ftl/lock"
	"github.com/pihole/pihole-api/internal/ftl/shm"
	"github.com/pihole/pihole-api/internal/logger"
	"github.com/pihole/pihole-api/pkg/metrics"
)

// Config configures where segments are found.
type Config struct {
	// ShmDir is the POSIX shm mount, typically "/dev/shm".
	ShmDir string
	// Prefix is the common segment name prefix (e.g. "FTL").
	Prefix string
	// LockSidecarPath is the advisory-lock sidecar file used by
	// internal/ftl/lock as a process-shared-pthread substitute.
	LockSidecarPath string
	// LayoutVersion is the compiled settings.version this binary expects;
	// a mismatch is a hard startup error (§9 "Layout versioning").
	LayoutVersion int32
	// Metrics records snapshot acquisition/hold/lock-wait durations
	// (§4.M). May be nil (metrics disabled).
	Metrics *metrics.Metrics
}

// Facade is the sole public surface for shared-memory access. No other
// package may map segments directly.
type Facade struct {
	cfg Config

	lockSeg     *shm.Segment
	settingsSeg *shm.Segment
	countersSeg *shm.Segment
	stringsSeg  *shm.Segment
	clientsSeg  *shm.Segment
	domainsSeg  *shm.Segment
	upstreams   *shm.Segment
	queriesSeg  *shm.Segment
	overTimeSeg *shm.Segment
	perClientOT *shm.Segment

	lk *lock.Lock

	lastEpoch uint32
	metrics   *metrics.Metrics
}

// Open maps every required segment (§6) and validates the settings layout
// version. Returns a Facade ready for With.
func Open(cfg Config) (*Facade, error) {
	f := &Facade{cfg: cfg, metrics: cfg.Metrics}

	segments := []struct {
		name     shm.Name
		stride   int
		writable bool
		dst      **shm.Segment
	}{
		{shm.SegmentLock, 1, true, &f.lockSeg},
		{shm.SegmentSettings, shm.SettingsStride, false, &f.settingsSeg},
		{shm.SegmentCounters, shm.CountersStride, false, &f.countersSeg},
		{shm.SegmentStrings, 1, false, &f.stringsSeg},
		{shm.SegmentClients, shm.ClientStride, false, &f.clientsSeg},
		{shm.SegmentDomains, shm.DomainStride, false, &f.domainsSeg},
		{shm.SegmentUpstreams, shm.UpstreamStride, false, &f.upstreams},
		{shm.SegmentQueries, shm.QueryStride, false, &f.queriesSeg},
		{shm.SegmentOverTime, shm.OverTimeStride, false, &f.overTimeSeg},
		{shm.SegmentPerClientOverTime, shm.OverTimeClientStride, false, &f.perClientOT},
	}

	for _, s := range segments {
		seg, err := shm.Open(cfg.ShmDir, cfg.Prefix, s.name, s.stride, s.writable)
		if err != nil {
			f.Close()
			return nil, err
		}
		*s.dst = seg
	}

	f.lk = lock.New(cfg.LockSidecarPath, f.lockSeg.Bytes())

	settings, err := f.readSettings()
	if err != nil {
		f.Close()
		return nil, err
	}
	if settings.Version != cfg.LayoutVersion {
		f.Close()
		return nil, apierror.New(apierror.KindSharedMemoryOpenError,
			fmt.Sprintf("settings layout version %d does not match compiled layout %d", settings.Version, cfg.LayoutVersion))
	}
	f.lastEpoch = settings.GlobalSHMCounter

	return f, nil
}

// Close unmaps every segment. Safe to call on a partially-opened Facade.
func (f *Facade) Close() error {
	var first error
	for _, seg := range []*shm.Segment{
		f.lockSeg, f.settingsSeg, f.countersSeg, f.stringsSeg,
		f.clientsSeg, f.domainsSeg, f.upstreams, f.queriesSeg,
		f.overTimeSeg, f.perClientOT,
	} {
		if seg == nil {
			continue
		}
		if err := seg.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// remap re-maps every segment from its already-open file descriptor,
// picking up the resolver's resized/relocated contents, and rebinds the
// lock's resolver_waiting view to the freshly-mapped lock segment. Called
// by With whenever global_shm_counter has advanced (§9 "Re-mapping is
// forced whenever Settings.global_shm_counter changes").
func (f *Facade) remap() error {
	for _, seg := range []*shm.Segment{
		f.lockSeg, f.settingsSeg, f.countersSeg, f.stringsSeg,
		f.clientsSeg, f.domainsSeg, f.upstreams, f.queriesSeg,
		f.overTimeSeg, f.perClientOT,
	} {
		if err := seg.Remap(); err != nil {
			return err
		}
	}
	f.lk.Rebind(f.lockSeg.Bytes())
	return nil
}

func (f *Facade) readSettings() (shm.Settings, error) {
	rec, err := f.settingsSeg.Record(0)
	if err != nil {
		return shm.Settings{}, err
	}
	return shm.DecodeSettings(rec), nil
}

// Snapshot is the read-only view handed to the callback passed to With. All
// accessors return data valid only for the callback's duration.
type Snapshot struct {
	Settings  shm.Settings
	Counters  shm.Counters
	Strings   *shm.StringTable
	Clients   *shm.Segment
	Domains   *shm.Segment
	Upstreams *shm.Segment
	Queries   *shm.Segment
	OverTime  *shm.Segment
	PerClient *shm.Segment
}

// With acquires the inter-process lock, re-checks global_shm_counter for an
// epoch change, and invokes fn with a consistent Snapshot. The lock is
// always released on return, including on panic recovery paths triggered by
// the caller — callers must not retain the Snapshot's segment references
// past fn's return.
//
// If global_shm_counter advanced since the last call, the facade is a
// StaleSnapshot candidate: the caller (internal/ftl/history, pkg/api) is
// expected to retry once per §7's propagation policy.
func (f *Facade) With(fn func(Snapshot) error) error {
	waitStart := time.Now()
	guard, err := f.lk.Acquire()
	if err != nil {
		return err
	}
	heldStart := time.Now()
	waited := heldStart.Sub(waitStart)
	defer func() {
		guard.Release()
		f.metrics.ObserveSnapshotAcquired(waited, time.Since(heldStart))
	}()

	settings, err := f.readSettings()
	if err != nil {
		return err
	}
	if settings.GlobalSHMCounter != f.lastEpoch {
		logger.Debug("global_shm_counter advanced, remapping segments", logger.SnapshotEpoch(settings.GlobalSHMCounter))
		f.lastEpoch = settings.GlobalSHMCounter
		if err := f.remap(); err != nil {
			return err
		}
		return apierror.New(apierror.KindStaleSnapshot, "global_shm_counter advanced since last snapshot; segments remapped")
	}

	countersRec, err := f.countersSeg.Record(0)
	if err != nil {
		return err
	}

	snap := Snapshot{
		Settings:  settings,
		Counters:  shm.DecodeCounters(countersRec),
		Strings:   shm.NewStringTable(f.stringsSeg),
		Clients:   f.clientsSeg,
		Domains:   f.domainsSeg,
		Upstreams: f.upstreams,
		Queries:   f.queriesSeg,
		OverTime:  f.overTimeSeg,
		PerClient: f.perClientOT,
	}

	return fn(snap)
}

// WithRetry runs fn via With, retrying exactly once on StaleSnapshot per the
// propagation policy in §7 ("StaleSnapshot is retried once automatically by
// rebinding segments; persistent failure is surfaced").
func (f *Facade) WithRetry(fn func(Snapshot) error) error {
	err := f.With(fn)
	if err != nil && apierror.IsStale(err) {
		err = f.With(fn)
	}
	return err
}

// DefaultShmDir is the conventional POSIX shm mount on Linux.
const DefaultShmDir = "/dev/shm"

// SidecarPath returns the conventional advisory-lock sidecar path for a
// given runtime directory. Open does not fill in an empty
// Config.LockSidecarPath; callers pass this value in explicitly.
func SidecarPath(runtimeDir, prefix string) string {
	return filepath.Join(runtimeDir, prefix+".lock")
}
