package history

import (
	"github.com/alphadose/haxmap"

	"github.com/pihole/pihole-api/internal/ftl/shm"
	"github.com/pihole/pihole-api/internal/ftl/snapshot"
)

// clientInfo is the memoized display form of one clients-segment record.
type clientInfo struct {
	ip   string
	name string
}

// upstreamInfo is the memoized display form of one upstreams-segment record.
type upstreamInfo struct {
	ip   string
	name string
}

// BuildRecords walks the queries segment of snap and resolves each query's
// domain/client/upstream index into the display strings the filter
// predicates and the history endpoint's JSON response need, grounded on
// original_source/src/routes/stats/history/endpoints.rs's query-to-record
// assembly step.
//
// Domain/client/upstream indices repeat heavily across a query log (the
// same handful of clients and popular domains dominate most snapshots), so
// each id's resolved strings are memoized for the lifetime of this call in
// a haxmap.Map — a lock-free concurrent map, used here for its low-overhead
// Get/Set pair even though this call itself is single-goroutine, avoiding a
// second copy-and-compare step a plain map with its zero-value check would
// otherwise need for the "already resolved" case.
func BuildRecords(snap snapshot.Snapshot) []Record {
	count := snap.Queries.Len()
	out := make([]Record, 0, count)

	domains := haxmap.New[int32, string]()
	clients := haxmap.New[int32, clientInfo]()
	upstreams := haxmap.New[int32, upstreamInfo]()

	for i := 0; i < count; i++ {
		rec, err := snap.Queries.Record(i)
		if err != nil {
			break
		}
		q := shm.DecodeQuery(rec)
		if !q.MagicOK() {
			continue
		}

		r := Record{Query: q}

		if name, ok := domains.Get(q.DomainID); ok {
			r.DomainName = name
		} else if drec, err := snap.Domains.Record(int(q.DomainID)); err == nil {
			d := shm.DecodeDomain(drec)
			r.DomainName = snap.Strings.Str(d.StrID)
			domains.Set(q.DomainID, r.DomainName)
		}

		if info, ok := clients.Get(q.ClientID); ok {
			r.ClientIP = info.ip
			r.ClientName = info.name
		} else if crec, err := snap.Clients.Record(int(q.ClientID)); err == nil {
			c := shm.DecodeClient(crec)
			info := clientInfo{ip: snap.Strings.Str(c.IPStrID)}
			if !c.IsNameUnknown {
				info.name = snap.Strings.Str(c.NameStrID)
			}
			r.ClientIP, r.ClientName = info.ip, info.name
			clients.Set(q.ClientID, info)
		}

		if q.UpstreamID >= 0 {
			if info, ok := upstreams.Get(q.UpstreamID); ok {
				r.UpstreamIP = info.ip
				r.UpstreamName = info.name
			} else if urec, err := snap.Upstreams.Record(int(q.UpstreamID)); err == nil {
				u := shm.DecodeUpstream(urec)
				info := upstreamInfo{ip: snap.Strings.Str(u.IPStrID)}
				if !u.IsNameUnknown {
					info.name = snap.Strings.Str(u.NameStrID)
				}
				r.UpstreamIP, r.UpstreamName = info.ip, info.name
				upstreams.Set(q.UpstreamID, info)
			}
		}

		out = append(out, r)
	}

	return out
}
