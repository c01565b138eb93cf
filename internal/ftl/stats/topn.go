package stats

import (
	"sort"

	"github.com/pihole/pihole-api/internal/ftl/shm"
	"github.com/pihole/pihole-api/internal/ftl/snapshot"
)

// NamedCount is one entry of a top-N result, grounded on
// original_source/src/stats/{top_domains,top_clients}.rs's `(name, count)`
// pair shape.
type NamedCount struct {
	Name  string `json:"name"`
	Count int32  `json:"count"`
}

// TopDomains partial-sorts domains by QueryCount (or BlockedCount when
// blocked is true), tie-breaking lexicographically on the resolved domain
// string, capped at n (§4.H).
func TopDomains(snap snapshot.Snapshot, n int, blocked bool) []NamedCount {
	count := snap.Domains.Len()
	out := make([]NamedCount, 0, count)

	for i := 0; i < count; i++ {
		rec, err := snap.Domains.Record(i)
		if err != nil {
			break
		}
		d := shm.DecodeDomain(rec)
		if !d.MagicOK() {
			continue
		}
		value := d.QueryCount
		if blocked {
			value = d.BlockedCount
		}
		if value == 0 {
			continue
		}
		out = append(out, NamedCount{Name: snap.Strings.Str(d.StrID), Count: value})
	}

	return topN(out, n)
}

// TopClients is TopDomains' counterpart over the clients segment.
func TopClients(snap snapshot.Snapshot, n int, blocked bool) []NamedCount {
	count := snap.Clients.Len()
	out := make([]NamedCount, 0, count)

	for i := 0; i < count; i++ {
		rec, err := snap.Clients.Record(i)
		if err != nil {
			break
		}
		c := shm.DecodeClient(rec)
		if !c.MagicOK() {
			continue
		}
		value := c.QueryCount
		if blocked {
			value = c.BlockedCount
		}
		if value == 0 {
			continue
		}
		name := snap.Strings.Str(c.IPStrID)
		if !c.IsNameUnknown {
			if resolved := snap.Strings.Str(c.NameStrID); resolved != "" {
				name = resolved
			}
		}
		out = append(out, NamedCount{Name: name, Count: value})
	}

	return topN(out, n)
}

func topN(items []NamedCount, n int) []NamedCount {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Name < items[j].Name
	})
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	return items
}
