// Package history implements the query filter pipeline (§4.F) and the
// history endpoint's cursor-based pagination (§4.G), grounded on
// original_source/src/routes/stats/history/filters/*.rs — each predicate
// here is a direct Go translation of one `filter_*` function there, kept in
// the same fixed composition order.
package history

import (
	"strconv"
	"strings"

	"github.com/pihole/pihole-api/internal/ftl/shm"
)

// Record is one query plus the resolved strings a predicate needs, computed
// once per snapshot so predicates never re-resolve string ids.
type Record struct {
	Query        shm.Query
	DomainName   string
	ClientIP     string
	ClientName   string
	UpstreamIP   string
	UpstreamName string
}

// Predicate is one independent filter stage over a Record sequence.
type Predicate func(Record) bool

// MaxPrivacyLevel hides queries entirely, per FTL's `FtlPrivacyLevel::Maximum`.
const MaxPrivacyLevel = 3

// FilterPrivate drops queries whose privacy_level == Maximum (§4.F step 1),
// grounded on original_source/.../filters/private.rs.
func FilterPrivate(r Record) bool {
	return r.Query.PrivacyLevel < MaxPrivacyLevel
}

// Exclusions holds the setupVars domain/client exclusion lists consulted by
// step 2 (internal/setupvars supplies these).
type Exclusions struct {
	Domains []string
	Clients []string
}

// FilterSetupVarsExclude drops queries matching the configured
// domain-exclusion or client-exclusion lists (§4.F step 2).
func FilterSetupVarsExclude(ex Exclusions) Predicate {
	domains := make(map[string]struct{}, len(ex.Domains))
	for _, d := range ex.Domains {
		domains[d] = struct{}{}
	}
	clients := make(map[string]struct{}, len(ex.Clients))
	for _, c := range ex.Clients {
		clients[c] = struct{}{}
	}
	return func(r Record) bool {
		if _, excluded := domains[r.DomainName]; excluded {
			return false
		}
		if _, excluded := clients[r.ClientIP]; excluded {
			return false
		}
		if _, excluded := clients[r.ClientName]; excluded {
			return false
		}
		return true
	}
}

// FilterTimeWindow implements the `[from, until)` inclusive-exclusive
// time-window filter (§4.F step 3). A nil bound is unbounded.
func FilterTimeWindow(from, until *int64) Predicate {
	return func(r Record) bool {
		if from != nil && r.Query.Timestamp < *from {
			return false
		}
		if until != nil && r.Query.Timestamp >= *until {
			return false
		}
		return true
	}
}

// FilterDomain matches literal or substring against the resolved domain
// string (§4.F step 4). An empty needle passes everything through.
func FilterDomain(needle string) Predicate {
	if needle == "" {
		return func(Record) bool { return true }
	}
	return func(r Record) bool {
		return strings.Contains(r.DomainName, needle)
	}
}

// FilterClient matches against the client's IP or name string (§4.F step 5).
func FilterClient(needle string) Predicate {
	if needle == "" {
		return func(Record) bool { return true }
	}
	return func(r Record) bool {
		return strings.Contains(r.ClientIP, needle) || strings.Contains(r.ClientName, needle)
	}
}

// FilterUpstream matches against the upstream's IP or name string (§4.F
// step 6).
func FilterUpstream(needle string) Predicate {
	if needle == "" {
		return func(Record) bool { return true }
	}
	return func(r Record) bool {
		return strings.Contains(r.UpstreamIP, needle) || strings.Contains(r.UpstreamName, needle)
	}
}

// FilterStatus implements subset membership over the FTL status enum
// (§4.F step 7). An empty set passes everything through.
func FilterStatus(statuses []shm.Status) Predicate {
	if len(statuses) == 0 {
		return func(Record) bool { return true }
	}
	set := make(map[shm.Status]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	return func(r Record) bool {
		_, ok := set[r.Query.Status]
		return ok
	}
}

// FilterBlocked classifies status per Status.Blocked and keeps only matching
// queries (§4.F step 8). blocked=nil passes everything through.
func FilterBlocked(blocked *bool) Predicate {
	if blocked == nil {
		return func(Record) bool { return true }
	}
	want := *blocked
	return func(r Record) bool {
		return r.Query.Status.Blocked() == want
	}
}

// FilterQueryType is equality on query type (§4.F step 9).
func FilterQueryType(qt *shm.QueryType) Predicate {
	if qt == nil {
		return func(Record) bool { return true }
	}
	return func(r Record) bool {
		return r.Query.QueryType == *qt
	}
}

// FilterDNSSEC is equality on DNSSEC type (§4.F step 10).
func FilterDNSSEC(d *shm.DNSSECType) Predicate {
	if d == nil {
		return func(Record) bool { return true }
	}
	return func(r Record) bool {
		return r.Query.DNSSECType == *d
	}
}

// FilterReply is equality on reply type (§4.F step 11).
func FilterReply(rt *shm.ReplyType) Predicate {
	if rt == nil {
		return func(Record) bool { return true }
	}
	return func(r Record) bool {
		return r.Query.ReplyType == *rt
	}
}

// Params bundles every filter's parameters; a zero-value field disables the
// corresponding predicate.
type Params struct {
	From, Until   *int64
	Domain        string
	Client        string
	Upstream      string
	Status        []shm.Status
	Blocked       *bool
	QueryType     *shm.QueryType
	DNSSEC        *shm.DNSSECType
	Reply         *shm.ReplyType
	Exclusions    Exclusions
}

// Pipeline composes the eleven predicates in the fixed order declared by
// §4.F: privacy and time first, to discard the most queries earliest.
func Pipeline(p Params) []Predicate {
	return []Predicate{
		FilterPrivate,
		FilterSetupVarsExclude(p.Exclusions),
		FilterTimeWindow(p.From, p.Until),
		FilterDomain(p.Domain),
		FilterClient(p.Client),
		FilterUpstream(p.Upstream),
		FilterStatus(p.Status),
		FilterBlocked(p.Blocked),
		FilterQueryType(p.QueryType),
		FilterDNSSEC(p.DNSSEC),
		FilterReply(p.Reply),
	}
}

// PredicateNames labels the stages returned by Pipeline, in the same fixed
// order, for metrics reporting (§4.M "filter pipeline predicate pass-through
// counts").
func PredicateNames() []string {
	return []string{
		"private",
		"setup_vars_exclude",
		"time_window",
		"domain",
		"client",
		"upstream",
		"status",
		"blocked",
		"query_type",
		"dnssec",
		"reply",
	}
}

// Apply evaluates every predicate against r exactly once, short-circuiting
// on the first failure (§9 "Lazy filter chains": the composed predicate is
// evaluated exactly once per query).
func Apply(predicates []Predicate, r Record) bool {
	for _, pred := range predicates {
		if !pred(r) {
			return false
		}
	}
	return true
}

// Filter runs records through predicates in order, returning only the ones
// that pass every stage.
func Filter(records []Record, predicates []Predicate) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if Apply(predicates, r) {
			out = append(out, r)
		}
	}
	return out
}

// FilterObserved behaves exactly like Filter, additionally invoking observe
// with the name of every predicate stage a record survives (names must
// align positionally with predicates, e.g. via PredicateNames). A record
// that fails stage i is never passed to stage i+1, preserving the
// exactly-once evaluation invariant documented on Apply; observe is called
// only for stages actually reached.
func FilterObserved(records []Record, predicates []Predicate, names []string, observe func(name string)) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		passed := true
		for i, pred := range predicates {
			if !pred(r) {
				passed = false
				break
			}
			if i < len(names) {
				observe(names[i])
			}
		}
		if passed {
			out = append(out, r)
		}
	}
	return out
}

// filterIndices behaves like Filter/FilterObserved but returns the indices
// (relative to records) of the entries that pass, rather than the entries
// themselves — paginate needs these to mint a log-index-based next cursor
// when the underlying records carry no real DatabaseID (see Seek's !hasIDs
// fallback). observe may be nil.
func filterIndices(records []Record, predicates []Predicate, names []string, observe func(name string)) []int {
	out := make([]int, 0, len(records))
	for idx, r := range records {
		passed := true
		for i, pred := range predicates {
			if !pred(r) {
				passed = false
				break
			}
			if observe != nil && i < len(names) {
				observe(names[i])
			}
		}
		if passed {
			out = append(out, idx)
		}
	}
	return out
}

// ParseQueryType parses the HTTP query-string representation of a query
// type, returning nil when s is empty.
func ParseQueryType(s string) (*shm.QueryType, bool) {
	if s == "" {
		return nil, true
	}
	for qt := shm.QueryTypeA; qt <= shm.QueryTypeOther; qt++ {
		if strings.EqualFold(qt.String(), s) {
			return &qt, true
		}
	}
	return nil, false
}

// ParseStatusList parses a comma-separated list of FTL status names.
func ParseStatusList(s string) ([]shm.Status, bool) {
	if s == "" {
		return nil, true
	}
	parts := strings.Split(s, ",")
	out := make([]shm.Status, 0, len(parts))
	for _, p := range parts {
		st, ok := parseStatus(strings.TrimSpace(p))
		if !ok {
			return nil, false
		}
		out = append(out, st)
	}
	return out, true
}

func parseStatus(s string) (shm.Status, bool) {
	for st := shm.StatusUnknown; st <= shm.StatusCacheStale; st++ {
		if strings.EqualFold(st.String(), s) {
			return st, true
		}
	}
	if n, err := strconv.Atoi(s); err == nil {
		return shm.Status(n), true
	}
	return 0, false
}
