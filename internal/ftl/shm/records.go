// Package shm maps the resolver's shared-memory segments and decodes the
// fixed-layout records they carry. It mirrors the structures declared in
// FTL's `ftl/memory_model` (settings, lock, client, domain, upstream, query,
// over-time, strings) but never mutates them: every segment in this package
// is opened read-only except the lock segment's waiting flag (internal/ftl/lock).
package shm

import "encoding/binary"

// expectedMagic is the one-byte sentinel every live record begins with.
// A mismatch means the resolver reallocated or corrupted the segment and
// the snapshot holding it must be abandoned.
const expectedMagic = 0x57

// QueryType enumerates the DNS record type of a logged query.
type QueryType int32

const (
	QueryTypeA QueryType = iota
	QueryTypeAAAA
	QueryTypeANY
	QueryTypeSRV
	QueryTypeSOA
	QueryTypePTR
	QueryTypeTXT
	QueryTypeNAPTR
	QueryTypeMX
	QueryTypeDS
	QueryTypeRRSIG
	QueryTypeDNSKEY
	QueryTypeNS
	QueryTypeOther
)

var queryTypeNames = map[QueryType]string{
	QueryTypeA:      "A",
	QueryTypeAAAA:   "AAAA",
	QueryTypeANY:    "ANY",
	QueryTypeSRV:    "SRV",
	QueryTypeSOA:    "SOA",
	QueryTypePTR:    "PTR",
	QueryTypeTXT:    "TXT",
	QueryTypeNAPTR:  "NAPTR",
	QueryTypeMX:     "MX",
	QueryTypeDS:     "DS",
	QueryTypeRRSIG:  "RRSIG",
	QueryTypeDNSKEY: "DNSKEY",
	QueryTypeNS:     "NS",
	QueryTypeOther:  "OTHER",
}

func (t QueryType) String() string {
	if name, ok := queryTypeNames[t]; ok {
		return name
	}
	return "UNKNOWN"
}

// Status is FTL's `FtlQueryStatus` enum, carried in full per SPEC_FULL §3
// even though the filter pipeline (internal/ftl/history) only discriminates
// a subset of it.
type Status int32

const (
	StatusUnknown Status = iota
	StatusGravity
	StatusForward
	StatusCache
	StatusWildcard
	StatusBlacklist
	StatusExternalBlockIP
	StatusExternalBlockNULL
	StatusExternalBlockNXRA
	StatusGravityCNAME
	StatusRegexCNAME
	StatusBlacklistCNAME
	StatusRetried
	StatusRetriedDNSSEC
	StatusInProgress
	StatusDBBusy
	StatusSpecialDomain
	StatusCacheStale
)

var statusNames = map[Status]string{
	StatusUnknown:           "Unknown",
	StatusGravity:           "Gravity",
	StatusForward:           "Forward",
	StatusCache:             "Cache",
	StatusCacheStale:        "Cache-stale",
	StatusWildcard:          "Wildcard",
	StatusBlacklist:         "Blacklist",
	StatusExternalBlockIP:   "ExternalBlockIP",
	StatusExternalBlockNULL: "ExternalBlockNULL",
	StatusExternalBlockNXRA: "ExternalBlockNXRA",
	StatusGravityCNAME:      "GravityCNAME",
	StatusRegexCNAME:        "RegexCNAME",
	StatusBlacklistCNAME:    "BlacklistCNAME",
	StatusRetried:           "Retried",
	StatusRetriedDNSSEC:     "RetriedDNSSEC",
	StatusInProgress:        "InProgress",
	StatusDBBusy:            "DBBusy",
	StatusSpecialDomain:     "SpecialDomain",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "Unknown"
}

// Blocked classifies a status as a block verdict, per §4.F step 8.
func (s Status) Blocked() bool {
	switch s {
	case StatusGravity, StatusWildcard, StatusBlacklist,
		StatusExternalBlockIP, StatusExternalBlockNULL, StatusExternalBlockNXRA,
		StatusGravityCNAME, StatusRegexCNAME, StatusBlacklistCNAME,
		StatusSpecialDomain:
		return true
	default:
		return false
	}
}

// ReplyType is FTL's `FtlQueryReplyType` enum.
type ReplyType int32

const (
	ReplyUnknown ReplyType = iota
	ReplyNODATA
	ReplyNXDOMAIN
	ReplyCNAME
	ReplyIP
	ReplyDomain
	ReplyRRNAME
	ReplyServFail
	ReplyRefused
	ReplyNotImp
	ReplyOther
	ReplyDNSSEC
	ReplyNone
	ReplyBlob
)

var replyTypeNames = map[ReplyType]string{
	ReplyUnknown:  "UNKNOWN",
	ReplyNODATA:   "NODATA",
	ReplyNXDOMAIN: "NXDOMAIN",
	ReplyCNAME:    "CNAME",
	ReplyIP:       "IP",
	ReplyDomain:   "DOMAIN",
	ReplyRRNAME:   "RRNAME",
	ReplyServFail: "SERVFAIL",
	ReplyRefused:  "REFUSED",
	ReplyNotImp:   "NOTIMP",
	ReplyOther:    "OTHER",
	ReplyDNSSEC:   "DNSSEC",
	ReplyNone:     "NONE",
	ReplyBlob:     "BLOB",
}

func (r ReplyType) String() string {
	if name, ok := replyTypeNames[r]; ok {
		return name
	}
	return "UNKNOWN"
}

// DNSSECType is FTL's `FtlDnssecType` enum.
type DNSSECType int32

const (
	DNSSECUnspecified DNSSECType = iota
	DNSSECSecure
	DNSSECInsecure
	DNSSECBogus
	DNSSECAbandoned
	DNSSECUnknown
)

var dnssecNames = map[DNSSECType]string{
	DNSSECUnspecified: "UNSPECIFIED",
	DNSSECSecure:      "SECURE",
	DNSSECInsecure:    "INSECURE",
	DNSSECBogus:       "BOGUS",
	DNSSECAbandoned:   "ABANDONED",
	DNSSECUnknown:     "UNKNOWN",
}

func (d DNSSECType) String() string {
	if name, ok := dnssecNames[d]; ok {
		return name
	}
	return "UNKNOWN"
}

// Settings mirrors FtlSettings: {version, global_shm_counter, next_str_pos}.
type Settings struct {
	Version          int32
	GlobalSHMCounter uint32
	NextStrPos       uint32
}

// SettingsStride is the on-disk size in bytes of a Settings record.
const SettingsStride = 4 + 4 + 4

func DecodeSettings(b []byte) Settings {
	return Settings{
		Version:          int32(binary.LittleEndian.Uint32(b[0:4])),
		GlobalSHMCounter: binary.LittleEndian.Uint32(b[4:8]),
		NextStrPos:       binary.LittleEndian.Uint32(b[8:12]),
	}
}

// Counters mirrors FTL's scalar totals segment.
type Counters struct {
	TotalQueries   int32
	Blocked        int32
	Cached         int32
	Forwarded      int32
	Unknown        int32
	Clients        int32
	Domains        int32
	Upstreams      int32
	PrivacyLevel   int32
	Status         int32
	QueryTypeCount [14]int32
}

// CountersStride is the on-disk size in bytes of a Counters record.
const CountersStride = 4*10 + 4*14

func DecodeCounters(b []byte) Counters {
	u32 := func(off int) int32 { return int32(binary.LittleEndian.Uint32(b[off : off+4])) }
	c := Counters{
		TotalQueries: u32(0),
		Blocked:      u32(4),
		Cached:       u32(8),
		Forwarded:    u32(12),
		Unknown:      u32(16),
		Clients:      u32(20),
		Domains:      u32(24),
		Upstreams:    u32(28),
		PrivacyLevel: u32(32),
		Status:       u32(36),
	}
	for i := range c.QueryTypeCount {
		c.QueryTypeCount[i] = u32(40 + i*4)
	}
	return c
}

// Client mirrors FtlClient: {magic, query_count, blocked_count, ip_str_id,
// name_str_id, is_name_unknown}.
type Client struct {
	QueryCount     int32
	BlockedCount   int32
	IPStrID        uint64
	NameStrID      uint64
	IsNameUnknown  bool
	magicOK        bool
}

// ClientStride is the on-disk size in bytes of a Client record.
const ClientStride = 1 + 3 /*pad*/ + 4 + 4 + 8 + 8 + 1 + 7 /*pad*/

func DecodeClient(b []byte) Client {
	magic := b[0]
	return Client{
		QueryCount:    int32(binary.LittleEndian.Uint32(b[4:8])),
		BlockedCount:  int32(binary.LittleEndian.Uint32(b[8:12])),
		IPStrID:       binary.LittleEndian.Uint64(b[12:20]),
		NameStrID:     binary.LittleEndian.Uint64(b[20:28]),
		IsNameUnknown: b[28] != 0,
		magicOK:       magic == expectedMagic,
	}
}

// MagicOK reports whether this record's magic sentinel matched.
func (c Client) MagicOK() bool { return c.magicOK }

// RegexMatch is FtlDomain's `regex_match_flags` bitset, one bit per
// configured regex blocklist that matched this domain.
type RegexMatch uint32

// Domain mirrors FtlDomain: {magic, query_count, blocked_count,
// regex_match_flags, str_id}.
type Domain struct {
	QueryCount   int32
	BlockedCount int32
	RegexMatch   RegexMatch
	StrID        uint64
	magicOK      bool
}

// DomainStride is the on-disk size in bytes of a Domain record.
const DomainStride = 1 + 3 + 4 + 4 + 4 + 8 /*pad*/ + 8

func DecodeDomain(b []byte) Domain {
	magic := b[0]
	return Domain{
		QueryCount:   int32(binary.LittleEndian.Uint32(b[4:8])),
		BlockedCount: int32(binary.LittleEndian.Uint32(b[8:12])),
		RegexMatch:   RegexMatch(binary.LittleEndian.Uint32(b[12:16])),
		StrID:        binary.LittleEndian.Uint64(b[24:32]),
		magicOK:      magic == expectedMagic,
	}
}

func (d Domain) MagicOK() bool { return d.magicOK }

// Upstream mirrors FtlUpstream (grounded directly on
// original_source/src/ftl/memory_model/upstream.rs): {magic, query_count,
// failed_count, ip_str_id, name_str_id, is_name_unknown}.
type Upstream struct {
	QueryCount    int32
	FailedCount   int32
	IPStrID       uint64
	NameStrID     uint64
	IsNameUnknown bool
	magicOK       bool
}

// UpstreamStride is the on-disk size in bytes of an Upstream record.
const UpstreamStride = 1 + 3 + 4 + 4 + 8 + 8 + 1 + 7

func DecodeUpstream(b []byte) Upstream {
	magic := b[0]
	return Upstream{
		QueryCount:    int32(binary.LittleEndian.Uint32(b[4:8])),
		FailedCount:   int32(binary.LittleEndian.Uint32(b[8:12])),
		IPStrID:       binary.LittleEndian.Uint64(b[12:20]),
		NameStrID:     binary.LittleEndian.Uint64(b[20:28]),
		IsNameUnknown: b[28] != 0,
		magicOK:       magic == expectedMagic,
	}
}

func (u Upstream) MagicOK() bool { return u.magicOK }

// Query mirrors FtlQuery: one entry in the resolver's in-memory query log.
type Query struct {
	Timestamp    int64
	QueryType    QueryType
	Status       Status
	ReplyType    ReplyType
	DNSSECType   DNSSECType
	DomainID     int32
	ClientID     int32
	UpstreamID   int32
	DatabaseID   int64
	PrivacyLevel int32
	ResponseTime int32
	Flags        uint32
	magicOK      bool
}

// QueryStride is the on-disk size in bytes of a Query record.
const QueryStride = 1 + 7 + 8 + 4 + 4 + 4 + 4 + 4 + 4 + 4 + 8 + 4 + 4 + 4 + 4 /*pad*/

func DecodeQuery(b []byte) Query {
	magic := b[0]
	return Query{
		Timestamp:    int64(binary.LittleEndian.Uint64(b[8:16])),
		QueryType:    QueryType(int32(binary.LittleEndian.Uint32(b[16:20]))),
		Status:       Status(int32(binary.LittleEndian.Uint32(b[20:24]))),
		ReplyType:    ReplyType(int32(binary.LittleEndian.Uint32(b[24:28]))),
		DNSSECType:   DNSSECType(int32(binary.LittleEndian.Uint32(b[28:32]))),
		DomainID:     int32(binary.LittleEndian.Uint32(b[32:36])),
		ClientID:     int32(binary.LittleEndian.Uint32(b[36:40])),
		UpstreamID:   int32(binary.LittleEndian.Uint32(b[40:44])),
		DatabaseID:   int64(binary.LittleEndian.Uint64(b[48:56])),
		PrivacyLevel: int32(binary.LittleEndian.Uint32(b[56:60])),
		ResponseTime: int32(binary.LittleEndian.Uint32(b[60:64])),
		Flags:        binary.LittleEndian.Uint32(b[64:68]),
		magicOK:      magic == expectedMagic,
	}
}

func (q Query) MagicOK() bool { return q.magicOK }

// OverTimeBucket mirrors FTL's fixed-width time bin: {timestamp, total,
// blocked, per_query_type_counts}. Per-client counts live in a parallel
// `per-client-overTime` segment indexed by (bucket, client) pair, handled by
// OverTimeClientStride below rather than embedded here.
type OverTimeBucket struct {
	Timestamp      int64
	Total          int32
	Blocked        int32
	QueryTypeCount [14]int32
}

// OverTimeStride is the on-disk size in bytes of an OverTimeBucket record.
const OverTimeStride = 8 + 4 + 4 + 4*14

func DecodeOverTime(b []byte) OverTimeBucket {
	o := OverTimeBucket{
		Timestamp: int64(binary.LittleEndian.Uint64(b[0:8])),
		Total:     int32(binary.LittleEndian.Uint32(b[8:12])),
		Blocked:   int32(binary.LittleEndian.Uint32(b[12:16])),
	}
	for i := range o.QueryTypeCount {
		o.QueryTypeCount[i] = int32(binary.LittleEndian.Uint32(b[16+i*4 : 20+i*4]))
	}
	return o
}

// OverTimeClientStride is the size in bytes of one (bucket, client) cell in
// the per-client-overTime segment: a single query count.
const OverTimeClientStride = 4

func DecodeOverTimeClient(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b[0:4]))
}
