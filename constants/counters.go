package constants

import "strings"

// Prefixes printed on identifiers issued by the console.
const (
	EnquiryPrefix = "ENQ"
	OrderPrefix   = "ORD"
)

// Store keys owned by the identifier generator. Daily and monthly keys are
// suffixed with "_<scope>", e.g. "enquiryCounter_12-Jan-26".
const (
	EnquiryCounterKey = "enquiryCounter"
	OrderCounterKey   = "orderCounter"
	LRCounterKey      = "lastLRNumber"
)

// DefaultLRSeed is the last LR number issued on paper before the console went live.
const DefaultLRSeed int64 = 19984

// Scope layouts (Go reference time).
const (
	DailyScopeLayout   = "02-Jan-06"
	MonthlyScopeLayout = "Jan-06"
)

// CanonicalPrefix is the form a prefix is both printed and counted under.
func CanonicalPrefix(prefix string) string {
	return strings.ToUpper(strings.TrimSpace(prefix))
}

// CounterKeyName maps an identifier prefix to the name its counters are stored under.
// Only ENQ and ORD reach the owned names; any other prefix keeps its upper-case
// spelling ("INVCounter"), which never equals "enquiryCounter" or "orderCounter".
func CounterKeyName(prefix string) string {
	switch p := CanonicalPrefix(prefix); p {
	case EnquiryPrefix:
		return EnquiryCounterKey
	case OrderPrefix:
		return OrderCounterKey
	default:
		return p + "Counter"
	}
}

// IsOwnedCounterKey reports whether key follows one of the generator's key patterns.
func IsOwnedCounterKey(key string) bool {
	if key == LRCounterKey {
		return true
	}
	return strings.HasPrefix(key, EnquiryCounterKey+"_") || strings.HasPrefix(key, OrderCounterKey+"_")
}
