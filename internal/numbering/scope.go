package numbering

import (
	"fmt"
	"time"
)

// ScopeKey formats the counter window for t, e.g. "12-Jan-26" (daily) or "Jan-26" (monthly).
func ScopeKey(t time.Time, layout string) string {
	return t.Format(layout)
}

// CounterKey joins a counter name and scope: "enquiryCounter_12-Jan-26".
func CounterKey(name, scope string) string {
	return name + "_" + scope
}

// FormatID renders "PREFIX-NNN/scope". Sequence numbers above 999 widen rather than wrap.
func FormatID(prefix string, seq int64, scope string) string {
	return fmt.Sprintf("%s-%03d/%s", prefix, seq, scope)
}
