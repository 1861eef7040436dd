package numbering

import (
	"fmt"
	"time"
)

// EnquiryTTL is how long an enquiry stays open after creation.
const EnquiryTTL = 7 * 24 * time.Hour

func ComputeExpiry(createdAt time.Time) time.Time {
	return createdAt.Add(EnquiryTTL)
}

// IsExpired is true from createdAt+7d onwards.
func IsExpired(createdAt, now time.Time) bool {
	return !now.Before(ComputeExpiry(createdAt))
}

// ExpiryCountdown returns "Expired", "Expires in N day(s)", "Expires in N hour(s)" or
// "Expires soon", using the largest whole unit remaining.
func ExpiryCountdown(createdAt, now time.Time) string {
	remaining := ComputeExpiry(createdAt).Sub(now)
	if remaining <= 0 {
		return "Expired"
	}
	if days := int64(remaining / (24 * time.Hour)); days >= 1 {
		return fmt.Sprintf("Expires in %d day(s)", days)
	}
	if hours := int64(remaining / time.Hour); hours >= 1 {
		return fmt.Sprintf("Expires in %d hour(s)", hours)
	}
	return "Expires soon"
}
