package numbering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeExpiry(t *testing.T) {
	created := time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, time.January, 8, 10, 0, 0, 0, time.UTC), ComputeExpiry(created))
}

func TestIsExpired_Boundary(t *testing.T) {
	created := time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC)

	assert.False(t, IsExpired(created, created))
	assert.False(t, IsExpired(created, created.Add(EnquiryTTL-time.Nanosecond)))
	assert.True(t, IsExpired(created, created.Add(EnquiryTTL)))
	assert.True(t, IsExpired(created, created.Add(30*24*time.Hour)))
}

func TestExpiryCountdown(t *testing.T) {
	created := time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC)
	expiry := ComputeExpiry(created)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"just created", created, "Expires in 7 day(s)"},
		{"partial days floor", expiry.Add(-(2*24*time.Hour + 5*time.Hour)), "Expires in 2 day(s)"},
		{"exactly one day", expiry.Add(-24 * time.Hour), "Expires in 1 day(s)"},
		{"just under a day", expiry.Add(-(24*time.Hour - time.Minute)), "Expires in 23 hour(s)"},
		{"exactly one hour", expiry.Add(-time.Hour), "Expires in 1 hour(s)"},
		{"under an hour", expiry.Add(-59 * time.Minute), "Expires soon"},
		{"at boundary", expiry, "Expired"},
		{"long after", expiry.Add(72 * time.Hour), "Expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpiryCountdown(created, tt.now))
		})
	}
}

func TestGeneratorExpiryUsesClock(t *testing.T) {
	created := time.Date(2026, time.January, 1, 10, 0, 0, 0, time.UTC)
	now := created.Add(6*24*time.Hour + 12*time.Hour)
	g := NewGenerator(nil, WithClock(func() time.Time { return now }))

	assert.False(t, g.IsExpired(created))
	assert.Equal(t, "Expires in 12 hour(s)", g.ExpiryCountdown(created))
	assert.Equal(t, now, g.Now())
}

func TestFormatID(t *testing.T) {
	assert.Equal(t, "ENQ-003/12-Jan-26", FormatID("ENQ", 3, "12-Jan-26"))
	assert.Equal(t, "ORD-1234/Jan-26", FormatID("ORD", 1234, "Jan-26"))
	assert.Equal(t, "enquiryCounter_12-Jan-26", CounterKey("enquiryCounter", "12-Jan-26"))
}
