package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/ashwini-cargo/constants"
	"github.com/joseph-ayodele/ashwini-cargo/internal/lrparse"
)

// Scan is one uploaded LR document and what was read from it.
type Scan struct {
	ID           uuid.UUID            `json:"id"`
	Filename     string               `json:"filename"`
	ContentHash  string               `json:"content_hash"`
	SizeBytes    int64                `json:"size_bytes"`
	Status       constants.ScanStatus `json:"status"`
	Method       *string              `json:"method,omitempty"`
	Record       lrparse.Record       `json:"record"`
	NeedsReview  bool                 `json:"needs_review"`
	ErrorMessage *string              `json:"error_message,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	FinishedAt   *time.Time           `json:"finished_at,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Terminal reports whether the scan has finished processing.
func (s Scan) Terminal() bool {
	switch s.Status {
	case constants.ScanStatusParsed, constants.ScanStatusConfirmed, constants.ScanStatusFailed:
		return true
	}
	return false
}
