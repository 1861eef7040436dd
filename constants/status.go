package constants

// ScanStatus is the canonical status for rows in lr_scans.
type ScanStatus string

// Stable values (store these exact strings in DB).
const (
	ScanStatusQueued    ScanStatus = "QUEUED"    // accepted, waiting for a worker
	ScanStatusRunning   ScanStatus = "RUNNING"   // OCR in progress
	ScanStatusParsed    ScanStatus = "PARSED"    // fields extracted, awaiting confirmation
	ScanStatusConfirmed ScanStatus = "CONFIRMED" // manually reviewed/corrected
	ScanStatusFailed    ScanStatus = "FAILED"    // terminal OCR failure
)
