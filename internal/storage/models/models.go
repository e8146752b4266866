package models

import "time"

// GapRecord tracks a query whose knowledge coverage was insufficient. One
// row per fingerprint; repeat occurrences increment Frequency instead of
// creating rows. Resolution is flipped by an external reconciliation
// process, never by the router.
type GapRecord struct {
	ID               string
	QueryFingerprint string
	QueryText        string
	Vendor           string
	Equipment        string
	Symptom          string
	Frequency        int
	Priority         int
	FirstSeenAt      time.Time
	LastSeenAt       time.Time
	Resolved         bool
	ResolvedAt       *time.Time
	ResolutionRefs   []string
}

// RequestRecord is the per-request observability log: which route fired and
// with what coverage.
type RequestRecord struct {
	ID            string
	UserID        string
	Channel       string
	QueryText     string
	Route         string
	CoverageLevel string
	Confidence    float64
	ItemCount     int
	Escalated     bool
	LatencyMS     int64
	CreatedAt     time.Time
}
