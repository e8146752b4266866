package domain

import "time"

// CoverageLevel classifies how well retrieved knowledge items answer a query.
type CoverageLevel string

const (
	CoverageNone     CoverageLevel = "NONE"
	CoverageThin     CoverageLevel = "THIN"
	CoverageModerate CoverageLevel = "MODERATE"
	CoverageStrong   CoverageLevel = "STRONG"
)

// Attachment carries only text-derived fields; transport adapters strip
// binary content before a Request is built.
type Attachment struct {
	Name string
	Text string
}

// Request is immutable once created by the ingress boundary.
type Request struct {
	ID          string
	Text        string
	Channel     string
	Attachments []Attachment
	UserID      string
	ReceivedAt  time.Time

	// SafetyFlag is computed by an upstream classifier. The router only
	// consumes it; it never performs hazard detection itself.
	SafetyFlag bool
}

// MatchedItem is a single knowledge-item match returned by retrieval.
// Quality is per-item quality metadata in (0,1]; zero means the backing
// store carried none and the scorer substitutes a neutral value.
type MatchedItem struct {
	ItemID        string
	Relevance     float64
	Vendor        string
	EquipmentType string
	SourceRef     string
	Quality       float64

	// Snippet is the matched content itself, used to ground handler prompts.
	// Graph-only matches may carry none.
	Snippet string
}

// Coverage is computed per request and never persisted.
type Coverage struct {
	Level        CoverageLevel
	ItemCount    int
	AvgRelevance float64
	Confidence   float64
	Items        []MatchedItem
}

// RepairRequest describes a coverage gap worth repairing. Transient until
// written to the gap store.
type RepairRequest struct {
	QueryText     string
	Fingerprint   string
	VendorHint    string
	EquipmentHint string
	SymptomHint   string
	SearchTerms   []string
	Priority      int
}

// Answer is what a specialist handler produces.
type Answer struct {
	Text       string
	Citations  []string
	Confidence float64
}

// Response is the outbound envelope returned for every request.
type Response struct {
	ID            string   `json:"id"`
	Route         string   `json:"route"`
	CoverageLevel string   `json:"coverage_level"`
	Confidence    float64  `json:"confidence"`
	Text          string   `json:"text"`
	Citations     []string `json:"citations"`
	Escalated     bool     `json:"escalated"`
	LatencyMS     int64    `json:"latency_ms"`
}
