package models

// IngestResult is the response of a docling.ingest call.
type IngestResult struct {
	IngestedDocs  int    `json:"ingested_docs"`
	Chunks        int    `json:"chunks"`
	LatencyMS     int64  `json:"latency_ms"`
	CorrelationID string `json:"correlation_id"`
}

// Answer is the response of a docling.query call. Generation reports whether
// the text came from the model ("ok"), the not-configured sentinel
// ("degraded") or a failed backend call ("error").
type Answer struct {
	Answer        string     `json:"answer"`
	Sources       []Metadata `json:"sources"`
	LatencyMS     int64      `json:"latency_ms"`
	CorrelationID string     `json:"correlation_id"`
	Generation    string     `json:"generation,omitempty"`
}

// ParseResult is the response of a docling.parse call.
type ParseResult struct {
	Filename      string   `json:"filename"`
	Text          string   `json:"text"`
	Images        []string `json:"images"`
	LatencyMS     int64    `json:"latency_ms"`
	CorrelationID string   `json:"correlation_id"`
}
