package domain

import (
	"encoding/json"
	"time"
)

// RawSource identifies the channel a raw record arrived through.
type RawSource string

// Raw data sources.
const (
	RawSourceCSV RawSource = "CSV"
	RawSourceAPI RawSource = "API"
)

// RawRecord is an ingested trip record kept verbatim as JSON. Parsing and
// aggregation happen downstream; ingestion only validates shape.
type RawRecord struct {
	ID         int64           `json:"id"`
	Source     RawSource       `json:"source"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}
