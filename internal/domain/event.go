package domain

import (
	"context"
	"time"
)

// RawEvent represents an unprocessed page of report text from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Observation is one tokenized report row ready for export.
type Observation struct {
	Station     string    `json:"station"`
	Line        int       `json:"line"`
	PageKey     string    `json:"page_key,omitempty"`
	Fields      FieldRow  `json:"fields"`
	ProcessedAt time.Time `json:"processed_at"`
}

// OutputEvent is the serialized form destined for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}
