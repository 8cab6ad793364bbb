package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// StationHeader is the message header naming the station a page belongs to.
const StationHeader = "station"

// ErrNoStation is returned when a page names no station and no default is set.
var ErrNoStation = errors.New("no station for page")

// ResolveStation picks the station for a raw page: the station header wins,
// then fallback. The result is upper-cased.
func ResolveStation(raw RawEvent, fallback string) (string, error) {
	station := strings.TrimSpace(raw.Headers[StationHeader])
	if station == "" {
		station = strings.TrimSpace(fallback)
	}
	if station == "" {
		return "", ErrNoStation
	}
	return strings.ToUpper(station), nil
}

// NewObservations converts a page result into observations stamped with the
// current clock time.
func NewObservations(result PageResult, pageKey string) []Observation {
	if result.Empty() {
		return nil
	}
	now := clock.Now()
	out := make([]Observation, len(result.Rows))
	for i, row := range result.Rows {
		out[i] = Observation{
			Station:     result.Station,
			Line:        result.RowLines[i],
			PageKey:     pageKey,
			Fields:      row,
			ProcessedAt: now,
		}
	}
	return out
}

// SerializeObservation marshals an observation into an OutputEvent keyed by station.
func SerializeObservation(obs Observation) (OutputEvent, error) {
	data, err := json.Marshal(obs)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize observation: %w", err)
	}
	return OutputEvent{
		Key:   []byte(obs.Station),
		Value: data,
		Headers: map[string]string{
			StationHeader:  obs.Station,
			"processed_at": obs.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}
