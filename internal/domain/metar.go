package domain

import (
	"regexp"
	"strings"
)

// WindTokenPosition is the raw token index of the packed wind group
// (direction immediately followed by speed/gust), e.g. "18012G25KT".
const WindTokenPosition = 3

var (
	// dayTimeGroupRe matches a day/time group such as "251200Z".
	dayTimeGroupRe = regexp.MustCompile(`[0-9]{6}Z`)

	// bannerMarkers identify table-header and session-artifact lines that can
	// otherwise carry both the station code and a day/time group.
	bannerMarkers = []string{"24Hrs", "JSession"}

	// strippedMarkers are removed in order before tokenizing.
	strippedMarkers = []string{"COR ", "RMK ", "="}

	cloudLayerPrefixes = []string{"FEW", "SCT", "BKN", "OVC"}
)

// FieldRow is the ordered set of fields produced from one accepted line.
type FieldRow []string

// Accepts reports whether line is a genuine timestamped record for station.
func Accepts(line, station string) bool {
	if station == "" || !strings.Contains(line, station) {
		return false
	}
	if !dayTimeGroupRe.MatchString(line) {
		return false
	}
	for _, marker := range bannerMarkers {
		if strings.Contains(line, marker) {
			return false
		}
	}
	return true
}

// Tokenize splits a record line into fields. The wind group at
// WindTokenPosition is split into direction and the remainder, and every
// cloud-layer token is collapsed into the first cloud field. Returns nil when
// the line yields no tokens.
func Tokenize(line string) FieldRow {
	var b rowBuilder
	for i, token := range splitTokens(stripMarkers(line)) {
		b = b.step(i, token)
	}
	if len(b.fields) == 0 {
		return nil
	}
	return b.fields
}

// stripMarkers removes correction/remarks markers and message terminators,
// one marker at a time so a removal can expose another marker.
func stripMarkers(line string) string {
	for _, marker := range strippedMarkers {
		line = strings.ReplaceAll(line, marker, "")
	}
	return strings.TrimSpace(line)
}

// splitTokens splits on runs of spaces and slashes, dropping empty tokens.
func splitTokens(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ' ' || r == '/'
	})
}

// rowBuilder is the fold state for Tokenize. cloudAt is only meaningful once
// hasCloud is set.
type rowBuilder struct {
	fields   FieldRow
	cloudAt  int
	hasCloud bool
}

func (b rowBuilder) step(i int, token string) rowBuilder {
	switch {
	case i == WindTokenPosition && isWindGroup(token):
		b.fields = append(b.fields, token[:3], token[3:])
	case isCloudLayer(token):
		b = b.mergeCloud(token)
	default:
		b.fields = append(b.fields, token)
	}
	return b
}

func (b rowBuilder) mergeCloud(token string) rowBuilder {
	switch {
	case !b.hasCloud:
		b.cloudAt = len(b.fields)
		b.hasCloud = true
		b.fields = append(b.fields, token)
	case b.cloudAt < len(b.fields):
		b.fields[b.cloudAt] += " " + token
	default:
		// Unreachable with append-only construction.
		b.fields = append(b.fields, token)
	}
	return b
}

func isWindGroup(token string) bool {
	if len(token) <= 3 {
		return false
	}
	for i := 0; i < 3; i++ {
		if token[i] < '0' || token[i] > '9' {
			return false
		}
	}
	return true
}

func isCloudLayer(token string) bool {
	for _, prefix := range cloudLayerPrefixes {
		if strings.HasPrefix(token, prefix) {
			return true
		}
	}
	return false
}
