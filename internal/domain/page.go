package domain

import "strings"

// PageResult is the outcome of scanning one page of report text for a station.
type PageResult struct {
	Station       string
	LinesScanned  int
	LinesAccepted int
	Rows          []FieldRow
	// RowLines holds the 1-based source line number of each entry in Rows.
	RowLines []int
}

// ParsePage splits text into lines and tokenizes every line accepted for
// station, preserving source order.
func ParsePage(text, station string) PageResult {
	lines := strings.Split(text, "\n")
	result := PageResult{Station: station, LinesScanned: len(lines)}

	for i, line := range lines {
		if !Accepts(line, station) {
			continue
		}
		result.LinesAccepted++

		row := Tokenize(line)
		if row == nil {
			continue
		}
		result.Rows = append(result.Rows, row)
		result.RowLines = append(result.RowLines, i+1)
	}
	return result
}

// Empty reports whether no rows were produced.
func (r PageResult) Empty() bool {
	return len(r.Rows) == 0
}
