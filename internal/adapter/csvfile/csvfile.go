// Package csvfile exports field rows as header-less, BOM-prefixed UTF-8 CSV.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/metar-etl/internal/domain"
)

// bom is the UTF-8 byte-order mark expected by spreadsheet consumers.
var bom = []byte{0xEF, 0xBB, 0xBF}

// filenameLayout renders as yymmdd_HHMM.
const filenameLayout = "060102_1504"

// Filename returns the export name for a station at time t, e.g. "250125_1205_RCKU.csv".
func Filename(t time.Time, station string) string {
	return fmt.Sprintf("%s_%s.csv", t.Format(filenameLayout), station)
}

// WriteRows writes a BOM followed by rows. Rows shorter than the widest row
// are padded with empty cells so every record has the same column count.
func WriteRows(w io.Writer, rows []domain.FieldRow) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	return writeRecords(w, rows, true)
}

// writeRecords writes rows as CSV records, padding each to the widest row
// when pad is set.
func writeRecords(w io.Writer, rows []domain.FieldRow, pad bool) error {
	width := 0
	if pad {
		for _, row := range rows {
			width = max(width, len(row))
		}
	}

	cw := csv.NewWriter(w)
	for _, row := range rows {
		record := []string(row)
		if pad {
			record = make([]string, width)
			copy(record, row)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteStationFile writes rows to a new file in dir named by Filename and
// returns its path. Nothing is written for an empty row set.
func WriteStationFile(dir, station string, rows []domain.FieldRow) (string, error) {
	if len(rows) == 0 {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(dir, Filename(domain.Now(), station))
	f, err := os.Create(path) // #nosec G304 -- path is built from configured dir and station
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteRows(f, rows); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

// Loader appends observations to per-station CSV files in a directory.
// It implements pipeline.BatchLoader. Files are named by the clock time of
// the batch, so batches in the same minute share a file; the BOM is written
// only when a file is created. Rows are written unpadded, since a shared file
// never sees all of its rows at once.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// NewLoader creates a CSV loader writing into dir.
func NewLoader(dir string, logger *slog.Logger) *Loader {
	return &Loader{dir: dir, logger: logger}
}

// LoadBatch groups observations by station, preserving their order, and
// appends each group to that station's file.
func (l *Loader) LoadBatch(ctx context.Context, rows []domain.Observation) error {
	if len(rows) == 0 {
		return nil
	}
	if err := os.MkdirAll(l.dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	var stations []string
	groups := make(map[string][]domain.FieldRow)
	for _, obs := range rows {
		if _, ok := groups[obs.Station]; !ok {
			stations = append(stations, obs.Station)
		}
		groups[obs.Station] = append(groups[obs.Station], obs.Fields)
	}

	now := domain.Now()
	for _, station := range stations {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(l.dir, Filename(now, station))
		if err := appendRows(path, groups[station]); err != nil {
			return err
		}
		l.logger.Debug("csv rows written", "path", path, "station", station, "rows", len(groups[station]))
	}
	return nil
}

func appendRows(path string, rows []domain.FieldRow) error {
	_, statErr := os.Stat(path)
	fresh := errors.Is(statErr, fs.ErrNotExist)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) // #nosec G304 -- path is built from configured dir and station
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	if fresh {
		_, err = f.Write(bom)
	}
	if err == nil {
		err = writeRecords(f, rows, false)
	}
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
