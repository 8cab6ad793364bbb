package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/metar-etl/internal/domain"
	"github.com/couchcryptid/metar-etl/internal/observability"
)

// MetarTransformer implements Transformer by filtering and tokenizing the
// lines of a report page for the page's station.
type MetarTransformer struct {
	defaultStation string
	logger         *slog.Logger
	metrics        *observability.Metrics
}

// NewTransformer creates a MetarTransformer. defaultStation is used for pages
// without a station header; pass "" to reject such pages.
func NewTransformer(defaultStation string, logger *slog.Logger, metrics *observability.Metrics) *MetarTransformer {
	return &MetarTransformer{
		defaultStation: defaultStation,
		logger:         logger,
		metrics:        metrics,
	}
}

func (t *MetarTransformer) Transform(_ context.Context, raw domain.RawEvent) ([]domain.Observation, error) {
	station, err := domain.ResolveStation(raw, t.defaultStation)
	if err != nil {
		return nil, err
	}

	result := domain.ParsePage(string(raw.Value), station)
	t.metrics.LinesScanned.WithLabelValues(station).Add(float64(result.LinesScanned))
	t.metrics.LinesAccepted.WithLabelValues(station).Add(float64(result.LinesAccepted))

	if result.Empty() {
		t.metrics.EmptyPages.WithLabelValues(station).Inc()
		t.logger.Warn("no rows produced for page",
			"station", station,
			"lines_scanned", result.LinesScanned,
			"lines_accepted", result.LinesAccepted,
			"offset", raw.Offset,
		)
		return nil, nil
	}

	t.logger.Debug("page transformed",
		"station", station,
		"lines_accepted", result.LinesAccepted,
		"rows", len(result.Rows),
	)
	return domain.NewObservations(result, string(raw.Key)), nil
}
