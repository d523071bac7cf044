// Package points turns raw GPX pairs into ordered grid-referenced points.
package points

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mekedron/coordextract/internal/domain"
)

// GridConverter converts validated coordinates into grid references.
type GridConverter interface {
	Convert(lat, lon float64) (string, error)
}

// Assembler validates raw pairs and builds point records.
type Assembler struct {
	converter GridConverter
	logger    *slog.Logger
}

// NewAssembler creates an assembler reporting skipped points to logger.
func NewAssembler(converter GridConverter, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Assembler{converter: converter, logger: logger}
}

// Assemble emits waypoints, then trackpoints, then routepoints, each in source
// order. Pairs that are not finite numbers are logged and skipped; conversion
// failures abort the whole track.
func (a *Assembler) Assemble(ctx context.Context, track domain.Track) ([]domain.Point, error) {
	points := make([]domain.Point, 0, track.Len())
	for _, category := range domain.Categories {
		for i, raw := range track.Points(category) {
			coord, ok := domain.ParseCoordinate(raw.Lat, raw.Lon)
			if !ok {
				a.logger.WarnContext(ctx, "Skipping invalid point.",
					"category", category,
					"index", i,
					"line", raw.Line,
					"lat", raw.Lat,
					"lon", raw.Lon,
				)
				continue
			}
			gridRef, err := a.converter.Convert(coord.Lat, coord.Lon)
			if err != nil {
				return nil, fmt.Errorf("%s %d (line %d): %w", category, i, raw.Line, err)
			}
			points = append(points, domain.Point{
				Name:      raw.Name,
				Category:  category,
				Latitude:  coord.Lat,
				Longitude: coord.Lon,
				GridRef:   gridRef,
			})
		}
	}
	return points, nil
}
