package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
	"github.com/couchcryptid/ibge-localidades-etl/internal/observability"
)

// Unified derives states and their nested cities from a single municipality
// listing. States are deduplicated and sorted by name; cities keep the
// order in which they were extracted.
type Unified struct {
	extractor   Extractor
	cityFields  domain.CityFields
	stateFields domain.StateFields
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewUnified creates a Unified pipeline reading municipality records.
func NewUnified(e Extractor, cityFields domain.CityFields, stateFields domain.StateFields, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics) *Unified {
	return &Unified{
		extractor:   e,
		cityFields:  cityFields,
		stateFields: stateFields,
		loaders:     loaders,
		logger:      logger.With("kind", string(domain.KindStatesAndCities)),
		metrics:     metrics,
	}
}

func (u *Unified) Kind() domain.Kind { return domain.KindStatesAndCities }

func (u *Unified) Run(ctx context.Context) (Result, error) {
	start := clock.Now()
	u.logger.Info("pipeline started")

	raws, err := u.extractor.Extract(ctx)
	if err != nil {
		return Result{}, u.fail("extract", err)
	}
	u.metrics.RecordsExtracted.WithLabelValues(string(u.Kind())).Add(float64(len(raws)))

	cities := make([]domain.City, 0, len(raws))
	states := make([]domain.State, 0, len(raws))
	for i, raw := range raws {
		city, err := domain.NormalizeCity(raw, u.cityFields)
		if err != nil {
			return Result{}, u.fail("normalize", fmt.Errorf("record %d: %w", i, err))
		}
		state, err := domain.NormalizeState(raw, u.stateFields)
		if err != nil {
			return Result{}, u.fail("normalize", fmt.Errorf("record %d: %w", i, err))
		}
		cities = append(cities, city)
		states = append(states, state)
	}

	sorted := domain.SortByName(domain.DedupeStates(states))
	joined, err := domain.JoinCities(sorted, cities)
	if err != nil {
		return Result{}, u.fail("aggregate", err)
	}
	u.logger.Debug("aggregated", "states", len(joined), "cities", len(cities))

	sinks, err := load(ctx, u.loaders, domain.StatesAndCitiesDataset(joined), u.metrics)
	if err != nil {
		return Result{}, u.fail("load", err)
	}

	return finish(u.Kind(), len(joined), sinks, start, u.metrics, u.logger), nil
}

func (u *Unified) fail(stage string, err error) error {
	return stageError(u.Kind(), stage, err, u.metrics)
}
