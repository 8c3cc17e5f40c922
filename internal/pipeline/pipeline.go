package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
	"github.com/couchcryptid/ibge-localidades-etl/internal/observability"
)

// Extractor fetches a source and returns its raw records in source order.
type Extractor interface {
	Extract(ctx context.Context) ([]domain.RawRecord, error)
}

// Loader persists an aggregated dataset.
type Loader interface {
	Name() string
	Load(ctx context.Context, ds domain.Dataset) error
}

// Normalizer maps one raw record onto its canonical shape.
type Normalizer[T domain.Record] func(domain.RawRecord) (T, error)

// Result summarizes a successful run.
type Result struct {
	Kind     domain.Kind
	Records  int
	Sinks    []string
	Duration time.Duration
}

// Pipeline runs extract, normalize, sort and load for a single entity kind.
type Pipeline[T domain.Record] struct {
	kind      domain.Kind
	extractor Extractor
	normalize Normalizer[T]
	loaders   []Loader
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. Loaders run in the order given.
func New[T domain.Record](kind domain.Kind, e Extractor, normalize Normalizer[T], loaders []Loader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline[T] {
	return &Pipeline[T]{
		kind:      kind,
		extractor: e,
		normalize: normalize,
		loaders:   loaders,
		logger:    logger.With("kind", string(kind)),
		metrics:   metrics,
	}
}

func (p *Pipeline[T]) Kind() domain.Kind { return p.kind }

// Run executes the pipeline once. Any failing stage aborts the run.
func (p *Pipeline[T]) Run(ctx context.Context) (Result, error) {
	start := clock.Now()
	p.logger.Info("pipeline started")

	raws, err := p.extractor.Extract(ctx)
	if err != nil {
		return Result{}, p.fail("extract", err)
	}
	p.metrics.RecordsExtracted.WithLabelValues(string(p.kind)).Add(float64(len(raws)))
	p.logger.Debug("extracted", "records", len(raws))

	records := make([]T, 0, len(raws))
	for i, raw := range raws {
		r, err := p.normalize(raw)
		if err != nil {
			return Result{}, p.fail("normalize", fmt.Errorf("record %d: %w", i, err))
		}
		records = append(records, r)
	}

	ds := domain.NewDataset(domain.SortByName(records))
	sinks, err := load(ctx, p.loaders, ds, p.metrics)
	if err != nil {
		return Result{}, p.fail("load", err)
	}

	return finish(p.kind, len(records), sinks, start, p.metrics, p.logger), nil
}

func (p *Pipeline[T]) fail(stage string, err error) error {
	return stageError(p.kind, stage, err, p.metrics)
}

// load hands ds to every loader in turn and stops at the first failure.
func load(ctx context.Context, loaders []Loader, ds domain.Dataset, metrics *observability.Metrics) ([]string, error) {
	sinks := make([]string, 0, len(loaders))
	for _, l := range loaders {
		if err := l.Load(ctx, ds); err != nil {
			return sinks, fmt.Errorf("%s: %w", l.Name(), err)
		}
		metrics.RecordsLoaded.WithLabelValues(string(ds.Kind), l.Name()).Add(float64(len(ds.Records)))
		sinks = append(sinks, l.Name())
	}
	return sinks, nil
}

func stageError(kind domain.Kind, stage string, err error, metrics *observability.Metrics) error {
	metrics.PipelineErrors.WithLabelValues(string(kind), stage).Inc()
	return fmt.Errorf("%s pipeline: %s: %w", kind, stage, err)
}

func finish(kind domain.Kind, n int, sinks []string, start time.Time, metrics *observability.Metrics, logger *slog.Logger) Result {
	now := clock.Now()
	elapsed := now.Sub(start)
	metrics.PipelineDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	metrics.LastSuccess.WithLabelValues(string(kind)).Set(float64(now.Unix()))
	logger.Info("pipeline finished", "records", n, "sinks", sinks, "duration", elapsed)
	return Result{Kind: kind, Records: n, Sinks: sinks, Duration: elapsed}
}
