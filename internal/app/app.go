// Package app wires sources, pipelines and sinks for each extraction variant.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/couchcryptid/ibge-localidades-etl/internal/adapter/file"
	"github.com/couchcryptid/ibge-localidades-etl/internal/adapter/ibge"
	kafkaadapter "github.com/couchcryptid/ibge-localidades-etl/internal/adapter/kafka"
	minioadapter "github.com/couchcryptid/ibge-localidades-etl/internal/adapter/minio"
	"github.com/couchcryptid/ibge-localidades-etl/internal/config"
	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
	"github.com/couchcryptid/ibge-localidades-etl/internal/extract"
	"github.com/couchcryptid/ibge-localidades-etl/internal/observability"
	"github.com/couchcryptid/ibge-localidades-etl/internal/pipeline"
)

// Variant selects where states and cities are read from.
type Variant string

const (
	// VariantBundle reads states from the site's JS bundle and cities from
	// the anniversaries API.
	VariantBundle Variant = "bundle"
	// VariantAPI reads states from the estados API and cities from the
	// anniversaries API.
	VariantAPI Variant = "api"
	// VariantHTML scrapes both lists from the site's HTML pages.
	VariantHTML Variant = "html"
	// VariantUnified derives states and nested cities from the municipios API.
	VariantUnified Variant = "unified"
)

// Variants lists every supported variant in CLI order.
var Variants = []Variant{VariantBundle, VariantAPI, VariantHTML, VariantUnified}

// App runs one extraction variant end to end.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	stdout  io.Writer
}

// New creates an App. The run summary is rendered to stdout.
func New(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics, stdout io.Writer) *App {
	return &App{cfg: cfg, logger: logger, metrics: metrics, stdout: stdout}
}

// Run executes every pipeline of the variant and returns the first failure.
// Outputs of pipelines that succeeded stay on disk either way.
func (a *App) Run(ctx context.Context, v Variant) error {
	a.logger.Info("run started", "variant", string(v), "output_dir", a.cfg.OutputDir, "concurrent", a.cfg.ConcurrentPipelines)

	loaders, closeSinks, err := a.loaders(v)
	if err != nil {
		return err
	}
	defer closeSinks()

	runners, err := a.runners(v, loaders)
	if err != nil {
		return err
	}

	results, runErr := pipeline.RunAll(ctx, a.logger, a.cfg.ConcurrentPipelines, runners...)
	a.renderSummary(results)
	a.pushMetrics(ctx)

	if runErr != nil {
		return runErr
	}
	a.logger.Info("run finished", "variant", string(v))
	return nil
}

func (a *App) runners(v Variant, loaders []pipeline.Loader) ([]pipeline.Runner, error) {
	client := ibge.NewClient(a.cfg.HTTPTimeout, a.cfg.HTTPUserAgent, a.metrics, a.logger)
	anniversaries := pipeline.New(domain.KindCities, ibge.NewJSONSource(client, a.cfg.CitiesAPIURL),
		cityNormalizer(domain.AnniversaryCityFields), loaders, a.logger, a.metrics)

	switch v {
	case VariantBundle:
		states := pipeline.New(domain.KindStates, ibge.NewBundleSource(client, a.cfg.StatesBundleURL, extract.StatesMarker),
			stateNormalizer(domain.BundleStateFields), loaders, a.logger, a.metrics)
		return []pipeline.Runner{states, anniversaries}, nil
	case VariantAPI:
		states := pipeline.New(domain.KindStates, ibge.NewJSONSource(client, a.cfg.StatesAPIURL),
			stateNormalizer(domain.APIStateFields), loaders, a.logger, a.metrics)
		return []pipeline.Runner{states, anniversaries}, nil
	case VariantHTML:
		pages := ibge.HTMLPages{
			IndexURL:       a.cfg.HTMLIndexURL,
			BaseURL:        a.cfg.HTMLBaseURL,
			RelativePrefix: a.cfg.HTMLRelativePrefix,
			StatesListID:   a.cfg.HTMLStatesListID,
			CitiesListID:   a.cfg.HTMLCitiesListID,
		}
		states := pipeline.New(domain.KindStates, ibge.NewHTMLStatesSource(client, pages),
			stateNormalizer(domain.CanonicalStateFields), loaders, a.logger, a.metrics)
		cities := pipeline.New(domain.KindCities, ibge.NewHTMLCitiesSource(client, pages),
			cityNormalizer(domain.CanonicalCityFields), loaders, a.logger, a.metrics)
		return []pipeline.Runner{states, cities}, nil
	case VariantUnified:
		unified := pipeline.NewUnified(ibge.NewJSONSource(client, a.cfg.MunicipiosAPIURL),
			domain.MunicipioCityFields, domain.MunicipioStateFields, loaders, a.logger, a.metrics)
		return []pipeline.Runner{unified}, nil
	default:
		return nil, fmt.Errorf("unknown variant %q", v)
	}
}

// loaders builds the sink chain: local files first, then the optional
// object-storage mirror and Kafka publisher.
func (a *App) loaders(v Variant) ([]pipeline.Loader, func(), error) {
	writer := file.NewWriter(a.cfg.OutputDir, a.logger)
	loaders := []pipeline.Loader{writer}
	closeSinks := func() {}

	if a.cfg.MinioEnabled() {
		uploader, err := minioadapter.NewUploader(a.cfg, writer, a.logger)
		if err != nil {
			return nil, nil, err
		}
		loaders = append(loaders, uploader)
		a.logger.Info("minio mirror enabled", "endpoint", a.cfg.MinioEndpoint, "bucket", a.cfg.MinioBucket)
	}

	if a.cfg.KafkaEnabled {
		publisher := kafkaadapter.NewWriter(a.cfg, string(v), a.logger)
		loaders = append(loaders, publisher)
		closeSinks = func() { a.closeWithTimeout("kafka writer", publisher.Close) }
		a.logger.Info("kafka publishing enabled", "topic", a.cfg.KafkaTopic)
	}

	return loaders, closeSinks, nil
}

func (a *App) closeWithTimeout(name string, closeFn func() error) {
	done := make(chan error, 1)
	go func() { done <- closeFn() }()

	select {
	case err := <-done:
		if err != nil {
			a.logger.Error("close error", "sink", name, "error", err)
		}
	case <-time.After(a.cfg.ShutdownTimeout):
		a.logger.Error("close timed out", "sink", name, "timeout", a.cfg.ShutdownTimeout)
	}
}

func (a *App) renderSummary(results []pipeline.Result) {
	if len(results) == 0 {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(a.stdout)
	t.AppendHeader(table.Row{"Kind", "Records", "Sinks", "Duration"})
	for _, r := range results {
		t.AppendRow(table.Row{r.Kind, r.Records, strings.Join(r.Sinks, ", "), r.Duration.Round(time.Millisecond)})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func (a *App) pushMetrics(ctx context.Context) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	// The run context may already be cancelled; the push still gets a bounded window.
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.metrics.Push(pushCtx, a.cfg.PushgatewayURL, a.cfg.PushgatewayJob); err != nil {
		a.logger.Warn("metrics push failed", "error", err)
	}
}

func stateNormalizer(fields domain.StateFields) pipeline.Normalizer[domain.State] {
	return func(raw domain.RawRecord) (domain.State, error) {
		return domain.NormalizeState(raw, fields)
	}
}

func cityNormalizer(fields domain.CityFields) pipeline.Normalizer[domain.City] {
	return func(raw domain.RawRecord) (domain.City, error) {
		return domain.NormalizeCity(raw, fields)
	}
}
