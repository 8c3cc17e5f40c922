package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
	"github.com/couchcryptid/ibge-localidades-etl/internal/observability"
	"github.com/couchcryptid/ibge-localidades-etl/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	records []domain.RawRecord
	err     error
	onCall  func()
	calls   atomic.Int64
}

func (m *mockExtractor) Extract(_ context.Context) ([]domain.RawRecord, error) {
	m.calls.Add(1)
	if m.onCall != nil {
		m.onCall()
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

type mockLoader struct {
	name   string
	err    error
	loaded []domain.Dataset
}

func (m *mockLoader) Name() string { return m.name }

func (m *mockLoader) Load(_ context.Context, ds domain.Dataset) error {
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, ds)
	return nil
}

func normalizeState(raw domain.RawRecord) (domain.State, error) {
	return domain.NormalizeState(raw, domain.BundleStateFields)
}

func bundleStates() []domain.RawRecord {
	return []domain.RawRecord{
		{"codigo": float64(35), "sigla": "SP", "nome": "São Paulo", "slug": "sao-paulo"},
		{"codigo": float64(12), "sigla": "AC", "nome": "Acre"},
		{"codigo": float64(33), "sigla": "RJ", "nome": "Rio de Janeiro"},
	}
}

func municipios() []domain.RawRecord {
	uf := func(id float64, sigla, nome string) map[string]any {
		return map[string]any{"mesorregiao": map[string]any{"UF": map[string]any{"id": id, "sigla": sigla, "nome": nome}}}
	}
	return []domain.RawRecord{
		{"id": float64(3550308), "nome": "São Paulo", "microrregiao": uf(35, "SP", "São Paulo")},
		{"id": float64(1200401), "nome": "Rio Branco", "microrregiao": uf(12, "AC", "Acre")},
		{"id": float64(3509502), "nome": "Campinas", "microrregiao": uf(35, "SP", "São Paulo")},
		{"id": float64(1200013), "nome": "Acrelândia", "microrregiao": uf(12, "AC", "Acre")},
	}
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC))
	pipeline.SetClock(fakeClock)
	t.Cleanup(func() { pipeline.SetClock(nil) })

	ext := &mockExtractor{records: bundleStates(), onCall: func() { fakeClock.Advance(2 * time.Second) }}
	file := &mockLoader{name: "file"}
	kafka := &mockLoader{name: "kafka"}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(domain.KindStates, ext, normalizeState, []pipeline.Loader{file, kafka}, observability.DiscardLogger(), metrics)
	res, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, pipeline.Result{
		Kind:     domain.KindStates,
		Records:  3,
		Sinks:    []string{"file", "kafka"},
		Duration: 2 * time.Second,
	}, res)

	require.Len(t, file.loaded, 1)
	require.Len(t, kafka.loaded, 1)
	ds := file.loaded[0]
	assert.Equal(t, domain.KindStates, ds.Kind)
	assert.Equal(t, []string{"code", "abbr", "name"}, ds.Header)
	want := []domain.Record{
		domain.State{Code: domain.NumberCode(12), Abbr: "AC", Name: "Acre"},
		domain.State{Code: domain.NumberCode(33), Abbr: "RJ", Name: "Rio de Janeiro"},
		domain.State{Code: domain.NumberCode(35), Abbr: "SP", Name: "São Paulo"},
	}
	if diff := cmp.Diff(want, ds.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}

	assert.InDelta(t, 3, testutil.ToFloat64(metrics.RecordsExtracted.WithLabelValues("states")), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.RecordsLoaded.WithLabelValues("states", "kafka")), 0)
	assert.InDelta(t, float64(fakeClock.Now().Unix()), testutil.ToFloat64(metrics.LastSuccess.WithLabelValues("states")), 0)
}

func TestPipeline_Run_ExtractError(t *testing.T) {
	ext := &mockExtractor{err: domain.ErrFetch}
	ldr := &mockLoader{name: "file"}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(domain.KindStates, ext, normalizeState, []pipeline.Loader{ldr}, observability.DiscardLogger(), metrics)
	_, err := p.Run(context.Background())

	require.ErrorIs(t, err, domain.ErrFetch)
	assert.Contains(t, err.Error(), "states pipeline: extract")
	assert.Empty(t, ldr.loaded)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.PipelineErrors.WithLabelValues("states", "extract")), 0)
}

func TestPipeline_Run_NormalizeErrorStopsBeforeLoad(t *testing.T) {
	records := append(bundleStates(), domain.RawRecord{"codigo": float64(99), "nome": "Sem Sigla"})
	ext := &mockExtractor{records: records}
	ldr := &mockLoader{name: "file"}

	p := pipeline.New(domain.KindStates, ext, normalizeState, []pipeline.Loader{ldr}, observability.DiscardLogger(), observability.NewMetricsForTesting())
	_, err := p.Run(context.Background())

	require.ErrorIs(t, err, domain.ErrLookup)
	assert.Contains(t, err.Error(), "record 3")
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_LoaderErrorStopsLaterLoaders(t *testing.T) {
	file := &mockLoader{name: "file", err: errors.New("disk full")}
	kafka := &mockLoader{name: "kafka"}

	p := pipeline.New(domain.KindStates, &mockExtractor{records: bundleStates()}, normalizeState,
		[]pipeline.Loader{file, kafka}, observability.DiscardLogger(), observability.NewMetricsForTesting())
	_, err := p.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "load: file: disk full")
	assert.Empty(t, kafka.loaded)
}

func TestPipeline_Run_EmptySource(t *testing.T) {
	ldr := &mockLoader{name: "file"}
	p := pipeline.New(domain.KindCities, &mockExtractor{}, func(raw domain.RawRecord) (domain.City, error) {
		return domain.NormalizeCity(raw, domain.AnniversaryCityFields)
	}, []pipeline.Loader{ldr}, observability.DiscardLogger(), observability.NewMetricsForTesting())

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Records)
	require.Len(t, ldr.loaded, 1)
	assert.Empty(t, ldr.loaded[0].Records)
	assert.Equal(t, []string{"code", "name", "state"}, ldr.loaded[0].Header)
}

func TestUnified_Run(t *testing.T) {
	ldr := &mockLoader{name: "file"}
	u := pipeline.NewUnified(&mockExtractor{records: municipios()}, domain.MunicipioCityFields, domain.MunicipioStateFields,
		[]pipeline.Loader{ldr}, observability.DiscardLogger(), observability.NewMetricsForTesting())

	res, err := u.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.KindStatesAndCities, res.Kind)
	assert.Equal(t, 2, res.Records)

	require.Len(t, ldr.loaded, 1)
	doc, ok := ldr.loaded[0].Document.(domain.StatesWithCities)
	require.True(t, ok)

	want := domain.StatesWithCities{
		{
			State: domain.State{Code: domain.NumberCode(12), Abbr: "AC", Name: "Acre"},
			Cities: []domain.City{
				{Code: domain.NumberCode(1200401), Name: "Rio Branco", State: "AC"},
				{Code: domain.NumberCode(1200013), Name: "Acrelândia", State: "AC"},
			},
		},
		{
			State: domain.State{Code: domain.NumberCode(35), Abbr: "SP", Name: "São Paulo"},
			Cities: []domain.City{
				{Code: domain.NumberCode(3550308), Name: "São Paulo", State: "SP"},
				{Code: domain.NumberCode(3509502), Name: "Campinas", State: "SP"},
			},
		},
	}
	if diff := cmp.Diff(want, doc); diff != "" {
		t.Errorf("joined mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, ldr.loaded[0].Header)
}

func TestUnified_Run_MissingStatePath(t *testing.T) {
	records := append(municipios(), domain.RawRecord{"id": float64(5300108), "nome": "Brasília"})
	u := pipeline.NewUnified(&mockExtractor{records: records}, domain.MunicipioCityFields, domain.MunicipioStateFields,
		nil, observability.DiscardLogger(), observability.NewMetricsForTesting())

	_, err := u.Run(context.Background())
	require.ErrorIs(t, err, domain.ErrLookup)
	assert.Contains(t, err.Error(), "states_and_cities pipeline: normalize")
}
