package pipeline_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/ibge-localidades-etl/internal/domain"
	"github.com/couchcryptid/ibge-localidades-etl/internal/observability"
	"github.com/couchcryptid/ibge-localidades-etl/internal/pipeline"
)

type stubRunner struct {
	kind domain.Kind
	err  error
	ran  atomic.Bool
}

func (s *stubRunner) Kind() domain.Kind { return s.kind }

func (s *stubRunner) Run(ctx context.Context) (pipeline.Result, error) {
	s.ran.Store(true)
	if s.err != nil {
		return pipeline.Result{}, s.err
	}
	if err := ctx.Err(); err != nil {
		return pipeline.Result{}, err
	}
	return pipeline.Result{Kind: s.kind, Records: 1}, nil
}

func TestRunAll_AllSucceed(t *testing.T) {
	for _, concurrent := range []bool{true, false} {
		states := &stubRunner{kind: domain.KindStates}
		cities := &stubRunner{kind: domain.KindCities}

		results, err := pipeline.RunAll(context.Background(), observability.DiscardLogger(), concurrent, states, cities)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, domain.KindStates, results[0].Kind)
		assert.Equal(t, domain.KindCities, results[1].Kind)
	}
}

func TestRunAll_FailureDoesNotStopSibling(t *testing.T) {
	for _, concurrent := range []bool{true, false} {
		states := &stubRunner{kind: domain.KindStates, err: domain.ErrFetch}
		cities := &stubRunner{kind: domain.KindCities}

		results, err := pipeline.RunAll(context.Background(), observability.DiscardLogger(), concurrent, states, cities)
		require.ErrorIs(t, err, domain.ErrFetch)
		assert.True(t, cities.ran.Load())
		require.Len(t, results, 1)
		assert.Equal(t, domain.KindCities, results[0].Kind)
	}
}

func TestRunAll_SequentialReturnsFirstError(t *testing.T) {
	first := errors.New("first")
	states := &stubRunner{kind: domain.KindStates, err: first}
	cities := &stubRunner{kind: domain.KindCities, err: errors.New("second")}

	results, err := pipeline.RunAll(context.Background(), observability.DiscardLogger(), false, states, cities)
	require.ErrorIs(t, err, first)
	assert.Empty(t, results)
	assert.True(t, cities.ran.Load())
}

func TestRunAll_NoRunners(t *testing.T) {
	results, err := pipeline.RunAll(context.Background(), observability.DiscardLogger(), true)
	require.NoError(t, err)
	assert.Empty(t, results)
}
