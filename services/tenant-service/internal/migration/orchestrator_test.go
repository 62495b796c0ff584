package migration

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"TenancyPlatform/pkg/config"
	"TenancyPlatform/pkg/connection"
	"TenancyPlatform/pkg/mocks"
)

func noRetry() connection.RetryConfig {
	return connection.RetryConfig{MaxAttempts: 1}
}

func TestRunAll_SharedFailureSkipsTenants(t *testing.T) {
	runner := new(MockRunner)
	source := new(MockSchemaSource)
	runner.On("ApplyShared", mock.Anything).Return(errors.New("permission denied"))

	o := NewOrchestrator(runner, source, 2, time.Minute, noRetry(), nil, mocks.NewMockLogger())
	summary, err := o.RunAll(context.Background())

	require.Error(t, err)
	assert.Equal(t, 0, summary.Total)
	runner.AssertNotCalled(t, "ApplyTenant", mock.Anything, mock.Anything)
	source.AssertNotCalled(t, "ActiveSchemas", mock.Anything)
}

func TestRunAll_NoActiveSchemas(t *testing.T) {
	runner := new(MockRunner)
	source := new(MockSchemaSource)
	log := mocks.NewMockLogger()
	runner.On("ApplyShared", mock.Anything).Return(nil)
	source.On("ActiveSchemas", mock.Anything).Return([]string{}, nil)

	o := NewOrchestrator(runner, source, 2, time.Minute, noRetry(), nil, log)
	summary, err := o.RunAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Contains(t, log.Messages("Error"), "No active tenant schemas found")
}

func TestRunAll_FailureDoesNotAbortOthers(t *testing.T) {
	runner := new(MockRunner)
	source := new(MockSchemaSource)
	runner.On("ApplyShared", mock.Anything).Return(nil)
	source.On("ActiveSchemas", mock.Anything).Return([]string{"acme", "globex", "initech", "bad-name"}, nil)
	runner.On("ApplyTenant", mock.Anything, "acme").Return(nil)
	runner.On("ApplyTenant", mock.Anything, "globex").Return(errors.New("syntax error"))
	runner.On("ApplyTenant", mock.Anything, "initech").Return(nil)

	o := NewOrchestrator(runner, source, 2, time.Minute, noRetry(), nil, mocks.NewMockLogger())
	summary, err := o.RunAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, []string{"bad-name", "globex"}, summary.FailedSchemas())
	runner.AssertNotCalled(t, "ApplyTenant", mock.Anything, "bad-name")
	runner.AssertNumberOfCalls(t, "ApplyTenant", 3)
}

func TestRunAll_DefaultConfigIsSequential(t *testing.T) {
	runner := new(MockRunner)
	source := new(MockSchemaSource)
	schemas := []string{"initech", "acme", "globex", "umbrella"}
	runner.On("ApplyShared", mock.Anything).Return(nil)
	source.On("ActiveSchemas", mock.Anything).Return(schemas, nil)

	var (
		mu       sync.Mutex
		inFlight int
		overlap  bool
		order    []string
	)
	runner.On("ApplyTenant", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			inFlight++
			if inFlight > 1 {
				overlap = true
			}
			order = append(order, args.String(1))
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
		}).Return(nil)

	cfg := config.Default().Migrations
	o := NewOrchestrator(runner, source, cfg.Workers, cfg.Timeout, noRetry(), nil, mocks.NewMockLogger())
	summary, err := o.RunAll(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, summary.Succeeded)
	assert.False(t, overlap, "tenant migrations must not overlap")
	assert.Equal(t, schemas, order)
}

func TestRunAll_ListError(t *testing.T) {
	runner := new(MockRunner)
	source := new(MockSchemaSource)
	runner.On("ApplyShared", mock.Anything).Return(nil)
	source.On("ActiveSchemas", mock.Anything).Return(nil, errors.New("connection refused"))

	o := NewOrchestrator(runner, source, 1, 0, noRetry(), nil, mocks.NewMockLogger())
	_, err := o.RunAll(context.Background())
	assert.Error(t, err)
}

func TestRunOne_RetriesTransientFailure(t *testing.T) {
	runner := new(MockRunner)
	runner.On("ApplyTenant", mock.Anything, "acme").Return(errors.New("connection reset")).Once()
	runner.On("ApplyTenant", mock.Anything, "acme").Return(nil).Once()

	retry := connection.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1}
	o := NewOrchestrator(runner, new(MockSchemaSource), 1, time.Minute, retry, nil, mocks.NewMockLogger())

	require.NoError(t, o.RunOne(context.Background(), "acme"))
	runner.AssertNumberOfCalls(t, "ApplyTenant", 2)
}
