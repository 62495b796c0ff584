package migration

import (
	"context"

	"github.com/stretchr/testify/mock"

	"TenancyPlatform/pkg/rabbitmq"
)

type MockRunner struct {
	mock.Mock
}

func (m *MockRunner) ApplyShared(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRunner) ApplyTenant(ctx context.Context, schemaName string) error {
	args := m.Called(ctx, schemaName)
	return args.Error(0)
}

func (m *MockRunner) ModelSetFor(schemaName string) ModelSet {
	args := m.Called(schemaName)
	return args.Get(0).(ModelSet)
}

type MockSchemaSource struct {
	mock.Mock
}

func (m *MockSchemaSource) ActiveSchemas(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, body []byte, options ...rabbitmq.PublishOption) error {
	args := m.Called(ctx, body, options)
	return args.Error(0)
}
