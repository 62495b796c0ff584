package mocks

import (
	"github.com/stretchr/testify/mock"

	"TenancyPlatform/pkg/logger"
)

// MockLogger имитирует logger.Logger
type MockLogger struct {
	mock.Mock
}

// NewMockLogger возвращает мок, принимающий любые записи
func NewMockLogger() *MockLogger {
	m := &MockLogger{}
	m.On("Debug", mock.Anything, mock.Anything).Maybe()
	m.On("Info", mock.Anything, mock.Anything).Maybe()
	m.On("Warn", mock.Anything, mock.Anything).Maybe()
	m.On("Error", mock.Anything, mock.Anything).Maybe()
	m.On("Sync").Return(nil).Maybe()
	return m
}

func (m *MockLogger) Debug(msg string, fields ...logger.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) Info(msg string, fields ...logger.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) Warn(msg string, fields ...logger.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) Error(msg string, fields ...logger.Field) {
	m.Called(msg, fields)
}

func (m *MockLogger) With(fields ...logger.Field) logger.Logger {
	return m
}

func (m *MockLogger) Sync() error {
	args := m.Called()
	return args.Error(0)
}

// Messages возвращает сообщения, записанные с указанным уровнем
func (m *MockLogger) Messages(level string) []string {
	var out []string
	for _, call := range m.Calls {
		if call.Method == level {
			out = append(out, call.Arguments.String(0))
		}
	}
	return out
}
