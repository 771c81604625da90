package server

import (
	"context"

	"github.com/evanxz0/apikey-validation-service/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockBatchRunner struct {
	mock.Mock
}

func (m *MockBatchRunner) ValidateKeys(ctx context.Context, req service.BatchRequest) ([]service.ValidationResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.ValidationResult), args.Error(1)
}

type MockModelLister struct {
	mock.Mock
}

func (m *MockModelLister) ListModels(ctx context.Context, key string, opts service.Options) *service.ModelsReport {
	args := m.Called(ctx, key, opts)
	return args.Get(0).(*service.ModelsReport)
}

type MockHealthMonitor struct {
	mock.Mock
}

func (m *MockHealthMonitor) CheckAll(ctx context.Context) *service.HealthReport {
	args := m.Called(ctx)
	return args.Get(0).(*service.HealthReport)
}

func (m *MockHealthMonitor) CheckProvider(ctx context.Context, name string) (*service.ProviderReport, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProviderReport), args.Error(1)
}

func (m *MockHealthMonitor) RegionalStatus() *service.RegionalReport {
	args := m.Called()
	return args.Get(0).(*service.RegionalReport)
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) AnalyzeKey(ctx context.Context, key, preferredModel string) *service.KeyAnalysis {
	args := m.Called(ctx, key, preferredModel)
	return args.Get(0).(*service.KeyAnalysis)
}
