package service

import (
	"context"

	"github.com/evanxz0/apikey-validation-service/internal/client"
	"github.com/evanxz0/apikey-validation-service/internal/provider"
	"github.com/stretchr/testify/mock"
)

type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, req client.ProbeRequest) (*client.ProbeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.ProbeResponse), args.Error(1)
}

type MockProviderAPI struct {
	mock.Mock
}

func (m *MockProviderAPI) ListModels(ctx context.Context, desc *provider.Descriptor, key string) ([]string, error) {
	args := m.Called(ctx, desc, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockProviderAPI) OpenAISubscription(ctx context.Context, key string) (*client.Subscription, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*client.Subscription), args.Error(1)
}

type MockSingleValidator struct {
	mock.Mock
}

func (m *MockSingleValidator) ValidateKey(ctx context.Context, key string, opts Options) (ValidationResult, error) {
	args := m.Called(ctx, key, opts)
	return args.Get(0).(ValidationResult), args.Error(1)
}

// probeTo matches probe requests by URL.
func probeTo(url string) any {
	return mock.MatchedBy(func(req client.ProbeRequest) bool {
		return req.URL == url
	})
}

func probeOK() *client.ProbeResponse {
	return &client.ProbeResponse{StatusCode: 200, Body: "{}"}
}

func probeStatus(code int, body string) *client.ProbeResponse {
	return &client.ProbeResponse{StatusCode: code, Body: body}
}
