package client

import (
	"context"

	"github.com/evanxz0/apikey-validation-service/internal/provider"
)

// Prober issues probe requests against provider endpoints. Use the concrete
// NewProbeClient to obtain an implementation backed by a shared HTTP
// transport; tests substitute their own.
type Prober interface {
	Probe(ctx context.Context, req ProbeRequest) (*ProbeResponse, error)
}

// ProviderAPI covers the typed provider calls that go beyond a bare probe:
// model listings and quota metadata. Use NewProviderAPI for the real
// implementation.
type ProviderAPI interface {
	ListModels(ctx context.Context, desc *provider.Descriptor, key string) ([]string, error)
	OpenAISubscription(ctx context.Context, key string) (*Subscription, error)
}
