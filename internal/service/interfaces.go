package service

import "context"

// SingleValidator validates one key at a time. *KeyValidator is the real
// implementation; the batch orchestrator and tests depend on the interface.
type SingleValidator interface {
	ValidateKey(ctx context.Context, key string, opts Options) (ValidationResult, error)
}

// BatchRunner runs bulk validations. Use NewBatchValidator for the real
// implementation.
type BatchRunner interface {
	ValidateKeys(ctx context.Context, req BatchRequest) ([]ValidationResult, error)
}

// ModelLister lists the models a key can reach.
type ModelLister interface {
	ListModels(ctx context.Context, key string, opts Options) *ModelsReport
}

// HealthMonitor reports provider availability.
type HealthMonitor interface {
	CheckAll(ctx context.Context) *HealthReport
	CheckProvider(ctx context.Context, name string) (*ProviderReport, error)
	RegionalStatus() *RegionalReport
}

// Analyzer runs deep single-key introspection.
type Analyzer interface {
	AnalyzeKey(ctx context.Context, key, preferredModel string) *KeyAnalysis
}
