// Path: internal/service/validator.go
package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/evanxz0/apikey-validation-service/internal/client"
	"github.com/evanxz0/apikey-validation-service/internal/config"
	"github.com/evanxz0/apikey-validation-service/internal/provider"
	"github.com/evanxz0/apikey-validation-service/internal/utils"
	"go.uber.org/zap"
)

// Options carries the per-request knobs for validating one key.
type Options struct {
	// Provider pins the provider family; empty means detect from key shape.
	Provider provider.Type
	// Model switches to model-scoped validation: a single completion probe
	// against exactly this model, no retries, no fallback.
	Model string
	// CustomAPIURL and CustomModel configure the OpenAI-compatible provider.
	CustomAPIURL string
	CustomModel  string
}

// verdict tells the pipeline whether a stage settled the key or whether the
// next stage should still run.
type verdict int

const (
	verdictTerminal verdict = iota
	verdictFallthrough
)

// classification maps one HTTP response to a validation outcome.
type classification struct {
	valid     bool
	retryable bool
	code      string
	message   string
}

// KeyValidator runs the per-key probe pipeline: a models-list probe with a
// retry budget, then a completion probe when the primary failure was
// connection-class.
type KeyValidator struct {
	probes client.Prober
	cfg    *config.Config

	// lookup resolves built-in descriptors; tests swap it to point probes at
	// local doubles.
	lookup func(provider.Type) (*provider.Descriptor, bool)
}

// NewKeyValidator wires a validator over the given prober.
func NewKeyValidator(cfg *config.Config, probes client.Prober) *KeyValidator {
	return &KeyValidator{
		probes: probes,
		cfg:    cfg,
		lookup: provider.Lookup,
	}
}

// ValidateKey validates one key. Provider-level failures never surface as
// errors; they land in the result record. The returned error is non-nil only
// when ctx ended first.
func (v *KeyValidator) ValidateKey(ctx context.Context, rawKey string, opts Options) (ValidationResult, error) {
	start := time.Now()
	key := utils.SanitizeKey(rawKey)
	res := ValidationResult{Key: key, SelectedModel: opts.Model}

	desc, errCode, errMsg := v.resolveDescriptor(key, opts)
	if errCode != "" {
		res.ErrorCode, res.ErrorMessage = errCode, errMsg
		return finishResult(res, start), nil
	}

	utils.WithComponent("key_validator").Debug("validation started",
		zap.String(utils.FieldKey, utils.MaskKey(key)),
		zap.String(utils.FieldProvider, string(desc.Type)))

	if opts.Model != "" {
		if err := v.probeModel(ctx, desc, key, opts.Model, &res); err != nil {
			return ValidationResult{}, err
		}
		return finishResult(res, start), nil
	}

	if err := v.runPipeline(ctx, desc, key, &res); err != nil {
		return ValidationResult{}, err
	}
	return finishResult(res, start), nil
}

// finishResult stamps latency and timestamp and enforces the invariant that
// valid results carry no error.
func finishResult(res ValidationResult, start time.Time) ValidationResult {
	res.LatencyMS = time.Since(start).Milliseconds()
	res.CheckedAt = time.Now().UTC()
	if res.Valid {
		res.ErrorCode, res.ErrorMessage = "", ""
	}
	return res
}

func (v *KeyValidator) resolveDescriptor(key string, opts Options) (*provider.Descriptor, string, string) {
	if opts.Provider == provider.TypeCustom {
		desc, err := provider.CompatibleDescriptor(opts.CustomAPIURL, opts.CustomModel)
		switch {
		case errors.Is(err, provider.ErrConfigMissing):
			return nil, CodeConfigMissing, "custom endpoint requires both api_url and model"
		case errors.Is(err, provider.ErrInvalidBase):
			return nil, CodeInvalidConfig, "custom api_url must end in /v1"
		case err != nil:
			return nil, CodeInvalidConfig, err.Error()
		}
		return desc, "", ""
	}

	t := opts.Provider
	if t == "" {
		detected, ok := provider.Detect(key)
		if !ok {
			return nil, CodeUnknownProvider, "unrecognized API key format"
		}
		t = detected
	}
	desc, ok := v.lookup(t)
	if !ok {
		return nil, CodeUnknownProvider, fmt.Sprintf("unsupported provider '%s'", t)
	}
	return desc, "", ""
}

// runPipeline executes the ordered attempt strategies: primary first, then
// the completion probe when the primary outcome was connection-class.
func (v *KeyValidator) runPipeline(ctx context.Context, desc *provider.Descriptor, key string, res *ValidationResult) error {
	primaryVerdict, err := v.runStage(ctx, desc, desc.Primary(), key, desc.Retries, res)
	if err != nil {
		return err
	}
	if primaryVerdict == verdictTerminal {
		return nil
	}

	backup, ok := desc.Completion("")
	if !ok {
		return nil
	}

	utils.WithComponent("key_validator").Debug("switching to backup endpoint",
		zap.String(utils.FieldKey, utils.MaskKey(key)),
		zap.String(utils.FieldProvider, string(desc.Type)),
		zap.String(utils.FieldEndpoint, backup.URL))
	if err := v.pause(ctx, v.jitter()); err != nil {
		return err
	}
	_, err = v.runStage(ctx, desc, backup, key, 1, res)
	return err
}

// runStage probes one endpoint inside its retry budget and folds the outcome
// into res. A fallthrough verdict means the failure was connection-class and
// a later completion probe may still rescue the key.
func (v *KeyValidator) runStage(ctx context.Context, desc *provider.Descriptor, ep provider.Endpoint, key string, budget int, res *ValidationResult) (verdict, error) {
	if budget < 1 {
		budget = 1
	}
	log := utils.WithComponent("key_validator")

	for attempt := 1; attempt <= budget; attempt++ {
		resp, err := v.probes.Probe(ctx, client.ProbeRequest{
			Method:  ep.Method,
			URL:     ep.URL,
			Headers: desc.AuthHeaders(key),
			Query:   desc.AuthQuery(key),
			Body:    ep.Body,
			Timeout: ep.Timeout,
		})
		if err != nil {
			var perr *client.ProbeError
			if !errors.As(err, &perr) {
				if ctx.Err() != nil {
					return verdictTerminal, ctx.Err()
				}
				res.Valid = false
				res.ErrorCode = CodeUnknownError
				res.ErrorMessage = fmt.Sprintf("unexpected error: %v", err)
				res.ValidationPath = ep.Path
				return verdictTerminal, nil
			}

			res.Valid = false
			res.ErrorCode, res.ErrorMessage = codeForProbeError(perr)
			res.ValidationPath = ep.Path
			log.Debug("probe attempt failed",
				zap.String(utils.FieldKey, utils.MaskKey(key)),
				zap.String(utils.FieldEndpoint, ep.URL),
				zap.Int(utils.FieldAttempt, attempt),
				zap.String("error_code", res.ErrorCode))
			if attempt < budget {
				if err := v.pause(ctx, v.jitter()); err != nil {
					return verdictTerminal, err
				}
				continue
			}
			return verdictFallthrough, nil
		}

		outcome := v.classify(desc, resp)
		res.Valid = outcome.valid
		res.ErrorCode = outcome.code
		res.ErrorMessage = outcome.message
		res.ValidationPath = ep.Path
		if outcome.valid && ep.Path == provider.PathCompletion {
			res.EffectiveModel = ep.Model
		}

		if outcome.valid {
			return verdictTerminal, nil
		}
		if outcome.retryable && attempt < budget {
			if err := v.pause(ctx, v.backoff(attempt)+v.jitter()); err != nil {
				return verdictTerminal, err
			}
			continue
		}
		return verdictTerminal, nil
	}
	return verdictTerminal, nil
}

// classify applies the shared status taxonomy: success, auth rejection,
// throttling, retryable server trouble, terminal client errors. Providers
// flagged for sniffing additionally treat a 400 mentioning "API key" as an
// auth rejection.
func (v *KeyValidator) classify(desc *provider.Descriptor, resp *client.ProbeResponse) classification {
	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
		return classification{valid: true}
	case status == 401 || status == 403:
		return classification{code: CodeInvalidKey, message: "invalid API key"}
	case status == 429:
		return classification{retryable: true, code: CodeRateLimit, message: "rate limited"}
	case status == 400 && desc.SniffKeyText && strings.Contains(resp.Body, "API key"):
		return classification{code: CodeInvalidKey, message: providerErrorMessage(resp.Body)}
	case status >= 500:
		return classification{retryable: true, code: HTTPCode(status), message: providerErrorMessage(resp.Body)}
	default:
		return classification{code: HTTPCode(status), message: providerErrorMessage(resp.Body)}
	}
}

// probeModel is the model-scoped path: one completion probe against exactly
// the requested model.
func (v *KeyValidator) probeModel(ctx context.Context, desc *provider.Descriptor, key, model string, res *ValidationResult) error {
	ep, ok := desc.Completion(model)
	if !ok {
		res.ErrorCode = CodeInvalidModel
		res.ErrorMessage = fmt.Sprintf("provider '%s' has no completion probe for model checks", desc.Type)
		return nil
	}

	resp, err := v.probes.Probe(ctx, client.ProbeRequest{
		Method:  ep.Method,
		URL:     ep.URL,
		Headers: desc.AuthHeaders(key),
		Query:   desc.AuthQuery(key),
		Body:    ep.Body,
		Timeout: ep.Timeout,
	})
	res.ValidationPath = provider.PathCompletion
	if err != nil {
		var perr *client.ProbeError
		if !errors.As(err, &perr) {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			res.ErrorCode = CodeUnknownError
			res.ErrorMessage = fmt.Sprintf("unexpected error: %v", err)
			return nil
		}
		res.ErrorCode, res.ErrorMessage = codeForProbeError(perr)
		return nil
	}

	status := resp.StatusCode
	switch {
	case status >= 200 && status < 300:
		res.Valid = true
		res.EffectiveModel = model
	case status == 404:
		res.ErrorCode = CodeInvalidModel
		res.ErrorMessage = fmt.Sprintf("model unavailable: %s", model)
	case status == 401 || status == 403:
		res.ErrorCode = CodeInvalidKey
		res.ErrorMessage = "invalid API key"
	case status == 400 && desc.SniffKeyText && strings.Contains(resp.Body, "API key"):
		res.ErrorCode = CodeInvalidKey
		res.ErrorMessage = providerErrorMessage(resp.Body)
	case status == 400 && strings.Contains(strings.ToLower(providerErrorMessage(resp.Body)), "model"):
		res.ErrorCode = CodeInvalidModel
		res.ErrorMessage = fmt.Sprintf("model unavailable: %s", model)
	case status == 429:
		res.ErrorCode = CodeRateLimit
		res.ErrorMessage = "rate limited"
	default:
		res.ErrorCode = HTTPCode(status)
		res.ErrorMessage = providerErrorMessage(resp.Body)
	}
	return nil
}

func codeForProbeError(perr *client.ProbeError) (string, string) {
	switch perr.Kind {
	case client.ErrKindTimeout:
		return CodeTimeout, "request timed out"
	case client.ErrKindConnection:
		return CodeConnectionError, "connection failed"
	default:
		return CodeNetworkError, perr.Err.Error()
	}
}

// pause sleeps for d unless ctx ends first.
func (v *KeyValidator) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// jitter picks a random delay inside the configured window.
func (v *KeyValidator) jitter() time.Duration {
	lo, hi := v.cfg.JitterMin, v.cfg.JitterMax
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)))
}

// backoff grows linearly with the attempt number.
func (v *KeyValidator) backoff(attempt int) time.Duration {
	return v.cfg.RetryBackoffBase * time.Duration(attempt)
}
