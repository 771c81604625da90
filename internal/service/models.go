// internal/service/models.go
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanxz0/apikey-validation-service/internal/client"
	"github.com/evanxz0/apikey-validation-service/internal/provider"
	"github.com/evanxz0/apikey-validation-service/internal/utils"
	"go.uber.org/zap"
)

// ModelService lists the models a key can reach. Failures come back inside
// the report, never as an error: a bad key is a report, not a fault.
type ModelService struct {
	api client.ProviderAPI

	lookup func(provider.Type) (*provider.Descriptor, bool)
}

// NewModelService wires a model lister over the typed provider-API client.
func NewModelService(api client.ProviderAPI) *ModelService {
	return &ModelService{
		api:    api,
		lookup: provider.Lookup,
	}
}

// ListModels fetches the model list for one key. Provider selection follows
// the validator's rules: pinned, detected from key shape, or the custom
// OpenAI-compatible endpoint.
func (ms *ModelService) ListModels(ctx context.Context, rawKey string, opts Options) *ModelsReport {
	key := utils.SanitizeKey(rawKey)
	desc, errMsg := ms.resolve(key, opts)
	if errMsg != "" {
		return &ModelsReport{Error: errMsg}
	}

	log := utils.WithComponent("model_service")
	models, err := ms.api.ListModels(ctx, desc, key)
	if err != nil {
		log.Debug("model listing failed",
			zap.String(utils.FieldKey, utils.MaskKey(key)),
			zap.String(utils.FieldProvider, string(desc.Type)),
			zap.Error(err))
		return &ModelsReport{Provider: string(desc.Type), Error: listingError(desc, err)}
	}

	log.Info("models listed",
		zap.String(utils.FieldKey, utils.MaskKey(key)),
		zap.String(utils.FieldProvider, string(desc.Type)),
		zap.Int(utils.FieldCount, len(models)))
	return &ModelsReport{Success: true, Provider: string(desc.Type), Models: models}
}

func (ms *ModelService) resolve(key string, opts Options) (*provider.Descriptor, string) {
	if opts.Provider == provider.TypeCustom || opts.CustomAPIURL != "" {
		base, err := provider.CompatibleBase(opts.CustomAPIURL)
		switch {
		case errors.Is(err, provider.ErrConfigMissing):
			return nil, "custom endpoint requires api_url"
		case err != nil:
			return nil, "custom api_url must end in /v1"
		}
		// Listing needs no completion probe, so no model is required here.
		return &provider.Descriptor{
			Type:      provider.TypeCustom,
			Label:     "OpenAI-compatible",
			BaseURL:   base,
			ModelsURL: base + "/models",
			Auth:      provider.AuthBearer,
		}, ""
	}

	t := opts.Provider
	if t == "" {
		detected, ok := provider.Detect(key)
		if !ok {
			return nil, "unrecognized API key format"
		}
		t = detected
	}
	desc, ok := ms.lookup(t)
	if !ok {
		return nil, fmt.Sprintf("unsupported provider '%s'", t)
	}
	return desc, ""
}

// listingError renders a listing failure for the report. Auth rejections
// collapse to "invalid API key"; sniffing providers additionally read 400/403
// bodies because Gemini reports bad keys that way.
func listingError(desc *provider.Descriptor, err error) string {
	var herr *client.HTTPError
	if errors.As(err, &herr) {
		switch {
		case herr.StatusCode == 401:
			return "invalid API key"
		case desc.SniffKeyText && (herr.StatusCode == 400 || herr.StatusCode == 403):
			if strings.Contains(herr.Body, "API key") {
				return "invalid API key"
			}
			return "insufficient permission or invalid API key"
		default:
			if msg := providerErrorMessage(herr.Body); msg != "unknown error" {
				return msg
			}
			return fmt.Sprintf("HTTP error: %d", herr.StatusCode)
		}
	}

	var perr *client.ProbeError
	if errors.As(err, &perr) {
		switch perr.Kind {
		case client.ErrKindTimeout:
			return "request timed out"
		case client.ErrKindConnection:
			return fmt.Sprintf("connection error, cannot reach %s", desc.Label)
		default:
			return fmt.Sprintf("network error: %v", perr.Err)
		}
	}
	return err.Error()
}
