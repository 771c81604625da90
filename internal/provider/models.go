// internal/provider/models.go
package provider

import "strings"

// Static model catalogs. Providers whose completion probe cannot enumerate
// models (Claude, Gemini) are reported from these lists; they also back the
// analyzer when a live listing is unavailable.
var modelCatalog = map[Type][]string{
	TypeOpenAI: {
		"gpt-3.5-turbo",
		"gpt-3.5-turbo-instruct",
		"gpt-4",
		"gpt-4-turbo",
		"gpt-4o",
		"dall-e-3",
		"text-embedding-ada-002",
		"text-moderation-latest",
	},
	TypeClaude: {
		"claude-3-opus-20240229",
		"claude-3-sonnet-20240229",
		"claude-3-haiku-20240307",
		"claude-2.1",
		"claude-2.0",
		"claude-instant-1.2",
	},
	TypeGemini: {
		"gemini-pro",
		"gemini-pro-vision",
		"gemini-1.5-pro",
		"gemini-1.5-flash",
		"embedding-001",
	},
}

// Catalog returns the static model list for t; nil when the provider has no
// catalog.
func Catalog(t Type) []string {
	return modelCatalog[t]
}

// USD per 1000 tokens. Models absent from the table cost defaultPricePer1K.
var modelPrices = map[Type]map[string]float64{
	TypeOpenAI: {
		"gpt-3.5-turbo":          0.0005,
		"gpt-3.5-turbo-instruct": 0.0015,
		"gpt-4":                  0.03,
		"gpt-4-turbo":            0.01,
		"gpt-4o":                 0.01,
		"text-embedding-ada-002": 0.0001,
	},
	TypeClaude: {
		"claude-3-opus-20240229":   0.015,
		"claude-3-sonnet-20240229": 0.003,
		"claude-3-haiku-20240307":  0.00025,
		"claude-2.1":               0.008,
		"claude-2.0":               0.008,
	},
	TypeGemini: {
		"gemini-pro":       0.00025,
		"gemini-1.5-pro":   0.0035,
		"gemini-1.5-flash": 0.0005,
	},
}

const defaultPricePer1K = 0.01

// EstimateCost returns the estimated USD cost of pushing tokens through
// model on provider t.
func EstimateCost(t Type, model string, tokens int) float64 {
	price := defaultPricePer1K
	if prices, ok := modelPrices[t]; ok {
		if p, ok := prices[model]; ok {
			price = p
		}
	}
	return float64(tokens) / 1000 * price
}

// InferCapabilities derives a coarse capability list from model names. The
// OpenAI rules look for flagship families; the generic rules cover
// OpenAI-compatible vendors whose model names hint at context size or
// vision support.
func InferCapabilities(t Type, models []string) []string {
	switch t {
	case TypeOpenAI:
		var caps []string
		if anyContains(models, "gpt-4") {
			caps = append(caps, "GPT-4")
		}
		if anyContains(models, "dall-e") {
			caps = append(caps, "Image Generation")
		}
		if anyContains(models, "embedding") {
			caps = append(caps, "Embeddings")
		}
		return caps
	case TypeClaude:
		return []string{"Text Generation", "Function Calling"}
	case TypeGemini:
		return []string{"Text Generation", "Image Understanding"}
	default:
		var caps []string
		if anyContains(models, "16k") {
			caps = append(caps, "Long Context")
		}
		if anyContains(models, "vision") {
			caps = append(caps, "Image Understanding")
		}
		return caps
	}
}

func anyContains(models []string, substr string) bool {
	for _, m := range models {
		if strings.Contains(strings.ToLower(m), substr) {
			return true
		}
	}
	return false
}
