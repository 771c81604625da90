// internal/provider/provider.go
package provider

import (
	"regexp"
	"strings"
)

// Type identifies an API provider family.
type Type string

const (
	TypeOpenAI  Type = "openai"
	TypeClaude  Type = "claude"
	TypeGemini  Type = "gemini"
	TypeCohere  Type = "cohere"
	TypeMistral Type = "mistral"
	// TypeCustom is an OpenAI-compatible endpoint supplied by the caller.
	TypeCustom Type = "custom"
)

// Key shape patterns, checked in declaration order. The cohere pattern is a
// superset of the mistral one, so their relative order carries meaning.
var keyPatterns = []struct {
	Type    Type
	Pattern *regexp.Regexp
}{
	{TypeOpenAI, regexp.MustCompile(`^sk-[A-Za-z0-9]{32,}$`)},
	{TypeClaude, regexp.MustCompile(`^sk-ant-api[0-9]{2}-[A-Za-z0-9\-_]{56,}$`)},
	{TypeGemini, regexp.MustCompile(`^AIza[A-Za-z0-9_\-]{35,}$`)},
	{TypeCohere, regexp.MustCompile(`^[A-Za-z0-9]{40,}$`)},
	{TypeMistral, regexp.MustCompile(`^[A-Za-z0-9]{32,}$`)},
}

// Detect classifies an API key by shape. The caller is expected to pass a
// sanitized key (utils.SanitizeKey). When no strict pattern matches, prefix
// heuristics take over: "sk-" keys longer than 50 characters look like
// Claude, shorter ones like OpenAI, and "AIza" always means Gemini.
func Detect(key string) (Type, bool) {
	if key == "" {
		return "", false
	}
	for _, p := range keyPatterns {
		if p.Pattern.MatchString(key) {
			return p.Type, true
		}
	}
	if strings.HasPrefix(key, "sk-") {
		if len(key) > 50 {
			return TypeClaude, true
		}
		return TypeOpenAI, true
	}
	if strings.HasPrefix(key, "AIza") {
		return TypeGemini, true
	}
	return "", false
}

// ParseType maps a wire-level provider name to a Type. Empty and "auto" mean
// per-key detection and map to the empty Type.
func ParseType(s string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case "", "auto":
		return "", true
	case TypeOpenAI:
		return TypeOpenAI, true
	case TypeClaude:
		return TypeClaude, true
	case TypeGemini:
		return TypeGemini, true
	case TypeCohere:
		return TypeCohere, true
	case TypeMistral:
		return TypeMistral, true
	case TypeCustom:
		return TypeCustom, true
	default:
		return "", false
	}
}
