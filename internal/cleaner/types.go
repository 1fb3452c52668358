// Package cleaner corrects OCR-damaged markdown by delegating to an external
// text-generation backend. Each backend makes exactly one outbound call per
// Clean invocation; retries, caching, and file I/O are the caller's concern.
package cleaner

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// ServiceConfig carries per-run overrides passed into every backend call.
type ServiceConfig struct {
	APIKey  string        `mapstructure:"api_key" json:"api_key"`
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// CleanRequest is one document's correction call: the raw OCR text plus the
// instruction pair and sampling temperature. It is built per document and
// never persisted.
type CleanRequest struct {
	Text         string  `json:"text"`
	SystemPrompt string  `json:"system_prompt"`
	UserPrompt   string  `json:"user_prompt"`
	Temperature  float64 `json:"temperature"`
}

// ServiceResult holds the backend's output. CleanedText is returned exactly
// as the model produced it, with no local trimming or validation.
type ServiceResult struct {
	ServiceName string            `json:"service_name"`
	Model       string            `json:"model"`
	CleanedText string            `json:"cleaned_text"`
	Metadata    map[string]string `json:"metadata"`
	Latency     time.Duration     `json:"latency"`
	Error       string            `json:"error,omitempty"`
}

type Service interface {
	Name() string
	Clean(ctx context.Context, cfg ServiceConfig, req CleanRequest) (*ServiceResult, error)
	IsAvailable(ctx context.Context) error
}

// SupportedProviders is the closed set of backend identifiers accepted on the
// command line.
var SupportedProviders = []string{"openai", "anthropic", "ollama", "openrouter"}

// ModelID is a parsed provider:model pair, e.g. "openai:gpt-4o" or
// "anthropic:claude-3-5-sonnet-20240620".
type ModelID struct {
	Provider string
	Model    string
}

func (m ModelID) String() string {
	return m.Provider + ":" + m.Model
}

// ParseModelID validates a provider:model identifier. The model part may
// itself contain colons (Ollama tags like "gemma2:2b").
func ParseModelID(s string) (ModelID, error) {
	provider, model, ok := strings.Cut(s, ":")
	if !ok || provider == "" || model == "" {
		return ModelID{}, fmt.Errorf("invalid model %q: expected provider:model", s)
	}

	for _, p := range SupportedProviders {
		if provider == p {
			return ModelID{Provider: provider, Model: model}, nil
		}
	}
	return ModelID{}, fmt.Errorf("unsupported provider %q (supported: %s)", provider, strings.Join(SupportedProviders, ", "))
}
