package cleaner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const DefaultAnthropicModel = "claude-3-5-sonnet-20240620"

// maxAnthropicTokens bounds the completion; the messages API requires an
// explicit limit. Sized for whole cleaned documents.
const maxAnthropicTokens = 8192

type AnthropicService struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

func NewAnthropicService(apiKey, baseURL, model string) *AnthropicService {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &AnthropicService{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
}

func (s *AnthropicService) Name() string {
	return "anthropic"
}

func (s *AnthropicService) Clean(ctx context.Context, cfg ServiceConfig, req CleanRequest) (*ServiceResult, error) {
	result := &ServiceResult{ServiceName: s.Name(), Model: s.model}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	apiKey := s.apiKey
	if apiKey == "" {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		result.Error = "Anthropic API key required"
		return result, fmt.Errorf("Anthropic API key required")
	}

	anthropicReq := map[string]interface{}{
		"model":       s.model,
		"max_tokens":  maxAnthropicTokens,
		"system":      req.SystemPrompt,
		"temperature": req.Temperature,
		"messages": []map[string]string{
			{"role": "user", "content": req.UserPrompt + "\n\n" + req.Text},
		},
	}

	jsonData, err := json.Marshal(anthropicReq)
	if err != nil {
		result.Error = fmt.Sprintf("failed to marshal request: %v", err)
		return result, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", fmt.Sprintf("%s/v1/messages", s.baseURL), bytes.NewBuffer(jsonData))
	if err != nil {
		result.Error = fmt.Sprintf("failed to create request: %v", err)
		return result, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		result.Error = fmt.Sprintf("request failed: %v", err)
		return result, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		result.Error = fmt.Sprintf("API returned status %d: %v", resp.StatusCode, errResp)
		return result, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var anthropicResp struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&anthropicResp); err != nil {
		result.Error = fmt.Sprintf("failed to decode response: %v", err)
		return result, err
	}

	var sb strings.Builder
	for _, block := range anthropicResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		result.Error = "empty response from API"
		return result, fmt.Errorf("empty response from API")
	}

	result.CleanedText = sb.String()
	result.Metadata = map[string]string{
		"model":         s.model,
		"input_tokens":  fmt.Sprintf("%d", anthropicResp.Usage.InputTokens),
		"output_tokens": fmt.Sprintf("%d", anthropicResp.Usage.OutputTokens),
	}

	return result, nil
}

func (s *AnthropicService) IsAvailable(ctx context.Context) error {
	if s.apiKey == "" {
		return fmt.Errorf("Anthropic API key not configured")
	}
	return nil
}
