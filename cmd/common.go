/*
Copyright © 2025 Greg Randall

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/greg-randall/ocr-translation/internal/cleaner"
	"github.com/greg-randall/ocr-translation/internal/config"
)

// buildService constructs the correction backend for a parsed provider:model
// identifier. API keys come from the environment (or a .env file loaded at
// startup); unknown providers were already rejected by ParseModelID.
func buildService(id cleaner.ModelID, cfg config.Config) (cleaner.Service, error) {
	switch id.Provider {
	case "openai":
		return cleaner.NewOpenAIService(os.Getenv("OPENAI_API_KEY"), cfg.OpenAIBaseURL, id.Model), nil
	case "anthropic":
		return cleaner.NewAnthropicService(os.Getenv("ANTHROPIC_API_KEY"), cfg.AnthropicBaseURL, id.Model), nil
	case "ollama":
		return cleaner.NewOllamaService(cfg.OllamaBaseURL, id.Model), nil
	case "openrouter":
		return cleaner.NewOpenRouterService(os.Getenv("OPENROUTER_API_KEY"), cfg.OpenRouterBaseURL, id.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", id.Provider)
	}
}
