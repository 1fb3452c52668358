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
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "ocrclean",
	Short: "Clean OCR-generated markdown using AI models",
	Long: `A CLI application that sends OCR-generated markdown to a large-language-model
backend for correction and writes the cleaned text back to disk, one file at a
time or over a whole directory.

Supported backends: OpenAI, Anthropic, Ollama (self-hosted), OpenRouter

Use "ocrclean clean --help" for cleaning options.`,
	Version: version,
}

func Execute() {
	// Provider API keys may live in a local .env; a missing file is fine.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
