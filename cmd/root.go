/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

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
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "0.3.0"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "autodoceval",
	Short: "LLM-backed document evaluation and improvement",
	Long: `A CLI application that grades documents for clarity using an LLM evaluator
and iteratively rewrites them until a target score is reached.

Supported backends: Ollama (self-hosted), OpenAI, OpenRouter

Use "autodoceval auto-improve --help" for the refinement loop options.`,
	Version: version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.autodoceval.yaml)")

	rootCmd.PersistentFlags().String("provider", "ollama", "LLM backend: ollama, openai, openrouter")
	rootCmd.PersistentFlags().String("model", "", "Model name (default llama3.2 for ollama)")
	rootCmd.PersistentFlags().String("ollama-url", "http://localhost:11434", "Ollama base URL")
	rootCmd.PersistentFlags().String("openai-key", "", "OpenAI API key")
	rootCmd.PersistentFlags().String("openrouter-key", "", "OpenRouter API key")
	rootCmd.PersistentFlags().String("base-url", "", "Override base URL for OpenAI-compatible endpoints")

	rootCmd.PersistentFlags().String("scale", "fraction", "Score scale: fraction (0-1) or percent (0-100)")
	rootCmd.PersistentFlags().String("decoder", "text", "Evaluator response format: text or json")

	rootCmd.PersistentFlags().String("db", "./data/autodoceval.db", "Database path for run history and session memory")
	rootCmd.PersistentFlags().Bool("no-store", false, "Disable run history and session memory")
	rootCmd.PersistentFlags().String("out-dir", "docs/output", "Output directory for run artifacts")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

// initConfig reads an optional config file and AUTODOCEVAL_* environment
// variables. Flags win over both.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".autodoceval")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("AUTODOCEVAL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Failed to read config: %v\n", err)
		}
	}
}
