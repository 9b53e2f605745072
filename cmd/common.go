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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/valpere/autodoceval/internal/decode"
	"github.com/valpere/autodoceval/internal/evaluator"
	"github.com/valpere/autodoceval/internal/improver"
	"github.com/valpere/autodoceval/internal/store"
)

const (
	defaultOllamaModel = "llama3.2"
	openRouterBaseURL  = "https://openrouter.ai/api/v1"
)

// readDocument loads the document and rejects missing or blank files before
// any backend call is made.
func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", fmt.Errorf("document %s is empty", path)
	}
	return string(data), nil
}

// docStem returns the document filename without extension, used in memory
// ids and artifact paths.
func docStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// openStore opens the run history database, or returns nil when persistence
// is disabled.
func openStore() (*store.Store, error) {
	if viper.GetBool("no-store") {
		return nil, nil
	}
	dbPath := viper.GetString("db")
	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := store.New(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// evalMemory and improveMemory adapt a possibly-nil store to the provider
// memory interfaces without producing a non-nil interface around a nil
// pointer.
func evalMemory(db *store.Store) evaluator.Memory {
	if db == nil {
		return nil
	}
	return db
}

func improveMemory(db *store.Store) improver.Memory {
	if db == nil {
		return nil
	}
	return db
}

// scoreScale resolves the configured score scale.
func scoreScale() (decode.Scale, error) {
	return decode.ParseScale(viper.GetString("scale"))
}

// buildEvaluator constructs the configured evaluator backend. mem may be nil.
func buildEvaluator(mem evaluator.Memory, memoryID string) (evaluator.Evaluator, decode.Scale, error) {
	scale, err := scoreScale()
	if err != nil {
		return nil, "", err
	}
	dec, err := decode.New(viper.GetString("decoder"), scale)
	if err != nil {
		return nil, "", err
	}
	if mem == nil {
		memoryID = ""
	}

	provider := viper.GetString("provider")
	model := viper.GetString("model")

	switch provider {
	case "ollama":
		if model == "" {
			model = defaultOllamaModel
		}
		return evaluator.NewOllama(evaluator.OllamaConfig{
			Model:    model,
			BaseURL:  viper.GetString("ollama-url"),
			Scale:    scale,
			Decoder:  dec,
			MemoryID: memoryID,
			Memory:   mem,
		}), scale, nil
	case "openai":
		e, err := evaluator.NewOpenAI(evaluator.OpenAIConfig{
			APIKey:   viper.GetString("openai-key"),
			BaseURL:  viper.GetString("base-url"),
			Model:    model,
			Scale:    scale,
			Decoder:  dec,
			MemoryID: memoryID,
			Memory:   mem,
		})
		return e, scale, err
	case "openrouter":
		baseURL := viper.GetString("base-url")
		if baseURL == "" {
			baseURL = openRouterBaseURL
		}
		e, err := evaluator.NewOpenAI(evaluator.OpenAIConfig{
			APIKey:   viper.GetString("openrouter-key"),
			BaseURL:  baseURL,
			Model:    model,
			Scale:    scale,
			Decoder:  dec,
			MemoryID: memoryID,
			Memory:   mem,
		})
		return e, scale, err
	}
	return nil, "", fmt.Errorf("unknown provider %q (want ollama, openai, or openrouter)", provider)
}

// buildImprover constructs the configured improver backend. mem may be nil.
func buildImprover(mem improver.Memory, memoryID string) (improver.Improver, error) {
	if mem == nil {
		memoryID = ""
	}

	provider := viper.GetString("provider")
	model := viper.GetString("model")

	switch provider {
	case "ollama":
		if model == "" {
			model = defaultOllamaModel
		}
		return improver.NewOllama(improver.OllamaConfig{
			Model:    model,
			BaseURL:  viper.GetString("ollama-url"),
			MemoryID: memoryID,
			Memory:   mem,
		}), nil
	case "openai":
		return improver.NewOpenAI(improver.OpenAIConfig{
			APIKey:   viper.GetString("openai-key"),
			BaseURL:  viper.GetString("base-url"),
			Model:    model,
			MemoryID: memoryID,
			Memory:   mem,
		})
	case "openrouter":
		baseURL := viper.GetString("base-url")
		if baseURL == "" {
			baseURL = openRouterBaseURL
		}
		return improver.NewOpenAI(improver.OpenAIConfig{
			APIKey:   viper.GetString("openrouter-key"),
			BaseURL:  baseURL,
			Model:    model,
			MemoryID: memoryID,
			Memory:   mem,
		})
	}
	return nil, fmt.Errorf("unknown provider %q (want ollama, openai, or openrouter)", provider)
}
