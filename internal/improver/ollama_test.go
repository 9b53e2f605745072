package improver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type fakeMemory struct {
	entries map[string][]string
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{entries: map[string][]string{}}
}

func (m *fakeMemory) Recall(_ context.Context, memoryID string, limit int) ([]string, error) {
	entries := m.entries[memoryID]
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

func (m *fakeMemory) Record(_ context.Context, memoryID, entry string) error {
	m.entries[memoryID] = append(m.entries[memoryID], entry)
	return nil
}

func ollamaServer(t *testing.T, response string, onPrompt func(ollamaRequest)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		if onPrompt != nil {
			onPrompt(req)
		}
		json.NewEncoder(w).Encode(ollamaResponse{Response: response})
	}))
}

const sourceDoc = `# Setup Guide

Install the tool, configure the settings file, and run the first command.
The settings file lives in the home directory and uses YAML syntax.`

func TestOllama_Improve(t *testing.T) {
	improved := sourceDoc + "\n\nA closing section that explains verification steps."

	var gotReq ollamaRequest
	server := ollamaServer(t, improved, func(req ollamaRequest) { gotReq = req })
	defer server.Close()

	i := NewOllama(OllamaConfig{Model: "llama3.2", BaseURL: server.URL})

	got, err := i.Improve(context.Background(), sourceDoc, "Add a verification section.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != improved {
		t.Errorf("improved = %q", got)
	}

	if !strings.Contains(gotReq.Prompt, sourceDoc) {
		t.Error("prompt missing original document")
	}
	if !strings.Contains(gotReq.Prompt, "Add a verification section.") {
		t.Error("prompt missing feedback")
	}
	if !strings.Contains(gotReq.Prompt, "without any additional commentary") {
		t.Error("prompt missing output instruction")
	}
}

func TestOllama_Improve_CleansEcho(t *testing.T) {
	improved := sourceDoc + "\n\nMore explanation of each configuration key."
	server := ollamaServer(t, "Here is the improved document: "+improved, nil)
	defer server.Close()

	i := NewOllama(OllamaConfig{Model: "llama3.2", BaseURL: server.URL})

	got, err := i.Improve(context.Background(), sourceDoc, "Explain the keys.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.HasPrefix(got, "Here is") {
		t.Errorf("echo not stripped: %q", got)
	}
}

func TestOllama_Improve_EmptyRevision(t *testing.T) {
	server := ollamaServer(t, "", nil)
	defer server.Close()

	i := NewOllama(OllamaConfig{Model: "llama3.2", BaseURL: server.URL})

	if _, err := i.Improve(context.Background(), sourceDoc, "feedback"); err == nil {
		t.Error("expected error for empty revision")
	}
}

func TestOllama_Improve_RunawayRevision(t *testing.T) {
	server := ollamaServer(t, strings.Repeat(sourceDoc, 20), nil)
	defer server.Close()

	i := NewOllama(OllamaConfig{Model: "llama3.2", BaseURL: server.URL})

	if _, err := i.Improve(context.Background(), sourceDoc, "feedback"); err == nil {
		t.Error("expected error for runaway revision length")
	}
}

func TestOllama_Improve_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	i := NewOllama(OllamaConfig{Model: "llama3.2", BaseURL: server.URL})

	if _, err := i.Improve(context.Background(), sourceDoc, "feedback"); err == nil {
		t.Error("expected error for server failure")
	}
}

func TestOllama_Improve_Memory(t *testing.T) {
	mem := newFakeMemory()
	mem.entries["session_improver"] = []string{"Original: v1 | Improved: v2 | Based on feedback: tighten"}

	improved := sourceDoc + "\n\nExtra detail for the configuration section."
	var gotPrompt string
	server := ollamaServer(t, improved, func(req ollamaRequest) { gotPrompt = req.Prompt })
	defer server.Close()

	i := NewOllama(OllamaConfig{
		Model:    "llama3.2",
		BaseURL:  server.URL,
		MemoryID: "session_improver",
		Memory:   mem,
	})

	if _, err := i.Improve(context.Background(), sourceDoc, "feedback"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(gotPrompt, "Previous improvements") {
		t.Error("prompt missing memory preamble")
	}
	if len(mem.entries["session_improver"]) != 2 {
		t.Errorf("expected a new memory entry, have %d", len(mem.entries["session_improver"]))
	}
}

func TestNewOpenAI_Validation(t *testing.T) {
	if _, err := NewOpenAI(OpenAIConfig{Model: "gpt-4o"}); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test"}); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := NewOpenAI(OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOllama_Improve_CollaboratorErrorOnBadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	}))
	defer server.Close()

	i := NewOllama(OllamaConfig{Model: "llama3.2", BaseURL: server.URL})

	var jsonErr *json.SyntaxError
	_, err := i.Improve(context.Background(), sourceDoc, "feedback")
	if err == nil {
		t.Fatal("expected error for undecodable body")
	}
	if !errors.As(err, &jsonErr) {
		t.Errorf("expected wrapped json error, got %v", err)
	}
}
