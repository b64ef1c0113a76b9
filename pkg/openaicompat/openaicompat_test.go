package openaicompat

import (
	"context"
	"testing"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	if c := NewClient(Config{BaseURL: "http://localhost:11434/v1"}); c != nil {
		t.Fatal("expected nil client without api key")
	}
	if c := NewClient(Config{APIKey: "ollama", BaseURL: "http://localhost:11434/v1/"}); c == nil {
		t.Fatal("expected client")
	}
}

func TestConfigNewBuildsChatModel(t *testing.T) {
	t.Parallel()

	maxTokens := 64
	cfg := Config{
		BaseURL:            "http://localhost:11434/v1",
		APIKey:             "ollama",
		Model:              "tinyllama",
		MaxCompletionToken: &maxTokens,
	}
	m, err := cfg.New(context.Background())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if m == nil {
		t.Fatal("expected chat model")
	}
}
