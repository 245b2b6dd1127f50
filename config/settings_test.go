package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	for _, key := range []string{"SERVER_ADDR", "LLM_PROVIDER", "LLM_MAX_TOKENS", "LLM_TEMPERATURE", "LLM_CALL_TIMEOUT"} {
		t.Setenv(key, "")
	}

	settings, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if settings.Server.Addr != ":8000" {
		t.Errorf("expected default addr ':8000', got %q", settings.Server.Addr)
	}
	if settings.LLM.Provider != "openrouter" {
		t.Errorf("expected default provider 'openrouter', got %q", settings.LLM.Provider)
	}
	if settings.LLM.MaxTokens != 4096 {
		t.Errorf("expected default max tokens 4096, got %d", settings.LLM.MaxTokens)
	}
	if settings.LLM.Temperature != 0.7 {
		t.Errorf("expected default temperature 0.7, got %v", settings.LLM.Temperature)
	}
	if settings.LLM.CallTimeout != 120*time.Second {
		t.Errorf("expected default call timeout 2m, got %v", settings.LLM.CallTimeout)
	}
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9000")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_MAX_TOKENS", "2048")
	t.Setenv("LLM_CALL_TIMEOUT", "30s")
	t.Setenv("DATABASE_URL", "postgres://localhost/meatline")

	settings, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if settings.Server.Addr != ":9000" {
		t.Errorf("expected ':9000', got %q", settings.Server.Addr)
	}
	if settings.LLM.Provider != "anthropic" {
		t.Errorf("expected 'anthropic', got %q", settings.LLM.Provider)
	}
	if settings.LLM.MaxTokens != 2048 {
		t.Errorf("expected 2048, got %d", settings.LLM.MaxTokens)
	}
	if settings.LLM.CallTimeout != 30*time.Second {
		t.Errorf("expected 30s, got %v", settings.LLM.CallTimeout)
	}
	if settings.Database.DSN != "postgres://localhost/meatline" {
		t.Errorf("unexpected DSN %q", settings.Database.DSN)
	}
}

func TestNewRejectsInvalidValues(t *testing.T) {
	t.Setenv("LLM_MAX_TOKENS", "not-a-number")

	if _, err := New(); err == nil {
		t.Error("expected error for invalid LLM_MAX_TOKENS")
	}
}

func TestNewRejectsInvalidDuration(t *testing.T) {
	t.Setenv("LLM_CALL_TIMEOUT", "soon")

	if _, err := New(); err == nil {
		t.Error("expected error for invalid LLM_CALL_TIMEOUT")
	}
}
