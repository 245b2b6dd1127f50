package llm

import "testing"

func TestParseProviderType(t *testing.T) {
	tests := []struct {
		input   string
		want    ProviderType
		wantErr bool
	}{
		{"openrouter", ProviderOpenRouter, false},
		{"", ProviderOpenRouter, false},
		{"OpenAI", ProviderOpenAI, false},
		{"gpt", ProviderOpenAI, false},
		{"claude", ProviderAnthropic, false},
		{"anthropic", ProviderAnthropic, false},
		{"google", ProviderGemini, false},
		{"mistral", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseProviderType(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseProviderType(%q): expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseProviderType(%q): unexpected error %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseProviderType(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestProviderTypeDefaults(t *testing.T) {
	if ProviderOpenRouter.DefaultModel() == "" {
		t.Error("openrouter must have a default model")
	}
	if ProviderOpenRouter.EnvVar() != "OPENROUTER_API_KEY" {
		t.Errorf("unexpected env var %q", ProviderOpenRouter.EnvVar())
	}
	if ProviderOpenRouter.String() != "openrouter" {
		t.Errorf("unexpected name %q", ProviderOpenRouter.String())
	}
}

func TestBuilderFromEnvRequiresKey(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	if _, err := ProviderOpenRouter.FromEnv(); err == nil {
		t.Error("expected error when API key env var is unset")
	}
}

func TestBuilderAppliesDefaults(t *testing.T) {
	provider, err := NewProviderBuilder(ProviderOpenRouter).APIKey("test-key")
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if provider.Model() != ProviderOpenRouter.DefaultModel() {
		t.Errorf("expected default model, got %q", provider.Model())
	}
	if provider.Name() != "openrouter" {
		t.Errorf("unexpected provider name %q", provider.Name())
	}
}
