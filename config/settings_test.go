package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.StoreRoot != "./stores" {
		t.Errorf("StoreRoot = %q, want ./stores", settings.StoreRoot)
	}
	if settings.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want :8080", settings.HTTPAddr)
	}
	if settings.Agent.MaxIterations != 8 {
		t.Errorf("MaxIterations = %d, want 8", settings.Agent.MaxIterations)
	}
	if settings.Agent.ToolTimeout != 30*time.Second {
		t.Errorf("ToolTimeout = %v, want 30s", settings.Agent.ToolTimeout)
	}
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("SCRIBA_STORE_ROOT", "/data/stores")
	t.Setenv("AGENT_MAX_ITERATIONS", "12")
	t.Setenv("AGENT_TOOL_TIMEOUT", "45s")
	t.Setenv("SCRIBA_KNOWLEDGE_BASE_ID", "kb-abc")

	settings, err := New()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.StoreRoot != "/data/stores" {
		t.Errorf("StoreRoot = %q", settings.StoreRoot)
	}
	if settings.Agent.MaxIterations != 12 {
		t.Errorf("MaxIterations = %d, want 12", settings.Agent.MaxIterations)
	}
	if settings.Agent.ToolTimeout != 45*time.Second {
		t.Errorf("ToolTimeout = %v, want 45s", settings.Agent.ToolTimeout)
	}
	if settings.KnowledgeBaseID != "kb-abc" {
		t.Errorf("KnowledgeBaseID = %q", settings.KnowledgeBaseID)
	}
}

func TestNewInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad iterations", "AGENT_MAX_ITERATIONS", "lots"},
		{"bad timeout", "AGENT_TOOL_TIMEOUT", "soon"},
		{"bad observation bytes", "AGENT_MAX_OBSERVATION_BYTES", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := New(); err == nil {
				t.Errorf("New() with %s=%q: want error", tt.key, tt.value)
			}
		})
	}
}
