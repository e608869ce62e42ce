package main

import (
	"testing"
	"time"

	"github.com/shaiso/Notiflow/internal/telemetry"
)

func TestEnvInt(t *testing.T) {
	logger := telemetry.SetupLogger()

	if got := envInt(logger, "ENGINE_BATCH_SIZE"); got != 0 {
		t.Errorf("unset: got %d, want 0", got)
	}

	t.Setenv("ENGINE_BATCH_SIZE", "250")
	if got := envInt(logger, "ENGINE_BATCH_SIZE"); got != 250 {
		t.Errorf("got %d, want 250", got)
	}

	t.Setenv("ENGINE_BATCH_SIZE", "many")
	if got := envInt(logger, "ENGINE_BATCH_SIZE"); got != 0 {
		t.Errorf("garbage: got %d, want 0 (default)", got)
	}
}

func TestEnvDuration(t *testing.T) {
	logger := telemetry.SetupLogger()

	if got := envDuration(logger, "ENGINE_RULE_TIMEOUT"); got != 0 {
		t.Errorf("unset: got %v, want 0", got)
	}

	t.Setenv("ENGINE_RULE_TIMEOUT", "45s")
	if got := envDuration(logger, "ENGINE_RULE_TIMEOUT"); got != 45*time.Second {
		t.Errorf("got %v, want 45s", got)
	}

	t.Setenv("ENGINE_RULE_TIMEOUT", "soon")
	if got := envDuration(logger, "ENGINE_RULE_TIMEOUT"); got != 0 {
		t.Errorf("garbage: got %v, want 0 (default)", got)
	}
}
