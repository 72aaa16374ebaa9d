package common

import (
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if cfg.Storage.Namespace != "assessor" {
		t.Errorf("Storage.Namespace default = %q, want %q", cfg.Storage.Namespace, "assessor")
	}
	if cfg.Blob.Backend != "file" {
		t.Errorf("Blob.Backend default = %q, want %q", cfg.Blob.Backend, "file")
	}
}

func TestConfig_StorageEnvOverride(t *testing.T) {
	t.Setenv("ASSESSOR_STORAGE_ADDRESS", "ws://db:8000/rpc")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Storage.Address != "ws://db:8000/rpc" {
		t.Errorf("Storage.Address = %q after env override, want %q", cfg.Storage.Address, "ws://db:8000/rpc")
	}
}

func TestConfig_DetectorAPIKeyEnvOverride(t *testing.T) {
	t.Setenv("ASSESSOR_DETECTOR_API_KEY", "from-env")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Detector.APIKey != "from-env" {
		t.Errorf("Detector.APIKey = %q, want %q", cfg.Detector.APIKey, "from-env")
	}
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{Environment: "production"}
	if !cfg.IsProduction() {
		t.Error("expected IsProduction true for 'production'")
	}
	cfg.Environment = "development"
	if cfg.IsProduction() {
		t.Error("expected IsProduction false for 'development'")
	}
}

func TestAssessmentConfig_GetPollInterval_Default(t *testing.T) {
	cfg := &AssessmentConfig{}
	if d := cfg.GetPollInterval(); d != 2*time.Second {
		t.Errorf("GetPollInterval() = %v, want 2s", d)
	}
}

func TestAssessmentConfig_GetPollInterval_Configured(t *testing.T) {
	cfg := &AssessmentConfig{PollInterval: "500ms"}
	if d := cfg.GetPollInterval(); d != 500*time.Millisecond {
		t.Errorf("GetPollInterval() = %v, want 500ms", d)
	}
}

func TestAssessmentConfig_GetPollInterval_InvalidFallsBack(t *testing.T) {
	cfg := &AssessmentConfig{PollInterval: "not-a-duration"}
	if d := cfg.GetPollInterval(); d != 2*time.Second {
		t.Errorf("GetPollInterval() = %v, want 2s fallback", d)
	}
}

func TestAssessmentConfig_GetBackoffBase_DefaultsToPollInterval(t *testing.T) {
	cfg := &AssessmentConfig{PollInterval: "3s"}
	if d := cfg.GetBackoffBase(); d != 3*time.Second {
		t.Errorf("GetBackoffBase() = %v, want 3s (poll interval)", d)
	}
}

func TestAssessmentConfig_GetMaxAttempts_ZeroFallsBack(t *testing.T) {
	cfg := &AssessmentConfig{MaxAttempts: 0}
	if n := cfg.GetMaxAttempts(); n != 5 {
		t.Errorf("GetMaxAttempts() = %d, want 5", n)
	}
}

func TestAssessmentConfig_GetMaxConcurrentTasks_Configured(t *testing.T) {
	cfg := &AssessmentConfig{MaxConcurrentTasks: 10}
	if n := cfg.GetMaxConcurrentTasks(); n != 10 {
		t.Errorf("GetMaxConcurrentTasks() = %d, want 10", n)
	}
}

func TestDetectorConfig_GetTimeout_Default(t *testing.T) {
	cfg := &DetectorConfig{}
	if d := cfg.GetTimeout(); d != 30*time.Second {
		t.Errorf("GetTimeout() = %v, want 30s", d)
	}
}
