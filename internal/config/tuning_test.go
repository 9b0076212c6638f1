package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultTuningConfig(t *testing.T) {
	cfg := DefaultTuningConfig()

	if cfg.HoverThreshold == nil || *cfg.HoverThreshold != 0.04 {
		t.Errorf("Expected HoverThreshold 0.04, got %v", cfg.HoverThreshold)
	}
	if cfg.FixedStep == nil || *cfg.FixedStep != "20ms" {
		t.Errorf("Expected FixedStep '20ms', got %v", cfg.FixedStep)
	}
	if cfg.GetContactThreshold() != 0.002 {
		t.Errorf("GetContactThreshold() = %f, want 0.002", cfg.GetContactThreshold())
	}
	if cfg.GetFixedStep() != 20*time.Millisecond {
		t.Errorf("GetFixedStep() = %s, want 20ms", cfg.GetFixedStep())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDefaultsFileMatchesBuiltins(t *testing.T) {
	fromFile := MustLoadDefaultConfig()
	if diff := cmp.Diff(DefaultTuningConfig(), fromFile); diff != "" {
		t.Errorf("config/tuning.defaults.json drifted from built-in defaults (-builtin +file):\n%s", diff)
	}
}

func TestEmptyConfigFallsBackToDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	if cfg.GetHoverThreshold() != 0.04 {
		t.Errorf("GetHoverThreshold() = %f, want 0.04", cfg.GetHoverThreshold())
	}
	if cfg.GetThumbGrabThreshold() != 0.04 || cfg.GetFingerGrabThreshold() != 0.18 {
		t.Errorf("unexpected grab thresholds: thumb=%f finger=%f",
			cfg.GetThumbGrabThreshold(), cfg.GetFingerGrabThreshold())
	}
	if cfg.GetDistalForwardMaxDeg() != 45 || cfg.GetThumbIndexTiltDeg() != 25 {
		t.Errorf("unexpected grab angles: forward=%f tilt=%f",
			cfg.GetDistalForwardMaxDeg(), cfg.GetThumbIndexTiltDeg())
	}
	if cfg.GetMaxStepsPerTick() != 5 || cfg.GetRecoveryHoldSteps() != 10 || cfg.GetResetHoldSteps() != 30 {
		t.Errorf("unexpected step counts")
	}
	if cfg.GetInterpolatePoses() {
		t.Errorf("GetInterpolatePoses() should default to false")
	}
}

func TestLoadTuningConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test_config.json")

	testJSON := `{
  "hover_threshold": 0.05,
  "contact_threshold": 0.003,
  "fixed_step": "10ms",
  "interpolate_poses": true
}`
	if err := os.WriteFile(configPath, []byte(testJSON), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := LoadTuningConfig(configPath)
	if err != nil {
		t.Fatalf("LoadTuningConfig failed: %v", err)
	}

	if cfg.GetHoverThreshold() != 0.05 {
		t.Errorf("Expected HoverThreshold 0.05, got %f", cfg.GetHoverThreshold())
	}
	if cfg.GetContactThreshold() != 0.003 {
		t.Errorf("Expected ContactThreshold 0.003, got %f", cfg.GetContactThreshold())
	}
	if cfg.GetFixedStep() != 10*time.Millisecond {
		t.Errorf("Expected FixedStep 10ms, got %s", cfg.GetFixedStep())
	}
	if !cfg.GetInterpolatePoses() {
		t.Errorf("Expected InterpolatePoses true")
	}
	// Omitted fields keep defaults.
	if cfg.GetSafetyThreshold() != 0.01 {
		t.Errorf("Expected default SafetyThreshold 0.01, got %f", cfg.GetSafetyThreshold())
	}
}

func TestLoadTuningConfig_Errors(t *testing.T) {
	tmpDir := t.TempDir()

	write := func(name, body string) string {
		p := filepath.Join(tmpDir, name)
		if err := os.WriteFile(p, []byte(body), 0644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		return p
	}

	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"wrong extension", write("cfg.yaml", `{}`), ".json extension"},
		{"missing file", filepath.Join(tmpDir, "absent.json"), "failed to stat"},
		{"bad json", write("bad.json", `{"hover_threshold":`), "failed to parse"},
		{"negative hover", write("neg.json", `{"hover_threshold": -1}`), "hover_threshold must be non-negative"},
		{"contact above hover", write("order.json", `{"hover_threshold": 0.01, "contact_threshold": 0.02}`), "must not exceed"},
		{"grab threshold range", write("grab.json", `{"thumb_grab_threshold": 1.5}`), "thumb_grab_threshold"},
		{"bad duration", write("dur.json", `{"fixed_step": "soon"}`), "invalid fixed_step"},
		{"zero duration", write("zero.json", `{"fixed_step": "0s"}`), "must be positive"},
		{"zero extent", write("extent.json", `{"min_bone_extent": 0}`), "min_bone_extent"},
		{"negative steps", write("steps.json", `{"reset_hold_steps": -2}`), "reset_hold_steps"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(tt.path)
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadTuningConfig_TooLarge(t *testing.T) {
	tmpDir := t.TempDir()
	p := filepath.Join(tmpDir, "big.json")
	big := make([]byte, 1024*1024+1)
	for i := range big {
		big[i] = ' '
	}
	if err := os.WriteFile(p, big, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadTuningConfig(p); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("expected too large error, got %v", err)
	}
}
