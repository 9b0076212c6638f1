package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the contact engine.
// Every field is optional; the Get* accessors fall back to the built-in
// defaults so partial files are safe.
type TuningConfig struct {
	// Proximity thresholds (metres, surface-to-surface gap)
	HoverThreshold   *float64 `json:"hover_threshold,omitempty"`
	ContactThreshold *float64 `json:"contact_threshold,omitempty"`
	SafetyThreshold  *float64 `json:"safety_threshold,omitempty"`
	MinBoneExtent    *float64 `json:"min_bone_extent,omitempty"`

	// Grab admissibility
	DistalForwardMaxDeg *float64 `json:"distal_forward_max_deg,omitempty"`
	ThumbIndexTiltDeg   *float64 `json:"thumb_index_tilt_deg,omitempty"`
	ThumbGrabThreshold  *float64 `json:"thumb_grab_threshold,omitempty"`
	FingerGrabThreshold *float64 `json:"finger_grab_threshold,omitempty"`

	// Simulation cadence
	FixedStep       *string `json:"fixed_step,omitempty"` // duration string like "20ms"
	MaxStepsPerTick *int    `json:"max_steps_per_tick,omitempty"`

	// Hand lifecycle and recovery
	DivergenceThreshold *float64 `json:"divergence_threshold,omitempty"`
	RecoveryHoldSteps   *int     `json:"recovery_hold_steps,omitempty"`
	ResetHoldSteps      *int     `json:"reset_hold_steps,omitempty"`
	InterpolatePoses    *bool    `json:"interpolate_poses,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults. It matches config/tuning.defaults.json.
func DefaultTuningConfig() *TuningConfig {
	return &TuningConfig{
		HoverThreshold:      ptrFloat64(defaultHoverThreshold),
		ContactThreshold:    ptrFloat64(defaultContactThreshold),
		SafetyThreshold:     ptrFloat64(defaultSafetyThreshold),
		MinBoneExtent:       ptrFloat64(defaultMinBoneExtent),
		DistalForwardMaxDeg: ptrFloat64(defaultDistalForwardMaxDeg),
		ThumbIndexTiltDeg:   ptrFloat64(defaultThumbIndexTiltDeg),
		ThumbGrabThreshold:  ptrFloat64(defaultThumbGrabThreshold),
		FingerGrabThreshold: ptrFloat64(defaultFingerGrabThreshold),
		FixedStep:           ptrString(defaultFixedStep.String()),
		MaxStepsPerTick:     ptrInt(defaultMaxStepsPerTick),
		DivergenceThreshold: ptrFloat64(defaultDivergenceThreshold),
		RecoveryHoldSteps:   ptrInt(defaultRecoveryHoldSteps),
		ResetHoldSteps:      ptrInt(defaultResetHoldSteps),
		InterpolatePoses:    ptrBool(false),
	}
}

// Built-in defaults used by the Get* accessors.
const (
	defaultHoverThreshold      = 0.04
	defaultContactThreshold    = 0.002
	defaultSafetyThreshold     = 0.01
	defaultMinBoneExtent       = 1e-4
	defaultDistalForwardMaxDeg = 45.0
	defaultThumbIndexTiltDeg   = 25.0
	defaultThumbGrabThreshold  = 0.04
	defaultFingerGrabThreshold = 0.18
	defaultFixedStep           = 20 * time.Millisecond
	defaultMaxStepsPerTick     = 5
	defaultDivergenceThreshold = 0.1
	defaultRecoveryHoldSteps   = 10
	defaultResetHoldSteps      = 30
)

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*float64{
		"hover_threshold":      c.HoverThreshold,
		"contact_threshold":    c.ContactThreshold,
		"safety_threshold":     c.SafetyThreshold,
		"divergence_threshold": c.DivergenceThreshold,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %f", name, *v)
		}
	}

	if c.MinBoneExtent != nil && *c.MinBoneExtent <= 0 {
		return fmt.Errorf("min_bone_extent must be positive, got %g", *c.MinBoneExtent)
	}

	if c.GetContactThreshold() > c.GetHoverThreshold() {
		return fmt.Errorf("contact_threshold (%f) must not exceed hover_threshold (%f)",
			c.GetContactThreshold(), c.GetHoverThreshold())
	}

	for name, v := range map[string]*float64{
		"thumb_grab_threshold":  c.ThumbGrabThreshold,
		"finger_grab_threshold": c.FingerGrabThreshold,
	} {
		if v != nil && (*v < -1 || *v > 1) {
			return fmt.Errorf("%s must be between -1 and 1, got %f", name, *v)
		}
	}

	if c.DistalForwardMaxDeg != nil && (*c.DistalForwardMaxDeg < 0 || *c.DistalForwardMaxDeg > 90) {
		return fmt.Errorf("distal_forward_max_deg must be between 0 and 90, got %f", *c.DistalForwardMaxDeg)
	}

	if c.FixedStep != nil && *c.FixedStep != "" {
		d, err := time.ParseDuration(*c.FixedStep)
		if err != nil {
			return fmt.Errorf("invalid fixed_step '%s': %w", *c.FixedStep, err)
		}
		if d <= 0 {
			return fmt.Errorf("fixed_step must be positive, got %s", d)
		}
	}

	for name, v := range map[string]*int{
		"max_steps_per_tick":  c.MaxStepsPerTick,
		"recovery_hold_steps": c.RecoveryHoldSteps,
		"reset_hold_steps":    c.ResetHoldSteps,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}

	return nil
}

// GetHoverThreshold returns the hover_threshold value or the default.
func (c *TuningConfig) GetHoverThreshold() float64 {
	if c.HoverThreshold == nil {
		return defaultHoverThreshold
	}
	return *c.HoverThreshold
}

// GetContactThreshold returns the contact_threshold value or the default.
func (c *TuningConfig) GetContactThreshold() float64 {
	if c.ContactThreshold == nil {
		return defaultContactThreshold
	}
	return *c.ContactThreshold
}

// GetSafetyThreshold returns the safety_threshold value or the default.
func (c *TuningConfig) GetSafetyThreshold() float64 {
	if c.SafetyThreshold == nil {
		return defaultSafetyThreshold
	}
	return *c.SafetyThreshold
}

// GetMinBoneExtent returns the min_bone_extent value or the default.
func (c *TuningConfig) GetMinBoneExtent() float64 {
	if c.MinBoneExtent == nil {
		return defaultMinBoneExtent
	}
	return *c.MinBoneExtent
}

// GetDistalForwardMaxDeg returns the distal_forward_max_deg value or the default.
func (c *TuningConfig) GetDistalForwardMaxDeg() float64 {
	if c.DistalForwardMaxDeg == nil {
		return defaultDistalForwardMaxDeg
	}
	return *c.DistalForwardMaxDeg
}

// GetThumbIndexTiltDeg returns the thumb_index_tilt_deg value or the default.
func (c *TuningConfig) GetThumbIndexTiltDeg() float64 {
	if c.ThumbIndexTiltDeg == nil {
		return defaultThumbIndexTiltDeg
	}
	return *c.ThumbIndexTiltDeg
}

// GetThumbGrabThreshold returns the thumb_grab_threshold value or the default.
func (c *TuningConfig) GetThumbGrabThreshold() float64 {
	if c.ThumbGrabThreshold == nil {
		return defaultThumbGrabThreshold
	}
	return *c.ThumbGrabThreshold
}

// GetFingerGrabThreshold returns the finger_grab_threshold value or the default.
func (c *TuningConfig) GetFingerGrabThreshold() float64 {
	if c.FingerGrabThreshold == nil {
		return defaultFingerGrabThreshold
	}
	return *c.FingerGrabThreshold
}

// GetFixedStep parses and returns the FixedStep as a time.Duration.
func (c *TuningConfig) GetFixedStep() time.Duration {
	if c.FixedStep == nil || *c.FixedStep == "" {
		return defaultFixedStep
	}
	d, err := time.ParseDuration(*c.FixedStep)
	if err != nil || d <= 0 {
		return defaultFixedStep // default on parse error
	}
	return d
}

// GetMaxStepsPerTick returns the max_steps_per_tick value or the default.
func (c *TuningConfig) GetMaxStepsPerTick() int {
	if c.MaxStepsPerTick == nil {
		return defaultMaxStepsPerTick
	}
	return *c.MaxStepsPerTick
}

// GetDivergenceThreshold returns the divergence_threshold value or the default.
func (c *TuningConfig) GetDivergenceThreshold() float64 {
	if c.DivergenceThreshold == nil {
		return defaultDivergenceThreshold
	}
	return *c.DivergenceThreshold
}

// GetRecoveryHoldSteps returns the recovery_hold_steps value or the default.
func (c *TuningConfig) GetRecoveryHoldSteps() int {
	if c.RecoveryHoldSteps == nil {
		return defaultRecoveryHoldSteps
	}
	return *c.RecoveryHoldSteps
}

// GetResetHoldSteps returns the reset_hold_steps value or the default.
func (c *TuningConfig) GetResetHoldSteps() int {
	if c.ResetHoldSteps == nil {
		return defaultResetHoldSteps
	}
	return *c.ResetHoldSteps
}

// GetInterpolatePoses returns the interpolate_poses value or the default.
func (c *TuningConfig) GetInterpolatePoses() bool {
	if c.InterpolatePoses == nil {
		return false
	}
	return *c.InterpolatePoses
}
