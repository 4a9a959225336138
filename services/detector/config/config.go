// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config defines the detector's fully-defaulted configuration
// tree.
//
// The tree is resolved once (file over defaults), validated, and treated
// as immutable thereafter; hot reload swaps in a whole new tree rather
// than mutating the active one.
//
// Two priority namespaces exist and must not be conflated:
//
//   - Detection.StrategyPriorities governs the orchestrator's merge order
//     across strategies (all field groups).
//   - Cascade.Format.SourcePriorities / Cascade.Quality.TierPriorities
//     govern the decision cascades.
//
// Accept-header carries a different rank in each namespace on purpose:
// it is a mid-priority strategy but the top-priority format source.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// MaxConfigFileSize is the maximum allowed config file size (1MB).
const MaxConfigFileSize = 1024 * 1024

// Strategy names used as keys in Detection.StrategyPriorities.
const (
	StrategyClientHints  = "client-hints"
	StrategyAcceptHeader = "accept-header"
	StrategyUserAgent    = "user-agent"
	StrategyStaticData   = "static-data"
	StrategyDefaults     = "defaults"
)

// =============================================================================
// Configuration Tree
// =============================================================================

// DetectorConfig is the root configuration for the detection and
// decision engine.
type DetectorConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Detection  DetectionConfig  `yaml:"detection"`
	Cache      CacheConfig      `yaml:"cache"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Budget     BudgetConfig     `yaml:"budget"`
	Cascade    CascadeConfig    `yaml:"cascade"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Port is the HTTP server port.
	Port int `yaml:"port" validate:"gte=0,lte=65535"`

	// GinMode sets the Gin framework mode: debug, release, test.
	GinMode string `yaml:"ginMode" validate:"omitempty,oneof=debug release test"`

	// OTelEndpoint is the OpenTelemetry collector endpoint. Empty
	// disables tracing export.
	OTelEndpoint string `yaml:"otelEndpoint"`

	// EnableMetrics exposes Prometheus metrics on /metrics.
	EnableMetrics bool `yaml:"enableMetrics"`
}

// DetectionConfig configures the orchestrator and its strategies.
type DetectionConfig struct {
	// StrategyPriorities is the orchestrator merge order, higher first.
	// The defaults strategy is pinned at 0 and always available.
	StrategyPriorities map[string]int `yaml:"strategyPriorities" validate:"required"`

	// FormatSourcePriorities is the merge order for the format support
	// field group specifically. Accept-header outranks everything here
	// even though it is a mid-priority strategy, because an Accept
	// header is a direct capability declaration.
	FormatSourcePriorities map[string]int `yaml:"formatSourcePriorities" validate:"required"`

	// MaxUserAgentLength bounds User-Agent parsing cost. Longer values
	// are truncated before pattern matching.
	MaxUserAgentLength int `yaml:"maxUserAgentLength" validate:"gt=0"`
}

// CacheConfig configures the detection result cache.
type CacheConfig struct {
	// MaxSize is the maximum number of live entries.
	MaxSize int `yaml:"maxSize" validate:"gt=0"`

	// PruneAmount is how many LRU entries one eviction pass removes.
	// Batched to avoid per-insert eviction churn.
	PruneAmount int `yaml:"pruneAmount" validate:"gt=0"`

	// TTLMillis treats entries older than this as misses. 0 disables.
	TTLMillis int `yaml:"ttlMillis" validate:"gte=0"`

	// Hash selects the signature hash algorithm.
	Hash string `yaml:"hash" validate:"oneof=simple fnv1a xxhash sha256"`
}

// ClassifierConfig holds the device-class score thresholds.
type ClassifierConfig struct {
	// LowEndThreshold: score strictly below is low-end.
	LowEndThreshold int `yaml:"lowEndThreshold" validate:"gte=0,lte=100"`

	// HighEndThreshold: score strictly above is high-end.
	HighEndThreshold int `yaml:"highEndThreshold" validate:"gte=0,lte=100"`
}

// QualityRangeConfig bounds encoder quality for one device class.
type QualityRangeConfig struct {
	Min    int `yaml:"min" validate:"gte=1,lte=100"`
	Max    int `yaml:"max" validate:"gte=1,lte=100"`
	Target int `yaml:"target" validate:"gte=1,lte=100"`
}

// ClassBudget is the performance budget table for one device class.
type ClassBudget struct {
	Quality          QualityRangeConfig `yaml:"quality"`
	MaxWidth         int                `yaml:"maxWidth" validate:"gt=0"`
	MaxHeight        int                `yaml:"maxHeight" validate:"gt=0"`
	PreferredFormats []string           `yaml:"preferredFormats" validate:"min=1"`
}

// BudgetConfig configures the performance budget calculator.
type BudgetConfig struct {
	// Classes keys are device classes: low-end, mid-range, high-end.
	// Unknown devices use the mid-range table.
	Classes map[string]ClassBudget `yaml:"classes" validate:"required"`

	// SlowNetworkFactor / FastNetworkFactor multiply the quality target
	// by network tier; medium and unknown use 1.0.
	SlowNetworkFactor float64 `yaml:"slowNetworkFactor" validate:"gt=0,lte=1"`
	FastNetworkFactor float64 `yaml:"fastNetworkFactor" validate:"gte=1"`

	// Save-Data forces dimensions to this smallest tier.
	SaveDataMaxWidth  int `yaml:"saveDataMaxWidth" validate:"gt=0"`
	SaveDataMaxHeight int `yaml:"saveDataMaxHeight" validate:"gt=0"`

	// DPRAdjustmentEnabled adds DPRAdjustment quality points per whole
	// DPR point above 1, applied after cascade resolution.
	DPRAdjustmentEnabled bool `yaml:"dprAdjustmentEnabled"`
	DPRAdjustment        int  `yaml:"dprAdjustment" validate:"gte=0"`
}

// Class returns the budget table for a device class, falling back to
// mid-range for unknown or unconfigured classes.
func (b BudgetConfig) Class(class string) ClassBudget {
	if cb, ok := b.Classes[class]; ok {
		return cb
	}
	return b.Classes["mid-range"]
}

// FormatCascadeConfig configures the format decision cascade.
type FormatCascadeConfig struct {
	// AcceptHeaderPriority gives Accept-header-declared support the top
	// cascade tier. When disabled, accept-header ranks by its strategy
	// priority instead.
	AcceptHeaderPriority bool `yaml:"acceptHeaderPriority"`

	// SourcePriorities maps cascade tier names to priorities, reported
	// as decision provenance.
	SourcePriorities map[string]int `yaml:"sourcePriorities" validate:"required"`

	// FallbackFormat is the tier-of-last-resort format. Empty means
	// "keep the caller's original format".
	FallbackFormat string `yaml:"fallbackFormat"`
}

// QualityCascadeConfig configures the quality decision cascade.
type QualityCascadeConfig struct {
	// TierPriorities maps cascade tier names to priorities, reported
	// as decision provenance.
	TierPriorities map[string]int `yaml:"tierPriorities" validate:"required"`

	// DefaultQualities is the per-format default used when no stronger
	// tier fires.
	DefaultQualities map[string]int `yaml:"defaultQualities" validate:"required"`
}

// CascadeConfig groups the two decision cascades.
type CascadeConfig struct {
	Format  FormatCascadeConfig  `yaml:"format"`
	Quality QualityCascadeConfig `yaml:"quality"`
}

// =============================================================================
// Defaults
// =============================================================================

// Default returns the fully-populated default configuration. All loading
// paths start from this tree, so every field has a documented default.
func Default() *DetectorConfig {
	return &DetectorConfig{
		Server: ServerConfig{
			Port:          12280,
			GinMode:       "release",
			EnableMetrics: true,
		},
		Detection: DetectionConfig{
			StrategyPriorities: map[string]int{
				StrategyClientHints:  100,
				StrategyAcceptHeader: 80,
				StrategyUserAgent:    60,
				StrategyStaticData:   20,
				StrategyDefaults:     0,
			},
			FormatSourcePriorities: map[string]int{
				StrategyAcceptHeader: 100,
				StrategyClientHints:  80,
				StrategyUserAgent:    60,
				StrategyStaticData:   20,
				StrategyDefaults:     0,
			},
			MaxUserAgentLength: 512,
		},
		Cache: CacheConfig{
			MaxSize:     1000,
			PruneAmount: 100,
			TTLMillis:   5 * 60 * 1000,
			Hash:        "fnv1a",
		},
		Classifier: ClassifierConfig{
			LowEndThreshold:  40,
			HighEndThreshold: 70,
		},
		Budget: BudgetConfig{
			Classes: map[string]ClassBudget{
				"low-end": {
					Quality:          QualityRangeConfig{Min: 50, Max: 75, Target: 65},
					MaxWidth:         1280,
					MaxHeight:        1280,
					PreferredFormats: []string{"webp", "jpeg"},
				},
				"mid-range": {
					Quality:          QualityRangeConfig{Min: 60, Max: 90, Target: 75},
					MaxWidth:         2048,
					MaxHeight:        2048,
					PreferredFormats: []string{"avif", "webp", "jpeg"},
				},
				"high-end": {
					Quality:          QualityRangeConfig{Min: 65, Max: 95, Target: 80},
					MaxWidth:         4096,
					MaxHeight:        4096,
					PreferredFormats: []string{"avif", "webp", "jpeg"},
				},
			},
			SlowNetworkFactor:    0.85,
			FastNetworkFactor:    1.10,
			SaveDataMaxWidth:     1280,
			SaveDataMaxHeight:    1280,
			DPRAdjustmentEnabled: true,
			DPRAdjustment:        5,
		},
		Cascade: CascadeConfig{
			Format: FormatCascadeConfig{
				AcceptHeaderPriority: true,
				SourcePriorities: map[string]int{
					"user-preference": 1000,
					"accept-header":   100,
					"client-hints":    80,
					"user-agent":      60,
					"static-data":     20,
					"fallback":        0,
				},
				FallbackFormat: "jpeg",
			},
			Quality: QualityCascadeConfig{
				TierPriorities: map[string]int{
					"user-preference": 1000,
					"save-data":       90,
					"network-budget":  70,
					"device-budget":   50,
					"format-default":  0,
				},
				DefaultQualities: map[string]int{
					"avif":     70,
					"webp":     78,
					"jpeg":     80,
					"png":      90,
					"jxl":      70,
					"jpeg2000": 80,
					"gif":      80,
				},
			},
		},
	}
}

// =============================================================================
// Loading & Validation
// =============================================================================

// Load reads a YAML config file over the defaults and validates the
// result. A missing file is an error; callers wanting pure defaults use
// Default() directly.
func Load(path string) (*DetectorConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), MaxConfigFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks tag constraints plus the cross-field invariants the
// tags cannot express.
func (c *DetectorConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Classifier.LowEndThreshold >= c.Classifier.HighEndThreshold {
		return fmt.Errorf("classifier thresholds inverted: lowEnd %d >= highEnd %d",
			c.Classifier.LowEndThreshold, c.Classifier.HighEndThreshold)
	}

	for _, class := range []string{"low-end", "mid-range", "high-end"} {
		cb, ok := c.Budget.Classes[class]
		if !ok {
			return fmt.Errorf("budget class %q missing", class)
		}
		q := cb.Quality
		if q.Min > q.Max || q.Target < q.Min || q.Target > q.Max {
			return fmt.Errorf("budget class %q quality range invalid: min %d target %d max %d",
				class, q.Min, q.Target, q.Max)
		}
	}

	for name, p := range c.Detection.StrategyPriorities {
		if p < 0 {
			return fmt.Errorf("strategy priority %q is negative", name)
		}
	}
	if c.Detection.StrategyPriorities[StrategyDefaults] != 0 {
		return fmt.Errorf("defaults strategy priority must stay 0 (it is the floor)")
	}

	return nil
}
