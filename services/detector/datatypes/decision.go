// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package datatypes

// Cascade tier names used as decision provenance. Every decision names
// the tier that produced it so callers can render debug output without
// re-deriving the logic.
const (
	TierUserPreference = "user-preference"
	TierAcceptHeader   = "accept-header"
	TierClientHints    = "client-hints"
	TierUserAgent      = "user-agent"
	TierStaticData     = "static-data"
	TierSaveData       = "save-data"
	TierNetworkBudget  = "network-budget"
	TierDeviceBudget   = "device-budget"
	TierFormatDefault  = "format-default"
	TierFallback       = "fallback"
)

// Provenance records which cascade tier produced a decision and the
// priority that tier carried in configuration at decision time.
type Provenance struct {
	DecisionSource     string `json:"decisionSource"`
	ConfiguredPriority int    `json:"configuredPriority"`
}

// FormatDecision is the resolved output format with its provenance.
type FormatDecision struct {
	Format     string     `json:"format"`
	Provenance Provenance `json:"provenance"`
}

// QualityDecision is the resolved encoder quality with its provenance.
type QualityDecision struct {
	Quality    int        `json:"quality"`
	Provenance Provenance `json:"provenance"`
}

// DetectionMetrics is the observability block attached to optimized
// options under the __detectionMetrics key. It is read by the debug
// rendering layer and never interpreted by the engine itself.
type DetectionMetrics struct {
	RequestID      string      `json:"requestId,omitempty"`
	BrowserName    string      `json:"browserName"`
	BrowserSource  Source      `json:"browserSource"`
	FormatsSource  Source      `json:"formatsSource"`
	NetworkTier    NetworkTier `json:"networkTier"`
	DeviceClass    DeviceClass `json:"deviceClass"`
	DeviceScore    int         `json:"deviceScore"`
	CacheHit       bool        `json:"cacheHit"`
	DurationMicros int64       `json:"durationMicros"`

	Format  FormatDecision  `json:"format"`
	Quality QualityDecision `json:"quality"`
}

// MetricsKey is the reserved key under which DetectionMetrics is merged
// into optimized option maps.
const MetricsKey = "__detectionMetrics"
