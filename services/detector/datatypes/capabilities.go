// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the capability records produced by the
// detector and consumed by the cascade decision engine.
//
// All records are immutable once produced: a strategy or the orchestrator
// builds a value and never mutates it afterwards. Re-detection always
// produces a new instance, so cached records can be shared by pointer
// across concurrent requests.
//
// Every record carries provenance: a Source for identity/format records
// and an Estimated flag for classifier outputs. "Unknown provenance" is
// not representable - a record without a source cannot leave the
// orchestrator.
package datatypes

import "time"

// =============================================================================
// Provenance
// =============================================================================

// Source identifies which detection signal produced a record.
type Source string

const (
	// SourceClientHints means the record came from structured
	// Sec-CH-* request headers.
	SourceClientHints Source = "client-hints"

	// SourceAcceptHeader means the record came from explicit image
	// MIME types in the Accept header. This is the most trustworthy
	// format signal because it is a direct capability declaration.
	SourceAcceptHeader Source = "accept-header"

	// SourceUserAgent means the record was inferred from the
	// User-Agent string.
	SourceUserAgent Source = "user-agent"

	// SourceStaticData means the record came from the last-resort
	// platform lookup table.
	SourceStaticData Source = "static-data"

	// SourceUnknown marks the conservative defaults record. The
	// provenance is known (it is the defaults strategy); the browser
	// identity is not.
	SourceUnknown Source = "unknown"
)

// =============================================================================
// Browser Identity
// =============================================================================

// BrowserIdentity describes the detected browser.
//
// Version is the numeric major.minor version (13.1, 90). Zero means the
// version could not be established.
type BrowserIdentity struct {
	Name     string  `json:"name"`
	Version  float64 `json:"version"`
	Mobile   bool    `json:"mobile"`
	Platform string  `json:"platform,omitempty"`
	Source   Source  `json:"source"`
}

// =============================================================================
// Format Support
// =============================================================================

// FormatSupport records which image formats the client can decode.
//
// Derived either directly from an Accept header, or from a browser
// identity cross-referenced against the knowledge base. Fields default to
// false: a format is never reported supported without a positive signal.
type FormatSupport struct {
	AVIF         bool   `json:"avif"`
	WebP         bool   `json:"webp"`
	WebPLossless bool   `json:"webpLossless,omitempty"`
	WebPAlpha    bool   `json:"webpAlpha,omitempty"`
	JPEG2000     bool   `json:"jpeg2000,omitempty"`
	JPEGXL       bool   `json:"jpegXl,omitempty"`
	Source       Source `json:"source"`
}

// Supports reports whether the named format is supported.
//
// Unknown format names return false; jpeg and png are universally
// decodable and always return true.
func (f FormatSupport) Supports(format string) bool {
	switch format {
	case FormatAVIF:
		return f.AVIF
	case FormatWebP:
		return f.WebP
	case FormatJPEG2000:
		return f.JPEG2000
	case FormatJPEGXL:
		return f.JPEGXL
	case FormatJPEG, FormatPNG, FormatGIF:
		return true
	default:
		return false
	}
}

// Canonical format names used across the decision engine.
const (
	FormatAVIF     = "avif"
	FormatWebP     = "webp"
	FormatJPEG     = "jpeg"
	FormatPNG      = "png"
	FormatGIF      = "gif"
	FormatJPEG2000 = "jpeg2000"
	FormatJPEGXL   = "jxl"
)

// FormatAuto is the caller-facing sentinel for "no format preference".
// A caller passing "auto" runs the format cascade instead of winning
// the user-preference tier.
const FormatAuto = "auto"

// =============================================================================
// Network Quality
// =============================================================================

// NetworkTier is the coarse network-speed classification.
type NetworkTier string

const (
	NetworkFast    NetworkTier = "fast"
	NetworkMedium  NetworkTier = "medium"
	NetworkSlow    NetworkTier = "slow"
	NetworkUnknown NetworkTier = "unknown"
)

// NetworkQuality is the classifier's view of the client's connection.
//
// RTTMillis, DownlinkMbps and EffectiveType echo the raw hints that fed
// the classification; they are zero-valued when the hint was absent.
// Estimated is true when the tier was inferred from numeric measurements
// or defaulted, false when the client declared it (Save-Data or ECT).
type NetworkQuality struct {
	Tier          NetworkTier `json:"tier"`
	RTTMillis     int         `json:"rtt,omitempty"`
	DownlinkMbps  float64     `json:"downlink,omitempty"`
	EffectiveType string      `json:"effectiveType,omitempty"`
	SaveData      bool        `json:"saveData"`
	Estimated     bool        `json:"estimated"`

	// Description is a human-readable account of how the tier was
	// resolved, attached for diagnostics.
	Description string `json:"description,omitempty"`
}

// =============================================================================
// Device Capability
// =============================================================================

// DeviceClass is the coarse device-capability classification.
type DeviceClass string

const (
	DeviceLowEnd   DeviceClass = "low-end"
	DeviceMidRange DeviceClass = "mid-range"
	DeviceHighEnd  DeviceClass = "high-end"
	DeviceUnknown  DeviceClass = "unknown"
)

// DeviceCapability is the classifier's view of the client's hardware.
//
// Score is always populated (neutral baseline 50 when no signal exists).
// Estimated is true unless at least one direct device signal (device
// memory, hardware concurrency, mobile flag) contributed.
type DeviceCapability struct {
	Class          DeviceClass `json:"class"`
	MemoryGB       float64     `json:"memoryGB,omitempty"`
	ProcessorCores int         `json:"processorCores,omitempty"`
	Score          int         `json:"score"`
	Estimated      bool        `json:"estimated"`
}

// =============================================================================
// Performance Budget
// =============================================================================

// QualityRange bounds the encoder quality for a device class.
type QualityRange struct {
	Min    int `json:"min"`
	Max    int `json:"max"`
	Target int `json:"target"`
}

// Clamp returns q limited to [Min, Max].
func (r QualityRange) Clamp(q int) int {
	if q < r.Min {
		return r.Min
	}
	if q > r.Max {
		return r.Max
	}
	return q
}

// PerformanceBudget combines classifier outputs into concrete transform
// limits. It is derived on demand from a ClientCapabilities record and a
// configuration; it is never persisted independently.
type PerformanceBudget struct {
	Quality   QualityRange `json:"quality"`
	MaxWidth  int          `json:"maxWidth"`
	MaxHeight int          `json:"maxHeight"`

	// PreferredFormats is ordered best-first, already filtered to
	// formats the browser actually supports. Filtering only removes,
	// never inserts.
	PreferredFormats []string `json:"preferredFormats"`

	DPR float64 `json:"dpr"`
}

// =============================================================================
// Client Capabilities
// =============================================================================

// ClientCapabilities is the aggregate unit of work: everything the
// detector learned about one request.
//
// A ClientCapabilities is either fully populated (defaults included) or
// absent; the orchestrator never emits partial records. Instances served
// from the cache are shared by pointer and must not be mutated.
type ClientCapabilities struct {
	Browser BrowserIdentity  `json:"browser"`
	Formats FormatSupport    `json:"formats"`
	Network NetworkQuality   `json:"network"`
	Device  DeviceCapability `json:"device"`

	// FormatSignals preserves every contributing source's format record,
	// in strategy order, so the format cascade can skip a tier that
	// confirmed no modern format and fall through to a weaker one.
	// Formats above remains the merged winner.
	FormatSignals []FormatSupport `json:"formatSignals,omitempty"`

	// RawClientHints preserves the recognized hint header values
	// (canonical lowercase header names) so derived computations can
	// re-read them without the original request.
	RawClientHints map[string]string `json:"rawClientHints,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}
