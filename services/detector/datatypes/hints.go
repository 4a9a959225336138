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

import (
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// =============================================================================
// Recognized Headers
// =============================================================================

// Recognized client-hint headers, canonical lowercase. Legacy unprefixed
// variants (DPR, Viewport-Width, ...) are accepted alongside the Sec-CH-*
// forms; the prefixed form wins when both are present.
const (
	HeaderAccept            = "accept"
	HeaderUserAgent         = "user-agent"
	HeaderSaveData          = "save-data"
	HeaderUA                = "sec-ch-ua"
	HeaderUAMobile          = "sec-ch-ua-mobile"
	HeaderUAPlatform        = "sec-ch-ua-platform"
	HeaderUAPlatformVersion = "sec-ch-ua-platform-version"
	HeaderUAArch            = "sec-ch-ua-arch"
	HeaderUABitness         = "sec-ch-ua-bitness"
	HeaderUAFullVersion     = "sec-ch-ua-full-version"
	HeaderDPR               = "sec-ch-dpr"
	HeaderDPRLegacy         = "dpr"
	HeaderViewportWidth     = "sec-ch-viewport-width"
	HeaderViewportLegacy    = "viewport-width"
	HeaderWidth             = "sec-ch-width"
	HeaderWidthLegacy       = "width"
	HeaderDeviceMemory      = "sec-ch-device-memory"
	HeaderDeviceMemLegacy   = "device-memory"
	// Hardware concurrency has no standardized request header; the
	// upstream edge worker forwards it under this Sec-CH name.
	HeaderHardwareConcurrency = "sec-ch-hardware-concurrency"
	HeaderRTT                 = "rtt"
	HeaderDownlink            = "downlink"
	HeaderECT                 = "ect"
	HeaderPrefersColorScheme  = "sec-ch-prefers-color-scheme"
	HeaderPrefersReducedMotion = "sec-ch-prefers-reduced-motion"
)

// SignatureHeaders is the ordered, method-agnostic set of headers that
// influence detection. The request signature (and therefore the cache
// key) is built from exactly these, in this order.
var SignatureHeaders = []string{
	HeaderAccept,
	HeaderUserAgent,
	HeaderSaveData,
	HeaderUA,
	HeaderUAMobile,
	HeaderUAPlatform,
	HeaderUAPlatformVersion,
	HeaderUAArch,
	HeaderUABitness,
	HeaderUAFullVersion,
	HeaderDPR,
	HeaderDPRLegacy,
	HeaderViewportWidth,
	HeaderViewportLegacy,
	HeaderWidth,
	HeaderWidthLegacy,
	HeaderDeviceMemory,
	HeaderDeviceMemLegacy,
	HeaderHardwareConcurrency,
	HeaderRTT,
	HeaderDownlink,
	HeaderECT,
	HeaderPrefersColorScheme,
	HeaderPrefersReducedMotion,
}

// hintHeaders are the headers whose presence makes the client-hints
// strategy available (Accept and User-Agent belong to other strategies).
var hintHeaders = SignatureHeaders[3:]

// Signature builds the canonical request signature from h.
//
// Only recognized headers contribute, in fixed order, so two requests
// that differ in irrelevant headers share a signature.
func Signature(h http.Header) string {
	var b strings.Builder
	for _, name := range SignatureHeaders {
		v := h.Get(name)
		if v == "" {
			continue
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(v)
		b.WriteByte('\n')
	}
	return b.String()
}

// =============================================================================
// Parsed Client Hints
// =============================================================================

// Brand is one entry of a structured Sec-CH-UA header.
type Brand struct {
	Name    string
	Version float64
}

// ClientHints is the parsed view of the recognized hint headers.
//
// Numeric fields come with a Has* flag because zero is a legal value for
// several hints (RTT in particular). Malformed values are treated as
// absent (signal-malformed collapses to signal-absent, logged at debug).
type ClientHints struct {
	Brands          []Brand
	Mobile          bool
	HasMobile       bool
	Platform        string
	PlatformVersion string
	Arch            string
	Bitness         string
	FullVersion     float64
	HasFullVersion  bool

	DPR              float64
	HasDPR           bool
	ViewportWidth    int
	HasViewportWidth bool
	Width            int
	HasWidth         bool

	DeviceMemoryGB         float64
	HasDeviceMemory        bool
	HardwareConcurrency    int
	HasHardwareConcurrency bool

	RTTMillis    int
	HasRTT       bool
	DownlinkMbps float64
	HasDownlink  bool
	EffectiveType string

	SaveData bool

	PrefersColorScheme   string
	PrefersReducedMotion bool

	// Raw preserves the recognized header values keyed by canonical
	// lowercase name, exactly as carried on ClientCapabilities.
	Raw map[string]string
}

// Any reports whether at least one recognized hint header was present.
func (c ClientHints) Any() bool {
	for _, name := range hintHeaders {
		if _, ok := c.Raw[name]; ok {
			return true
		}
	}
	return false
}

// HasDeviceSignal reports whether a direct device signal contributed
// (memory, cores, or the structured mobile flag).
func (c ClientHints) HasDeviceSignal() bool {
	return c.HasDeviceMemory || c.HasHardwareConcurrency || c.HasMobile
}

// ParseClientHints extracts and parses the recognized hint headers.
func ParseClientHints(h http.Header) ClientHints {
	raw := make(map[string]string)
	for _, name := range SignatureHeaders {
		if v := h.Get(name); v != "" {
			raw[name] = v
		}
	}
	return HintsFromRaw(raw)
}

// HintsFromRaw parses a raw hint map as preserved on a cached
// ClientCapabilities record. Parsing is deterministic, so hints
// reconstructed from the cache match the original request's.
func HintsFromRaw(raw map[string]string) ClientHints {
	ch := ClientHints{Raw: raw}
	if raw == nil {
		ch.Raw = map[string]string{}
		return ch
	}

	if v, ok := raw[HeaderUA]; ok {
		ch.Brands = parseBrandList(v)
	}
	if v, ok := raw[HeaderUAMobile]; ok {
		ch.Mobile = parseSHBool(v)
		ch.HasMobile = true
	}
	ch.Platform = unquoteSH(raw[HeaderUAPlatform])
	ch.PlatformVersion = unquoteSH(raw[HeaderUAPlatformVersion])
	ch.Arch = unquoteSH(raw[HeaderUAArch])
	ch.Bitness = unquoteSH(raw[HeaderUABitness])
	if v, ok := raw[HeaderUAFullVersion]; ok {
		if f, ok := parseVersion(unquoteSH(v)); ok {
			ch.FullVersion = f
			ch.HasFullVersion = true
		}
	}

	ch.DPR, ch.HasDPR = parsePositiveFloat(firstRaw(raw, HeaderDPR, HeaderDPRLegacy), HeaderDPRLegacy)
	ch.ViewportWidth, ch.HasViewportWidth = parsePositiveInt(firstRaw(raw, HeaderViewportWidth, HeaderViewportLegacy), HeaderViewportLegacy)
	ch.Width, ch.HasWidth = parsePositiveInt(firstRaw(raw, HeaderWidth, HeaderWidthLegacy), HeaderWidthLegacy)
	ch.DeviceMemoryGB, ch.HasDeviceMemory = parsePositiveFloat(firstRaw(raw, HeaderDeviceMemory, HeaderDeviceMemLegacy), HeaderDeviceMemLegacy)
	ch.HardwareConcurrency, ch.HasHardwareConcurrency = parsePositiveInt(raw[HeaderHardwareConcurrency], HeaderHardwareConcurrency)

	if v, ok := raw[HeaderRTT]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			ch.RTTMillis = n
			ch.HasRTT = true
		} else {
			slog.Debug("malformed hint value, treating as absent", "header", HeaderRTT, "value", v)
		}
	}
	ch.DownlinkMbps, ch.HasDownlink = parseNonNegativeFloat(raw[HeaderDownlink], HeaderDownlink)

	if v, ok := raw[HeaderECT]; ok {
		ch.EffectiveType = strings.ToLower(strings.TrimSpace(v))
	}
	if v, ok := raw[HeaderSaveData]; ok {
		ch.SaveData = strings.EqualFold(strings.TrimSpace(v), "on")
	}
	ch.PrefersColorScheme = unquoteSH(raw[HeaderPrefersColorScheme])
	if v, ok := raw[HeaderPrefersReducedMotion]; ok {
		ch.PrefersReducedMotion = strings.Contains(strings.ToLower(v), "reduce")
	}

	return ch
}

// =============================================================================
// Structured-Header Parsing Helpers
// =============================================================================

// brandPattern matches one `"Brand";v="123"` element of a Sec-CH-UA list.
var brandPattern = regexp.MustCompile(`"([^"]*)";\s*v="([^"]*)"`)

// parseBrandList parses a Sec-CH-UA brand list. GREASE brands
// ("Not A Brand" variants) are dropped.
func parseBrandList(v string) []Brand {
	matches := brandPattern.FindAllStringSubmatch(v, -1)
	brands := make([]Brand, 0, len(matches))
	for _, m := range matches {
		name := strings.TrimSpace(m[1])
		if name == "" || strings.Contains(strings.ToLower(name), "not") && strings.Contains(strings.ToLower(name), "brand") {
			continue
		}
		version, ok := parseVersion(m[2])
		if !ok {
			continue
		}
		brands = append(brands, Brand{Name: name, Version: version})
	}
	return brands
}

// parseVersion parses a dotted version string into major.minor ("90.0.4430"
// -> 90.0, "13.1" -> 13.1). Returns false for unparseable input.
func parseVersion(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.SplitN(s, ".", 3)
	numeric := parts[0]
	if len(parts) > 1 && parts[1] != "" {
		numeric = parts[0] + "." + parts[1]
	}
	f, err := strconv.ParseFloat(numeric, 64)
	if err != nil || f < 0 {
		return 0, false
	}
	return f, true
}

// parseSHBool parses a structured-header boolean ("?1"/"?0").
func parseSHBool(v string) bool {
	return strings.TrimSpace(v) == "?1"
}

// unquoteSH strips the quotes of a structured-header string value.
func unquoteSH(v string) string {
	return strings.Trim(strings.TrimSpace(v), `"`)
}

func firstRaw(raw map[string]string, names ...string) string {
	for _, n := range names {
		if v, ok := raw[n]; ok {
			return v
		}
	}
	return ""
}

func parsePositiveFloat(v, header string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f <= 0 {
		slog.Debug("malformed hint value, treating as absent", "header", header, "value", v)
		return 0, false
	}
	return f, true
}

func parseNonNegativeFloat(v, header string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil || f < 0 {
		slog.Debug("malformed hint value, treating as absent", "header", header, "value", v)
		return 0, false
	}
	return f, true
}

func parsePositiveInt(v, header string) (int, bool) {
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n <= 0 {
		slog.Debug("malformed hint value, treating as absent", "header", header, "value", v)
		return 0, false
	}
	return n, true
}
