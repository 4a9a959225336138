// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package knowledge holds the versioned browser format-support tables.
//
// The tables are minimum-version based: a browser supports a format from
// the listed version onward, which makes support non-decreasing with
// version by construction. The default tables ship embedded in the
// binary; an override file can be loaded for out-of-band updates.
//
// Thread Safety:
//
//	A Base is immutable after construction and safe for concurrent use.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
	"gopkg.in/yaml.v3"
)

// MaxYAMLFileSize is the maximum allowed knowledge-base file size (1MB).
// Prevents memory issues from oversized override files.
const MaxYAMLFileSize = 1024 * 1024

//go:embed formats.yaml
var defaultFormatsYAML []byte

// =============================================================================
// YAML Schema
// =============================================================================

// baseYAML is the root structure for YAML deserialization. Concrete types
// only; nested maps are validated during parsing.
type baseYAML struct {
	Browsers  map[string]browserYAML  `yaml:"browsers"`
	Platforms map[string]platformYAML `yaml:"platforms"`
}

type browserYAML struct {
	Aliases []string           `yaml:"aliases,omitempty"`
	Formats map[string]float64 `yaml:"formats"`
}

type platformYAML struct {
	Browser string  `yaml:"browser"`
	Version float64 `yaml:"version"`
	Mobile  bool    `yaml:"mobile"`
}

// =============================================================================
// Base
// =============================================================================

// supportEntry is the minimum supporting version per format for one
// browser family. Zero means never supported.
type supportEntry struct {
	webp         float64
	webpLossless float64
	webpAlpha    float64
	avif         float64
	jpeg2000     float64
	jpegXL       float64
}

// PlatformDefault is the static-data assumption for a platform with no
// established browser identity.
type PlatformDefault struct {
	Browser string
	Version float64
	Mobile  bool
}

// Base is the loaded format-support knowledge base.
type Base struct {
	// canonical family name -> support table
	browsers map[string]supportEntry
	// lowercase alias -> canonical family name
	aliases map[string]string
	// lowercase platform -> static default
	platforms map[string]PlatformDefault
}

// Load builds a Base from the embedded default tables.
func Load() (*Base, error) {
	return parse(defaultFormatsYAML)
}

// LoadFile builds a Base from an override file, enforcing the size guard.
func LoadFile(path string) (*Base, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat knowledge base: %w", err)
	}
	if info.Size() > MaxYAMLFileSize {
		return nil, fmt.Errorf("knowledge base file too large: %d bytes (max %d)", info.Size(), MaxYAMLFileSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base: %w", err)
	}
	return parse(data)
}

func parse(data []byte) (*Base, error) {
	var raw baseYAML
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse knowledge base yaml: %w", err)
	}
	if len(raw.Browsers) == 0 {
		return nil, fmt.Errorf("knowledge base defines no browsers")
	}

	b := &Base{
		browsers:  make(map[string]supportEntry, len(raw.Browsers)),
		aliases:   make(map[string]string),
		platforms: make(map[string]PlatformDefault, len(raw.Platforms)),
	}

	for name, entry := range raw.Browsers {
		canonical := strings.ToLower(strings.TrimSpace(name))
		if canonical == "" {
			return nil, fmt.Errorf("knowledge base contains an unnamed browser entry")
		}
		var s supportEntry
		for format, minVersion := range entry.Formats {
			if minVersion <= 0 {
				return nil, fmt.Errorf("browser %q: format %q has non-positive minimum version %v", name, format, minVersion)
			}
			switch format {
			case "webp":
				s.webp = minVersion
			case "webp_lossless":
				s.webpLossless = minVersion
			case "webp_alpha":
				s.webpAlpha = minVersion
			case "avif":
				s.avif = minVersion
			case "jpeg2000":
				s.jpeg2000 = minVersion
			case "jxl":
				s.jpegXL = minVersion
			default:
				return nil, fmt.Errorf("browser %q: unknown format %q", name, format)
			}
		}
		b.browsers[canonical] = s
		b.aliases[canonical] = canonical
		for _, alias := range entry.Aliases {
			b.aliases[strings.ToLower(strings.TrimSpace(alias))] = canonical
		}
	}

	for platform, def := range raw.Platforms {
		canonical, ok := b.aliases[strings.ToLower(strings.TrimSpace(def.Browser))]
		if !ok {
			return nil, fmt.Errorf("platform %q references unknown browser %q", platform, def.Browser)
		}
		if def.Version <= 0 {
			return nil, fmt.Errorf("platform %q has non-positive version %v", platform, def.Version)
		}
		b.platforms[strings.ToLower(strings.TrimSpace(platform))] = PlatformDefault{
			Browser: canonical,
			Version: def.Version,
			Mobile:  def.Mobile,
		}
	}

	return b, nil
}

// =============================================================================
// Lookups
// =============================================================================

// Canonical resolves a browser name or alias to its canonical family
// name. Returns false for browsers the base does not know.
func (b *Base) Canonical(name string) (string, bool) {
	canonical, ok := b.aliases[strings.ToLower(strings.TrimSpace(name))]
	return canonical, ok
}

// Lookup returns the format support for a browser at a version.
//
// The second return is false when the browser family is unknown; callers
// must then fall through to a weaker signal rather than assume no
// support. Version 0 (unestablished) supports nothing: tables are
// minimum-version based and 0 is below every minimum.
func (b *Base) Lookup(name string, version float64) (datatypes.FormatSupport, bool) {
	canonical, ok := b.Canonical(name)
	if !ok {
		return datatypes.FormatSupport{}, false
	}
	entry := b.browsers[canonical]

	supports := func(minVersion float64) bool {
		return minVersion > 0 && version >= minVersion
	}
	return datatypes.FormatSupport{
		WebP:         supports(entry.webp),
		WebPLossless: supports(entry.webpLossless),
		WebPAlpha:    supports(entry.webpAlpha),
		AVIF:         supports(entry.avif),
		JPEG2000:     supports(entry.jpeg2000),
		JPEGXL:       supports(entry.jpegXL),
	}, true
}

// Platform returns the static-data default for a platform name
// ("iOS", "android", ...). Returns false for unknown platforms.
func (b *Base) Platform(name string) (PlatformDefault, bool) {
	def, ok := b.platforms[strings.ToLower(strings.TrimSpace(name))]
	return def, ok
}

// Browsers returns the canonical family names, for diagnostics and tests.
func (b *Base) Browsers() []string {
	names := make([]string, 0, len(b.browsers))
	for name := range b.browsers {
		names = append(names, name)
	}
	return names
}
