// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package strategies

import (
	"strings"

	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
	"github.com/AleutianAI/Kodiak/services/detector/knowledge"
)

// ClientHints detects from structured Sec-CH-* headers. Highest-priority
// strategy: the hints are machine-written declarations, not sniffable
// freetext.
type ClientHints struct {
	kb       *knowledge.Base
	priority int
}

var _ Strategy = (*ClientHints)(nil)

// NewClientHints creates the client-hints strategy.
func NewClientHints(kb *knowledge.Base, priority int) *ClientHints {
	return &ClientHints{kb: kb, priority: priority}
}

func (s *ClientHints) Name() string  { return "client-hints" }
func (s *ClientHints) Priority() int { return s.priority }

// IsAvailable reports whether any recognized hint header is present.
func (s *ClientHints) IsAvailable(r *Request) bool {
	return r.Hints.Any()
}

// Detect derives a browser identity from the Sec-CH-UA brand list and
// looks up format support in the knowledge base. Abstains when no
// meaningful brand can be chosen.
func (s *ClientHints) Detect(r *Request) *Partial {
	brand, ok := pickBrand(r.Hints.Brands)
	if !ok {
		return nil
	}

	name, known := s.kb.Canonical(brand.Name)
	if !known {
		name = strings.ToLower(brand.Name)
	}

	version := brand.Version
	if r.Hints.HasFullVersion {
		version = r.Hints.FullVersion
	}

	identity := &datatypes.BrowserIdentity{
		Name:     name,
		Version:  version,
		Mobile:   r.Hints.HasMobile && r.Hints.Mobile,
		Platform: strings.ToLower(r.Hints.Platform),
		Source:   datatypes.SourceClientHints,
	}

	p := &Partial{Browser: identity}
	if formats, ok := s.kb.Lookup(name, version); ok {
		formats.Source = datatypes.SourceClientHints
		p.Formats = &formats
	}
	return p
}

// pickBrand chooses the most specific brand from a Sec-CH-UA list:
// a named browser brand over the generic "Chromium", anything over
// GREASE entries (already dropped at parse time).
func pickBrand(brands []datatypes.Brand) (datatypes.Brand, bool) {
	var chromium datatypes.Brand
	var haveChromium bool
	for _, b := range brands {
		lower := strings.ToLower(b.Name)
		if lower == "chromium" {
			chromium, haveChromium = b, true
			continue
		}
		return b, true
	}
	if haveChromium {
		return chromium, true
	}
	return datatypes.Brand{}, false
}
