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
)

// Accept detects format support from explicit image MIME types in the
// Accept header. It contributes formats only, never a browser identity,
// but what it does say is a direct declaration by the client and
// outranks every inference when the format groups are merged.
type Accept struct {
	priority int
}

var _ Strategy = (*Accept)(nil)

// NewAccept creates the accept-header strategy.
func NewAccept(priority int) *Accept {
	return &Accept{priority: priority}
}

func (s *Accept) Name() string  { return "accept-header" }
func (s *Accept) Priority() int { return s.priority }

// IsAvailable reports whether the Accept header names at least one image
// MIME type. A generic "*/*" carries no format information and does not
// make the strategy available.
func (s *Accept) IsAvailable(r *Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get(datatypes.HeaderAccept)), "image/")
}

// Detect reads the advertised image types. Absence of a type means
// "not declared", not "unsupported" — but for merge purposes this
// strategy's record wins whole, so an Accept header that lists webp and
// not avif reports avif false.
func (s *Accept) Detect(r *Request) *Partial {
	accept := strings.ToLower(r.Header.Get(datatypes.HeaderAccept))

	formats := &datatypes.FormatSupport{Source: datatypes.SourceAcceptHeader}
	found := false
	for _, part := range strings.Split(accept, ",") {
		mime, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		switch mime {
		case "image/avif":
			formats.AVIF = true
			found = true
		case "image/webp":
			formats.WebP = true
			formats.WebPAlpha = true
			formats.WebPLossless = true
			found = true
		case "image/jxl":
			formats.JPEGXL = true
			found = true
		case "image/jp2", "image/jpeg2000":
			formats.JPEG2000 = true
			found = true
		}
	}
	if !found {
		return nil
	}
	return &Partial{Formats: formats}
}
