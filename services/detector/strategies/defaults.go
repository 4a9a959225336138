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

import "github.com/AleutianAI/Kodiak/services/detector/datatypes"

// Defaults is the floor of the cascade: always available, never
// abstains, claims nothing. It guarantees the engine always produces a
// complete record even for an empty request.
type Defaults struct{}

var _ Strategy = (*Defaults)(nil)

// NewDefaults creates the defaults strategy.
func NewDefaults() *Defaults { return &Defaults{} }

func (Defaults) Name() string              { return "defaults" }
func (Defaults) Priority() int             { return 0 }
func (Defaults) IsAvailable(*Request) bool { return true }

// Detect returns the conservative record: unknown browser, no modern
// format support. Universal formats (jpeg, png, gif) are implied by
// FormatSupport itself.
func (Defaults) Detect(*Request) *Partial {
	return &Partial{
		Browser: &datatypes.BrowserIdentity{
			Name:   "unknown",
			Source: datatypes.SourceUnknown,
		},
		Formats: &datatypes.FormatSupport{
			Source: datatypes.SourceUnknown,
		},
	}
}
