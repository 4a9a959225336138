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

// StaticData is the last-resort inference: when only a platform is
// recognizable, assume that platform's dominant browser at a
// deliberately conservative version.
type StaticData struct {
	kb       *knowledge.Base
	priority int
}

var _ Strategy = (*StaticData)(nil)

// NewStaticData creates the static-data strategy.
func NewStaticData(kb *knowledge.Base, priority int) *StaticData {
	return &StaticData{kb: kb, priority: priority}
}

func (s *StaticData) Name() string  { return "static-data" }
func (s *StaticData) Priority() int { return s.priority }

func (s *StaticData) IsAvailable(r *Request) bool {
	return s.platform(r) != ""
}

// Detect maps the platform to its default browser and that browser's
// knowledge-base record.
func (s *StaticData) Detect(r *Request) *Partial {
	platform := s.platform(r)
	def, ok := s.kb.Platform(platform)
	if !ok {
		return nil
	}

	identity := &datatypes.BrowserIdentity{
		Name:     def.Browser,
		Version:  def.Version,
		Mobile:   def.Mobile,
		Platform: platform,
		Source:   datatypes.SourceStaticData,
	}

	p := &Partial{Browser: identity}
	if formats, ok := s.kb.Lookup(def.Browser, def.Version); ok {
		formats.Source = datatypes.SourceStaticData
		p.Formats = &formats
	}
	return p
}

// platform resolves a knowledge-base platform key from the structured
// platform hint first, then from UA substrings.
func (s *StaticData) platform(r *Request) string {
	if p := normalizePlatform(r.Hints.Platform); p != "" {
		if _, ok := s.kb.Platform(p); ok {
			return p
		}
	}
	if p := uaPlatform(r.UserAgent()); p != "" {
		if _, ok := s.kb.Platform(p); ok {
			return p
		}
	}
	return ""
}

// normalizePlatform maps Sec-CH-UA-Platform values ("Windows", "macOS",
// "iOS", ...) to knowledge-base platform keys.
func normalizePlatform(p string) string {
	switch strings.ToLower(strings.TrimSpace(p)) {
	case "windows":
		return "windows"
	case "macos", "mac os x":
		return "macos"
	case "ios":
		return "ios"
	case "android":
		return "android"
	case "chrome os", "chromeos":
		return "chromeos"
	case "linux":
		return "linux"
	default:
		return ""
	}
}
