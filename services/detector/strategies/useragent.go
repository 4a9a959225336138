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
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
	"github.com/AleutianAI/Kodiak/services/detector/knowledge"
)

// uaRule maps a User-Agent product token to a canonical browser name.
// Order matters: Chromium derivatives embed "Chrome/" in their UA, so
// the derivative rules must run first.
type uaRule struct {
	name    string
	pattern *regexp.Regexp
}

var uaRules = []uaRule{
	{"samsung", regexp.MustCompile(`SamsungBrowser/(\d+(?:\.\d+)?)`)},
	{"edge", regexp.MustCompile(`Edg(?:e|A|iOS)?/(\d+(?:\.\d+)?)`)},
	{"opera", regexp.MustCompile(`OPR/(\d+(?:\.\d+)?)`)},
	{"chrome", regexp.MustCompile(`(?:Chrome|CriOS)/(\d+(?:\.\d+)?)`)},
	{"firefox", regexp.MustCompile(`(?:Firefox|FxiOS)/(\d+(?:\.\d+)?)`)},
	// Safari reports its version in a separate Version/ token; a UA
	// with Version/ and Safari/ but none of the tokens above is Safari.
	{"safari", regexp.MustCompile(`Version/(\d+(?:\.\d+)?).*Safari/`)},
}

var uaMobilePattern = regexp.MustCompile(`(?i)\b(mobile|iphone|ipod|android|windows phone)\b`)

// platformTokens maps UA substrings to knowledge-base platform keys,
// checked in order.
var platformTokens = []struct {
	token    string
	platform string
}{
	{"Windows NT", "windows"},
	{"iPhone", "ios"},
	{"iPad", "ios"},
	{"Android", "android"},
	{"CrOS", "chromeos"},
	{"Macintosh", "macos"},
	{"Linux", "linux"},
}

// UserAgent detects browser identity and format support via regexp
// rules over the User-Agent string. Freetext sniffing, so it ranks
// below client hints and the Accept header.
type UserAgent struct {
	kb       *knowledge.Base
	priority int
}

var _ Strategy = (*UserAgent)(nil)

// NewUserAgent creates the user-agent strategy.
func NewUserAgent(kb *knowledge.Base, priority int) *UserAgent {
	return &UserAgent{kb: kb, priority: priority}
}

func (s *UserAgent) Name() string  { return "user-agent" }
func (s *UserAgent) Priority() int { return s.priority }

func (s *UserAgent) IsAvailable(r *Request) bool {
	return r.UserAgent() != ""
}

// Detect matches the ordered rules against the (truncated) User-Agent.
// Abstains when nothing matches; a garbage UA is just an absent signal.
func (s *UserAgent) Detect(r *Request) *Partial {
	ua := r.UserAgent()

	for _, rule := range uaRules {
		m := rule.pattern.FindStringSubmatch(ua)
		if m == nil {
			continue
		}
		version, err := strconv.ParseFloat(m[1], 64)
		if err != nil || version <= 0 {
			continue
		}

		identity := &datatypes.BrowserIdentity{
			Name:     rule.name,
			Version:  version,
			Mobile:   uaMobilePattern.MatchString(ua),
			Platform: uaPlatform(ua),
			Source:   datatypes.SourceUserAgent,
		}

		p := &Partial{Browser: identity}
		if formats, ok := s.kb.Lookup(rule.name, version); ok {
			formats.Source = datatypes.SourceUserAgent
			p.Formats = &formats
		}
		return p
	}
	return nil
}

// uaPlatform extracts a platform key from UA substrings, or "".
func uaPlatform(ua string) string {
	for _, pt := range platformTokens {
		if strings.Contains(ua, pt.token) {
			return pt.platform
		}
	}
	return ""
}
