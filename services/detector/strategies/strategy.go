// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package strategies holds the detection strategies the engine runs
// against each request. Every strategy is a pure reader of the request:
// it either contributes a partial result or abstains with nil, and it
// never fails.
package strategies

import (
	"net/http"

	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
)

// Request is the pre-parsed view of an incoming request that strategies
// operate on. Parsing once up front keeps the strategies themselves
// allocation-light and trivially testable.
type Request struct {
	Header http.Header
	Hints  datatypes.ClientHints

	// MaxUserAgentLength bounds how much of the User-Agent string the
	// regexp rules see. ReDoS guard; zero means no limit.
	MaxUserAgentLength int
}

// NewRequest builds a strategy Request from raw headers.
func NewRequest(h http.Header, maxUALength int) *Request {
	if h == nil {
		h = http.Header{}
	}
	return &Request{
		Header:             h,
		Hints:              datatypes.ParseClientHints(h),
		MaxUserAgentLength: maxUALength,
	}
}

// UserAgent returns the request's User-Agent header, truncated to
// MaxUserAgentLength.
func (r *Request) UserAgent() string {
	ua := r.Header.Get(datatypes.HeaderUserAgent)
	if r.MaxUserAgentLength > 0 && len(ua) > r.MaxUserAgentLength {
		return ua[:r.MaxUserAgentLength]
	}
	return ua
}

// Partial is the contribution of one strategy. Nil fields mean the
// strategy has nothing to say about that group; the engine merges
// browser identity and format support independently, so a strategy may
// fill one and not the other.
type Partial struct {
	Browser *datatypes.BrowserIdentity
	Formats *datatypes.FormatSupport
}

// Strategy is one detection approach. Implementations must be safe for
// concurrent use, must not panic, and must not mutate the Request.
type Strategy interface {
	// Name is the strategy's configuration key.
	Name() string

	// Priority ranks the strategy for field-group merging; higher wins.
	Priority() int

	// IsAvailable reports whether the request carries the signals this
	// strategy reads. The engine skips unavailable strategies.
	IsAvailable(r *Request) bool

	// Detect produces a partial result, or nil to abstain. Called only
	// when IsAvailable returned true, but a nil abstain is still legal
	// (available signals can turn out unusable once parsed).
	Detect(r *Request) *Partial
}
