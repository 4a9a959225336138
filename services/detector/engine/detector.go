// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine orchestrates the detection strategies and the decision
// cascades. The Detector is the single entry point: give it request
// headers, get back a complete capability record and, on demand,
// format/quality decisions with provenance.
package engine

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/AleutianAI/Kodiak/pkg/hashing"
	"github.com/AleutianAI/Kodiak/services/detector/cache"
	"github.com/AleutianAI/Kodiak/services/detector/classifier"
	"github.com/AleutianAI/Kodiak/services/detector/config"
	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
	"github.com/AleutianAI/Kodiak/services/detector/knowledge"
	"github.com/AleutianAI/Kodiak/services/detector/observability"
	"github.com/AleutianAI/Kodiak/services/detector/strategies"
)

var tracer = otel.Tracer("kodiak.detector.engine")

// Result is the detailed outcome of one detection.
type Result struct {
	Capabilities  *datatypes.ClientCapabilities
	CacheHit      bool
	Signature     string
	Duration      time.Duration
	StrategiesRun []string
}

// Detector runs the strategy pipeline and caches results by header
// signature.
//
// Thread Safety:
//
//	Safe for concurrent use. Configuration swaps atomically under mu;
//	in-flight detections finish on the configuration they started with.
type Detector struct {
	mu         sync.RWMutex
	cfg        *config.DetectorConfig
	strategies []strategies.Strategy

	kb     *knowledge.Base
	cache  *cache.ResultCache
	flight singleflight.Group
}

// New creates a Detector. A nil cfg uses config.Default(); a nil
// results cache is built from the configuration's cache section.
func New(cfg *config.DetectorConfig, kb *knowledge.Base, results *cache.ResultCache) *Detector {
	if cfg == nil {
		cfg = config.Default()
	}
	if results == nil {
		results = newCache(cfg.Cache)
	}
	d := &Detector{kb: kb, cache: results}
	d.cfg = cfg
	d.strategies = buildStrategies(kb, cfg.Detection)
	return d
}

func newCache(cc config.CacheConfig) *cache.ResultCache {
	hasher, err := hashing.New(cc.Hash)
	if err != nil {
		slog.Warn("unknown cache hash algorithm, using default",
			"algorithm", cc.Hash, "error", err)
		hasher = hashing.Default()
	}
	return cache.New(
		cache.WithMaxSize(cc.MaxSize),
		cache.WithPruneAmount(cc.PruneAmount),
		cache.WithTTL(time.Duration(cc.TTLMillis)*time.Millisecond),
		cache.WithHasher(hasher),
	)
}

// buildStrategies constructs the strategy set ordered by configured
// priority, highest first. Defaults is always last and always present.
func buildStrategies(kb *knowledge.Base, dc config.DetectionConfig) []strategies.Strategy {
	prio := func(name string) int { return dc.StrategyPriorities[name] }
	set := []strategies.Strategy{
		strategies.NewClientHints(kb, prio(config.StrategyClientHints)),
		strategies.NewAccept(prio(config.StrategyAcceptHeader)),
		strategies.NewUserAgent(kb, prio(config.StrategyUserAgent)),
		strategies.NewStaticData(kb, prio(config.StrategyStaticData)),
		strategies.NewDefaults(),
	}
	// Insertion sort by priority desc; the set is tiny and mostly
	// ordered already.
	for i := 1; i < len(set); i++ {
		for j := i; j > 0 && set[j].Priority() > set[j-1].Priority(); j-- {
			set[j], set[j-1] = set[j-1], set[j]
		}
	}
	return set
}

// Config returns the active configuration.
func (d *Detector) Config() *config.DetectorConfig {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.cfg
}

// SetConfig swaps the active configuration and rebuilds the strategy
// set. The result cache is kept: stale entries age out via TTL rather
// than being thrown away on every reload.
func (d *Detector) SetConfig(cfg *config.DetectorConfig) {
	if cfg == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
	d.strategies = buildStrategies(d.kb, cfg.Detection)
}

// ClearCache drops all cached detection results.
func (d *Detector) ClearCache() {
	d.cache.Clear()
	observability.SetCacheEntries(0)
}

// CacheStats returns the result-cache counters.
func (d *Detector) CacheStats() cache.Stats {
	return d.cache.Stats()
}

// Detect resolves client capabilities for a set of request headers.
//
// Never fails and never panics: in the worst case (empty or hostile
// headers) the record degrades to the conservative defaults. The
// returned record is shared with the cache and must be treated as
// immutable.
func (d *Detector) Detect(ctx context.Context, h http.Header) *datatypes.ClientCapabilities {
	return d.DetectDetailed(ctx, h).Capabilities
}

// DetectDetailed is Detect plus cache and timing details, for the debug
// surface and the middleware headers.
func (d *Detector) DetectDetailed(ctx context.Context, h http.Header) Result {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "Detector.Detect",
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	sig := datatypes.Signature(h)

	if sig != "" {
		if caps, ok := d.cache.Get(sig); ok {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			observability.RecordDetection(string(caps.Browser.Source), true, 0)
			return Result{
				Capabilities: caps,
				CacheHit:     true,
				Signature:    sig,
				Duration:     time.Since(start),
			}
		}
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	var run []string
	var caps *datatypes.ClientCapabilities
	if sig == "" {
		// Empty signature means an empty request; nothing to
		// deduplicate or cache.
		caps, run = d.compute(ctx, h)
	} else {
		v, _, _ := d.flight.Do(sig, func() (any, error) {
			c, r := d.compute(ctx, h)
			d.cache.Put(sig, c)
			observability.SetCacheEntries(d.cache.Len())
			return &Result{Capabilities: c, StrategiesRun: r}, nil
		})
		shared := v.(*Result)
		caps, run = shared.Capabilities, shared.StrategiesRun
	}

	duration := time.Since(start)
	observability.RecordDetection(string(caps.Browser.Source), false, duration)
	return Result{
		Capabilities: caps,
		Signature:    sig,
		Duration:     duration,
		StrategiesRun: run,
	}
}

// compute runs the strategy pipeline and the classifiers.
func (d *Detector) compute(ctx context.Context, h http.Header) (*datatypes.ClientCapabilities, []string) {
	d.mu.RLock()
	cfg := d.cfg
	set := d.strategies
	d.mu.RUnlock()

	req := strategies.NewRequest(h, cfg.Detection.MaxUserAgentLength)

	type contribution struct {
		name     string
		priority int
		partial  *strategies.Partial
	}
	var contribs []contribution
	var run []string

	for _, s := range set {
		if !s.IsAvailable(req) {
			continue
		}
		run = append(run, s.Name())
		p := d.runStrategy(ctx, s, req)
		if p == nil {
			continue
		}
		contribs = append(contribs, contribution{s.Name(), s.Priority(), p})
	}

	// Browser identity: highest strategy priority wins whole. The set
	// is priority-ordered and Defaults always contributes, so the first
	// hit is the winner and one always exists.
	var browser datatypes.BrowserIdentity
	for _, c := range contribs {
		if c.partial.Browser != nil {
			browser = *c.partial.Browser
			break
		}
	}

	// Format support merges by its own priority namespace: an explicit
	// Accept header outranks every inference regardless of strategy
	// order.
	formatPrio := func(c contribution) int {
		if cfg.Cascade.Format.AcceptHeaderPriority {
			return cfg.Detection.FormatSourcePriorities[c.name]
		}
		return c.priority
	}
	var formats datatypes.FormatSupport
	var signals []datatypes.FormatSupport
	best := -1
	for _, c := range contribs {
		if c.partial.Formats == nil {
			continue
		}
		signals = append(signals, *c.partial.Formats)
		if p := formatPrio(c); p > best {
			best = p
			formats = *c.partial.Formats
		}
	}

	network := classifier.ClassifyNetwork(req.Hints)
	device := classifier.ClassifyDevice(req.Hints, browser.Mobile, network, cfg.Classifier)

	return &datatypes.ClientCapabilities{
		Browser:        browser,
		Formats:        formats,
		FormatSignals:  signals,
		Network:        network,
		Device:         device,
		RawClientHints: req.Hints.Raw,
		Timestamp:      time.Now(),
	}, run
}

// runStrategy executes one strategy with panic isolation. A panicking
// strategy abstains; the pipeline carries on with weaker signals.
func (d *Detector) runStrategy(ctx context.Context, s strategies.Strategy, req *strategies.Request) (p *strategies.Partial) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "detection strategy panicked",
				"strategy", s.Name(), "panic", r)
			observability.RecordStrategyFailure(s.Name())
			p = nil
		}
	}()
	return s.Detect(req)
}
