// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"math"

	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
)

// Meta carries per-request observability fields into the optimized
// options' metrics block.
type Meta struct {
	RequestID      string
	CacheHit       bool
	DurationMicros int64
}

// OptimizedOptions merges detection-driven transform options over a
// caller-provided base map.
//
// Base keys the caller set explicitly are treated as user preferences:
// "format" and "quality" feed the cascades' user tier, and dimension
// caps only ever tighten (the budget never widens a caller's maxWidth).
// The returned map always carries the decision metrics block under
// datatypes.MetricsKey. The base map is not mutated.
func (d *Detector) OptimizedOptions(caps *datatypes.ClientCapabilities, base map[string]any, originalFormat string, meta Meta) map[string]any {
	out := make(map[string]any, len(base)+6)
	for k, v := range base {
		out[k] = v
	}

	userFormat, _ := out["format"].(string)
	userQuality := intOption(out["quality"])

	fd := d.OptimalFormat(caps, originalFormat, userFormat)
	qd := d.OptimalQuality(caps, fd.Format, userQuality)
	pb := d.Budget(caps)

	out["format"] = fd.Format
	out["quality"] = qd.Quality
	out["dpr"] = pb.DPR
	out["maxWidth"] = tighten(intOption(out["maxWidth"]), pb.MaxWidth)
	out["maxHeight"] = tighten(intOption(out["maxHeight"]), pb.MaxHeight)

	out[datatypes.MetricsKey] = datatypes.DetectionMetrics{
		RequestID:      meta.RequestID,
		BrowserName:    caps.Browser.Name,
		BrowserSource:  caps.Browser.Source,
		FormatsSource:  caps.Formats.Source,
		NetworkTier:    caps.Network.Tier,
		DeviceClass:    caps.Device.Class,
		DeviceScore:    caps.Device.Score,
		CacheHit:       meta.CacheHit,
		DurationMicros: meta.DurationMicros,
		Format:         fd,
		Quality:        qd,
	}
	return out
}

// tighten returns the smaller of a caller-provided cap and the budget
// cap, ignoring an absent (zero) caller value.
func tighten(caller, budget int) int {
	if caller > 0 && caller < budget {
		return caller
	}
	return budget
}

// intOption reads an integer option that may arrive as any numeric type
// (JSON decoding yields float64).
func intOption(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}
