// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package budget derives concrete transform limits (quality range,
// maximum dimensions, preferred formats) from a detected capability
// record and the configured per-class tables.
package budget

import (
	"math"

	"github.com/AleutianAI/Kodiak/services/detector/config"
	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
)

// Calculate resolves the performance budget for a capability record.
//
// The device class selects the base table (unknown falls back to
// mid-range). Save-Data dominates: it forces the quality target to the
// range minimum and caps dimensions at the save-data tier regardless of
// device class. Otherwise the network tier scales the quality target,
// clamped back into the class range. The preferred-formats list is
// filtered to what the browser supports; filtering removes entries but
// never inserts, so an empty result is possible and legal.
func Calculate(caps *datatypes.ClientCapabilities, cfg config.BudgetConfig) datatypes.PerformanceBudget {
	class := cfg.Class(string(caps.Device.Class))
	rng := datatypes.QualityRange{
		Min:    class.Quality.Min,
		Max:    class.Quality.Max,
		Target: class.Quality.Target,
	}

	pb := datatypes.PerformanceBudget{
		Quality:   rng,
		MaxWidth:  class.MaxWidth,
		MaxHeight: class.MaxHeight,
		DPR:       1.0,
	}

	switch {
	case caps.Network.SaveData:
		pb.Quality.Target = rng.Min
		if cfg.SaveDataMaxWidth < pb.MaxWidth {
			pb.MaxWidth = cfg.SaveDataMaxWidth
		}
		if cfg.SaveDataMaxHeight < pb.MaxHeight {
			pb.MaxHeight = cfg.SaveDataMaxHeight
		}
	case caps.Network.Tier == datatypes.NetworkSlow:
		pb.Quality.Target = rng.Clamp(scale(rng.Target, cfg.SlowNetworkFactor))
	case caps.Network.Tier == datatypes.NetworkFast:
		pb.Quality.Target = rng.Clamp(scale(rng.Target, cfg.FastNetworkFactor))
	}

	pb.PreferredFormats = filterSupported(class.PreferredFormats, caps.Formats)

	hints := datatypes.HintsFromRaw(caps.RawClientHints)
	if hints.HasDPR && hints.DPR > 0 {
		pb.DPR = hints.DPR
	}
	return pb
}

// scale multiplies a quality value by a network factor, rounding to the
// nearest integer.
func scale(q int, factor float64) int {
	return int(math.Round(float64(q) * factor))
}

func filterSupported(formats []string, support datatypes.FormatSupport) []string {
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		if support.Supports(f) {
			out = append(out, f)
		}
	}
	return out
}
