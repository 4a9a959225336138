// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classifier turns raw client hints into a network-quality tier
// and a device-capability class.
//
// Everything here is a pure function over already-parsed hints: no I/O,
// no clock, no shared state. Given identical inputs the outputs are
// identical, which is what makes the downstream cascades deterministic.
package classifier

import (
	"fmt"

	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
)

// Numeric thresholds for tier inference from raw measurements.
const (
	slowRTTMillis    = 500
	slowDownlinkMbps = 1.0
	fastRTTMillis    = 100
	fastDownlinkMbps = 5.0
)

// ClassifyNetwork resolves the network tier.
//
// Resolution order: Save-Data (user intent overrides measurement), then
// declared effective connection type, then numeric rtt/downlink
// inference, then unknown. The Estimated flag is false only when the
// client declared its situation (Save-Data or ECT).
func ClassifyNetwork(hints datatypes.ClientHints) datatypes.NetworkQuality {
	nq := datatypes.NetworkQuality{
		Tier:          datatypes.NetworkUnknown,
		EffectiveType: hints.EffectiveType,
		SaveData:      hints.SaveData,
		Estimated:     true,
	}
	if hints.HasRTT {
		nq.RTTMillis = hints.RTTMillis
	}
	if hints.HasDownlink {
		nq.DownlinkMbps = hints.DownlinkMbps
	}

	if hints.SaveData {
		nq.Tier = datatypes.NetworkSlow
		nq.Estimated = false
		nq.Description = "save-data requested; treating connection as slow"
		return nq
	}

	if hints.EffectiveType != "" {
		switch hints.EffectiveType {
		case "slow-2g", "2g":
			nq.Tier = datatypes.NetworkSlow
		case "3g":
			nq.Tier = datatypes.NetworkMedium
		case "4g":
			nq.Tier = datatypes.NetworkFast
		default:
			// Unrecognized ECT token: fall through to numeric inference.
			nq.Tier = ""
		}
		if nq.Tier != "" {
			nq.Estimated = false
			nq.Description = fmt.Sprintf("declared effective type %q", hints.EffectiveType)
			return nq
		}
		nq.Tier = datatypes.NetworkUnknown
	}

	if hints.HasRTT || hints.HasDownlink {
		switch {
		case (hints.HasRTT && hints.RTTMillis > slowRTTMillis) ||
			(hints.HasDownlink && hints.DownlinkMbps < slowDownlinkMbps):
			nq.Tier = datatypes.NetworkSlow
		case hints.HasRTT && hints.RTTMillis < fastRTTMillis &&
			hints.HasDownlink && hints.DownlinkMbps >= fastDownlinkMbps:
			nq.Tier = datatypes.NetworkFast
		default:
			nq.Tier = datatypes.NetworkMedium
		}
		nq.Description = fmt.Sprintf("inferred from rtt=%dms downlink=%.1fMbps", nq.RTTMillis, nq.DownlinkMbps)
		return nq
	}

	nq.Description = "no network signal"
	return nq
}

// NetworkBias returns the secondary device-score contribution of a
// network tier: a fast connection weakly suggests capable hardware,
// a slow one the opposite.
func NetworkBias(tier datatypes.NetworkTier) int {
	switch tier {
	case datatypes.NetworkFast:
		return 10
	case datatypes.NetworkSlow:
		return -10
	default:
		return 0
	}
}
