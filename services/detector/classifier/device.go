// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classifier

import (
	"github.com/AleutianAI/Kodiak/services/detector/config"
	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
)

// Device score weights. Memory and core counts saturate at 8 so a
// workstation with 64GB does not dwarf the scale.
const (
	baselineScore      = 50
	memoryWeight       = 3
	coreWeight         = 2
	memoryCap          = 8
	coreCap            = 8
	mobileNoDataPenalty = 15
	maxScore           = 100
)

// ClassifyDevice scores the client's hardware and buckets it into a
// device class using the configured thresholds.
//
// Direct signals (Device-Memory, hardware concurrency, the hinted
// mobile flag) always contribute. The network tier contributes only
// when no direct memory/core data is present, as a weak secondary
// signal. When nothing at all is known the class is unknown and the
// caller decides what budget that maps to.
func ClassifyDevice(hints datatypes.ClientHints, browserMobile bool, network datatypes.NetworkQuality, cfg config.ClassifierConfig) datatypes.DeviceCapability {
	mobile := browserMobile || (hints.HasMobile && hints.Mobile)
	hasDirect := hints.HasDeviceMemory || hints.HasHardwareConcurrency
	hasAnySignal := hasDirect || hints.HasMobile || browserMobile ||
		network.Tier != datatypes.NetworkUnknown

	dc := datatypes.DeviceCapability{
		Class:     datatypes.DeviceUnknown,
		Score:     baselineScore,
		Estimated: !hints.HasDeviceSignal(),
	}
	if !hasAnySignal {
		return dc
	}

	score := baselineScore
	if hints.HasDeviceMemory {
		dc.MemoryGB = hints.DeviceMemoryGB
		score += min(int(hints.DeviceMemoryGB), memoryCap) * memoryWeight
	}
	if hints.HasHardwareConcurrency {
		dc.ProcessorCores = hints.HardwareConcurrency
		score += min(hints.HardwareConcurrency, coreCap) * coreWeight
	}
	if mobile && !hasDirect {
		score -= mobileNoDataPenalty
	}
	if !hasDirect {
		score += NetworkBias(network.Tier)
	}

	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}
	dc.Score = score

	switch {
	case score < cfg.LowEndThreshold:
		dc.Class = datatypes.DeviceLowEnd
	case score > cfg.HighEndThreshold:
		dc.Class = datatypes.DeviceHighEnd
	default:
		dc.Class = datatypes.DeviceMidRange
	}
	return dc
}
