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
	"sort"
	"strings"

	"github.com/AleutianAI/Kodiak/services/detector/budget"
	"github.com/AleutianAI/Kodiak/services/detector/config"
	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
	"github.com/AleutianAI/Kodiak/services/detector/observability"
)

// modernFormatOrder is the preference order among modern formats when a
// capability record attests support for several.
var modernFormatOrder = []string{
	datatypes.FormatAVIF,
	datatypes.FormatWebP,
	datatypes.FormatJPEGXL,
	datatypes.FormatJPEG2000,
}

// OptimalFormat resolves the output format for a capability record.
//
// Cascade, strongest first: explicit user preference ("auto" and empty
// both mean no preference), then each detected source's format record
// walked in configured priority order - a source that confirmed no
// modern format is skipped, not final - then the configured fallback.
// An empty fallback keeps the caller's original format.
func (d *Detector) OptimalFormat(caps *datatypes.ClientCapabilities, originalFormat, userFormat string) datatypes.FormatDecision {
	cfg := d.Config().Cascade.Format
	prov := func(tier string) datatypes.Provenance {
		return datatypes.Provenance{
			DecisionSource:     tier,
			ConfiguredPriority: cfg.SourcePriorities[tier],
		}
	}
	if strings.EqualFold(userFormat, datatypes.FormatAuto) {
		userFormat = ""
	}

	var fd datatypes.FormatDecision
	switch {
	case userFormat != "":
		fd = datatypes.FormatDecision{Format: userFormat, Provenance: prov(datatypes.TierUserPreference)}
	default:
		if best, tier, ok := bestAttestedFormat(caps, cfg); ok {
			fd = datatypes.FormatDecision{Format: best, Provenance: prov(tier)}
			break
		}
		format := cfg.FallbackFormat
		if format == "" {
			format = originalFormat
		}
		fd = datatypes.FormatDecision{Format: format, Provenance: prov(datatypes.TierFallback)}
	}

	observability.RecordFormatDecision(fd.Provenance.DecisionSource, fd.Format)
	return fd
}

// bestAttestedFormat walks the per-source format records in cascade
// order and returns the first attested modern format with its tier.
func bestAttestedFormat(caps *datatypes.ClientCapabilities, cfg config.FormatCascadeConfig) (format, tier string, ok bool) {
	signals := caps.FormatSignals
	if len(signals) == 0 {
		// Hand-built records carry only the merged view.
		signals = []datatypes.FormatSupport{caps.Formats}
	}
	if cfg.AcceptHeaderPriority {
		ordered := make([]datatypes.FormatSupport, len(signals))
		copy(ordered, signals)
		sort.SliceStable(ordered, func(i, j int) bool {
			return cfg.SourcePriorities[sourceTier(ordered[i].Source)] >
				cfg.SourcePriorities[sourceTier(ordered[j].Source)]
		})
		signals = ordered
	}
	for _, sig := range signals {
		if best := bestModernFormat(sig); best != "" {
			return best, sourceTier(sig.Source), true
		}
	}
	return "", "", false
}

// OptimalQuality resolves encoder quality for a capability record and an
// already-decided format.
//
// Cascade, strongest first: explicit user preference, then Save-Data
// (the smallest configured class minimum, mirroring the dimension clamp
// to the smallest tier), then the network-scaled budget target, then the
// device budget target (only when the network tier is unknown, so the
// two budget tiers never double-report), then the per-format default.
// The DPR adjustment applies after resolution, and only to the budget
// and default tiers: an explicit user choice or a data-saver floor is
// not silently raised.
func (d *Detector) OptimalQuality(caps *datatypes.ClientCapabilities, format string, userQuality int) datatypes.QualityDecision {
	cfg := d.Config()
	qc := cfg.Cascade.Quality
	prov := func(tier string) datatypes.Provenance {
		return datatypes.Provenance{
			DecisionSource:     tier,
			ConfiguredPriority: qc.TierPriorities[tier],
		}
	}

	pb := budget.Calculate(caps, cfg.Budget)

	var qd datatypes.QualityDecision
	dprAdjust := false
	switch {
	case userQuality > 0:
		qd = datatypes.QualityDecision{Quality: clampQuality(userQuality), Provenance: prov(datatypes.TierUserPreference)}
	case caps.Network.SaveData:
		qd = datatypes.QualityDecision{Quality: lowestQualityFloor(cfg.Budget), Provenance: prov(datatypes.TierSaveData)}
	case caps.Network.Tier != datatypes.NetworkUnknown:
		qd = datatypes.QualityDecision{Quality: pb.Quality.Target, Provenance: prov(datatypes.TierNetworkBudget)}
		dprAdjust = true
	case caps.Device.Class != datatypes.DeviceUnknown:
		qd = datatypes.QualityDecision{Quality: pb.Quality.Target, Provenance: prov(datatypes.TierDeviceBudget)}
		dprAdjust = true
	default:
		quality, ok := qc.DefaultQualities[format]
		if !ok {
			quality = qc.DefaultQualities[datatypes.FormatJPEG]
		}
		qd = datatypes.QualityDecision{Quality: quality, Provenance: prov(datatypes.TierFormatDefault)}
		dprAdjust = true
	}

	if dprAdjust && cfg.Budget.DPRAdjustmentEnabled && pb.DPR > 1 {
		qd.Quality = clampQuality(qd.Quality + int(pb.DPR-1)*cfg.Budget.DPRAdjustment)
	}

	observability.RecordQualityDecision(qd.Provenance.DecisionSource)
	return qd
}

// Budget exposes the performance budget for a capability record under
// the active configuration.
func (d *Detector) Budget(caps *datatypes.ClientCapabilities) datatypes.PerformanceBudget {
	return budget.Calculate(caps, d.Config().Budget)
}

// bestModernFormat picks the preferred attested modern format, or "".
func bestModernFormat(fs datatypes.FormatSupport) string {
	for _, f := range modernFormatOrder {
		if fs.Supports(f) {
			return f
		}
	}
	return ""
}

// sourceTier maps a detection source to its cascade tier name. The two
// vocabularies coincide today; the indirection keeps them free to
// diverge.
func sourceTier(s datatypes.Source) string {
	switch s {
	case datatypes.SourceAcceptHeader:
		return datatypes.TierAcceptHeader
	case datatypes.SourceClientHints:
		return datatypes.TierClientHints
	case datatypes.SourceUserAgent:
		return datatypes.TierUserAgent
	case datatypes.SourceStaticData:
		return datatypes.TierStaticData
	default:
		return datatypes.TierFallback
	}
}

// lowestQualityFloor is the smallest quality minimum across the
// configured class tables. Save-Data resolves here regardless of the
// detected device class.
func lowestQualityFloor(bc config.BudgetConfig) int {
	floor := 0
	for _, cb := range bc.Classes {
		if floor == 0 || cb.Quality.Min < floor {
			floor = cb.Quality.Min
		}
	}
	return clampQuality(floor)
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}
