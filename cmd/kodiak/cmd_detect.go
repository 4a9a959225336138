// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Kodiak/services/detector/config"
	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
	"github.com/AleutianAI/Kodiak/services/detector/engine"
	"github.com/AleutianAI/Kodiak/services/detector/knowledge"
)

// detectOutput is the JSON document printed by the detect command.
type detectOutput struct {
	Capabilities *datatypes.ClientCapabilities `json:"capabilities"`
	Budget       datatypes.PerformanceBudget   `json:"budget"`
	Format       datatypes.FormatDecision      `json:"format"`
	Quality      datatypes.QualityDecision     `json:"quality"`
}

// runDetectCommand resolves capabilities for headers given via -H and
// prints the outcome as JSON.
func runDetectCommand(cmd *cobra.Command, args []string) error {
	h, err := parseHeaderFlags(detectHeaders)
	if err != nil {
		return err
	}

	cfg := config.Default()
	if configPath != "" {
		if cfg, err = config.Load(configPath); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
	}

	kb, err := loadKnowledgeBase()
	if err != nil {
		return fmt.Errorf("loading knowledge base: %w", err)
	}

	d := engine.New(cfg, kb, nil)
	caps := d.Detect(context.Background(), h)

	fd := d.OptimalFormat(caps, originalFormat, userFormat)
	qd := d.OptimalQuality(caps, fd.Format, userQuality)

	out := detectOutput{
		Capabilities: caps,
		Budget:       d.Budget(caps),
		Format:       fd,
		Quality:      qd,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func loadKnowledgeBase() (*knowledge.Base, error) {
	if knowledgePath != "" {
		return knowledge.LoadFile(knowledgePath)
	}
	return knowledge.Load()
}

// parseHeaderFlags turns repeated "Name: value" flags into an
// http.Header.
func parseHeaderFlags(flags []string) (http.Header, error) {
	h := http.Header{}
	for _, f := range flags {
		name, value, ok := strings.Cut(f, ":")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("malformed header %q, want \"Name: value\"", f)
		}
		h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	return h, nil
}
