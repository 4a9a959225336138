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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/Kodiak/services/detector"
)

// runServeCommand starts the detector HTTP server and blocks.
func runServeCommand(cmd *cobra.Command, args []string) error {
	cfg := detector.Config{
		Port:          serverPort,
		ConfigPath:    configPath,
		KnowledgePath: knowledgePath,
		OTelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:       os.Getenv("GIN_MODE"),
	}

	svc, err := detector.New(cfg)
	if err != nil {
		return fmt.Errorf("creating detector service: %w", err)
	}
	return svc.Run()
}
