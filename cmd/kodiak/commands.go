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

	"github.com/spf13/cobra"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

// --- Global Command Variables ---
var (
	configPath     string
	knowledgePath  string
	serverPort     int
	detectHeaders  []string
	originalFormat string
	userFormat     string
	userQuality    int

	rootCmd = &cobra.Command{
		Use:   "kodiak",
		Short: "A cli to run and query the Kodiak capability-detection engine",
		Long: `Kodiak inspects HTTP request signals (Accept, User-Agent, client
hints), classifies the client's browser, network and device, and
resolves the optimal image format and quality for it.`,
	}

	// --- Server ---
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Start the detector HTTP server",
		RunE:  runServeCommand, // Defined in cmd_serve.go
	}

	// --- One-shot detection ---
	detectCmd = &cobra.Command{
		Use:   "detect",
		Short: "Resolve capabilities and decisions for a set of request headers",
		Example: `  kodiak detect -H "User-Agent: Mozilla/5.0 ... Chrome/120.0" \
      -H "Accept: image/avif,image/webp"`,
		RunE: runDetectCommand, // Defined in cmd_detect.go
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the kodiak version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
)

func init() {
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "detector YAML config file (hot-reloaded)")
	serveCmd.Flags().StringVar(&knowledgePath, "knowledge", "", "browser format table overriding the embedded one")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "HTTP port (overrides config file)")

	detectCmd.Flags().StringArrayVarP(&detectHeaders, "header", "H", nil, `request header, "Name: value" (repeatable)`)
	detectCmd.Flags().StringVarP(&configPath, "config", "c", "", "detector YAML config file")
	detectCmd.Flags().StringVar(&knowledgePath, "knowledge", "", "browser format table overriding the embedded one")
	detectCmd.Flags().StringVar(&originalFormat, "original-format", "", "source image format for the fallback tier")
	detectCmd.Flags().StringVar(&userFormat, "format", "", "explicit format preference (user tier)")
	detectCmd.Flags().IntVar(&userQuality, "quality", 0, "explicit quality preference (user tier)")

	rootCmd.AddCommand(serveCmd, detectCmd, versionCmd)
}
