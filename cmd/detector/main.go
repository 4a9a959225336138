// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command detector starts the Kodiak capability-detection HTTP server.
//
// This is the main entry point for the containerized detector service.
// It reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - KODIAK_PORT: HTTP server port (default: 12280)
//   - KODIAK_CONFIG: Path to the detector YAML config file (optional;
//     when set, the file is hot-reloaded on change)
//   - KODIAK_KNOWLEDGE: Path to a browser format table overriding the
//     embedded one (optional)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//   - GIN_MODE: Gin framework mode (default: release)
//   - KODIAK_LOG_LEVEL: minimum log level - debug, info, warn, error (default: info)
//   - KODIAK_LOG_DIR: directory for JSON file logs (optional)
//
// # Usage
//
//	# Build
//	go build -o detector ./cmd/detector
//
//	# Run
//	./detector
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/Kodiak/pkg/logging"
	"github.com/AleutianAI/Kodiak/services/detector"
)

func main() {
	// Setup structured logging
	logger, err := logging.Setup(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("KODIAK_LOG_LEVEL")),
		Service: "detector",
		JSON:    true,
		LogDir:  os.Getenv("KODIAK_LOG_DIR"),
	})
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Close()

	// Build configuration from environment variables
	cfg := detector.Config{
		Port:          getEnvInt("KODIAK_PORT", 0),
		ConfigPath:    os.Getenv("KODIAK_CONFIG"),
		KnowledgePath: os.Getenv("KODIAK_KNOWLEDGE"),
		OTelEndpoint:  os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:       os.Getenv("GIN_MODE"),
	}

	slog.Info("Starting detector",
		"port", cfg.Port,
		"config", cfg.ConfigPath,
	)

	svc, err := detector.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create detector: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Detector error: %v", err)
	}
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
