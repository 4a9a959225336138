// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command kodiak is the CLI for the Kodiak capability-detection engine:
// run the server, or resolve capabilities and decisions for a set of
// request headers from the terminal.
package main

import (
	"log"
	"os"

	"github.com/AleutianAI/Kodiak/pkg/logging"
)

func main() {
	logger, err := logging.Setup(logging.Config{
		Level:   logging.ParseLevel(os.Getenv("KODIAK_LOG_LEVEL")),
		Service: "cli",
	})
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logger.Close()

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
