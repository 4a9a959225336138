// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Kodiak/services/detector/engine"
)

// CacheStats reports the result-cache counters.
func CacheStats(d *engine.Detector) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, d.CacheStats())
	}
}

// ClearCache drops all cached detection results. Used after config or
// knowledge-base updates that would otherwise serve stale records until
// TTL expiry.
func ClearCache(d *engine.Detector) gin.HandlerFunc {
	return func(c *gin.Context) {
		before := d.CacheStats().Size
		d.ClearCache()
		slog.Info("result cache cleared", "entriesDropped", before)
		c.JSON(http.StatusOK, gin.H{"status": "cleared", "entriesDropped": before})
	}
}
