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
	"github.com/AleutianAI/Kodiak/services/detector/middleware"
)

// OptionsRequest is the payload of POST /v1/options.
type OptionsRequest struct {
	// OriginalFormat is the source image's format, used when the
	// cascade falls through to "keep the original".
	OriginalFormat string `json:"originalFormat"`

	// Options is the caller's base transform option map. Keys the
	// caller sets ("format", "quality", dimension caps) are honored as
	// user preferences.
	Options map[string]any `json:"options"`
}

// OptimizedOptions merges detection-driven transform options over the
// caller's base map and returns the result, including the decision
// metrics block.
func OptimizedOptions(d *engine.Detector) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OptionsRequest
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		result, ok := middleware.GetResult(c)
		if !ok {
			result = d.DetectDetailed(c.Request.Context(), c.Request.Header)
		}

		out := d.OptimizedOptions(result.Capabilities, req.Options, req.OriginalFormat, engine.Meta{
			RequestID:      middleware.GetRequestID(c),
			CacheHit:       result.CacheHit,
			DurationMicros: result.Duration.Microseconds(),
		})

		slog.Debug("optimized options resolved",
			"requestId", middleware.GetRequestID(c),
			"format", out["format"],
			"quality", out["quality"],
			"cacheHit", result.CacheHit)

		c.JSON(http.StatusOK, gin.H{"options": out})
	}
}
