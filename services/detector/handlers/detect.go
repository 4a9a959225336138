// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers contains the Gin handlers for the detection API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/Kodiak/services/detector/engine"
	"github.com/AleutianAI/Kodiak/services/detector/middleware"
)

// DetectResponse is the payload of GET /v1/detect.
type DetectResponse struct {
	RequestID      string   `json:"requestId"`
	CacheHit       bool     `json:"cacheHit"`
	DurationMicros int64    `json:"durationMicros"`
	StrategiesRun  []string `json:"strategiesRun,omitempty"`

	Capabilities any `json:"capabilities"`
	Budget       any `json:"budget"`

	Format  any `json:"format"`
	Quality any `json:"quality"`
}

// Detect reports the full detection outcome for the calling client:
// capability record, performance budget, and the two cascade decisions
// with provenance. Intended for debugging and for edge callers that want
// the raw record rather than merged options.
func Detect(d *engine.Detector) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, ok := middleware.GetResult(c)
		if !ok {
			// Middleware not wired; detect inline so the endpoint
			// still answers.
			result = d.DetectDetailed(c.Request.Context(), c.Request.Header)
		}
		caps := result.Capabilities

		originalFormat := c.Query("originalFormat")
		userFormat := c.Query("format")

		fd := d.OptimalFormat(caps, originalFormat, userFormat)
		qd := d.OptimalQuality(caps, fd.Format, 0)

		c.JSON(http.StatusOK, DetectResponse{
			RequestID:      middleware.GetRequestID(c),
			CacheHit:       result.CacheHit,
			DurationMicros: result.Duration.Microseconds(),
			StrategiesRun:  result.StrategiesRun,
			Capabilities:   caps,
			Budget:         d.Budget(caps),
			Format:         fd,
			Quality:        qd,
		})
	}
}
