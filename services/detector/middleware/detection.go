// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package middleware attaches detection results to Gin request contexts
// so handlers share one detection per request.
package middleware

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/Kodiak/services/detector/datatypes"
	"github.com/AleutianAI/Kodiak/services/detector/engine"
)

// Context keys set by Detection.
const (
	ContextKeyCapabilities = "kodiak.capabilities"
	ContextKeyResult       = "kodiak.detectionResult"
	ContextKeyRequestID    = "kodiak.requestID"
)

// Debug response headers describing the detection outcome.
const (
	HeaderRequestID   = "X-Kodiak-Request-Id"
	HeaderBrowser     = "X-Kodiak-Browser"
	HeaderNetworkTier = "X-Kodiak-Network-Tier"
	HeaderDeviceClass = "X-Kodiak-Device-Class"
	HeaderCacheHit    = "X-Kodiak-Cache"
)

// Detection runs the detector once per request, stores the result on
// the Gin context, and annotates the response with debug headers.
// Detection never aborts the request.
func Detection(d *engine.Detector) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		result := d.DetectDetailed(c.Request.Context(), c.Request.Header)
		caps := result.Capabilities

		c.Set(ContextKeyRequestID, requestID)
		c.Set(ContextKeyCapabilities, caps)
		c.Set(ContextKeyResult, result)

		c.Header(HeaderRequestID, requestID)
		c.Header(HeaderBrowser, fmt.Sprintf("%s/%s", caps.Browser.Name,
			strconv.FormatFloat(caps.Browser.Version, 'f', -1, 64)))
		c.Header(HeaderNetworkTier, string(caps.Network.Tier))
		c.Header(HeaderDeviceClass, string(caps.Device.Class))
		if result.CacheHit {
			c.Header(HeaderCacheHit, "hit")
		} else {
			c.Header(HeaderCacheHit, "miss")
		}

		c.Next()
	}
}

// GetCapabilities returns the detection record stored by Detection, or
// false when the middleware did not run.
func GetCapabilities(c *gin.Context) (*datatypes.ClientCapabilities, bool) {
	v, ok := c.Get(ContextKeyCapabilities)
	if !ok {
		return nil, false
	}
	caps, ok := v.(*datatypes.ClientCapabilities)
	return caps, ok
}

// GetResult returns the detailed detection result stored by Detection.
func GetResult(c *gin.Context) (engine.Result, bool) {
	v, ok := c.Get(ContextKeyResult)
	if !ok {
		return engine.Result{}, false
	}
	r, ok := v.(engine.Result)
	return r, ok
}

// GetRequestID returns the request ID assigned by Detection, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(ContextKeyRequestID)
}
