// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/Kodiak/services/detector/engine"
	"github.com/AleutianAI/Kodiak/services/detector/handlers"
	"github.com/AleutianAI/Kodiak/services/detector/middleware"
)

// SetupRoutes registers all detector endpoints on the router.
func SetupRoutes(router *gin.Engine, d *engine.Detector, enableMetrics bool) {
	router.GET("/health", handlers.HealthCheck)
	if enableMetrics {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.Detection(d))
	{
		v1.GET("/detect", handlers.Detect(d))
		v1.POST("/options", handlers.OptimizedOptions(d))
		// Cache administration routes
		cache := v1.Group("/cache")
		{
			cache.GET("/stats", handlers.CacheStats(d))
			cache.DELETE("", handlers.ClearCache(d))
		}
	}
}
