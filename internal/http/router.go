/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "github.com/gin-gonic/gin"
    "github.com/HamedShams/sprint-lens/internal/config"
    "github.com/rs/zerolog"
)

func NewRouter(cfg config.Config, log zerolog.Logger, svc any) *gin.Engine {
    if cfg.AppEnv != "dev" { gin.SetMode(gin.ReleaseMode) }
    r := gin.New()
    r.Use(gin.Recovery())
    r.Use(func(c *gin.Context){
        c.Next()
        log.Info().Str("m", c.Request.Method).Str("p", c.FullPath()).Int("s", c.Writer.Status()).Msg("http")
    })

    h := NewHandlers(cfg, log, svc)

    r.GET("/healthz", h.Healthz)
    r.POST("/issues", h.IngestIssues)
    r.GET("/tree", h.FeatureTree)
    r.GET("/graph", h.DependencyGraph)
    r.GET("/metrics", h.Metrics)
    r.POST("/analysis/run", h.RunAnalysis)
    r.GET("/insights", h.ActiveInsights)
    r.POST("/insights/:id/resolve", h.ResolveInsight)
    r.GET("/metrics/history/:metric", h.MetricTrend)
    r.GET("/report", h.DailyReport)
    r.GET("/admin/last-run", h.LastRun)

    return r
}
