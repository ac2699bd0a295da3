/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
    "context"
    "net/http"
    "strconv"

    "github.com/gin-gonic/gin"
    "github.com/HamedShams/sprint-lens/internal/config"
    "github.com/HamedShams/sprint-lens/internal/domain"
    "github.com/rs/zerolog"
)

type service interface {
    Ingest(ctx context.Context, issues []domain.Issue) (int, int)
    FeatureTree(ctx context.Context) []domain.FeatureNode
    DependencyGraph(ctx context.Context) domain.DependencyGraph
    Metrics(ctx context.Context, mode string) domain.MetricsReport
    RunAnalysis(ctx context.Context, issues []domain.Issue) []domain.Insight
    ActiveInsights(ctx context.Context, windowDays int) ([]domain.Insight, error)
    ResolveInsight(ctx context.Context, id string) (bool, error)
    MetricTrend(ctx context.Context, metric string, windowDays int) ([]domain.MetricSnapshot, error)
    DailyReport(ctx context.Context, issues []domain.Issue) domain.Report
    GetLastRun(ctx context.Context) (any, error)
}

type Handlers struct {
    cfg config.Config
    log zerolog.Logger
    svc service
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc any) *Handlers {
    return &Handlers{cfg: cfg, log: log, svc: svc.(service)}
}

func (h *Handlers) Healthz(c *gin.Context) {
    c.JSON(http.StatusOK, gin.H{"ok": true})
}

// IngestIssues accepts a parsed issue collection from the ingestion layer.
func (h *Handlers) IngestIssues(c *gin.Context) {
    var issues []domain.Issue
    if err := c.ShouldBindJSON(&issues); err != nil {
        c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
        return
    }
    accepted, rejected := h.svc.Ingest(c.Request.Context(), issues)
    c.JSON(http.StatusOK, gin.H{"accepted": accepted, "rejected": rejected})
}

func (h *Handlers) FeatureTree(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.FeatureTree(c.Request.Context()))
}

func (h *Handlers) DependencyGraph(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.DependencyGraph(c.Request.Context()))
}

func (h *Handlers) Metrics(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.Metrics(c.Request.Context(), c.Query("mode")))
}

// RunAnalysis triggers a pass over the current snapshot, or over a collection
// supplied in the body.
func (h *Handlers) RunAnalysis(c *gin.Context) {
    var issues []domain.Issue
    if c.Request.ContentLength > 0 {
        if err := c.ShouldBindJSON(&issues); err != nil {
            c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
            return
        }
    }
    c.JSON(http.StatusOK, h.svc.RunAnalysis(c.Request.Context(), issues))
}

func (h *Handlers) ActiveInsights(c *gin.Context) {
    window, _ := strconv.Atoi(c.DefaultQuery("window", "0"))
    out, err := h.svc.ActiveInsights(c.Request.Context(), window)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if out == nil { out = []domain.Insight{} }
    c.JSON(http.StatusOK, out)
}

func (h *Handlers) ResolveInsight(c *gin.Context) {
    ok, err := h.svc.ResolveInsight(c.Request.Context(), c.Param("id"))
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if !ok {
        c.JSON(http.StatusNotFound, gin.H{"error": "insight not found"})
        return
    }
    c.JSON(http.StatusOK, gin.H{"resolved": true})
}

func (h *Handlers) MetricTrend(c *gin.Context) {
    window, _ := strconv.Atoi(c.DefaultQuery("window", "30"))
    out, err := h.svc.MetricTrend(c.Request.Context(), c.Param("metric"), window)
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    if out == nil { out = []domain.MetricSnapshot{} }
    c.JSON(http.StatusOK, out)
}

func (h *Handlers) DailyReport(c *gin.Context) {
    c.JSON(http.StatusOK, h.svc.DailyReport(c.Request.Context(), nil))
}

func (h *Handlers) LastRun(c *gin.Context) {
    lr, err := h.svc.GetLastRun(c.Request.Context())
    if err != nil {
        c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
        return
    }
    c.JSON(http.StatusOK, lr)
}
