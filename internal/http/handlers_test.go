package http

import (
    "context"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/gin-gonic/gin"
    "github.com/HamedShams/sprint-lens/internal/config"
    "github.com/HamedShams/sprint-lens/internal/domain"
    "github.com/rs/zerolog"
)

type stubService struct {
    ingested    []domain.Issue
    insights    []domain.Insight
    resolved    map[string]bool
    trend       []domain.MetricSnapshot
    lastMode    string
    lastWindow  int
    trendMetric string
}

func (s *stubService) Ingest(ctx context.Context, issues []domain.Issue) (int, int) {
    s.ingested = issues
    rejected := 0
    for _, i := range issues {
        if i.Key == "" { rejected++ }
    }
    return len(issues) - rejected, rejected
}

func (s *stubService) FeatureTree(ctx context.Context) []domain.FeatureNode { return []domain.FeatureNode{} }

func (s *stubService) DependencyGraph(ctx context.Context) domain.DependencyGraph {
    return domain.DependencyGraph{}
}

func (s *stubService) Metrics(ctx context.Context, mode string) domain.MetricsReport {
    s.lastMode = mode
    return domain.MetricsReport{Mode: domain.ModeKanban}
}

func (s *stubService) RunAnalysis(ctx context.Context, issues []domain.Issue) []domain.Insight {
    return s.insights
}

func (s *stubService) ActiveInsights(ctx context.Context, windowDays int) ([]domain.Insight, error) {
    s.lastWindow = windowDays
    return nil, nil
}

func (s *stubService) ResolveInsight(ctx context.Context, id string) (bool, error) {
    return s.resolved[id], nil
}

func (s *stubService) MetricTrend(ctx context.Context, metric string, windowDays int) ([]domain.MetricSnapshot, error) {
    s.trendMetric = metric
    s.lastWindow = windowDays
    return s.trend, nil
}

func (s *stubService) DailyReport(ctx context.Context, issues []domain.Issue) domain.Report {
    return domain.Report{HealthScore: 77}
}

func (s *stubService) GetLastRun(ctx context.Context) (any, error) { return map[string]any{"success": true}, nil }

func newTestRouter(s *stubService) *gin.Engine {
    gin.SetMode(gin.TestMode)
    return NewRouter(config.Config{AppEnv: "test"}, zerolog.Nop(), s)
}

func do(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
    t.Helper()
    var req *http.Request
    if body != "" {
        req = httptest.NewRequest(method, path, strings.NewReader(body))
        req.Header.Set("Content-Type", "application/json")
    } else {
        req = httptest.NewRequest(method, path, nil)
    }
    w := httptest.NewRecorder()
    r.ServeHTTP(w, req)
    return w
}

func TestIngestIssues_AcceptedRejectedCounts(t *testing.T) {
    s := &stubService{}
    w := do(t, newTestRouter(s), http.MethodPost, "/issues", `[{"key":"A-1"},{"title":"no key"}]`)
    if w.Code != http.StatusOK { t.Fatalf("status %d: %s", w.Code, w.Body.String()) }
    var out map[string]int
    if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil { t.Fatalf("bad json: %v", err) }
    if out["accepted"] != 1 || out["rejected"] != 1 { t.Fatalf("counts wrong: %#v", out) }
}

func TestIngestIssues_RejectsMalformedBody(t *testing.T) {
    w := do(t, newTestRouter(&stubService{}), http.MethodPost, "/issues", `{"not":"an array"`)
    if w.Code != http.StatusBadRequest { t.Fatalf("expected 400, got %d", w.Code) }
}

func TestMetrics_ModeQueryPassedThrough(t *testing.T) {
    s := &stubService{}
    w := do(t, newTestRouter(s), http.MethodGet, "/metrics?mode=kanban", "")
    if w.Code != http.StatusOK { t.Fatalf("status %d", w.Code) }
    if s.lastMode != "kanban" { t.Fatalf("mode not passed: %q", s.lastMode) }
}

func TestActiveInsights_NilBecomesEmptyArray(t *testing.T) {
    s := &stubService{}
    w := do(t, newTestRouter(s), http.MethodGet, "/insights?window=7", "")
    if w.Code != http.StatusOK { t.Fatalf("status %d", w.Code) }
    if strings.TrimSpace(w.Body.String()) != "[]" { t.Fatalf("expected empty array, got %q", w.Body.String()) }
    if s.lastWindow != 7 { t.Fatalf("window not passed: %d", s.lastWindow) }
}

func TestResolveInsight_NotFoundIs404(t *testing.T) {
    s := &stubService{resolved: map[string]bool{"known": true}}
    r := newTestRouter(s)
    if w := do(t, r, http.MethodPost, "/insights/known/resolve", ""); w.Code != http.StatusOK {
        t.Fatalf("expected 200, got %d", w.Code)
    }
    if w := do(t, r, http.MethodPost, "/insights/missing/resolve", ""); w.Code != http.StatusNotFound {
        t.Fatalf("expected 404, got %d", w.Code)
    }
}

func TestMetricTrend_DefaultWindow(t *testing.T) {
    s := &stubService{}
    w := do(t, newTestRouter(s), http.MethodGet, "/metrics/history/velocity", "")
    if w.Code != http.StatusOK { t.Fatalf("status %d", w.Code) }
    if s.trendMetric != "velocity" || s.lastWindow != 30 {
        t.Fatalf("params wrong: metric=%q window=%d", s.trendMetric, s.lastWindow)
    }
}

func TestHealthz(t *testing.T) {
    w := do(t, newTestRouter(&stubService{}), http.MethodGet, "/healthz", "")
    if w.Code != http.StatusOK { t.Fatalf("status %d", w.Code) }
}
