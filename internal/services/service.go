/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
    "context"
    "fmt"
    "strings"
    "sync"
    "time"

    "github.com/HamedShams/sprint-lens/internal/analysis"
    "github.com/HamedShams/sprint-lens/internal/config"
    "github.com/HamedShams/sprint-lens/internal/domain"
    "github.com/HamedShams/sprint-lens/internal/repo"
    "github.com/rs/zerolog"
)

// Store handles are explicit and passed in at construction; there is no
// ambient global state. The repo satisfies all of them.
type InsightStore interface {
    SaveInsight(ctx context.Context, in domain.Insight) (string, error)
    ActiveInsights(ctx context.Context, windowDays int) ([]domain.Insight, error)
    ResolveInsight(ctx context.Context, id string) (bool, error)
}

type MetricStore interface {
    RecordSnapshot(ctx context.Context, s domain.MetricSnapshot) error
    SnapshotHistory(ctx context.Context, metric string, windowDays int) ([]domain.MetricSnapshot, error)
    PurgeSnapshots(ctx context.Context, retentionDays int) (int64, error)
}

type IssueStore interface {
    UpsertIssues(ctx context.Context, issues []domain.Issue) error
    ListIssues(ctx context.Context) ([]domain.Issue, error)
}

type RunLog interface {
    StartAnalysisRun(ctx context.Context) (int64, error)
    FinishAnalysisRun(ctx context.Context, id int64, issuesSeen, insightsFound, healthScore int, success bool, errStr string) error
    GetLastRun(ctx context.Context) (*repo.LastRun, error)
    LastSuccessfulRunStart(ctx context.Context) (*time.Time, error)
}

type LLM interface {
    Summarize(ctx context.Context, payload map[string]any) (string, error)
}

type Notifier interface {
    SendMessage(ctx context.Context, chatID int64, text string) error
}

type Service struct {
    cfg      config.Config
    log      zerolog.Logger
    issues   IssueStore
    insights InsightStore
    metrics  MetricStore
    runs     RunLog
    llm      LLM
    tg       Notifier
    engine   *analysis.Engine

    mu      sync.RWMutex
    current []domain.Issue
}

func New(cfg config.Config, log zerolog.Logger, issues IssueStore, insights InsightStore, metrics MetricStore, runs RunLog, llm LLM, tg Notifier) *Service {
    rules := analysis.DefaultRules()
    if cfg.RulesFile != "" {
        if loaded, err := analysis.LoadRulesFile(cfg.RulesFile, rules); err == nil {
            rules = loaded
            log.Info().Int("rules", len(rules)).Str("file", cfg.RulesFile).Msg("rules loaded")
        }
    }
    return &Service{
        cfg: cfg, log: log,
        issues: issues, insights: insights, metrics: metrics, runs: runs,
        llm: llm, tg: tg,
        engine: analysis.NewEngine(rules, insights, log, cfg.WorkersRules),
    }
}

// Ingest validates and stores a freshly parsed issue collection. Records
// missing a key are rejected individually; the rest of the pass continues.
// Persistence is best-effort: a storage failure never loses the in-memory
// collection.
func (s *Service) Ingest(ctx context.Context, issues []domain.Issue) (accepted, rejected int) {
    clean := make([]domain.Issue, 0, len(issues))
    for _, i := range issues {
        if strings.TrimSpace(i.Key) == "" {
            rejected++
            s.log.Warn().Str("title", i.Title).Msg("ingest: dropping record without key")
            continue
        }
        clean = append(clean, i)
    }
    s.mu.Lock()
    s.current = clean
    s.mu.Unlock()
    if s.issues != nil {
        if err := s.issues.UpsertIssues(ctx, clean); err != nil {
            s.log.Error().Err(err).Msg("ingest: persist failed; keeping in-memory collection")
        }
    }
    return len(clean), rejected
}

// snapshot returns the collection to analyze: the last ingested batch, or the
// persisted copy when the process restarted since the last ingest.
func (s *Service) snapshot(ctx context.Context) []domain.Issue {
    s.mu.RLock()
    cur := s.current
    s.mu.RUnlock()
    if len(cur) > 0 { return cur }
    if s.issues == nil { return nil }
    loaded, err := s.issues.ListIssues(ctx)
    if err != nil { s.log.Error().Err(err).Msg("issue snapshot load failed"); return nil }
    return loaded
}

func (s *Service) FeatureTree(ctx context.Context) []domain.FeatureNode {
    return analysis.BuildFeatureTree(s.snapshot(ctx))
}

func (s *Service) DependencyGraph(ctx context.Context) domain.DependencyGraph {
    return analysis.BuildDependencyGraph(s.snapshot(ctx))
}

func (s *Service) Metrics(ctx context.Context, mode string) domain.MetricsReport {
    return analysis.CalculateMetrics(s.snapshot(ctx), s.resolveMode(mode), s.cfg.SprintName)
}

func (s *Service) resolveMode(mode string) domain.SummaryMode {
    switch strings.ToLower(strings.TrimSpace(mode)) {
    case "kanban": return domain.ModeKanban
    case "scrum": return domain.ModeScrum
    case "": return domain.SummaryMode(s.cfg.BoardMode)
    default: return domain.SummaryMode(s.cfg.BoardMode)
    }
}

type passResult struct {
    issues   []domain.Issue
    insights []domain.Insight
    score    int
    metrics  domain.MetricsReport
}

// pass runs the synchronous pipeline: rules, health score, metric snapshots.
// Each matched rule was already persisted by the engine; snapshot persistence
// is likewise best-effort and never blocks the in-memory result.
func (s *Service) pass(ctx context.Context, issues []domain.Issue) passResult {
    if issues == nil { issues = s.snapshot(ctx) }
    var runID int64
    if s.runs != nil {
        id, err := s.runs.StartAnalysisRun(ctx)
        if err != nil { s.log.Error().Err(err).Msg("start analysis run failed") } else { runID = id }
    }
    insights := s.engine.Run(ctx, issues)
    score := analysis.HealthScore(issues, insights)
    metrics := analysis.CalculateMetrics(issues, domain.SummaryMode(s.cfg.BoardMode), s.cfg.SprintName)
    s.recordSnapshots(ctx, metrics)
    if s.runs != nil && runID != 0 {
        _ = s.runs.FinishAnalysisRun(ctx, runID, len(issues), len(insights), score, true, "")
    }
    s.log.Info().Int("issues", len(issues)).Int("insights", len(insights)).Int("health", score).Msg("analysis pass done")
    return passResult{issues: issues, insights: insights, score: score, metrics: metrics}
}

func (s *Service) recordSnapshots(ctx context.Context, m domain.MetricsReport) {
    if s.metrics == nil { return }
    now := time.Now().UTC()
    snaps := []domain.MetricSnapshot{
        {Metric: "blocked_count", Value: float64(m.Summary.Blocked), Mode: string(m.Mode), At: now},
    }
    if m.Scrum != nil {
        snaps = append(snaps, domain.MetricSnapshot{
            Metric: "velocity", Value: m.Scrum.Velocity, Mode: string(m.Mode),
            Metadata: map[string]string{"sprint": m.Scrum.Sprint}, At: now,
        })
    }
    if m.Kanban != nil {
        snaps = append(snaps, domain.MetricSnapshot{Metric: "wip_count", Value: float64(m.Kanban.WIPCount), Mode: string(m.Mode), At: now})
    }
    for _, sn := range snaps {
        if err := s.metrics.RecordSnapshot(ctx, sn); err != nil {
            s.log.Error().Err(err).Str("metric", sn.Metric).Msg("snapshot persist failed")
        }
    }
}

// RunAnalysis evaluates the rule set against the given collection (or the
// current snapshot when nil) and returns the severity-ranked insight batch.
func (s *Service) RunAnalysis(ctx context.Context, issues []domain.Issue) []domain.Insight {
    return s.pass(ctx, issues).insights
}

func (s *Service) ActiveInsights(ctx context.Context, windowDays int) ([]domain.Insight, error) {
    if windowDays <= 0 { windowDays = s.cfg.InsightWindowDays }
    return s.insights.ActiveInsights(ctx, windowDays)
}

func (s *Service) ResolveInsight(ctx context.Context, id string) (bool, error) {
    return s.insights.ResolveInsight(ctx, id)
}

func (s *Service) MetricTrend(ctx context.Context, metric string, windowDays int) ([]domain.MetricSnapshot, error) {
    return s.metrics.SnapshotHistory(ctx, metric, windowDays)
}

// TrendDelta compares the average of the newest 3 snapshots against the
// average of the 3 before them. Zero until 6 snapshots exist.
func TrendDelta(snaps []domain.MetricSnapshot) float64 {
    if len(snaps) < 6 { return 0 }
    avg := func(part []domain.MetricSnapshot) float64 {
        sum := 0.0
        for _, s := range part { sum += s.Value }
        return sum / float64(len(part))
    }
    n := len(snaps)
    return avg(snaps[n-3:]) - avg(snaps[n-6:n-3])
}

// DailyReport runs a full pass and assembles the stand-up summary. The LLM
// narrative is optional and best-effort; its payload is redacted first.
func (s *Service) DailyReport(ctx context.Context, issues []domain.Issue) domain.Report {
    res := s.pass(ctx, issues)
    var since *time.Time
    if s.runs != nil {
        if t, err := s.runs.LastSuccessfulRunStart(ctx); err == nil { since = t }
    }
    rep := assembleReport(time.Now().UTC(), res.issues, res.insights, res.score, res.metrics, since)
    s.appendTrendPoint(ctx, &rep)
    if s.llm != nil && strings.TrimSpace(s.cfg.OpenAIKey) != "" {
        payload := summaryPayload(redactReport(rep))
        if text, err := s.llm.Summarize(ctx, payload); err == nil {
            rep.Summary = text
        } else {
            s.log.Error().Err(err).Msg("llm summary failed; report stays numeric")
        }
    }
    return rep
}

// appendTrendPoint adds a discussion point when the headline metric for the
// configured board mode moved between the last two 3-snapshot windows.
func (s *Service) appendTrendPoint(ctx context.Context, rep *domain.Report) {
    if s.metrics == nil { return }
    metric := "velocity"
    if s.cfg.BoardMode == "kanban" { metric = "wip_count" }
    snaps, err := s.metrics.SnapshotHistory(ctx, metric, 30)
    if err != nil { s.log.Error().Err(err).Str("metric", metric).Msg("trend history load failed"); return }
    if d := TrendDelta(snaps); d != 0 {
        dir := "up"
        if d < 0 { dir = "down" }
        rep.DiscussionPoints = append(rep.DiscussionPoints, fmt.Sprintf("%s trending %s (%+.1f vs previous window)", metric, dir, d))
    }
}

// DeliverReport renders the report and sends it to the configured chats,
// chunked to the Bot API message limit.
func (s *Service) DeliverReport(ctx context.Context, rep domain.Report) {
    if s.tg == nil || len(s.cfg.TelegramChatIDs) == 0 { return }
    text := renderReport(rep)
    for _, part := range chunkText(text, 3800) {
        for _, chat := range s.cfg.TelegramChatIDs {
            if err := s.tg.SendMessage(ctx, chat, part); err != nil {
                s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
            }
        }
    }
}

// RunScheduled is the cron entrypoint: re-analyze the persisted snapshot,
// deliver the report, then purge expired metric snapshots.
func (s *Service) RunScheduled(ctx context.Context) error {
    issues := s.snapshot(ctx)
    if len(issues) == 0 { s.log.Info().Msg("scheduled run: no issues ingested yet"); return nil }
    rep := s.DailyReport(ctx, issues)
    s.DeliverReport(ctx, rep)
    if s.metrics != nil && s.cfg.RetentionDays > 0 {
        if n, err := s.metrics.PurgeSnapshots(ctx, s.cfg.RetentionDays); err != nil {
            s.log.Error().Err(err).Msg("snapshot purge failed")
        } else if n > 0 {
            s.log.Info().Int64("purged", n).Msg("snapshot retention cleanup")
        }
    }
    return nil
}

func (s *Service) GetLastRun(ctx context.Context) (any, error) {
    lr, err := s.runs.GetLastRun(ctx)
    if err != nil { return nil, err }
    return lr, nil
}

func summaryPayload(rep domain.Report) map[string]any {
    msgs := make([]string, 0, 8)
    for _, ins := range rep.Categories {
        for _, in := range ins { msgs = append(msgs, fmt.Sprintf("[%s] %s", in.Severity, in.Message)) }
    }
    return map[string]any{
        "health_score":      rep.HealthScore,
        "summary_counts":    rep.Metrics.Summary,
        "discussion_points": rep.DiscussionPoints,
        "insights":          msgs,
    }
}

// chunkText splits text into chunks of up to max runes, attempting to break on line boundaries.
func chunkText(s string, max int) []string {
    if max <= 0 { return []string{s} }
    var chunks []string
    lines := strings.Split(s, "\n")
    cur := ""
    curlen := 0
    for _, ln := range lines {
        rl := len([]rune(ln))
        // If a single line exceeds max, hard-split the line
        if rl > max {
            if curlen > 0 { chunks = append(chunks, cur); cur = ""; curlen = 0 }
            r := []rune(ln)
            for i := 0; i < rl; i += max {
                j := i + max
                if j > rl { j = rl }
                chunks = append(chunks, string(r[i:j]))
            }
            continue
        }
        extra := rl
        if curlen > 0 { extra += 1 }
        if curlen+extra > max {
            chunks = append(chunks, cur)
            cur = ln
            curlen = rl
        } else {
            if curlen == 0 { cur = ln; curlen = rl } else { cur += "\n" + ln; curlen += extra }
        }
    }
    if curlen > 0 { chunks = append(chunks, cur) }
    if len(chunks) == 0 { chunks = []string{""} }
    return chunks
}
