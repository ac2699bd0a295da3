package services

import (
    "strings"
    "testing"
    "time"

    "github.com/HamedShams/sprint-lens/internal/analysis"
    "github.com/HamedShams/sprint-lens/internal/domain"
)

func ts(t time.Time) *time.Time { return &t }

func TestAssembleReport_SectionsFromOnePass(t *testing.T) {
    now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
    issues := []domain.Issue{
        {Key: "P-1", Title: "search index", Status: "Blocked", Assignee: "alice"},
        {Key: "P-2", Title: "login page", Status: "Done", Assignee: "bob", UpdatedAt: ts(now.Add(-2 * time.Hour))},
        {Key: "P-3", Title: "old cleanup", Status: "Done", UpdatedAt: ts(now.Add(-48 * time.Hour))},
        {Key: "P-4", Title: "billing", Status: "In Progress", Assignee: "carol"},
        {Key: "P-5", Title: "drive-by", Status: "In Review"},
    }
    insights := []domain.Insight{
        {Rule: "blocked_issues", Severity: "high", Message: "1 blocked", Category: "blockers"},
        {Rule: "odd", Severity: "low", Message: "misc"},
    }
    metrics := analysis.CalculateMetrics(issues, domain.ModeScrum, "")

    rep := assembleReport(now, issues, insights, 42, metrics, nil)

    if len(rep.Blockers) != 1 || rep.Blockers[0].Label != "P-1: search index (alice)" {
        t.Fatalf("blockers wrong: %#v", rep.Blockers)
    }
    if len(rep.CompletedRecently) != 1 || rep.CompletedRecently[0].Key != "P-2" {
        t.Fatalf("completed window wrong: %#v", rep.CompletedRecently)
    }
    if got := rep.InProgress["carol"]; len(got) != 1 || got[0] != "P-4" {
        t.Fatalf("in-progress grouping wrong: %#v", rep.InProgress)
    }
    if got := rep.InProgress["Unassigned"]; len(got) != 1 || got[0] != "P-5" {
        t.Fatalf("unassigned fallback wrong: %#v", rep.InProgress)
    }
    if len(rep.Categories["blockers"]) != 1 || len(rep.Categories["general"]) != 1 {
        t.Fatalf("category grouping wrong: %#v", rep.Categories)
    }
    if rep.HealthScore != 42 { t.Fatalf("score not carried: %d", rep.HealthScore) }
}

func TestAssembleReport_SinceOverridesDefaultWindow(t *testing.T) {
    now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
    issues := []domain.Issue{
        {Key: "P-1", Status: "Done", UpdatedAt: ts(now.Add(-30 * time.Hour))},
    }
    metrics := analysis.CalculateMetrics(issues, domain.ModeScrum, "")

    rep := assembleReport(now, issues, nil, 100, metrics, nil)
    if len(rep.CompletedRecently) != 0 { t.Fatalf("24h default should exclude: %#v", rep.CompletedRecently) }

    since := now.Add(-72 * time.Hour)
    rep = assembleReport(now, issues, nil, 100, metrics, &since)
    if len(rep.CompletedRecently) != 1 { t.Fatalf("explicit since should include: %#v", rep.CompletedRecently) }
}

func TestAssembleReport_DiscussionPoints(t *testing.T) {
    now := time.Now().UTC()
    var issues []domain.Issue
    for i := 0; i < wipDiscussionThreshold+1; i++ {
        issues = append(issues, domain.Issue{Key: "W-" + string(rune('a'+i)), Status: "In Progress"})
    }
    issues = append(issues, domain.Issue{Key: "W-z", Status: "Blocked"})
    insights := []domain.Insight{{Severity: "critical", Message: "x"}, {Severity: "high", Message: "y"}, {Severity: "low", Message: "z"}}
    metrics := analysis.CalculateMetrics(issues, domain.ModeKanban, "")

    rep := assembleReport(now, issues, insights, 10, metrics, nil)
    joined := strings.Join(rep.DiscussionPoints, "\n")
    if !strings.Contains(joined, "2 critical/high") { t.Fatalf("urgent count missing: %q", joined) }
    if !strings.Contains(joined, "1 issue(s) blocked") { t.Fatalf("blocked point missing: %q", joined) }
    if !strings.Contains(joined, "WIP is high") { t.Fatalf("wip point missing: %q", joined) }
}

func TestRenderReport_OmitsEmptySections(t *testing.T) {
    rep := domain.Report{
        HealthScore: 88,
        InProgress:  map[string][]string{"bob": {"K-1"}, "alice": {"K-2"}},
        Metrics:     domain.MetricsReport{},
    }
    out := renderReport(rep)
    if strings.Contains(out, "Blockers") { t.Fatalf("empty blockers section rendered: %q", out) }
    if !strings.Contains(out, "88/100") { t.Fatalf("health missing: %q", out) }
    // names sorted
    if strings.Index(out, "alice") > strings.Index(out, "bob") { t.Fatalf("assignees unsorted: %q", out) }
}
