package analysis

import (
    "context"
    "errors"
    "strings"
    "sync"
    "testing"

    "github.com/HamedShams/sprint-lens/internal/domain"
    "github.com/rs/zerolog"
)

type fakeSaver struct {
    mu    sync.Mutex
    saved []domain.Insight
    fail  bool
}

func (f *fakeSaver) SaveInsight(ctx context.Context, in domain.Insight) (string, error) {
    f.mu.Lock(); defer f.mu.Unlock()
    if f.fail { return "", errors.New("storage unavailable") }
    f.saved = append(f.saved, in)
    return in.ID, nil
}

func blockedIssues(n int) []domain.Issue {
    out := make([]domain.Issue, 0, n)
    for i := 0; i < n; i++ {
        out = append(out, domain.Issue{Key: string(rune('A'+i)) + "-1", Status: "Blocked", Type: "story"})
    }
    return out
}

func TestEngine_BlockedRuleFiresOncePerRule(t *testing.T) {
    saver := &fakeSaver{}
    e := NewEngine([]domain.InsightRule{DefaultRules()[0]}, saver, zerolog.Nop(), 2)
    out := e.Run(context.Background(), blockedIssues(5))
    if len(out) != 1 { t.Fatalf("expected exactly 1 insight, got %#v", out) }
    in := out[0]
    if in.Rule != "blocked_issues" || in.Severity != "high" { t.Fatalf("unexpected insight: %#v", in) }
    if len(in.Issues) != 5 { t.Fatalf("expected 5 affected issues, got %#v", in.Issues) }
    if !strings.Contains(in.Message, "5") { t.Fatalf("count not rendered: %q", in.Message) }
    if len(saver.saved) != 1 { t.Fatalf("insight not persisted: %#v", saver.saved) }
}

func TestEngine_MessageShowsFirstFiveKeysOnly(t *testing.T) {
    issues := make([]domain.Issue, 0, 8)
    for i := 0; i < 8; i++ {
        issues = append(issues, domain.Issue{Key: "X-" + string(rune('0'+i)), Status: "Blocked"})
    }
    e := NewEngine([]domain.InsightRule{DefaultRules()[0]}, nil, zerolog.Nop(), 1)
    out := e.Run(context.Background(), issues)
    if len(out) != 1 { t.Fatalf("expected 1 insight, got %d", len(out)) }
    if len(out[0].Issues) != 8 { t.Fatalf("affected keys truncated: %#v", out[0].Issues) }
    if strings.Contains(out[0].Message, "X-5") { t.Fatalf("message should show only first 5 keys: %q", out[0].Message) }
    if !strings.Contains(out[0].Message, "X-4") { t.Fatalf("message missing 5th key: %q", out[0].Message) }
}

func TestEngine_SeverityRankOrderWithRegistrationTiebreak(t *testing.T) {
    rules := []domain.InsightRule{
        {Name: "warn_a", Condition: "in progress", Severity: "warning", Message: "{count}", Category: "flow"},
        {Name: "low_b", Condition: "story points missing", Severity: "low", Message: "{count}", Category: "hygiene"},
        {Name: "warn_c", Condition: "unassigned", Severity: "warning", Message: "{count}", Category: "hygiene"},
        {Name: "high_d", Condition: "blocked", Severity: "high", Message: "{count}", Category: "blockers"},
    }
    issues := []domain.Issue{
        {Key: "R-1", Type: "story", Status: "In Progress"},
        {Key: "R-2", Type: "story", Status: "Blocked"},
    }
    e := NewEngine(rules, nil, zerolog.Nop(), 4)
    out := e.Run(context.Background(), issues)
    var names []string
    for _, in := range out { names = append(names, in.Rule) }
    want := []string{"high_d", "low_b", "warn_a", "warn_c"}
    if strings.Join(names, ",") != strings.Join(want, ",") {
        t.Fatalf("order wrong: got %v want %v", names, want)
    }
}

func TestEngine_UnknownConditionNeverMatches(t *testing.T) {
    rules := []domain.InsightRule{{Name: "nonsense", Condition: "issues with purple flags", Severity: "high", Message: "{count}"}}
    e := NewEngine(rules, nil, zerolog.Nop(), 1)
    out := e.Run(context.Background(), blockedIssues(3))
    if len(out) != 0 { t.Fatalf("unparseable rule matched: %#v", out) }
}

func TestEngine_StorageFailureKeepsInMemoryResult(t *testing.T) {
    saver := &fakeSaver{fail: true}
    e := NewEngine(nil, saver, zerolog.Nop(), 2)
    out := e.Run(context.Background(), blockedIssues(2))
    if len(out) == 0 { t.Fatalf("analysis result lost on storage failure") }
}

func TestParseCondition_Qualifiers(t *testing.T) {
    cases := []struct {
        cond  string
        issue domain.Issue
        match bool
    }{
        {"status is blocked", domain.Issue{Key: "1", Status: "blocked"}, true},
        {"status is blocked", domain.Issue{Key: "1", Status: "Done"}, false},
        {"done", domain.Issue{Key: "1", Status: "Resolved"}, true},
        {"unassigned and in progress", domain.Issue{Key: "1", Status: "In Progress"}, true},
        {"unassigned and in progress", domain.Issue{Key: "1", Status: "In Progress", Assignee: "eve"}, false},
        {"missing labels", domain.Issue{Key: "1"}, true},
        {"missing labels", domain.Issue{Key: "1", Labels: []string{"api"}}, false},
        {"story points missing", domain.Issue{Key: "1", Type: "story"}, true},
        {"story points missing", domain.Issue{Key: "1", Type: "story", Points: 2}, false},
        {"story points missing", domain.Issue{Key: "1", Type: "bug"}, false},
        {"story points > 8", domain.Issue{Key: "1", Type: "story", Points: 13}, true},
        {"story points > 8", domain.Issue{Key: "1", Type: "story", Points: 8}, false},
        {"type is bug", domain.Issue{Key: "1", Type: "Bug"}, true},
    }
    for _, c := range cases {
        preds := parseCondition(c.cond)
        if len(preds) == 0 { t.Fatalf("condition %q produced no predicates", c.cond) }
        got := true
        for _, p := range preds {
            if !p.matches(c.issue) { got = false; break }
        }
        if got != c.match {
            t.Fatalf("condition %q vs %#v: got %v want %v", c.cond, c.issue, got, c.match)
        }
    }
}

func TestDefaultRules_CoverShippedSet(t *testing.T) {
    names := map[string]string{}
    for _, r := range DefaultRules() { names[r.Name] = r.Severity }
    want := map[string]string{
        "blocked_issues": "high", "unassigned_in_progress": "medium",
        "stories_missing_points": "low", "high_wip": "warning",
    }
    for n, sev := range want {
        if names[n] != sev { t.Fatalf("default rule %s severity %q, want %q", n, names[n], sev) }
    }
}
