/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analysis

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "regexp"
    "sort"
    "strconv"
    "strings"
    "sync"
    "time"

    "github.com/HamedShams/sprint-lens/internal/domain"
    "github.com/google/uuid"
    "github.com/rs/zerolog"
)

// InsightSaver persists one generated insight. Persistence is per matched
// rule, so a crash mid-pass can leave a partial set for that run.
type InsightSaver interface {
    SaveInsight(ctx context.Context, in domain.Insight) (string, error)
}

// severityRank orders insight batches: critical < high < medium < low <
// warning < anything else.
func severityRank(sev string) int {
    switch strings.ToLower(sev) {
    case "critical": return 0
    case "high": return 1
    case "medium": return 2
    case "low": return 3
    case "warning": return 4
    default: return 5
    }
}

type predKind int

const (
    predStatusEquals predKind = iota
    predStatusDone
    predStatusActive
    predAssigneeUnassigned
    predLabelsEmpty
    predPointsMissing
    predPointsGreaterThan
    predTypeEquals
)

type predicate struct {
    kind      predKind
    value     string
    threshold float64
}

var pointsCmpRe = regexp.MustCompile(`>\s*(\d+(?:\.\d+)?)`)

// parseCondition compiles the declarative condition text into an AND-list of
// typed predicates. Matching on the text is case-insensitive substring, same
// as the qualifiers it replaces: "story points > 8" therefore still implies
// type=story on top of the numeric comparison. An empty result means the rule
// never matches.
func parseCondition(cond string) []predicate {
    c := strings.ToLower(cond)
    var preds []predicate

    if strings.Contains(c, "blocked") { preds = append(preds, predicate{kind: predStatusEquals, value: "blocked"}) }
    if strings.Contains(c, "done") { preds = append(preds, predicate{kind: predStatusDone}) }
    if strings.Contains(c, "in progress") { preds = append(preds, predicate{kind: predStatusActive}) }
    if strings.Contains(c, "unassigned") { preds = append(preds, predicate{kind: predAssigneeUnassigned}) }

    hasPoints := strings.Contains(c, "point")
    if strings.Contains(c, "missing") {
        if strings.Contains(c, "label") { preds = append(preds, predicate{kind: predLabelsEmpty}) }
        if hasPoints { preds = append(preds, predicate{kind: predPointsMissing}) }
    }
    if hasPoints {
        if m := pointsCmpRe.FindStringSubmatch(c); m != nil {
            n, err := strconv.ParseFloat(m[1], 64)
            if err == nil { preds = append(preds, predicate{kind: predPointsGreaterThan, threshold: n}) }
        }
    }
    if strings.Contains(c, "bug") { preds = append(preds, predicate{kind: predTypeEquals, value: "bug"}) }
    if strings.Contains(c, "story") { preds = append(preds, predicate{kind: predTypeEquals, value: "story"}) }

    return preds
}

func (p predicate) matches(i domain.Issue) bool {
    switch p.kind {
    case predStatusEquals:
        return strings.EqualFold(strings.TrimSpace(i.Status), p.value)
    case predStatusDone:
        return isDone(i.Status)
    case predStatusActive:
        return isActive(i.Status)
    case predAssigneeUnassigned:
        return strings.TrimSpace(i.Assignee) == ""
    case predLabelsEmpty:
        return len(i.Labels) == 0
    case predPointsMissing:
        return i.Points == 0
    case predPointsGreaterThan:
        return i.Points > p.threshold
    case predTypeEquals:
        return strings.EqualFold(strings.TrimSpace(i.Type), p.value)
    default:
        return false
    }
}

// DefaultRules ships with the system; callers may override or extend the set.
func DefaultRules() []domain.InsightRule {
    return []domain.InsightRule{
        {
            Name:      "blocked_issues",
            Condition: "status is blocked",
            Severity:  "high",
            Message:   "{count} issue(s) currently blocked: {issues}",
            Category:  "blockers",
        },
        {
            Name:      "unassigned_in_progress",
            Condition: "unassigned and in progress",
            Severity:  "medium",
            Message:   "{count} in-progress issue(s) have no assignee: {issues}",
            Category:  "hygiene",
        },
        {
            Name:      "stories_missing_points",
            Condition: "story points missing",
            Severity:  "low",
            Message:   "{count} story(ies) have no point estimate: {issues}",
            Category:  "hygiene",
        },
        {
            Name:      "high_wip",
            Condition: "in progress",
            Severity:  "warning",
            Message:   "{count} issue(s) in progress: {issues}",
            Category:  "flow",
        },
    }
}

// LoadRulesFile reads extra/override rules from a JSON array. Rules whose name
// matches a built-in replace it; others are appended in file order.
func LoadRulesFile(path string, base []domain.InsightRule) ([]domain.InsightRule, error) {
    data, err := os.ReadFile(path)
    if err != nil { return base, err }
    var extra []domain.InsightRule
    if err := json.Unmarshal(data, &extra); err != nil { return base, err }
    out := make([]domain.InsightRule, len(base))
    copy(out, base)
    for _, r := range extra {
        if strings.TrimSpace(r.Name) == "" { continue }
        replaced := false
        for i := range out {
            if out[i].Name == r.Name { out[i] = r; replaced = true; break }
        }
        if !replaced { out = append(out, r) }
    }
    return out, nil
}

// Engine evaluates rules against an issue collection and persists every
// generated insight immediately. Construct once, run per pass.
type Engine struct {
    rules   []domain.InsightRule
    store   InsightSaver
    log     zerolog.Logger
    workers int
}

func NewEngine(rules []domain.InsightRule, store InsightSaver, log zerolog.Logger, workers int) *Engine {
    if len(rules) == 0 { rules = DefaultRules() }
    if workers <= 0 { workers = 4 }
    return &Engine{rules: rules, store: store, log: log, workers: workers}
}

func (e *Engine) Rules() []domain.InsightRule { return e.rules }

// Run evaluates every rule and returns the batch ordered by severity rank,
// ties broken by rule registration order. Rules are independent, so they run
// on a bounded worker pool; ordering is restored afterwards. Storage failures
// are logged and do not drop the in-memory insight.
func (e *Engine) Run(ctx context.Context, issues []domain.Issue) []domain.Insight {
    type slot struct {
        idx int
        in  *domain.Insight
    }
    jobs := make(chan int)
    results := make(chan slot)
    var wg sync.WaitGroup
    for w := 0; w < e.workers; w++ {
        wg.Add(1)
        go func() {
            defer wg.Done()
            for idx := range jobs {
                results <- slot{idx: idx, in: e.evaluate(ctx, e.rules[idx], issues)}
            }
        }()
    }
    go func() {
        for i := range e.rules { jobs <- i }
        close(jobs)
        wg.Wait()
        close(results)
    }()

    byIdx := make([]*domain.Insight, len(e.rules))
    for r := range results { byIdx[r.idx] = r.in }

    var out []domain.Insight
    for _, in := range byIdx {
        if in != nil { out = append(out, *in) }
    }
    sort.SliceStable(out, func(i, j int) bool { return severityRank(out[i].Severity) < severityRank(out[j].Severity) })
    return out
}

func (e *Engine) evaluate(ctx context.Context, rule domain.InsightRule, issues []domain.Issue) *domain.Insight {
    preds := parseCondition(rule.Condition)
    if len(preds) == 0 {
        e.log.Warn().Str("rule", rule.Name).Str("condition", rule.Condition).Msg("rule condition references no known fields; never matches")
        return nil
    }
    var matched []string
    for _, i := range issues {
        if i.Key == "" { continue }
        ok := true
        for _, p := range preds {
            if !p.matches(i) { ok = false; break }
        }
        if ok { matched = append(matched, i.Key) }
    }
    if len(matched) == 0 { return nil }

    in := domain.Insight{
        ID:        uuid.NewString(),
        Rule:      rule.Name,
        Severity:  rule.Severity,
        Message:   renderMessage(rule.Message, matched),
        Issues:    matched,
        Category:  rule.Category,
        CreatedAt: time.Now().UTC(),
    }
    if e.store != nil {
        if _, err := e.store.SaveInsight(ctx, in); err != nil {
            e.log.Error().Err(err).Str("rule", rule.Name).Msg("insight persist failed; keeping in-memory result")
        }
    }
    return &in
}

// renderMessage fills {count} and {issues}; {issues} shows the first 5
// matching keys while the insight itself keeps them all.
func renderMessage(tmpl string, matched []string) string {
    shown := matched
    if len(shown) > 5 { shown = shown[:5] }
    out := strings.ReplaceAll(tmpl, "{count}", fmt.Sprintf("%d", len(matched)))
    out = strings.ReplaceAll(out, "{issues}", strings.Join(shown, ", "))
    return out
}
