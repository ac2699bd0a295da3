package services

import (
    "fmt"
    "sort"
    "strings"
    "time"

    "github.com/HamedShams/sprint-lens/internal/domain"
)

const wipDiscussionThreshold = 10

// assembleReport composes the stand-up summary from the outputs of one pass.
// Pure aggregation; nothing here persists.
func assembleReport(now time.Time, issues []domain.Issue, insights []domain.Insight, score int, metrics domain.MetricsReport, since *time.Time) domain.Report {
    rep := domain.Report{
        GeneratedAt:       now,
        HealthScore:       score,
        Blockers:          []domain.BlockerItem{},
        CompletedRecently: []domain.ChildSummary{},
        InProgress:        map[string][]string{},
        DiscussionPoints:  []string{},
        Categories:        map[string][]domain.Insight{},
        Metrics:           metrics,
    }

    cutoff := now.Add(-24 * time.Hour)
    if since != nil { cutoff = *since }

    for _, i := range issues {
        if i.Key == "" { continue }
        switch {
        case strings.EqualFold(strings.TrimSpace(i.Status), "blocked"):
            who := i.Assignee
            if who == "" { who = "unassigned" }
            rep.Blockers = append(rep.Blockers, domain.BlockerItem{
                Key: i.Key, Title: i.Title, Assignee: i.Assignee,
                Label: fmt.Sprintf("%s: %s (%s)", i.Key, i.Title, who),
            })
        case doneStatus(i.Status):
            if i.UpdatedAt != nil && i.UpdatedAt.After(cutoff) {
                rep.CompletedRecently = append(rep.CompletedRecently, domain.ChildSummary{
                    Key: i.Key, Title: i.Title, Status: i.Status, Assignee: i.Assignee, Points: i.Points,
                })
            }
        case activeStatus(i.Status):
            who := i.Assignee
            if who == "" { who = "Unassigned" }
            rep.InProgress[who] = append(rep.InProgress[who], i.Key)
        }
    }

    urgent := 0
    for _, in := range insights {
        cat := in.Category
        if cat == "" { cat = "general" }
        rep.Categories[cat] = append(rep.Categories[cat], in)
        sev := strings.ToLower(in.Severity)
        if sev == "critical" || sev == "high" { urgent++ }
    }

    if urgent > 0 {
        rep.DiscussionPoints = append(rep.DiscussionPoints, fmt.Sprintf("%d critical/high insight(s) need attention", urgent))
    }
    if n := len(rep.Blockers); n > 0 {
        rep.DiscussionPoints = append(rep.DiscussionPoints, fmt.Sprintf("%d issue(s) blocked", n))
    }
    wip := metrics.Summary.InProgress
    if wip > wipDiscussionThreshold {
        rep.DiscussionPoints = append(rep.DiscussionPoints, fmt.Sprintf("WIP is high: %d issues in progress", wip))
    }
    return rep
}

// doneStatus/activeStatus mirror the calculator buckets; kept local so the
// assembler stays a pure consumer of already-computed metrics.
func doneStatus(s string) bool {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "done", "closed", "resolved": return true
    }
    return false
}

func activeStatus(s string) bool {
    switch strings.ToLower(strings.TrimSpace(s)) {
    case "in progress", "in review", "in development": return true
    }
    return false
}

// renderReport builds the plain-Markdown text sent to chat.
func renderReport(rep domain.Report) string {
    b := &strings.Builder{}
    fmt.Fprintf(b, "*Sprint Lens*\nDaily stand-up report\n\n")
    fmt.Fprintf(b, "*Health:* %d/100\n", rep.HealthScore)
    fmt.Fprintf(b, "*Done:* %d  *WIP:* %d  *Blocked:* %d  *Todo:* %d\n\n",
        rep.Metrics.Summary.Done, rep.Metrics.Summary.InProgress, rep.Metrics.Summary.Blocked, rep.Metrics.Summary.Todo)

    if len(rep.Blockers) > 0 {
        fmt.Fprintf(b, "*Blockers:*\n")
        for _, bl := range rep.Blockers { fmt.Fprintf(b, "- %s\n", bl.Label) }
        fmt.Fprintf(b, "\n")
    }
    if len(rep.CompletedRecently) > 0 {
        fmt.Fprintf(b, "*Completed since last check:*\n")
        for _, c := range rep.CompletedRecently { fmt.Fprintf(b, "- %s: %s\n", c.Key, c.Title) }
        fmt.Fprintf(b, "\n")
    }
    if len(rep.InProgress) > 0 {
        fmt.Fprintf(b, "*In progress:*\n")
        names := make([]string, 0, len(rep.InProgress))
        for n := range rep.InProgress { names = append(names, n) }
        sort.Strings(names)
        for _, n := range names { fmt.Fprintf(b, "- %s: %s\n", n, strings.Join(rep.InProgress[n], ", ")) }
        fmt.Fprintf(b, "\n")
    }
    if len(rep.DiscussionPoints) > 0 {
        fmt.Fprintf(b, "*Discussion points:*\n")
        for _, d := range rep.DiscussionPoints { fmt.Fprintf(b, "- %s\n", d) }
        fmt.Fprintf(b, "\n")
    }
    if rep.Summary != "" {
        fmt.Fprintf(b, "*Summary:*\n%s\n", rep.Summary)
    }
    return b.String()
}
