package services

import (
    "fmt"
    "regexp"
    "strings"

    "github.com/HamedShams/sprint-lens/internal/domain"
)

var (
    emailRe = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+`)
    phoneRe = regexp.MustCompile(`\b\+?\d[\d\-\s]{7,}\b`)
    urlRe   = regexp.MustCompile(`https?://[^\s]+`)
    tokenRe = regexp.MustCompile(`(?i)\b(?:token|secret|password|apikey|api_key|bearer)[:=\s]+[A-Za-z0-9\-\._~+/]{8,}\b`)
)

func scrub(s string) string {
    s = strings.ReplaceAll(s, "\r\n", "\n")
    s = emailRe.ReplaceAllString(s, "<email>")
    s = phoneRe.ReplaceAllString(s, "<phone>")
    s = urlRe.ReplaceAllString(s, "<url>")
    s = tokenRe.ReplaceAllString(s, "<secret>")
    return s
}

// redactReport scrubs obvious PII/secrets from report text and aliases
// assignee names before the report leaves the process as an LLM payload.
func redactReport(rep domain.Report) domain.Report {
    alias := map[string]string{}
    next := 1
    aliasOf := func(name string) string {
        n := strings.TrimSpace(name)
        if n == "" || strings.EqualFold(n, "unassigned") { return "Unassigned" }
        if v, ok := alias[n]; ok { return v }
        v := fmt.Sprintf("user%02d", next)
        next++
        alias[n] = v
        return v
    }

    out := rep
    out.Blockers = make([]domain.BlockerItem, len(rep.Blockers))
    for i, bl := range rep.Blockers {
        a := aliasOf(bl.Assignee)
        who := a
        if bl.Assignee == "" { who = "unassigned" }
        out.Blockers[i] = domain.BlockerItem{
            Key: bl.Key, Title: scrub(bl.Title), Assignee: a,
            Label: fmt.Sprintf("%s: %s (%s)", bl.Key, scrub(bl.Title), who),
        }
    }
    out.CompletedRecently = make([]domain.ChildSummary, len(rep.CompletedRecently))
    for i, c := range rep.CompletedRecently {
        c.Title = scrub(c.Title)
        c.Assignee = aliasOf(c.Assignee)
        out.CompletedRecently[i] = c
    }
    out.InProgress = make(map[string][]string, len(rep.InProgress))
    for name, keys := range rep.InProgress {
        out.InProgress[aliasOf(name)] = keys
    }
    out.Categories = make(map[string][]domain.Insight, len(rep.Categories))
    for cat, ins := range rep.Categories {
        cp := make([]domain.Insight, len(ins))
        for i, in := range ins {
            in.Message = scrub(in.Message)
            cp[i] = in
        }
        out.Categories[cat] = cp
    }
    out.Summary = scrub(rep.Summary)
    return out
}
