/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analysis

import (
    "math"
    "strings"

    "github.com/HamedShams/sprint-lens/internal/domain"
)

// NoEpicKey is the synthetic node collecting non-epic issues without a parent.
const NoEpicKey = "__NO_EPIC__"

// BuildFeatureTree groups a flat issue collection into epic-rooted feature
// nodes with rollup progress. Epics keep input order; the synthetic no-epic
// node is appended last and only when non-empty. Epics with zero children are
// kept with progress 0.
func BuildFeatureTree(issues []domain.Issue) []domain.FeatureNode {
    var epics []domain.Issue
    var rest []domain.Issue
    for _, i := range issues {
        if i.Key == "" { continue }
        if strings.EqualFold(i.Type, "epic") { epics = append(epics, i) } else { rest = append(rest, i) }
    }

    out := make([]domain.FeatureNode, 0, len(epics)+1)
    claimed := make(map[string]struct{}, len(rest))
    for _, e := range epics {
        node := domain.FeatureNode{
            Key:      e.Key,
            Name:     e.Title,
            Status:   e.Status,
            Priority: e.Priority,
            Assignee: e.Assignee,
            Children: []domain.ChildSummary{},
        }
        for _, c := range rest {
            if c.EpicKey != e.Key { continue }
            claimed[c.Key] = struct{}{}
            addChild(&node, c)
        }
        finalize(&node)
        out = append(out, node)
    }

    orphan := domain.FeatureNode{Key: NoEpicKey, Name: "No Epic", Children: []domain.ChildSummary{}}
    // Dangling epic references land here too; an issue is never dropped.
    for _, c := range rest {
        if _, ok := claimed[c.Key]; ok { continue }
        addChild(&orphan, c)
    }
    if orphan.TotalChildren > 0 {
        finalize(&orphan)
        out = append(out, orphan)
    }
    return out
}

func addChild(n *domain.FeatureNode, c domain.Issue) {
    n.Children = append(n.Children, domain.ChildSummary{
        Key: c.Key, Title: c.Title, Status: c.Status, Assignee: c.Assignee, Points: c.Points,
    })
    n.TotalChildren++
    n.TotalPoints += c.Points
    if isDone(c.Status) {
        n.DoneChildren++
        n.DonePoints += c.Points
    }
}

func finalize(n *domain.FeatureNode) {
    if n.TotalChildren == 0 { n.Progress = 0; return }
    n.Progress = round1(float64(n.DoneChildren) / float64(n.TotalChildren) * 100)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
