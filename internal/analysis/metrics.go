/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analysis

import (
    "github.com/HamedShams/sprint-lens/internal/domain"
)

// CalculateMetrics computes summary buckets, grouped counts, and the
// mode-specific sub-report. Pure: same collection + mode in, same report out.
// sprint filters scrum velocity to a named iteration when non-empty.
func CalculateMetrics(issues []domain.Issue, mode domain.SummaryMode, sprint string) domain.MetricsReport {
    rep := domain.MetricsReport{
        Mode:       mode,
        ByStatus:   map[string]int{},
        ByType:     map[string]int{},
        ByAssignee: map[string]int{},
        ByPriority: map[string]int{},
    }
    for _, i := range issues {
        if i.Key == "" { continue }
        rep.Summary.Total++
        switch {
        case isDone(i.Status):
            rep.Summary.Done++
        case isBlocked(i.Status):
            rep.Summary.Blocked++
        case isActive(i.Status):
            rep.Summary.InProgress++
        default:
            rep.Summary.Todo++
        }
        rep.ByStatus[orUnknown(i.Status, "Unknown")]++
        rep.ByType[orUnknown(i.Type, "Unknown")]++
        rep.ByAssignee[orUnknown(i.Assignee, "Unassigned")]++
        rep.ByPriority[orUnknown(i.Priority, "None")]++
    }

    switch mode {
    case domain.ModeKanban:
        rep.Kanban = kanbanMetrics(issues)
    default:
        rep.Scrum = scrumMetrics(issues, sprint)
    }
    return rep
}

func orUnknown(v, def string) string {
    if v == "" { return def }
    return v
}

func scrumMetrics(issues []domain.Issue, sprint string) *domain.ScrumMetrics {
    m := &domain.ScrumMetrics{Sprint: sprint}
    for _, i := range issues {
        if i.Key == "" { continue }
        if sprint != "" && i.Sprint != sprint { continue }
        m.TotalPoints += i.Points
        if isDone(i.Status) { m.DonePoints += i.Points }
    }
    m.Velocity = m.DonePoints
    m.RemainingPoints = m.TotalPoints - m.DonePoints
    if m.TotalPoints > 0 { m.CompletionRate = round1(m.DonePoints / m.TotalPoints * 100) }
    return m
}

func kanbanMetrics(issues []domain.Issue) *domain.KanbanMetrics {
    m := &domain.KanbanMetrics{WIPByAssignee: map[string]int{}}
    for _, i := range issues {
        if i.Key == "" || !isActive(i.Status) { continue }
        m.WIPCount++
        m.WIPByAssignee[orUnknown(i.Assignee, "Unassigned")]++
    }
    return m
}
