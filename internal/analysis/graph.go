/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package analysis

import (
    "strings"

    "github.com/HamedShams/sprint-lens/internal/domain"
)

// BuildDependencyGraph turns per-issue link lists into a directed graph keyed
// by issue key. Every input issue gets a node, even with no links. Direction
// is inferred from the relation text; cycles are legal and simply appear as
// mutual blocker/blocks entries.
func BuildDependencyGraph(issues []domain.Issue) domain.DependencyGraph {
    g := make(domain.DependencyGraph, len(issues))
    for _, i := range issues {
        if i.Key == "" { continue }
        node := domain.DependencyNode{
            Title:    i.Title,
            Status:   i.Status,
            Type:     i.Type,
            Assignee: i.Assignee,
            Blockers: []domain.LinkRef{},
            Blocks:   []domain.LinkRef{},
            Related:  []domain.LinkRef{},
        }
        for _, l := range i.Links {
            if l.Target == "" { continue }
            ref := domain.LinkRef{Key: l.Target, Label: l.Relation}
            switch classifyRelation(l.Relation) {
            case relBlocker:
                node.Blockers = append(node.Blockers, ref)
            case relBlocks:
                node.Blocks = append(node.Blocks, ref)
            default:
                node.Related = append(node.Related, ref)
            }
        }
        g[i.Key] = node
    }
    return g
}

type relKind int

const (
    relRelated relKind = iota
    relBlocker
    relBlocks
)

// classifyRelation infers direction from free-text relation labels. "blocked
// by" must be checked before "blocks" so the substring match stays correct.
func classifyRelation(relation string) relKind {
    r := strings.ToLower(relation)
    switch {
    case strings.Contains(r, "blocked by") || strings.Contains(r, "depends on"):
        return relBlocker
    case strings.Contains(r, "blocks") || strings.Contains(r, "is dependency"):
        return relBlocks
    default:
        return relRelated
    }
}
