package analysis

import (
    "testing"

    "github.com/HamedShams/sprint-lens/internal/domain"
)

func TestBuildDependencyGraph_EveryIssueHasNode(t *testing.T) {
    issues := []domain.Issue{
        {Key: "B-1", Title: "one"},
        {Key: "B-2", Title: "two", Links: []domain.Link{{Relation: "is blocked by", Target: "B-1"}}},
        {Key: "B-3", Title: "three"},
    }
    g := BuildDependencyGraph(issues)
    if len(g) != 3 { t.Fatalf("expected 3 nodes, got %d: %#v", len(g), g) }
    for _, k := range []string{"B-1", "B-2", "B-3"} {
        n, ok := g[k]
        if !ok { t.Fatalf("missing node %s", k) }
        if n.Blockers == nil || n.Blocks == nil || n.Related == nil {
            t.Fatalf("nil relation list on %s: %#v", k, n)
        }
    }
}

func TestBuildDependencyGraph_ClassifiesByRelationText(t *testing.T) {
    issues := []domain.Issue{
        {Key: "C-1", Links: []domain.Link{
            {Relation: "is blocked by", Target: "C-2"},
            {Relation: "depends on", Target: "C-3"},
            {Relation: "blocks", Target: "C-4"},
            {Relation: "is dependency of", Target: "C-5"},
            {Relation: "relates to", Target: "C-6"},
            {Relation: "duplicates", Target: "C-7"},
        }},
    }
    n := BuildDependencyGraph(issues)["C-1"]
    if len(n.Blockers) != 2 { t.Fatalf("expected 2 blockers, got %#v", n.Blockers) }
    if len(n.Blocks) != 2 { t.Fatalf("expected 2 blocks, got %#v", n.Blocks) }
    if len(n.Related) != 2 { t.Fatalf("expected 2 related, got %#v", n.Related) }
    if n.Blockers[0].Key != "C-2" || n.Blockers[1].Key != "C-3" { t.Fatalf("blocker order lost: %#v", n.Blockers) }
    if n.Blockers[0].Label != "is blocked by" { t.Fatalf("label lost: %#v", n.Blockers[0]) }
}

func TestBuildDependencyGraph_CyclesAreLegal(t *testing.T) {
    issues := []domain.Issue{
        {Key: "D-1", Links: []domain.Link{{Relation: "is blocked by", Target: "D-2"}}},
        {Key: "D-2", Links: []domain.Link{{Relation: "is blocked by", Target: "D-1"}}},
    }
    g := BuildDependencyGraph(issues)
    if len(g["D-1"].Blockers) != 1 || len(g["D-2"].Blockers) != 1 {
        t.Fatalf("mutual blockers not preserved: %#v", g)
    }
}

func TestClassifyRelation_BlockedByBeforeBlocks(t *testing.T) {
    if classifyRelation("Blocked By") != relBlocker { t.Fatalf("case-insensitive blocked by failed") }
    if classifyRelation("blocks deployment") != relBlocks { t.Fatalf("blocks classification failed") }
    if classifyRelation("cloned from") != relRelated { t.Fatalf("unknown relation should be related") }
}
