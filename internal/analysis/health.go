package analysis

import (
    "math"

    "github.com/HamedShams/sprint-lens/internal/domain"
)

// HealthScore derives a single 0-100 score from the insight batch just
// produced plus the blocked-issue ratio. Pure and deterministic.
func HealthScore(issues []domain.Issue, insights []domain.Insight) int {
    score := 100.0
    for _, in := range insights {
        score -= severityPenalty(in.Severity)
    }
    total := 0
    blocked := 0
    for _, i := range issues {
        if i.Key == "" { continue }
        total++
        if isBlocked(i.Status) { blocked++ }
    }
    if total > 0 {
        blockedPct := float64(blocked) / float64(total) * 100
        score -= 2 * blockedPct
    }
    out := int(math.Round(score))
    if out < 0 { out = 0 }
    if out > 100 { out = 100 }
    return out
}

func severityPenalty(sev string) float64 {
    switch severityRank(sev) {
    case 0: return 20 // critical
    case 1: return 15 // high
    case 2: return 10 // medium
    case 3: return 5  // low
    case 4: return 3  // warning
    default: return 3
    }
}
