package domain

import "time"

// Issue is one tracked work item as handed over by the ingestion layer,
// already parsed and typed. The engine never mutates it.
type Issue struct {
    Key       string     `json:"key"`
    Title     string     `json:"title"`
    Status    string     `json:"status"`
    Type      string     `json:"type"`
    Assignee  string     `json:"assignee,omitempty"`
    Priority  string     `json:"priority,omitempty"`
    Points    float64    `json:"points,omitempty"`
    Labels    []string   `json:"labels,omitempty"`
    EpicKey   string     `json:"epic_key,omitempty"`
    Sprint    string     `json:"sprint,omitempty"`
    Links     []Link     `json:"links,omitempty"`
    CreatedAt *time.Time `json:"created_at,omitempty"`
    UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Link is one outgoing relation on an issue. Relation is free text from the
// tracker ("is blocked by", "blocks", "relates to", ...).
type Link struct {
    Relation string `json:"relation"`
    Target   string `json:"target"`
}

type ChildSummary struct {
    Key      string  `json:"key"`
    Title    string  `json:"title"`
    Status   string  `json:"status"`
    Assignee string  `json:"assignee,omitempty"`
    Points   float64 `json:"points,omitempty"`
}

type FeatureNode struct {
    Key           string         `json:"key"`
    Name          string         `json:"name"`
    Status        string         `json:"status"`
    Priority      string         `json:"priority,omitempty"`
    Assignee      string         `json:"assignee,omitempty"`
    Progress      float64        `json:"progress"`
    TotalChildren int            `json:"total_children"`
    DoneChildren  int            `json:"done_children"`
    TotalPoints   float64        `json:"total_points"`
    DonePoints    float64        `json:"done_points"`
    Children      []ChildSummary `json:"children"`
}

type LinkRef struct {
    Key   string `json:"key"`
    Label string `json:"label"`
}

type DependencyNode struct {
    Title    string    `json:"title"`
    Status   string    `json:"status"`
    Type     string    `json:"type"`
    Assignee string    `json:"assignee,omitempty"`
    Blockers []LinkRef `json:"blockers"`
    Blocks   []LinkRef `json:"blocks"`
    Related  []LinkRef `json:"related"`
}

type DependencyGraph map[string]DependencyNode

// InsightRule is a named predicate + severity + message template. Condition is
// the declarative text form; the engine compiles it to typed predicates.
type InsightRule struct {
    Name      string `json:"name"`
    Condition string `json:"condition"`
    Severity  string `json:"severity"`
    Message   string `json:"message"`
    Category  string `json:"category"`
}

type Insight struct {
    ID         string     `json:"id"`
    Rule       string     `json:"rule"`
    Severity   string     `json:"severity"`
    Message    string     `json:"message"`
    Issues     []string   `json:"issues"`
    Category   string     `json:"category"`
    CreatedAt  time.Time  `json:"created_at"`
    Resolved   bool       `json:"resolved"`
    ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// MetricSnapshot is one timestamped metric value, append-only.
type MetricSnapshot struct {
    Metric   string            `json:"metric"`
    Value    float64           `json:"value"`
    Mode     string            `json:"mode"`
    Metadata map[string]string `json:"metadata,omitempty"`
    At       time.Time         `json:"at"`
}

type SummaryCounts struct {
    Total      int `json:"total"`
    Done       int `json:"done"`
    InProgress int `json:"in_progress"`
    Blocked    int `json:"blocked"`
    Todo       int `json:"todo"`
}

type ScrumMetrics struct {
    Sprint          string  `json:"sprint,omitempty"`
    Velocity        float64 `json:"velocity"`
    CompletionRate  float64 `json:"completion_rate"`
    TotalPoints     float64 `json:"total_points"`
    DonePoints      float64 `json:"done_points"`
    RemainingPoints float64 `json:"remaining_points"`
}

type KanbanMetrics struct {
    WIPCount      int            `json:"wip_count"`
    WIPByAssignee map[string]int `json:"wip_by_assignee"`
}

// SummaryMode selects the mode-specific sub-report. The calculator never
// infers it from data.
type SummaryMode string

const (
    ModeScrum  SummaryMode = "scrum"
    ModeKanban SummaryMode = "kanban"
)

type MetricsReport struct {
    Mode       SummaryMode    `json:"mode"`
    Summary    SummaryCounts  `json:"summary"`
    ByStatus   map[string]int `json:"by_status"`
    ByType     map[string]int `json:"by_type"`
    ByAssignee map[string]int `json:"by_assignee"`
    ByPriority map[string]int `json:"by_priority"`
    Scrum      *ScrumMetrics  `json:"scrum,omitempty"`
    Kanban     *KanbanMetrics `json:"kanban,omitempty"`
}

type BlockerItem struct {
    Key      string `json:"key"`
    Title    string `json:"title"`
    Assignee string `json:"assignee,omitempty"`
    Label    string `json:"label"`
}

type Report struct {
    GeneratedAt       time.Time            `json:"generated_at"`
    HealthScore       int                  `json:"health_score"`
    Blockers          []BlockerItem        `json:"blockers"`
    CompletedRecently []ChildSummary       `json:"completed_recently"`
    InProgress        map[string][]string  `json:"in_progress_by_assignee"`
    DiscussionPoints  []string             `json:"discussion_points"`
    Categories        map[string][]Insight `json:"insight_categories"`
    Metrics           MetricsReport        `json:"metrics"`
    Summary           string               `json:"summary,omitempty"`
}
