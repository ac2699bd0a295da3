package repo

import (
    "context"
    "encoding/json"
    "errors"
    "time"

    "github.com/HamedShams/sprint-lens/internal/config"
    "github.com/HamedShams/sprint-lens/internal/domain"
    "github.com/jackc/pgx/v5"
    "github.com/jackc/pgx/v5/pgxpool"
    "github.com/rs/zerolog"
)

type DB struct {
    Pool *pgxpool.Pool
    log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
    pool, err := pgxpool.New(ctx, cfg.DBDSN)
    if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
    ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
    if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
    return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
    db  *DB
    log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
    return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
    var ok bool
    err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
    if !ok && err == nil { return errors.New("advisory unlock returned false") }
    return err
}

// ---- Issue snapshot ----

// UpsertIssues replaces the stored copy of each ingested issue. Links travel
// as jsonb so the graph builder sees the same shape it was handed.
func (r *Repository) UpsertIssues(ctx context.Context, issues []domain.Issue) error {
    if len(issues) == 0 { return nil }
    batch := &pgx.Batch{}
    const q = `
        INSERT INTO issues(key, title, status, type, priority, assignee, points,
            labels, epic_key, sprint, links, created_at_src, updated_at_src)
        VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        ON CONFLICT(key) DO UPDATE SET
            title=EXCLUDED.title,
            status=EXCLUDED.status,
            type=EXCLUDED.type,
            priority=EXCLUDED.priority,
            assignee=EXCLUDED.assignee,
            points=EXCLUDED.points,
            labels=EXCLUDED.labels,
            epic_key=EXCLUDED.epic_key,
            sprint=EXCLUDED.sprint,
            links=EXCLUDED.links,
            created_at_src=EXCLUDED.created_at_src,
            updated_at_src=EXCLUDED.updated_at_src`
    for _, i := range issues {
        links, _ := json.Marshal(i.Links)
        batch.Queue(q, i.Key, i.Title, i.Status, i.Type, i.Priority, i.Assignee, i.Points,
            i.Labels, i.EpicKey, i.Sprint, links, i.CreatedAt, i.UpdatedAt)
    }
    br := r.db.Pool.SendBatch(ctx, batch)
    defer br.Close()
    for range issues { if _, err := br.Exec(); err != nil { return err } }
    return nil
}

func (r *Repository) ListIssues(ctx context.Context) ([]domain.Issue, error) {
    rows, err := r.db.Pool.Query(ctx, `SELECT key, COALESCE(title,''), COALESCE(status,''), COALESCE(type,''),
        COALESCE(priority,''), COALESCE(assignee,''), COALESCE(points,0), COALESCE(labels,'{}'),
        COALESCE(epic_key,''), COALESCE(sprint,''), links, created_at_src, updated_at_src
        FROM issues ORDER BY key`)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.Issue
    for rows.Next() {
        var i domain.Issue
        var links []byte
        if err := rows.Scan(&i.Key, &i.Title, &i.Status, &i.Type, &i.Priority, &i.Assignee, &i.Points,
            &i.Labels, &i.EpicKey, &i.Sprint, &links, &i.CreatedAt, &i.UpdatedAt); err != nil { return nil, err }
        if len(links) > 0 { _ = json.Unmarshal(links, &i.Links) }
        out = append(out, i)
    }
    return out, rows.Err()
}

// ---- Insight store ----

func (r *Repository) SaveInsight(ctx context.Context, in domain.Insight) (string, error) {
    const q = `INSERT INTO insights(id, rule, severity, message, issue_keys, category, created_at, resolved)
        VALUES($1,$2,$3,$4,$5,$6,$7,false) RETURNING id`
    var id string
    if err := r.db.Pool.QueryRow(ctx, q, in.ID, in.Rule, in.Severity, in.Message, in.Issues, in.Category, in.CreatedAt).Scan(&id); err != nil {
        return "", err
    }
    return id, nil
}

// ActiveInsights returns unresolved insights created within the window,
// ordered by severity rank then recency.
func (r *Repository) ActiveInsights(ctx context.Context, windowDays int) ([]domain.Insight, error) {
    if windowDays <= 0 { windowDays = 14 }
    since := time.Now().UTC().Add(time.Duration(-24*windowDays) * time.Hour)
    rows, err := r.db.Pool.Query(ctx, `
        SELECT id, rule, severity, message, issue_keys, category, created_at, resolved, resolved_at
        FROM insights
        WHERE resolved = false AND created_at >= $1
        ORDER BY CASE lower(severity)
            WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2
            WHEN 'low' THEN 3 WHEN 'warning' THEN 4 ELSE 5 END,
            created_at DESC`, since)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.Insight
    for rows.Next() {
        var in domain.Insight
        if err := rows.Scan(&in.ID, &in.Rule, &in.Severity, &in.Message, &in.Issues, &in.Category,
            &in.CreatedAt, &in.Resolved, &in.ResolvedAt); err != nil { return nil, err }
        out = append(out, in)
    }
    return out, rows.Err()
}

// ResolveInsight flips the resolved flag once; resolution is one-way and the
// original resolved timestamp is kept on repeat calls. Returns false for an
// unknown id.
func (r *Repository) ResolveInsight(ctx context.Context, id string) (bool, error) {
    tag, err := r.db.Pool.Exec(ctx, `UPDATE insights
        SET resolved = true, resolved_at = COALESCE(resolved_at, now())
        WHERE id = $1`, id)
    if err != nil { return false, err }
    return tag.RowsAffected() > 0, nil
}

// ---- Metric history store ----

func (r *Repository) RecordSnapshot(ctx context.Context, s domain.MetricSnapshot) error {
    meta, _ := json.Marshal(s.Metadata)
    at := s.At
    if at.IsZero() { at = time.Now().UTC() }
    _, err := r.db.Pool.Exec(ctx, `INSERT INTO metric_snapshots(metric, value, mode, metadata, at)
        VALUES($1,$2,$3,$4,$5)`, s.Metric, s.Value, s.Mode, meta, at)
    return err
}

func (r *Repository) SnapshotHistory(ctx context.Context, metric string, windowDays int) ([]domain.MetricSnapshot, error) {
    if windowDays <= 0 { windowDays = 30 }
    since := time.Now().UTC().Add(time.Duration(-24*windowDays) * time.Hour)
    rows, err := r.db.Pool.Query(ctx, `SELECT metric, value, COALESCE(mode,''), metadata, at
        FROM metric_snapshots WHERE metric = $1 AND at >= $2 ORDER BY at`, metric, since)
    if err != nil { return nil, err }
    defer rows.Close()
    var out []domain.MetricSnapshot
    for rows.Next() {
        var s domain.MetricSnapshot
        var meta []byte
        if err := rows.Scan(&s.Metric, &s.Value, &s.Mode, &meta, &s.At); err != nil { return nil, err }
        if len(meta) > 0 { _ = json.Unmarshal(meta, &s.Metadata) }
        out = append(out, s)
    }
    return out, rows.Err()
}

// PurgeSnapshots drops snapshots older than the retention window. Optional
// housekeeping; correctness never depends on it.
func (r *Repository) PurgeSnapshots(ctx context.Context, retentionDays int) (int64, error) {
    if retentionDays <= 0 { return 0, nil }
    cutoff := time.Now().UTC().Add(time.Duration(-24*retentionDays) * time.Hour)
    tag, err := r.db.Pool.Exec(ctx, `DELETE FROM metric_snapshots WHERE at < $1`, cutoff)
    if err != nil { return 0, err }
    return tag.RowsAffected(), nil
}

// ---- Analysis runs ----

func (r *Repository) StartAnalysisRun(ctx context.Context) (int64, error) {
    const q = `INSERT INTO analysis_runs(started_at, success) VALUES(now(), false) RETURNING id`
    var id int64
    if err := r.db.Pool.QueryRow(ctx, q).Scan(&id); err != nil { return 0, err }
    return id, nil
}

func (r *Repository) FinishAnalysisRun(ctx context.Context, id int64, issuesSeen, insightsFound, healthScore int, success bool, errStr string) error {
    const q = `UPDATE analysis_runs SET finished_at=now(), issues_seen=$2, insights_found=$3,
        health_score=$4, success=$5, error=$6 WHERE id=$1`
    _, err := r.db.Pool.Exec(ctx, q, id, issuesSeen, insightsFound, healthScore, success, errStr)
    return err
}

type LastRun struct {
    StartedAt     time.Time  `json:"started_at"`
    FinishedAt    *time.Time `json:"finished_at"`
    IssuesSeen    int        `json:"issues_seen"`
    InsightsFound int        `json:"insights_found"`
    HealthScore   int        `json:"health_score"`
    Success       bool       `json:"success"`
    Error         string     `json:"error"`
}

func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
    const q = `SELECT started_at, finished_at,
        coalesce(issues_seen,0), coalesce(insights_found,0), coalesce(health_score,0),
        coalesce(success,false), coalesce(error,'')
        FROM analysis_runs ORDER BY id DESC LIMIT 1`
    row := r.db.Pool.QueryRow(ctx, q)
    lr := &LastRun{}
    if err := row.Scan(&lr.StartedAt, &lr.FinishedAt, &lr.IssuesSeen, &lr.InsightsFound, &lr.HealthScore, &lr.Success, &lr.Error); err != nil {
        return nil, err
    }
    return lr, nil
}

// LastSuccessfulRunStart is the "last check" reference for the daily report.
func (r *Repository) LastSuccessfulRunStart(ctx context.Context) (*time.Time, error) {
    var t *time.Time
    err := r.db.Pool.QueryRow(ctx, `SELECT started_at FROM analysis_runs WHERE success = true ORDER BY id DESC LIMIT 1`).Scan(&t)
    if err != nil {
        if errors.Is(err, pgx.ErrNoRows) { return nil, nil }
        return nil, err
    }
    return t, nil
}
