/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements schedule.OccurrenceStore, schedule.TemplateStore and
  reconcile.SnapshotStore using SQLite. In production, the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

INSERT-IF-ABSENT:
  The occurrences table carries a unique index on
  (template_id, assignee_id, date). InsertIfAbsent is a single
  INSERT OR IGNORE against that index - the check and the write are one
  atomic statement, so a periodic range-fill racing an interactive
  status update can neither duplicate a row nor clobber its status.

KEY TABLES:
  templates:      Recurrence template definitions
  occurrences:    Per-(template, assignee, date) duty instances
  week_snapshots: Frozen week boards as JSON documents

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better
  concurrency: multiple readers don't block, single writer at a time,
  better crash recovery.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - schedule/store.go: Interface definitions
  - schedule/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/opsduty/duty-engine/reconcile"
	"github.com/opsduty/duty-engine/schedule"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Recurrence templates
	CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		frequency TEXT NOT NULL,
		days_of_week TEXT,          -- JSON array of Monday-based ints
		day_of_week INTEGER,        -- single-day fallback, NULL when unset
		day_of_month INTEGER NOT NULL DEFAULT 1, -- sentinel encoding: 0 last day, -1 first working day
		month_of_year INTEGER NOT NULL DEFAULT 0,
		assignees TEXT,             -- JSON array of assignee ids
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_templates_active
		ON templates(active);

	-- Occurrences, one row per (template, assignee, date)
	CREATE TABLE IF NOT EXISTS occurrences (
		id TEXT NOT NULL,
		template_id TEXT NOT NULL,
		assignee_id TEXT NOT NULL,
		date TEXT NOT NULL,
		status TEXT NOT NULL,
		comment TEXT NOT NULL DEFAULT '',
		acted_at TEXT,
		created_at TEXT NOT NULL
	);

	-- CRITICAL: the identity triple. InsertIfAbsent is INSERT OR IGNORE
	-- against this index; range-fills can never duplicate a row or
	-- reset an existing status.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_occurrences_key
		ON occurrences(template_id, assignee_id, date);

	CREATE INDEX IF NOT EXISTS idx_occurrences_date
		ON occurrences(date);
	CREATE INDEX IF NOT EXISTS idx_occurrences_assignee_date
		ON occurrences(assignee_id, date);

	-- Week snapshots, one JSON document per (department, week, kind)
	CREATE TABLE IF NOT EXISTS week_snapshots (
		id TEXT NOT NULL,
		department TEXT NOT NULL,
		week_start TEXT NOT NULL,
		kind TEXT NOT NULL,
		board_json TEXT NOT NULL,
		taken_at TEXT NOT NULL,
		UNIQUE(department, week_start, kind)
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_week
		ON week_snapshots(week_start);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// OCCURRENCE STORE
// =============================================================================

func (s *Store) InsertIfAbsent(ctx context.Context, occ schedule.Occurrence) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO occurrences
			(id, template_id, assignee_id, date, status, comment, acted_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(occ.ID),
		string(occ.TemplateID),
		string(occ.AssigneeID),
		occ.Date.String(),
		string(occ.Status),
		occ.Comment,
		nullableTime(occ.ActedAt),
		occ.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return false, fmt.Errorf("insert occurrence: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *Store) Get(ctx context.Context, key schedule.OccurrenceKey) (*schedule.Occurrence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, template_id, assignee_id, date, status, comment, acted_at, created_at
		FROM occurrences
		WHERE template_id = ? AND assignee_id = ? AND date = ?`,
		string(key.TemplateID), string(key.AssigneeID), key.Date.String(),
	)
	occ, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return occ, nil
}

func (s *Store) UpdateStatus(ctx context.Context, key schedule.OccurrenceKey, status schedule.OccurrenceStatus, comment string, actedAt *time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE occurrences
		SET status = ?, comment = ?, acted_at = ?
		WHERE template_id = ? AND assignee_id = ? AND date = ?`,
		string(status), comment, nullableTime(actedAt),
		string(key.TemplateID), string(key.AssigneeID), key.Date.String(),
	)
	if err != nil {
		return fmt.Errorf("update occurrence status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return schedule.ErrOccurrenceNotFound
	}
	return nil
}

func (s *Store) ListRange(ctx context.Context, from, to schedule.Date) ([]schedule.Occurrence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, assignee_id, date, status, comment, acted_at, created_at
		FROM occurrences
		WHERE date >= ? AND date <= ?
		ORDER BY date, template_id, assignee_id`,
		from.String(), to.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

func (s *Store) ListByAssignee(ctx context.Context, assignee schedule.AssigneeID, from, to schedule.Date) ([]schedule.Occurrence, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_id, assignee_id, date, status, comment, acted_at, created_at
		FROM occurrences
		WHERE assignee_id = ? AND date >= ? AND date <= ?
		ORDER BY date, template_id, assignee_id`,
		string(assignee), from.String(), to.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOccurrences(rows)
}

func (s *Store) DeleteByTemplate(ctx context.Context, id schedule.TemplateID) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM occurrences WHERE template_id = ?`, string(id))
	if err != nil {
		return 0, fmt.Errorf("delete occurrences: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOccurrence(row rowScanner) (*schedule.Occurrence, error) {
	var (
		occ       schedule.Occurrence
		id        string
		tplID     string
		assignee  string
		date      string
		status    string
		actedAt   sql.NullString
		createdAt string
	)
	if err := row.Scan(&id, &tplID, &assignee, &date, &status, &occ.Comment, &actedAt, &createdAt); err != nil {
		return nil, err
	}

	occ.ID = schedule.OccurrenceID(id)
	occ.TemplateID = schedule.TemplateID(tplID)
	occ.AssigneeID = schedule.AssigneeID(assignee)
	occ.Status = schedule.OccurrenceStatus(status)

	d, err := schedule.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("corrupt occurrence date %q: %w", date, err)
	}
	occ.Date = d

	if actedAt.Valid && actedAt.String != "" {
		t, err := time.Parse(time.RFC3339, actedAt.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt acted_at %q: %w", actedAt.String, err)
		}
		occ.ActedAt = &t
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		occ.CreatedAt = t
	}

	return &occ, nil
}

func collectOccurrences(rows *sql.Rows) ([]schedule.Occurrence, error) {
	var result []schedule.Occurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *occ)
	}
	return result, rows.Err()
}

// =============================================================================
// TEMPLATE STORE
// =============================================================================

func (s *Store) Save(ctx context.Context, t schedule.RecurrenceTemplate) error {
	daysJSON, err := json.Marshal(t.DaysOfWeek)
	if err != nil {
		return err
	}
	assigneesJSON, err := json.Marshal(t.Assignees)
	if err != nil {
		return err
	}

	var dayOfWeek any
	if t.DayOfWeek != nil {
		dayOfWeek = int(*t.DayOfWeek)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO templates
			(id, name, frequency, days_of_week, day_of_week, day_of_month, month_of_year, assignees, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			frequency = excluded.frequency,
			days_of_week = excluded.days_of_week,
			day_of_week = excluded.day_of_week,
			day_of_month = excluded.day_of_month,
			month_of_year = excluded.month_of_year,
			assignees = excluded.assignees,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		string(t.ID), t.Name, string(t.Frequency),
		string(daysJSON), dayOfWeek,
		t.DayOfMonth.Sentinel(), int(t.MonthOfYear),
		string(assigneesJSON), t.Active, now, now,
	)
	if err != nil {
		return fmt.Errorf("save template: %w", err)
	}
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, id schedule.TemplateID) (*schedule.RecurrenceTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, frequency, days_of_week, day_of_week, day_of_month, month_of_year, assignees, active
		FROM templates WHERE id = ?`, string(id))
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) ActiveTemplates(ctx context.Context) ([]schedule.RecurrenceTemplate, error) {
	return s.listTemplates(ctx, `WHERE active = TRUE`)
}

func (s *Store) ListTemplates(ctx context.Context) ([]schedule.RecurrenceTemplate, error) {
	return s.listTemplates(ctx, ``)
}

func (s *Store) listTemplates(ctx context.Context, where string) ([]schedule.RecurrenceTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, frequency, days_of_week, day_of_week, day_of_month, month_of_year, assignees, active
		FROM templates `+where+` ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []schedule.RecurrenceTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *t)
	}
	return result, rows.Err()
}

func (s *Store) Deactivate(ctx context.Context, id schedule.TemplateID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE templates SET active = FALSE, updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), string(id))
	if err != nil {
		return fmt.Errorf("deactivate template: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return schedule.ErrTemplateNotFound
	}
	return nil
}

func scanTemplate(row rowScanner) (*schedule.RecurrenceTemplate, error) {
	var (
		t           schedule.RecurrenceTemplate
		id          string
		frequency   string
		daysJSON    sql.NullString
		dayOfWeek   sql.NullInt64
		dayOfMonth  int
		monthOfYear int
		assignees   sql.NullString
	)
	if err := row.Scan(&id, &t.Name, &frequency, &daysJSON, &dayOfWeek, &dayOfMonth, &monthOfYear, &assignees, &t.Active); err != nil {
		return nil, err
	}

	t.ID = schedule.TemplateID(id)
	t.Frequency = schedule.Frequency(frequency)
	t.DayOfMonth = schedule.DayRuleFromSentinel(dayOfMonth)
	t.MonthOfYear = time.Month(monthOfYear)

	if daysJSON.Valid && daysJSON.String != "" {
		if err := json.Unmarshal([]byte(daysJSON.String), &t.DaysOfWeek); err != nil {
			return nil, fmt.Errorf("corrupt days_of_week: %w", err)
		}
	}
	if dayOfWeek.Valid {
		wd := schedule.Weekday(dayOfWeek.Int64)
		t.DayOfWeek = &wd
	}
	if assignees.Valid && assignees.String != "" {
		if err := json.Unmarshal([]byte(assignees.String), &t.Assignees); err != nil {
			return nil, fmt.Errorf("corrupt assignees: %w", err)
		}
	}

	return &t, nil
}

// =============================================================================
// SNAPSHOT STORE
// =============================================================================

// SaveSnapshot upserts the capture for (department, week_start, kind).
func (s *Store) SaveSnapshot(ctx context.Context, snap reconcile.WeekSnapshot) error {
	boardJSON, err := json.Marshal(snap.Board)
	if err != nil {
		return fmt.Errorf("encode board: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO week_snapshots (id, department, week_start, kind, board_json, taken_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(department, week_start, kind) DO UPDATE SET
			id = excluded.id,
			board_json = excluded.board_json,
			taken_at = excluded.taken_at`,
		snap.ID, snap.Department, snap.WeekStart.String(), string(snap.Kind),
		string(boardJSON), snap.TakenAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *Store) GetSnapshot(ctx context.Context, department string, weekStart schedule.Date, kind reconcile.SnapshotKind) (*reconcile.WeekSnapshot, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, department, week_start, kind, board_json, taken_at
		FROM week_snapshots
		WHERE department = ? AND week_start = ? AND kind = ?`,
		department, weekStart.String(), string(kind))

	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *Store) ListWeekSnapshots(ctx context.Context, weekStart schedule.Date) ([]reconcile.WeekSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, department, week_start, kind, board_json, taken_at
		FROM week_snapshots
		WHERE week_start = ?
		ORDER BY department, kind`, weekStart.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []reconcile.WeekSnapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *snap)
	}
	return result, rows.Err()
}

func scanSnapshot(row rowScanner) (*reconcile.WeekSnapshot, error) {
	var (
		snap      reconcile.WeekSnapshot
		weekStart string
		kind      string
		boardJSON string
		takenAt   string
	)
	if err := row.Scan(&snap.ID, &snap.Department, &weekStart, &kind, &boardJSON, &takenAt); err != nil {
		return nil, err
	}

	ws, err := schedule.ParseDate(weekStart)
	if err != nil {
		return nil, fmt.Errorf("corrupt week_start %q: %w", weekStart, err)
	}
	snap.WeekStart = ws
	snap.Kind = reconcile.SnapshotKind(kind)

	if err := json.Unmarshal([]byte(boardJSON), &snap.Board); err != nil {
		return nil, fmt.Errorf("corrupt board_json: %w", err)
	}
	if t, err := time.Parse(time.RFC3339, takenAt); err == nil {
		snap.TakenAt = t
	}

	return &snap, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
