// Package db provides the SQLite activity journal for scout.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/daviddao/scout/internal/types"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite connection holding the activity journal.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) a journal database at the given path.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec(Schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &DB{conn: conn, path: dbPath}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Now returns the current time as an ISO 8601 string.
func Now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// RecordActivity appends one mutation outcome to the journal.
func (d *DB) RecordActivity(candidateID, action, outcome, detail string) error {
	_, err := d.conn.Exec(`
		INSERT INTO activity (id, candidate_id, action, outcome, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), candidateID, action, outcome, nullStr(detail), Now(),
	)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	return nil
}

// ActivityFilter narrows RecentActivity.
type ActivityFilter struct {
	CandidateID string
	Action      string
	Outcome     string
	Failed      bool // any outcome other than ok
	Limit       int
}

// RecentActivity returns journal entries, newest first.
func (d *DB) RecentActivity(f ActivityFilter) ([]*types.Activity, error) {
	query := `SELECT id, candidate_id, action, outcome, detail, created_at FROM activity`

	var conditions []string
	var args []any
	if f.CandidateID != "" {
		conditions = append(conditions, "candidate_id = ?")
		args = append(args, f.CandidateID)
	}
	if f.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, f.Action)
	}
	if f.Outcome != "" {
		conditions = append(conditions, "outcome = ?")
		args = append(args, f.Outcome)
	}
	if f.Failed {
		conditions = append(conditions, "outcome != ?")
		args = append(args, types.OutcomeOK)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, rowid DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := d.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*types.Activity
	for rows.Next() {
		a := &types.Activity{}
		var detail sql.NullString
		if err := rows.Scan(&a.ID, &a.CandidateID, &a.Action, &a.Outcome, &detail, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.Detail = detail.String
		result = append(result, a)
	}
	return result, rows.Err()
}

// ActionCount is the per-outcome tally for one action.
type ActionCount struct {
	OK       int `json:"ok"`
	Failed   int `json:"failed"`
	Reverted int `json:"reverted"`
}

// Stats summarizes the journal.
type Stats struct {
	Total        int                     `json:"total"`
	Actions      map[string]*ActionCount `json:"actions"`
	ApprovalRate float64                 `json:"approval_rate"`
	Candidates   int                     `json:"candidates"`
	FirstAt      string                  `json:"first_at,omitempty"`
	LastAt       string                  `json:"last_at,omitempty"`
}

// Stats tallies outcomes per action since the given ISO time ("" for all
// time). ApprovalRate is successful approvals over successful approvals plus
// dismissals.
func (d *DB) Stats(since string) (*Stats, error) {
	where := ""
	var args []any
	if since != "" {
		where = " WHERE created_at >= ?"
		args = append(args, since)
	}

	rows, err := d.conn.Query("SELECT action, outcome, COUNT(*) FROM activity"+where+" GROUP BY action, outcome", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	s := &Stats{Actions: map[string]*ActionCount{}}
	for _, a := range []string{types.ActionApprove, types.ActionDismiss, types.ActionPause, types.ActionSaveDraft, types.ActionRegenerate} {
		s.Actions[a] = &ActionCount{}
	}
	for rows.Next() {
		var action, outcome string
		var n int
		if err := rows.Scan(&action, &outcome, &n); err != nil {
			return nil, err
		}
		c, ok := s.Actions[action]
		if !ok {
			c = &ActionCount{}
			s.Actions[action] = c
		}
		switch outcome {
		case types.OutcomeOK:
			c.OK += n
		case types.OutcomeReverted:
			c.Reverted += n
		default:
			c.Failed += n
		}
		s.Total += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var first, last sql.NullString
	if err := d.conn.QueryRow("SELECT COUNT(DISTINCT candidate_id), MIN(created_at), MAX(created_at) FROM activity"+where, args...).
		Scan(&s.Candidates, &first, &last); err != nil {
		return nil, err
	}
	s.FirstAt = first.String
	s.LastAt = last.String

	approved := s.Actions[types.ActionApprove].OK
	if resolved := approved + s.Actions[types.ActionDismiss].OK; resolved > 0 {
		s.ApprovalRate = float64(approved) / float64(resolved)
	}
	return s, nil
}

// DailyApprovals returns successful approvals per UTC day (YYYY-MM-DD) for
// the last n days, oldest first. Days without approvals are included.
func (d *DB) DailyApprovals(n int) ([]DayCount, error) {
	if n <= 0 {
		return nil, nil
	}
	start := time.Now().UTC().AddDate(0, 0, -(n - 1)).Format("2006-01-02")

	rows, err := d.conn.Query(`
		SELECT substr(created_at, 1, 10) AS day, COUNT(*)
		FROM activity
		WHERE action = ? AND outcome = ? AND created_at >= ?
		GROUP BY day`, types.ActionApprove, types.OutcomeOK, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := map[string]int{}
	for rows.Next() {
		var day string
		var count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		byDay[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DayCount, 0, n)
	t, _ := time.Parse("2006-01-02", start)
	for i := 0; i < n; i++ {
		day := t.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, DayCount{Day: day, Count: byDay[day]})
	}
	return out, nil
}

// DayCount is one day's tally.
type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// Prune deletes journal entries older than before (ISO time) and returns how
// many were removed.
func (d *DB) Prune(before string) (int64, error) {
	res, err := d.conn.Exec("DELETE FROM activity WHERE created_at < ?", before)
	if err != nil {
		return 0, fmt.Errorf("prune activity: %w", err)
	}
	return res.RowsAffected()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
