package store

import (
	"context"
	"strings"
	"time"
)

// Visit outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)

// Visit is one page-visit log row.
type Visit struct {
	ID        string   `json:"id"`
	URL       string   `json:"url"`
	Outcome   string   `json:"outcome"`
	Missing   []string `json:"missing,omitempty"`
	Attempts  int      `json:"attempts"`
	Error     string   `json:"error,omitempty"`
	CreatedAt int64    `json:"created_at"`
}

// LogVisit appends a visit row.
func (s *Store) LogVisit(ctx context.Context, v *Visit) error {
	if v.CreatedAt == 0 {
		v.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO visit_log (id, url, outcome, missing, attempts, error, created_at)
		VALUES (?,?,?,?,?,?,?)`,
		v.ID, v.URL, v.Outcome, strings.Join(v.Missing, ","), v.Attempts, v.Error, v.CreatedAt)
	return err
}

// RecentVisits returns the latest visits, newest first.
func (s *Store) RecentVisits(ctx context.Context, limit int) ([]*Visit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, url, outcome, missing, attempts, error, created_at
		FROM visit_log ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Visit
	for rows.Next() {
		v := &Visit{}
		var missing string
		if err := rows.Scan(&v.ID, &v.URL, &v.Outcome, &missing, &v.Attempts, &v.Error, &v.CreatedAt); err != nil {
			return nil, err
		}
		if missing != "" {
			v.Missing = strings.Split(missing, ",")
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
