package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/hazyhaar/itemrelay/dbopen"
)

// Category is one leaf of the destination taxonomy.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path,omitempty"` // e.g. "디지털/가전>음향가전>이어폰"
}

// UpsertCategories replaces the given categories in one transaction.
func (s *Store) UpsertCategories(ctx context.Context, cats []Category) error {
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO categories (id, name, path) VALUES (?,?,?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name, path = excluded.path`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range cats {
			if _, err := stmt.ExecContext(ctx, c.ID, c.Name, c.Path); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCategory returns a category by id, or nil if absent.
func (s *Store) GetCategory(ctx context.Context, id string) (*Category, error) {
	c := &Category{}
	err := s.DB.QueryRowContext(ctx, `SELECT id, name, path FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

// SearchCategories returns up to limit categories ranked by full-text match
// of any word of query against name and path. Words are prefix-matched; if
// nothing matches, a substring scan on the name is tried.
func (s *Store) SearchCategories(ctx context.Context, query string, limit int) ([]Category, error) {
	if limit <= 0 {
		limit = 15
	}
	words := strings.Fields(query)
	if len(words) == 0 {
		return nil, nil
	}

	terms := make([]string, len(words))
	for i, w := range words {
		terms[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"*`
	}
	out, err := s.queryCategories(ctx, `
		SELECT c.id, c.name, c.path
		FROM categories_fts
		JOIN categories c ON c.rowid = categories_fts.rowid
		WHERE categories_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, strings.Join(terms, " OR "), limit)
	if err != nil || len(out) > 0 {
		return out, err
	}

	likes := make([]string, len(words))
	args := make([]any, 0, len(words)+1)
	for i, w := range words {
		likes[i] = "name LIKE ?"
		args = append(args, "%"+w+"%")
	}
	args = append(args, limit)
	return s.queryCategories(ctx, `SELECT id, name, path FROM categories
		WHERE `+strings.Join(likes, " OR ")+` ORDER BY length(name) LIMIT ?`, args...)
}

func (s *Store) queryCategories(ctx context.Context, q string, args ...any) ([]Category, error) {
	rows, err := s.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Path); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
