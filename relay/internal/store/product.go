// CLAUDE:SUMMARY Raw capture rows and the product lifecycle (captured → processing → processed/failed → uploading → uploaded).
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hazyhaar/itemrelay/dbopen"
)

// Status is the lifecycle position of a product.
type Status string

const (
	StatusCaptured   Status = "captured"
	StatusProcessing Status = "processing"
	StatusProcessed  Status = "processed"
	StatusFailed     Status = "failed"
	StatusUploading  Status = "uploading"
	StatusUploaded   Status = "uploaded"
)

// ErrStatus is returned when a transition is attempted from a status that
// does not allow it.
var ErrStatus = errors.New("store: product not in an expected status")

// Capture is the raw pair of channel bodies of one page visit.
type Capture struct {
	ID          string          `json:"id"`
	ItemID      string          `json:"item_id"`
	URL         string          `json:"url"`
	Keyword     string          `json:"keyword,omitempty"`
	Detail      json.RawMessage `json:"detail"`
	Description json.RawMessage `json:"description"`
	CreatedAt   int64           `json:"created_at"`
}

// Product is the lifecycle row of one vendor item.
type Product struct {
	ItemID           string          `json:"item_id"`
	CaptureID        string          `json:"capture_id"`
	Status           Status          `json:"status"`
	Payload          json.RawMessage `json:"payload,omitempty"`
	Error            string          `json:"error,omitempty"`
	ChannelProductNo string          `json:"channel_product_no,omitempty"`
	CreatedAt        int64           `json:"created_at"`
	UpdatedAt        int64           `json:"updated_at"`
}

// InsertCapture stores c and points the item's product row at it, resetting
// the row to captured. A recapture of an uploaded item keeps its product number.
func (s *Store) InsertCapture(ctx context.Context, c *Capture) error {
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO captures (id, item_id, url, keyword, detail, description, created_at)
			VALUES (?,?,?,?,?,?,?)`,
			c.ID, c.ItemID, c.URL, c.Keyword, string(c.Detail), string(c.Description), c.CreatedAt,
		); err != nil {
			return fmt.Errorf("store: insert capture: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO products (item_id, capture_id, status, created_at, updated_at)
			VALUES (?,?,?,?,?)
			ON CONFLICT(item_id) DO UPDATE SET
				capture_id = excluded.capture_id,
				status     = excluded.status,
				payload    = NULL,
				error      = '',
				updated_at = excluded.updated_at`,
			c.ItemID, c.ID, StatusCaptured, c.CreatedAt, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("store: upsert product: %w", err)
		}
		return nil
	})
}

// GetCapture returns a capture by id, or nil if absent.
func (s *Store) GetCapture(ctx context.Context, id string) (*Capture, error) {
	c := &Capture{}
	var detail, desc string
	err := s.DB.QueryRowContext(ctx, `
		SELECT id, item_id, url, keyword, detail, description, created_at
		FROM captures WHERE id = ?`, id).Scan(
		&c.ID, &c.ItemID, &c.URL, &c.Keyword, &detail, &desc, &c.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	c.Detail, c.Description = json.RawMessage(detail), json.RawMessage(desc)
	return c, nil
}

const productCols = `item_id, capture_id, status, payload, error, channel_product_no, created_at, updated_at`

type scanner interface{ Scan(dest ...any) error }

func scanProduct(row scanner) (*Product, error) {
	p := &Product{}
	var payload sql.NullString
	if err := row.Scan(&p.ItemID, &p.CaptureID, &p.Status, &payload, &p.Error, &p.ChannelProductNo, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if payload.Valid {
		p.Payload = json.RawMessage(payload.String)
	}
	return p, nil
}

// GetProduct returns the product row of itemID, or nil if absent.
func (s *Store) GetProduct(ctx context.Context, itemID string) (*Product, error) {
	p, err := scanProduct(s.DB.QueryRowContext(ctx,
		`SELECT `+productCols+` FROM products WHERE item_id = ?`, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// Transition moves itemID to status to if it is currently in one of from.
// It returns ErrStatus when the row exists in another status, or is absent.
func (s *Store) Transition(ctx context.Context, itemID string, to Status, from ...Status) error {
	if len(from) == 0 {
		return fmt.Errorf("store: transition to %s: no source status", to)
	}
	args := []any{to, time.Now().UnixMilli(), itemID}
	marks := make([]string, len(from))
	for i, f := range from {
		marks[i] = "?"
		args = append(args, f)
	}
	res, err := dbopen.Exec(ctx, s.DB, `
		UPDATE products SET status = ?, updated_at = ?
		WHERE item_id = ? AND status IN (`+strings.Join(marks, ",")+`)`, args...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s -> %s", ErrStatus, itemID, to)
	}
	return nil
}

// SavePayload stores the assembled payload and marks the product processed.
func (s *Store) SavePayload(ctx context.Context, itemID string, payload json.RawMessage) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		UPDATE products SET status = ?, payload = ?, error = '', updated_at = ?
		WHERE item_id = ?`,
		StatusProcessed, string(payload), time.Now().UnixMilli(), itemID)
	return err
}

// MarkFailed records a processing failure.
func (s *Store) MarkFailed(ctx context.Context, itemID, msg string) error {
	return s.SetError(ctx, itemID, StatusFailed, msg)
}

// SetError moves itemID to status and records msg. A failed upload goes
// back to processed this way, keeping its payload.
func (s *Store) SetError(ctx context.Context, itemID string, status Status, msg string) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		UPDATE products SET status = ?, error = ?, updated_at = ? WHERE item_id = ?`,
		status, msg, time.Now().UnixMilli(), itemID)
	return err
}

// MarkUploaded records the destination product number.
func (s *Store) MarkUploaded(ctx context.Context, itemID, productNo string) error {
	_, err := dbopen.Exec(ctx, s.DB, `
		UPDATE products SET status = ?, channel_product_no = ?, error = '', updated_at = ?
		WHERE item_id = ?`,
		StatusUploaded, productNo, time.Now().UnixMilli(), itemID)
	return err
}

// ListOptions selects a page of products.
type ListOptions struct {
	Status  Status // empty: any
	Page    int    // 1-based
	PerPage int    // default 10
}

// ListProducts returns one page of products, newest first, and the total count.
func (s *Store) ListProducts(ctx context.Context, opts ListOptions) ([]*Product, int, error) {
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.PerPage <= 0 {
		opts.PerPage = 10
	}
	where, args := "", []any{}
	if opts.Status != "" {
		where = ` WHERE status = ?`
		args = append(args, opts.Status)
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, opts.PerPage, (opts.Page-1)*opts.PerPage)
	rows, err := s.DB.QueryContext(ctx, `SELECT `+productCols+` FROM products`+where+`
		ORDER BY updated_at DESC, item_id LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

// CountByStatus returns the number of products per status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM products GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[Status]int)
	for rows.Next() {
		var st Status
		var n int
		if err := rows.Scan(&st, &n); err != nil {
			return nil, err
		}
		out[st] = n
	}
	return out, rows.Err()
}
