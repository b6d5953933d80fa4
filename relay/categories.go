package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hazyhaar/itemrelay/refine"
	"github.com/hazyhaar/itemrelay/relay/internal/store"
)

// storeCandidates serves category candidates from the FTS index.
type storeCandidates struct{ s *store.Store }

func (c storeCandidates) Candidates(ctx context.Context, query string, limit int) ([]refine.Candidate, error) {
	cats, err := c.s.SearchCategories(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]refine.Candidate, len(cats))
	for i, cat := range cats {
		out[i] = refine.Candidate{ID: cat.ID, Name: cat.Name, Path: cat.Path}
	}
	return out, nil
}

// categoryEntry is one element of the commerce API category dump.
type categoryEntry struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	WholeCategoryName string `json:"wholeCategoryName"`
	Last              *bool  `json:"last"`
}

// ImportCategories loads a JSON array of destination categories into the
// candidate index. Entries explicitly marked non-leaf are skipped.
func (r *Relay) ImportCategories(ctx context.Context, src io.Reader) (int, error) {
	var entries []categoryEntry
	if err := json.NewDecoder(src).Decode(&entries); err != nil {
		return 0, fmt.Errorf("relay: decode categories: %w", err)
	}

	cats := make([]store.Category, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || (e.Last != nil && !*e.Last) {
			continue
		}
		name := e.Name
		if name == "" {
			parts := strings.Split(e.WholeCategoryName, ">")
			name = parts[len(parts)-1]
		}
		cats = append(cats, store.Category{ID: e.ID, Name: name, Path: e.WholeCategoryName})
	}
	if err := r.store.UpsertCategories(ctx, cats); err != nil {
		return 0, fmt.Errorf("relay: import categories: %w", err)
	}
	r.logger.Info("relay: categories imported", "count", len(cats), "skipped", len(entries)-len(cats))
	return len(cats), nil
}

// SearchCategories exposes the candidate index for operators.
func (r *Relay) SearchCategories(ctx context.Context, query string, limit int) ([]refine.Candidate, error) {
	return storeCandidates{s: r.store}.Candidates(ctx, query, limit)
}
