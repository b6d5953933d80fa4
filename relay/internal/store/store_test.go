package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	_ "modernc.org/sqlite"
)

func insertCapture(t *testing.T, s *Store, id, itemID string) {
	t.Helper()
	err := s.InsertCapture(context.Background(), &Capture{
		ID: id, ItemID: itemID, URL: "https://item.taobao.com/item.htm?id=" + itemID,
		Detail: json.RawMessage(`{"data":{}}`), Description: json.RawMessage(`{"data":{}}`),
	})
	if err != nil {
		t.Fatalf("InsertCapture: %v", err)
	}
}

func TestProductLifecycle(t *testing.T) {
	s := Memory(t)
	ctx := context.Background()
	insertCapture(t, s, "cap-1", "7001")

	p, err := s.GetProduct(ctx, "7001")
	if err != nil || p == nil {
		t.Fatalf("GetProduct: %v, %v", p, err)
	}
	if p.Status != StatusCaptured || p.CaptureID != "cap-1" {
		t.Fatalf("product: got %+v", p)
	}

	if err := s.Transition(ctx, "7001", StatusProcessing, StatusCaptured, StatusFailed); err != nil {
		t.Fatalf("Transition: %v", err)
	}
	if err := s.Transition(ctx, "7001", StatusProcessing, StatusCaptured); !errors.Is(err, ErrStatus) {
		t.Fatalf("second claim: got %v, want ErrStatus", err)
	}

	if err := s.SavePayload(ctx, "7001", json.RawMessage(`{"name":"x"}`)); err != nil {
		t.Fatal(err)
	}
	if err := s.Transition(ctx, "7001", StatusUploading, StatusProcessed); err != nil {
		t.Fatal(err)
	}
	if err := s.MarkUploaded(ctx, "7001", "9988"); err != nil {
		t.Fatal(err)
	}

	p, _ = s.GetProduct(ctx, "7001")
	if p.Status != StatusUploaded || p.ChannelProductNo != "9988" || string(p.Payload) != `{"name":"x"}` {
		t.Fatalf("after upload: got %+v", p)
	}

	// A recapture resets the lifecycle but keeps the destination number.
	insertCapture(t, s, "cap-2", "7001")
	p, _ = s.GetProduct(ctx, "7001")
	if p.Status != StatusCaptured || p.CaptureID != "cap-2" || p.Payload != nil || p.ChannelProductNo != "9988" {
		t.Fatalf("after recapture: got %+v", p)
	}
}

func TestGetMissing(t *testing.T) {
	s := Memory(t)
	if p, err := s.GetProduct(context.Background(), "nope"); p != nil || err != nil {
		t.Fatalf("GetProduct: got %v, %v", p, err)
	}
	if c, err := s.GetCapture(context.Background(), "nope"); c != nil || err != nil {
		t.Fatalf("GetCapture: got %v, %v", c, err)
	}
}

func TestListProducts_Paginates(t *testing.T) {
	s := Memory(t)
	ctx := context.Background()
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		insertCapture(t, s, "cap-"+id, id)
	}
	if err := s.MarkFailed(ctx, "3", "boom"); err != nil {
		t.Fatal(err)
	}

	page, total, err := s.ListProducts(ctx, ListOptions{Status: StatusCaptured, Page: 2, PerPage: 3})
	if err != nil {
		t.Fatal(err)
	}
	if total != 4 || len(page) != 1 {
		t.Fatalf("page 2: got %d rows of %d, want 1 of 4", len(page), total)
	}

	counts, err := s.CountByStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts[StatusCaptured] != 4 || counts[StatusFailed] != 1 {
		t.Fatalf("counts: got %v", counts)
	}
}

func TestSearchCategories(t *testing.T) {
	s := Memory(t)
	ctx := context.Background()
	err := s.UpsertCategories(ctx, []Category{
		{ID: "50000803", Name: "블루투스 이어폰", Path: "디지털/가전>음향가전>이어폰"},
		{ID: "50000804", Name: "유선 이어폰", Path: "디지털/가전>음향가전>이어폰"},
		{ID: "50001000", Name: "안마의자", Path: "생활/건강>안마용품"},
	})
	if err != nil {
		t.Fatalf("UpsertCategories: %v", err)
	}

	got, err := s.SearchCategories(ctx, "무선 블루투스", 5)
	if err != nil {
		t.Fatalf("SearchCategories: %v", err)
	}
	if len(got) == 0 || got[0].ID != "50000803" {
		t.Fatalf("fts search: got %+v", got)
	}

	// "의자" is not a token prefix of "안마의자": substring fallback.
	got, err = s.SearchCategories(ctx, "의자", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "50001000" {
		t.Fatalf("fallback search: got %+v", got)
	}

	// Upsert renames through the update trigger.
	if err := s.UpsertCategories(ctx, []Category{{ID: "50001000", Name: "전신 안마기"}}); err != nil {
		t.Fatal(err)
	}
	c, _ := s.GetCategory(ctx, "50001000")
	if c == nil || c.Name != "전신 안마기" {
		t.Fatalf("GetCategory: got %+v", c)
	}
}

func TestVisitLog(t *testing.T) {
	s := Memory(t)
	ctx := context.Background()
	visits := []*Visit{
		{ID: "v1", URL: "u1", Outcome: OutcomeOK, Attempts: 1, CreatedAt: 1},
		{ID: "v2", URL: "u2", Outcome: OutcomeTimeout, Missing: []string{"description-data"}, Attempts: 3, CreatedAt: 2},
	}
	for _, v := range visits {
		if err := s.LogVisit(ctx, v); err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.RecentVisits(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != "v2" || len(got[0].Missing) != 1 {
		t.Fatalf("RecentVisits: got %+v", got)
	}
}
