package capture

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func detailResp() Response {
	return Response{URL: detailURL, Status: 200, Body: []byte("mtopjsonp1(" + detailJSON + ")")}
}

func descResp() Response {
	return Response{URL: descURL, Status: 200, Body: []byte("mtopjsonp3(" + descRichJSON + ")")}
}

func newProductSession(opts ...Option) *Session {
	return NewSession(NewMatcher(ProductRules()), opts...)
}

func TestSession_CompletesInEitherOrder(t *testing.T) {
	orders := map[string][]Response{
		"detail first":      {detailResp(), descResp()},
		"description first": {descResp(), detailResp()},
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			s := newProductSession(WithTimeout(time.Second))
			for _, r := range order {
				if !s.Offer(r) {
					t.Fatalf("Offer(%s): rejected", r.URL)
				}
			}
			got, err := s.Await(context.Background())
			if err != nil {
				t.Fatalf("Await: %v", err)
			}
			if got.Detail() == nil || got.Description() == nil {
				t.Fatalf("Await: incomplete capture %v", got)
			}
			if s.State() != StateComplete {
				t.Fatalf("state: got %s, want complete", s.State())
			}
		})
	}
}

func TestSession_FirstWriterWins(t *testing.T) {
	s := newProductSession(WithTimeout(time.Second))
	if !s.Offer(detailResp()) {
		t.Fatal("first offer rejected")
	}
	second := Response{URL: detailURL, Status: 200, Body: []byte(`{"data":{"seller":{"sellerId":"999"}}}`)}
	if s.Offer(second) {
		t.Fatal("second offer for a filled channel accepted")
	}
	if s.State() != StatePartial {
		t.Fatalf("state: got %s, want partial", s.State())
	}
	s.Offer(descResp())

	got, err := s.Await(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if string(got.Detail()) != detailJSON {
		t.Fatalf("detail: got %s, want first body", got.Detail())
	}
}

func TestSession_IgnoresNon200(t *testing.T) {
	s := newProductSession()
	r := detailResp()
	r.Status = 302
	if s.Offer(r) {
		t.Fatal("non-200 response accepted")
	}
	if s.State() != StateWaiting {
		t.Fatalf("state: got %s, want waiting", s.State())
	}
}

func TestSession_TimeoutReportsMissing(t *testing.T) {
	s := newProductSession(WithTimeout(50 * time.Millisecond))
	s.Offer(detailResp())

	_, err := s.Await(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Await: got %v, want ErrTimeout", err)
	}
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Await: error %T is not *TimeoutError", err)
	}
	if len(te.Missing) != 1 || te.Missing[0] != ChannelDescription {
		t.Fatalf("missing: got %v, want [%s]", te.Missing, ChannelDescription)
	}
	if s.State() != StateTimedOut {
		t.Fatalf("state: got %s, want timed_out", s.State())
	}
	if s.Offer(descResp()) {
		t.Fatal("offer after timeout accepted")
	}
}

func TestSession_AbortIsNotTimeout(t *testing.T) {
	s := newProductSession(WithTimeout(5 * time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := s.Await(ctx)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("Await: got %v, want ErrAborted", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Await: got %v, want context.Canceled in chain", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Fatalf("Await: abort reported as timeout: %v", err)
	}
}

// A at t=0, B at t=40ms with a 500ms budget: Await returns when B lands.
func TestSession_CompletesBeforeDeadline(t *testing.T) {
	s := newProductSession(WithTimeout(500 * time.Millisecond))
	start := time.Now()
	s.Offer(detailResp())
	go func() {
		time.Sleep(40 * time.Millisecond)
		s.Offer(descResp())
	}()

	if _, err := s.Await(context.Background()); err != nil {
		t.Fatalf("Await: %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 400*time.Millisecond {
		t.Fatalf("Await returned after %s, want well before the deadline", elapsed)
	}
}

func TestSession_ConcurrentOffers(t *testing.T) {
	s := newProductSession(WithTimeout(time.Second))
	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := detailResp()
			if i%2 == 1 {
				r = descResp()
			}
			if s.Offer(r) {
				accepted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if n := accepted.Load(); n != 2 {
		t.Fatalf("accepted offers: got %d, want 2", n)
	}
	if _, err := s.Await(context.Background()); err != nil {
		t.Fatalf("Await: %v", err)
	}
}
