package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/itemrelay/capture"
	"github.com/hazyhaar/itemrelay/crawl"
	"github.com/hazyhaar/itemrelay/listing"
	"github.com/hazyhaar/itemrelay/refine"
	"github.com/hazyhaar/itemrelay/relay/internal/store"
	"github.com/hazyhaar/itemrelay/smartstore"
)

const detailFixture = `{"data":{
	"item":{"itemId":"7001","title":"蓝牙耳机 无线","images":["//img.alicdn.com/main.jpg","//img.alicdn.com/side.jpg"]},
	"seller":{"sellerId":"221","shopName":"耳机店"},
	"skuBase":{"props":[{"pid":"p1","name":"颜色","values":[{"vid":"v1","name":"红"},{"vid":"v2","name":"蓝"}]}],
		"skus":[{"skuId":"s1","propPath":"p1:v1"},{"skuId":"s2","propPath":"p1:v2"}]},
	"skuCore":{"sku2info":{"s1":{"price":{"priceMoney":"1000"},"quantity":"5"},"s2":{"price":{"priceMoney":"1200"},"quantity":"3"}}}
}}`

const descFixture = `{"data":{"components":{"componentData":{"desc_richtext_pc":{"model":{"text":"<p>intro</p><img src=\"//img.alicdn.com/d1.jpg\">"}}}}}}`

func fixtureCapture() capture.Capture {
	return capture.Capture{
		capture.ChannelDetail:      json.RawMessage(detailFixture),
		capture.ChannelDescription: json.RawMessage(descFixture),
	}
}

// fakeText stands in for the LLM client. Known titles get a real
// translation so the category index can match them.
type fakeText struct {
	translateErr error
}

var knownTranslations = map[string]string{
	"蓝牙耳机 无线": "블루투스 이어폰 무선",
}

func (f *fakeText) Translate(_ context.Context, text, from, to string) (string, error) {
	if f.translateErr != nil {
		return "", f.translateErr
	}
	if v, ok := knownTranslations[text]; ok {
		return v, nil
	}
	return to + ":" + text, nil
}

func (f *fakeText) RefineName(_ context.Context, name string) (string, error) { return name, nil }

func (f *fakeText) Classify(_ context.Context, _ string, c []refine.Candidate) (string, error) {
	return c[0].ID, nil
}

func (f *fakeText) SellerTags(context.Context, string) ([]string, error) {
	return []string{"이어폰"}, nil
}

type fakeRegistrar struct {
	mu   sync.Mutex
	seen []*listing.Payload
	err  error
}

func (f *fakeRegistrar) Register(_ context.Context, p *listing.Payload) (*smartstore.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.seen = append(f.seen, p)
	return &smartstore.Registration{OriginProductNo: 11, ChannelProductNo: 22}, nil
}

func testPolicy() listing.Policy {
	return listing.Policy{
		AfterService: listing.AfterService{Phone: "010-1111-2222", Guide: "weekday"},
		Origin:       listing.Origin{Importer: "relay trading"},
		Delivery: listing.Delivery{
			Company: "CJGLS", ReturnFee: 20000, ExchangeFee: 40000,
			ShippingAddressID: 1, ReturnAddressID: 2,
		},
		Notice: listing.Notice{CustomerServicePhone: "010-1111-2222"},
	}
}

// testRelay builds a Relay on an in-memory database with fake collaborators
// and one indexed category.
func testRelay(t *testing.T, opts ...Option) (*Relay, *fakeRegistrar) {
	t.Helper()
	reg := &fakeRegistrar{}
	cfg := &Config{Site: "taobao", Policy: testPolicy()}
	all := append([]Option{
		withStore(store.Memory(t)),
		WithTextModel(&fakeText{}),
		WithoutImageHosting(),
		WithRegistrar(reg),
	}, opts...)
	r, err := New(cfg, slog.Default(), all...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { r.bg.Wait() })

	n, err := r.ImportCategories(context.Background(), strings.NewReader(`[
		{"id":"50000803","name":"블루투스 이어폰","wholeCategoryName":"디지털/가전>음향가전>블루투스 이어폰","last":true},
		{"id":"50000001","wholeCategoryName":"디지털/가전>음향가전","last":false}
	]`))
	if err != nil || n != 1 {
		t.Fatalf("ImportCategories: n=%d err=%v", n, err)
	}
	return r, reg
}

func TestIngestProcessUpload(t *testing.T) {
	r, reg := testRelay(t)
	ctx := context.Background()

	id, err := r.Ingest(ctx, "https://item.taobao.com/item.htm?id=7001", "", fixtureCapture())
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if id != "7001" {
		t.Fatalf("item id: got %q", id)
	}

	payload, err := r.Process(ctx, id)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if payload.Category != "50000803" || payload.SalePrice != 1920 {
		t.Fatalf("payload: category %s price %d", payload.Category, payload.SalePrice)
	}

	v, err := r.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if v.Status != "processed" || v.Summary == nil {
		t.Fatalf("view: %+v", v)
	}
	if v.Summary.Price != "1,920원~2,300원" {
		t.Fatalf("summary price: got %q", v.Summary.Price)
	}

	res, err := r.Upload(ctx, id)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if res.ChannelProduct() != "22" || len(reg.seen) != 1 {
		t.Fatalf("registration: %+v, calls %d", res, len(reg.seen))
	}
	v, _ = r.Get(ctx, id)
	if v.Status != "uploaded" || v.ChannelProductNo != "22" {
		t.Fatalf("after upload: %+v", v)
	}

	if _, err := r.Upload(ctx, id); !errors.Is(err, store.ErrStatus) {
		t.Fatalf("second upload: want ErrStatus, got %v", err)
	}
}

func TestProcessFailureIsRecorded(t *testing.T) {
	r, _ := testRelay(t, WithTextModel(&fakeText{translateErr: errors.New("quota")}))
	ctx := context.Background()

	id, err := r.Ingest(ctx, "u", "", fixtureCapture())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.Process(ctx, id); err == nil {
		t.Fatal("want processing error")
	}
	v, err := r.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if v.Status != "failed" || !strings.Contains(v.Error, "quota") {
		t.Fatalf("failed product: %+v", v)
	}
}

func TestUploadRejectedKeepsPayload(t *testing.T) {
	r, reg := testRelay(t)
	ctx := context.Background()
	reg.err = &smartstore.APIError{Status: 400, Message: "bad name"}

	id, _ := r.Ingest(ctx, "u", "", fixtureCapture())
	if _, err := r.Process(ctx, id); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Upload(ctx, id); !errors.Is(err, smartstore.ErrRejected) {
		t.Fatalf("want ErrRejected, got %v", err)
	}
	v, _ := r.Get(ctx, id)
	if v.Status != "processed" || v.Payload == nil || !strings.Contains(v.Error, "bad name") {
		t.Fatalf("after rejection: %+v", v)
	}
}

func TestUploadInvalidPolicy(t *testing.T) {
	r, _ := testRelay(t)
	r.config.Policy.AfterService.Phone = ""
	if _, err := r.Upload(context.Background(), "7001"); !errors.Is(err, listing.ErrInvalidPolicy) {
		t.Fatalf("want ErrInvalidPolicy, got %v", err)
	}
}

func TestNotFound(t *testing.T) {
	r, _ := testRelay(t)
	ctx := context.Background()
	if _, err := r.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get: want ErrNotFound, got %v", err)
	}
	if _, err := r.Process(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Process: want ErrNotFound, got %v", err)
	}
	if _, err := r.Upload(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Upload: want ErrNotFound, got %v", err)
	}
}

func TestProcessPending(t *testing.T) {
	r, _ := testRelay(t)
	ctx := context.Background()

	if _, err := r.Ingest(ctx, "u1", "", fixtureCapture()); err != nil {
		t.Fatal(err)
	}
	other := fixtureCapture()
	other[capture.ChannelDetail] = json.RawMessage(strings.Replace(detailFixture, `"7001"`, `"7002"`, 1))
	if _, err := r.Ingest(ctx, "u2", "", other); err != nil {
		t.Fatal(err)
	}

	st, err := r.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if st.Processed != 2 || st.Failed != 0 {
		t.Fatalf("stats: %+v", st)
	}
	page, err := r.List(ctx, "processed", 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("list: %+v", page)
	}
}

func TestProcessPending_StuckRowTerminates(t *testing.T) {
	r, _ := testRelay(t)
	ctx := context.Background()

	if _, err := r.Ingest(ctx, "u1", "", fixtureCapture()); err != nil {
		t.Fatal(err)
	}
	other := fixtureCapture()
	other[capture.ChannelDetail] = json.RawMessage(strings.Replace(detailFixture, `"7001"`, `"7002"`, 1))
	if _, err := r.Ingest(ctx, "u2", "", other); err != nil {
		t.Fatal(err)
	}
	// 7002 can never leave captured: its status update aborts.
	if _, err := r.store.DB.ExecContext(ctx, `
		CREATE TRIGGER stuck BEFORE UPDATE OF status ON products
		WHEN NEW.status = 'processing' AND OLD.item_id = '7002'
		BEGIN SELECT RAISE(ABORT, 'row locked'); END`); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	var (
		st  ProcessStats
		err error
	)
	go func() {
		defer close(done)
		st, err = r.ProcessPending(ctx)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessPending did not return")
	}
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if st.Processed != 1 || st.Failed != 1 {
		t.Fatalf("stats: got %+v, want 1 processed 1 failed", st)
	}
	p, err := r.store.GetProduct(ctx, "7002")
	if err != nil {
		t.Fatal(err)
	}
	if p.Status != store.StatusCaptured {
		t.Fatalf("7002 status: got %s, want captured", p.Status)
	}
}

// fakeCrawler replays fixed results.
type fakeCrawler struct {
	results []crawl.Result
	search  json.RawMessage
	query   string
}

func (f *fakeCrawler) Run(ctx context.Context, urls []string, fn func(context.Context, crawl.Result) error) (crawl.Stats, error) {
	var st crawl.Stats
	for _, res := range f.results {
		if res.Err == nil {
			st.OK++
		} else {
			st.Failed++
		}
		if err := fn(ctx, res); err != nil {
			return st, err
		}
	}
	return st, nil
}

func (f *fakeCrawler) Search(_ context.Context, keyword string) (json.RawMessage, error) {
	f.query = keyword
	return f.search, nil
}

func TestCrawlLogsVisits(t *testing.T) {
	fc := &fakeCrawler{results: []crawl.Result{
		{URL: "ok", Capture: fixtureCapture(), Attempts: 1},
		{URL: "slow", Attempts: 2, Err: &capture.TimeoutError{Missing: []capture.Channel{capture.ChannelDescription}}},
	}}
	r, _ := testRelay(t, WithCrawler(fc))
	ctx := context.Background()

	if _, err := r.Crawl(ctx, []string{"ok", "slow"}, "이어폰", true); err != nil {
		t.Fatalf("Crawl: %v", err)
	}

	visits, err := r.Visits(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	outcomes := map[string]*store.Visit{}
	for _, v := range visits {
		outcomes[v.URL] = v
	}
	if outcomes["ok"] == nil || outcomes["ok"].Outcome != store.OutcomeOK {
		t.Fatalf("ok visit: %+v", outcomes["ok"])
	}
	slow := outcomes["slow"]
	if slow == nil || slow.Outcome != store.OutcomeTimeout || slow.Attempts != 2 ||
		len(slow.Missing) != 1 || slow.Missing[0] != string(capture.ChannelDescription) {
		t.Fatalf("slow visit: %+v", slow)
	}

	v, err := r.Get(ctx, "7001")
	if err != nil || v.Status != "processed" {
		t.Fatalf("crawled product: %+v %v", v, err)
	}
}

func TestSource(t *testing.T) {
	fc := &fakeCrawler{search: json.RawMessage(`{"data":{"itemsArray":[
		{"auctionURL":"//item.taobao.com/item.htm?id=1","title":"a","realSales":"300+"},
		{"auctionURL":"//item.taobao.com/item.htm?id=2","title":"b","realSales":"2万+"}
	]}}`)}
	r, _ := testRelay(t, WithCrawler(fc))

	got, err := r.Source(context.Background(), "이어폰", 1)
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if fc.query != "zh:이어폰" {
		t.Fatalf("search query: got %q", fc.query)
	}
	if len(got) != 1 || got[0].Title != "b" || got[0].Sales != 20000 {
		t.Fatalf("candidates: %+v", got)
	}
}

func TestNoCrawler(t *testing.T) {
	r, _ := testRelay(t)
	if _, err := r.Crawl(context.Background(), []string{"x"}, "", false); !errors.Is(err, ErrNoCrawler) {
		t.Fatalf("want ErrNoCrawler, got %v", err)
	}
}
