package refine

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hazyhaar/itemrelay/capture"
	"github.com/hazyhaar/itemrelay/listing"
	"github.com/hazyhaar/itemrelay/skuopt"
)

const detailFixture = `{"api":"mtop.taobao.pcdetail.data.get","data":{
	"item":{"itemId":"7001","title":"蓝牙耳机 无线","images":["//img.alicdn.com/main.jpg","//img.alicdn.com/side.jpg"]},
	"seller":{"sellerId":"221","shopName":"耳机店"},
	"skuBase":{"props":[{"pid":"p1","name":"颜色","values":[{"vid":"v1","name":"红"},{"vid":"v2","name":"蓝"}]}],
		"skus":[{"skuId":"s1","propPath":"p1:v1"},{"skuId":"s2","propPath":"p1:v2"}]},
	"skuCore":{"sku2info":{"s1":{"price":{"priceMoney":"1000"},"quantity":"5"},"s2":{"price":{"priceMoney":"1200"},"quantity":"3"}}}
}}`

const descFixture = `{"data":{"components":{"componentData":{"desc_richtext_pc":{"model":{"text":"<img src=\"//img.alicdn.com/d1.jpg\">"}}}}}}`

func fixtureCapture() capture.Capture {
	return capture.Capture{
		capture.ChannelDetail:      json.RawMessage(detailFixture),
		capture.ChannelDescription: json.RawMessage(descFixture),
	}
}

type fakeTranslator struct{ calls int }

func (f *fakeTranslator) Translate(_ context.Context, text, from, to string) (string, error) {
	f.calls++
	return to + ":" + text, nil
}

type fakeCandidates struct{ cands []Candidate }

func (f fakeCandidates) Candidates(context.Context, string, int) ([]Candidate, error) {
	return f.cands, nil
}

type firstClassifier struct{}

func (firstClassifier) Classify(_ context.Context, _ string, c []Candidate) (string, error) {
	return c[0].ID, nil
}

type fakeTagger struct{ err error }

func (f fakeTagger) SellerTags(context.Context, string) ([]string, error) {
	return []string{"이어폰", "블루투스"}, f.err
}

type prefixHost struct{}

func (prefixHost) Upload(_ context.Context, urls []string) ([]string, error) {
	out := make([]string, len(urls))
	for i, u := range urls {
		out[i] = "https://shop-phinf.pstatic.net/" + u[strings.LastIndex(u, "/")+1:]
	}
	return out, nil
}

func testRefiner(t *testing.T, mutate func(*Config)) *Refiner {
	t.Helper()
	cfg := Config{
		Translator: &fakeTranslator{},
		Candidates: fakeCandidates{cands: []Candidate{{ID: "50000803", Name: "블루투스 이어폰"}}},
		Classifier: firstClassifier{},
		Tagger:     fakeTagger{},
		Images:     prefixHost{},
		Pricing:    Pricing{ExchangeRate: 191.55, RoundTo: 10},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestExtract(t *testing.T) {
	p, err := Extract(fixtureCapture())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if p.ItemID != "7001" || p.ShopName != "耳机店" {
		t.Fatalf("product: got %+v", p)
	}
	if diff := cmp.Diff([]string{"https://img.alicdn.com/main.jpg", "https://img.alicdn.com/side.jpg"}, p.Images); diff != "" {
		t.Fatalf("images (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"https://img.alicdn.com/d1.jpg"}, p.DescriptionImages); diff != "" {
		t.Fatalf("description images (-want +got):\n%s", diff)
	}
	if len(p.Records) != 2 {
		t.Fatalf("records: got %d, want 2", len(p.Records))
	}
}

func TestExtract_Errors(t *testing.T) {
	if _, err := Extract(capture.Capture{capture.ChannelDetail: json.RawMessage(detailFixture)}); err == nil {
		t.Fatal("incomplete capture: expected error")
	}
	c := fixtureCapture()
	c[capture.ChannelDetail] = json.RawMessage(`{"data":{"item":{}}}`)
	if _, err := Extract(c); !errors.Is(err, ErrNoItemID) {
		t.Fatalf("no item id: got %v", err)
	}
}

func TestRefine(t *testing.T) {
	p, err := Extract(fixtureCapture())
	if err != nil {
		t.Fatal(err)
	}
	payload, err := testRefiner(t, func(c *Config) { c.TranslateOptions = true }).Refine(context.Background(), p)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}

	if payload.Category != "50000803" || payload.Name != "ko:蓝牙耳机 无线" || payload.SellerCode != "7001" {
		t.Fatalf("payload: got %s / %s / %s", payload.Category, payload.Name, payload.SellerCode)
	}
	// 10.00 yuan * 191.55 = 1915.5 won, rounded up to 1920; 12.00 yuan = 2298.6 → 2300.
	if payload.SalePrice != 1920 {
		t.Fatalf("sale price: got %d, want 1920", payload.SalePrice)
	}
	want := []skuopt.Combination{
		{SKUID: "s1", Names: []string{"ko:红"}, Stock: 5, PriceDelta: 0},
		{SKUID: "s2", Names: []string{"ko:蓝"}, Stock: 3, PriceDelta: 380},
	}
	if diff := cmp.Diff(want, payload.OptionInfo.Combinations); diff != "" {
		t.Fatalf("combinations (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ko:颜色"}, payload.OptionInfo.GroupNames); diff != "" {
		t.Fatalf("group names (-want +got):\n%s", diff)
	}
	if payload.Images.Primary != "https://shop-phinf.pstatic.net/main.jpg" {
		t.Fatalf("primary image: got %s", payload.Images.Primary)
	}
	if !strings.Contains(payload.DetailContent, "https://img.alicdn.com/d1.jpg") {
		t.Fatal("detail content lacks description image")
	}
}

func TestRefine_TaggerFailureIsNotFatal(t *testing.T) {
	p, _ := Extract(fixtureCapture())
	r := testRefiner(t, func(c *Config) { c.Tagger = fakeTagger{err: errors.New("quota")} })
	payload, err := r.Refine(context.Background(), p)
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(payload.SellerTags) != 0 {
		t.Fatalf("seller tags: got %v, want none", payload.SellerTags)
	}
}

func TestRefine_Failures(t *testing.T) {
	t.Run("no candidates", func(t *testing.T) {
		p, _ := Extract(fixtureCapture())
		r := testRefiner(t, func(c *Config) { c.Candidates = fakeCandidates{} })
		_, err := r.Refine(context.Background(), p)
		var se *StageError
		if !errors.As(err, &se) || se.Stage != "candidates" || !errors.Is(err, ErrNoCandidates) {
			t.Fatalf("got %v, want candidates StageError", err)
		}
	})
	t.Run("no images", func(t *testing.T) {
		p, _ := Extract(fixtureCapture())
		p.Images = nil
		if _, err := testRefiner(t, nil).Refine(context.Background(), p); !errors.Is(err, listing.ErrNoImages) {
			t.Fatalf("got %v, want ErrNoImages", err)
		}
	})
	t.Run("empty sku set", func(t *testing.T) {
		p, _ := Extract(fixtureCapture())
		p.Records = nil
		if _, err := testRefiner(t, nil).Refine(context.Background(), p); !errors.Is(err, skuopt.ErrEmptySkuSet) {
			t.Fatalf("got %v, want ErrEmptySkuSet", err)
		}
	})
}

func TestNew_RequiresCollaborators(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New: expected error without collaborators")
	}
}

func TestPricing_Convert(t *testing.T) {
	tests := []struct {
		p    Pricing
		in   int64
		want int64
	}{
		{Pricing{ExchangeRate: 200, RoundTo: 10}, 1000, 2000},
		{Pricing{ExchangeRate: 191.55, RoundTo: 100}, 1000, 2000},
		{Pricing{ExchangeRate: 200, Markup: 1.3, RoundTo: 10}, 1000, 2600},
		{Pricing{}, 0, 0},
	}
	for _, tt := range tests {
		if got := tt.p.Convert(tt.in); got != tt.want {
			t.Errorf("%+v.Convert(%d) = %d, want %d", tt.p, tt.in, got, tt.want)
		}
	}
}
