package sourcing

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseSales(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1万+人付款", 10000},
		{"300+人收货", 300},
		{"2.5千+", 2500},
		{"3亿", 300000000},
		{"", 0},
		{"暂无", 0},
	}
	for _, tt := range tests {
		if got := ParseSales(tt.in); got != tt.want {
			t.Errorf("ParseSales(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestRank(t *testing.T) {
	body := []byte(`{"data":{"itemsArray":[
		{"auctionURL":"//item.taobao.com/item.htm?id=1","title":"a","realSales":"300+人付款","price":"12.50"},
		{"auctionURL":"//item.taobao.com/item.htm?id=2","title":"b","realSales":"1万+人付款","shopInfo":{"title":"shop b"}},
		{"auctionURL":"","title":"no url","realSales":"9亿"},
		{"auctionURL":"https://item.taobao.com/item.htm?id=3","title":"c","realSales":"300+"}
	]}}`)

	got, err := Rank(body, 0)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	want := []Candidate{
		{URL: "https://item.taobao.com/item.htm?id=2", Title: "b", Sales: 10000, Shop: "shop b"},
		{URL: "https://item.taobao.com/item.htm?id=1", Title: "a", Sales: 300, Price: "12.50"},
		{URL: "https://item.taobao.com/item.htm?id=3", Title: "c", Sales: 300},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Rank (-want +got):\n%s", diff)
	}

	top, _ := Rank(body, 1)
	if len(top) != 1 || top[0].Title != "b" {
		t.Fatalf("limit: %v", top)
	}
}

func TestRankEmpty(t *testing.T) {
	if _, err := Rank([]byte(`{"data":{"itemsArray":[]}}`), 3); !errors.Is(err, ErrNoItems) {
		t.Fatalf("want ErrNoItems, got %v", err)
	}
	if _, err := Rank([]byte(`nope`), 3); err == nil {
		t.Fatal("want decode error")
	}
}
