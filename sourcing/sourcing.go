// Package sourcing turns a marketplace search-results body into candidate
// product links ranked by sales volume.
package sourcing

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/hazyhaar/itemrelay/listing"
)

// ErrNoItems is returned for a body without search results.
var ErrNoItems = errors.New("sourcing: no items in search results")

// Candidate is one search hit.
type Candidate struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Sales int64  `json:"sales"`
	Price string `json:"price,omitempty"`
	Shop  string `json:"shop,omitempty"`
}

type searchDoc struct {
	Data struct {
		Items []struct {
			AuctionURL string `json:"auctionURL"`
			Title      string `json:"title"`
			RealSales  string `json:"realSales"`
			Price      string `json:"price"`
			ShopInfo   struct {
				Title string `json:"title"`
			} `json:"shopInfo"`
		} `json:"itemsArray"`
	} `json:"data"`
}

// Rank parses body and returns its items sorted by descending sales. Items
// with equal sales keep their search order. limit <= 0 keeps all.
func Rank(body json.RawMessage, limit int) ([]Candidate, error) {
	var doc searchDoc
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("sourcing: decode: %w", err)
	}
	if len(doc.Data.Items) == 0 {
		return nil, ErrNoItems
	}

	out := make([]Candidate, 0, len(doc.Data.Items))
	for _, it := range doc.Data.Items {
		if it.AuctionURL == "" {
			continue
		}
		out = append(out, Candidate{
			URL:   listing.EnsureHTTPS(it.AuctionURL),
			Title: it.Title,
			Sales: ParseSales(it.RealSales),
			Price: it.Price,
			Shop:  it.ShopInfo.Title,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sales > out[j].Sales })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var salesRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([千万亿]?)`)

var salesUnits = map[string]float64{
	"千": 1e3,
	"万": 1e4,
	"亿": 1e8,
}

// ParseSales reads the sales counter text ("1万+人付款", "300+人收货",
// "2.5千+") as an integer. Unparseable text counts as zero.
func ParseSales(s string) int64 {
	m := salesRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	if mult, ok := salesUnits[m[2]]; ok {
		n *= mult
	}
	return int64(n)
}
