package skuopt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// aggregateSKU is the sku2info key holding product-level price and stock.
const aggregateSKU = "0"

type vendorDoc struct {
	SkuBase *struct {
		Props []struct {
			PID    string `json:"pid"`
			Name   string `json:"name"`
			Values []struct {
				VID   string `json:"vid"`
				Name  string `json:"name"`
				Image string `json:"image"`
			} `json:"values"`
		} `json:"props"`
		Skus []struct {
			SkuID    string `json:"skuId"`
			PropPath string `json:"propPath"`
		} `json:"skus"`
	} `json:"skuBase"`
	SkuCore *struct {
		Sku2Info map[string]skuInfo `json:"sku2info"`
	} `json:"skuCore"`
}

type skuInfo struct {
	Price struct {
		PriceMoney flexInt `json:"priceMoney"`
		PriceText  string  `json:"priceText"`
	} `json:"price"`
	Quantity flexInt `json:"quantity"`
}

// flexInt accepts 123, "123" and "" (as zero).
type flexInt struct {
	v   int64
	set bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("skuopt: not a number: %q", b)
	}
	f.v, f.set = int64(n), true
	return nil
}

func (i skuInfo) price() int64 {
	if i.Price.PriceMoney.set {
		return i.Price.PriceMoney.v
	}
	// priceText is in major units, possibly a range "39-59": take the low end.
	text, _, _ := strings.Cut(i.Price.PriceText, "-")
	if f, err := strconv.ParseFloat(strings.TrimSpace(text), 64); err == nil {
		return int64(math.Round(f * 100))
	}
	return 0
}

// FromVendor parses the vendor's skuBase/skuCore sections, accepting either
// the detail "data" object or the full response wrapping it.
//
// SKUs absent from sku2info are skipped. A product without skuBase.skus
// yields a single pathless record from the aggregate sku2info entry.
func FromVendor(raw json.RawMessage) ([]Property, []Record, error) {
	var doc vendorDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, fmt.Errorf("skuopt: parse vendor: %w", err)
	}
	if doc.SkuBase == nil && doc.SkuCore == nil {
		var wrapped struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
			if err := json.Unmarshal(wrapped.Data, &doc); err != nil {
				return nil, nil, fmt.Errorf("skuopt: parse vendor data: %w", err)
			}
		}
	}
	if doc.SkuCore == nil {
		return nil, nil, fmt.Errorf("skuopt: vendor data has no skuCore.sku2info")
	}
	info := doc.SkuCore.Sku2Info

	var props []Property
	if doc.SkuBase != nil {
		for _, p := range doc.SkuBase.Props {
			prop := Property{ID: p.PID, Name: p.Name}
			for _, v := range p.Values {
				prop.Values = append(prop.Values, Value{ID: v.VID, Name: v.Name, Image: v.Image})
			}
			props = append(props, prop)
		}
	}

	var records []Record
	if doc.SkuBase != nil && len(doc.SkuBase.Skus) > 0 {
		for _, s := range doc.SkuBase.Skus {
			si, ok := info[s.SkuID]
			if !ok {
				continue
			}
			path, err := ParsePropPath(s.PropPath)
			if err != nil {
				return nil, nil, fmt.Errorf("skuopt: sku %s: %w", s.SkuID, err)
			}
			records = append(records, Record{
				SKUID: s.SkuID,
				Price: si.price(),
				Stock: int(si.Quantity.v),
				Path:  path,
			})
		}
		return props, records, nil
	}

	if si, ok := info[aggregateSKU]; ok {
		records = append(records, Record{SKUID: aggregateSKU, Price: si.price(), Stock: int(si.Quantity.v)})
	}
	return props, records, nil
}

// ParsePropPath splits "pid:vid;pid:vid" into path entries.
func ParsePropPath(s string) ([]PathEntry, error) {
	var path []PathEntry
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pid, vid, ok := strings.Cut(part, ":")
		if !ok || pid == "" || vid == "" {
			return nil, fmt.Errorf("malformed propPath entry %q", part)
		}
		path = append(path, PathEntry{PropertyID: pid, ValueID: vid})
	}
	return path, nil
}
