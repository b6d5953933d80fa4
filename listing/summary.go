package listing

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Summary is the operator-facing view of an assembled listing.
type Summary struct {
	ProductID           string `json:"productId"`
	ImageURL            string `json:"imageUrl"`
	ProductName         string `json:"productName"`
	Price               string `json:"price"`
	ShippingFee         string `json:"shippingFee"`
	OverseasShippingFee string `json:"overseasShippingFee"`
	CostPrice           string `json:"costPrice"`
	ExchangeRate        string `json:"exchangeRate"`
	Site                string `json:"site"`
	Date                string `json:"date"`
}

// SummaryMeta carries the fields of a Summary that are not in the payload.
type SummaryMeta struct {
	ProductID    string
	Site         string
	ExchangeRate float64 // destination units per vendor major unit
	CreatedAt    time.Time
}

// Won formats an amount with thousands separators and the won suffix.
func Won(v int64) string {
	return humanize.Comma(v) + "원"
}

// Summarize renders p for listing screens.
func Summarize(p *Payload, meta SummaryMeta) Summary {
	lo, hi := p.PriceRange()
	price := Won(lo)
	if hi != lo {
		price = Won(lo) + "~" + Won(hi)
	}
	d := p.Policy.Delivery
	s := Summary{
		ProductID:           meta.ProductID,
		ImageURL:            p.Images.Primary,
		ProductName:         p.Name,
		Price:               price,
		ShippingFee:         fmt.Sprintf("%s (반품 %s, 교환 %s)", Won(d.BaseFee), Won(d.ReturnFee), Won(d.ExchangeFee)),
		OverseasShippingFee: Won(d.Area3ExtraFee),
		CostPrice:           Won(p.SalePrice),
		Site:                meta.Site,
	}
	if meta.ExchangeRate > 0 {
		s.ExchangeRate = "¥1 = " + humanize.CommafWithDigits(meta.ExchangeRate, 2) + "원"
	}
	if !meta.CreatedAt.IsZero() {
		s.Date = meta.CreatedAt.Format("2006/01/02")
	}
	return s
}
