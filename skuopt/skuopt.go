// CLAUDE:SUMMARY Normalizes the vendor SKU graph (properties x value paths x price/stock) into at most four option axes with price deltas.
// Package skuopt turns a marketplace SKU graph into destination option
// combinations: at most four named axes, one combination per affordable SKU,
// each priced as a non-negative delta above the cheapest SKU.
package skuopt

import (
	"errors"
	"fmt"
)

const (
	// DefaultMaxAxes is the number of option axes the destination accepts.
	DefaultMaxAxes = 4
	// DefaultThresholdRatio drops SKUs priced above baseline times this ratio.
	DefaultThresholdRatio = 1.5
)

var (
	ErrEmptySkuSet        = errors.New("skuopt: empty SKU set")
	ErrMissingPropertyRef = errors.New("skuopt: missing property reference")
)

// ReferenceError reports a SKU path entry that names no known property or value.
type ReferenceError struct {
	SKUID      string
	PropertyID string
	ValueID    string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("skuopt: sku %s references unknown %s:%s", e.SKUID, e.PropertyID, e.ValueID)
}

func (e *ReferenceError) Is(target error) bool { return target == ErrMissingPropertyRef }

// Property is one option axis of the vendor graph (e.g. colour).
type Property struct {
	ID     string
	Name   string
	Values []Value
}

// Value is one choice on an axis.
type Value struct {
	ID    string
	Name  string
	Image string
}

// PathEntry selects one value of one property.
type PathEntry struct {
	PropertyID string
	ValueID    string
}

// Record is a purchasable SKU joined with its price and stock.
// Price is in vendor minor units.
type Record struct {
	SKUID string
	Price int64
	Stock int
	Path  []PathEntry
}

// Combination is one destination option row.
type Combination struct {
	SKUID      string   `json:"skuId,omitempty"`
	Names      []string `json:"names"`
	Stock      int      `json:"stockQuantity"`
	PriceDelta int64    `json:"price"`
}

// Result is the normalized option block.
type Result struct {
	GroupNames    []string      `json:"groupNames"`
	Combinations  []Combination `json:"combinations"`
	Baseline      int64         `json:"baseline"`
	BaselineStock int           `json:"baselineStock"`
	Dropped       int           `json:"dropped"`
}

type config struct {
	maxAxes int
	ratio   float64
}

// Option configures Normalize.
type Option func(*config)

// WithMaxAxes caps the axes kept. Values outside 1..DefaultMaxAxes are ignored.
func WithMaxAxes(n int) Option {
	return func(c *config) {
		if n >= 1 && n <= DefaultMaxAxes {
			c.maxAxes = n
		}
	}
}

// WithThresholdRatio sets the price ceiling ratio. Values below 1 are ignored.
func WithThresholdRatio(r float64) Option {
	return func(c *config) {
		if r >= 1 {
			c.ratio = r
		}
	}
}

// Normalize builds the option block from props and records.
//
// The baseline is the minimum record price; its stock comes from the first
// record at that price. Records above baseline*ratio are dropped. Every
// remaining record becomes a combination whose names are resolved through
// props for the first maxAxes axes; path entries for later axes are ignored.
func Normalize(props []Property, records []Record, opts ...Option) (*Result, error) {
	cfg := config{maxAxes: DefaultMaxAxes, ratio: DefaultThresholdRatio}
	for _, o := range opts {
		o(&cfg)
	}
	if len(records) == 0 {
		return nil, ErrEmptySkuSet
	}

	axes := props
	if len(axes) > cfg.maxAxes {
		axes = axes[:cfg.maxAxes]
	}
	axisIndex := make(map[string]int, len(props))
	for i, p := range props {
		axisIndex[p.ID] = i
	}

	res := &Result{GroupNames: make([]string, len(axes))}
	for i, p := range axes {
		res.GroupNames[i] = p.Name
	}

	base := records[0]
	for _, r := range records[1:] {
		if r.Price < base.Price {
			base = r
		}
	}
	res.Baseline = base.Price
	res.BaselineStock = base.Stock
	threshold := float64(base.Price) * cfg.ratio

	res.Combinations = make([]Combination, 0, len(records))
	for _, r := range records {
		if float64(r.Price) > threshold {
			res.Dropped++
			continue
		}
		names := make([]string, len(axes))
		for _, pe := range r.Path {
			i, ok := axisIndex[pe.PropertyID]
			if !ok {
				return nil, &ReferenceError{SKUID: r.SKUID, PropertyID: pe.PropertyID, ValueID: pe.ValueID}
			}
			if i >= len(axes) {
				continue
			}
			name, ok := valueName(props[i], pe.ValueID)
			if !ok {
				return nil, &ReferenceError{SKUID: r.SKUID, PropertyID: pe.PropertyID, ValueID: pe.ValueID}
			}
			names[i] = name
		}
		res.Combinations = append(res.Combinations, Combination{
			SKUID:      r.SKUID,
			Names:      names,
			Stock:      r.Stock,
			PriceDelta: r.Price - base.Price,
		})
	}
	return res, nil
}

func valueName(p Property, valueID string) (string, bool) {
	for _, v := range p.Values {
		if v.ID == valueID {
			return v.Name, true
		}
	}
	return "", false
}

// Scale converts every price of the result with convert, typically a
// currency conversion. Deltas are recomputed from converted absolute prices so
// that a monotonic convert keeps them non-negative.
func (r *Result) Scale(convert func(int64) int64) *Result {
	out := &Result{
		GroupNames:    append([]string(nil), r.GroupNames...),
		Combinations:  make([]Combination, len(r.Combinations)),
		Baseline:      convert(r.Baseline),
		BaselineStock: r.BaselineStock,
		Dropped:       r.Dropped,
	}
	for i, c := range r.Combinations {
		c.Names = append([]string(nil), c.Names...)
		c.PriceDelta = max(convert(r.Baseline+c.PriceDelta)-out.Baseline, 0)
		out.Combinations[i] = c
	}
	return out
}

// PriceRange returns the lowest and highest absolute prices on offer.
func (r *Result) PriceRange() (lo, hi int64) {
	lo, hi = r.Baseline, r.Baseline
	for _, c := range r.Combinations {
		hi = max(hi, r.Baseline+c.PriceDelta)
	}
	return lo, hi
}
