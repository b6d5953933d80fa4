package refine

import "math"

// DefaultExchangeRate is won per yuan when none is configured.
const DefaultExchangeRate = 191.55

// Pricing converts vendor minor units (fen) into destination won.
type Pricing struct {
	// ExchangeRate is won per vendor major unit (yuan).
	ExchangeRate float64 `yaml:"exchange_rate"`
	// Markup multiplies the converted price; 1 keeps it unchanged.
	Markup float64 `yaml:"markup"`
	// RoundTo rounds converted prices up to a multiple of this many won.
	RoundTo int64 `yaml:"round_to"`
}

func (p *Pricing) defaults() {
	if p.ExchangeRate <= 0 {
		p.ExchangeRate = DefaultExchangeRate
	}
	if p.Markup <= 0 {
		p.Markup = 1
	}
	if p.RoundTo <= 0 {
		p.RoundTo = 10
	}
}

// Convert maps a vendor price in minor units to won. It is monotonic, so
// option deltas computed from converted prices stay non-negative.
func (p Pricing) Convert(minor int64) int64 {
	p.defaults()
	won := float64(minor) / 100 * p.ExchangeRate * p.Markup
	steps := math.Ceil(won/float64(p.RoundTo) - 1e-9)
	return int64(steps) * p.RoundTo
}
