package domain

import "fmt"

// FundingRow is one country's declared dollar amount over the funding
// window. Amounts are non-negative; currency is implicit (no currency
// conversion is performed anywhere in this system).
type FundingRow struct {
	Country Country
	Amount  float64
}

// Funding holds one country-keyed table of dollar amounts. Each country
// appears at most once. Used for both TgfFunding (the donor pool to be
// allocated by the solver) and NonTgfFunding (fixed co-financing floors).
type Funding struct {
	kind string
	rows map[Country]float64
}

// NewTgfFunding constructs a Funding table representing the donor budget pool.
func NewTgfFunding() *Funding { return &Funding{kind: "tgf_funding", rows: make(map[Country]float64)} }

// NewNonTgfFunding constructs a Funding table representing fixed co-financing.
func NewNonTgfFunding() *Funding {
	return &Funding{kind: "non_tgf_funding", rows: make(map[Country]float64)}
}

// Add inserts a country's funding amount. Returns ErrDuplicate if the
// country is already present, and rejects negative amounts.
func (f *Funding) Add(country Country, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("%s: negative funding amount %v for %s", f.kind, amount, country)
	}
	if _, exists := f.rows[country]; exists {
		return NewKeyError(f.kind, string(country), ErrDuplicate)
	}
	f.rows[country] = amount
	return nil
}

// Get returns the funding amount for a country, 0 if absent (countries not
// named in a funding table are assumed to receive/contribute nothing).
func (f *Funding) Get(country Country) float64 {
	return f.rows[country]
}

// Countries returns every country with a declared (possibly zero) amount.
func (f *Funding) Countries() []Country {
	out := make([]Country, 0, len(f.rows))
	for c := range f.rows {
		out = append(out, c)
	}
	return out
}

// Total sums all declared amounts.
func (f *Funding) Total() float64 {
	var total float64
	for _, v := range f.rows {
		total += v
	}
	return total
}
