package calculator

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Table holds the constant data the estimator works from: how many glasses a
// standard bottle pours per category, and the unit price of a bottle for every
// (category, tier) pair.
type Table struct {
	GlassesPerBottle map[Category]int              `yaml:"glasses_per_bottle"`
	UnitPrices       map[Category]map[Tier]float64 `yaml:"unit_prices"`
}

// DefaultTable returns the built-in table.
//
//	category   glasses/bottle  economic  affordable  premium  luxury
//	champagne  6               15        25          40       70
//	wine       5               6         10          18       35
//	spirits    16              12        20          35       60
//
// Champagne and wine assume a 75cl bottle poured in 12-15cl glasses; spirits
// assume a 70cl bottle served as 4cl measures in long drinks.
func DefaultTable() *Table {
	return &Table{
		GlassesPerBottle: map[Category]int{
			CategoryChampagne: 6,
			CategoryWine:      5,
			CategorySpirits:   16,
		},
		UnitPrices: map[Category]map[Tier]float64{
			CategoryChampagne: {TierEconomic: 15, TierAffordable: 25, TierPremium: 40, TierLuxury: 70},
			CategoryWine:      {TierEconomic: 6, TierAffordable: 10, TierPremium: 18, TierLuxury: 35},
			CategorySpirits:   {TierEconomic: 12, TierAffordable: 20, TierPremium: 35, TierLuxury: 60},
		},
	}
}

// UnitPrice returns the price of one bottle of c at tier t.
func (t *Table) UnitPrice(c Category, tier Tier) float64 {
	return t.UnitPrices[c][tier]
}

// Validate checks that the table covers every category and tier, that bottles
// pour at least one glass, and that prices never decrease from economic to luxury.
func (t *Table) Validate() error {
	for _, c := range categories {
		if t.GlassesPerBottle[c] <= 0 {
			return fmt.Errorf("glasses per bottle for %s must be positive, got %d", c, t.GlassesPerBottle[c])
		}
		prices, ok := t.UnitPrices[c]
		if !ok {
			return fmt.Errorf("missing unit prices for %s", c)
		}
		prev := 0.0
		for _, tier := range tiers {
			price, ok := prices[tier]
			if !ok {
				return fmt.Errorf("missing unit price for %s/%s", c, tier)
			}
			if price < prev {
				return fmt.Errorf("unit price for %s/%s (%.2f) is lower than the previous tier (%.2f)", c, tier, price, prev)
			}
			prev = price
		}
	}
	return nil
}

// LoadTable reads a YAML table and validates it. Categories and tiers must use
// their tag names:
//
//	glasses_per_bottle:
//	  champagne: 6
//	unit_prices:
//	  champagne: {economic: 15, affordable: 25, premium: 40, luxury: 70}
func LoadTable(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var t Table
	if err := dec.Decode(&t); err != nil {
		return nil, fmt.Errorf("failed to decode pricing table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pricing table: %w", err)
	}
	return &t, nil
}
