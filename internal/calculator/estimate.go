package calculator

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is returned for out-of-range counts and unknown tags.
var ErrInvalidInput = errors.New("invalid input")

const (
	// MaxGuestCount bounds the guest count accepted by the estimator.
	MaxGuestCount = 100000
	// MaxServings bounds the glasses per guest accepted for a single moment.
	MaxServings = 50
)

// Input is everything the estimator needs.
type Input struct {
	GuestCount int            `json:"guest_count"`
	Moments    MomentSet      `json:"selected_moments"`
	Tier       Tier           `json:"tier"`
	Servings   map[Moment]int `json:"servings_per_person"`
}

// Clone returns a deep copy of the input.
func (in Input) Clone() Input {
	out := in
	out.Moments = in.Moments.Clone()
	out.Servings = make(map[Moment]int, len(in.Servings))
	for m, n := range in.Servings {
		out.Servings[m] = n
	}
	return out
}

// Validate checks ranges and tags. The upper bounds keep guests × servings
// far from integer overflow.
func (in Input) Validate() error {
	if in.GuestCount < 0 || in.GuestCount > MaxGuestCount {
		return fmt.Errorf("%w: guest count %d outside [0, %d]", ErrInvalidInput, in.GuestCount, MaxGuestCount)
	}
	if !in.Tier.Valid() {
		return fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, in.Tier)
	}
	for m := range in.Moments {
		if !m.Valid() {
			return fmt.Errorf("%w: unknown moment %q", ErrInvalidInput, m)
		}
	}
	for m, n := range in.Servings {
		if !m.Valid() {
			return fmt.Errorf("%w: servings for unknown moment %q", ErrInvalidInput, m)
		}
		if n < 0 || n > MaxServings {
			return fmt.Errorf("%w: servings for %s (%d) outside [0, %d]", ErrInvalidInput, m, n, MaxServings)
		}
	}
	return nil
}

// Line is one selected moment's contribution to the estimate.
type Line struct {
	Moment    Moment   `json:"moment"`
	Category  Category `json:"category"`
	Glasses   int      `json:"glasses"`
	Bottles   int      `json:"bottles"`
	UnitPrice float64  `json:"unit_price"`
	Cost      float64  `json:"cost"`
}

// Output is the result of an estimate. Bottles always carries every category.
type Output struct {
	Bottles   map[Category]int `json:"bottles_by_category"`
	TotalCost float64          `json:"total_cost"`
	Lines     []Line           `json:"lines"`
}

// Clone returns a deep copy of the output.
func (o *Output) Clone() *Output {
	if o == nil {
		return nil
	}
	out := &Output{
		Bottles:   make(map[Category]int, len(o.Bottles)),
		TotalCost: o.TotalCost,
		Lines:     make([]Line, len(o.Lines)),
	}
	copy(out.Lines, o.Lines)
	for c, n := range o.Bottles {
		out.Bottles[c] = n
	}
	return out
}

// Estimate computes bottle counts and cost with the default table.
func Estimate(in Input) (*Output, error) {
	return DefaultTable().Estimate(in)
}

// Estimate computes how many bottles each category needs and what they cost.
// For every selected moment m:
//
//	glasses = guests × servings[m]
//	bottles = ⌈glasses / glassesPerBottle[category(m)]⌉
//	cost    = bottles × unitPrice[category(m)][tier]
//
// Bottles are rounded up per moment before being added to the category total,
// so cocktail and dessert champagne are provisioned independently.
func (t *Table) Estimate(in Input) (*Output, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	out := &Output{
		Bottles: make(map[Category]int, len(categories)),
		Lines:   []Line{},
	}
	for _, c := range categories {
		out.Bottles[c] = 0
	}

	for _, m := range in.Moments.Sorted() {
		category := m.Category()
		perBottle := t.GlassesPerBottle[category]
		if perBottle <= 0 {
			return nil, fmt.Errorf("no glasses-per-bottle entry for %s", category)
		}

		glasses := in.GuestCount * in.Servings[m]
		bottles := ceilDiv(glasses, perBottle)
		unitPrice := t.UnitPrice(category, in.Tier)
		cost := float64(bottles) * unitPrice

		out.Bottles[category] += bottles
		out.TotalCost += cost
		out.Lines = append(out.Lines, Line{
			Moment:    m,
			Category:  category,
			Glasses:   glasses,
			Bottles:   bottles,
			UnitPrice: unitPrice,
			Cost:      cost,
		})
	}

	return out, nil
}

func ceilDiv(n, d int) int {
	return (n + d - 1) / d
}
