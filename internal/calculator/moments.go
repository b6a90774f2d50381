package calculator

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Moment identifies a drinking occasion during the event.
type Moment string

const (
	MomentCocktail Moment = "cocktail"
	MomentDinner   Moment = "dinner"
	MomentDessert  Moment = "dessert"
	MomentParty    Moment = "party"
)

// moments is the canonical declaration order, used wherever moments are listed.
var moments = []Moment{MomentCocktail, MomentDinner, MomentDessert, MomentParty}

// Moments returns every known moment in canonical order.
func Moments() []Moment {
	out := make([]Moment, len(moments))
	copy(out, moments)
	return out
}

// Valid reports whether m is one of the known moments.
func (m Moment) Valid() bool {
	return m.rank() >= 0
}

func (m Moment) rank() int {
	for i, known := range moments {
		if known == m {
			return i
		}
	}
	return -1
}

// Category returns the beverage category the moment's bottles are counted in.
func (m Moment) Category() Category {
	switch m {
	case MomentCocktail, MomentDessert:
		return CategoryChampagne
	case MomentDinner:
		return CategoryWine
	case MomentParty:
		return CategorySpirits
	}
	return ""
}

// ParseMoment converts a tag into a Moment.
func ParseMoment(s string) (Moment, error) {
	m := Moment(s)
	if !m.Valid() {
		return "", fmt.Errorf("%w: unknown moment %q", ErrInvalidInput, s)
	}
	return m, nil
}

// Tier is a price/quality level. It affects unit prices only.
type Tier string

const (
	TierEconomic   Tier = "economic"
	TierAffordable Tier = "affordable"
	TierPremium    Tier = "premium"
	TierLuxury     Tier = "luxury"
)

var tiers = []Tier{TierEconomic, TierAffordable, TierPremium, TierLuxury}

// Tiers returns every known tier, cheapest first.
func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	for _, known := range tiers {
		if known == t {
			return true
		}
	}
	return false
}

// ParseTier converts a tag into a Tier.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: unknown tier %q", ErrInvalidInput, s)
	}
	return t, nil
}

// Category is the beverage bottles are accumulated into.
type Category string

const (
	CategoryChampagne Category = "champagne"
	CategoryWine      Category = "wine"
	CategorySpirits   Category = "spirits"
)

var categories = []Category{CategoryChampagne, CategoryWine, CategorySpirits}

// Categories returns every beverage category in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// MomentSet is an unordered set of moments.
type MomentSet map[Moment]struct{}

// NewMomentSet builds a set from the given moments, collapsing duplicates.
func NewMomentSet(ms ...Moment) MomentSet {
	set := make(MomentSet, len(ms))
	for _, m := range ms {
		set[m] = struct{}{}
	}
	return set
}

// Has reports whether m is in the set.
func (s MomentSet) Has(m Moment) bool {
	_, ok := s[m]
	return ok
}

// Sorted returns the members in canonical order. Unknown members sort last,
// alphabetically, so the result is deterministic even for invalid sets.
func (s MomentSet) Sorted() []Moment {
	out := make([]Moment, 0, len(s))
	for m := range s {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, rj := out[i].rank(), out[j].rank()
		if ri < 0 && rj < 0 {
			return out[i] < out[j]
		}
		if ri < 0 || rj < 0 {
			return rj < 0
		}
		return ri < rj
	})
	return out
}

// Clone returns an independent copy of the set.
func (s MomentSet) Clone() MomentSet {
	out := make(MomentSet, len(s))
	for m := range s {
		out[m] = struct{}{}
	}
	return out
}

// MarshalJSON encodes the set as an array in canonical order.
func (s MomentSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes an array of moment tags.
func (s *MomentSet) UnmarshalJSON(data []byte) error {
	var ms []Moment
	if err := json.Unmarshal(data, &ms); err != nil {
		return err
	}
	*s = NewMomentSet(ms...)
	return nil
}
