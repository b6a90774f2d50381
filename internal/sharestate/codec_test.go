package sharestate

import (
	"fmt"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/wedplan/internal/calculator"
)

func TestEncode(t *testing.T) {
	in := calculator.Input{
		GuestCount: 50,
		Moments:    calculator.NewMomentSet(calculator.MomentParty, calculator.MomentDinner),
		Tier:       calculator.TierLuxury,
		Servings: map[calculator.Moment]int{
			calculator.MomentCocktail: 2,
			calculator.MomentDinner:   1,
			calculator.MomentDessert:  1,
			calculator.MomentParty:    3,
		},
	}

	s := Encode(in)

	assert.Equal(t, "50", s.Guests)
	assert.Equal(t, "dinner,party", s.Moments)
	assert.Equal(t, "luxury", s.Tier)
	assert.Equal(t, "guests=50&moments=dinner,party&tier=luxury&cocktail=2&dinner=1&dessert=1&party=3", s.Encode())

	v := s.Values()
	for _, key := range []string{"guests", "moments", "tier", "cocktail", "dinner", "dessert", "party"} {
		assert.Contains(t, v, key)
	}
}

func TestEncode_MissingServingsWrittenAsZero(t *testing.T) {
	s := Encode(calculator.Input{
		GuestCount: 10,
		Moments:    calculator.NewMomentSet(),
		Tier:       calculator.TierEconomic,
	})

	assert.Equal(t, "", s.Moments)
	for _, m := range calculator.Moments() {
		assert.Equal(t, "0", s.Servings[m], "servings for %s", m)
	}
}

func TestDecode_SharedLink(t *testing.T) {
	in := Decode(ParseQuery("?guests=50&moments=dinner,party&tier=luxury&cocktail=2&dinner=1&dessert=1&party=3"))

	assert.Equal(t, 50, in.GuestCount)
	assert.Equal(t, []calculator.Moment{calculator.MomentDinner, calculator.MomentParty}, in.Moments.Sorted())
	assert.Equal(t, calculator.TierLuxury, in.Tier)
	assert.Equal(t, 1, in.Servings[calculator.MomentDinner])
	assert.Equal(t, 3, in.Servings[calculator.MomentParty])
	// unselected moments keep their values
	assert.Equal(t, 2, in.Servings[calculator.MomentCocktail])
	assert.Equal(t, 1, in.Servings[calculator.MomentDessert])
}

func TestDecode_MalformedLink(t *testing.T) {
	in := Decode(ParseQuery("guests=abc&tier=unknown"))

	assert.Equal(t, DefaultGuestCount, in.GuestCount)
	assert.Equal(t, DefaultTier, in.Tier)
	assert.Empty(t, in.Moments)
	assert.Equal(t, DefaultServings(), in.Servings)
}

func TestDecode_Empty(t *testing.T) {
	in := Decode(State{})

	require.NoError(t, in.Validate())
	assert.Equal(t, 100, in.GuestCount)
	assert.Equal(t, calculator.TierAffordable, in.Tier)
	assert.NotNil(t, in.Moments)
	assert.Empty(t, in.Moments)
	assert.Equal(t, map[calculator.Moment]int{
		calculator.MomentCocktail: 2,
		calculator.MomentDinner:   3,
		calculator.MomentDessert:  1,
		calculator.MomentParty:    2,
	}, in.Servings)

	_, err := calculator.Estimate(in)
	assert.NoError(t, err)
}

func TestDecode_Tolerance(t *testing.T) {
	tests := []struct {
		name  string
		query string
		check func(t *testing.T, in calculator.Input)
	}{
		{
			name:  "unknown moment tokens are dropped",
			query: "moments=cocktail,brunch,,party",
			check: func(t *testing.T, in calculator.Input) {
				assert.Equal(t, []calculator.Moment{calculator.MomentCocktail, calculator.MomentParty}, in.Moments.Sorted())
			},
		},
		{
			name:  "duplicate moments collapse",
			query: "moments=dessert,dessert,%20dessert%20",
			check: func(t *testing.T, in calculator.Input) {
				assert.Len(t, in.Moments, 1)
				assert.True(t, in.Moments.Has(calculator.MomentDessert))
			},
		},
		{
			name:  "moment tags are case sensitive",
			query: "moments=Dinner",
			check: func(t *testing.T, in calculator.Input) {
				assert.Empty(t, in.Moments)
			},
		},
		{
			name:  "negative guests fall back",
			query: "guests=-20",
			check: func(t *testing.T, in calculator.Input) {
				assert.Equal(t, DefaultGuestCount, in.GuestCount)
			},
		},
		{
			name:  "oversized guests fall back",
			query: fmt.Sprintf("guests=%d", calculator.MaxGuestCount+1),
			check: func(t *testing.T, in calculator.Input) {
				assert.Equal(t, DefaultGuestCount, in.GuestCount)
			},
		},
		{
			name:  "zero guests is kept",
			query: "guests=0",
			check: func(t *testing.T, in calculator.Input) {
				assert.Equal(t, 0, in.GuestCount)
			},
		},
		{
			name:  "non-numeric servings fall back per moment",
			query: "cocktail=lots&dinner=2.5&dessert=4&party=",
			check: func(t *testing.T, in calculator.Input) {
				assert.Equal(t, 2, in.Servings[calculator.MomentCocktail])
				assert.Equal(t, 3, in.Servings[calculator.MomentDinner])
				assert.Equal(t, 4, in.Servings[calculator.MomentDessert])
				assert.Equal(t, 2, in.Servings[calculator.MomentParty])
			},
		},
		{
			name:  "broken escapes keep the parseable pairs",
			query: "guests=75&tier=%zz&moments=party",
			check: func(t *testing.T, in calculator.Input) {
				assert.Equal(t, 75, in.GuestCount)
				assert.Equal(t, DefaultTier, in.Tier)
				assert.True(t, in.Moments.Has(calculator.MomentParty))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := Decode(ParseQuery(tt.query))
			require.NoError(t, in.Validate())
			tt.check(t, in)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	moments := calculator.Moments()
	for _, tier := range calculator.Tiers() {
		// every subset of the four moments
		for mask := 0; mask < 1<<len(moments); mask++ {
			selected := calculator.NewMomentSet()
			for i, m := range moments {
				if mask&(1<<i) != 0 {
					selected[m] = struct{}{}
				}
			}
			in := calculator.Input{
				GuestCount: mask * 37,
				Moments:    selected,
				Tier:       tier,
				Servings: map[calculator.Moment]int{
					calculator.MomentCocktail: mask % 5,
					calculator.MomentDinner:   0,
					calculator.MomentDessert:  calculator.MaxServings,
					calculator.MomentParty:    mask,
				},
			}

			got := Decode(Encode(in))
			if diff := cmp.Diff(in, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch for tier=%s mask=%d (-want +got):\n%s", tier, mask, diff)
			}

			// and through an actual URL
			link, err := Link("https://example.com/drinks?stale=1#top", in)
			require.NoError(t, err)
			u, err := url.Parse(link)
			require.NoError(t, err)
			assert.NotContains(t, u.RawQuery, "stale")
			got = Decode(FromValues(u.Query()))
			if diff := cmp.Diff(in, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("link round trip mismatch for tier=%s mask=%d (-want +got):\n%s", tier, mask, diff)
			}
		}
	}
}

func TestLink(t *testing.T) {
	link, err := Link("https://wedplan.example/outils/boissons", DefaultInput())
	require.NoError(t, err)
	assert.Equal(t,
		"https://wedplan.example/outils/boissons?guests=100&moments=&tier=affordable&cocktail=2&dinner=3&dessert=1&party=2",
		link,
	)

	_, err = Link("://missing-scheme", DefaultInput())
	assert.Error(t, err)
}
