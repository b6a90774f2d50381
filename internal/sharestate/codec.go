// Package sharestate converts calculator inputs to and from the flat key/value
// form carried in share links.
//
// Encoding is total. Decoding never fails: share links are hand-editable, so
// every missing or malformed field falls back to its default instead.
package sharestate

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/mmynk/wedplan/internal/calculator"
)

// Query parameter names.
const (
	KeyGuests  = "guests"
	KeyMoments = "moments"
	KeyTier    = "tier"
)

// Defaults applied by Decode.
const (
	DefaultGuestCount = 100
	DefaultTier       = calculator.TierAffordable
)

// DefaultServings returns the glasses-per-guest used when a link carries no
// usable value for a moment.
func DefaultServings() map[calculator.Moment]int {
	return map[calculator.Moment]int{
		calculator.MomentCocktail: 2,
		calculator.MomentDinner:   3,
		calculator.MomentDessert:  1,
		calculator.MomentParty:    2,
	}
}

// State is the flat projection of a calculator.Input. Field values are the
// raw strings found in (or destined for) the query string.
type State struct {
	Guests   string
	Moments  string
	Tier     string
	Servings map[calculator.Moment]string
}

// Encode projects in onto a State. Moments are joined in canonical order and
// every known moment gets a servings field, selected or not.
func Encode(in calculator.Input) State {
	selected := make([]string, 0, len(in.Moments))
	for _, m := range calculator.Moments() {
		if in.Moments.Has(m) {
			selected = append(selected, string(m))
		}
	}

	servings := make(map[calculator.Moment]string, len(calculator.Moments()))
	for _, m := range calculator.Moments() {
		servings[m] = strconv.Itoa(in.Servings[m])
	}

	return State{
		Guests:   strconv.Itoa(in.GuestCount),
		Moments:  strings.Join(selected, ","),
		Tier:     string(in.Tier),
		Servings: servings,
	}
}

// Decode rebuilds an Input from s, substituting defaults for anything missing
// or unusable.
func Decode(s State) calculator.Input {
	in := calculator.Input{
		GuestCount: parseCount(s.Guests, calculator.MaxGuestCount, DefaultGuestCount),
		Moments:    parseMoments(s.Moments),
		Tier:       DefaultTier,
		Servings:   DefaultServings(),
	}

	if t, err := calculator.ParseTier(strings.TrimSpace(s.Tier)); err == nil {
		in.Tier = t
	}
	for m, fallback := range in.Servings {
		in.Servings[m] = parseCount(s.Servings[m], calculator.MaxServings, fallback)
	}

	return in
}

// DefaultInput is the fully-defaulted input, Decode(State{}).
func DefaultInput() calculator.Input {
	return Decode(State{})
}

func parseCount(raw string, max, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 || n > max {
		return fallback
	}
	return n
}

func parseMoments(raw string) calculator.MomentSet {
	set := calculator.NewMomentSet()
	for _, token := range strings.Split(raw, ",") {
		if m, err := calculator.ParseMoment(strings.TrimSpace(token)); err == nil {
			set[m] = struct{}{}
		}
	}
	return set
}

// Values renders the state as query parameters. All seven keys are always set.
func (s State) Values() url.Values {
	v := url.Values{}
	v.Set(KeyGuests, s.Guests)
	v.Set(KeyMoments, s.Moments)
	v.Set(KeyTier, s.Tier)
	for _, m := range calculator.Moments() {
		v.Set(string(m), s.Servings[m])
	}
	return v
}

// Encode renders the state as a query string with keys in link order:
// guests, moments, tier, then one key per moment.
func (s State) Encode() string {
	var b strings.Builder
	write := func(key, value string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(key))
		b.WriteByte('=')
		b.WriteString(escapeValue(value))
	}
	write(KeyGuests, s.Guests)
	write(KeyMoments, s.Moments)
	write(KeyTier, s.Tier)
	for _, m := range calculator.Moments() {
		write(string(m), s.Servings[m])
	}
	return b.String()
}

// escapeValue query-escapes v but keeps commas readable, so moment lists look
// like "dinner,party" in the address bar.
func escapeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "%2C", ",")
}

// FromValues reads a State out of query parameters. Absent keys stay empty.
func FromValues(v url.Values) State {
	s := State{
		Guests:   v.Get(KeyGuests),
		Moments:  v.Get(KeyMoments),
		Tier:     v.Get(KeyTier),
		Servings: make(map[calculator.Moment]string, len(calculator.Moments())),
	}
	for _, m := range calculator.Moments() {
		if raw, ok := v[string(m)]; ok && len(raw) > 0 {
			s.Servings[m] = raw[0]
		}
	}
	return s
}

// ParseQuery reads a State from a raw query string, with or without the
// leading '?'. Pairs that fail to parse are skipped.
func ParseQuery(rawQuery string) State {
	// url.ParseQuery keeps every pair it could parse alongside the error.
	v, _ := url.ParseQuery(strings.TrimPrefix(rawQuery, "?"))
	return FromValues(v)
}

// Link appends the encoded input to baseURL, replacing any query it had.
func Link(baseURL string, in calculator.Input) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid share base URL %q: %w", baseURL, err)
	}
	u.RawQuery = Encode(in).Encode()
	u.Fragment, u.RawFragment = "", ""
	return u.String(), nil
}
