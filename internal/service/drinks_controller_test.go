package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mmynk/wedplan/internal/calculator"
	"github.com/mmynk/wedplan/internal/clipboard"
	"github.com/mmynk/wedplan/internal/export"
	"github.com/mmynk/wedplan/internal/sharestate"
)

// fakeExporter records requests and optionally blocks until released.
type fakeExporter struct {
	mu       sync.Mutex
	requests []export.Request
	err      error
	started  chan struct{}
	release  chan struct{}
}

func (f *fakeExporter) Export(ctx context.Context, req export.Request) (*export.Receipt, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &export.Receipt{ID: "exp-1", Filename: "estimate.html", Location: "/exports/exp-1"}, nil
}

type failingClipboard struct{}

func (failingClipboard) Copy(context.Context, string) error {
	return errors.New("clipboard locked")
}

func TestDrinksController_InitialState(t *testing.T) {
	c := NewDrinksController()

	in := c.Input()
	assert.Equal(t, sharestate.DefaultGuestCount, in.GuestCount)
	assert.Equal(t, sharestate.DefaultTier, in.Tier)
	assert.Empty(t, in.Moments)
	assert.Equal(t, sharestate.DefaultServings(), in.Servings)

	out := c.Output()
	assert.Zero(t, out.TotalCost)
	assert.False(t, c.Exporting())
	assert.False(t, c.LinkCopied())
}

func TestDrinksController_MutationsRecompute(t *testing.T) {
	c := NewDrinksController()

	require.NoError(t, c.SetMoment(calculator.MomentCocktail, true))
	// 100 guests × 2 glasses / 6 = 34 bottles at 25
	assert.Equal(t, 34, c.Output().Bottles[calculator.CategoryChampagne])
	assert.InDelta(t, 850, c.Output().TotalCost, 0.001)

	require.NoError(t, c.SetTier(calculator.TierLuxury))
	assert.InDelta(t, 34*70, c.Output().TotalCost, 0.001)

	require.NoError(t, c.SetGuestCount(0))
	assert.Zero(t, c.Output().TotalCost)

	require.NoError(t, c.SetGuestCount(60))
	require.NoError(t, c.SetServings(calculator.MomentDessert, 1))
	require.NoError(t, c.ToggleMoment(calculator.MomentDessert))
	// cocktail 120/6 = 20, dessert 60/6 = 10
	assert.Equal(t, 30, c.Output().Bottles[calculator.CategoryChampagne])

	require.NoError(t, c.ToggleMoment(calculator.MomentDessert))
	assert.Equal(t, 20, c.Output().Bottles[calculator.CategoryChampagne])

	require.NoError(t, c.SetMoment(calculator.MomentCocktail, false))
	assert.Zero(t, c.Output().Bottles[calculator.CategoryChampagne])
}

func TestDrinksController_InvalidMutationKeepsState(t *testing.T) {
	c := NewDrinksController()
	require.NoError(t, c.SetMoment(calculator.MomentDinner, true))
	before := c.Output()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"negative guests", func() error { return c.SetGuestCount(-3) }},
		{"unknown tier", func() error { return c.SetTier("platinum") }},
		{"unknown moment", func() error { return c.SetMoment("brunch", true) }},
		{"negative servings", func() error { return c.SetServings(calculator.MomentDinner, -1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			assert.ErrorIs(t, err, calculator.ErrInvalidInput)
			assert.Equal(t, before, c.Output())
			assert.Equal(t, 100, c.Input().GuestCount)
		})
	}
}

func TestDrinksController_ReadsAreCopies(t *testing.T) {
	c := NewDrinksController()
	require.NoError(t, c.SetMoment(calculator.MomentParty, true))

	in := c.Input()
	in.Servings[calculator.MomentParty] = 40
	delete(in.Moments, calculator.MomentParty)
	out := c.Output()
	out.Bottles[calculator.CategorySpirits] = 999

	assert.Equal(t, 2, c.Input().Servings[calculator.MomentParty])
	assert.True(t, c.Input().Moments.Has(calculator.MomentParty))
	assert.NotEqual(t, 999, c.Output().Bottles[calculator.CategorySpirits])
}

func TestDrinksController_LoadAndShareLink(t *testing.T) {
	c := NewDrinksController(WithShareBaseURL("https://wedplan.example/drinks"))

	c.Load(sharestate.ParseQuery("guests=50&moments=dinner,party&tier=luxury&cocktail=2&dinner=1&dessert=1&party=3"))

	in := c.Input()
	assert.Equal(t, 50, in.GuestCount)
	assert.Equal(t, calculator.TierLuxury, in.Tier)
	// dinner 50/5 = 10 wine, party 150/16 = 10 spirits
	assert.Equal(t, 10, c.Output().Bottles[calculator.CategoryWine])
	assert.Equal(t, 10, c.Output().Bottles[calculator.CategorySpirits])

	link, err := c.ShareLink()
	require.NoError(t, err)
	assert.Equal(t, "https://wedplan.example/drinks?guests=50&moments=dinner,party&tier=luxury&cocktail=2&dinner=1&dessert=1&party=3", link)

	c.Reset()
	assert.Equal(t, sharestate.DefaultInput(), c.Input())
}

func TestDrinksController_CopyShareLink(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	cb := &clipboard.Memory{}
	c := NewDrinksController(
		WithShareBaseURL("https://wedplan.example/drinks"),
		WithClipboard(cb),
		WithClock(func() time.Time { return now }),
	)

	link, err := c.CopyShareLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, link, cb.Last())
	assert.True(t, c.LinkCopied())

	now = now.Add(LinkCopiedFlash)
	assert.False(t, c.LinkCopied())
}

func TestDrinksController_CopyShareLinkFailure(t *testing.T) {
	c := NewDrinksController(WithShareBaseURL("https://wedplan.example/drinks"), WithClipboard(failingClipboard{}))
	before := c.Input()

	_, err := c.CopyShareLink(context.Background())
	assert.ErrorIs(t, err, ErrClipboardFailure)
	assert.False(t, c.LinkCopied())
	assert.Equal(t, before, c.Input())

	_, err = NewDrinksController().CopyShareLink(context.Background())
	assert.ErrorIs(t, err, ErrClipboardFailure)
}

func TestDrinksController_Export(t *testing.T) {
	exporter := &fakeExporter{}
	c := NewDrinksController(
		WithExporter(exporter),
		WithShareBaseURL("https://wedplan.example/drinks"),
		WithUserID("user-7"),
	)
	require.NoError(t, c.SetMoment(calculator.MomentCocktail, true))
	require.NoError(t, c.SetMoment(calculator.MomentDinner, true))

	receipt, err := c.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "exp-1", receipt.ID)

	require.Len(t, exporter.requests, 1)
	req := exporter.requests[0]
	assert.Equal(t, 100, req.GuestCount)
	assert.Equal(t, []calculator.Moment{calculator.MomentCocktail, calculator.MomentDinner}, req.Moments)
	assert.Equal(t, calculator.TierAffordable, req.Tier)
	assert.Equal(t, c.Output(), req.Output)
	assert.Equal(t, "user-7", req.RequestedBy)
	assert.Contains(t, req.ShareLink, "moments=cocktail,dinner")
	assert.False(t, c.Exporting())
}

func TestDrinksController_ExportFailureKeepsState(t *testing.T) {
	exporter := &fakeExporter{err: errors.New("renderer crashed")}
	c := NewDrinksController(WithExporter(exporter))
	require.NoError(t, c.SetMoment(calculator.MomentParty, true))
	before, beforeOut := c.Input(), c.Output()

	_, err := c.Export(context.Background())

	assert.ErrorIs(t, err, ErrExportFailure)
	assert.Equal(t, before, c.Input())
	assert.Equal(t, beforeOut, c.Output())
	assert.False(t, c.Exporting())

	_, err = NewDrinksController().Export(context.Background())
	assert.ErrorIs(t, err, ErrExportFailure)
}

func TestDrinksController_ConcurrentExportRejected(t *testing.T) {
	defer goleak.VerifyNone(t)

	exporter := &fakeExporter{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cb := &clipboard.Memory{}
	c := NewDrinksController(WithExporter(exporter), WithClipboard(cb), WithShareBaseURL("https://wedplan.example/drinks"))

	done := make(chan error, 1)
	go func() {
		_, err := c.Export(context.Background())
		done <- err
	}()

	<-exporter.started
	assert.True(t, c.Exporting())

	_, err := c.Export(context.Background())
	assert.ErrorIs(t, err, ErrExportInProgress)

	// copying a link is independent of the running export
	_, err = c.CopyShareLink(context.Background())
	assert.NoError(t, err)
	assert.NotEmpty(t, cb.Last())

	// and so is editing
	assert.NoError(t, c.SetGuestCount(80))

	close(exporter.release)
	require.NoError(t, <-done)
	assert.False(t, c.Exporting())

	// the guard is released once the first export finishes
	exporter.started = nil
	_, err = c.Export(context.Background())
	assert.NoError(t, err)
	assert.Len(t, exporter.requests, 2)
}

func TestDrinksController_SharedExportGuard(t *testing.T) {
	defer goleak.VerifyNone(t)

	exporter := &fakeExporter{
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	guard := NewExportGuard()
	first := NewDrinksController(WithExporter(exporter), WithExportGuard(guard), WithUserID("user-1"))
	second := NewDrinksController(WithExporter(exporter), WithExportGuard(guard), WithUserID("user-1"))
	other := NewDrinksController(WithExporter(&fakeExporter{}), WithExportGuard(guard), WithUserID("user-2"))

	done := make(chan error, 1)
	go func() {
		_, err := first.Export(context.Background())
		done <- err
	}()
	<-exporter.started

	assert.True(t, second.Exporting())
	_, err := second.Export(context.Background())
	assert.ErrorIs(t, err, ErrExportInProgress)

	_, err = other.Export(context.Background())
	assert.NoError(t, err)
	assert.False(t, other.Exporting())

	close(exporter.release)
	require.NoError(t, <-done)
	assert.False(t, second.Exporting())
}

func TestDrinksController_ExportCarriesEmail(t *testing.T) {
	exporter := &fakeExporter{}
	c := NewDrinksController(WithExporter(exporter), WithUserID("user-7"), WithUserEmail("couple@example.com"))

	_, err := c.Export(context.Background())
	require.NoError(t, err)
	require.Len(t, exporter.requests, 1)
	assert.Equal(t, "couple@example.com", exporter.requests[0].RequestedByEmail)
}

func TestDrinksController_EmptyTableOnlyFailsOnUse(t *testing.T) {
	// The default input selects nothing, so construction never reads the table.
	c := NewDrinksController(WithTable(&calculator.Table{}))
	assert.Zero(t, c.Output().TotalCost)

	err := c.SetMoment(calculator.MomentDinner, true)
	assert.Error(t, err)
	assert.False(t, c.Input().Moments.Has(calculator.MomentDinner))
}
