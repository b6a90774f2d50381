package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mmynk/wedplan/internal/calculator"
	"github.com/mmynk/wedplan/internal/export"
	"github.com/mmynk/wedplan/internal/sharestate"
)

var (
	// ErrExportFailure is returned when the export collaborator fails.
	ErrExportFailure = errors.New("export failed")
	// ErrClipboardFailure is returned when the share link could not be copied.
	ErrClipboardFailure = errors.New("copying share link failed")
	// ErrExportInProgress is returned when an export is requested while
	// another one is still running. Requests are rejected, not queued.
	ErrExportInProgress = errors.New("an export is already in progress")
)

// LinkCopiedFlash is how long LinkCopied reports true after a successful copy.
const LinkCopiedFlash = 2 * time.Second

// Exporter renders and delivers an estimate.
type Exporter interface {
	Export(ctx context.Context, req export.Request) (*export.Receipt, error)
}

// Clipboard receives share links.
type Clipboard interface {
	Copy(ctx context.Context, text string) error
}

// DrinksController owns the editable calculator state. Every mutation
// recomputes the estimate before returning; a mutation that would produce an
// invalid input is rejected and leaves the state as it was.
type DrinksController struct {
	mu     sync.RWMutex
	table  *calculator.Table
	input  calculator.Input
	output *calculator.Output

	baseURL   string
	userID    string
	email     string
	exporter  Exporter
	clipboard Clipboard
	now       func() time.Time

	guard     *ExportGuard
	exporting *atomic.Bool
	copiedAt  atomic.Int64
}

// ExportGuard shares the export in-flight flag between controllers acting for
// the same user, so a user cannot run two exports at once across requests.
// Anonymous controllers share the flag of the empty user ID.
type ExportGuard struct {
	inFlight sync.Map // user ID -> *atomic.Bool
}

// NewExportGuard creates an empty guard.
func NewExportGuard() *ExportGuard {
	return &ExportGuard{}
}

func (g *ExportGuard) flag(userID string) *atomic.Bool {
	v, _ := g.inFlight.LoadOrStore(userID, new(atomic.Bool))
	return v.(*atomic.Bool)
}

// ControllerOption configures a DrinksController.
type ControllerOption func(*DrinksController)

// WithTable overrides the default pricing table.
func WithTable(t *calculator.Table) ControllerOption {
	return func(c *DrinksController) { c.table = t }
}

// WithExporter sets the export collaborator.
func WithExporter(e Exporter) ControllerOption {
	return func(c *DrinksController) { c.exporter = e }
}

// WithClipboard sets the clipboard collaborator.
func WithClipboard(cb Clipboard) ControllerOption {
	return func(c *DrinksController) { c.clipboard = cb }
}

// WithShareBaseURL sets the page URL share links are built on.
func WithShareBaseURL(u string) ControllerOption {
	return func(c *DrinksController) { c.baseURL = u }
}

// WithUserID attributes exports to the given user.
func WithUserID(id string) ControllerOption {
	return func(c *DrinksController) { c.userID = id }
}

// WithUserEmail names the recipient on exported documents.
func WithUserEmail(email string) ControllerOption {
	return func(c *DrinksController) { c.email = email }
}

// WithExportGuard makes the controller take its export in-flight flag from g,
// keyed by the controller's user ID.
func WithExportGuard(g *ExportGuard) ControllerOption {
	return func(c *DrinksController) { c.guard = g }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *DrinksController) { c.now = now }
}

// NewDrinksController creates a controller initialised with the default input.
func NewDrinksController(opts ...ControllerOption) *DrinksController {
	c := &DrinksController{
		table: calculator.DefaultTable(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.guard != nil {
		c.exporting = c.guard.flag(c.userID)
	} else {
		c.exporting = new(atomic.Bool)
	}

	in := sharestate.DefaultInput()
	out, err := c.table.Estimate(in)
	if err != nil {
		// The default input selects no moment, so the table is never read;
		// this fails only if the default input itself stops validating.
		panic(fmt.Sprintf("estimating default input: %v", err))
	}
	c.input, c.output = in, out
	return c
}

// Input returns a copy of the current state.
func (c *DrinksController) Input() calculator.Input {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.input.Clone()
}

// Output returns a copy of the estimate for the current state.
func (c *DrinksController) Output() *calculator.Output {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.output.Clone()
}

// mutate applies fn to a copy of the input and commits it if the estimate
// succeeds.
func (c *DrinksController) mutate(fn func(in *calculator.Input)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.input.Clone()
	fn(&next)

	out, err := c.table.Estimate(next)
	if err != nil {
		return err
	}
	c.input, c.output = next, out
	return nil
}

// SetGuestCount replaces the guest count.
func (c *DrinksController) SetGuestCount(n int) error {
	return c.mutate(func(in *calculator.Input) { in.GuestCount = n })
}

// SetMoment selects or deselects m.
func (c *DrinksController) SetMoment(m calculator.Moment, selected bool) error {
	return c.mutate(func(in *calculator.Input) {
		if selected {
			in.Moments[m] = struct{}{}
		} else {
			delete(in.Moments, m)
		}
	})
}

// ToggleMoment flips the selection of m.
func (c *DrinksController) ToggleMoment(m calculator.Moment) error {
	return c.mutate(func(in *calculator.Input) {
		if in.Moments.Has(m) {
			delete(in.Moments, m)
		} else {
			in.Moments[m] = struct{}{}
		}
	})
}

// SetTier replaces the price tier.
func (c *DrinksController) SetTier(t calculator.Tier) error {
	return c.mutate(func(in *calculator.Input) { in.Tier = t })
}

// SetServings sets the glasses per guest for m, selected or not.
func (c *DrinksController) SetServings(m calculator.Moment, n int) error {
	return c.mutate(func(in *calculator.Input) { in.Servings[m] = n })
}

// SetInput replaces the whole state.
func (c *DrinksController) SetInput(next calculator.Input) error {
	return c.mutate(func(in *calculator.Input) { *in = next.Clone() })
}

// Load initialises the state from a share link's state. Decoding never
// fails, so neither does Load.
func (c *DrinksController) Load(s sharestate.State) {
	if err := c.SetInput(sharestate.Decode(s)); err != nil {
		// Decode only yields valid inputs.
		slog.Error("Loading share state failed", "error", err)
	}
}

// Reset restores the default input.
func (c *DrinksController) Reset() {
	c.Load(sharestate.State{})
}

// ShareLink encodes the current state onto the configured base URL.
func (c *DrinksController) ShareLink() (string, error) {
	return sharestate.Link(c.baseURL, c.Input())
}

// CopyShareLink hands the share link to the clipboard collaborator.
func (c *DrinksController) CopyShareLink(ctx context.Context) (string, error) {
	if c.clipboard == nil {
		return "", fmt.Errorf("%w: no clipboard configured", ErrClipboardFailure)
	}
	link, err := c.ShareLink()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrClipboardFailure, err)
	}

	if err := c.clipboard.Copy(ctx, link); err != nil {
		slog.Warn("Share link copy failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrClipboardFailure, err)
	}
	c.copiedAt.Store(c.now().UnixNano())
	return link, nil
}

// LinkCopied reports whether a share link was copied within the last
// LinkCopiedFlash.
func (c *DrinksController) LinkCopied() bool {
	at := c.copiedAt.Load()
	if at == 0 {
		return false
	}
	return c.now().Sub(time.Unix(0, at)) < LinkCopiedFlash
}

// Exporting reports whether an export is in flight.
func (c *DrinksController) Exporting() bool {
	return c.exporting.Load()
}

// Export sends the current state and its estimate to the export
// collaborator. A second call while one is running fails with
// ErrExportInProgress. Failures never change the calculator state.
func (c *DrinksController) Export(ctx context.Context) (*export.Receipt, error) {
	if c.exporter == nil {
		return nil, fmt.Errorf("%w: no exporter configured", ErrExportFailure)
	}
	if !c.exporting.CompareAndSwap(false, true) {
		return nil, ErrExportInProgress
	}
	defer c.exporting.Store(false)

	c.mu.RLock()
	in := c.input.Clone()
	out := c.output.Clone()
	c.mu.RUnlock()

	req := export.Request{
		GuestCount:       in.GuestCount,
		Moments:          in.Moments.Sorted(),
		Tier:             in.Tier,
		Servings:         in.Servings,
		Output:           out,
		RequestedBy:      c.userID,
		RequestedByEmail: c.email,
	}
	if c.baseURL != "" {
		if link, err := sharestate.Link(c.baseURL, in); err == nil {
			req.ShareLink = link
		}
	}

	receipt, err := c.exporter.Export(ctx, req)
	if err != nil {
		slog.Warn("Export failed", "guest_count", in.GuestCount, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrExportFailure, err)
	}
	return receipt, nil
}
