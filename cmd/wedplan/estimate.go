package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/mmynk/wedplan/internal/calculator"
)

type EstimateCmd struct {
	InputFlags `embed:""`

	JSON bool `help:"Print the estimate as JSON"`
}

func (e *EstimateCmd) Run(ctx *Context) error {
	c, err := newController(ctx.Config, &e.InputFlags)
	if err != nil {
		return err
	}
	in, out := c.Input(), c.Output()

	if e.JSON {
		enc := json.NewEncoder(ctx.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Input  calculator.Input   `json:"input"`
			Output *calculator.Output `json:"output"`
		}{in, out})
	}

	currency := ctx.Config.Pricing.Currency
	money := func(v float64) string { return currency + " " + humanize.FormatFloat("#,###.##", v) }

	fmt.Fprintf(ctx.Out, "%s guests, %s tier\n\n", humanize.Comma(int64(in.GuestCount)), in.Tier)

	w := tabwriter.NewWriter(ctx.Out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MOMENT\tCATEGORY\tGLASSES\tBOTTLES\tCOST")
	for _, l := range out.Lines {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			l.Moment, l.Category, humanize.Comma(int64(l.Glasses)), humanize.Comma(int64(l.Bottles)), money(l.Cost))
	}
	fmt.Fprintln(w, "\t\t\t\t")
	for _, cat := range calculator.Categories() {
		fmt.Fprintf(w, "%s\t\t\t%s\t\n", cat, humanize.Comma(int64(out.Bottles[cat])))
	}
	fmt.Fprintf(w, "total\t\t\t\t%s\n", money(out.TotalCost))
	return w.Flush()
}
