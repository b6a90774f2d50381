package main

import (
	"context"
	"fmt"

	"github.com/mmynk/wedplan/internal/export"
	"github.com/mmynk/wedplan/internal/service"
)

type ExportCmd struct {
	InputFlags `embed:""`

	Dir string `default:"." help:"Directory the document is written to" short:"d"`
}

func (e *ExportCmd) Run(ctx *Context) error {
	exporter := export.NewFileExporter(e.Dir, export.NewRenderer(ctx.Config.Pricing.Currency))
	c, err := newController(ctx.Config, &e.InputFlags, service.WithExporter(exporter))
	if err != nil {
		return err
	}

	receipt, err := c.Export(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintln(ctx.Out, receipt.Location)
	return nil
}
