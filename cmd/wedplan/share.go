package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/wedplan/internal/clipboard"
	"github.com/mmynk/wedplan/internal/service"
)

type ShareCmd struct {
	InputFlags `embed:""`

	NoCopy bool `help:"Only print the link"`
}

func (s *ShareCmd) Run(ctx *Context) error {
	var opts []service.ControllerOption
	if !s.NoCopy {
		opts = append(opts, service.WithClipboard(clipboard.System{}))
	}
	c, err := newController(ctx.Config, &s.InputFlags, opts...)
	if err != nil {
		return err
	}

	if s.NoCopy {
		link, err := c.ShareLink()
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.Out, link)
		return nil
	}

	link, err := c.CopyShareLink(context.Background())
	if err != nil {
		// The link is still useful without the clipboard.
		slog.Warn("Could not copy share link", "error", err)
		link, err = c.ShareLink()
		if err != nil {
			return err
		}
		fmt.Fprintln(ctx.Out, link)
		return nil
	}
	fmt.Fprintf(ctx.Out, "%s\n(copied to clipboard)\n", link)
	return nil
}
