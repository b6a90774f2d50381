package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mmynk/wedplan/internal/calculator"
	"github.com/mmynk/wedplan/internal/config"
	"github.com/mmynk/wedplan/internal/service"
	"github.com/mmynk/wedplan/internal/sharestate"
)

type Context struct {
	Config *config.Config
	Out    io.Writer
}

var CLI struct {
	Config string `default:".wedplan.yaml" help:"Path to config file" short:"c"`
	Debug  bool   `help:"Enable debug logging"`

	Serve    ServeCmd    `cmd:"" default:"1" help:"Run the server"`
	Estimate EstimateCmd `cmd:"" help:"Print a drinks estimate"`
	Share    ShareCmd    `cmd:"" help:"Print a share link and copy it to the clipboard"`
	Export   ExportCmd   `cmd:"" help:"Write the estimate to an HTML document"`
}

// InputFlags describe a calculator state on the command line. A share link
// sets the starting point; the other flags override it.
type InputFlags struct {
	Link     string         `help:"Start from a share link or its query string" short:"l"`
	Guests   *int           `help:"Number of guests" short:"g"`
	Moments  []string       `help:"Selected moments: cocktail, dinner, dessert, party" short:"m" sep:","`
	Tier     string         `help:"Price tier: economic, affordable, premium, luxury" short:"t"`
	Servings map[string]int `help:"Glasses per guest, e.g. --servings dinner=3"`
}

// apply loads the flags into c.
func (f *InputFlags) apply(c *service.DrinksController) error {
	if f.Link != "" {
		query := f.Link
		if _, after, ok := strings.Cut(f.Link, "?"); ok {
			query = after
		}
		c.Load(sharestate.ParseQuery(query))
	}

	if f.Guests != nil {
		if err := c.SetGuestCount(*f.Guests); err != nil {
			return err
		}
	}
	if f.Moments != nil {
		selected := calculator.NewMomentSet()
		for _, raw := range f.Moments {
			m, err := calculator.ParseMoment(raw)
			if err != nil {
				return err
			}
			selected[m] = struct{}{}
		}
		for _, m := range calculator.Moments() {
			if err := c.SetMoment(m, selected.Has(m)); err != nil {
				return err
			}
		}
	}
	if f.Tier != "" {
		tier, err := calculator.ParseTier(f.Tier)
		if err != nil {
			return err
		}
		if err := c.SetTier(tier); err != nil {
			return err
		}
	}
	for raw, n := range f.Servings {
		m, err := calculator.ParseMoment(raw)
		if err != nil {
			return err
		}
		if err := c.SetServings(m, n); err != nil {
			return err
		}
	}
	return nil
}

// newController builds a controller with the configured pricing table and
// share base URL, loaded with the flags.
func newController(conf *config.Config, flags *InputFlags, opts ...service.ControllerOption) (*service.DrinksController, error) {
	table, err := conf.PricingTable()
	if err != nil {
		return nil, err
	}

	opts = append([]service.ControllerOption{
		service.WithTable(table),
		service.WithShareBaseURL(conf.ShareBaseURL()),
	}, opts...)
	c := service.NewDrinksController(opts...)

	if err := flags.apply(c); err != nil {
		return nil, fmt.Errorf("invalid calculator flags: %w", err)
	}
	return c, nil
}
