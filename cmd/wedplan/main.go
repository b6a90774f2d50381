package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/mmynk/wedplan/internal/config"
	"github.com/mmynk/wedplan/pkg/logging"
)

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("wedplan"),
		kong.Description("wedplan estimates the drinks a wedding needs and what they cost."),
		kong.UsageOnError(),
	)

	conf, err := config.Load(CLI.Config)
	ctx.FatalIfErrorf(err)

	level := conf.Log.Level
	if CLI.Debug {
		level = "debug"
	}
	logging.Setup(level)

	err = ctx.Run(&Context{Config: conf, Out: os.Stdout})
	ctx.FatalIfErrorf(err)
}
