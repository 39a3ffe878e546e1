package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"niftiview/pkg/config"
)

type cli struct {
	Config  string `help:"YAML configuration file." default:"niftiview.yaml" type:"path"`
	Verbose bool   `short:"v" help:"Enable debug logging."`

	Info       infoCmd       `cmd:"" help:"Print header geometry and intensity statistics of a volume."`
	Export     exportCmd     `cmd:"" help:"Write every slice of a plane as images."`
	Play       playCmd       `cmd:"" help:"Play slices along a plane, logging each frame."`
	Phantom    phantomCmd    `cmd:"" help:"Write a synthetic sphere phantom volume."`
	InitConfig initConfigCmd `cmd:"" name:"init-config" help:"Write a default configuration file."`
}

// runContext is bound into every command's Run method
type runContext struct {
	cfg *config.Config
	log *slog.Logger
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("niftiview"),
		kong.Description("Slice, window and play back NIfTI-1 volumes."),
		kong.UsageOnError(),
	)

	cfg, err := config.LoadConfig(c.Config)
	kctx.FatalIfErrorf(err)

	level := slog.LevelInfo
	if c.Verbose || cfg.Output.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	err = kctx.Run(&runContext{cfg: cfg, log: logger})
	kctx.FatalIfErrorf(err)
}
