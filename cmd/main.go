package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"aqdash-server/internal/app"
	"aqdash-server/internal/config"
	"aqdash-server/internal/logging"
)

const appName = "aqdash-server"

// Set with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)

	if err := run(cfg, logger, os.Args[1:]); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger, args []string) error {
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		logger.Info("starting",
			"version", version,
			"env", cfg.AppEnv,
			"log_level", cfg.LogLevel.String(),
		)
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		err := app.Run(ctx, cfg, logger)
		logger.Info("shutting down")
		return err

	case "migrate":
		return app.Migrate(cfg, logger)

	case "import":
		fs := flag.NewFlagSet("import", flag.ExitOnError)
		fs.Usage = func() {
			fmt.Fprintln(fs.Output(), "usage: aqdash-server import <file.csv>")
			fs.PrintDefaults()
		}
		_ = fs.Parse(args)
		if fs.NArg() != 1 {
			fs.Usage()
			return errors.New("import: exactly one CSV path is required")
		}
		_, err := app.Import(cfg, fs.Arg(0), logger)
		return err

	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		var req app.ExportRequest
		fs.StringVar(&req.Start, "start", "", "first date (YYYY-MM-DD); defaults to the first stored date")
		fs.StringVar(&req.End, "end", "", "last date (YYYY-MM-DD); defaults to the last stored date")
		fs.StringVar(&req.Out, "out", "", "output .xlsx path; defaults to pm25-report_<start>_<end>.xlsx")
		_ = fs.Parse(args)
		return app.Export(cfg, req, logger)

	default:
		return fmt.Errorf("unknown command %q (allowed: serve, migrate, import, export)", cmd)
	}
}
