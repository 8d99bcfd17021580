// Command acl-backfill seeds project shares from legacy team membership and
// prints the per-project summary as JSON on stdout. It is safe to re-run.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aussiebroadwan/projectacl/internal/acl/app"
	"github.com/aussiebroadwan/projectacl/internal/acl/service"
	"github.com/aussiebroadwan/projectacl/pkg/slogx"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := app.LoadConfig()

	workers := flag.Int("workers", cfg.BackfillWorkers, "projects processed in parallel")
	validateOnly := flag.Bool("validate", false, "only report projects without an owner")
	flag.Parse()
	cfg.BackfillWorkers = *workers

	// stdout carries the JSON report, so logs go to stderr.
	logger := app.NewLogger(cfg, "acl-backfill", os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = slogx.WithContext(ctx, logger)

	st, err := app.OpenStore(cfg, logger)
	if err != nil {
		logger.Error("open store", "error", err)
		return 1
	}
	defer st.Close()

	backfill := app.NewBackfill(cfg, st, nil)

	if *validateOnly {
		invalid, err := backfill.Validate(ctx)
		if err != nil {
			logger.Error("validate", "error", err)
			return 1
		}
		if err := writeJSON(service.Report{Invalid: invalid}); err != nil {
			logger.Error("write report", "error", err)
			return 1
		}
		if len(invalid) > 0 {
			return 2
		}
		return 0
	}

	report, runErr := backfill.Run(ctx)
	if err := writeJSON(report); err != nil {
		logger.Error("write report", "error", err)
		return 1
	}

	switch {
	case runErr == nil:
		return 0
	case errors.Is(runErr, service.ErrBackfillValidation):
		logger.Error("backfill left projects without an owner", "error", runErr)
		return 2
	default:
		logger.Error("backfill failed", "error", runErr)
		return 1
	}
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
