package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/Omeraluf/israeli-media-monitor/internal/cli"
	"github.com/Omeraluf/israeli-media-monitor/internal/config"
	"github.com/Omeraluf/israeli-media-monitor/internal/logging"
	"github.com/Omeraluf/israeli-media-monitor/internal/record"
	"github.com/Omeraluf/israeli-media-monitor/internal/snapshot"
)

func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	input := fs.String("input", "", "Directory of raw headline files (overrides MM_INPUT_DIR)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if *input != "" {
		cfg.InputDir = *input
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	payloads, err := snapshot.LoadRaw(cfg.InputDir)
	if err != nil {
		logger.Error().Err(err).Str("dir", cfg.InputDir).Msg("load raw headlines failed")
		fmt.Fprintf(os.Stderr, "Failed to load raw headlines: %v\n", err)
		return 1
	}

	valid := 0
	invalid := map[string]int{}
	for i, payload := range payloads {
		if _, err := record.FromRaw(payload); err != nil {
			reason := record.DropReason(err)
			invalid[reason]++
			logger.Warn().Err(err).Int("index", i).Str("reason", reason).Msg("invalid headline payload")
			continue
		}
		valid++
	}

	total := len(payloads)
	fmt.Printf("Validated %d payloads: %d valid, %d invalid\n", total, valid, total-valid)
	for reason, count := range invalid {
		fmt.Printf("  %s: %d\n", reason, count)
	}

	if total-valid > 0 {
		return 1
	}
	return 0
}
