// Command simulator runs one or more meta-data programs to completion
// under a configured scheduling policy (spec §6).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/opsim/simulator/internal/config"
	"github.com/opsim/simulator/internal/sim"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	root := &cobra.Command{
		Use:   "simulator <configFile> [<configFile> ...]",
		Short: "Run one or more OS scheduling simulations from config files",
		Args:  cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, configPaths []string) error {
			return runAll(cmd.Context(), log, configPaths)
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	root.SetArgs(args)

	if err := root.ExecuteContext(ctx); err != nil {
		return -1
	}
	return exitCode
}

// exitCode is set by runAll to 1 if every config file's run succeeded and
// to -1 if any run failed (spec §6); see DESIGN.md.
var exitCode int

// runAll runs each config file as an independent Simulation, continuing
// past a failed run so one bad file in a batch never hides the others'
// results.
func runAll(ctx context.Context, log *logrus.Logger, configPaths []string) error {
	anyFailed := false

	for _, path := range configPaths {
		entry := log.WithField("config", path)
		if err := runOne(ctx, entry, path); err != nil {
			entry.WithError(err).Error("simulation run failed")
			anyFailed = true
			continue
		}
	}

	exitCode = 1
	if anyFailed {
		exitCode = -1
	}
	return nil
}

func runOne(ctx context.Context, log *logrus.Entry, configPath string) error {
	f, err := os.Open(configPath)
	if err != nil {
		return fmt.Errorf("opening config file: %w", err)
	}
	cfg, err := config.Parse(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	s, err := sim.New(cfg, os.Stdout)
	if err != nil {
		return fmt.Errorf("initializing simulation: %w", err)
	}
	defer s.Close()

	log = log.WithField("runID", s.ID())
	log.Info("simulation starting")

	if err := s.Run(ctx); err != nil {
		return fmt.Errorf("running simulation: %w", err)
	}

	log.Info("simulation finished")
	s.WriteSummary(os.Stdout)
	return nil
}
