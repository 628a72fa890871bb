package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	appName = "ronclanker"
	version = "v1.0.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Autonomous Fantasy Premier League manager",
		Version: version,
		Long: `Ron Clanker ingests official league data and football news, predicts
per-player expected points, and emits a fully validated squad, captain,
transfer plan and chip recommendation each gameweek.

Subcommands cover the weekly decision run, the daily/hourly maintenance
loop, the post-gameweek learning pass, and the monitor HTTP server.`,
		Run: runDefaultEntry,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/ronclanker.yaml", "Path to YAML configuration file")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newMaintainCmd())
	rootCmd.AddCommand(newLearnCmd())
	rootCmd.AddCommand(newMonitorCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runDefaultEntry shows a short status banner when invoked interactively
// (a human at a terminal) and the usage text under cron/automation.
func runDefaultEntry(cmd *cobra.Command, args []string) {
	if term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("%s %s — autonomous FPL manager\n", appName, version)
		fmt.Println("  run       one weekly decision workflow pass")
		fmt.Println("  maintain  daily/hourly maintenance loop")
		fmt.Println("  learn     post-gameweek calibration pass")
		fmt.Println("  monitor   health/metrics/decision HTTP server")
		return
	}
	_ = cmd.Usage()
}
