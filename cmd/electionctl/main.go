// Command electionctl manages elections from the command line: it creates and
// switches elections, imports rosters, prints results and resets data.
//
//	electionctl init -id 2026-spring
//	electionctl import-voters -file voters.xlsx
//	electionctl import-candidates -sheet 1AbC... -range 'Candidates!A:F'
//	electionctl results -office elder
//
// It reads the same environment as the server (STORE, DB_PATH, ...).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/mmynk/officevote/internal/admin"
	"github.com/mmynk/officevote/internal/app"
	"github.com/mmynk/officevote/internal/config"
	"github.com/mmynk/officevote/internal/election"
	"github.com/mmynk/officevote/internal/tally"
	"github.com/mmynk/officevote/pkg/logging"
)

const usage = `usage: electionctl <command> [flags]

commands:
  init               create an election if needed and make it active
  create             create an election
  switch             make an election active
  list               list elections
  import-candidates  import a candidate roster (csv, xlsx or Google Sheet)
  import-voters      import a voter roster (csv, xlsx or Google Sheet)
  results            print standings
  reset              delete rosters or clear votes
  hash-password      print a bcrypt hash for ADMIN_PASSWORD_HASH
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if os.Args[1] == "hash-password" {
		if err := hashPassword(os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if err := cfg.ValidateStore(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	dir := election.NewDirectory(store)
	c := &cli{
		dir:      dir,
		console:  admin.NewConsole(store, dir, nil),
		reader:   tally.NewReader(store, dir),
		out:      os.Stdout,
		in:       os.Stdin,
		progress: true,
	}
	if src, err := app.OpenSheets(ctx, cfg); err != nil {
		slog.Warn("Google Sheets import disabled", "error", err)
	} else if src != nil {
		c.sheets = src
	}

	if err := c.run(ctx, os.Args[1], os.Args[2:]); err != nil {
		slog.Error("Command failed", "command", os.Args[1], "error", err)
		stop()
		store.Close()
		os.Exit(1)
	}
}
