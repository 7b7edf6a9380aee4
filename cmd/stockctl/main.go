// Package main provides the stockctl operator CLI.
// Usage: stockctl migrate
//        stockctl balance --business <id> [--variant <id>] [--location <id>]
//        stockctl adjust --business <id> --variant <id> --location <id> --qty -3
//        stockctl transfer --business <id> --variant <id> --from <id> --to <id> --qty 5
//        stockctl complete --business <id> --id <transaction-id>
//        stockctl history --business <id> --variant <id>
package main

import (
	"context"
	"fmt"
	"os"

	appctx "stockledger/internal/core/context"
	"stockledger/pkg/config"
	"stockledger/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "help", "--help", "-h":
		printUsage()
		return
	}

	handler, ok := commands[command]
	if !ok {
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	var opts []config.Option
	if command == "demo" {
		opts = append(opts, config.WithOverride("STORAGE", config.StorageMemory))
	}
	cfg, err := config.Load(opts...)
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.App.LogLevel,
		Development: cfg.App.Development(),
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger.SetDefault(log)
	defer func() { _ = log.Sync() }()

	ctx := appctx.WithTrace(context.Background(), appctx.NewTrace())
	ctx = logger.WithLogger(ctx, log.WithComponent("stockctl"))

	a, err := newApp(ctx, cfg)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	err = handler(ctx, a, parseArgs(os.Args[2:]))
	a.Close()
	if err != nil {
		fail(err)
	}
}

var commands = map[string]func(ctx context.Context, a *app, args args) error{
	"migrate":     runMigrate,
	"add-unit":    runAddUnit,
	"add-variant": runAddVariant,
	"balance":     runBalance,
	"adjust":      runAdjust,
	"transfer":    runTransfer,
	"complete":    runComplete,
	"get":         runGet,
	"list":        runList,
	"history":     runHistory,
	"demo":        runDemo,
}

func printUsage() {
	fmt.Println(`Stock Ledger Operator CLI

Usage:
  stockctl <command> [options]

Commands:
  migrate      Create tables (PostgreSQL only)
  add-unit     Register a base unit or sub-unit
  add-variant  Register a product variant
  balance      Show stock balances
  adjust       Correct the balance of one variant at one location
  transfer     Move stock between two locations
  complete     Finalize a draft transaction
  get          Show one transaction with lines
  list         List transactions
  history      Show stock movements of a variant
  demo         Run a purchase/sale/transfer walkthrough on memory storage
  help         Show this help

Environment Variables:
  STORAGE              memory or postgres (default postgres)
  DATABASE_URL         PostgreSQL connection string (required for postgres)
  REDIS_ADDR           Enables distributed locks and the unit cache
  NUMBERING_STRATEGY   strict or cached (default strict)
  LOG_LEVEL            debug, info, warn, error

Examples:
  stockctl migrate
  stockctl add-unit --business <id> --name Piece --symbol pcs
  stockctl add-unit --business <id> --name Box --symbol box --base <unit-id> --multiplier 12
  stockctl add-variant --business <id> --name "Blue mug" --base-unit <unit-id>
  stockctl adjust --business <id> --variant <id> --location <id> --qty -2 --reason damaged
  stockctl transfer --business <id> --variant <id> --from <id> --to <id> --qty 5 --unit <box-id>
  stockctl complete --business <id> --id <transaction-id>
  stockctl list --business <id> --kind transfer --status draft
  stockctl history --business <id> --variant <id> --limit 20`)
}
