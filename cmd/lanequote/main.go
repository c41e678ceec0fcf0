package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/hpungsan/lanequote/internal/config"
	"github.com/hpungsan/lanequote/internal/db"
	"github.com/hpungsan/lanequote/internal/logging"
	"github.com/hpungsan/lanequote/internal/mcp"
	"github.com/hpungsan/lanequote/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"quote": true, "batch": true, "terms": true, "distance": true,
	"summary": true, "currencies": true, "import": true, "log": true,
	"serve": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

func printBanner() {
	fmt.Println(`
  lanequote - freight lane quoting

  Usage: lanequote <command> [options]
         lanequote --help

  MCP server mode requires piped input.`)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Help and version need no database.
	if isHelpOrVersion() {
		if err := newCLIApp(nil).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	baseDir, err := config.DefaultBaseDir()
	if err != nil {
		fatal("could not determine base directory: %v", err)
	}

	cfg, err := config.Load(baseDir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fatal("failed to initialize logging: %v", err)
	}
	defer logging.Sync()
	log := logging.L()

	database, err := db.Init(baseDir)
	if err != nil {
		fatal("failed to initialize database: %v", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	secrets, err := config.LoadSecrets(baseDir)
	if err != nil {
		fatal("failed to load secrets: %v", err)
	}

	providers := ops.NewProviders(context.Background(), cfg, secrets, logging.Named("providers"))
	svc, err := ops.New(database, cfg, providers, log)
	if err != nil {
		fatal("%v", err)
	}

	if isCLIMode() {
		if err := newCLIApp(svc).Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'lanequote --help' for usage.\n")
		os.Exit(1)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("unknown tools in disabled_tools", zap.String("tools", strings.Join(unknown, ", ")))
	}
	if err := mcp.Run(svc, Version); err != nil {
		fatal("%v", err)
	}
}
