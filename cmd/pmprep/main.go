package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/pmprep/internal/app"
	"github.com/hpungsan/pmprep/internal/config"
	"github.com/hpungsan/pmprep/internal/logger"
	"github.com/hpungsan/pmprep/internal/mcp"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"categories": true, "list": true, "show": true, "toggle": true,
	"progress": true, "clear": true, "note": true, "panel": true,
	"serve": true, "import": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
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

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   ___  __  __ ___
  | _ \|  \/  | _ \_ _ ___ _ __
  |  _/| |\/| |  _/ '_/ -_) '_ \
  |_|  |_|  |_|_| |_| \___| .__/
                          |_|
  PM interview question tracker

  Usage: pmprep <command> [options]
         pmprep --help

  MCP server mode requires piped input.`)
}

// baseDir returns PMPREP_HOME, or ~/.pmprep.
func baseDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("PMPREP_HOME")); dir != "" {
		return dir, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".pmprep"), nil
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		cliApp := newCLIApp(nil)
		if err := cliApp.Run(os.Args); err != nil {
			fatal("%v", err)
		}
		return
	}

	dir, err := baseDir()
	if err != nil {
		fatal("%v", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		fatal("failed to load config: %v", err)
	}
	config.ApplyEnv(cfg, os.Getenv)
	if err := cfg.Validate(); err != nil {
		fatal("invalid config: %v", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fatal("failed to build logger: %v", err)
	}
	defer log.Sync()

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn("ignoring unknown disabled_tools entries", "tools", unknown)
	}

	a, err := app.Open(dir, cfg, log)
	if err != nil {
		fatal("failed to initialize: %v", err)
	}
	defer a.Close()

	if isCLIMode() {
		cliApp := newCLIApp(a)
		if err := cliApp.Run(os.Args); err != nil {
			a.Close()
			fatal("%v", err)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'pmprep --help' for usage.\n")
		os.Exit(1)
	}

	a.Session.Start()
	defer a.Session.End()

	// MCP server mode (default)
	if err := mcp.Run(a, Version); err != nil {
		a.Close()
		fatal("%v", err)
	}
}
