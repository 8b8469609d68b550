// ABOUTME: Entry point for the psyflow backend process
// ABOUTME: Serves gateway commands over stdio and offers setup helpers

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/psyflow/internal/auth"
	"github.com/2389/psyflow/internal/config"
	"github.com/2389/psyflow/internal/gateway"
	"github.com/2389/psyflow/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                  __ _
 _ __  ___ _   _ / _| | _____      __
| '_ \/ __| | | | |_| |/ _ \ \ /\ / /
| |_) \__ \ |_| |  _| | (_) \ V  V /
| .__/|___/\__, |_| |_|\___/ \_/\_/
|_|        |___/
`

// getConfigPath returns the path to the psyflow config file.
// Priority: PSYFLOW_CONFIG env var > XDG_CONFIG_HOME/psyflow/config.yaml > ~/.config/psyflow/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("PSYFLOW_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "psyflow", "config.yaml")
}

// getDataPath returns the path to the psyflow data directory.
// Priority: XDG_DATA_HOME/psyflow > ~/.local/share/psyflow
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "psyflow")
}

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: psyflow <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve                             Serve commands as JSON lines on stdin/stdout")
		fmt.Println("  call COMMAND [PAYLOAD]            Run a single command and print the result")
		fmt.Println("  register --name NAME --email EMAIL Create a user account")
		fmt.Println("  init                              Create a new config file interactively")
		fmt.Println("  version                           Print the version")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "call":
		err = runCall(ctx, os.Args[2:])
	case "register":
		err = runRegister(ctx, os.Args[2:])
	case "init":
		err = runInit()
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, falling back to defaults when none exists.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = config.Default(getDataPath())
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// app bundles the wired components for one process.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   *store.SQLiteStore
	auth    *auth.Service
	gateway *gateway.Gateway
}

func openApp(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.Logging, os.Stderr)

	st, err := store.NewSQLiteStore(cfg.Database.Path,
		store.WithDriver(cfg.Database.Driver),
		store.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	hasher, err := auth.NewHasher(cfg.Auth.BcryptCost)
	if err != nil {
		st.Close()
		return nil, err
	}

	authSvc := auth.NewService(st, hasher, logger)
	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		auth:    authSvc,
		gateway: gateway.New(st, authSvc, logger),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing database", "error", err)
	}
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	// Stdout belongs to the protocol, so everything human-facing goes to stderr
	cyan := color.New(color.FgCyan)
	cyan.Fprint(os.Stderr, banner)

	gray := color.New(color.FgHiBlack)
	gray.Fprintf(os.Stderr, "    version: %s\n\n", version)

	a, err := openApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	green := color.New(color.FgGreen)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Config:    %s\n", configPath)
	green.Fprint(os.Stderr, "    ▶ ")
	fmt.Fprintf(os.Stderr, "Database:  %s (%s)\n\n", a.cfg.Database.Path, a.cfg.Database.Driver)

	a.logger.Info("starting psyflow",
		"config", configPath,
		"database", a.cfg.Database.Path,
		"commands", len(a.gateway.Commands()),
	)

	err = a.gateway.ServeStdio(ctx, os.Stdin, os.Stdout)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
