// ABOUTME: One-shot subcommands: call, register and init
// ABOUTME: Flag parsing and interactive prompts for local setup

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/2389/psyflow/internal/auth"
	"github.com/2389/psyflow/internal/config"
	"github.com/2389/psyflow/internal/store"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// runCall dispatches a single command and prints its envelope to stdout.
// The payload is the second argument, or stdin when it is "-".
func runCall(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: psyflow call COMMAND [PAYLOAD|-]")
	}
	if len(args) > 2 {
		return fmt.Errorf("unexpected argument: %s", args[2])
	}

	command := args[0]
	var payload json.RawMessage
	if len(args) == 2 {
		raw := []byte(args[1])
		if args[1] == "-" {
			var err error
			raw, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading payload: %w", err)
			}
		}
		payload = raw
	}

	a, err := openApp(getConfigPath())
	if err != nil {
		return err
	}
	defer a.Close()

	resp := a.gateway.Dispatch(ctx, command, payload)
	out, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	fmt.Println(string(out))

	if !resp.Success {
		return fmt.Errorf("%s failed (%s)", command, resp.Kind)
	}
	return nil
}

// parseRegisterArgs accepts both "--flag value" and "--flag=value" forms.
func parseRegisterArgs(args []string) (name, email string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--name" || arg == "-n":
			if i+1 >= len(args) {
				return "", "", fmt.Errorf("--name requires a value")
			}
			name = args[i+1]
			i++
		case strings.HasPrefix(arg, "--name="):
			name = strings.TrimPrefix(arg, "--name=")
		case arg == "--email" || arg == "-e":
			if i+1 >= len(args) {
				return "", "", fmt.Errorf("--email requires a value")
			}
			email = args[i+1]
			i++
		case strings.HasPrefix(arg, "--email="):
			email = strings.TrimPrefix(arg, "--email=")
		case strings.HasPrefix(arg, "-"):
			return "", "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}

	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return "", "", fmt.Errorf("--name flag is required")
	}
	if email == "" {
		return "", "", fmt.Errorf("--email flag is required")
	}
	return name, email, nil
}

// promptPassword reads a password without echo on a terminal, or a single
// line when stdin is piped.
func promptPassword(in *os.File) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := readPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	fmt.Fprint(os.Stderr, "Confirm password: ")
	second, err := readPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}

	if string(first) != string(second) {
		return "", fmt.Errorf("passwords do not match")
	}
	return string(first), nil
}

func runRegister(ctx context.Context, args []string) error {
	name, email, err := parseRegisterArgs(args)
	if err != nil {
		return err
	}

	password, err := promptPassword(os.Stdin)
	if err != nil {
		return err
	}

	a, err := openApp(getConfigPath())
	if err != nil {
		return err
	}
	defer a.Close()

	user, err := a.auth.Register(ctx, name, email, password)
	switch {
	case errors.Is(err, store.ErrEmailExists):
		return fmt.Errorf("an account with email %s already exists", email)
	case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrPasswordTooLong):
		return err
	case err != nil:
		return fmt.Errorf("creating user: %w", err)
	}

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	green.Print("✓ ")
	fmt.Print("Created user ")
	cyan.Println(user.Email)
	fmt.Printf("  ID: %s\n", user.ID)
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("psyflow configuration setup")
	fmt.Println("===========================")
	fmt.Println()

	cfg := config.Default(getDataPath())

	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Database Configuration ---")
	cfg.Database.Path = prompt(reader, "SQLite database path", cfg.Database.Path)
	cfg.Database.Driver = prompt(reader, "SQLite driver (sqlite/sqlite3)", cfg.Database.Driver)

	fmt.Println("\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", cfg.Logging.Level)
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.WriteFile(outputFile); err != nil {
		return err
	}

	dataDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the backend:")
	fmt.Printf("  psyflow serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
