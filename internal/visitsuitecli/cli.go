package visitsuitecli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"visitsuite/internal/config"
	"visitsuite/internal/envutil"
	"visitsuite/internal/security"
	"visitsuite/internal/store"
	"visitsuite/internal/webapp"
)

var ErrUsage = errors.New("usage")

func Execute(args []string) error {
	if len(args) < 1 {
		return usageError()
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:])
	case "run":
		return runServe(args[1:])
	case "migrate":
		return runMigrate(args[1:])
	default:
		return usageError()
	}
}

func usageError() error {
	return fmt.Errorf("%w: visitsuite <setup|run|migrate> [...]", ErrUsage)
}

// PrintUsage writes the command synopsis for the entrypoints.
func PrintUsage(w io.Writer) {
	fmt.Fprintln(w, "usage: visitsuite setup [--env-file .env] [--force]")
	fmt.Fprintln(w, "       visitsuite run [--env-file .env]")
	fmt.Fprintln(w, "       visitsuite migrate --from <legacy.xls|legacy.xlsx> [--to visit_logs.xlsx]")
}

// runSetup writes a starter .env with a fresh secret and a sample credential
// map. The sample passwords are placeholders an operator is expected to edit.
func runSetup(args []string) error {
	fs := flag.NewFlagSet("setup", flag.ContinueOnError)
	envPath := fs.String("env-file", ".env", "path to .env file")
	force := fs.Bool("force", false, "overwrite existing env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	secret, err := security.RandomToken(32)
	if err != nil {
		return fmt.Errorf("generate secret: %w", err)
	}

	values := map[string]string{
		"SECRET_KEY":     secret,
		"USERS_JSON":     `{"alice": {"password": "change-me", "role": "employee"}, "admin": {"password": "change-me-too", "role": "admin"}}`,
		"VISIT_LOG_PATH": "visit_logs.xlsx",
		"ISSUE_LOG_PATH": "issue_logs.xlsx",
		"UPLOAD_DIR":     "uploads",
		"APP_ADDR":       ":5000",
	}

	if err := envutil.WriteDotEnv(*envPath, values, *force); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *envPath)
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	envPath := fs.String("env-file", ".env", "path to .env file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := envutil.LoadDotEnv(*envPath); err != nil {
		return fmt.Errorf("load %s: %w", *envPath, err)
	}

	cfg, err := config.DefaultConfigFromEnv()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := webapp.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// runMigrate reconciles a legacy visit log (old .xls workbooks, or .xlsx
// files written before the Photo column existed) into the current schema.
func runMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	from := fs.String("from", "", "legacy visit log file to migrate")
	to := fs.String("to", "visit_logs.xlsx", "destination visit log file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *from == "" {
		return errors.New("--from is required")
	}

	migrated, err := store.MigrateVisitLog(*from, *to)
	if err != nil {
		return err
	}
	fmt.Printf("migrated %d rows from %s to %s\n", migrated, *from, *to)
	return nil
}
