// Package cli implements billingctl, the operator command line for billing maintenance.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"billing/internal/app"
	"billing/internal/config"
	"billing/internal/database"
	"billing/internal/logger"
	"billing/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "1.0.0"

const actorName = "billingctl"

// Env is what a command runs against
type Env struct {
	Services *app.Services
	Log      *zap.Logger
}

// OpenFunc builds the Env for one command run; the returned func releases it.
type OpenFunc func(ctx context.Context) (*Env, func(), error)

// OpenFromConfig connects to the database named by the loaded configuration
func OpenFromConfig(ctx context.Context) (*Env, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: "stderr"})

	db, err := database.NewConnection(cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}
	closeFn := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = log.Sync()
	}
	return &Env{Services: app.NewServices(db, cfg.Billing, nil), Log: log}, closeFn, nil
}

// NewRootCmd assembles billingctl with every subcommand
func NewRootCmd(open OpenFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "billingctl",
		Short: "Operator tools for quotes, invoices and payments",
		Long: `billingctl runs maintenance tasks against the billing database.

Configuration is read the same way as the API server: configs/.env,
then BILLING_* environment variables.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newRecheckCmd(open),
		newRecomputeCmd(open),
		newSweepOverdueCmd(open),
		newExpireQuotesCmd(open),
	)
	return root
}

// Execute runs billingctl against the configured database
func Execute() {
	if err := NewRootCmd(OpenFromConfig).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

// withEnv opens the Env and tags the context with the CLI actor and logger
func withEnv(cmd *cobra.Command, open OpenFunc, component string, fn func(ctx context.Context, env *Env, out io.Writer) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	env, closeFn, err := open(ctx)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	log := env.Log
	if log == nil {
		log = zap.NewNop()
	}
	ctx = service.WithActor(ctx, actorName)
	ctx = logger.WithContext(ctx, log.With(zap.String("component", component)))
	return fn(ctx, env, cmd.OutOrStdout())
}

func parseInvoiceID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid invoice id %q: %w", arg, err)
	}
	return id, nil
}

// asOf reads the --as-of flag, defaulting to now
func asOf(cmd *cobra.Command) (time.Time, error) {
	raw, _ := cmd.Flags().GetString("as-of")
	if raw == "" {
		return time.Now(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --as-of date format. Use YYYY-MM-DD: %w", err)
	}
	return t, nil
}
