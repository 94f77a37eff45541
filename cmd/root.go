// Package cmd defines and implements the CLI commands for the hiring-scanner executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/hiring-scanner/internal/app"
	"github.com/JakeFAU/hiring-scanner/internal/config"
	"github.com/JakeFAU/hiring-scanner/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

var bannerStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("86")).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("62")).
	Padding(0, 1)

// newApp is the application factory. It's a variable so tests can swap in
// a differently configured container.
var newApp = app.New

// newRootCmd creates and configures the root command. Without a subcommand it
// runs one scan and prints a summary.
func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "hiring-scanner",
		Short: "Finds sales strategy and operations job postings.",
		Long: `hiring-scanner discovers career pages (seed URLs and optional web search),
extracts postings from Greenhouse, Lever and generic pages, keeps the ones whose
titles match the configured roles, and stores them with a relevance score.`,
		SilenceUsage: true,

		// Build the App once the flags are parsed, before any RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			appInstance, err := newApp(cmd.Context(), cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, err := resolveApp(cmd.Context()); err == nil {
				appInstance.Close()
			}
		},

		RunE: runScanCommand,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml, json or toml)")
	cmd.AddCommand(newServeCmd())
	return cmd
}

func runScanCommand(cmd *cobra.Command, _ []string) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, bannerStyle.Render("Global Sales Hiring Scanner :: starting..."))

	res, err := appInstance.Scanner().Run(cmd.Context())
	if err != nil {
		// Scan failures are reported but do not change the exit status.
		appInstance.Logger().Error("scan failed", zap.String("run_id", res.RunID), zap.Error(err))
		_, _ = fmt.Fprintf(out, "Scan failed: %v\n", err)
		return nil
	}
	_, _ = fmt.Fprintf(out, "Scan complete. Matched: %d | New inserted: %d | CSV: %s | DB: %s\n",
		res.Matched, res.Inserted, res.ExportPath, appInstance.Config().DatabaseLabel())
	return nil
}

func resolveApp(ctx context.Context) (*app.App, error) {
	appInstance, ok := ctx.Value(appKey).(*app.App)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// Execute is the main entry point. SIGINT and SIGTERM cancel the command context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "hiring-scanner: %v\n", err)
		stop()
		os.Exit(1)
	}
}
