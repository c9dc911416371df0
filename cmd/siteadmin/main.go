package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bizsite/siteadmin/config"
	"github.com/bizsite/siteadmin/internal/adminapi"
	"github.com/bizsite/siteadmin/internal/app"
	"github.com/bizsite/siteadmin/internal/webserver"
)

var configFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "siteadmin: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := newServeCmd()
	cmd := &cobra.Command{
		Use:          "siteadmin",
		Short:        "Website administration backend",
		SilenceUsage: true,
		RunE:         serve.RunE,
	}
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "/etc/siteadmin.yml", "Config file path")
	cmd.AddCommand(
		serve,
		newMigrateCmd(),
		newReconcileCmd(),
	)
	return cmd
}

func loadConfig() (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "load config %s", configFile)
	}
	return cfg, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			application := app.NewApplication(cfg)
			if err := application.Init(cfg); err != nil {
				return err
			}
			defer application.Release()

			webserver.Init(application)
			adminapi.Init()
			zap.L().Info("siteadmin started", zap.String("appid", cfg.System.Appid))
			return webserver.Listen(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var track bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			application := app.NewApplication(cfg)
			if err := application.InitCore(cfg); err != nil {
				return err
			}
			defer application.Release()
			if err := application.MigrateDB(track); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "database schema is up to date")
			return nil
		},
	}
	cmd.Flags().BoolVar(&track, "track", false, "Log the SQL statements issued by the migration")
	return cmd
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recompute category usage counters from the products",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			application := app.NewApplication(cfg)
			if err := application.InitCore(cfg); err != nil {
				return err
			}
			defer application.Release()

			fixes, err := application.ReconcileUsage()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(fixes) == 0 {
				fmt.Fprintln(out, "all category usage counters are consistent")
				return nil
			}
			for _, f := range fixes {
				note := ""
				if f.Created {
					note = " (created)"
				}
				fmt.Fprintf(out, "%-40s %6d -> %-6d%s\n", f.Name, f.From, f.To, note)
			}
			return nil
		},
	}
}
