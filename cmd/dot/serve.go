package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prominer44/Dare-or-truth/internal/bot"
	"github.com/prominer44/Dare-or-truth/internal/config"
	"github.com/prominer44/Dare-or-truth/internal/dashboard"
	"github.com/prominer44/Dare-or-truth/internal/db"
	"github.com/prominer44/Dare-or-truth/internal/gateway"
	"github.com/prominer44/Dare-or-truth/internal/gateway/discord"
	"github.com/prominer44/Dare-or-truth/internal/gateway/slack"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bot daemon",
		Long:  "Connects to the configured chat platform and runs games until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	if seeded, err := db.SeedQuestionsIfEmpty(gormDB); err != nil {
		return err
	} else if seeded > 0 {
		fmt.Fprintf(out, "Seeded %d starter questions\n", seeded)
	}

	gw, err := buildGateway(cfg)
	if err != nil {
		return err
	}

	daemon, err := bot.NewDaemon(bot.DaemonOpts{
		DB:      gormDB,
		Config:  cfg,
		Gateway: gw,
		Out:     out,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(out, "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	if cfg.Dashboard.Enabled {
		go func() {
			err := dashboard.Start(ctx, dashboard.StartOpts{
				DB:   gormDB,
				Port: cfg.Dashboard.Port,
				Out:  out,
			})
			if err != nil {
				fmt.Fprintf(out, "dashboard stopped: %v\n", err)
			}
		}()
	}

	return daemon.Run(ctx)
}

// buildGateway constructs the platform adapter named in the config.
func buildGateway(cfg *config.Config) (gateway.Gateway, error) {
	switch cfg.Platform {
	case "discord":
		return discord.New(discord.AdapterOpts{
			BotToken: cfg.Discord.BotToken,
		})
	case "slack":
		return slack.New(slack.AdapterOpts{
			AppToken: cfg.Slack.AppToken,
			BotToken: cfg.Slack.BotToken,
		})
	case "mock":
		return gateway.NewMockGateway(), nil
	default:
		return nil, fmt.Errorf("platform %q is not supported", cfg.Platform)
	}
}

func newDashboardCmd() *cobra.Command {
	var (
		configPath string
		port       int
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Start the read-only web dashboard",
		Long:  "Launches a local web dashboard for monitoring games and the question bank.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd, configPath, port)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "dot.yaml", "path to config file")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "port to listen on")
	return cmd
}

func runDashboard(cmd *cobra.Command, configPath string, port int) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(cmd.OutOrStdout(), "\nReceived %s, shutting down...\n", sig)
		cancel()
	}()

	return dashboard.Start(ctx, dashboard.StartOpts{
		DB:   gormDB,
		Port: port,
		Out:  cmd.OutOrStdout(),
	})
}
