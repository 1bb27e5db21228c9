// Package bot runs the game daemon: it pumps interactions from the chat
// gateway into game sessions and owns the scheduled jobs (lobby janitor,
// daily digest).
package bot

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/prominer44/Dare-or-truth/internal/config"
	"github.com/prominer44/Dare-or-truth/internal/game"
	"github.com/prominer44/Dare-or-truth/internal/gateway"
	"github.com/prominer44/Dare-or-truth/internal/session"
	"github.com/prominer44/Dare-or-truth/internal/store"
)

// Daemon is the main bot process. It connects to a chat platform via a
// Gateway, routes interactions to per-game coordinators, and runs the
// janitor and digest schedules.
type Daemon struct {
	db       *gorm.DB
	cfg      *config.Config
	gw       gateway.Gateway
	st       *store.Store
	registry *session.Registry
	out      io.Writer
}

// DaemonOpts holds parameters for creating a new Daemon.
type DaemonOpts struct {
	DB      *gorm.DB
	Config  *config.Config
	Gateway gateway.Gateway
	Out     io.Writer // defaults to os.Stdout
}

// NewDaemon creates a Daemon with the given options.
func NewDaemon(opts DaemonOpts) (*Daemon, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("bot: db is required")
	}
	if opts.Config == nil {
		return nil, fmt.Errorf("bot: config is required")
	}
	if opts.Gateway == nil {
		return nil, fmt.Errorf("bot: gateway is required")
	}
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	st := store.New(opts.DB)
	engine := game.New(game.Options{
		MaxRerolls:           opts.Config.Game.MaxRerolls,
		MinPlayers:           opts.Config.Game.MinPlayers,
		RerollConsumeRefuse:  opts.Config.Game.RerollConsumeRefuse,
		RerollConsumeTimeout: opts.Config.Game.RerollConsumeTimeout,
	})
	registry, err := session.NewRegistry(session.RegistryOpts{
		Store:       st,
		Engine:      engine,
		Gateway:     opts.Gateway,
		TurnTimeout: opts.Config.Game.TurnTimeout(),
		MaxAttempts: opts.Config.Delivery.MaxAttempts,
		BaseBackoff: opts.Config.Delivery.BaseBackoff(),
		MaxBackoff:  opts.Config.Delivery.MaxBackoff(),
		Pacing:      opts.Config.Delivery.PacingDelay(),
	})
	if err != nil {
		return nil, fmt.Errorf("bot: build registry: %w", err)
	}

	return &Daemon{
		db:       opts.DB,
		cfg:      opts.Config,
		gw:       opts.Gateway,
		st:       st,
		registry: registry,
		out:      out,
	}, nil
}

// Run starts the daemon. It connects the gateway, starts the scheduled
// jobs, and blocks pumping interactions until the context is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	fmt.Fprintf(d.out, "dot connecting...\n")
	if err := d.gw.Connect(ctx); err != nil {
		return fmt.Errorf("bot: connect: %w", err)
	}

	inbound, err := d.gw.Listen(ctx)
	if err != nil {
		d.gw.Close()
		return fmt.Errorf("bot: listen: %w", err)
	}

	go d.runJanitor(ctx)
	if d.cfg.Digest.Enabled {
		go d.runDigest(ctx)
	}

	fmt.Fprintf(d.out, "dot online\n")

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintf(d.out, "dot shutting down...\n")
			d.registry.Close()
			if err := d.gw.Close(); err != nil {
				log.Printf("bot: close gateway: %v", err)
			}
			fmt.Fprintf(d.out, "dot stopped\n")
			return nil

		case ic, ok := <-inbound:
			if !ok {
				fmt.Fprintf(d.out, "dot inbound channel closed\n")
				d.registry.Close()
				return nil
			}
			d.handle(ctx, ic)
		}
	}
}
