package bot

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/prominer44/Dare-or-truth/internal/store"
)

// runDigest posts a daily activity summary on the configured cron schedule.
func (d *Daemon) runDigest(ctx context.Context) {
	for {
		wait := nextCronDuration(d.cfg.Digest.Cron)
		if wait <= 0 {
			log.Printf("bot: digest: bad cron expression %q, disabled", d.cfg.Digest.Cron)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			d.postDigest(ctx)
		}
	}
}

func (d *Daemon) postDigest(ctx context.Context) {
	stats, err := d.st.Digest(time.Now().Add(-24 * time.Hour))
	if err != nil {
		log.Printf("bot: digest: %v", err)
		return
	}
	// Quiet days get no digest.
	if stats.GamesStarted == 0 && stats.GamesEnded == 0 && stats.Actions == 0 {
		return
	}
	channel := d.homeChannel()
	if channel == "" {
		log.Printf("bot: digest: no home channel configured")
		return
	}
	d.announce(ctx, channel, formatDigest(stats))
}

// homeChannel returns the platform channel for announcements.
func (d *Daemon) homeChannel() string {
	switch d.cfg.Platform {
	case "discord":
		return d.cfg.Discord.ChannelID
	case "slack":
		return d.cfg.Slack.ChannelID
	}
	return ""
}

// formatDigest renders the daily stats as a chat message.
func formatDigest(stats *store.DigestStats) string {
	var b strings.Builder
	b.WriteString("Daily truth-or-dare digest\n")
	fmt.Fprintf(&b, "Games started: %d | ended: %d\n", stats.GamesStarted, stats.GamesEnded)
	fmt.Fprintf(&b, "Actions: %d (%d timeouts)\n", stats.Actions, stats.Timeouts)
	if len(stats.TopPenalized) > 0 {
		b.WriteString("Most penalized:\n")
		for i, p := range stats.TopPenalized {
			fmt.Fprintf(&b, "%d) %s: %d\n", i+1, p.Name, p.Count)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
