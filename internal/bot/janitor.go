package bot

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/prominer44/Dare-or-truth/internal/game"
)

// janitorActor is the synthetic admin actor used for cleanup events.
const janitorActor = "janitor"

// Scheduled jobs (janitor sweep, daily digest) take plain 5-field cron
// expressions: minute, hour, day of month, month, day of week.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration returns how long to sleep before expr next fires. A
// zero return means the expression did not parse and the job should stop.
func nextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	if d := time.Until(sched.Next(time.Now())); d > 0 {
		return d
	}
	return 0
}

// runJanitor periodically ends lobbies that sat idle past the TTL, so their
// boards stop collecting presses and their coordinators retire.
func (d *Daemon) runJanitor(ctx context.Context) {
	for {
		wait := nextCronDuration(d.cfg.Janitor.Cron)
		if wait <= 0 {
			log.Printf("bot: janitor: bad cron expression %q, disabled", d.cfg.Janitor.Cron)
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
			d.sweepIdleLobbies(ctx)
		}
	}
}

// sweepIdleLobbies ends every lobby idle past the TTL via the normal event
// path, so the final board and retirement happen like any owner-ended game.
func (d *Daemon) sweepIdleLobbies(ctx context.Context) {
	cutoff := time.Now().Add(-d.cfg.Janitor.IdleLobbyTTL())
	lobbies, err := d.st.IdleLobbies(cutoff)
	if err != nil {
		log.Printf("bot: janitor: list idle lobbies: %v", err)
		return
	}
	for _, g := range lobbies {
		err := d.registry.Dispatch(ctx, g.ID, game.Event{
			Type:    game.EventEnd,
			GameID:  g.ID,
			ActorID: janitorActor,
			Admin:   true,
		})
		if err != nil {
			log.Printf("bot: janitor: end game %d: %v", g.ID, err)
			continue
		}
		log.Printf("bot: janitor: ended idle lobby %d", g.ID)
	}
}
