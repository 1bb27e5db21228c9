package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prominer44/Dare-or-truth/internal/db"
	"github.com/prominer44/Dare-or-truth/internal/game"
	"github.com/prominer44/Dare-or-truth/internal/gateway"
	"github.com/prominer44/Dare-or-truth/internal/models"
	"github.com/prominer44/Dare-or-truth/internal/store"
)

type fixture struct {
	store  *store.Store
	engine *game.Engine
	gw     *gateway.MockGateway
	gameID uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.ConnectSQLite(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	s := store.New(gdb)

	g := &models.Game{
		Kind:         models.KindGroup,
		Status:       models.StatusLobby,
		Phase:        models.PhaseLobby,
		View:         models.ViewMain,
		OwnerID:      "A",
		ChannelID:    "C1",
		MessageID:    "M1",
		AllowMidJoin: true,
		ShowPrevious: true,
		AllowMature:  true,
	}
	if err := s.CreateGame(g); err != nil {
		t.Fatalf("CreateGame: %v", err)
	}
	for _, id := range []string{"A", "B"} {
		if _, err := s.UpsertPlayer(g.ID, id, "player "+id, 3); err != nil {
			t.Fatalf("UpsertPlayer(%s): %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if _, err := s.AddQuestions(models.CategoryTruth, models.LevelNormal, []string{"a truth question"}); err != nil {
		t.Fatalf("AddQuestions: %v", err)
	}

	return &fixture{
		store:  s,
		engine: game.New(game.Options{}),
		gw:     gateway.NewMockGateway(),
		gameID: g.ID,
	}
}

func (f *fixture) registry(t *testing.T, turnTimeout time.Duration) *Registry {
	t.Helper()
	r, err := NewRegistry(RegistryOpts{
		Store:       f.store,
		Engine:      f.engine,
		Gateway:     f.gw,
		TurnTimeout: turnTimeout,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
		Pacing:      25 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

// --- TimerScheduler ---

func TestTimerScheduler_Fires(t *testing.T) {
	fired := make(chan string, 1)
	s := NewTimerScheduler(10*time.Millisecond, func(gameID uint, userID string) {
		fired <- userID
	})
	defer s.Stop()

	s.Schedule(1, "A")
	select {
	case u := <-fired:
		if u != "A" {
			t.Errorf("fired for %q, want A", u)
		}
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
}

func TestTimerScheduler_ScheduleReplaces(t *testing.T) {
	var mu sync.Mutex
	var fired []string
	s := NewTimerScheduler(20*time.Millisecond, func(gameID uint, userID string) {
		mu.Lock()
		fired = append(fired, userID)
		mu.Unlock()
	})
	defer s.Stop()

	s.Schedule(1, "A")
	time.Sleep(5 * time.Millisecond)
	s.Schedule(1, "B") // replaces the pending timer for the same game

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if len(fired) != 1 || fired[0] != "B" {
		t.Errorf("fired = %v, want [B]", fired)
	}
}

func TestTimerScheduler_Cancel(t *testing.T) {
	fired := make(chan string, 1)
	s := NewTimerScheduler(10*time.Millisecond, func(gameID uint, userID string) {
		fired <- userID
	})
	defer s.Stop()

	s.Schedule(1, "A")
	s.Cancel(1)
	select {
	case u := <-fired:
		t.Errorf("cancelled timer fired for %q", u)
	case <-time.After(40 * time.Millisecond):
	}
}

func TestTimerScheduler_IndependentGames(t *testing.T) {
	fired := make(chan uint, 2)
	s := NewTimerScheduler(10*time.Millisecond, func(gameID uint, userID string) {
		fired <- gameID
	})
	defer s.Stop()

	s.Schedule(1, "A")
	s.Schedule(2, "X")
	s.Cancel(1)

	select {
	case id := <-fired:
		if id != 2 {
			t.Errorf("fired for game %d, want 2", id)
		}
	case <-time.After(time.Second):
		t.Fatal("timer for game 2 never fired")
	}
}

// --- Coordinator ---

func TestCoordinator_SerializesConcurrentDispatch(t *testing.T) {
	f := newFixture(t)
	r := f.registry(t, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			err := r.Dispatch(context.Background(), f.gameID, game.Event{
				Type:      game.EventJoin,
				ActorID:   fmt.Sprintf("U%d", n),
				ActorName: fmt.Sprintf("user %d", n),
			})
			if err != nil {
				t.Errorf("join U%d: %v", n, err)
			}
		}(i)
	}
	wg.Wait()

	st, err := f.store.LoadState(f.gameID)
	if err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if st.ActiveCount() != 12 {
		t.Errorf("active players = %d, want 12", st.ActiveCount())
	}
}

func TestCoordinator_CoalescesDeliveries(t *testing.T) {
	f := newFixture(t)
	r := f.registry(t, time.Minute)

	// A burst of sequential events, each marking the board dirty.
	const events = 10
	for i := 0; i < events; i++ {
		err := r.Dispatch(context.Background(), f.gameID, game.Event{
			Type:      game.EventJoin,
			ActorID:   fmt.Sprintf("U%d", i),
			ActorName: fmt.Sprintf("user %d", i),
		})
		if err != nil {
			t.Fatalf("join U%d: %v", i, err)
		}
	}

	// The final board must show all 12 players.
	waitFor(t, time.Second, func() bool {
		ds := f.gw.Deliveries()
		return len(ds) > 0 && strings.Contains(ds[len(ds)-1].View.Text, "12 players")
	}, "final board delivery")

	if n := len(f.gw.Deliveries()); n >= events {
		t.Errorf("deliveries = %d for %d events, want coalescing", n, events)
	}
}

func TestCoordinator_RetryableRetriesThenDelivers(t *testing.T) {
	f := newFixture(t)
	f.gw.ScriptDeliveries(gateway.Retryable, gateway.Retryable)
	r := f.registry(t, time.Minute)

	err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventStart, ActorID: "A",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		ds := f.gw.Deliveries()
		return len(ds) == 3 && ds[2].Status == gateway.Delivered
	}, "retries then delivery")
}

func TestCoordinator_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	f.gw.ScriptDeliveries(gateway.Retryable, gateway.Retryable, gateway.Retryable,
		gateway.Retryable, gateway.Retryable)
	r := f.registry(t, time.Minute)

	if err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventStart, ActorID: "A",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return len(f.gw.Deliveries()) == DefaultMaxAttempts
	}, "give-up after max attempts")
	time.Sleep(20 * time.Millisecond)
	if n := len(f.gw.Deliveries()); n != DefaultMaxAttempts {
		t.Errorf("deliveries = %d, want exactly %d", n, DefaultMaxAttempts)
	}
}

func TestCoordinator_PermanentRecreatesSurface(t *testing.T) {
	f := newFixture(t)
	f.gw.ScriptDeliveries(gateway.Permanent)
	r := f.registry(t, time.Minute)

	if err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventStart, ActorID: "A",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return f.gw.Recreated() == 1
	}, "surface recreation")

	waitFor(t, time.Second, func() bool {
		st, err := f.store.LoadState(f.gameID)
		return err == nil && st.Game.MessageID == "recreated-1"
	}, "persisted new surface ref")
}

func TestCoordinator_EngineErrorReachesCaller(t *testing.T) {
	f := newFixture(t)
	r := f.registry(t, time.Minute)

	err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventStart, ActorID: "B",
	})
	if err != game.ErrNotAllowed {
		t.Errorf("err = %v, want ErrNotAllowed", err)
	}
	// A rejected event must not mark the board dirty.
	time.Sleep(20 * time.Millisecond)
	if n := len(f.gw.Deliveries()); n != 0 {
		t.Errorf("deliveries = %d after rejected event, want 0", n)
	}
}

func TestCoordinator_StaleTimeoutIsSilentlySwallowed(t *testing.T) {
	f := newFixture(t)
	r := f.registry(t, time.Minute)

	if err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventStart, ActorID: "A",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	before := len(f.gw.Deliveries())

	// A timeout for a player who is no longer current.
	err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventTimeout, ActorID: "B",
	})
	if err != nil {
		t.Fatalf("stale timeout: %v", err)
	}

	st, _ := f.store.LoadState(f.gameID)
	if st.PlayerByID("B").Penalties != 0 {
		t.Error("stale timeout penalized the wrong player")
	}
	time.Sleep(30 * time.Millisecond)
	for _, d := range f.gw.Deliveries()[before:] {
		if strings.Contains(d.View.Text, "penalt") {
			t.Error("stale timeout produced a delivery")
		}
	}
}

// --- Registry ---

func TestRegistry_CreatesOnFirstEventAndRetiresAtEnd(t *testing.T) {
	f := newFixture(t)
	r := f.registry(t, time.Minute)

	if r.Active() != 0 {
		t.Fatalf("active = %d before any event, want 0", r.Active())
	}
	if err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventStart, ActorID: "A",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if r.Active() != 1 {
		t.Fatalf("active = %d, want 1", r.Active())
	}

	if err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventEnd, ActorID: "A",
	}); err != nil {
		t.Fatalf("end: %v", err)
	}
	waitFor(t, time.Second, func() bool { return r.Active() == 0 }, "coordinator retirement")

	// Events on an ended game keep failing cleanly.
	err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventSkip, ActorID: "A",
	})
	if err != game.ErrGameEnded {
		t.Errorf("err = %v, want ErrGameEnded", err)
	}
}

func TestRegistry_EventOnEndedGameLeavesNoCoordinator(t *testing.T) {
	f := newFixture(t)
	r := f.registry(t, time.Minute)
	ctx := context.Background()

	if err := r.Dispatch(ctx, f.gameID, game.Event{
		Type: game.EventStart, ActorID: "A",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := r.Dispatch(ctx, f.gameID, game.Event{
		Type: game.EventEnd, ActorID: "A",
	}); err != nil {
		t.Fatalf("end: %v", err)
	}
	waitFor(t, time.Second, func() bool { return r.Active() == 0 }, "coordinator retirement")

	// A press on the dead board spins up a coordinator for the ended
	// row; it must retire itself instead of lingering in the registry.
	for i := 0; i < 3; i++ {
		err := r.Dispatch(ctx, f.gameID, game.Event{
			Type: game.EventSkip, ActorID: "A",
		})
		if err != game.ErrGameEnded {
			t.Fatalf("dispatch %d: err = %v, want ErrGameEnded", i, err)
		}
		if got := r.Active(); got != 0 {
			t.Fatalf("active = %d after event on ended game, want 0", got)
		}
	}
}

func TestRegistry_TurnTimeoutPenalizesAndAdvances(t *testing.T) {
	f := newFixture(t)
	r := f.registry(t, 30*time.Millisecond)

	if err := r.Dispatch(context.Background(), f.gameID, game.Event{
		Type: game.EventStart, ActorID: "A",
	}); err != nil {
		t.Fatalf("start: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		st, err := f.store.LoadState(f.gameID)
		return err == nil && st.PlayerByID("A").Penalties == 1
	}, "timeout penalty")

	st, _ := f.store.LoadState(f.gameID)
	if cur := st.Current(); cur == nil || cur.UserID != "B" {
		t.Errorf("current = %+v, want B after timeout", cur)
	}
	if st.Game.Phase != models.PhaseChoose {
		t.Errorf("phase = %q, want choose", st.Game.Phase)
	}
}

func TestRegistry_PlayerActionDisarmsTimer(t *testing.T) {
	f := newFixture(t)
	r := f.registry(t, 40*time.Millisecond)

	ctx := context.Background()
	if err := r.Dispatch(ctx, f.gameID, game.Event{Type: game.EventStart, ActorID: "A"}); err != nil {
		t.Fatalf("start: %v", err)
	}
	// Acting rearms the timer for the new phase well before it fires.
	if err := r.Dispatch(ctx, f.gameID, game.Event{
		Type: game.EventPick, ActorID: "A",
		Category: models.CategoryTruth, Level: models.LevelNormal,
	}); err != nil {
		t.Fatalf("pick: %v", err)
	}

	time.Sleep(25 * time.Millisecond)
	st, _ := f.store.LoadState(f.gameID)
	if st.PlayerByID("A").Penalties != 0 {
		t.Error("penalty applied although the player acted in time")
	}
	if st.Game.Phase != models.PhaseQuestion {
		t.Errorf("phase = %q, want question", st.Game.Phase)
	}
}
