package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prominer44/Dare-or-truth/internal/models"
	"github.com/prominer44/Dare-or-truth/internal/store"
)

func TestForce_QueuesByGameID(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	runCmd(t, "db", "init", "--config", configPath)

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	st := store.New(gormDB)
	g := &models.Game{Kind: models.KindGroup, Status: models.StatusRunning, OwnerID: "A", ChannelID: "C1"}
	if err := st.CreateGame(g); err != nil {
		t.Fatalf("create game: %v", err)
	}

	out := runCmd(t, "force", "1", "U1", "sing", "a", "song",
		"--category", "dare", "--config", configPath)
	if !strings.Contains(out, "Queued question for U1") {
		t.Errorf("output = %q, want queued confirmation", out)
	}

	text, ok, err := st.PopForced(g.ID, "U1", models.CategoryDare, models.LevelNormal)
	if err != nil {
		t.Fatalf("PopForced: %v", err)
	}
	if !ok || text != "sing a song" {
		t.Errorf("forced = %q ok=%v, want %q", text, ok, "sing a song")
	}
}

func TestForce_ResolvesInlineRef(t *testing.T) {
	dir := t.TempDir()
	configPath := writeTestConfig(t, dir)
	runCmd(t, "db", "init", "--config", configPath)

	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	st := store.New(gormDB)
	g := &models.Game{
		Kind: models.KindInline, Status: models.StatusRunning,
		OwnerID: "A", ChannelID: "D1", InlineRef: "abc-ref",
	}
	if err := st.CreateGame(g); err != nil {
		t.Fatalf("create game: %v", err)
	}

	out := runCmd(t, "force", "abc-ref", "U2", "tell the truth", "--config", configPath)
	if !strings.Contains(out, "Queued question for U2") {
		t.Errorf("output = %q, want queued confirmation", out)
	}
}

func TestForce_RejectsBadLevel(t *testing.T) {
	configPath := writeTestConfig(t, t.TempDir())

	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"force", "1", "U1", "text", "--level", "spicy", "--config", configPath})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for bad level")
	}
}
