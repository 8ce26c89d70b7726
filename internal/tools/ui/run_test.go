package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

func TestModelViewReportsOutcome(t *testing.T) {
	start := time.Unix(1000, 0)
	m := model{title: "seed apply", started: start, now: start}
	if !strings.Contains(m.View(), "running 0s") {
		t.Fatalf("expected running view, got %q", m.View())
	}

	next, _ := m.Update(tickMsg(start.Add(3 * time.Second)))
	if view := next.(model).View(); !strings.Contains(view, "running 3s") {
		t.Fatalf("expected elapsed time after tick, got %q", view)
	}

	next, cmd := m.Update(finishedMsg{details: []string{"user_id=1"}})
	if cmd == nil {
		t.Fatal("expected quit command once finished")
	}
	view := next.(model).View()
	if !strings.Contains(view, "OK") || !strings.Contains(view, "user_id=1") {
		t.Fatalf("expected success view with details, got %q", view)
	}

	next, _ = m.Update(finishedMsg{err: errors.New("db down")})
	view = next.(model).View()
	if !strings.Contains(view, "FAILED") || !strings.Contains(view, "db down") {
		t.Fatalf("expected failure view, got %q", view)
	}
}

func TestModelCtrlCCancelsAction(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := model{title: "migrate up", ctx: ctx, cancel: cancel}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if ctx.Err() == nil {
		t.Fatal("expected ctrl+c to cancel the action context")
	}
	next, _ = next.(model).Update(finishedMsg{err: context.Canceled})
	if err := next.(model).err; !errors.Is(err, errInterrupted) {
		t.Fatalf("expected interrupted error, got %v", err)
	}
}
