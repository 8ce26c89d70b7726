package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

var errInterrupted = errors.New("interrupted")

type (
	finishedMsg struct {
		details []string
		err     error
	}
	tickMsg time.Time
)

type model struct {
	title   string
	started time.Time
	now     time.Time
	ctx     context.Context
	cancel  context.CancelFunc
	action  func(context.Context) ([]string, error)

	finished bool
	details  []string
	err      error
}

func tick() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	run := func() tea.Msg {
		details, err := m.action(m.ctx)
		return finishedMsg{details: details, err: err}
	}
	return tea.Batch(run, tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC && m.cancel != nil {
			// the action sees the cancellation and reports back
			m.cancel()
		}
	case tickMsg:
		if !m.finished {
			m.now = time.Time(msg)
			return m, tick()
		}
	case finishedMsg:
		m.finished, m.details, m.err = true, msg.details, msg.err
		if m.ctx != nil && errors.Is(m.ctx.Err(), context.Canceled) && m.err != nil {
			m.err = fmt.Errorf("%w: %v", errInterrupted, m.err)
		}
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	if !m.finished {
		elapsed := m.now.Sub(m.started).Truncate(time.Second)
		if elapsed < 0 {
			elapsed = 0
		}
		fmt.Fprintf(&b, "running %s (ctrl+c to stop)\n", elapsed)
		return b.String()
	}
	if m.err != nil {
		fmt.Fprintf(&b, "%s %v\n", failStyle.Render("FAILED"), m.err)
	} else {
		b.WriteString(okStyle.Render("OK") + "\n")
	}
	for _, d := range m.details {
		b.WriteString(detailStyle.Render("  "+d) + "\n")
	}
	return b.String()
}

// Run renders a live status line while action runs and leaves the outcome
// with its detail lines on screen. ctrl+c cancels the action's context.
func Run(title string, timeout time.Duration, action func(context.Context) ([]string, error)) ([]string, error) {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	final, err := tea.NewProgram(model{
		title:   title,
		started: start,
		now:     start,
		ctx:     ctx,
		cancel:  cancel,
		action:  action,
	}).Run()
	if err != nil {
		return nil, err
	}
	res := final.(model)
	return res.details, res.err
}
