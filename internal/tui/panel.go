// Package tui renders the tracker panel: day selector, item list with
// purchase times, today/lifetime totals, and the live NST reset
// countdown. The panel is a read-only consumer of ledger snapshots; its
// only writes are the two persisted preferences.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/safeira/iglootrack/internal/cli"
	"github.com/safeira/iglootrack/internal/ledger"
	"github.com/safeira/iglootrack/internal/nst"
	"github.com/safeira/iglootrack/internal/store"
)

// reloadEvery controls how often the ledger snapshot is re-read, in
// countdown ticks.
const reloadEvery = 5

// tickMsg drives the countdown and periodic snapshot reloads.
type tickMsg time.Time

// loadedMsg carries a fresh ledger snapshot.
type loadedMsg struct {
	snapshot ledger.Ledger
}

// Panel is the root Bubble Tea model.
type Panel struct {
	kv    store.KV
	ls    *store.LedgerStore
	clock func() time.Time

	snapshot ledger.Ledger
	loaded   bool
	days     []string // selectable day keys, newest first, today pinned
	selected int

	notifyEnabled bool
	minimized     bool

	ticks   int
	width   int
	spinner spinner.Model
}

// NewPanel builds the panel over an opened KV store.
func NewPanel(kv store.KV) Panel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(cli.ColorAccent)

	ctx := context.Background()
	return Panel{
		kv:            kv,
		ls:            store.NewLedgerStore(kv),
		clock:         time.Now,
		notifyEnabled: store.GetBool(ctx, kv, store.NotifyEnabledKey, false),
		minimized:     store.GetBool(ctx, kv, store.MinimizedKey, false),
		spinner:       sp,
	}
}

// Init implements tea.Model.
func (p Panel) Init() tea.Cmd {
	return tea.Batch(p.loadCmd(), p.spinner.Tick, tickCmd())
}

func (p Panel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{snapshot: p.ls.Load(context.Background())}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// todayKey returns the current NST day key.
func (p Panel) todayKey() string {
	return nst.DayKey(p.clock())
}

// rebuildDays recomputes the selector entries, pinning today first even
// when it has no record yet, and keeps the selection on the same day key
// where possible.
func (p *Panel) rebuildDays() {
	var prev string
	if p.selected >= 0 && p.selected < len(p.days) {
		prev = p.days[p.selected]
	}

	today := p.todayKey()
	days := []string{today}
	for _, d := range p.snapshot.Days() {
		if d != today {
			days = append(days, d)
		}
	}
	p.days = days

	p.selected = 0
	for i, d := range p.days {
		if d == prev {
			p.selected = i
			break
		}
	}
}

// Update implements tea.Model.
func (p Panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		p.width = msg.Width
		return p, nil

	case loadedMsg:
		p.snapshot = msg.snapshot
		p.loaded = true
		p.rebuildDays()
		return p, nil

	case tickMsg:
		p.ticks++
		if p.ticks%reloadEvery == 0 {
			return p, tea.Batch(tickCmd(), p.loadCmd())
		}
		return p, tickCmd()

	case spinner.TickMsg:
		if p.loaded {
			return p, nil
		}
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd

	case tea.KeyMsg:
		return p.handleKey(msg)
	}

	return p, nil
}

func (p Panel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ctx := context.Background()
	switch msg.String() {
	case "q", "ctrl+c":
		return p, tea.Quit

	case "m":
		p.minimized = !p.minimized
		_ = store.SetBool(ctx, p.kv, store.MinimizedKey, p.minimized)
		return p, nil

	case "n":
		p.notifyEnabled = !p.notifyEnabled
		_ = store.SetBool(ctx, p.kv, store.NotifyEnabledKey, p.notifyEnabled)
		return p, nil

	case "up", "k":
		if p.selected > 0 {
			p.selected--
		}
		return p, nil

	case "down", "j":
		if p.selected < len(p.days)-1 {
			p.selected++
		}
		return p, nil

	case "r":
		return p, p.loadCmd()
	}
	return p, nil
}

// View implements tea.Model.
func (p Panel) View() string {
	if !p.loaded {
		return fmt.Sprintf("\n  %s Loading ledger...\n", p.spinner.View())
	}

	now := p.clock()
	today := p.todayKey()

	if p.minimized {
		total := 0
		if day, ok := p.snapshot[today]; ok && day != nil {
			total = day.Total
		}
		chip := cli.TotalStyle(total, ledger.DailyLimit).Render(cli.FormatProgress(total, ledger.DailyLimit))
		return fmt.Sprintf("\n  Igloo %s  %s\n", chip, cli.Muted("m: expand  q: quit"))
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(cli.RenderTitle("Igloo Purchases"))
	b.WriteString("\n\n")

	// Day selector
	for i, d := range p.days {
		cursor := "  "
		label := cli.FormatDayLabel(d, today)
		if i == p.selected {
			cursor = "> "
			label = lipgloss.NewStyle().Foreground(cli.ColorAccent).Render(label)
		} else {
			label = cli.Muted(label)
		}
		b.WriteString("  " + cursor + label + "\n")
	}
	b.WriteString("\n")

	// Items for the selected day
	selectedDay := today
	if p.selected >= 0 && p.selected < len(p.days) {
		selectedDay = p.days[p.selected]
	}
	if day, ok := p.snapshot[selectedDay]; ok && day != nil && len(day.Items) > 0 {
		for _, item := range day.SortedItems() {
			b.WriteString(fmt.Sprintf("  %s × %d\n",
				lipgloss.NewStyle().Bold(true).Render(item.Name), item.Count))
			if len(item.Timestamps) > 0 {
				b.WriteString("    " + cli.Muted(cli.FormatTimestamps(item.Timestamps)) + "\n")
			}
		}
	} else {
		b.WriteString(cli.Muted("  No purchases recorded.") + "\n")
	}
	b.WriteString("\n")

	// Totals
	todayTotal := 0
	if day, ok := p.snapshot[today]; ok && day != nil {
		todayTotal = day.Total
	}
	totalLine := cli.TotalStyle(todayTotal, ledger.DailyLimit).
		Render("Today: " + cli.FormatProgress(todayTotal, ledger.DailyLimit))
	b.WriteString("  " + totalLine + "\n")
	b.WriteString("  " + cli.Muted(fmt.Sprintf("Lifetime purchases: %s",
		cli.FormatNumber(int64(p.snapshot.LifetimeTotal())))) + "\n\n")

	// Countdown
	b.WriteString("  " + cli.Muted(nst.FormatCountdown(nst.UntilReset(now))) + "\n\n")

	// Reminder toggle + keys
	check := "[ ]"
	if p.notifyEnabled {
		check = "[x]"
	}
	b.WriteString(fmt.Sprintf("  %s 1-hour reset reminder\n", check))
	b.WriteString("  " + cli.Muted("↑/↓: day  n: reminder  m: minimize  r: reload  q: quit") + "\n")

	return b.String()
}
