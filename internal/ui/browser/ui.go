// Package browser is an interactive terminal inspector for captured cycles.
package browser

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vcdscan/internal/core/app"
	"vcdscan/internal/query"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	changedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	unknownStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type panel int

const (
	panelCycles panel = iota
	panelSignals
)

type cycleItem struct {
	snap    query.Snapshot
	changed []string
}

func (i cycleItem) Title() string {
	return fmt.Sprintf("#%d %s @ %d", i.snap.Index, i.snap.Edge, i.snap.Timestamp)
}

func (i cycleItem) Description() string {
	if len(i.changed) == 0 {
		return "no signal changed"
	}
	return fmt.Sprintf("%d changed: %s", len(i.changed), strings.Join(i.changed, ", "))
}

func (i cycleItem) FilterValue() string { return i.Title() + " " + strings.Join(i.changed, " ") }

type signalItem struct {
	summary query.SignalSummary
}

func (i signalItem) Title() string { return i.summary.Path }

func (i signalItem) Description() string {
	desc := fmt.Sprintf("%s[%d] id %q, %d toggles", i.summary.Kind, i.summary.Width, i.summary.ID, i.summary.Toggles)
	if i.summary.Alias {
		desc += ", alias"
	}
	return desc
}

func (i signalItem) FilterValue() string { return i.summary.Path }

type updateMsg struct {
	session *app.Session
	err     error
}

type model struct {
	cycleList  list.Model
	signalList list.Model
	mode       panel
	mergeEdges bool
	showDetail bool

	session    *app.Session
	timeline   []query.Snapshot
	errText    string
	lastUpdate time.Time
}

func initialModel(session *app.Session, mergeEdges bool) model {
	cycleList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	cycleList.Title = "Cycles"
	cycleList.SetShowStatusBar(false)
	cycleList.SetFilteringEnabled(true)

	signalList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	signalList.Title = "Signals"
	signalList.SetShowStatusBar(false)
	signalList.SetFilteringEnabled(true)

	m := model{
		cycleList:  cycleList,
		signalList: signalList,
		mode:       panelCycles,
		mergeEdges: mergeEdges,
		lastUpdate: time.Now(),
	}
	if session != nil {
		m = m.withSession(session)
	}
	return m
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.cycleList.SetSize(msg.Width-h, msg.Height-v-6)
		m.signalList.SetSize(msg.Width-h, msg.Height-v-6)
		return m, nil
	case updateMsg:
		m.lastUpdate = time.Now()
		if msg.err != nil {
			m.errText = msg.err.Error()
			return m, nil
		}
		m.errText = ""
		return m.withSession(msg.session), nil
	}
	return m, nil
}

// withSession rebuilds both lists from session.
func (m model) withSession(session *app.Session) model {
	m.session = session
	m.timeline = session.Query.Timeline(m.mergeEdges)

	items := make([]list.Item, 0, len(m.timeline))
	for i, snap := range m.timeline {
		var prev query.Row
		if i > 0 {
			prev = m.timeline[i-1].Values
		}
		items = append(items, cycleItem{snap: snap, changed: changedPaths(prev, snap.Values)})
	}
	m.cycleList.SetItems(items)

	summaries, err := session.Query.ListSignals(context.Background(), "", 0)
	if err != nil {
		m.errText = err.Error()
		summaries = nil
	}
	signals := make([]list.Item, 0, len(summaries))
	for _, s := range summaries {
		signals = append(signals, signalItem{summary: s})
	}
	m.signalList.SetItems(signals)
	return m
}

func changedPaths(prev, cur query.Row) []string {
	if prev == nil {
		return nil
	}
	out := make([]string, 0)
	for path, v := range cur {
		if prev[path] != v {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func (m model) View() string {
	var status string
	if m.session == nil {
		status = statusStyle.Render("waiting for a dump...")
	} else {
		res := m.session.Result
		edges := "rising edges"
		if m.mergeEdges {
			edges = "both edges"
		}
		status = statusStyle.Render(fmt.Sprintf("%s | clock %s | %d signals | %d cycles (%s) | loaded %s",
			m.session.Path, res.Clock.Path, res.Table.Len(), len(m.timeline), edges,
			m.lastUpdate.Format("15:04:05")))
	}

	summary := successStyle.Render("ok")
	if m.errText != "" {
		summary = changedStyle.Render("reload failed: " + m.errText)
	} else if m.session != nil && m.session.Result.Diagnostics.Total() > 0 {
		summary = unknownStyle.Render(fmt.Sprintf("%d records skipped", m.session.Result.Diagnostics.Total()))
	}

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("VCD Cycle Inspector"), status, summary)
	help := statusStyle.Render("tab: switch panel | enter: cycle values | m: toggle edges | q: quit")

	body := m.cycleList.View()
	if m.mode == panelSignals {
		body = m.signalList.View()
	} else if m.showDetail {
		body = m.detailView()
	}
	return docStyle.Render(header + "\n" + body + "\n" + help)
}

func (m model) detailView() string {
	item, ok := m.cycleList.SelectedItem().(cycleItem)
	if !ok {
		return statusStyle.Render("no cycle selected")
	}
	changed := make(map[string]bool, len(item.changed))
	for _, p := range item.changed {
		changed[p] = true
	}

	paths := make([]string, 0, len(item.snap.Values))
	width := 0
	for p := range item.snap.Values {
		paths = append(paths, p)
		if len(p) > width {
			width = len(p)
		}
	}
	sort.Strings(paths)

	var b strings.Builder
	b.WriteString(titleStyle(item.Title()) + "\n\n")
	for _, p := range paths {
		v := item.snap.Values[p]
		switch {
		case changed[p]:
			v = changedStyle.Render(v)
		case strings.ContainsAny(v, "xz"):
			v = unknownStyle.Render(v)
		}
		b.WriteString(fmt.Sprintf("  %-*s  %s\n", width, p, v))
	}
	return b.String()
}
