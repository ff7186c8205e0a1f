package browser

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	filtering := m.cycleList.FilterState() == list.Filtering || m.signalList.FilterState() == list.Filtering
	if !filtering {
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "tab":
			if m.mode == panelCycles {
				m.mode = panelSignals
			} else {
				m.mode = panelCycles
			}
			m.showDetail = false
			return m, nil
		case "m":
			m.mergeEdges = !m.mergeEdges
			m.showDetail = false
			if m.session != nil {
				m = m.withSession(m.session)
			}
			return m, nil
		case "enter":
			if m.mode == panelCycles {
				m.showDetail = !m.showDetail
				return m, nil
			}
		case "esc", "backspace":
			if m.showDetail {
				m.showDetail = false
				return m, nil
			}
		}
	} else if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	var cmd tea.Cmd
	if m.mode == panelSignals {
		m.signalList, cmd = m.signalList.Update(msg)
	} else {
		m.cycleList, cmd = m.cycleList.Update(msg)
	}
	return m, cmd
}
