package browser

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"vcdscan/internal/core/app"
)

// Run opens the inspector on the app's current session and keeps it in sync
// with reloads until the user quits or ctx is cancelled.
func Run(ctx context.Context, a *app.App, mergeEdges bool) error {
	m := initialModel(a.Session(), mergeEdges)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	a.SetUpdateHandler(func(update app.Update) {
		p.Send(updateMsg{session: update.Session, err: update.Err})
	})
	defer a.SetUpdateHandler(nil)

	_, err := p.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return nil
	}
	return err
}
