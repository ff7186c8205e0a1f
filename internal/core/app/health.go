package app

import (
	"context"
	"fmt"
	"time"

	"vcdscan/internal/shared/observability"
)

type HealthService struct {
	app *App
}

func NewHealthService(app *App) *HealthService {
	return &HealthService{app: app}
}

func (s *HealthService) Check(ctx context.Context) observability.HealthStatus {
	status := observability.HealthStatus{
		Status:     "up",
		Timestamp:  time.Now().UTC(),
		Components: make(map[string]string),
	}

	session := s.app.Session()
	if session == nil {
		status.Status = "degraded"
		status.Components["session"] = "no dump loaded"
	} else {
		res := session.Result
		status.Components["session"] = fmt.Sprintf("ok (%s, %d signals, %d cycles)", session.Path, res.Table.Len(), res.History.Len())
		if n := res.Diagnostics.Total(); n > 0 {
			status.Components["diagnostics"] = fmt.Sprintf("%d records skipped", n)
		}
	}

	if s.app.watching() {
		status.Components["watcher"] = "ok"
	}
	return status
}
