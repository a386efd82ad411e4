package app

import (
	"context"

	"github.com/colonyops/tracksync/internal/core/doctor"
)

// DoctorChecks returns the health checks for this setup in display order.
// The records check runs first so the sources check sees loaded records.
func (a *App) DoctorChecks(autoFix bool) []doctor.Check {
	return []doctor.Check{
		doctor.NewTrackerCheck(a.Config, a.Exec),
		doctor.NewRecordsCheck(a.Records, autoFix),
		doctor.NewSourcesCheck(a.Config.PlanningDir(), a.Config.CommentsRoot(), a.Records.Statistics),
	}
}

// Doctor runs every health check.
func (a *App) Doctor(ctx context.Context, autoFix bool) []doctor.Result {
	return doctor.RunAll(ctx, a.DoctorChecks(autoFix))
}
