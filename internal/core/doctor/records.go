package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/colonyops/tracksync/internal/core/tracking"
)

// RecordStore is the subset of the tracking store the records check uses.
type RecordStore interface {
	Path() string
	BackupPath() string
	Load() error
	Save() error
	Len() int
	RecordsByStatus(status tracking.Status) []tracking.Record
	ResetPending() []tracking.Record
}

// RecordsCheck verifies the tracking file and reports failed records.
type RecordsCheck struct {
	store   RecordStore
	autoFix bool
}

// NewRecordsCheck creates a new records check. When autoFix is set, failed
// records are moved back to pending and the tracking file is saved.
func NewRecordsCheck(store RecordStore, autoFix bool) *RecordsCheck {
	return &RecordsCheck{store: store, autoFix: autoFix}
}

func (c *RecordsCheck) Name() string {
	return "Tracking File"
}

func (c *RecordsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	if err := c.store.Load(); err != nil {
		detail := err.Error()
		if errors.Is(err, tracking.ErrStorageCorrupt) {
			if _, statErr := os.Stat(c.store.BackupPath()); statErr == nil {
				detail += " (previous version at " + c.store.BackupPath() + ")"
			}
		}
		result.add(StatusFail, c.store.Path(), detail)
		return result
	}
	result.add(StatusPass, c.store.Path(), fmt.Sprintf("%d records", c.store.Len()))

	failed := c.store.RecordsByStatus(tracking.StatusFailed)
	if len(failed) == 0 {
		result.add(StatusPass, "failed records", "none")
		return result
	}

	if c.autoFix {
		reset := c.store.ResetPending()
		if err := c.store.Save(); err != nil {
			result.add(StatusFail, "failed records", "reset failed: "+err.Error())
			return result
		}
		result.add(StatusPass, "failed records", fmt.Sprintf("reset %d to pending", len(reset)))
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:   "failed records",
		Status:  StatusWarn,
		Detail:  fmt.Sprintf("%d failed, last error: %s", len(failed), failed[0].LastError),
		Fixable: true,
	})
	return result
}
