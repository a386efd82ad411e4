package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/colonyops/tracksync/internal/core/tracking"
	"github.com/colonyops/tracksync/pkg/randid"
)

const (
	// FileVersion is the format version written to the tracking file.
	FileVersion = 1
	// BackupSuffix is appended to the tracking file path for the previous generation.
	BackupSuffix = ".bak"

	idLength = 12
)

// RecordsFile is the root JSON structure stored on disk.
type RecordsFile struct {
	Version int               `json:"version"`
	Records []tracking.Record `json:"records"`
}

// RecordStore holds tracking records in memory and persists them to a JSON
// file on explicit Save. Mutations are not durable until Save returns.
//
// The store serializes access within a process. There is no cross-process
// lock: two processes saving the same file will overwrite each other.
type RecordStore struct {
	path string
	now  func() time.Time

	mu       sync.RWMutex
	records  map[string]*tracking.Record
	bySource map[string]string // source key -> record id
}

// NewRecordStore creates an empty store backed by the file at path.
// Call Load to read existing records.
func NewRecordStore(path string) *RecordStore {
	return &RecordStore{
		path:     path,
		now:      func() time.Time { return time.Now().UTC() },
		records:  make(map[string]*tracking.Record),
		bySource: make(map[string]string),
	}
}

// Path returns the backing file path.
func (s *RecordStore) Path() string { return s.path }

// BackupPath returns the path holding the previous generation.
func (s *RecordStore) BackupPath() string { return s.path + BackupSuffix }

// Len returns the number of records held in memory.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Load reads the backing file into memory, replacing any in-memory state.
// A missing or empty file yields an empty store. A file that cannot be parsed
// into valid records returns an error wrapping tracking.ErrStorageCorrupt and
// leaves the in-memory state untouched.
func (s *RecordStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.replace(map[string]*tracking.Record{}, map[string]string{})
			return nil
		}
		return fmt.Errorf("read tracking file: %w", err)
	}

	if len(data) == 0 {
		s.replace(map[string]*tracking.Record{}, map[string]string{})
		return nil
	}

	var file RecordsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("%w: %s: %w", tracking.ErrStorageCorrupt, s.path, err)
	}

	if file.Version != FileVersion {
		return fmt.Errorf("%w: %s: unsupported version %d", tracking.ErrStorageCorrupt, s.path, file.Version)
	}

	records := make(map[string]*tracking.Record, len(file.Records))
	bySource := make(map[string]string, len(file.Records))
	for i := range file.Records {
		rec := file.Records[i]
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("%w: %s: %w", tracking.ErrStorageCorrupt, s.path, err)
		}
		if _, dup := records[rec.ID]; dup {
			return fmt.Errorf("%w: %s: duplicate record id %s", tracking.ErrStorageCorrupt, s.path, rec.ID)
		}
		key := rec.Source.Key()
		if _, dup := bySource[key]; dup {
			return fmt.Errorf("%w: %s: duplicate source %s", tracking.ErrStorageCorrupt, s.path, key)
		}
		records[rec.ID] = &rec
		bySource[key] = rec.ID
	}

	s.replace(records, bySource)
	return nil
}

func (s *RecordStore) replace(records map[string]*tracking.Record, bySource map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
	s.bySource = bySource
}

// Save writes all records to the backing file. The new contents are written to
// a temporary file and synced, the current file is copied to the backup path,
// and the temporary file is renamed into place. A crash at any point leaves
// either the old or the new file fully readable.
func (s *RecordStore) Save() error {
	s.mu.RLock()
	file := RecordsFile{Version: FileVersion, Records: s.sortedLocked()}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tracking file: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create tracking dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := writeSynced(tmp, data); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write tracking file: %w", err)
	}

	if err := copyFile(s.path, s.BackupPath()); err != nil && !errors.Is(err, os.ErrNotExist) {
		_ = os.Remove(tmp)
		return fmt.Errorf("backup tracking file: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace tracking file: %w", err)
	}

	return nil
}

// AddRecord creates a pending record for the draft and returns it.
// Returns tracking.ErrDuplicateSource if the source is already tracked.
func (s *RecordStore) AddRecord(draft tracking.Draft) (tracking.Record, error) {
	if err := draft.Source.Validate(draft.Type); err != nil {
		return tracking.Record{}, fmt.Errorf("%w: %w", tracking.ErrInvalidDraft, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := draft.Source.Key()
	if _, exists := s.bySource[key]; exists {
		return tracking.Record{}, fmt.Errorf("%w: %s", tracking.ErrDuplicateSource, key)
	}

	id := randid.Generate(idLength)
	for s.records[id] != nil {
		id = randid.Generate(idLength)
	}

	now := s.now()
	rec := tracking.Record{
		ID:        id,
		Type:      draft.Type,
		Source:    draft.Source,
		Status:    tracking.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	rec = rec.Clone()

	s.records[id] = &rec
	s.bySource[key] = id

	return rec.Clone(), nil
}

// UpdateRecord applies the non-nil fields of patch to the record.
// Returns tracking.ErrNotFound if id is absent.
func (s *RecordStore) UpdateRecord(id string, patch tracking.Patch) (tracking.Record, error) {
	return s.mutate(id, func(rec *tracking.Record, _ time.Time) {
		if patch.Status != nil {
			rec.Status = *patch.Status
		}
		if patch.LastError != nil {
			rec.LastError = *patch.LastError
		}
		if patch.GitHub != nil {
			ref := *patch.GitHub
			rec.GitHub = &ref
		}
		if patch.Snapshot != nil {
			snap := patch.Snapshot.Clone()
			rec.Snapshot = &snap
		}
	})
}

// DeleteRecord removes a record. Returns false if nothing was removed.
func (s *RecordStore) DeleteRecord(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return false
	}
	delete(s.bySource, rec.Source.Key())
	delete(s.records, id)
	return true
}

// FindByID returns the record with the given id.
func (s *RecordStore) FindByID(id string) (tracking.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return tracking.Record{}, false
	}
	return rec.Clone(), true
}

// FindBySource returns the record tracking the given source.
func (s *RecordStore) FindBySource(src tracking.Source) (tracking.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.bySource[src.Key()]
	if !ok {
		return tracking.Record{}, false
	}
	return s.records[id].Clone(), true
}

// FindByTaskID returns the record for a planning task.
func (s *RecordStore) FindByTaskID(sessionID, taskID string) (tracking.Record, bool) {
	return s.FindBySource(tracking.NewPlanningSource(sessionID, taskID))
}

// FindByIssueNumber returns the record linked to the given issue number.
func (s *RecordStore) FindByIssueNumber(n int) (tracking.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.sortedLocked() {
		if rec.GitHub != nil && rec.GitHub.IssueNumber == n {
			return rec, true
		}
	}
	return tracking.Record{}, false
}

// All returns every record ordered by creation time, then id.
func (s *RecordStore) All() []tracking.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked()
}

// RecordsByStatus returns all records with the given status.
func (s *RecordStore) RecordsByStatus(status tracking.Status) []tracking.Record {
	return s.filter(func(r *tracking.Record) bool { return r.Status == status })
}

// RecordsBySession returns all planning-task records of a session.
func (s *RecordStore) RecordsBySession(sessionID string) []tracking.Record {
	return s.filter(func(r *tracking.Record) bool {
		return r.Type == tracking.TypePlanningTask && r.Source.SessionID() == sessionID
	})
}

// MarkAsSynced links the record to a newly created issue and marks it synced.
func (s *RecordStore) MarkAsSynced(id string, issueNumber int, issueURL string) (tracking.Record, error) {
	return s.mutate(id, func(rec *tracking.Record, now time.Time) {
		rec.Status = tracking.StatusSynced
		rec.GitHub = &tracking.IssueRef{IssueNumber: issueNumber, IssueURL: issueURL}
		rec.LastSyncedAt = &now
		rec.LastError = ""
	})
}

// MarkAsUpdated marks a record whose existing issue was revised.
func (s *RecordStore) MarkAsUpdated(id string) (tracking.Record, error) {
	return s.mutate(id, func(rec *tracking.Record, now time.Time) {
		rec.Status = tracking.StatusUpdated
		rec.LastSyncedAt = &now
		rec.LastError = ""
	})
}

// MarkAsFailed records a failed sync attempt. The issue reference, if any, is kept.
func (s *RecordStore) MarkAsFailed(id string, errorMessage string) (tracking.Record, error) {
	return s.mutate(id, func(rec *tracking.Record, _ time.Time) {
		rec.Status = tracking.StatusFailed
		rec.SyncAttempts++
		rec.LastError = errorMessage
	})
}

// ResetAttempts zeroes the attempt counter of a record.
func (s *RecordStore) ResetAttempts(id string) (tracking.Record, error) {
	return s.mutate(id, func(rec *tracking.Record, _ time.Time) {
		rec.SyncAttempts = 0
	})
}

// ResetPending moves every failed record back to pending and clears its last
// error. Attempt counters are kept. Returns the records that changed.
func (s *RecordStore) ResetPending() []tracking.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var changed []tracking.Record
	for _, rec := range s.sortedPtrsLocked() {
		if rec.Status != tracking.StatusFailed {
			continue
		}
		rec.Status = tracking.StatusPending
		rec.LastError = ""
		rec.UpdatedAt = now
		changed = append(changed, rec.Clone())
	}
	return changed
}

// Statistics returns record counts by status, type, and planning session.
func (s *RecordStore) Statistics() tracking.Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := tracking.NewStatistics()
	for _, rec := range s.records {
		stats.Add(*rec)
	}
	return stats
}

func (s *RecordStore) mutate(id string, fn func(rec *tracking.Record, now time.Time)) (tracking.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return tracking.Record{}, fmt.Errorf("%w: %s", tracking.ErrNotFound, id)
	}

	now := s.now()
	fn(rec, now)
	rec.UpdatedAt = now
	return rec.Clone(), nil
}

func (s *RecordStore) filter(keep func(r *tracking.Record) bool) []tracking.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []tracking.Record
	for _, rec := range s.sortedPtrsLocked() {
		if keep(rec) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func (s *RecordStore) sortedLocked() []tracking.Record {
	ptrs := s.sortedPtrsLocked()
	out := make([]tracking.Record, len(ptrs))
	for i, rec := range ptrs {
		out[i] = rec.Clone()
	}
	return out
}

func (s *RecordStore) sortedPtrsLocked() []*tracking.Record {
	out := make([]*tracking.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b *tracking.Record) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out
}

// writeSynced writes data to path and fsyncs it before closing.
func writeSynced(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// copyFile copies src to dst through a temporary file so dst is never
// observed half written.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dst)
}
