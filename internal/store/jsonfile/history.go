package jsonfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/colonyops/tracksync/internal/core/history"
	"github.com/colonyops/tracksync/pkg/randid"
)

// HistoryStore implements history.Store as an append-only JSON lines file.
// Each run adds one line. When the file holds more than twice maxEntries
// lines it is rewritten with the newest maxEntries.
type HistoryStore struct {
	path       string
	maxEntries int
	mu         sync.Mutex
}

var _ history.Store = (*HistoryStore)(nil)

// NewHistoryStore creates a history log at path keeping at least maxEntries
// runs. maxEntries <= 0 keeps everything.
func NewHistoryStore(path string, maxEntries int) *HistoryStore {
	return &HistoryStore{path: path, maxEntries: maxEntries}
}

// Append writes entry as a new line.
func (s *HistoryStore) Append(ctx context.Context, entry history.Entry) (history.Entry, error) {
	if err := ctx.Err(); err != nil {
		return history.Entry{}, err
	}
	if entry.ID == "" {
		entry.ID = randid.Generate(idLength)
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return history.Entry{}, fmt.Errorf("encode history entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return history.Entry{}, fmt.Errorf("create history dir: %w", err)
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_RDWR, 0o644)
	if err != nil {
		return history.Entry{}, fmt.Errorf("open history: %w", err)
	}

	// terminate a torn last line so it does not swallow this entry
	torn, err := endsTorn(f)
	if err != nil {
		_ = f.Close()
		return history.Entry{}, fmt.Errorf("inspect history: %w", err)
	}
	if torn {
		line = append([]byte{'\n'}, line...)
	}

	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return history.Entry{}, fmt.Errorf("append history: %w", err)
	}
	if err := f.Close(); err != nil {
		return history.Entry{}, fmt.Errorf("close history: %w", err)
	}

	if err := s.compactLocked(); err != nil {
		return history.Entry{}, err
	}
	return entry, nil
}

// Recent returns up to limit entries, newest first.
func (s *HistoryStore) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readLocked()
	if err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Get returns the entry with id.
func (s *HistoryStore) Get(ctx context.Context, id string) (history.Entry, error) {
	entries, err := s.Recent(ctx, 0)
	if err != nil {
		return history.Entry{}, err
	}
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	return history.Entry{}, fmt.Errorf("%w: %s", history.ErrNotFound, id)
}

// LastFailed returns the most recent run with failures.
func (s *HistoryStore) LastFailed(ctx context.Context) (history.Entry, error) {
	entries, err := s.Recent(ctx, 0)
	if err != nil {
		return history.Entry{}, err
	}
	for _, e := range entries {
		if e.Failed() {
			return e, nil
		}
	}
	return history.Entry{}, history.ErrNotFound
}

// Clear removes the log.
func (s *HistoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// readLocked returns entries oldest first. Lines that fail to parse, such as
// a line torn by a crash mid-append, are skipped.
func (s *HistoryStore) readLocked() ([]history.Entry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read history: %w", err)
	}

	var entries []history.Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e history.Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return entries, nil
}

func (s *HistoryStore) compactLocked() error {
	if s.maxEntries <= 0 {
		return nil
	}

	entries, err := s.readLocked()
	if err != nil {
		return err
	}
	if len(entries) <= 2*s.maxEntries {
		return nil
	}
	entries = entries[len(entries)-s.maxEntries:]

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := writeSynced(tmp, buf.Bytes()); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write history: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace history: %w", err)
	}
	return nil
}

// endsTorn reports whether f is non-empty and lacks a trailing newline.
func endsTorn(f *os.File) (bool, error) {
	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() == 0 {
		return false, nil
	}

	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return false, err
	}
	return last[0] != '\n', nil
}
