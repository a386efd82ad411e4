// Package comments scans source trees for marker comments such as TODO and FIXME.
package comments

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"

	"github.com/colonyops/tracksync/internal/core/workitem"
)

const (
	// DefaultMaxFileSize bounds the files read by the scanner.
	DefaultMaxFileSize = 1 << 20
	sniffLen           = 8000
)

// Scanner walks Root and extracts marker comments from files matching Include
// and not matching Exclude. Patterns use doublestar syntax against
// slash-separated paths relative to Root.
type Scanner struct {
	Root         string
	Include      []string
	Exclude      []string
	Markers      []string
	ContextLines int
	MaxFileSize  int64
	Logger       zerolog.Logger
}

// Scan returns every marker comment under Root in path then line order.
func (s *Scanner) Scan(ctx context.Context) ([]workitem.Comment, error) {
	re, err := s.pattern()
	if err != nil {
		return nil, err
	}

	var found []workitem.Comment
	err = filepath.WalkDir(s.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		rel, err := filepath.Rel(s.Root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if s.prunes(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !s.selects(rel) {
			return nil
		}

		comments, err := s.scanFile(path, rel, re)
		if err != nil {
			s.Logger.Warn().Err(err).Str("file", rel).Msg("skipping unreadable file")
			return nil
		}
		found = append(found, comments...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.Root, err)
	}
	return found, nil
}

// ScanFile scans a single file; rel is the path recorded on the comments.
func (s *Scanner) ScanFile(path, rel string) ([]workitem.Comment, error) {
	re, err := s.pattern()
	if err != nil {
		return nil, err
	}
	return s.scanFile(path, filepath.ToSlash(rel), re)
}

func (s *Scanner) scanFile(path, rel string, re *regexp.Regexp) ([]workitem.Comment, error) {
	limit := s.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.Size() > limit {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.IndexByte(data[:min(len(data), sniffLen)], 0) >= 0 {
		return nil, nil // binary
	}

	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), int(limit))
	for sc.Scan() {
		lines = append(lines, strings.TrimSuffix(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	var out []workitem.Comment
	for i, line := range lines {
		m := re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := cleanText(m[3])
		if text == "" {
			continue
		}

		id := strings.TrimSpace(m[2])
		if id == "" {
			id = CommentID(m[1], text)
		}

		out = append(out, workitem.Comment{
			CommentID:  id,
			Marker:     m[1],
			Text:       text,
			FilePath:   rel,
			LineNumber: i + 1,
			Context:    contextLines(lines, i, s.ContextLines),
		})
	}
	return out, nil
}

// pattern builds the marker regexp. Groups: marker, explicit id, text.
func (s *Scanner) pattern() (*regexp.Regexp, error) {
	if len(s.Markers) == 0 {
		return nil, errors.New("no comment markers configured")
	}
	quoted := make([]string, len(s.Markers))
	for i, m := range s.Markers {
		quoted[i] = regexp.QuoteMeta(m)
	}
	return regexp.Compile(`(?://|#|--|/\*|^\s*\*)\s*\b(` + strings.Join(quoted, "|") + `)\b(?:\(([^)]*)\))?:?\s*(.*)$`)
}

// selects reports whether a file path is included and not excluded.
func (s *Scanner) selects(rel string) bool {
	if matchAny(s.Exclude, rel) {
		return false
	}
	if len(s.Include) == 0 {
		return true
	}
	return matchAny(s.Include, rel)
}

// prunes reports whether a directory is excluded as a whole via a "dir/**" pattern.
func (s *Scanner) prunes(rel string) bool {
	for _, p := range s.Exclude {
		prefix, ok := strings.CutSuffix(p, "/**")
		if !ok {
			continue
		}
		if m, _ := doublestar.Match(prefix, rel); m {
			return true
		}
	}
	return false
}

func matchAny(patterns []string, rel string) bool {
	for _, p := range patterns {
		if m, _ := doublestar.Match(p, rel); m {
			return true
		}
	}
	return false
}

// CommentID derives a stable id from the marker and normalized text, so a
// comment keeps its identity when surrounding lines move.
func CommentID(marker, text string) string {
	norm := strings.ToLower(strings.Join(strings.Fields(text), " "))
	sum := sha1.Sum([]byte(norm))
	return marker + "-" + hex.EncodeToString(sum[:4])
}

// cleanText strips block comment terminators and surrounding whitespace.
func cleanText(s string) string {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{"*/", "-->"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
	return s
}

func contextLines(lines []string, i, n int) []string {
	if n <= 0 {
		return nil
	}
	start := max(0, i-n)
	end := min(len(lines), i+n+1)
	out := make([]string, end-start)
	copy(out, lines[start:end])
	return out
}
