package planning

import (
	"bufio"
	"strings"

	"gopkg.in/yaml.v3"
)

// Frontmatter holds metadata parsed from a session document's YAML front matter.
// All fields are best-effort: missing or malformed frontmatter produces zero values.
type Frontmatter struct {
	SessionID string   `yaml:"session_id"`
	Title     string   `yaml:"title"`
	Labels    []string `yaml:"labels"`
}

// ParseFrontmatter extracts YAML front matter from document content and
// returns the remaining body lines.
// Front matter must be delimited by "---" on its own line at the start of the file.
// Returns zero-value Frontmatter and the full content if no front matter is found.
func ParseFrontmatter(content string) (Frontmatter, []string) {
	all := splitLines(content)

	// First line must be "---"
	if len(all) == 0 || strings.TrimSpace(all[0]) != "---" {
		return Frontmatter{}, all
	}

	end := len(all)
	for i := 1; i < len(all); i++ {
		if strings.TrimSpace(all[i]) == "---" {
			end = i
			break
		}
	}

	var body []string
	if end < len(all) {
		body = all[end+1:]
	}

	if end == 1 {
		return Frontmatter{}, body
	}

	var fm Frontmatter
	_ = yaml.Unmarshal([]byte(strings.Join(all[1:end], "\n")), &fm)

	return fm, body
}

func splitLines(content string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, strings.TrimSuffix(scanner.Text(), "\r"))
	}
	return lines
}
