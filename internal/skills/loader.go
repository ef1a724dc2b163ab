// Package skills loads agent skills from directories of markdown files with
// YAML-ish frontmatter (name/description/tags), the same shape a human author
// would drop into a skills-store directory without any build step.
package skills

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Skill is one loaded skill definition.
type Skill struct {
	Name        string
	Description string
	Tags        []string
	Path        string // absolute path to the skill's markdown file
	Body        string // content after the frontmatter block
}

// Loader reads skill markdown files from one or more directories and keeps
// an in-memory index keyed by skill name. Directories are searched in the
// order passed to NewLoader; a name found in an earlier directory wins over
// the same name in a later one, matching "workspace overrides global".
type Loader struct {
	dirs []string

	mu     sync.RWMutex
	skills map[string]Skill
}

// NewLoader creates a Loader over workspaceDir (per-agent skills, highest
// priority), globalDir (shared/builtin skills) and teamDir (team-scoped
// skills; pass "" when teams aren't configured). Missing directories are
// created lazily and simply contribute no skills until populated. Returns
// an error only if the initial scan fails outright.
func NewLoader(workspaceDir, globalDir, teamDir string) (*Loader, error) {
	var dirs []string
	for _, d := range []string{workspaceDir, globalDir, teamDir} {
		if d == "" {
			continue
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("skills: create storage dir %q: %w", d, err)
		}
		dirs = append(dirs, d)
	}

	l := &Loader{dirs: dirs, skills: make(map[string]Skill)}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Dirs returns the directories this loader scans, in priority order.
func (l *Loader) Dirs() []string {
	return append([]string(nil), l.dirs...)
}

// Reload rescans all directories and replaces the in-memory index.
func (l *Loader) Reload() error {
	loaded := make(map[string]Skill)
	seenPath := make(map[string]bool)

	for _, dir := range l.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return fmt.Errorf("skills: read storage dir %q: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if seenPath[path] {
				continue
			}
			seenPath[path] = true

			sk, err := parseSkillFile(path)
			if err != nil {
				continue // skip unparseable files rather than fail the whole reload
			}
			if sk.Name == "" {
				sk.Name = strings.TrimSuffix(e.Name(), ".md")
			}
			if _, exists := loaded[sk.Name]; exists {
				continue // earlier (higher-priority) directory already supplied this name
			}
			loaded[sk.Name] = sk
		}
	}

	l.mu.Lock()
	l.skills = loaded
	l.mu.Unlock()
	return nil
}

// parseSkillFile reads a skill markdown file with an optional leading
// "---" frontmatter block of "key: value" lines, followed by the body.
func parseSkillFile(path string) (Skill, error) {
	f, err := os.Open(path)
	if err != nil {
		return Skill{}, err
	}
	defer f.Close()

	sk := Skill{Path: path}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	var body strings.Builder
	inFrontmatter := false
	lineNo := 0
	for scanner.Scan() {
		line := scanner.Text()
		lineNo++
		if lineNo == 1 && strings.TrimSpace(line) == "---" {
			inFrontmatter = true
			continue
		}
		if inFrontmatter {
			if strings.TrimSpace(line) == "---" {
				inFrontmatter = false
				continue
			}
			key, val, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			key = strings.TrimSpace(key)
			val = strings.TrimSpace(strings.Trim(val, `"'`))
			switch strings.ToLower(key) {
			case "name":
				sk.Name = val
			case "description":
				sk.Description = val
			case "tags":
				for _, t := range strings.Split(val, ",") {
					if t = strings.TrimSpace(t); t != "" {
						sk.Tags = append(sk.Tags, t)
					}
				}
			}
			continue
		}
		body.WriteString(line)
		body.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return Skill{}, err
	}
	sk.Body = strings.TrimSpace(body.String())
	return sk, nil
}

// ListSkills returns every loaded skill, sorted by name.
func (l *Loader) ListSkills() []Skill {
	return l.FilterSkills(nil)
}

// FilterSkills returns the loaded skills whose name appears in allow, sorted
// by name. A nil or empty allow list means "all skills".
func (l *Loader) FilterSkills(allow []string) []Skill {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var allowSet map[string]bool
	if len(allow) > 0 {
		allowSet = make(map[string]bool, len(allow))
		for _, a := range allow {
			allowSet[a] = true
		}
	}

	out := make([]Skill, 0, len(l.skills))
	for _, sk := range l.skills {
		if allowSet != nil && !allowSet[sk.Name] {
			continue
		}
		out = append(out, sk)
	}
	sortSkills(out)
	return out
}

// Get returns a single skill by name, for tools like skill_search/read_skill.
func (l *Loader) Get(name string) (Skill, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	sk, ok := l.skills[name]
	return sk, ok
}

// BuildSummary renders the filtered skill set as the <available_skills> XML
// block inlined into the system prompt.
func (l *Loader) BuildSummary(allow []string) string {
	filtered := l.FilterSkills(allow)
	if len(filtered) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("<available_skills>\n")
	for _, sk := range filtered {
		fmt.Fprintf(&b, "  <skill name=%q>%s</skill>\n", sk.Name, sk.Description)
	}
	b.WriteString("</available_skills>")
	return b.String()
}

func sortSkills(s []Skill) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1].Name > s[j].Name; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
