package bootstrap

import (
	"os"
	"path/filepath"
)

// ContextFile is one workspace markdown file folded into the agent's system
// prompt (AGENTS.md, SOUL.md, ...).
type ContextFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	// Truncated reports whether Content was cut down from the file on disk
	// to respect TruncateConfig.
	Truncated bool `json:"truncated,omitempty"`
}

// TruncateConfig bounds how much workspace context is folded into the
// system prompt, so a sprawling USER.md can't crowd out the conversation
// history's share of the context window.
type TruncateConfig struct {
	MaxCharsPerFile int
	TotalMaxChars   int
}

// LoadWorkspaceFiles reads the standard context files from a workspace
// directory, skipping any that don't exist. Order matches templateFiles so
// the system prompt presents them consistently.
func LoadWorkspaceFiles(workspaceDir string) []ContextFile {
	names := append(append([]string{}, templateFiles...), BootstrapFile)
	var files []ContextFile
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(workspaceDir, name))
		if err != nil {
			continue
		}
		if len(data) == 0 {
			continue
		}
		files = append(files, ContextFile{Name: name, Content: string(data)})
	}
	return files
}

// BuildContextFiles applies per-file and total truncation limits to raw
// workspace files, in the order given, so higher-priority files (earlier in
// the slice) keep their full content while later ones are trimmed first.
func BuildContextFiles(raw []ContextFile, cfg TruncateConfig) []ContextFile {
	if cfg.MaxCharsPerFile <= 0 {
		cfg.MaxCharsPerFile = DefaultMaxCharsPerFile
	}
	if cfg.TotalMaxChars <= 0 {
		cfg.TotalMaxChars = DefaultTotalMaxChars
	}

	out := make([]ContextFile, 0, len(raw))
	remaining := cfg.TotalMaxChars
	for _, f := range raw {
		content := f.Content
		truncated := f.Truncated
		if len(content) > cfg.MaxCharsPerFile {
			content = content[:cfg.MaxCharsPerFile]
			truncated = true
		}
		if remaining <= 0 {
			break
		}
		if len(content) > remaining {
			content = content[:remaining]
			truncated = true
		}
		remaining -= len(content)
		out = append(out, ContextFile{Name: f.Name, Content: content, Truncated: truncated})
	}
	return out
}
