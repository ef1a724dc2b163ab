package agents

import (
	"os"
	"path/filepath"
	"testing"
)

// --- Resolve tests ---

// TestResolve_EmptyNameReturnsGeneralPurpose verifies that spawn's
// "no agent_name given" case resolves without touching the filesystem.
func TestResolve_EmptyNameReturnsGeneralPurpose(t *testing.T) {
	l := NewLoader("", "")
	def, err := l.Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\") returned error: %v", err)
	}
	if def.Name != "general-purpose" {
		t.Errorf("Resolve(\"\") = %q, want general-purpose", def.Name)
	}
}

// TestResolve_UnknownNameErrors verifies an agent_name with no matching
// profile in either directory fails resolution.
func TestResolve_UnknownNameErrors(t *testing.T) {
	l := NewLoader("", "")
	if _, err := l.Resolve("researcher"); err == nil {
		t.Error("expected error for unknown profile name, got nil")
	}
}

// TestResolve_WorkspaceOverridesBuiltin verifies that a profile defined in
// both directories resolves to the workspace copy.
func TestResolve_WorkspaceOverridesBuiltin(t *testing.T) {
	ws := t.TempDir()
	builtin := t.TempDir()

	writeProfile(t, builtin, "researcher.md", "---\nname: researcher\ndescription: builtin\n---\nbuiltin body")
	writeProfile(t, ws, "researcher.md", "---\nname: researcher\ndescription: workspace\n---\nworkspace body")

	l := NewLoader(ws, builtin)
	def, err := l.Resolve("researcher")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if def.Description != "workspace" {
		t.Errorf("Description = %q, want workspace (workspace dir should win)", def.Description)
	}
}

// --- frontmatter parsing tests ---

// TestParseDefinitionFile_Defaults verifies a file with no frontmatter
// yields an all-defaults profile whose name comes from the filename.
func TestParseDefinitionFile_Defaults(t *testing.T) {
	dir := t.TempDir()
	writeProfile(t, dir, "plain.md", "Just a body, no frontmatter.")

	l := NewLoader(dir, "")
	def, err := l.Resolve("plain")
	if err != nil {
		t.Fatalf("Resolve(\"plain\") returned error: %v", err)
	}
	if def.Model != "default" {
		t.Errorf("Model = %q, want default", def.Model)
	}
	if len(def.AllowedTools) != 0 {
		t.Errorf("AllowedTools = %v, want empty (unrestricted)", def.AllowedTools)
	}
	if def.SkillsNone {
		t.Error("SkillsNone = true, want false (default allows all skills)")
	}
}

// TestParseDefinitionFile_BracketLists verifies allowedTools/allowedSkills
// bracket-list parsing, including the "none" and "all" keywords.
func TestParseDefinitionFile_BracketLists(t *testing.T) {
	dir := t.TempDir()
	content := "---\n" +
		"name: scout\n" +
		"allowedTools: [read_file, web_search, web_fetch]\n" +
		"allowedSkills: none\n" +
		"---\n" +
		"Scout agent body."
	writeProfile(t, dir, "scout.md", content)

	l := NewLoader(dir, "")
	def, err := l.Resolve("scout")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	want := []string{"read_file", "web_search", "web_fetch"}
	if !equalStrings(def.AllowedTools, want) {
		t.Errorf("AllowedTools = %v, want %v", def.AllowedTools, want)
	}
	if !def.SkillsNone {
		t.Error("SkillsNone = false, want true")
	}
	if def.Body != "Scout agent body." {
		t.Errorf("Body = %q", def.Body)
	}
}

// --- EffectiveAllowedTools / UnknownTools tests ---

// TestEffectiveAllowedTools_Unrestricted verifies an unrestricted profile
// gets the full safe-tool set plus read_file (skills default to allowed).
func TestEffectiveAllowedTools_Unrestricted(t *testing.T) {
	d := Definition{Name: "general-purpose"}
	tools := d.EffectiveAllowedTools()
	if len(tools) != len(SAFE_TOOL_NAMES) {
		t.Errorf("got %d tools, want %d (full safe set, read_file already included)", len(tools), len(SAFE_TOOL_NAMES))
	}
}

// TestEffectiveAllowedTools_RestrictedAddsReadFile verifies read_file is
// injected for a restricted profile that doesn't exclude skills.
func TestEffectiveAllowedTools_RestrictedAddsReadFile(t *testing.T) {
	d := Definition{Name: "scout", AllowedTools: []string{"web_search"}}
	tools := d.EffectiveAllowedTools()
	if !contains(tools, "web_search") || !contains(tools, "read_file") {
		t.Errorf("EffectiveAllowedTools() = %v, want web_search and read_file", tools)
	}
	if len(tools) != 2 {
		t.Errorf("EffectiveAllowedTools() = %v, want exactly 2 entries", tools)
	}
}

// TestEffectiveAllowedTools_SkillsNoneOmitsReadFile verifies read_file is
// NOT force-added when the profile explicitly disallows all skills.
func TestEffectiveAllowedTools_SkillsNoneOmitsReadFile(t *testing.T) {
	d := Definition{Name: "narrow", AllowedTools: []string{"web_search"}, SkillsNone: true}
	tools := d.EffectiveAllowedTools()
	if contains(tools, "read_file") {
		t.Errorf("EffectiveAllowedTools() = %v, should not contain read_file when skills are none", tools)
	}
}

// TestUnknownTools verifies the unknown-tool detection spawn relies on to
// reject a profile before starting any sub-agent work.
func TestUnknownTools(t *testing.T) {
	d := Definition{Name: "broken", AllowedTools: []string{"read_file", "send_photo"}}
	unknown := d.UnknownTools()
	if !equalStrings(unknown, []string{"send_photo"}) {
		t.Errorf("UnknownTools() = %v, want [send_photo]", unknown)
	}
}

// TestUnknownTools_AllSafeReturnsEmpty verifies a fully valid tool list
// produces no unknown entries.
func TestUnknownTools_AllSafeReturnsEmpty(t *testing.T) {
	d := Definition{Name: "ok", AllowedTools: []string{"read_file", "web_search"}}
	if unknown := d.UnknownTools(); len(unknown) != 0 {
		t.Errorf("UnknownTools() = %v, want empty", unknown)
	}
}

func writeProfile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("writeProfile(%s): %v", name, err)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
