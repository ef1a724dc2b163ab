package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/relaybridge/wayfarer/internal/config"
)

// TtsManager resolves the configured text-to-speech provider and synthesizes
// speech audio to a local file. Only the OpenAI-compatible speech endpoint is
// implemented directly; ElevenLabs/Edge/MiniMax are wired through the same
// shape but return a clear "unsupported" error until an engagement needs them,
// rather than guessing at their wire formats.
type TtsManager struct {
	cfg config.TtsConfig
}

// NewTtsManager builds a manager from the gateway's tts config section.
// Returns nil when no provider is configured (TTS disabled).
func NewTtsManager(cfg config.TtsConfig) *TtsManager {
	if cfg.Provider == "" {
		return nil
	}
	return &TtsManager{cfg: cfg}
}

// PrimaryProvider returns the configured provider name, for startup logging.
func (m *TtsManager) PrimaryProvider() string { return m.cfg.Provider }

// AutoMode returns the auto-speak policy ("off", "always", "inbound", "tagged").
func (m *TtsManager) AutoMode() string {
	if m.cfg.Auto == "" {
		return "off"
	}
	return m.cfg.Auto
}

// Synthesize converts text to speech audio, writes it to a temp file under
// dir, and returns the file path. The caller owns cleanup.
func (m *TtsManager) Synthesize(ctx context.Context, text, dir string) (string, error) {
	maxLen := m.cfg.MaxLength
	if maxLen <= 0 {
		maxLen = 1500
	}
	if len(text) > maxLen {
		text = text[:maxLen]
	}

	switch m.cfg.Provider {
	case "openai":
		return m.synthesizeOpenAI(ctx, text, dir)
	default:
		return "", fmt.Errorf("tts provider %q not implemented", m.cfg.Provider)
	}
}

func (m *TtsManager) synthesizeOpenAI(ctx context.Context, text, dir string) (string, error) {
	if m.cfg.OpenAI.APIKey == "" {
		return "", fmt.Errorf("tts: openai api key not configured")
	}
	apiBase := m.cfg.OpenAI.APIBase
	if apiBase == "" {
		apiBase = "https://api.openai.com/v1"
	}
	model := m.cfg.OpenAI.Model
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	voice := m.cfg.OpenAI.Voice
	if voice == "" {
		voice = "alloy"
	}

	body, err := json.Marshal(map[string]interface{}{
		"model":           model,
		"voice":           voice,
		"input":           text,
		"response_format": "mp3",
	})
	if err != nil {
		return "", err
	}

	timeout := time.Duration(m.cfg.TimeoutMs) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, apiBase+"/audio/speech", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.cfg.OpenAI.APIKey)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("tts: openai request failed (%d): %s", resp.StatusCode, string(msg))
	}

	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("tts-%d.mp3", time.Now().UnixNano()))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", err
	}
	return path, nil
}

// TtsTool lets the agent explicitly request a spoken rendition of text,
// returned as a MEDIA: reference the channel can deliver as a voice message.
type TtsTool struct {
	mgr *TtsManager
}

// NewTtsTool wraps a TtsManager as a registry Tool.
func NewTtsTool(mgr *TtsManager) *TtsTool {
	return &TtsTool{mgr: mgr}
}

func (t *TtsTool) Name() string { return "tts" }

func (t *TtsTool) Description() string {
	return "Convert text to speech audio. Returns a MEDIA: path to the generated audio file."
}

func (t *TtsTool) Parameters() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "Text to synthesize into speech.",
			},
		},
		"required": []string{"text"},
	}
}

func (t *TtsTool) Execute(ctx context.Context, args map[string]interface{}) *Result {
	text, _ := args["text"].(string)
	if text == "" {
		return ErrorResult("text is required")
	}
	path, err := t.mgr.Synthesize(ctx, text, os.TempDir())
	if err != nil {
		return ErrorResult("Error: " + err.Error())
	}
	return NewResult(fmt.Sprintf("MEDIA:%s", path))
}
