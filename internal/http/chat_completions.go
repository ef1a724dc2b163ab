package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/relaybridge/wayfarer/internal/agent"
	"github.com/relaybridge/wayfarer/internal/sessions"
	"github.com/relaybridge/wayfarer/internal/store"
)

// ChatCompletionsHandler exposes an OpenAI-compatible `/v1/chat/completions`
// surface over the gateway's own agents. It is a bridge, not a provider
// client: translating the wire format is the out-of-scope concern named in
// the spec ("OpenAI Responses... specified only at the abstract LLMProvider
// boundary"); this handler only ever talks to local *agent.Router agents.
type ChatCompletionsHandler struct {
	agents      *agent.Router
	sessions    store.SessionStore
	token       string
	isManaged   bool
	rateLimiter func(key string) bool
}

// NewChatCompletionsHandler creates the /v1/chat/completions bridge.
func NewChatCompletionsHandler(agents *agent.Router, sess store.SessionStore, token string, isManaged bool) *ChatCompletionsHandler {
	return &ChatCompletionsHandler{agents: agents, sessions: sess, token: token, isManaged: isManaged}
}

// SetRateLimiter installs a per-key rate limiter (key = bearer token or remote addr).
func (h *ChatCompletionsHandler) SetRateLimiter(allow func(key string) bool) {
	h.rateLimiter = allow
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionsRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	User     string        `json:"user,omitempty"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatCompletionsResponse struct {
	ID      string                  `json:"id"`
	Object  string                  `json:"object"`
	Created int64                   `json:"created"`
	Model   string                  `json:"model"`
	Choices []chatCompletionChoice  `json:"choices"`
	Usage   *chatCompletionsUsage   `json:"usage,omitempty"`
}

type chatCompletionsUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (h *ChatCompletionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && extractBearerToken(r) != h.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if h.rateLimiter != nil {
		key := extractBearerToken(r)
		if key == "" {
			key = r.RemoteAddr
		}
		if !h.rateLimiter(key) {
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
	}

	var req chatCompletionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	lastUser := lastUserMessage(req.Messages)
	if lastUser == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no user message found"})
		return
	}

	agentID := req.Model
	if agentID == "" {
		agentID = "default"
	}
	a, err := h.agents.Get(agentID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}

	// Stateless clients key sessions by `user`; omitted means one ephemeral
	// session per call (no cross-request memory, matching plain completion semantics).
	peer := req.User
	if peer == "" {
		peer = fmt.Sprintf("anon-%d", time.Now().UnixNano())
	}
	sessionKey := sessions.BuildSessionKey(agentID, "api", sessions.PeerDirect, peer)

	runID := fmt.Sprintf("chatcmpl-%d", time.Now().UnixNano())
	result, err := a.Run(r.Context(), agent.RunRequest{
		SessionKey: sessionKey,
		Message:    lastUser,
		Channel:    "api",
		ChatID:     peer,
		PeerKind:   "direct",
		RunID:      runID,
		Stream:     false,
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp := chatCompletionsResponse{
		ID:      runID,
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   agentID,
		Choices: []chatCompletionChoice{{
			Index:        0,
			Message:      chatMessage{Role: "assistant", Content: result.Content},
			FinishReason: "stop",
		}},
	}
	if result.Usage != nil {
		resp.Usage = &chatCompletionsUsage{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.PromptTokens + result.Usage.CompletionTokens,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func lastUserMessage(messages []chatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return messages[i].Content
		}
	}
	return ""
}
