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

// ResponsesHandler exposes an OpenAI-Responses-shaped `/v1/responses`
// surface over the gateway's own agents — same bridging role as
// ChatCompletionsHandler, different (simpler) request/response envelope.
type ResponsesHandler struct {
	agents   *agent.Router
	sessions store.SessionStore
	token    string
}

// NewResponsesHandler creates the /v1/responses bridge.
func NewResponsesHandler(agents *agent.Router, sess store.SessionStore, token string) *ResponsesHandler {
	return &ResponsesHandler{agents: agents, sessions: sess, token: token}
}

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	User  string `json:"user,omitempty"`
}

type responsesOutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type responsesOutputItem struct {
	Type    string                   `json:"type"`
	Role    string                   `json:"role"`
	Content []responsesOutputContent `json:"content"`
}

type responsesResponse struct {
	ID     string                 `json:"id"`
	Object string                 `json:"object"`
	Model  string                 `json:"model"`
	Status string                 `json:"status"`
	Output []responsesOutputItem  `json:"output"`
}

func (h *ResponsesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && extractBearerToken(r) != h.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req responsesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Input == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "input is required"})
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

	peer := req.User
	if peer == "" {
		peer = fmt.Sprintf("anon-%d", time.Now().UnixNano())
	}
	sessionKey := sessions.BuildSessionKey(agentID, "api", sessions.PeerDirect, peer)
	runID := fmt.Sprintf("resp-%d", time.Now().UnixNano())

	result, err := a.Run(r.Context(), agent.RunRequest{
		SessionKey: sessionKey,
		Message:    req.Input,
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

	writeJSON(w, http.StatusOK, responsesResponse{
		ID:     runID,
		Object: "response",
		Model:  agentID,
		Status: "completed",
		Output: []responsesOutputItem{{
			Type: "message",
			Role: "assistant",
			Content: []responsesOutputContent{{
				Type: "output_text",
				Text: result.Content,
			}},
		}},
	})
}
