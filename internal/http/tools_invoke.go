package http

import (
	"encoding/json"
	"net/http"

	"github.com/relaybridge/wayfarer/internal/store"
	"github.com/relaybridge/wayfarer/internal/tools"
)

// ToolsInvokeHandler exposes direct, single-shot tool execution over HTTP —
// used by operators/scripts that want to call a registered tool (e.g.
// web_fetch, exec) without driving a full agent turn.
type ToolsInvokeHandler struct {
	tools      *tools.Registry
	token      string
	agentStore store.AgentStore // optional: managed mode, for context injection
}

// NewToolsInvokeHandler creates a handler for POST /v1/tools/invoke.
func NewToolsInvokeHandler(reg *tools.Registry, token string, agentStore store.AgentStore) *ToolsInvokeHandler {
	return &ToolsInvokeHandler{tools: reg, token: token, agentStore: agentStore}
}

type toolsInvokeRequest struct {
	Tool       string                 `json:"tool"`
	Arguments  map[string]interface{} `json:"arguments"`
	SessionKey string                 `json:"session_key,omitempty"`
}

type toolsInvokeResponse struct {
	ForLLM  string `json:"for_llm"`
	ForUser string `json:"for_user,omitempty"`
	IsError bool   `json:"is_error"`
}

func (h *ToolsInvokeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.token != "" && extractBearerToken(r) != h.token {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req toolsInvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Tool == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tool is required"})
		return
	}
	if _, ok := h.tools.Get(req.Tool); !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown tool: " + req.Tool})
		return
	}

	sessionKey := req.SessionKey
	if sessionKey == "" {
		sessionKey = "http:tools_invoke"
	}

	result := h.tools.Execute(r.Context(), sessionKey, req.Tool, req.Arguments)
	resp := toolsInvokeResponse{ForLLM: result.ForLLM, ForUser: result.ForUser, IsError: result.IsError}

	status := http.StatusOK
	if result.IsError {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}
