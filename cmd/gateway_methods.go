package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/relaybridge/wayfarer/internal/agent"
	"github.com/relaybridge/wayfarer/internal/channels"
	"github.com/relaybridge/wayfarer/internal/config"
	"github.com/relaybridge/wayfarer/internal/gateway"
	"github.com/relaybridge/wayfarer/internal/scheduler"
	"github.com/relaybridge/wayfarer/internal/sessions"
	"github.com/relaybridge/wayfarer/internal/store"
	"github.com/relaybridge/wayfarer/internal/tools"
	"github.com/relaybridge/wayfarer/pkg/protocol"
)

// pairingRPC wraps the pairing store with the owner-approval notification
// hook the inbound consumer installs once the channel manager exists.
type pairingRPC struct {
	store     store.PairingStore
	onApprove func(ctx context.Context, channel, chatID string)
}

// SetOnApprove installs the callback fired after a pairing request is
// approved via RPC, so the approved sender gets a "you're in" message on
// their channel.
func (p *pairingRPC) SetOnApprove(fn func(ctx context.Context, channel, chatID string)) {
	p.onApprove = fn
}

// registerAllMethods wires the core WebSocket RPC method set onto server's
// router: agent/chat, sessions, skills, cron, pairing, and exec approval.
// Channel-management methods are registered separately once the channel
// manager exists (see registerChannelsMethods).
func registerAllMethods(
	server *gateway.Server,
	agentRouter *agent.Router,
	sched *scheduler.Scheduler,
	sessStore store.SessionStore,
	cronStore store.CronStore,
	pairingStore store.PairingStore,
	cfg *config.Config,
	skillStore store.SkillStore,
	execApprovalMgr *tools.ExecApprovalManager,
) *pairingRPC {
	r := server.Router()

	r.Register(protocol.MethodConnect, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
			"protocol": protocol.ProtocolVersion,
			"agents":   agentRouter.List(),
		}))
	})

	r.Register(protocol.MethodHealth, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"status": "ok"}))
	})

	r.Register(protocol.MethodStatus, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{
			"agents":  agentRouter.List(),
			"version": Version,
		}))
	})

	registerChatMethods(r, agentRouter, sched, sessStore)
	registerSessionsMethods(r, sessStore)
	registerSkillsMethods(r, skillStore)
	registerCronMethods(r, cronStore)
	registerApprovalMethods(r, execApprovalMgr)

	pr := &pairingRPC{store: pairingStore}
	registerPairingMethods(r, pr)

	return pr
}

type chatSendParams struct {
	AgentID  string `json:"agentId"`
	Message  string `json:"message"`
	Channel  string `json:"channel"`
	ChatID   string `json:"chatId"`
	PeerKind string `json:"peerKind"`
	// SessionKey, when set, continues that session instead of the one
	// derived from agent/channel/chat.
	SessionKey string `json:"sessionKey"`
}

func registerChatMethods(r *gateway.MethodRouter, agentRouter *agent.Router, sched *scheduler.Scheduler, sessStore store.SessionStore) {
	sendHandler := func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p chatSendParams
		if err := json.Unmarshal(req.Params, &p); err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "bad params: "+err.Error()))
			return
		}
		if p.AgentID == "" {
			p.AgentID = "default"
		}
		if p.Channel == "" {
			p.Channel = "ws"
		}
		if p.ChatID == "" {
			p.ChatID = c.ID()
		}
		peerKind := sessions.PeerDirect
		if p.PeerKind == string(sessions.PeerGroup) {
			peerKind = sessions.PeerGroup
		}

		sessionKey := p.SessionKey
		if sessionKey == "" {
			sessionKey = sessions.BuildSessionKey(p.AgentID, p.Channel, peerKind, p.ChatID)
		}
		runReq := agent.RunRequest{
			SessionKey: sessionKey,
			Message:    p.Message,
			Channel:    p.Channel,
			ChatID:     p.ChatID,
			PeerKind:   string(peerKind),
			RunID:      fmt.Sprintf("ws-%s", uuid.NewString()[:8]),
		}

		outcome := <-sched.Schedule(ctx, scheduler.LaneMain, runReq)
		if outcome.Err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, outcome.Err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, outcome.Result))
	}
	r.Register(protocol.MethodChatSend, sendHandler)
	r.Register(protocol.MethodSend, sendHandler)

	r.Register(protocol.MethodChatHistory, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			SessionKey string `json:"sessionKey"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.SessionKey == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "sessionKey required"))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, sessStore.GetHistory(p.SessionKey)))
	})

	r.Register(protocol.MethodChatAbort, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			SessionKey string `json:"sessionKey"`
		}
		json.Unmarshal(req.Params, &p)
		cancelled := sched.CancelSession(p.SessionKey)
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"cancelled": cancelled}))
	})
}

func registerSessionsMethods(r *gateway.MethodRouter, sessStore store.SessionStore) {
	r.Register(protocol.MethodSessionsList, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			AgentID string `json:"agentId"`
			Limit   int    `json:"limit"`
			Offset  int    `json:"offset"`
		}
		json.Unmarshal(req.Params, &p)
		result := sessStore.ListPaged(store.SessionListOpts{AgentID: p.AgentID, Limit: p.Limit, Offset: p.Offset})
		c.SendResponse(protocol.NewOKResponse(req.ID, result))
	})

	r.Register(protocol.MethodSessionsDelete, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Key == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "key required"))
			return
		}
		if err := sessStore.Delete(p.Key); err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"deleted": true}))
	})

	r.Register(protocol.MethodSessionsReset, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Key == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "key required"))
			return
		}
		sessStore.Reset(p.Key)
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"reset": true}))
	})
}

func registerSkillsMethods(r *gateway.MethodRouter, skillStore store.SkillStore) {
	r.Register(protocol.MethodSkillsList, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		skills, err := skillStore.List(ctx)
		if err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, skills))
	})

	r.Register(protocol.MethodSkillsGet, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Name == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "name required"))
			return
		}
		skill, err := skillStore.Get(ctx, p.Name)
		if err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrNotFound, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, skill))
	})
}

func registerCronMethods(r *gateway.MethodRouter, cronStore store.CronStore) {
	r.Register(protocol.MethodCronList, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		jobs, err := cronStore.List(ctx)
		if err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, jobs))
	})

	r.Register(protocol.MethodCronCreate, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var job store.CronJob
		if err := json.Unmarshal(req.Params, &job); err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "bad params: "+err.Error()))
			return
		}
		if job.ID == "" {
			job.ID = uuid.NewString()
		}
		if err := cronStore.Add(ctx, &job); err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, job))
	})

	r.Register(protocol.MethodCronDelete, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.ID == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "id required"))
			return
		}
		if err := cronStore.Remove(ctx, p.ID); err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"deleted": true}))
	})

	r.Register(protocol.MethodCronStatus, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.ID == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "id required"))
			return
		}
		job, err := cronStore.Get(ctx, p.ID)
		if err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrNotFound, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, job))
	})
}

func registerApprovalMethods(r *gateway.MethodRouter, mgr *tools.ExecApprovalManager) {
	if mgr == nil {
		return
	}
	r.Register(protocol.MethodApprovalsList, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		c.SendResponse(protocol.NewOKResponse(req.ID, mgr.ListPending()))
	})
	r.Register(protocol.MethodApprovalsApprove, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			RequestID string `json:"requestId"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.RequestID == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "requestId required"))
			return
		}
		if err := mgr.Resolve(p.RequestID, tools.ApprovalAllow); err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrNotFound, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"resolved": "allow"}))
	})
	r.Register(protocol.MethodApprovalsDeny, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			RequestID string `json:"requestId"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.RequestID == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "requestId required"))
			return
		}
		if err := mgr.Resolve(p.RequestID, tools.ApprovalDeny); err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrNotFound, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"resolved": "deny"}))
	})
}

func registerPairingMethods(r *gateway.MethodRouter, pr *pairingRPC) {
	r.Register(protocol.MethodPairingRequest, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			SenderID string `json:"senderId"`
			Channel  string `json:"channel"`
			ChatID   string `json:"chatId"`
			AgentID  string `json:"agentId"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "bad params: "+err.Error()))
			return
		}
		code, err := pr.store.RequestPairing(p.SenderID, p.Channel, p.ChatID, p.AgentID)
		if err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, map[string]interface{}{"code": code}))
	})

	r.Register(protocol.MethodPairingApprove, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Code == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "code required"))
			return
		}
		pairingReq, err := pr.store.Approve(ctx, p.Code)
		if err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
			return
		}
		if pr.onApprove != nil {
			go pr.onApprove(context.Background(), pairingReq.Channel, pairingReq.ChatID)
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, pairingReq))
	})

	r.Register(protocol.MethodPairingList, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		pending, err := pr.store.ListPending(ctx)
		if err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, pending))
	})

	r.Register(protocol.MethodPairingRevoke, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			Code string `json:"code"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Code == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "code required"))
			return
		}
		pairingReq, err := pr.store.Deny(ctx, p.Code)
		if err != nil {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInternal, err.Error()))
			return
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, pairingReq))
	})
}

// registerChannelsMethods wires channels.list/status/toggle once the
// channel manager has been constructed and its channels registered.
func registerChannelsMethods(r *gateway.MethodRouter, mgr *channels.Manager) {
	r.Register(protocol.MethodChannelsList, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		c.SendResponse(protocol.NewOKResponse(req.ID, mgr.GetEnabledChannels()))
	})
	r.Register(protocol.MethodChannelsStatus, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		c.SendResponse(protocol.NewOKResponse(req.ID, mgr.GetStatus()))
	})
	r.Register(protocol.MethodChannelsToggle, func(ctx context.Context, c *gateway.Client, req *protocol.RequestFrame) {
		var p struct {
			Name    string `json:"name"`
			Enabled bool   `json:"enabled"`
		}
		if err := json.Unmarshal(req.Params, &p); err != nil || p.Name == "" {
			c.SendResponse(protocol.NewErrorResponse(req.ID, protocol.ErrInvalidRequest, "name required"))
			return
		}
		if !p.Enabled {
			mgr.UnregisterChannel(p.Name)
		}
		c.SendResponse(protocol.NewOKResponse(req.ID, mgr.GetStatus()))
	})
}
