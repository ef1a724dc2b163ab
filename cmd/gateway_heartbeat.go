package cmd

import (
	"log/slog"
	"time"

	"github.com/relaybridge/wayfarer/internal/agent"
	"github.com/relaybridge/wayfarer/internal/bus"
	"github.com/relaybridge/wayfarer/internal/config"
	"github.com/relaybridge/wayfarer/internal/sessions"
	"github.com/relaybridge/wayfarer/internal/store"
)

const defaultHeartbeatPrompt = "This is a periodic heartbeat. If there is nothing to do, reply with exactly HEARTBEAT_OK and nothing else."

// heartbeatAgent is one agent's periodic self-check: every Every duration
// (inside its optional active-hours window) it injects a synthetic inbound
// message targeting the agent's own most-recently-used channel, giving the
// agent a chance to act proactively without waiting on user input.
type heartbeatAgent struct {
	agentID string
	cfg     *config.HeartbeatConfig
	ticker  *time.Ticker
	stop    chan struct{}
}

// HeartbeatService runs one ticker goroutine per agent that has a
// heartbeat configured.
type HeartbeatService struct {
	agents []*heartbeatAgent
}

// setupHeartbeat builds a HeartbeatService for every agent (default + list)
// whose resolved config enables heartbeats. Returns nil if none do.
func setupHeartbeat(cfg *config.Config, agentRouter *agent.Router, sessStore store.SessionStore, msgBus *bus.MessageBus, workspace string) *HeartbeatService {
	svc := &HeartbeatService{}

	ids := []string{"default"}
	for id := range cfg.Agents.List {
		if id != "default" {
			ids = append(ids, id)
		}
	}

	for _, id := range ids {
		agentCfg := cfg.ResolveAgent(id)
		hb := agentCfg.Heartbeat
		if hb == nil || hb.Every == "" || hb.Every == "0m" {
			continue
		}
		every, err := time.ParseDuration(hb.Every)
		if err != nil || every <= 0 {
			slog.Warn("heartbeat: invalid interval, skipping", "agent", id, "every", hb.Every)
			continue
		}
		svc.agents = append(svc.agents, &heartbeatAgent{
			agentID: id,
			cfg:     hb,
			ticker:  time.NewTicker(every),
			stop:    make(chan struct{}),
		})
	}

	if len(svc.agents) == 0 {
		return nil
	}

	for _, ha := range svc.agents {
		go svc.run(ha, agentRouter, sessStore, msgBus)
	}
	return svc
}

func (s *HeartbeatService) run(ha *heartbeatAgent, agentRouter *agent.Router, sessStore store.SessionStore, msgBus *bus.MessageBus) {
	for {
		select {
		case <-ha.stop:
			return
		case <-ha.ticker.C:
			s.fire(ha, sessStore, msgBus)
		}
	}
}

func (s *HeartbeatService) fire(ha *heartbeatAgent, sessStore store.SessionStore, msgBus *bus.MessageBus) {
	if !withinActiveHours(ha.cfg.ActiveHours) {
		return
	}

	target := ha.cfg.Target
	if target == "" {
		target = "last"
	}

	var channel, chatID string
	switch target {
	case "none":
		return
	case "last":
		channel, chatID = sessStore.LastUsedChannel(ha.agentID)
		if channel == "" {
			return // no channel activity yet, nothing to nudge
		}
	default:
		channel = target
		chatID = ha.cfg.To
		if chatID == "" {
			return
		}
	}

	prompt := ha.cfg.Prompt
	if prompt == "" {
		prompt = defaultHeartbeatPrompt
	}

	sessionSuffix := ha.cfg.Session
	if sessionSuffix == "" {
		sessionSuffix = "main"
	}

	msgBus.PublishInbound(bus.InboundMessage{
		Channel:  channel,
		ChatID:   chatID,
		Content:  prompt,
		AgentID:  ha.agentID,
		PeerKind: "direct",
		Metadata: map[string]string{
			"heartbeat":        "true",
			"heartbeat_session": sessions.BuildHeartbeatSessionKey(ha.agentID, sessionSuffix),
		},
	})
}

// withinActiveHours reports whether the current local time falls inside the
// configured [Start, End) window. A nil config means always active.
func withinActiveHours(ah *config.ActiveHoursConfig) bool {
	if ah == nil || ah.Start == "" || ah.End == "" {
		return true
	}
	loc := time.Local
	if ah.Timezone != "" {
		if l, err := time.LoadLocation(ah.Timezone); err == nil {
			loc = l
		}
	}
	now := time.Now().In(loc)
	start, errS := time.ParseInLocation("15:04", ah.Start, loc)
	end, errE := time.ParseInLocation("15:04", ah.End, loc)
	if errS != nil || errE != nil {
		return true
	}
	nowMin := now.Hour()*60 + now.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if startMin <= endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// window wraps past midnight
	return nowMin >= startMin || nowMin < endMin
}

// Start is a no-op: goroutines are already running from setupHeartbeat.
// Kept symmetric with other services' Start/Stop lifecycle for gateway.go.
func (s *HeartbeatService) Start() {}

// Stop halts every agent's heartbeat ticker.
func (s *HeartbeatService) Stop() {
	for _, ha := range s.agents {
		ha.ticker.Stop()
		close(ha.stop)
	}
}
