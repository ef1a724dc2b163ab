package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/relaybridge/wayfarer/internal/agent"
	"github.com/relaybridge/wayfarer/internal/bootstrap"
	"github.com/relaybridge/wayfarer/internal/bus"
	"github.com/relaybridge/wayfarer/internal/channels"
	"github.com/relaybridge/wayfarer/internal/channels/discord"
	"github.com/relaybridge/wayfarer/internal/channels/feishu"
	"github.com/relaybridge/wayfarer/internal/channels/telegram"
	"github.com/relaybridge/wayfarer/internal/channels/whatsapp"
	"github.com/relaybridge/wayfarer/internal/channels/zalo"
	"github.com/relaybridge/wayfarer/internal/config"
	"github.com/relaybridge/wayfarer/internal/cron"
	"github.com/relaybridge/wayfarer/internal/gateway"
	mcpbridge "github.com/relaybridge/wayfarer/internal/mcp"
	"github.com/relaybridge/wayfarer/internal/pairing"
	"github.com/relaybridge/wayfarer/internal/permissions"
	"github.com/relaybridge/wayfarer/internal/providers"
	"github.com/relaybridge/wayfarer/internal/sandbox"
	"github.com/relaybridge/wayfarer/internal/scheduler"
	"github.com/relaybridge/wayfarer/internal/sessions"
	"github.com/relaybridge/wayfarer/internal/skills"
	"github.com/relaybridge/wayfarer/internal/store/file"
	"github.com/relaybridge/wayfarer/internal/tools"
	"github.com/relaybridge/wayfarer/pkg/browser"
	"github.com/relaybridge/wayfarer/pkg/protocol"
)

func runGateway() {
	// Setup structured logging
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	// Load config
	cfgPath := resolveConfigPath()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Auto-detect: if no provider API key is configured, help the user.
	_, cfgStatErr := os.Stat(cfgPath)
	configMissing := os.IsNotExist(cfgStatErr)
	if !cfg.HasAnyProvider() || configMissing {
		// Docker / CI: env vars provide API keys → non-interactive auto-onboard.
		if canAutoOnboard() {
			if runAutoOnboard(cfgPath) {
				cfg, _ = config.Load(cfgPath)
			} else {
				os.Exit(1)
			}
		} else if _, statErr := os.Stat(cfgPath); statErr == nil {
			// Config file exists — user already onboarded but forgot to source .env.local.
			envPath := filepath.Join(filepath.Dir(cfgPath), ".env.local")
			fmt.Println("No AI provider API key found. Did you forget to load your secrets?")
			fmt.Println()
			fmt.Printf("  source %s && ./wayfarer\n", envPath)
			fmt.Println()
			fmt.Println("Or re-run the setup wizard:  ./wayfarer onboard")
			os.Exit(1)
		} else {
			// No config file at all → first time, redirect to onboard wizard.
			fmt.Println("No configuration found. Starting setup wizard...")
			fmt.Println()
			runOnboard()
			return
		}
	}

	// Create core components
	msgBus := bus.New()

	// Create provider registry
	providerRegistry := providers.NewRegistry()
	registerProviders(providerRegistry, cfg)

	// Resolve workspace (must be absolute for system prompt + file tool path resolution)
	workspace := config.ExpandHome(cfg.Agents.Defaults.Workspace)
	if !filepath.IsAbs(workspace) {
		workspace, _ = filepath.Abs(workspace)
	}
	os.MkdirAll(workspace, 0755)

	// Seed bootstrap templates to disk.
	seededFiles, seedErr := bootstrap.EnsureWorkspaceFiles(workspace)
	if seedErr != nil {
		slog.Warn("bootstrap template seeding failed", "error", seedErr)
	} else if len(seededFiles) > 0 {
		slog.Info("seeded workspace templates", "files", seededFiles)
	}

	// Create tool registry with all tools
	toolsReg := tools.NewRegistry()
	agentCfg := cfg.ResolveAgent("default")

	// Sandbox manager (optional — routes tools through Docker containers)
	var sandboxMgr sandbox.Manager
	if sbCfg := cfg.Agents.Defaults.Sandbox; sbCfg != nil && sbCfg.Mode != "" && sbCfg.Mode != "off" {
		if err := sandbox.CheckDockerAvailable(context.Background()); err != nil {
			slog.Warn("sandbox disabled: Docker not available",
				"configured_mode", sbCfg.Mode,
				"error", err,
			)
		} else {
			resolved := sbCfg.ToSandboxConfig()
			sandboxMgr = sandbox.NewDockerManager(resolved)
			slog.Info("sandbox enabled", "mode", string(resolved.Mode), "image", resolved.Image, "scope", string(resolved.Scope))
		}
	}

	// Register file tools + exec tool (with sandbox routing via FsBridge if enabled)
	if sandboxMgr != nil {
		toolsReg.Register(tools.NewSandboxedReadFileTool(workspace, agentCfg.RestrictToWorkspace, sandboxMgr))
		toolsReg.Register(tools.NewSandboxedWriteFileTool(workspace, agentCfg.RestrictToWorkspace, sandboxMgr))
		toolsReg.Register(tools.NewSandboxedListFilesTool(workspace, agentCfg.RestrictToWorkspace, sandboxMgr))
		toolsReg.Register(tools.NewSandboxedEditTool(workspace, agentCfg.RestrictToWorkspace, sandboxMgr))
		toolsReg.Register(tools.NewSandboxedExecTool(workspace, agentCfg.RestrictToWorkspace, sandboxMgr))
	} else {
		toolsReg.Register(tools.NewReadFileTool(workspace, agentCfg.RestrictToWorkspace))
		toolsReg.Register(tools.NewWriteFileTool(workspace, agentCfg.RestrictToWorkspace))
		toolsReg.Register(tools.NewListFilesTool(workspace, agentCfg.RestrictToWorkspace))
		toolsReg.Register(tools.NewEditTool(workspace, agentCfg.RestrictToWorkspace))
		toolsReg.Register(tools.NewExecTool(workspace, agentCfg.RestrictToWorkspace))
	}

	// Browser automation tool
	var browserMgr *browser.Manager
	if cfg.Tools.Browser.Enabled {
		browserMgr = browser.New(
			browser.WithHeadless(cfg.Tools.Browser.Headless),
		)
		toolsReg.Register(browser.NewBrowserTool(browserMgr))
		defer browserMgr.Close()
		slog.Info("browser tool enabled", "headless", cfg.Tools.Browser.Headless)
	}

	// Web tools (web_search + web_fetch)
	webSearchTool := tools.NewWebSearchTool(tools.WebSearchConfig{
		BraveEnabled: cfg.Tools.Web.Brave.Enabled,
		BraveAPIKey:  cfg.Tools.Web.Brave.APIKey,
		DDGEnabled:   cfg.Tools.Web.DuckDuckGo.Enabled,
	})
	if webSearchTool != nil {
		toolsReg.Register(webSearchTool)
		slog.Info("web_search tool enabled")
	}
	webFetchTool := tools.NewWebFetchTool(tools.WebFetchConfig{})
	toolsReg.Register(webFetchTool)
	slog.Info("web_fetch tool enabled")

	// Vision fallback tool (for non-vision providers like MiniMax)
	toolsReg.Register(tools.NewReadImageTool(providerRegistry))
	toolsReg.Register(tools.NewCreateImageTool(providerRegistry))

	// TTS (text-to-speech) system
	ttsMgr := tools.NewTtsManager(cfg.Tts)
	if ttsMgr != nil {
		toolsReg.Register(tools.NewTtsTool(ttsMgr))
		slog.Info("tts enabled", "provider", ttsMgr.PrimaryProvider(), "auto", string(ttsMgr.AutoMode()))
	}

	// Tool rate limiting (per session, sliding window)
	if cfg.Tools.RateLimitPerHour > 0 {
		toolsReg.SetRateLimiter(tools.NewToolRateLimiter(cfg.Tools.RateLimitPerHour))
		slog.Info("tool rate limiting enabled", "per_hour", cfg.Tools.RateLimitPerHour)
	}

	// Credential scrubbing (enabled by default, can be disabled via config)
	if cfg.Tools.ScrubCredentials != nil && !*cfg.Tools.ScrubCredentials {
		toolsReg.SetScrubbing(false)
		slog.Info("credential scrubbing disabled")
	}

	// MCP servers (shared across all agents)
	var mcpMgr *mcpbridge.Manager
	if len(cfg.Tools.McpServers) > 0 {
		mcpMgr = mcpbridge.NewManager(toolsReg, mcpbridge.WithConfigs(cfg.Tools.McpServers))
		if err := mcpMgr.Start(context.Background()); err != nil {
			slog.Warn("mcp.startup_errors", "error", err)
		}
		defer mcpMgr.Stop()
		slog.Info("MCP servers initialized", "configured", len(cfg.Tools.McpServers), "tools", len(mcpMgr.ToolNames()))
	}

	// Subagent system
	subagentMgr := setupSubagents(providerRegistry, cfg, msgBus, toolsReg, workspace, sandboxMgr)
	if subagentMgr != nil {
		// Wire announce queue for batched subagent result delivery (matching TS debounce pattern)
		announceQueue := tools.NewAnnounceQueue(1000, 20,
			func(sessionKey string, items []tools.AnnounceQueueItem, meta tools.AnnounceMetadata) {
				remainingActive := subagentMgr.CountRunningForParent(meta.ParentAgent)
				content := tools.FormatBatchedAnnounce(items, remainingActive)
				senderID := fmt.Sprintf("subagent:batch-%d", len(items))
				label := items[0].Label
				if len(items) > 1 {
					label = fmt.Sprintf("%d tasks", len(items))
				}
				msgBus.PublishInbound(bus.InboundMessage{
					Channel:  "system",
					SenderID: senderID,
					ChatID:   meta.OriginChatID,
					Content:  content,
					UserID:   meta.OriginUserID,
					Metadata: map[string]string{
						"origin_channel":      meta.OriginChannel,
						"origin_peer_kind":    meta.OriginPeerKind,
						"parent_agent":        meta.ParentAgent,
						"subagent_label":      label,
						"origin_trace_id":     meta.OriginTraceID,
						"origin_root_span_id": meta.OriginRootSpanID,
					},
				})
			},
			func(parentID string) int {
				return subagentMgr.CountRunningForParent(parentID)
			},
		)
		subagentMgr.SetAnnounceQueue(announceQueue)

		toolsReg.Register(tools.NewSpawnTool(subagentMgr, "default", 0))
		toolsReg.Register(tools.NewSubagentTool(subagentMgr, "default", 0))
		slog.Info("subagent system enabled", "tools", []string{"spawn", "subagent"})
	}

	// Exec approval system — always active (deny patterns + safe bins + configurable ask mode)
	var execApprovalMgr *tools.ExecApprovalManager
	{
		approvalCfg := tools.DefaultExecApprovalConfig()
		// Override from user config (backward compat: explicit values take precedence)
		if eaCfg := cfg.Tools.ExecApproval; eaCfg.Security != "" {
			approvalCfg.Security = tools.ExecSecurity(eaCfg.Security)
		}
		if eaCfg := cfg.Tools.ExecApproval; eaCfg.Ask != "" {
			approvalCfg.Ask = tools.ExecAskMode(eaCfg.Ask)
		}
		if len(cfg.Tools.ExecApproval.Allowlist) > 0 {
			approvalCfg.Allowlist = cfg.Tools.ExecApproval.Allowlist
		}
		execApprovalMgr = tools.NewExecApprovalManager(approvalCfg)

		// Wire approval to exec tools in the registry
		if execTool, ok := toolsReg.Get("exec"); ok {
			if aa, ok := execTool.(tools.ApprovalAware); ok {
				aa.SetApprovalManager(execApprovalMgr, "default")
			}
		}
		slog.Info("exec approval enabled", "security", string(approvalCfg.Security), "ask", string(approvalCfg.Ask))
	}

	// --- Enforcement: Policy engines ---

	// Permission policy engine (role-based RPC access control)
	permPE := permissions.NewPolicyEngine(cfg.Gateway.OwnerIDs)

	// Tool policy engine (7-step tool filtering pipeline)
	toolPE := tools.NewPolicyEngine(&cfg.Tools)

	// Data directory for file-backed stores
	dataDir := os.Getenv("WAYFARER_DATA_DIR")
	if dataDir == "" {
		dataDir = config.ExpandHome("~/.wayfarer/data")
	}
	os.MkdirAll(dataDir, 0755)

	// File-based stores wrapping the sessions/cron/pairing packages.
	sessStore := file.NewFileSessionStore(sessions.NewManager(config.ExpandHome(cfg.Sessions.Storage)))
	var cronSvc *cron.Service
	if cfg.Cron.Backend == "sqlite" {
		dbPath := filepath.Join(dataDir, "cron", "jobs.db")
		svc, err := cron.NewSQLiteService(dbPath, nil)
		if err != nil {
			slog.Error("failed to open sqlite cron store, falling back to JSON file", "error", err)
			svc = cron.NewService(filepath.Join(dataDir, "cron", "jobs.json"), nil)
		}
		cronSvc = svc
	} else {
		cronSvc = cron.NewService(filepath.Join(dataDir, "cron", "jobs.json"), nil)
	}
	cronStore := file.NewFileCronStore(cronSvc)
	pairingStorePath := filepath.Join(dataDir, "pairing.json")
	pairingStore := file.NewFilePairingStore(pairing.NewService(pairingStorePath))

	// Wire cron retry config from config.json
	cronRetryCfg := cfg.Cron.ToRetryConfig()
	if svc, ok := cronStore.(interface{ SetRetryConfig(cron.RetryConfig) }); ok {
		svc.SetRetryConfig(cronRetryCfg)
	}

	// Load bootstrap files for default agent's system prompt from the workspace.
	rawFiles := bootstrap.LoadWorkspaceFiles(workspace)
	truncCfg := bootstrap.TruncateConfig{
		MaxCharsPerFile: agentCfg.BootstrapMaxChars,
		TotalMaxChars:   agentCfg.BootstrapTotalMaxChars,
	}
	if truncCfg.MaxCharsPerFile <= 0 {
		truncCfg.MaxCharsPerFile = bootstrap.DefaultMaxCharsPerFile
	}
	if truncCfg.TotalMaxChars <= 0 {
		truncCfg.TotalMaxChars = bootstrap.DefaultTotalMaxChars
	}
	contextFiles := bootstrap.BuildContextFiles(rawFiles, truncCfg)
	slog.Info("bootstrap loaded from filesystem", "count", len(contextFiles))

	// Debug: log bootstrap file loading results
	{
		var loadedNames []string
		for _, cf := range contextFiles {
			loadedNames = append(loadedNames, fmt.Sprintf("%s(%d)", cf.Path, len(cf.Content)))
		}
		slog.Info("bootstrap context files", "count", len(contextFiles), "files", loadedNames)
	}

	// Skills loader + search tool
	// Global skills live under ~/.wayfarer/skills/ (user-managed), not data/skills/.
	globalSkillsDir := os.Getenv("WAYFARER_SKILLS_DIR")
	if globalSkillsDir == "" {
		globalSkillsDir = filepath.Join(config.ExpandHome("~/.wayfarer"), "skills")
	}
	skillsLoader, err := skills.NewLoader(workspace, globalSkillsDir, "")
	if err != nil {
		slog.Error("failed to load skills", "error", err)
		os.Exit(1)
	}
	skillSearchTool := tools.NewSkillSearchTool(skillsLoader)
	toolsReg.Register(skillSearchTool)
	slog.Info("skill_search tool registered", "skills", len(skillsLoader.ListSkills()))

	if subagentMgr != nil {
		subagentMgr.SetSkillsLoader(skillsLoader)
	}

	// Cron tool (agent-facing, matching TS cron-tool.ts)
	toolsReg.Register(tools.NewCronTool(cronStore))
	slog.Info("cron tool registered")

	// Session tools (list, status, history, send)
	toolsReg.Register(tools.NewSessionsListTool())
	toolsReg.Register(tools.NewSessionStatusTool())
	toolsReg.Register(tools.NewSessionsHistoryTool())
	toolsReg.Register(tools.NewSessionsSendTool())

	// Message tool (send to channels)
	toolsReg.Register(tools.NewMessageTool())
	slog.Info("session + message tools registered")

	// Allow read_file to access skills directories (outside workspace).
	// Skills can live in ~/.wayfarer/skills/, ~/.agents/skills/, etc.
	homeDir, _ := os.UserHomeDir()
	if readTool, ok := toolsReg.Get("read_file"); ok {
		if pa, ok := readTool.(tools.PathAllowable); ok {
			pa.AllowPaths(globalSkillsDir)
			if homeDir != "" {
				pa.AllowPaths(filepath.Join(homeDir, ".agents", "skills"))
			}
		}
	}

	// Wire SessionStoreAware + BusAware on tools that need them
	for _, name := range []string{"sessions_list", "session_status", "sessions_history", "sessions_send"} {
		if t, ok := toolsReg.Get(name); ok {
			if sa, ok := t.(tools.SessionStoreAware); ok {
				sa.SetSessionStore(sessStore)
			}
			if ba, ok := t.(tools.BusAware); ok {
				ba.SetMessageBus(msgBus)
			}
		}
	}
	// Wire BusAware on message tool
	if t, ok := toolsReg.Get("message"); ok {
		if ba, ok := t.(tools.BusAware); ok {
			ba.SetMessageBus(msgBus)
		}
	}

	// Wire FileAgentStore + interceptors + callbacks. Must happen after tool
	// registration (wires interceptors to read_file, write_file, edit).
	fileAgentStore, ensureUserFiles, contextFileLoader, standaloneCleanup :=
		wireStandaloneExtras(cfg, toolsReg, dataDir, workspace)
	if standaloneCleanup != nil {
		defer standaloneCleanup()
	}

	// Create all agents eagerly from config.
	agentRouter := agent.NewRouter()

	if err := createAgentLoop("default", cfg, agentRouter, providerRegistry, msgBus, sessStore, toolsReg, toolPE, contextFiles, skillsLoader, false, sandboxMgr, fileAgentStore, ensureUserFiles, contextFileLoader); err != nil {
		slog.Error("failed to create default agent", "error", err)
		os.Exit(1)
	}

	for agentID := range cfg.Agents.List {
		if agentID == "default" {
			continue
		}
		if err := createAgentLoop(agentID, cfg, agentRouter, providerRegistry, msgBus, sessStore, toolsReg, toolPE, contextFiles, skillsLoader, false, sandboxMgr, fileAgentStore, ensureUserFiles, contextFileLoader); err != nil {
			slog.Error("failed to create agent", "agent", agentID, "error", err)
		}
	}

	// Create gateway server and wire enforcement
	server := gateway.NewServer(cfg, msgBus, agentRouter, sessStore, toolsReg)
	server.SetPolicyEngine(permPE)
	server.SetPairingService(pairingStore)
	if fileAgentStore != nil {
		server.SetAgentStore(fileAgentStore)
	}

	// SkillStore for RPC methods: file wrapper around the loaded skills.
	skillStore := file.NewFileSkillStore(skillsLoader)

	sched := scheduler.NewScheduler(
		scheduler.DefaultLanes(),
		scheduler.DefaultQueueConfig(),
		makeSchedulerRunFunc(agentRouter, cfg),
	)
	defer sched.Stop()

	// Register all RPC methods
	pairingMethods := registerAllMethods(server, agentRouter, sched, sessStore, cronStore, pairingStore, cfg, skillStore, execApprovalMgr)

	// Channel manager
	channelMgr := channels.NewManager(msgBus)

	// Wire channel sender on message tool (now that channelMgr exists)
	if t, ok := toolsReg.Get("message"); ok {
		if cs, ok := t.(tools.ChannelSenderAware); ok {
			cs.SetChannelSender(channelMgr.SendToChannel)
		}
	}

	// Register config-based channels.
	if cfg.Channels.Telegram.Enabled && cfg.Channels.Telegram.Token != "" {
		tg, err := telegram.New(cfg.Channels.Telegram, msgBus, pairingStore, nil, nil)
		if err != nil {
			slog.Error("failed to initialize telegram channel", "error", err)
		} else {
			channelMgr.RegisterChannel("telegram", tg)
			slog.Info("telegram channel enabled (config)")
		}
	}

	if cfg.Channels.Discord.Enabled && cfg.Channels.Discord.Token != "" {
		dc, err := discord.New(cfg.Channels.Discord, msgBus, nil)
		if err != nil {
			slog.Error("failed to initialize discord channel", "error", err)
		} else {
			channelMgr.RegisterChannel("discord", dc)
			slog.Info("discord channel enabled (config)")
		}
	}

	if cfg.Channels.WhatsApp.Enabled && cfg.Channels.WhatsApp.BridgeURL != "" {
		wa, err := whatsapp.New(cfg.Channels.WhatsApp, msgBus, nil)
		if err != nil {
			slog.Error("failed to initialize whatsapp channel", "error", err)
		} else {
			channelMgr.RegisterChannel("whatsapp", wa)
			slog.Info("whatsapp channel enabled (config)")
		}
	}

	if cfg.Channels.Zalo.Enabled && cfg.Channels.Zalo.Token != "" {
		z, err := zalo.New(cfg.Channels.Zalo, msgBus, pairingStore)
		if err != nil {
			slog.Error("failed to initialize zalo channel", "error", err)
		} else {
			channelMgr.RegisterChannel("zalo", z)
			slog.Info("zalo channel enabled (config)")
		}
	}

	if cfg.Channels.Feishu.Enabled && cfg.Channels.Feishu.AppID != "" {
		f, err := feishu.New(cfg.Channels.Feishu, msgBus, pairingStore)
		if err != nil {
			slog.Error("failed to initialize feishu channel", "error", err)
		} else {
			channelMgr.RegisterChannel("feishu", f)
			slog.Info("feishu/lark channel enabled (config)")
		}
	}

	// Register channels RPC methods (after channelMgr is initialized with all channels)
	registerChannelsMethods(server.Router(), channelMgr)

	// Wire pairing approval notification → channel (matching TS notifyPairingApproved).
	botName := cfg.ResolveDisplayName("default")
	pairingMethods.SetOnApprove(func(ctx context.Context, channel, chatID string) {
		msg := fmt.Sprintf("✅ %s access approved. Send a message to start chatting.", botName)
		if err := channelMgr.SendToChannel(ctx, channel, chatID, msg); err != nil {
			slog.Warn("failed to send pairing approval notification", "channel", channel, "chatID", chatID, "error", err)
		}
	})

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Skills directory watcher — auto-detect new/removed/modified skills at runtime.
	if skillsWatcher, err := skills.NewWatcher(skillsLoader); err != nil {
		slog.Warn("skills watcher unavailable", "error", err)
	} else {
		go func() {
			if err := skillsWatcher.Start(ctx); err != nil {
				slog.Warn("skills watcher stopped", "error", err)
			}
		}()
		defer skillsWatcher.Stop()
	}

	// Config file watcher — reload providers and agent loops without a
	// restart when config.json changes on disk.
	if cfgWatcher, err := config.NewWatcher(cfgPath, func(newCfg *config.Config) {
		registerProviders(providerRegistry, newCfg)
		agentRouter.InvalidateAll()
		if err := createAgentLoop("default", newCfg, agentRouter, providerRegistry, msgBus, sessStore, toolsReg, toolPE, contextFiles, skillsLoader, false, sandboxMgr, fileAgentStore, ensureUserFiles, contextFileLoader); err != nil {
			slog.Error("config reload: failed to recreate default agent", "error", err)
		}
		for agentID := range newCfg.Agents.List {
			if agentID == "default" {
				continue
			}
			if err := createAgentLoop(agentID, newCfg, agentRouter, providerRegistry, msgBus, sessStore, toolsReg, toolPE, contextFiles, skillsLoader, false, sandboxMgr, fileAgentStore, ensureUserFiles, contextFileLoader); err != nil {
				slog.Error("config reload: failed to recreate agent", "agent", agentID, "error", err)
			}
		}
		*cfg = *newCfg
	}); err != nil {
		slog.Warn("config watcher unavailable", "error", err)
	} else {
		go func() {
			if err := cfgWatcher.Start(ctx); err != nil {
				slog.Warn("config watcher stopped", "error", err)
			}
		}()
		defer cfgWatcher.Stop()
	}

	// Start channels
	if err := channelMgr.StartAll(ctx); err != nil {
		slog.Error("failed to start channels", "error", err)
	}

	// Start cron service with job handler — runs jobs through the same
	// lane-based queue as interactive turns.
	cronStore.SetOnJob(makeCronJobHandler(sched, msgBus, cfg))
	if err := cronStore.Start(); err != nil {
		slog.Warn("cron service failed to start", "error", err)
	}

	// Start heartbeat service (matching TS heartbeat-runner.ts).
	heartbeatSvc := setupHeartbeat(cfg, agentRouter, sessStore, msgBus, workspace)
	if heartbeatSvc != nil {
		heartbeatSvc.Start()
	}

	// Adaptive throttle: reduce per-session concurrency when nearing the summary threshold.
	// This prevents concurrent runs from racing with summarization.
	// Uses calibrated token estimation (actual prompt tokens from last LLM call)
	// and the agent's real context window (cached on session by the Loop).
	sched.SetTokenEstimateFunc(func(sessionKey string) (int, int) {
		history := sessStore.GetHistory(sessionKey)
		lastPT, lastMC := sessStore.GetLastPromptTokens(sessionKey)
		tokens := agent.EstimateTokensWithCalibration(history, lastPT, lastMC)
		cw := sessStore.GetContextWindow(sessionKey)
		if cw <= 0 {
			cw = 200000 // fallback for sessions not yet processed
		}
		return tokens, cw
	})

	// Subscribe to agent events for channel streaming/reaction forwarding.
	// Events emitted by agent loops are broadcast to the bus; we forward them
	// to the channel manager which routes to StreamingChannel/ReactionChannel.
	msgBus.Subscribe("channel-streaming", func(event bus.Event) {
		if event.Name != protocol.EventAgent {
			return
		}
		agentEvent, ok := event.Payload.(agent.AgentEvent)
		if !ok {
			return
		}
		channelMgr.HandleAgentEvent(agentEvent.Type, agentEvent.RunID, agentEvent.Payload)
	})

	// Start inbound message consumer (channel → scheduler → agent → channel)
	go consumeInboundMessages(ctx, msgBus, agentRouter, cfg, sched, channelMgr)

	go func() {
		sig := <-sigCh
		slog.Info("graceful shutdown initiated", "signal", sig)

		// Broadcast shutdown event
		server.BroadcastEvent(*protocol.NewEvent(protocol.EventShutdown, nil))

		// Stop channels, cron, and heartbeat
		channelMgr.StopAll(context.Background())
		cronStore.Stop()
		if heartbeatSvc != nil {
			heartbeatSvc.Stop()
		}

		// Stop sandbox pruning + release containers
		if sandboxMgr != nil {
			sandboxMgr.Stop()
			slog.Info("releasing sandbox containers...")
			sandboxMgr.ReleaseAll(context.Background())
		}

		cancel()
	}()

	slog.Info("wayfarer gateway starting",
		"version", Version,
		"protocol", protocol.ProtocolVersion,
		"mode", "standalone",
		"agents", agentRouter.List(),
		"tools", toolsReg.Count(),
		"channels", channelMgr.GetEnabledChannels(),
	)

	// Tailscale listener: build the mux first, then pass it to initTailscale
	// so the same routes are served on both the main listener and Tailscale.
	// Compiled via build tags: `go build -tags tsnet` to enable.
	mux := server.BuildMux()
	tsCleanup := initTailscale(ctx, cfg, mux)
	if tsCleanup != nil {
		defer tsCleanup()
	}

	// Suggest localhost binding when Tailscale is active
	if cfg.Tailscale.Hostname != "" && cfg.Gateway.Host == "0.0.0.0" {
		slog.Info("Tailscale enabled. Consider setting WAYFARER_HOST=127.0.0.1 for localhost-only + Tailscale access")
	}

	if err := server.Start(ctx); err != nil {
		slog.Error("gateway error", "error", err)
		os.Exit(1)
	}
}
