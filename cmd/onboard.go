package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/relaybridge/wayfarer/internal/config"
)

func onboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "onboard",
		Short: "Interactive first-time setup wizard",
		Run: func(cmd *cobra.Command, args []string) {
			runOnboard()
		},
	}
}

// runOnboard walks a first-time user through picking a provider, supplying an
// API key, and choosing a workspace directory, then writes config.json.
// Non-interactive environments (Docker, CI) should set WAYFARER_*_API_KEY
// instead — the gateway falls back to runAutoOnboard in that case and never
// reaches this wizard.
func runOnboard() {
	cfgPath := resolveConfigPath()
	cfg := config.Default()
	cfg.ApplyEnvOverrides()

	fmt.Println("Wayfarer setup wizard")
	fmt.Println("Pick a provider and paste its API key to get started.")
	fmt.Println()

	providerOptions := make([]huh.Option[string], 0, len(providerPriority))
	for _, name := range providerPriority {
		providerOptions = append(providerOptions, huh.NewOption(name, name))
	}

	provider := cfg.Agents.Defaults.Provider
	if provider == "" {
		provider = providerPriority[0]
	}
	workspace := cfg.Agents.Defaults.Workspace
	var apiKey string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("AI provider").
				Options(providerOptions...).
				Value(&provider),
			huh.NewInput().
				Title("API key").
				EchoMode(huh.EchoModePassword).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("an API key is required")
					}
					return nil
				}).
				Value(&apiKey),
			huh.NewInput().
				Title("Workspace directory").
				Placeholder(workspace).
				Value(&workspace),
		),
	)

	if err := form.Run(); err != nil {
		fmt.Println("Setup cancelled.")
		return
	}

	cfg.Agents.Defaults.Provider = provider
	if workspace != "" {
		cfg.Agents.Defaults.Workspace = workspace
	}
	if pi, ok := providerMap[provider]; ok && pi.modelHint != "" {
		cfg.Agents.Defaults.Model = pi.modelHint
	}

	setProviderAPIKey(cfg, provider, apiKey)
	if pi, ok := providerMap[provider]; ok && pi.envKey != "" {
		os.Setenv(pi.envKey, apiKey)
	}

	if cfg.Gateway.Token == "" {
		cfg.Gateway.Token = onboardGenerateToken(16)
		slog.Info("onboard: generated gateway token")
	}

	fmt.Println()
	fmt.Println("Verifying provider connectivity...")
	if fatalErrors := verifyAllProviders(cfg, provider); len(fatalErrors) > 0 {
		fmt.Println("Provider verification failed:")
		for _, e := range fatalErrors {
			fmt.Printf("  - %s\n", e)
		}
		os.Exit(1)
	}

	if err := saveCleanConfig(cfgPath, cfg); err != nil {
		slog.Error("onboard: failed to save config", "error", err)
		fmt.Printf("  Warning: could not save config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Config saved to %s\n", cfgPath)
	fmt.Println()
	fmt.Println("Run the gateway to start chatting.")
}
