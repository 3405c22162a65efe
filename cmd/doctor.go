package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pinforge/actionpin/config"
	"github.com/pinforge/actionpin/infrastructure/pinner/ratchet"
)

//nolint:gochecknoglobals // required by cobra CLI pattern
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment actionpin needs to run",
	Long: `Verify the pieces a run depends on: the config file, the configured
provider, an auth token, and the pinning tool on PATH. Nothing is cloned
and nothing is written.`,
	RunE: runDoctor,
}

//nolint:gochecknoinits // required by cobra CLI pattern
func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	fmt.Println("🔍 Checking actionpin environment...")
	fmt.Println()

	problems := 0
	cfg := config.Default()

	// Config file
	cfgPath := configPath
	if cfgPath == "" {
		if found, err := config.FindConfigFile(); err == nil {
			cfgPath = found
		}
	}
	if cfgPath != "" {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			fmt.Printf("🔴 Config file: %v\n", err)
			problems++
		} else {
			fmt.Printf("✅ Config file: %s\n", cfgPath)
			cfg = loaded
		}
	} else {
		fmt.Println("🟡 Config file: not found (flags and defaults only)")
	}

	// Provider
	registry := buildProviderRegistry()
	if _, err := registry.Get(cfg.Provider.Type, ""); err != nil {
		fmt.Printf("🔴 Provider: %v\n", err)
		problems++
	} else {
		fmt.Printf("✅ Provider: %s\n", cfg.Provider.Type)
	}

	// Token
	token := cfg.Provider.Token
	if tokenFlag != "" {
		token = tokenFlag
	}
	if token == "" {
		token = resolveTokenFromEnv(cfg.Provider.Type)
	}
	if token == "" {
		fmt.Printf("🔴 Token: not found (set --token or %s)\n", tokenEnvHint(cfg.Provider.Type))
		problems++
	} else {
		fmt.Println("✅ Token: present")
	}

	// Pinning tool
	pinner := ratchet.New(cfg.Pinner.Binary, false)
	version, err := pinner.Version(ctx)
	if err != nil {
		fmt.Printf("🔴 Pinning tool: %v\n", err)
		problems++
	} else {
		fmt.Printf("✅ Pinning tool: %s %s\n", cfg.Pinner.Binary, version)
	}

	fmt.Println()
	if problems > 0 {
		return fmt.Errorf("%d problem(s) found", problems)
	}

	fmt.Println("🏁 Everything looks good")
	return nil
}
