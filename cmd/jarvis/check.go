package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/access"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/config"
	"github.com/criticalcoder-ai/jarvis-voice-ai-agent/internal/tier"
)

var (
	checkUserID string
	checkTier   string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check admission decisions interactively",
	Long:  `Check what admission decision Jarvis would make for a user without starting a session.`,
}

var checkAccessCmd = &cobra.Command{
	Use:   "access [flags]",
	Short: "Check session admission for a user",
	Long:  `Check whether a user could start a voice session right now, and show their current usage.`,
	Example: `  jarvis -c config.yaml check access --user guest_1a2b3c4d
  jarvis check access --user user-42 --tier free`,
	RunE: runCheckAccess,
}

func init() {
	checkAccessCmd.Flags().StringVar(&checkUserID, "user", "", "User ID to check (required)")
	checkAccessCmd.Flags().StringVar(&checkTier, "tier", "guest", "Tier to evaluate the user against")
	checkAccessCmd.MarkFlagRequired("user")

	checkCmd.AddCommand(checkAccessCmd)
	rootCmd.AddCommand(checkCmd)
}

func runCheckAccess(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create a quiet logger for check mode
	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	store, err := openStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	catalog := tier.NewCatalog()
	limits, err := catalog.Lookup(checkTier)
	if err != nil {
		return fmt.Errorf("unknown tier: %s", checkTier)
	}

	engine := access.NewEngine(catalog, store.Sessions(), store.Usage(), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := engine.CheckPermission(ctx, checkUserID, checkTier)
	if err != nil {
		return fmt.Errorf("permission check failed: %w", err)
	}

	active, err := engine.ActiveSessions(ctx, checkUserID)
	if err != nil {
		return fmt.Errorf("failed to count active sessions: %w", err)
	}

	today := time.Now().UTC().Format("2006-01-02")
	used, err := store.Usage().GetDailyUsage(ctx, checkUserID, today)
	if err != nil {
		return fmt.Errorf("failed to read daily usage: %w", err)
	}

	printAccessResult(checkUserID, limits, active, used, result)
	return nil
}

// printAccessResult prints the admission check result with colors
func printAccessResult(userID string, limits tier.Limits, active int, usedMinutes int64, result access.AccessResult) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("SESSION ADMISSION CHECK")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("User:       %s\n", userID)
	fmt.Printf("Tier:       %s\n", limits.Name)
	fmt.Printf("Sessions:   %d active (limit %d)\n", active, limits.ConcurrentSessions)
	if limits.DailyLimitMinutes != nil {
		fmt.Printf("Usage:      %d of %d minutes today (UTC)\n", usedMinutes, *limits.DailyLimitMinutes)
	} else {
		fmt.Printf("Usage:      %d minutes today (UTC, unlimited)\n", usedMinutes)
	}
	fmt.Println()

	cyan.Print("Decision:   ")
	if result.Allowed {
		green.Println("ALLOWED")
		fmt.Println("            → A new session would be admitted")
	} else {
		red.Println("DENIED")
		fmt.Printf("            → Reason: %s\n", result.Reason)
		fmt.Printf("            → Suggested action: %s\n", result.Action)
	}
	fmt.Println()
}
