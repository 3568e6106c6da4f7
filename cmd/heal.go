// File: cmd/heal.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/d3vnull/restitch/internal/browser"
	"github.com/d3vnull/restitch/internal/engine"
	"github.com/d3vnull/restitch/internal/observability"
)

var (
	healURL      string
	healSelector string
)

var healCmd = &cobra.Command{
	Use:   "heal",
	Short: "Check whether a selector still resolves and suggest a replacement.",
	Long: `Heal opens the page and probes the given CSS selector. When the
selector no longer matches anything, the page is snapshotted and the
healing strategies propose the most likely replacement.`,
	RunE: healSelectorRun,
}

func init() {
	healCmd.Flags().StringVarP(&healURL, "url", "u", "", "page to open (required)")
	healCmd.Flags().StringVarP(&healSelector, "selector", "s", "", "CSS selector to probe (required)")
	_ = healCmd.MarkFlagRequired("url")
	_ = healCmd.MarkFlagRequired("selector")
	rootCmd.AddCommand(healCmd)
}

func healSelectorRun(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()
	ctx := cmd.Context()

	session, err := browser.NewSession(ctx, cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, healURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	dispatcher := engine.NewDispatcher(session, logger)
	executor := engine.NewExecutor(dispatcher, cfg.Engine.RetryConfig(), logger)
	resolver := engine.NewResolver(session, dispatcher, executor, logger)

	report := resolver.DetectUIChange(ctx, healSelector)
	return emitJSON(report)
}
