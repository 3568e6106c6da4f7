// File: cmd/run.go
package cmd

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/d3vnull/restitch/api/schemas"
	"github.com/d3vnull/restitch/internal/browser"
	"github.com/d3vnull/restitch/internal/engine"
	"github.com/d3vnull/restitch/internal/observability"
	"github.com/d3vnull/restitch/internal/vision"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	runURL      string
	runPlanPath string
	runHeal     bool
	runStopErr  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute an action plan against a page, healing broken targets.",
	Long: `Run loads a JSON action plan, opens the target page and executes the
actions in order with retries. With healing enabled, actions that fail
because their target vanished are re-resolved against the live DOM and,
when a vision provider is configured, against a screenshot.`,
	RunE: runPlan,
}

func init() {
	runCmd.Flags().StringVarP(&runURL, "url", "u", "", "page to open before executing the plan (required)")
	runCmd.Flags().StringVarP(&runPlanPath, "plan", "p", "", "path to the JSON action plan (required)")
	runCmd.Flags().BoolVar(&runHeal, "heal", true, "attempt target recovery when an action fails")
	runCmd.Flags().BoolVar(&runStopErr, "stop-on-error", true, "halt the plan at the first failed action")
	_ = runCmd.MarkFlagRequired("url")
	_ = runCmd.MarkFlagRequired("plan")
	rootCmd.AddCommand(runCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	logger := observability.GetLogger()
	ctx := cmd.Context()

	plan, err := loadPlan(runPlanPath)
	if err != nil {
		return err
	}
	if len(plan) == 0 {
		return fmt.Errorf("plan %q contains no actions", runPlanPath)
	}

	session, err := browser.NewSession(ctx, cfg.Browser, logger)
	if err != nil {
		return fmt.Errorf("failed to start browser session: %w", err)
	}
	defer session.Close()

	if err := session.Navigate(ctx, runURL); err != nil {
		return fmt.Errorf("initial navigation failed: %w", err)
	}

	dispatcher := engine.NewDispatcher(session, logger)
	executor := engine.NewExecutor(dispatcher, cfg.Engine.RetryConfig(), logger)
	resolver := engine.NewResolver(session, dispatcher, executor, logger)

	// Vision is optional: without a provider, recovery stops at DOM healing.
	var visionClient schemas.VisionClient
	if cfg.Vision.Provider != "" {
		visionClient, err = vision.NewClient(cfg.Vision, logger)
		if err != nil {
			return fmt.Errorf("failed to create vision client: %w", err)
		}
	}

	stopOnError := cfg.Engine.StopOnError
	if cmd.Flags().Changed("stop-on-error") {
		stopOnError = runStopErr
	}

	results := make([]schemas.ActionResult, 0, len(plan))
	for i, action := range plan {
		result := executor.ExecuteAction(ctx, action)
		if !result.Success && runHeal && recoverable(action, result) {
			logger.Info("Action failed, attempting recovery",
				zap.Int("index", i),
				zap.String("kind", string(action.Kind)),
				zap.String("error", result.Error))
			result = resolver.RecoverAction(ctx, action, visionClient)
		}
		results = append(results, result)
		if !result.Success && stopOnError {
			logger.Warn("Plan halted on failure",
				zap.Int("index", i),
				zap.String("error", result.Error))
			break
		}
	}

	if err := emitJSON(results); err != nil {
		return err
	}
	for _, r := range results {
		if !r.Success {
			return fmt.Errorf("plan finished with failures")
		}
	}
	return nil
}

// recoverable reports whether a failure is worth a healing pass: missing
// targets and description targets, not contract violations or timeouts.
func recoverable(action schemas.Action, result schemas.ActionResult) bool {
	if action.Target == nil {
		return false
	}
	switch engine.Classify(result.Error) {
	case engine.KindTargetMissing, engine.KindNeedsResolution:
		return true
	default:
		return false
	}
}

// loadPlan reads and decodes a JSON action plan from disk.
func loadPlan(path string) ([]schemas.Action, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan: %w", err)
	}
	var plan []schemas.Action
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("failed to parse plan %q: %w", path, err)
	}
	for i, action := range plan {
		if err := action.Validate(); err != nil {
			return nil, fmt.Errorf("plan action %d invalid: %w", i, err)
		}
	}
	return plan, nil
}

// emitJSON pretty prints a value to stdout for piping into other tooling.
func emitJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
