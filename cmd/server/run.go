package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"campaign-automator-api/internal/automation"
	"campaign-automator-api/internal/database"
	"campaign-automator-api/internal/metrics"
	"campaign-automator-api/internal/store"
	"campaign-automator-api/internal/worker"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one automation batch and print the result as JSON",
	Long: `run processes a single batch, for use from an external scheduler such as cron.
It exits non-zero only when the candidate rules cannot be loaded.`,
	RunE: runOnce,
}

var (
	runMode   string
	runUserID string
	runRuleID string
)

func init() {
	runCmd.Flags().StringVar(&runMode, "mode", string(automation.ModeCheckAll), "check_all, check_user or check_rule")
	runCmd.Flags().StringVar(&runUserID, "user", "", "User ID for check_user")
	runCmd.Flags().StringVar(&runRuleID, "rule", "", "Rule ID for check_rule")
}

func runOnce(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(runMode, runUserID, runRuleID)
	if err != nil {
		return err
	}

	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer log.Sync()

	pool, err := database.ConnectDB(cmd.Context(), cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()

	sink, closeSink, err := buildSink(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer closeSink()

	runner := newRunner(cfg, store.NewStore(pool), sink, metrics.New(), log)
	return executeBatch(cmd.Context(), runner, req, cmd.OutOrStdout())
}

func buildRequest(mode, userID, ruleID string) (automation.Request, error) {
	req := automation.Request{Mode: automation.Mode(mode)}
	if userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			return req, fmt.Errorf("invalid --user: %w", err)
		}
		req.UserID = &id
	}
	if ruleID != "" {
		id, err := uuid.Parse(ruleID)
		if err != nil {
			return req, fmt.Errorf("invalid --rule: %w", err)
		}
		req.RuleID = &id
	}
	return req.Normalize()
}

// executeBatch prints the same envelope the HTTP endpoint returns.
func executeBatch(ctx context.Context, runner worker.BatchRunner, req automation.Request, out io.Writer) error {
	result, err := runner.Run(ctx, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"success": true, "results": result})
}
