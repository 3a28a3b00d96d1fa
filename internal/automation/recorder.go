package automation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campaign-automator-api/internal/domain"
	"campaign-automator-api/internal/store/execution"

	"go.uber.org/zap"
)

// Recorder writes execution-log rows for attempts that reached evaluation.
type Recorder struct {
	executions ExecutionRepository
	log        *zap.Logger
}

func NewRecorder(executions ExecutionRepository, log *zap.Logger) *Recorder {
	return &Recorder{executions: executions, log: log}
}

// RecordSuccess logs a successful action.
func (r *Recorder) RecordSuccess(ctx context.Context, rule domain.AutomationRule, tc *domain.TriggerContext, result domain.ActionResult, took time.Duration) error {
	actionJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal action result: %w", err)
	}
	return r.write(ctx, execution.CreateExecutionParams{
		RuleID:          rule.ID,
		UserID:          rule.UserID,
		Status:          domain.ExecutionSuccess,
		TriggerData:     triggerJSON(tc),
		ActionResult:    actionJSON,
		ExecutionTimeMs: took.Milliseconds(),
	})
}

// RecordFailure logs a failed evaluation or action. The action result stays null.
func (r *Recorder) RecordFailure(ctx context.Context, rule domain.AutomationRule, tc *domain.TriggerContext, cause error, took time.Duration) error {
	msg := cause.Error()
	return r.write(ctx, execution.CreateExecutionParams{
		RuleID:          rule.ID,
		UserID:          rule.UserID,
		Status:          domain.ExecutionFailed,
		TriggerData:     triggerJSON(tc),
		ExecutionTimeMs: took.Milliseconds(),
		ErrorMessage:    &msg,
	})
}

func (r *Recorder) write(ctx context.Context, params execution.CreateExecutionParams) error {
	if _, err := r.executions.CreateExecution(ctx, params); err != nil {
		r.log.Error("could not write execution log",
			zap.String("rule_id", params.RuleID.String()),
			zap.String("status", string(params.Status)),
			zap.Error(err),
		)
		return fmt.Errorf("write execution log: %w", err)
	}
	return nil
}

func triggerJSON(tc *domain.TriggerContext) json.RawMessage {
	if tc == nil {
		return nil
	}
	b, err := json.Marshal(tc)
	if err != nil {
		return nil
	}
	return b
}
