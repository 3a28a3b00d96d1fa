package execution

import (
	"context"
	"encoding/json"
	"fmt"

	"campaign-automator-api/internal/database"
	"campaign-automator-api/internal/domain"

	"github.com/google/uuid"
)

// DefaultHistoryLimit caps GetExecutionsForRule when the caller passes no limit.
const DefaultHistoryLimit = 50

// CreateExecutionParams holds one audit row to append.
type CreateExecutionParams struct {
	RuleID          uuid.UUID
	UserID          uuid.UUID
	Status          domain.ExecutionStatus
	TriggerData     json.RawMessage
	ActionResult    json.RawMessage
	ExecutionTimeMs int64
	ErrorMessage    *string
}

// ExecutionStorer defines the execution history operations.
type ExecutionStorer interface {
	CreateExecution(ctx context.Context, arg CreateExecutionParams) (domain.AutomationRuleExecution, error)
	GetExecutionsForRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.AutomationRuleExecution, error)
}

// ExecutionStore handles execution-history database operations
type ExecutionStore struct {
	db database.Querier
}

// NewExecutionStore creates a new ExecutionStore
func NewExecutionStore(db database.Querier) *ExecutionStore {
	return &ExecutionStore{db: db}
}

// CreateExecution inserts a new audit row.
func (s *ExecutionStore) CreateExecution(ctx context.Context, arg CreateExecutionParams) (domain.AutomationRuleExecution, error) {
	query := `
    INSERT INTO automation_rule_executions
        (rule_id, user_id, status, trigger_data, action_result, execution_time_ms, error_message)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING id, rule_id, user_id, status, trigger_data, action_result, execution_time_ms, error_message, created_at;
    `
	row := s.db.QueryRow(ctx, query,
		arg.RuleID,
		arg.UserID,
		string(arg.Status),
		arg.TriggerData,
		arg.ActionResult,
		arg.ExecutionTimeMs,
		arg.ErrorMessage,
	)

	var exec domain.AutomationRuleExecution
	err := row.Scan(
		&exec.ID,
		&exec.RuleID,
		&exec.UserID,
		&exec.Status,
		&exec.TriggerData,
		&exec.ActionResult,
		&exec.ExecutionTimeMs,
		&exec.ErrorMessage,
		&exec.CreatedAt,
	)
	if err != nil {
		return domain.AutomationRuleExecution{}, fmt.Errorf("db scan error: %w", err)
	}
	return exec, nil
}

// GetExecutionsForRule returns the newest executions of a rule first.
func (s *ExecutionStore) GetExecutionsForRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.AutomationRuleExecution, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `
    SELECT id, rule_id, user_id, status, trigger_data, action_result, execution_time_ms, error_message, created_at
    FROM automation_rule_executions
    WHERE rule_id = $1
    ORDER BY created_at DESC
    LIMIT $2;
    `
	rows, err := s.db.Query(ctx, query, ruleID, limit)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var executions []domain.AutomationRuleExecution
	for rows.Next() {
		var exec domain.AutomationRuleExecution
		if err := rows.Scan(
			&exec.ID,
			&exec.RuleID,
			&exec.UserID,
			&exec.Status,
			&exec.TriggerData,
			&exec.ActionResult,
			&exec.ExecutionTimeMs,
			&exec.ErrorMessage,
			&exec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		executions = append(executions, exec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}

	return executions, nil
}
