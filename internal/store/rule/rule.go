package rule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campaign-automator-api/internal/database"
	"campaign-automator-api/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RuleStorer is the rule half of the storage layer the engine needs.
type RuleStorer interface {
	GetActiveRules(ctx context.Context) ([]domain.AutomationRule, error)
	GetActiveRulesForUser(ctx context.Context, userID uuid.UUID) ([]domain.AutomationRule, error)
	GetRuleByID(ctx context.Context, ruleID uuid.UUID) (domain.AutomationRule, error)
	ClaimExecution(ctx context.Context, ruleID uuid.UUID, at time.Time) (bool, error)
	ReleaseExecution(ctx context.Context, ruleID uuid.UUID, claimedAt time.Time, previous *time.Time) error
	VerifyRuleOwnership(ctx context.Context, ruleID uuid.UUID, userID uuid.UUID) error
}

// RuleStore handles rule-related database operations
type RuleStore struct {
	db database.Querier
}

// NewRuleStore creates a new RuleStore
func NewRuleStore(db database.Querier) *RuleStore {
	return &RuleStore{db: db}
}

const ruleColumns = `id, user_id, name, description, is_active, trigger_config, action_config,
           execution_count, last_executed_at, cooldown_minutes, max_executions, created_at, updated_at`

// scanRule scans a database row into an AutomationRule
func scanRule(row pgx.Row) (domain.AutomationRule, error) {
	var rule domain.AutomationRule
	err := row.Scan(
		&rule.ID,
		&rule.UserID,
		&rule.Name,
		&rule.Description,
		&rule.IsActive,
		&rule.Trigger,
		&rule.Action,
		&rule.ExecutionCount,
		&rule.LastExecutedAt,
		&rule.CooldownMinutes,
		&rule.MaxExecutions,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	return rule, err
}

func (s *RuleStore) queryRules(ctx context.Context, query string, args ...any) ([]domain.AutomationRule, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db query error: %w", err)
	}
	defer rows.Close()

	var rules []domain.AutomationRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("db row scan error: %w", err)
		}
		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db rows error: %w", err)
	}

	return rules, nil
}

// GetActiveRules returns every active rule, least recently executed first so
// starved rules get picked up before the batch runs out of time.
func (s *RuleStore) GetActiveRules(ctx context.Context) ([]domain.AutomationRule, error) {
	query := `
    SELECT ` + ruleColumns + `
    FROM automation_rules
    WHERE is_active = true
    ORDER BY last_executed_at ASC NULLS FIRST, created_at ASC;
    `
	return s.queryRules(ctx, query)
}

// GetActiveRulesForUser ...
func (s *RuleStore) GetActiveRulesForUser(ctx context.Context, userID uuid.UUID) ([]domain.AutomationRule, error) {
	query := `
    SELECT ` + ruleColumns + `
    FROM automation_rules
    WHERE user_id = $1 AND is_active = true
    ORDER BY last_executed_at ASC NULLS FIRST, created_at ASC;
    `
	return s.queryRules(ctx, query, userID)
}

// GetRuleByID ...
func (s *RuleStore) GetRuleByID(ctx context.Context, ruleID uuid.UUID) (domain.AutomationRule, error) {
	query := `
    SELECT ` + ruleColumns + `
    FROM automation_rules
    WHERE id = $1;
    `
	rule, err := scanRule(s.db.QueryRow(ctx, query, ruleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.AutomationRule{}, domain.ErrRuleNotFound
		}
		return domain.AutomationRule{}, fmt.Errorf("db scan error: %w", err)
	}
	return rule, nil
}

// ClaimExecution consumes one execution slot for the rule in a single
// conditional update. It reports false when the cap is reached or the rule
// is still cooling down, which is how two overlapping batches are kept from
// both executing the same rule.
func (s *RuleStore) ClaimExecution(ctx context.Context, ruleID uuid.UUID, at time.Time) (bool, error) {
	query := `
    UPDATE automation_rules
    SET execution_count = execution_count + 1,
        last_executed_at = $2::timestamptz,
        updated_at = now()
    WHERE id = $1
      AND is_active = true
      AND (max_executions IS NULL OR execution_count < max_executions)
      AND (last_executed_at IS NULL OR last_executed_at <= $2::timestamptz - make_interval(mins => cooldown_minutes));
    `
	cmdTag, err := s.db.Exec(ctx, query, ruleID, dbTime(at))
	if err != nil {
		return false, fmt.Errorf("db exec error: %w", err)
	}
	return cmdTag.RowsAffected() == 1, nil
}

// ReleaseExecution undoes a claim made at claimedAt, restoring the previous
// last_executed_at. It is a no-op when another run has claimed the rule since.
func (s *RuleStore) ReleaseExecution(ctx context.Context, ruleID uuid.UUID, claimedAt time.Time, previous *time.Time) error {
	query := `
    UPDATE automation_rules
    SET execution_count = execution_count - 1,
        last_executed_at = $3::timestamptz,
        updated_at = now()
    WHERE id = $1 AND last_executed_at = $2::timestamptz AND execution_count > 0;
    `
	if _, err := s.db.Exec(ctx, query, ruleID, dbTime(claimedAt), previous); err != nil {
		return fmt.Errorf("db exec error: %w", err)
	}
	return nil
}

// VerifyRuleOwnership controleert of een gebruiker de eigenaar is van de regel.
func (s *RuleStore) VerifyRuleOwnership(ctx context.Context, ruleID uuid.UUID, userID uuid.UUID) error {
	query := `
	   SELECT 1
	   FROM automation_rules
	   WHERE id = $1 AND user_id = $2
	   LIMIT 1;
	   `
	var exists int
	err := s.db.QueryRow(ctx, query, ruleID, userID).Scan(&exists)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrForbidden
		}
		return fmt.Errorf("db query error: %w", err)
	}

	return nil
}

// dbTime truncates to Postgres' microsecond precision so a claimed timestamp
// can be matched again by ReleaseExecution.
func dbTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
