package automation

import (
	"context"
	"time"

	"campaign-automator-api/internal/domain"
	"campaign-automator-api/internal/store/execution"

	"github.com/google/uuid"
)

// RuleRepository loads candidate rules and owns their bookkeeping.
type RuleRepository interface {
	GetActiveRules(ctx context.Context) ([]domain.AutomationRule, error)
	GetActiveRulesForUser(ctx context.Context, userID uuid.UUID) ([]domain.AutomationRule, error)
	GetRuleByID(ctx context.Context, ruleID uuid.UUID) (domain.AutomationRule, error)
	ClaimExecution(ctx context.Context, ruleID uuid.UUID, at time.Time) (bool, error)
	ReleaseExecution(ctx context.Context, ruleID uuid.UUID, claimedAt time.Time, previous *time.Time) error
}

// CampaignRepository is what evaluators read and executors mutate.
type CampaignRepository interface {
	GetCampaign(ctx context.Context, campaignID, userID uuid.UUID) (domain.Campaign, error)
	ListCampaigns(ctx context.Context, userID uuid.UUID, scope domain.CampaignScope) ([]domain.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, campaignID, userID uuid.UUID, status domain.CampaignStatus) error
	UpdateCampaignBudget(ctx context.Context, campaignID, userID uuid.UUID, budgetTotal float64) error
}

// ExecutionRepository appends execution-log rows.
type ExecutionRepository interface {
	CreateExecution(ctx context.Context, arg execution.CreateExecutionParams) (domain.AutomationRuleExecution, error)
}

// Repository is everything the Runner needs; store.Storer satisfies it.
type Repository interface {
	RuleRepository
	CampaignRepository
	ExecutionRepository
}
