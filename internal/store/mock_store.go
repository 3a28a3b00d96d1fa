package store

import (
	"context"
	"time"

	"campaign-automator-api/internal/domain"
	"campaign-automator-api/internal/store/execution"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of the Storer interface for testing
type MockStore struct {
	mock.Mock
}

// GetActiveRules mocks the GetActiveRules method
func (m *MockStore) GetActiveRules(ctx context.Context) ([]domain.AutomationRule, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.AutomationRule), args.Error(1)
}

// GetActiveRulesForUser mocks the GetActiveRulesForUser method
func (m *MockStore) GetActiveRulesForUser(ctx context.Context, userID uuid.UUID) ([]domain.AutomationRule, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.AutomationRule), args.Error(1)
}

// GetRuleByID mocks the GetRuleByID method
func (m *MockStore) GetRuleByID(ctx context.Context, ruleID uuid.UUID) (domain.AutomationRule, error) {
	args := m.Called(ctx, ruleID)
	return args.Get(0).(domain.AutomationRule), args.Error(1)
}

// ClaimExecution mocks the ClaimExecution method
func (m *MockStore) ClaimExecution(ctx context.Context, ruleID uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, ruleID, at)
	return args.Bool(0), args.Error(1)
}

// ReleaseExecution mocks the ReleaseExecution method
func (m *MockStore) ReleaseExecution(ctx context.Context, ruleID uuid.UUID, claimedAt time.Time, previous *time.Time) error {
	args := m.Called(ctx, ruleID, claimedAt, previous)
	return args.Error(0)
}

// VerifyRuleOwnership mocks the VerifyRuleOwnership method
func (m *MockStore) VerifyRuleOwnership(ctx context.Context, ruleID uuid.UUID, userID uuid.UUID) error {
	args := m.Called(ctx, ruleID, userID)
	return args.Error(0)
}

// GetCampaign mocks the GetCampaign method
func (m *MockStore) GetCampaign(ctx context.Context, campaignID, userID uuid.UUID) (domain.Campaign, error) {
	args := m.Called(ctx, campaignID, userID)
	return args.Get(0).(domain.Campaign), args.Error(1)
}

// ListCampaigns mocks the ListCampaigns method
func (m *MockStore) ListCampaigns(ctx context.Context, userID uuid.UUID, scope domain.CampaignScope) ([]domain.Campaign, error) {
	args := m.Called(ctx, userID, scope)
	return args.Get(0).([]domain.Campaign), args.Error(1)
}

// UpdateCampaignStatus mocks the UpdateCampaignStatus method
func (m *MockStore) UpdateCampaignStatus(ctx context.Context, campaignID, userID uuid.UUID, status domain.CampaignStatus) error {
	args := m.Called(ctx, campaignID, userID, status)
	return args.Error(0)
}

// UpdateCampaignBudget mocks the UpdateCampaignBudget method
func (m *MockStore) UpdateCampaignBudget(ctx context.Context, campaignID, userID uuid.UUID, budgetTotal float64) error {
	args := m.Called(ctx, campaignID, userID, budgetTotal)
	return args.Error(0)
}

// CreateExecution mocks the CreateExecution method
func (m *MockStore) CreateExecution(ctx context.Context, arg execution.CreateExecutionParams) (domain.AutomationRuleExecution, error) {
	args := m.Called(ctx, arg)
	return args.Get(0).(domain.AutomationRuleExecution), args.Error(1)
}

// GetExecutionsForRule mocks the GetExecutionsForRule method
func (m *MockStore) GetExecutionsForRule(ctx context.Context, ruleID uuid.UUID, limit int) ([]domain.AutomationRuleExecution, error) {
	args := m.Called(ctx, ruleID, limit)
	return args.Get(0).([]domain.AutomationRuleExecution), args.Error(1)
}
