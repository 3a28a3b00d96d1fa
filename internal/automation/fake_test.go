package automation

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"campaign-automator-api/internal/domain"
	"campaign-automator-api/internal/notify"
	"campaign-automator-api/internal/store/execution"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory Repository with the same claim semantics as the SQL store.
type fakeRepo struct {
	mu sync.Mutex

	rules     []*domain.AutomationRule
	campaigns []*domain.Campaign
	logs      []execution.CreateExecutionParams

	loadErr      error
	updateErr    error
	claimRefused bool
	claims       int
	releases     int

	// beforeClaim runs under the lock, to change a rule between snapshot and claim.
	beforeClaim func(*domain.AutomationRule)
	// createPanic makes the next CreateExecution panic with this value.
	createPanic any
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{}
}

func (f *fakeRepo) addCampaign(c domain.Campaign) *domain.Campaign {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = domain.CampaignActive
	}
	f.campaigns = append(f.campaigns, &c)
	return &c
}

func (f *fakeRepo) addRule(rule domain.AutomationRule) *domain.AutomationRule {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	rule.IsActive = true
	f.rules = append(f.rules, &rule)
	return &rule
}

func (f *fakeRepo) rule(id uuid.UUID) domain.AutomationRule {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rules {
		if r.ID == id {
			return *r
		}
	}
	return domain.AutomationRule{}
}

func (f *fakeRepo) campaign(id uuid.UUID) domain.Campaign {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.campaigns {
		if c.ID == id {
			return *c
		}
	}
	return domain.Campaign{}
}

func (f *fakeRepo) executionLogs() []execution.CreateExecutionParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]execution.CreateExecutionParams(nil), f.logs...)
}

func (f *fakeRepo) GetActiveRules(_ context.Context) ([]domain.AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	var out []domain.AutomationRule
	for _, r := range f.rules {
		if r.IsActive {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetActiveRulesForUser(_ context.Context, userID uuid.UUID) ([]domain.AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	var out []domain.AutomationRule
	for _, r := range f.rules {
		if r.IsActive && r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetRuleByID(_ context.Context, ruleID uuid.UUID) (domain.AutomationRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return domain.AutomationRule{}, f.loadErr
	}
	for _, r := range f.rules {
		if r.ID == ruleID {
			return *r, nil
		}
	}
	return domain.AutomationRule{}, domain.ErrRuleNotFound
}

func (f *fakeRepo) ClaimExecution(_ context.Context, ruleID uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimRefused {
		return false, nil
	}
	for _, r := range f.rules {
		if r.ID == ruleID && f.beforeClaim != nil {
			f.beforeClaim(r)
		}
		if r.ID != ruleID || !r.IsActive {
			continue
		}
		if r.MaxExecutions != nil && r.ExecutionCount >= *r.MaxExecutions {
			return false, nil
		}
		if r.LastExecutedAt != nil && at.Sub(*r.LastExecutedAt) < time.Duration(r.CooldownMinutes)*time.Minute {
			return false, nil
		}
		r.ExecutionCount++
		t := at
		r.LastExecutedAt = &t
		f.claims++
		return true, nil
	}
	return false, nil
}

func (f *fakeRepo) ReleaseExecution(_ context.Context, ruleID uuid.UUID, claimedAt time.Time, previous *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rules {
		if r.ID == ruleID && r.LastExecutedAt != nil && r.LastExecutedAt.Equal(claimedAt) && r.ExecutionCount > 0 {
			r.ExecutionCount--
			r.LastExecutedAt = previous
			f.releases++
		}
	}
	return nil
}

func (f *fakeRepo) GetCampaign(_ context.Context, campaignID, userID uuid.UUID) (domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.campaigns {
		if c.ID == campaignID && c.UserID == userID {
			return *c, nil
		}
	}
	return domain.Campaign{}, domain.ErrCampaignNotFound
}

func (f *fakeRepo) ListCampaigns(_ context.Context, userID uuid.UUID, scope domain.CampaignScope) ([]domain.Campaign, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Campaign
	for _, c := range f.campaigns {
		if c.UserID != userID {
			continue
		}
		if scope.Platform != "" && c.Platform != scope.Platform {
			continue
		}
		if scope.CampaignID != nil && c.ID != *scope.CampaignID {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeRepo) UpdateCampaignStatus(_ context.Context, campaignID, userID uuid.UUID, status domain.CampaignStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, c := range f.campaigns {
		if c.ID == campaignID && c.UserID == userID {
			c.Status = status
			return nil
		}
	}
	return domain.ErrCampaignNotFound
}

func (f *fakeRepo) UpdateCampaignBudget(_ context.Context, campaignID, userID uuid.UUID, budgetTotal float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for _, c := range f.campaigns {
		if c.ID == campaignID && c.UserID == userID {
			c.BudgetTotal = budgetTotal
			return nil
		}
	}
	return domain.ErrCampaignNotFound
}

func (f *fakeRepo) CreateExecution(_ context.Context, arg execution.CreateExecutionParams) (domain.AutomationRuleExecution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.createPanic; p != nil {
		f.createPanic = nil
		panic(p)
	}
	f.logs = append(f.logs, arg)
	return domain.AutomationRuleExecution{ID: uuid.New(), RuleID: arg.RuleID, Status: arg.Status}, nil
}

// captureSink records messages; send can be overridden to fail or panic.
type captureSink struct {
	mu   sync.Mutex
	msgs []notify.Message
	send func(notify.Message) error
}

func (c *captureSink) Send(_ context.Context, msg notify.Message) error {
	c.mu.Lock()
	c.msgs = append(c.msgs, msg)
	c.mu.Unlock()
	if c.send != nil {
		return c.send(msg)
	}
	return nil
}

func mustTrigger(t domain.Trigger) json.RawMessage {
	raw, err := domain.MarshalTrigger(t)
	if err != nil {
		panic(err)
	}
	return raw
}

func mustAction(a domain.Action) json.RawMessage {
	raw, err := domain.MarshalAction(a)
	if err != nil {
		panic(err)
	}
	return raw
}

func rawJSON(v string) json.RawMessage {
	return json.RawMessage(v)
}

func intPtr(i int) *int {
	return &i
}

func floatPtr(f float64) *float64 {
	return &f
}
