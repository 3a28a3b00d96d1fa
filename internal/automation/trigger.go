package automation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"campaign-automator-api/internal/domain"

	"github.com/google/uuid"
)

// ScheduleWindowMinutes is how far from its target time a schedule trigger still fires.
const ScheduleWindowMinutes = 5

var ErrUnknownMetric = errors.New("unknown campaign metric")

// Evaluation is the verdict of one trigger. Context is only set when ShouldExecute is true.
type Evaluation struct {
	ShouldExecute bool
	Context       *domain.TriggerContext
}

// Evaluator checks triggers against stored campaign metrics.
type Evaluator struct {
	campaigns CampaignRepository
	now       func() time.Time
	loc       *time.Location
}

func NewEvaluator(campaigns CampaignRepository, now func() time.Time, loc *time.Location) *Evaluator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{campaigns: campaigns, now: now, loc: loc}
}

// Evaluate dispatches on the trigger kind.
func (e *Evaluator) Evaluate(ctx context.Context, trigger domain.Trigger, userID uuid.UUID) (Evaluation, error) {
	switch t := trigger.(type) {
	case domain.MetricThresholdTrigger:
		return e.metricThreshold(ctx, t, userID)
	case domain.RoasBelowTrigger:
		return e.firstMatch(ctx, userID, t.CampaignScope, "roas", "<", t.Value, func(c domain.Campaign) bool {
			roas := c.ROAS()
			return roas > 0 && roas < t.Value
		}, domain.Campaign.ROAS)
	case domain.RoasAboveTrigger:
		return e.firstMatch(ctx, userID, t.CampaignScope, "roas", ">", t.Value, func(c domain.Campaign) bool {
			return c.ROAS() > t.Value
		}, domain.Campaign.ROAS)
	case domain.CPCAboveTrigger:
		return e.firstMatch(ctx, userID, t.CampaignScope, "cpc", ">", t.Value, func(c domain.Campaign) bool {
			return c.CPC > t.Value
		}, func(c domain.Campaign) float64 { return c.CPC })
	case domain.BudgetThresholdTrigger:
		return e.budgetThreshold(ctx, t, userID)
	case domain.ScheduleTrigger:
		return e.schedule(t)
	case domain.CampaignStatusTrigger:
		return e.campaignStatus(ctx, t, userID)
	}
	return Evaluation{}, fmt.Errorf("%w: %T", domain.ErrUnknownTrigger, trigger)
}

func (e *Evaluator) metricThreshold(ctx context.Context, t domain.MetricThresholdTrigger, userID uuid.UUID) (Evaluation, error) {
	if _, ok := (domain.Campaign{}).Metric(t.Metric); !ok {
		return Evaluation{}, fmt.Errorf("%w: %q", ErrUnknownMetric, t.Metric)
	}

	campaigns, err := e.campaigns.ListCampaigns(ctx, userID, t.CampaignScope)
	if err != nil {
		return Evaluation{}, fmt.Errorf("could not list campaigns: %w", err)
	}

	for _, c := range campaigns {
		value, _ := c.Metric(t.Metric)
		if Compare(value, t.Operator, t.Value) {
			return triggered(metricContext(c, t.Metric, t.Operator, value, t.Value)), nil
		}
	}
	return Evaluation{}, nil
}

// firstMatch returns on the first campaign in storage order that satisfies match.
func (e *Evaluator) firstMatch(
	ctx context.Context,
	userID uuid.UUID,
	scope domain.CampaignScope,
	metric, operator string,
	threshold float64,
	match func(domain.Campaign) bool,
	observe func(domain.Campaign) float64,
) (Evaluation, error) {
	campaigns, err := e.campaigns.ListCampaigns(ctx, userID, scope)
	if err != nil {
		return Evaluation{}, fmt.Errorf("could not list campaigns: %w", err)
	}

	for _, c := range campaigns {
		if match(c) {
			return triggered(metricContext(c, metric, operator, observe(c), threshold)), nil
		}
	}
	return Evaluation{}, nil
}

func (e *Evaluator) budgetThreshold(ctx context.Context, t domain.BudgetThresholdTrigger, userID uuid.UUID) (Evaluation, error) {
	c, err := e.campaigns.GetCampaign(ctx, t.CampaignID, userID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("budget_threshold campaign %s: %w", t.CampaignID, err)
	}
	// Without a budget there is no percentage to compare.
	if c.BudgetTotal <= 0 {
		return Evaluation{}, nil
	}

	pct := c.BudgetSpent / c.BudgetTotal * 100
	if pct >= t.Threshold {
		return triggered(metricContext(c, "budget_spent_percentage", ">=", pct, t.Threshold)), nil
	}
	return Evaluation{}, nil
}

func (e *Evaluator) schedule(t domain.ScheduleTrigger) (Evaluation, error) {
	now := e.now().In(e.loc)
	day := strings.ToLower(now.Weekday().String())

	if len(t.Days) > 0 && !slices.Contains(t.Days, day) {
		return Evaluation{}, nil
	}

	if t.Time != "" {
		target, err := domain.ParseClock(t.Time)
		if err != nil {
			return Evaluation{}, err
		}
		current := now.Hour()*60 + now.Minute()
		diff := current - target
		if diff < 0 {
			diff = -diff
		}
		if diff > ScheduleWindowMinutes {
			return Evaluation{}, nil
		}
	}

	return triggered(&domain.TriggerContext{
		Time: now.Format("15:04"),
		Day:  day,
	}), nil
}

func (e *Evaluator) campaignStatus(ctx context.Context, t domain.CampaignStatusTrigger, userID uuid.UUID) (Evaluation, error) {
	c, err := e.campaigns.GetCampaign(ctx, t.CampaignID, userID)
	if err != nil {
		return Evaluation{}, fmt.Errorf("campaign_status campaign %s: %w", t.CampaignID, err)
	}
	if c.Status != t.Status {
		return Evaluation{}, nil
	}

	id := c.ID
	return triggered(&domain.TriggerContext{
		CampaignID:   &id,
		CampaignName: c.Name,
		Platform:     c.Platform,
		Status:       c.Status,
	}), nil
}

func triggered(tc *domain.TriggerContext) Evaluation {
	return Evaluation{ShouldExecute: true, Context: tc}
}

func metricContext(c domain.Campaign, metric, operator string, value, threshold float64) *domain.TriggerContext {
	id := c.ID
	return &domain.TriggerContext{
		CampaignID:   &id,
		CampaignName: c.Name,
		Platform:     c.Platform,
		Metric:       metric,
		Value:        &value,
		Threshold:    &threshold,
		Operator:     operator,
	}
}
