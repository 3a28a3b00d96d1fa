package automation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"campaign-automator-api/internal/domain"
	"campaign-automator-api/internal/notify"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNoTargetCampaign = errors.New("no target campaign: set campaign_id on the action or use a campaign trigger")

// Executor applies actions. Every campaign mutation is qualified by campaign id and user id.
type Executor struct {
	campaigns CampaignRepository
	sink      notify.Sink
	now       func() time.Time
}

func NewExecutor(campaigns CampaignRepository, sink notify.Sink, now func() time.Time) *Executor {
	if now == nil {
		now = time.Now
	}
	return &Executor{campaigns: campaigns, sink: sink, now: now}
}

// Execute dispatches on the action kind. tc may be nil.
func (x *Executor) Execute(ctx context.Context, ruleID, userID uuid.UUID, action domain.Action, tc *domain.TriggerContext) (domain.ActionResult, error) {
	switch a := action.(type) {
	case domain.PauseCampaignAction:
		return x.pauseCampaign(ctx, a, userID, tc)
	case domain.AdjustBudgetAction:
		return x.adjustBudget(ctx, a, userID, tc)
	case domain.ScaleCampaignAction:
		return x.scaleCampaign(ctx, a, userID, tc)
	case domain.SendNotificationAction:
		return x.sendNotification(ctx, a, ruleID, userID, tc)
	case domain.CreateAlertAction:
		return x.createAlert(ctx, a, ruleID, userID, tc)
	}
	return domain.ActionResult{}, fmt.Errorf("%w: %T", domain.ErrUnknownAction, action)
}

func (x *Executor) pauseCampaign(ctx context.Context, a domain.PauseCampaignAction, userID uuid.UUID, tc *domain.TriggerContext) (domain.ActionResult, error) {
	id, err := targetCampaign(a.CampaignID, tc)
	if err != nil {
		return domain.ActionResult{}, err
	}
	if err := x.campaigns.UpdateCampaignStatus(ctx, id, userID, domain.CampaignPaused); err != nil {
		return domain.ActionResult{}, fmt.Errorf("pause campaign %s: %w", id, err)
	}
	return domain.ActionResult{
		Executed:   true,
		Action:     domain.ActionPauseCampaign,
		CampaignID: &id,
		NewStatus:  domain.CampaignPaused,
	}, nil
}

func (x *Executor) adjustBudget(ctx context.Context, a domain.AdjustBudgetAction, userID uuid.UUID, tc *domain.TriggerContext) (domain.ActionResult, error) {
	delta := decimal.NewFromFloat(a.Amount).Div(decimal.NewFromInt(100))
	factor := decimal.NewFromInt(1).Add(delta)
	if a.Direction == domain.BudgetDecrease {
		factor = decimal.NewFromInt(1).Sub(delta)
	}
	return x.rescaleBudget(ctx, domain.ActionAdjustBudget, a.CampaignID, userID, tc, factor, nil)
}

func (x *Executor) scaleCampaign(ctx context.Context, a domain.ScaleCampaignAction, userID uuid.UUID, tc *domain.TriggerContext) (domain.ActionResult, error) {
	f := a.Factor()
	return x.rescaleBudget(ctx, domain.ActionScaleCampaign, a.CampaignID, userID, tc, decimal.NewFromFloat(f), &f)
}

// rescaleBudget multiplies budget_total by factor, rounded to cents.
func (x *Executor) rescaleBudget(
	ctx context.Context,
	kind domain.ActionKind,
	configured *uuid.UUID,
	userID uuid.UUID,
	tc *domain.TriggerContext,
	factor decimal.Decimal,
	scaleFactor *float64,
) (domain.ActionResult, error) {
	id, err := targetCampaign(configured, tc)
	if err != nil {
		return domain.ActionResult{}, err
	}

	c, err := x.campaigns.GetCampaign(ctx, id, userID)
	if err != nil {
		return domain.ActionResult{}, fmt.Errorf("%s campaign %s: %w", kind, id, err)
	}

	oldBudget := c.BudgetTotal
	newBudget := decimal.NewFromFloat(oldBudget).Mul(factor).Round(2).InexactFloat64()

	if err := x.campaigns.UpdateCampaignBudget(ctx, id, userID, newBudget); err != nil {
		return domain.ActionResult{}, fmt.Errorf("%s campaign %s: %w", kind, id, err)
	}

	return domain.ActionResult{
		Executed:    true,
		Action:      kind,
		CampaignID:  &id,
		OldBudget:   &oldBudget,
		NewBudget:   &newBudget,
		ScaleFactor: scaleFactor,
	}, nil
}

func (x *Executor) sendNotification(ctx context.Context, a domain.SendNotificationAction, ruleID, userID uuid.UUID, tc *domain.TriggerContext) (domain.ActionResult, error) {
	body := RenderMessage(a.Message, tc)
	msg := notify.Message{
		Kind:      notify.KindNotification,
		UserID:    userID,
		RuleID:    ruleID,
		Subject:   subjectFrom(body),
		Body:      body,
		Recipient: a.Recipient,
		Context:   tc,
		CreatedAt: x.now(),
	}
	if err := x.deliver(ctx, msg); err != nil {
		return domain.ActionResult{}, err
	}
	return domain.ActionResult{
		Executed:  true,
		Action:    domain.ActionSendNotification,
		Message:   body,
		Recipient: a.Recipient,
	}, nil
}

func (x *Executor) createAlert(ctx context.Context, a domain.CreateAlertAction, ruleID, userID uuid.UUID, tc *domain.TriggerContext) (domain.ActionResult, error) {
	severity := a.Severity
	if severity == "" {
		severity = domain.SeverityInfo
	}
	msg := notify.Message{
		Kind:      notify.KindAlert,
		UserID:    userID,
		RuleID:    ruleID,
		Severity:  severity,
		Subject:   subjectFrom(a.Message),
		Body:      a.Message,
		Context:   tc,
		CreatedAt: x.now(),
	}
	if err := x.deliver(ctx, msg); err != nil {
		return domain.ActionResult{}, err
	}
	return domain.ActionResult{
		Executed: true,
		Action:   domain.ActionCreateAlert,
		Severity: severity,
		Message:  a.Message,
		Context:  tc,
	}, nil
}

func (x *Executor) deliver(ctx context.Context, msg notify.Message) error {
	if x.sink == nil {
		return nil
	}
	if err := x.sink.Send(ctx, msg); err != nil {
		return fmt.Errorf("deliver %s: %w", msg.Kind, err)
	}
	return nil
}

// RenderMessage substitutes {campaignName}, {metric} and {value}. Missing values render empty.
func RenderMessage(template string, tc *domain.TriggerContext) string {
	var name, metric, value string
	if tc != nil {
		name = tc.CampaignName
		metric = tc.Metric
		if tc.Value != nil {
			value = strconv.FormatFloat(*tc.Value, 'f', -1, 64)
		}
	}
	return strings.NewReplacer(
		"{campaignName}", name,
		"{metric}", metric,
		"{value}", value,
	).Replace(template)
}

// targetCampaign prefers the action's own campaign over the one the trigger found.
func targetCampaign(configured *uuid.UUID, tc *domain.TriggerContext) (uuid.UUID, error) {
	if configured != nil && *configured != uuid.Nil {
		return *configured, nil
	}
	if tc != nil && tc.CampaignID != nil {
		return *tc.CampaignID, nil
	}
	return uuid.Nil, ErrNoTargetCampaign
}

func subjectFrom(body string) string {
	line := body
	if i := strings.IndexAny(body, "\r\n"); i >= 0 {
		line = body[:i]
	}
	if r := []rune(line); len(r) > 80 {
		line = string(r[:77]) + "..."
	}
	if line == "" {
		return "Automation rule triggered"
	}
	return line
}
