package domain

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

type ActionKind string

const (
	ActionPauseCampaign    ActionKind = "pause_campaign"
	ActionAdjustBudget     ActionKind = "adjust_budget"
	ActionSendNotification ActionKind = "send_notification"
	ActionCreateAlert      ActionKind = "create_alert"
	ActionScaleCampaign    ActionKind = "scale_campaign"
)

type BudgetDirection string

const (
	BudgetIncrease BudgetDirection = "increase"
	BudgetDecrease BudgetDirection = "decrease"
)

type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// DefaultScaleFactor is used by scale_campaign when no factor is configured.
const DefaultScaleFactor = 1.5

// Action is the closed set of remedies a rule can apply.
type Action interface {
	Kind() ActionKind
	isAction()
}

// PauseCampaignAction targets CampaignID, or the campaign from the trigger context when nil.
type PauseCampaignAction struct {
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`
}

type AdjustBudgetAction struct {
	CampaignID *uuid.UUID      `json:"campaign_id,omitempty"`
	Direction  BudgetDirection `json:"direction"`
	Amount     float64         `json:"amount"`
}

// SendNotificationAction renders Message with {campaignName}, {metric} and {value}.
type SendNotificationAction struct {
	Message   string `json:"message"`
	Recipient string `json:"recipient,omitempty"`
}

type CreateAlertAction struct {
	Severity AlertSeverity `json:"severity"`
	Message  string        `json:"message"`
}

type ScaleCampaignAction struct {
	CampaignID  *uuid.UUID `json:"campaign_id,omitempty"`
	ScaleFactor *float64   `json:"scale_factor,omitempty"`
}

func (PauseCampaignAction) Kind() ActionKind    { return ActionPauseCampaign }
func (AdjustBudgetAction) Kind() ActionKind     { return ActionAdjustBudget }
func (SendNotificationAction) Kind() ActionKind { return ActionSendNotification }
func (CreateAlertAction) Kind() ActionKind      { return ActionCreateAlert }
func (ScaleCampaignAction) Kind() ActionKind    { return ActionScaleCampaign }

func (PauseCampaignAction) isAction()    {}
func (AdjustBudgetAction) isAction()     {}
func (SendNotificationAction) isAction() {}
func (CreateAlertAction) isAction()      {}
func (ScaleCampaignAction) isAction()    {}

// Factor returns the configured scale factor or DefaultScaleFactor.
func (a ScaleCampaignAction) Factor() float64 {
	if a.ScaleFactor == nil {
		return DefaultScaleFactor
	}
	return *a.ScaleFactor
}

// ParseAction decodes a stored action document of the form {"type": "...", ...}.
func ParseAction(raw json.RawMessage) (Action, error) {
	raw, env, err := decodeConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid action config: %w", err)
	}

	var a Action
	switch ActionKind(env.Type) {
	case ActionPauseCampaign:
		var v PauseCampaignAction
		err = json.Unmarshal(raw, &v)
		a = v
	case ActionAdjustBudget:
		var v AdjustBudgetAction
		err = json.Unmarshal(raw, &v)
		if err == nil && v.Direction != BudgetIncrease && v.Direction != BudgetDecrease {
			err = fmt.Errorf("direction must be %q or %q", BudgetIncrease, BudgetDecrease)
		}
		a = v
	case ActionSendNotification:
		var v SendNotificationAction
		err = json.Unmarshal(raw, &v)
		a = v
	case ActionCreateAlert:
		var v CreateAlertAction
		err = json.Unmarshal(raw, &v)
		if v.Severity == "" {
			v.Severity = SeverityInfo
		}
		a = v
	case ActionScaleCampaign:
		var v ScaleCampaignAction
		err = json.Unmarshal(raw, &v)
		if err == nil && v.ScaleFactor != nil && *v.ScaleFactor <= 0 {
			err = fmt.Errorf("scale_factor must be positive")
		}
		a = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("invalid %s action: %w", env.Type, err)
	}
	return a, nil
}

// MarshalAction is the inverse of ParseAction.
func MarshalAction(a Action) (json.RawMessage, error) {
	return marshalTagged(string(a.Kind()), a)
}
