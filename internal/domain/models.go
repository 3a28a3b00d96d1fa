package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Campaign is an ad campaign synced from an ad platform. The engine reads its
// metrics and mutates only status and budget_total.
type Campaign struct {
	UserEntity
	Name        string         `db:"name"         json:"name"`
	Platform    string         `db:"platform"     json:"platform"`
	Status      CampaignStatus `db:"status"       json:"status"`
	BudgetTotal float64        `db:"budget_total" json:"budget_total"`
	BudgetSpent float64        `db:"budget_spent" json:"budget_spent"`
	Clicks      int64          `db:"clicks"       json:"clicks"`
	Conversions int64          `db:"conversions"  json:"conversions"`
	CPC         float64        `db:"cpc"          json:"cpc"`
}

// ROAS approximates return on ad spend as conversions*100/spent, or 0 without spend.
func (c Campaign) ROAS() float64 {
	if c.BudgetSpent <= 0 {
		return 0
	}
	return float64(c.Conversions) * 100 / c.BudgetSpent
}

// Metric looks up a numeric field by its column or camelCase name.
func (c Campaign) Metric(name string) (float64, bool) {
	switch strings.ToLower(strings.ReplaceAll(name, "_", "")) {
	case "budgettotal":
		return c.BudgetTotal, true
	case "budgetspent":
		return c.BudgetSpent, true
	case "clicks":
		return float64(c.Clicks), true
	case "conversions":
		return float64(c.Conversions), true
	case "cpc":
		return c.CPC, true
	case "roas":
		return c.ROAS(), true
	}
	return 0, false
}

// AutomationRule represents a user-owned (trigger, action) pair with execution guards.
// Trigger and Action hold the tagged JSON documents; see ParseTrigger and ParseAction.
type AutomationRule struct {
	UserEntity
	Name            string          `db:"name"             json:"name"`
	Description     string          `db:"description"      json:"description"`
	IsActive        bool            `db:"is_active"        json:"is_active"`
	Trigger         json.RawMessage `db:"trigger_config"   json:"trigger"`
	Action          json.RawMessage `db:"action_config"    json:"action"`
	ExecutionCount  int             `db:"execution_count"  json:"execution_count"`
	LastExecutedAt  *time.Time      `db:"last_executed_at" json:"last_executed_at"`
	CooldownMinutes int             `db:"cooldown_minutes" json:"cooldown_minutes"`
	MaxExecutions   *int            `db:"max_executions"   json:"max_executions"`
}

// AutomationRuleExecution is an append-only audit row for one evaluate+execute attempt.
type AutomationRuleExecution struct {
	ID              uuid.UUID       `db:"id"                json:"id"`
	RuleID          uuid.UUID       `db:"rule_id"           json:"rule_id"`
	UserID          uuid.UUID       `db:"user_id"           json:"user_id"`
	Status          ExecutionStatus `db:"status"            json:"status"`
	TriggerData     json.RawMessage `db:"trigger_data"      json:"trigger_data"`
	ActionResult    json.RawMessage `db:"action_result"     json:"action_result"`
	ExecutionTimeMs int64           `db:"execution_time_ms" json:"execution_time_ms"`
	ErrorMessage    *string         `db:"error_message"     json:"error_message,omitempty"`
	CreatedAt       time.Time       `db:"created_at"        json:"created_at"`
}

// TriggerContext describes why a trigger fired.
type TriggerContext struct {
	CampaignID   *uuid.UUID     `json:"campaignId,omitempty"`
	CampaignName string         `json:"campaignName,omitempty"`
	Platform     string         `json:"platform,omitempty"`
	Metric       string         `json:"metric,omitempty"`
	Value        *float64       `json:"value,omitempty"`
	Threshold    *float64       `json:"threshold,omitempty"`
	Operator     string         `json:"operator,omitempty"`
	Status       CampaignStatus `json:"status,omitempty"`
	Time         string         `json:"time,omitempty"`
	Day          string         `json:"day,omitempty"`
}

// ActionResult describes what an action changed.
type ActionResult struct {
	Executed    bool            `json:"executed"`
	Action      ActionKind      `json:"action"`
	CampaignID  *uuid.UUID      `json:"campaignId,omitempty"`
	NewStatus   CampaignStatus  `json:"newStatus,omitempty"`
	OldBudget   *float64        `json:"oldBudget,omitempty"`
	NewBudget   *float64        `json:"newBudget,omitempty"`
	ScaleFactor *float64        `json:"scaleFactor,omitempty"`
	Message     string          `json:"message,omitempty"`
	Severity    AlertSeverity   `json:"severity,omitempty"`
	Recipient   string          `json:"recipient,omitempty"`
	Context     *TriggerContext `json:"context,omitempty"`
}
