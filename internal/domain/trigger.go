package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type TriggerKind string

const (
	TriggerMetricThreshold TriggerKind = "metric_threshold"
	TriggerRoasBelow       TriggerKind = "roas_below"
	TriggerRoasAbove       TriggerKind = "roas_above"
	TriggerCPCAbove        TriggerKind = "cpc_above"
	TriggerBudgetThreshold TriggerKind = "budget_threshold"
	TriggerSchedule        TriggerKind = "schedule"
	TriggerCampaignStatus  TriggerKind = "campaign_status"
)

// Trigger is the closed set of conditions a rule can watch. Only the types in
// this file implement it.
type Trigger interface {
	Kind() TriggerKind
	isTrigger()
}

// CampaignScope narrows a campaign lookup. Empty fields match everything the user owns.
type CampaignScope struct {
	Platform   string     `json:"platform,omitempty"`
	CampaignID *uuid.UUID `json:"campaign_id,omitempty"`
}

type MetricThresholdTrigger struct {
	CampaignScope
	Metric   string  `json:"metric"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

type RoasBelowTrigger struct {
	CampaignScope
	Value float64 `json:"value"`
}

type RoasAboveTrigger struct {
	CampaignScope
	Value float64 `json:"value"`
}

type CPCAboveTrigger struct {
	CampaignScope
	Value float64 `json:"value"`
}

type BudgetThresholdTrigger struct {
	CampaignID uuid.UUID `json:"campaign_id"`
	Threshold  float64   `json:"threshold"`
}

// ScheduleTrigger fires within five minutes of Time ("HH:MM") on the listed
// lowercase weekdays. Empty fields are not checked.
type ScheduleTrigger struct {
	Time string   `json:"time,omitempty"`
	Days []string `json:"days,omitempty"`
}

type CampaignStatusTrigger struct {
	CampaignID uuid.UUID      `json:"campaign_id"`
	Status     CampaignStatus `json:"status"`
}

func (MetricThresholdTrigger) Kind() TriggerKind { return TriggerMetricThreshold }
func (RoasBelowTrigger) Kind() TriggerKind       { return TriggerRoasBelow }
func (RoasAboveTrigger) Kind() TriggerKind       { return TriggerRoasAbove }
func (CPCAboveTrigger) Kind() TriggerKind        { return TriggerCPCAbove }
func (BudgetThresholdTrigger) Kind() TriggerKind { return TriggerBudgetThreshold }
func (ScheduleTrigger) Kind() TriggerKind        { return TriggerSchedule }
func (CampaignStatusTrigger) Kind() TriggerKind  { return TriggerCampaignStatus }

func (MetricThresholdTrigger) isTrigger() {}
func (RoasBelowTrigger) isTrigger()       {}
func (RoasAboveTrigger) isTrigger()       {}
func (CPCAboveTrigger) isTrigger()        {}
func (BudgetThresholdTrigger) isTrigger() {}
func (ScheduleTrigger) isTrigger()        {}
func (CampaignStatusTrigger) isTrigger()  {}

type typeEnvelope struct {
	Type string `json:"type"`
}

// keyAliases maps the camelCase keys rule editors also write onto the stored
// snake_case names. The snake_case key wins when a document has both.
var keyAliases = map[string]string{
	"campaignId":  "campaign_id",
	"scaleFactor": "scale_factor",
}

// decodeConfig rewrites aliased keys and reads the type tag.
func decodeConfig(raw json.RawMessage) (json.RawMessage, typeEnvelope, error) {
	var env typeEnvelope
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, env, err
	}

	changed := false
	for alias, key := range keyAliases {
		v, ok := fields[alias]
		if !ok {
			continue
		}
		if _, exists := fields[key]; !exists {
			fields[key] = v
		}
		delete(fields, alias)
		changed = true
	}
	if changed {
		var err error
		if raw, err = json.Marshal(fields); err != nil {
			return nil, env, err
		}
	}

	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, env, err
	}
	return raw, env, nil
}

// ParseTrigger decodes a stored trigger document of the form {"type": "...", ...}.
func ParseTrigger(raw json.RawMessage) (Trigger, error) {
	raw, env, err := decodeConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid trigger config: %w", err)
	}

	var t Trigger
	switch TriggerKind(env.Type) {
	case TriggerMetricThreshold:
		var v MetricThresholdTrigger
		err = json.Unmarshal(raw, &v)
		if err == nil && v.Metric == "" {
			err = fmt.Errorf("metric is required")
		}
		t = v
	case TriggerRoasBelow:
		var v RoasBelowTrigger
		err = json.Unmarshal(raw, &v)
		t = v
	case TriggerRoasAbove:
		var v RoasAboveTrigger
		err = json.Unmarshal(raw, &v)
		t = v
	case TriggerCPCAbove:
		var v CPCAboveTrigger
		err = json.Unmarshal(raw, &v)
		t = v
	case TriggerBudgetThreshold:
		var v BudgetThresholdTrigger
		err = json.Unmarshal(raw, &v)
		if err == nil && v.CampaignID == uuid.Nil {
			err = fmt.Errorf("campaign_id is required")
		}
		t = v
	case TriggerSchedule:
		var v ScheduleTrigger
		err = json.Unmarshal(raw, &v)
		if err == nil && v.Time != "" {
			_, err = ParseClock(v.Time)
		}
		for i, d := range v.Days {
			v.Days[i] = strings.ToLower(strings.TrimSpace(d))
		}
		t = v
	case TriggerCampaignStatus:
		var v CampaignStatusTrigger
		err = json.Unmarshal(raw, &v)
		if err == nil && v.CampaignID == uuid.Nil {
			err = fmt.Errorf("campaign_id is required")
		}
		t = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownTrigger, env.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("invalid %s trigger: %w", env.Type, err)
	}
	return t, nil
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return h*60 + m, nil
}

// MarshalTrigger is the inverse of ParseTrigger.
func MarshalTrigger(t Trigger) (json.RawMessage, error) {
	return marshalTagged(string(t.Kind()), t)
}

func marshalTagged(kind string, v any) (json.RawMessage, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	fields := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["type"], _ = json.Marshal(kind)
	return json.Marshal(fields)
}
