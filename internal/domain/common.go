package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// --- ENUM Types ---
type CampaignStatus string

const (
	CampaignActive   CampaignStatus = "active"
	CampaignPaused   CampaignStatus = "paused"
	CampaignEnded    CampaignStatus = "ended"
	CampaignArchived CampaignStatus = "archived"
)

type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// OutcomeStatus is the per-rule result reported in a batch response.
type OutcomeStatus string

const (
	OutcomeExecuted OutcomeStatus = "executed"
	OutcomeSkipped  OutcomeStatus = "skipped"
	OutcomeFailed   OutcomeStatus = "failed"
)

var (
	ErrRuleNotFound     = errors.New("rule not found")
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrUnknownTrigger   = errors.New("unknown trigger type")
	ErrUnknownAction    = errors.New("unknown action type")
	ErrForbidden        = errors.New("forbidden: rule not found or does not belong to user")
)

// --- Base Structs ---

type BaseEntity struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type UserEntity struct {
	BaseEntity
	UserID uuid.UUID `db:"user_id" json:"user_id"`
}
