// Package notify delivers notifications and alerts raised by automation actions.
package notify

import (
	"context"
	"errors"
	"time"

	"campaign-automator-api/internal/domain"

	"github.com/google/uuid"
)

type Kind string

const (
	KindNotification Kind = "notification"
	KindAlert        Kind = "alert"
)

// Message is what a send_notification or create_alert action hands to a Sink.
type Message struct {
	Kind      Kind                   `json:"kind"`
	UserID    uuid.UUID              `json:"userId"`
	RuleID    uuid.UUID              `json:"ruleId"`
	Severity  domain.AlertSeverity   `json:"severity,omitempty"`
	Subject   string                 `json:"subject"`
	Body      string                 `json:"body"`
	Recipient string                 `json:"recipient,omitempty"`
	Context   *domain.TriggerContext `json:"context,omitempty"`
	CreatedAt time.Time              `json:"createdAt"`
}

// Sink delivers a message somewhere. Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// MultiSink fans a message out to every sink and joins their errors.
type MultiSink []Sink

// Multi builds a MultiSink, dropping nil entries.
func Multi(sinks ...Sink) MultiSink {
	out := make(MultiSink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (m MultiSink) Send(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
