package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"campaign-automator-api/internal/config"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

var ErrInvalidRecipient = errors.New("invalid email recipient")

// GmailSink sends messages as plain-text mail from a single sender mailbox.
type GmailSink struct {
	from      string
	defaultTo string
	send      func(ctx context.Context, raw string) error
	log       *zap.Logger
}

// NewGmailSink builds a Gmail client from a long-lived refresh token.
func NewGmailSink(ctx context.Context, cfg config.GmailConfig, log *zap.Logger) (*GmailSink, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	ts := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	srv, err := gmail.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("could not create Gmail service: %w", err)
	}

	send := func(ctx context.Context, raw string) error {
		_, err := srv.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
		return err
	}
	return newGmailSink(cfg.From, cfg.DefaultTo, send, log), nil
}

func newGmailSink(from, defaultTo string, send func(ctx context.Context, raw string) error, log *zap.Logger) *GmailSink {
	return &GmailSink{
		from:      from,
		defaultTo: defaultTo,
		send:      send,
		log:       log.With(zap.String("component", "notify_gmail")),
	}
}

func (s *GmailSink) Send(ctx context.Context, msg Message) error {
	to := msg.Recipient
	if to == "" {
		to = s.defaultTo
	}
	if to == "" {
		s.log.Debug("no recipient, skipping email", zap.String("rule_id", msg.RuleID.String()))
		return nil
	}

	addr, err := parseRecipient(to)
	if err != nil {
		return err
	}
	to = addr

	if err := s.send(ctx, buildRaw(s.from, to, subjectFor(msg), msg.Body)); err != nil {
		return fmt.Errorf("gmail send to %s: %w", to, err)
	}
	s.log.Info("email sent", zap.String("rule_id", msg.RuleID.String()), zap.String("to", to))
	return nil
}

// parseRecipient accepts exactly one address. Header line breaks are rejected
// before parsing, since the value ends up in the To header.
func parseRecipient(to string) (string, error) {
	if strings.ContainsAny(to, "\r\n") {
		return "", fmt.Errorf("%w: contains a line break", ErrInvalidRecipient)
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidRecipient, to, err)
	}
	return addr.Address, nil
}

func subjectFor(msg Message) string {
	subject := headerSafe(msg.Subject)
	if msg.Kind == KindAlert {
		return fmt.Sprintf("[%s] %s", strings.ToUpper(headerSafe(string(msg.Severity))), subject)
	}
	return subject
}

var headerBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

func headerSafe(v string) string {
	return headerBreaks.Replace(v)
}

// buildRaw renders an RFC 2822 message, base64url-encoded as the Gmail API expects.
func buildRaw(from, to, subject, body string) string {
	rawMessage := fmt.Sprintf(
		"To: %s\r\nFrom: %s\r\nSubject: %s\r\n",
		to, from, subject,
	)
	rawMessage += "Content-Type: text/plain; charset=UTF-8\r\n\r\n" + body

	return base64.URLEncoding.EncodeToString([]byte(rawMessage))
}
