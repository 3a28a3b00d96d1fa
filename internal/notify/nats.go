package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Publisher is the part of *nats.Conn the sink uses.
type Publisher interface {
	Publish(subj string, data []byte) error
}

// NATSSink publishes messages as JSON on <prefix>.<kind>.<userId>.
type NATSSink struct {
	pub    Publisher
	prefix string
}

func NewNATSSink(pub Publisher, prefix string) *NATSSink {
	if prefix == "" {
		prefix = "automation"
	}
	return &NATSSink{pub: pub, prefix: prefix}
}

func (s *NATSSink) Subject(msg Message) string {
	return fmt.Sprintf("%s.%s.%s", s.prefix, msg.Kind, msg.UserID)
}

func (s *NATSSink) Send(_ context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.pub.Publish(s.Subject(msg), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}
	return nil
}

// ConnectNATS opens a connection that keeps reconnecting in the background.
func ConnectNATS(url string, log *zap.Logger) (*nats.Conn, error) {
	log = log.With(zap.String("component", "nats"))

	opts := []nats.Option{
		nats.Name("campaign-automator"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("disconnected from NATS server", zap.Error(err))
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info("reconnected to NATS server", zap.String("url", conn.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS server: %w", err)
	}
	log.Info("connected to NATS server", zap.String("url", conn.ConnectedUrl()))
	return conn, nil
}
