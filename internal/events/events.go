// Package events publishes triage lifecycle events over NATS so other
// systems (dashboards, notifiers) can react without polling the API.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects emitted by the service.
const (
	SubjectRunCompleted  = "triage.run.completed"
	SubjectSkillProposed = "triage.skill.proposed"
	SubjectSkillApproved = "triage.skill.approved"
	SubjectSkillRejected = "triage.skill.rejected"
)

type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewClient connects to NATS. Connection problems are retried in the
// background so a late-starting broker does not take the service down.
func NewClient(url string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{conn: nc, logger: logger}, nil
}

// Publish marshals data as JSON and publishes it on subject. A nil
// client drops events silently so callers can hold one regardless of
// whether NATS is configured.
func (c *Client) Publish(subject string, data any) error {
	if c == nil {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Close() {
	c.conn.Close()
}
