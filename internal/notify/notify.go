// Package notify queues outgoing mail for the external mail workers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Mail templates
const (
	TemplateProjectActivated = "project.activated"
	TemplateProjectCompleted = "project.completed"
	TemplateProjectCancelled = "project.cancelled"
	TemplateTenantSuspended  = "tenant.suspended"
)

// Notification is a mail request identified by template name.
type Notification struct {
	Template string                 `json:"template"`
	Data     map[string]interface{} `json:"data"`
	QueuedAt time.Time              `json:"queuedAt"`
}

// Notifier enqueues notifications. Implementations never block the caller's
// state change; errors are returned only for logging.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Publisher is the subset of *nats.Conn used for publishing.
type Publisher interface {
	Publish(subject string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// NATSPublisher publishes notifications as JSON on <prefix>.mail.<template>.
type NATSPublisher struct {
	pub    Publisher
	prefix string
}

// NewNATSPublisher creates a publisher on pub.
func NewNATSPublisher(pub Publisher, prefix string) *NATSPublisher {
	if prefix == "" {
		prefix = "sannu"
	}
	return &NATSPublisher{pub: pub, prefix: prefix}
}

// Subject returns the subject a template is published on.
func (p *NATSPublisher) Subject(template string) string {
	return fmt.Sprintf("%s.mail.%s", p.prefix, template)
}

// Notify publishes n
func (p *NATSPublisher) Notify(ctx context.Context, n Notification) error {
	if n.QueuedAt.IsZero() {
		n.QueuedAt = time.Now().UTC()
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := p.pub.Publish(p.Subject(n.Template), data); err != nil {
		return fmt.Errorf("publish %s: %w", n.Template, err)
	}

	log.Debug().
		Str("template", n.Template).
		Int("size", len(data)).
		Msg("Notification queued")

	return nil
}

// NopNotifier drops every notification.
type NopNotifier struct{}

// Notify does nothing
func (NopNotifier) Notify(context.Context, Notification) error { return nil }

// Send calls n.Notify and logs a failure instead of returning it.
func Send(ctx context.Context, n Notifier, template string, data map[string]interface{}) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, Notification{Template: template, Data: data}); err != nil {
		log.Warn().Err(err).Str("template", template).Msg("Failed to queue notification")
	}
}
