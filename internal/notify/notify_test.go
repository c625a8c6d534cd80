package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (r *recordingPublisher) Publish(subject string, data []byte) error {
	if r.err != nil {
		return r.err
	}
	r.subjects = append(r.subjects, subject)
	r.payloads = append(r.payloads, data)
	return nil
}

func TestNATSPublisherSubject(t *testing.T) {
	pub := &recordingPublisher{}
	n := NewNATSPublisher(pub, "acme")

	err := n.Notify(context.Background(), Notification{
		Template: TemplateProjectActivated,
		Data:     map[string]interface{}{"project": "water-pipes"},
	})
	require.NoError(t, err)

	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "acme.mail.project.activated", pub.subjects[0])

	var got Notification
	require.NoError(t, json.Unmarshal(pub.payloads[0], &got))
	assert.Equal(t, TemplateProjectActivated, got.Template)
	assert.Equal(t, "water-pipes", got.Data["project"])
	assert.False(t, got.QueuedAt.IsZero())
}

func TestNATSPublisherDefaultPrefix(t *testing.T) {
	n := NewNATSPublisher(&recordingPublisher{}, "")
	assert.Equal(t, "sannu.mail.tenant.suspended", n.Subject(TemplateTenantSuspended))
}

func TestSendSwallowsErrors(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("nats: connection closed")}

	assert.NotPanics(t, func() {
		Send(context.Background(), NewNATSPublisher(pub, "sannu"), TemplateProjectCancelled, nil)
		Send(context.Background(), nil, TemplateProjectCancelled, nil)
		Send(context.Background(), NopNotifier{}, TemplateProjectCancelled, nil)
	})
	assert.Empty(t, pub.subjects)
}
