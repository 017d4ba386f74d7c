package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
)

func TestPublishAudit(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	sp := mocks.NewSyncProducer(t, cfg)

	entry := models.AuditLogEntry{
		ID:        models.NewObjectID(),
		Action:    models.AuditTicketResolved,
		UserEmail: "admin@x.com",
		Details:   "ticket 1",
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got AuditEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Action != entry.Action || got.UserEmail != entry.UserEmail || got.ID != string(entry.ID) {
			return errors.New("unexpected audit event")
		}
		return nil
	})

	p, err := NewPublisherWithProducer(sp, "audit")
	require.NoError(t, err)
	require.NoError(t, p.PublishAudit(t.Context(), entry))
	require.NoError(t, p.Close())
}

func TestPublishAuditFailure(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	sp := mocks.NewSyncProducer(t, cfg)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p, err := NewPublisherWithProducer(sp, "audit")
	require.NoError(t, err)

	err = p.PublishAudit(t.Context(), models.AuditLogEntry{Action: "x", UserEmail: "a@x.com"})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, p.Close())
}

func TestDisabledPublisherIsNoop(t *testing.T) {
	p, err := NewPublisher(Config{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, p.PublishAudit(t.Context(), models.AuditLogEntry{}))
	assert.NoError(t, p.Close())
}
