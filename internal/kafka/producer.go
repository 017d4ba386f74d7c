// Package kafka fans audit log entries out to a Kafka topic so downstream
// systems can follow admin activity without reading the database.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nguyentranbao-ct/agent-console/internal/models"
	log "github.com/nguyentranbao-ct/agent-console/pkg/logger/logctx"
	"github.com/nguyentranbao-ct/agent-console/pkg/util"
)

type Config struct {
	Enabled    bool     `env:"ENABLED" envDefault:"false"`
	Brokers    []string `env:"BROKERS" envDefault:"localhost:9092"`
	AuditTopic string   `env:"AUDIT_TOPIC" envDefault:"agent-console.audit"`
	ClientID   string   `env:"CLIENT_ID" envDefault:"agent-console"`
}

type Publisher interface {
	PublishAudit(ctx context.Context, entry models.AuditLogEntry) error
	Close() error
}

// AuditEvent is the message value written to the audit topic.
type AuditEvent struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	UserEmail string    `json:"userEmail"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
}

type producer struct {
	sp      sarama.SyncProducer
	topic   string
	metrics *prometheus.HistogramVec
}

// NewPublisher returns a no-op publisher when Kafka is disabled.
func NewPublisher(cfg Config) (Publisher, error) {
	if !cfg.Enabled {
		return noopPublisher{}, nil
	}

	sc := sarama.NewConfig()
	sc.ClientID = cfg.ClientID
	sc.Producer.Return.Successes = true
	sc.Producer.RequiredAcks = sarama.WaitForLocal
	sc.Producer.Retry.Max = 3
	sc.Producer.Timeout = 5 * time.Second

	sp, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("new sync producer: %w", err)
	}
	return NewPublisherWithProducer(sp, cfg.AuditTopic)
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(sp sarama.SyncProducer, topic string) (Publisher, error) {
	metrics, err := util.GetHistogramVec("kafka_messages_produced", "status", "topic")
	if err != nil {
		return nil, fmt.Errorf("get histogram vec: %w", err)
	}
	return &producer{sp: sp, topic: topic, metrics: metrics}, nil
}

// PublishAudit keys messages by user email so one user's entries stay ordered.
func (p *producer) PublishAudit(ctx context.Context, entry models.AuditLogEntry) error {
	value, err := json.Marshal(AuditEvent{
		ID:        entry.GetID(),
		Action:    entry.Action,
		UserEmail: entry.UserEmail,
		Details:   entry.Details,
		Timestamp: entry.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	start := time.Now()
	partition, offset, err := p.sp.SendMessage(&sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(entry.UserEmail),
		Value: sarama.ByteEncoder(value),
	})
	status := "success"
	if err != nil {
		status = "error"
	}
	p.metrics.WithLabelValues(status, p.topic).Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("send audit event: %w", err)
	}

	log.Debugw(ctx, "audit event published", "action", entry.Action, "partition", partition, "offset", offset)
	return nil
}

func (p *producer) Close() error {
	return p.sp.Close()
}

type noopPublisher struct{}

func (noopPublisher) PublishAudit(context.Context, models.AuditLogEntry) error { return nil }
func (noopPublisher) Close() error                                             { return nil }
