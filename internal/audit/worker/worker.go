// Package worker ships audit events from the transactional outbox to Kafka.
// At-least-once delivery: a row is marked published only after the produce
// succeeds, and downstream consumers deduplicate on event ID.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/creerlio2026/creerlio-platform-sub005/internal/audit"
	"github.com/creerlio2026/creerlio-platform-sub005/internal/platform/config"
)

const batchSize = 100

// Outbox is the slice of the audit store the worker needs.
type Outbox interface {
	NextBatch(ctx context.Context, limit int) ([]audit.OutboxEntry, error)
	MarkPublished(ctx context.Context, entryID uuid.UUID) error
}

// Worker polls the outbox and produces entries to the audit topic.
type Worker struct {
	outbox       Outbox
	client       *kgo.Client
	topic        string
	pollInterval time.Duration
	logger       *slog.Logger
}

// New connects to the Kafka brokers and ensures the audit topic exists.
func New(ctx context.Context, cfg config.KafkaConfig, outbox Outbox, logger *slog.Logger) (*Worker, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.DefaultProduceTopic(cfg.AuditTopic),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, 3, 1, nil, cfg.AuditTopic)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		client.Close()
		return nil, fmt.Errorf("ensure audit topic: %w", resp.Err)
	}

	return &Worker{
		outbox:       outbox,
		client:       client,
		topic:        cfg.AuditTopic,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}, nil
}

// Run drains the outbox until the context is cancelled. Cancellation is the
// normal way to stop the worker, so it returns nil rather than the context
// error.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer w.client.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.ErrorContext(ctx, "outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	for {
		entries, err := w.outbox.NextBatch(ctx, batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		for _, entry := range entries {
			record := &kgo.Record{
				Topic: w.topic,
				Key:   []byte(entry.AggregateID),
				Value: entry.Payload,
				Headers: []kgo.RecordHeader{
					{Key: "event_type", Value: []byte(entry.EventType)},
				},
			}
			if err := w.client.ProduceSync(ctx, record).FirstErr(); err != nil {
				return fmt.Errorf("produce audit event %s: %w", entry.ID, err)
			}
			if err := w.outbox.MarkPublished(ctx, entry.ID); err != nil {
				return err
			}
		}
		if len(entries) < batchSize {
			return nil
		}
	}
}
