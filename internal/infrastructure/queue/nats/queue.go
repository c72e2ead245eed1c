package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/document-sorter/internal/core/domain"
	"github.com/kirillkom/document-sorter/internal/infrastructure/resilience"
)

type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher announces finished batches on a NATS subject.
type Publisher struct {
	nc       *nats.Conn
	conn     conn
	subject  string
	executor *resilience.Executor
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func NewPublisher(url, subject string, options Options) (*Publisher, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	nc, err := nats.Connect(
		url,
		nats.Name("document-sorter"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", fmt.Sprint(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Publisher{
		nc:       nc,
		conn:     nc,
		subject:  subject,
		executor: options.ResilienceExecutor,
	}, nil
}

func (p *Publisher) Close() {
	if p.nc != nil {
		_ = p.nc.FlushTimeout(2 * time.Second)
		p.nc.Close()
	}
}

// BatchEvent is the message body published for every categorized batch.
type BatchEvent struct {
	BatchID     string         `json:"batch_id"`
	Files       int            `json:"files"`
	Reports     int            `json:"reports"`
	Buckets     map[string]int `json:"buckets"`
	ArchiveSize int            `json:"archive_bytes"`
	StartedAt   time.Time      `json:"started_at"`
	DurationMS  int64          `json:"duration_ms"`
}

func NewBatchEvent(batch *domain.Batch) BatchEvent {
	buckets := make(map[string]int)
	for bucket, n := range batch.BucketCounts() {
		buckets[string(bucket)] = n
	}
	return BatchEvent{
		BatchID:     batch.ID,
		Files:       len(batch.Results),
		Reports:     batch.ReportCount(),
		Buckets:     buckets,
		ArchiveSize: len(batch.Archive),
		StartedAt:   batch.StartedAt,
		DurationMS:  batch.Duration.Milliseconds(),
	}
}

func (p *Publisher) PublishBatchCategorized(ctx context.Context, batch *domain.Batch) error {
	payload, err := json.Marshal(NewBatchEvent(batch))
	if err != nil {
		return fmt.Errorf("marshal batch event: %w", err)
	}

	call := func(_ context.Context) error {
		if err := p.conn.Publish(p.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if p.executor != nil {
		err = p.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return wrapTemporaryIfNeeded(err)
}
