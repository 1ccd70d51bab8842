package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/resilience"
)

const workerQueueGroup = "knowledge-ingest-workers"

// Queue carries ingestion run requests. Subscribers in the same queue group
// share the work; the callback runs messages one at a time.
type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	if strings.TrimSpace(subject) == "" {
		return nil, domain.WrapError(domain.ErrConfiguration, "nats queue", errors.New("NATS_SUBJECT is empty"))
	}
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

	conn, err := nats.Connect(
		url,
		nats.Name("knowledge-retrieval"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishIngestRequested(ctx context.Context, req domain.IngestRequest) error {
	payload, err := encodeRequest(req)
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		if err := q.conn.FlushTimeout(2 * time.Second); err != nil {
			return fmt.Errorf("nats flush: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats_publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeIngestRequested blocks until ctx is done, then drains.
func (q *Queue) SubscribeIngestRequested(ctx context.Context, handler func(context.Context, domain.IngestRequest) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if ctx.Err() != nil {
			return
		}

		req, err := decodeRequest(msg.Data)
		if err != nil {
			q.logger.Warn("ingest_request_invalid", "error", err, "payload_bytes", len(msg.Data))
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, req); err != nil {
			q.logger.Error("ingest_request_failed", "reason", req.Reason, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeRequest(req domain.IngestRequest) ([]byte, error) {
	if req.RequestedAt.IsZero() {
		req.RequestedAt = time.Now().UTC()
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal ingest request: %w", err)
	}
	return payload, nil
}

// decodeRequest also accepts an empty body as a bare trigger.
func decodeRequest(data []byte) (domain.IngestRequest, error) {
	var req domain.IngestRequest
	if len(strings.TrimSpace(string(data))) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.IngestRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode ingest request", err)
	}
	return req, nil
}
