package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/resilience"
)

const workerQueueGroup = "harvesters"

// Queue carries harvest requests to workers and announces stored cases.
type Queue struct {
	conn           *nats.Conn
	requestSubject string
	caseSubject    string
	executor       *resilience.Executor
}

type Options struct {
	RequestSubject       string
	CaseSubject          string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
}

func New(url string) (*Queue, error) {
	return NewWithOptions(url, Options{})
}

func NewWithOptions(url string, options Options) (*Queue, error) {
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
	requestSubject := options.RequestSubject
	if requestSubject == "" {
		requestSubject = "dje.harvest.requests"
	}
	caseSubject := options.CaseSubject
	if caseSubject == "" {
		caseSubject = "dje.cases.stored"
	}

	conn, err := nats.Connect(
		url,
		nats.Name("dje-harvester"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			slog.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:           conn,
		requestSubject: requestSubject,
		caseSubject:    caseSubject,
		executor:       options.ResilienceExecutor,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		_ = q.conn.FlushTimeout(2 * time.Second)
		q.conn.Close()
	}
}

func (q *Queue) PublishHarvestRequest(ctx context.Context, req domain.HarvestRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return q.publishJSON(ctx, "nats.publish_request", q.requestSubject, req)
}

func (q *Queue) PublishCaseStored(ctx context.Context, event domain.CaseStoredEvent) error {
	return q.publishJSON(ctx, "nats.publish_case", q.caseSubject, event)
}

func (q *Queue) publishJSON(ctx context.Context, operation, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", subject, err)
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, operation, call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

// SubscribeHarvestRequests blocks until ctx is done, handing each decoded
// request to handler. Workers share one queue group, so a request runs once.
func (q *Queue) SubscribeHarvestRequests(ctx context.Context, handler func(context.Context, domain.HarvestRequest) error) error {
	sub, err := q.conn.QueueSubscribe(q.requestSubject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		req, err := DecodeHarvestRequest(msg.Data)
		if err != nil {
			slog.Warn("harvest_request_rejected", "subject", msg.Subject, "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, req); err != nil {
			slog.Error("harvest_request_failed",
				"date_start", req.DateStart,
				"date_end", req.DateEnd,
				"section_code", req.SectionCode,
				"error", err,
			)
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
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func DecodeHarvestRequest(data []byte) (domain.HarvestRequest, error) {
	var req domain.HarvestRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return domain.HarvestRequest{}, domain.WrapError(domain.ErrInvalidInput, "decode harvest request", err)
	}
	if err := req.Validate(); err != nil {
		return domain.HarvestRequest{}, err
	}
	return req, nil
}
