package nats

import (
	"errors"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/resilience"
	"github.com/nats-io/nats.go"
)

// Link states the client recovers from by itself while reconnecting.
var transientPublishErrors = []error{
	nats.ErrTimeout,
	nats.ErrNoServers,
	nats.ErrDisconnected,
	nats.ErrConnectionReconnecting,
	nats.ErrReconnectBufExceeded,
}

// The connection is gone for good; only a restart brings it back.
var closedConnectionErrors = []error{
	nats.ErrConnectionClosed,
	nats.ErrConnectionDraining,
	nats.ErrInvalidConnection,
}

// The message itself is wrong; the server is healthy.
var rejectedMessageErrors = []error{
	nats.ErrBadSubject,
	nats.ErrMaxPayload,
	domain.ErrInvalidInput,
}

// classifyNATSError decides retries for harvest request and case event
// publishes. A closed connection counts against the breaker but is not
// retried, so the remaining case events of a run fail fast.
func classifyNATSError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case resilience.IsContextDone(err), resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case isAny(err, rejectedMessageErrors):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case isAny(err, closedConnectionErrors):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	case isAny(err, transientPublishErrors):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func wrapTemporaryIfNeeded(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyNATSError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "nats publish", err)
	}
	return err
}
