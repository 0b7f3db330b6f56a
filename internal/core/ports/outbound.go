package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
)

// SearchSession drives the gazette search form and its paginated result list.
type SearchSession interface {
	Begin(ctx context.Context, req domain.HarvestRequest) error
	CurrentPageURLs(ctx context.Context) ([]string, error)
	HasNextPage(ctx context.Context) (bool, error)
	AdvanceToNextPage(ctx context.Context) error
	Close()
}

// DocumentFetcher downloads the raw document behind one result URL.
type DocumentFetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TextExtractor converts raw document bytes to plain text.
type TextExtractor interface {
	Extract(ctx context.Context, raw []byte) (string, error)
}

// GazetteStore persists issues and the cases that reference them.
type GazetteStore interface {
	StoreIssue(ctx context.Context, issue *domain.GazetteIssue) (string, error)
	StoreCase(ctx context.Context, issueID string, record *domain.CaseRecord) error
}

// ObjectStorage archives downloaded documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// CaseEventPublisher announces stored cases to downstream consumers.
type CaseEventPublisher interface {
	PublishCaseStored(ctx context.Context, event domain.CaseStoredEvent) error
}

// HarvestRequestQueue delivers harvest requests to workers.
type HarvestRequestQueue interface {
	PublishHarvestRequest(ctx context.Context, req domain.HarvestRequest) error
	SubscribeHarvestRequests(ctx context.Context, handler func(context.Context, domain.HarvestRequest) error) error
}

// SearchSessionOpener starts a fresh search session for each run.
type SearchSessionOpener interface {
	Open(ctx context.Context) (SearchSession, error)
}

// HarvestMetrics records pipeline progress.
type HarvestMetrics interface {
	StartRun()
	ObserveDocument(status string)
	ObserveCase(status string)
	ObserveRun(duration time.Duration, err error)
}
