package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/dje-harvester/internal/core/dedup"
	"github.com/kirillkom/dje-harvester/internal/core/domain"
)

// ArchiveKey names an archived document after its normalized source URL.
func ArchiveKey(url string) string {
	sum := sha256.Sum256([]byte(dedup.NormalizeURL(url)))
	return hex.EncodeToString(sum[:]) + ".pdf"
}

func (uc *HarvestUseCase) archiveDocument(ctx context.Context, url string, raw []byte) {
	if uc.cfg.Archive == nil {
		return
	}
	key := ArchiveKey(url)
	if err := uc.cfg.Archive.Save(ctx, key, bytes.NewReader(raw)); err != nil {
		slog.Warn("document_archive_failed", "url", url, "key", key, "error", err)
	}
}

func (uc *HarvestUseCase) publishCaseStored(ctx context.Context, issue domain.GazetteIssue, record domain.CaseRecord) {
	if uc.cfg.Events == nil {
		return
	}
	event := domain.CaseStoredEvent{
		EventID:       uuid.NewString(),
		IssueID:       issue.ID,
		ProcessNumber: record.ProcessNumber,
		SourceURL:     issue.SourceURL,
		StoredAt:      time.Now().UTC(),
	}
	if record.AvailabilityDate != nil {
		event.AvailabilityDate = record.AvailabilityDate.String()
	}
	if err := uc.cfg.Events.PublishCaseStored(ctx, event); err != nil {
		slog.Warn("case_event_publish_failed", "issue_id", issue.ID, "process_number", record.ProcessNumber, "error", err)
	}
}

type noopMetrics struct{}

func (noopMetrics) StartRun()                       {}
func (noopMetrics) ObserveDocument(string)          {}
func (noopMetrics) ObserveCase(string)              {}
func (noopMetrics) ObserveRun(time.Duration, error) {}
