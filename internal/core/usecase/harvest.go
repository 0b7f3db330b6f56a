package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/dje-harvester/internal/core/dedup"
	"github.com/kirillkom/dje-harvester/internal/core/domain"
	"github.com/kirillkom/dje-harvester/internal/core/extraction"
	"github.com/kirillkom/dje-harvester/internal/core/ports"
)

const flushTimeout = 30 * time.Second

type harvestState string

const (
	stateSearching        harvestState = "searching"
	stateFetchingPage     harvestState = "fetching_page"
	stateExtractingIssue  harvestState = "extracting_issue"
	stateCheckingNextPage harvestState = "checking_next_page"
	stateDone             harvestState = "done"
	stateError            harvestState = "error"
)

type HarvestConfig struct {
	MaxPages        int
	Workers         int
	PersistEachPage *bool

	Archive ports.ObjectStorage
	Events  ports.CaseEventPublisher
	Metrics ports.HarvestMetrics
}

func DefaultHarvestConfig() HarvestConfig {
	persistEachPage := true
	return HarvestConfig{
		MaxPages:        500,
		Workers:         1,
		PersistEachPage: &persistEachPage,
	}
}

func (c HarvestConfig) normalize() HarvestConfig {
	out := c
	def := DefaultHarvestConfig()
	if out.MaxPages <= 0 {
		out.MaxPages = def.MaxPages
	}
	if out.Workers <= 0 {
		out.Workers = def.Workers
	}
	if out.PersistEachPage == nil {
		out.PersistEachPage = def.PersistEachPage
	}
	if out.Metrics == nil {
		out.Metrics = noopMetrics{}
	}
	return out
}

type HarvestUseCase struct {
	sessions  ports.SearchSessionOpener
	fetcher   ports.DocumentFetcher
	extractor ports.TextExtractor
	cases     *extraction.Extractor
	store     ports.GazetteStore
	cfg       HarvestConfig
}

func NewHarvestUseCase(
	sessions ports.SearchSessionOpener,
	fetcher ports.DocumentFetcher,
	extractor ports.TextExtractor,
	cases *extraction.Extractor,
	store ports.GazetteStore,
	cfg HarvestConfig,
) *HarvestUseCase {
	if cases == nil {
		cases = extraction.NewExtractor(nil)
	}
	return &HarvestUseCase{
		sessions:  sessions,
		fetcher:   fetcher,
		extractor: extractor,
		cases:     cases,
		store:     store,
		cfg:       cfg.normalize(),
	}
}

// runState is everything one Harvest call accumulates. It never outlives the
// call, so concurrent runs share nothing.
type runState struct {
	visited *dedup.VisitedSet
	pending []pendingIssue
	summary *domain.HarvestSummary
	state   harvestState
}

type pendingIssue struct {
	issue   *domain.GazetteIssue
	records []domain.CaseRecord
}

type documentStage string

const (
	stageDownload documentStage = "download"
	stageExtract  documentStage = "extract"
)

type documentResult struct {
	url        string
	issue      *domain.GazetteIssue
	extraction extraction.IssueExtraction
	stage      documentStage
	err        error
}

func newRunState(req domain.HarvestRequest) *runState {
	return &runState{
		visited: dedup.NewVisitedSet(),
		summary: &domain.HarvestSummary{Request: req},
	}
}

func (r *runState) transition(to harvestState) {
	slog.Debug("harvest_state", "from", string(r.state), "to", string(to), "page", r.summary.Pages)
	r.state = to
}

func (uc *HarvestUseCase) Harvest(ctx context.Context, req domain.HarvestRequest) (*domain.HarvestSummary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	started := time.Now()
	uc.cfg.Metrics.StartRun()
	run := newRunState(req)
	err := uc.run(ctx, run)
	if err != nil {
		run.transition(stateError)
	}
	uc.cfg.Metrics.ObserveRun(time.Since(started), err)

	slog.Info("harvest_finished",
		"date_start", req.DateStart,
		"date_end", req.DateEnd,
		"pages", run.summary.Pages,
		"documents", run.summary.DocumentsFetched,
		"duplicates", run.summary.DuplicatesSkipped,
		"issues_stored", run.summary.IssuesStored,
		"cases_stored", run.summary.CasesStored,
		"duration_ms", time.Since(started).Milliseconds(),
		"error", err,
	)
	return run.summary, err
}

func (uc *HarvestUseCase) run(ctx context.Context, run *runState) error {
	run.transition(stateSearching)
	session, err := uc.sessions.Open(ctx)
	if err != nil {
		return fmt.Errorf("open search session: %w", err)
	}
	defer session.Close()

	if err := session.Begin(ctx, run.summary.Request); err != nil {
		return fmt.Errorf("begin search: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return uc.stop(ctx, run, err)
		}

		run.transition(stateFetchingPage)
		urls, err := session.CurrentPageURLs(ctx)
		if err != nil {
			return uc.stop(ctx, run, fmt.Errorf("read result page %d: %w", run.summary.Pages+1, err))
		}
		run.summary.Pages++
		results := uc.fetchPage(ctx, run, urls)

		run.transition(stateExtractingIssue)
		uc.accumulate(run, results)
		if *uc.cfg.PersistEachPage {
			if err := uc.flush(ctx, run); err != nil {
				return err
			}
		}

		run.transition(stateCheckingNextPage)
		hasNext, err := session.HasNextPage(ctx)
		if err != nil {
			return uc.stop(ctx, run, fmt.Errorf("check next page: %w", err))
		}
		if !hasNext {
			break
		}
		if run.summary.Pages >= uc.cfg.MaxPages {
			return uc.stop(ctx, run, domain.WrapError(
				domain.ErrPaginationGuardTripped,
				"harvest",
				fmt.Errorf("still reporting a next page after %d pages", run.summary.Pages),
			))
		}
		if err := session.AdvanceToNextPage(ctx); err != nil {
			return uc.stop(ctx, run, fmt.Errorf("advance to page %d: %w", run.summary.Pages+1, err))
		}
	}

	run.transition(stateDone)
	return uc.flush(ctx, run)
}

// flush persists pending issues on ctx. Once ctx is done, before or during
// the flush, the remainder goes through stop and the ctx error is returned.
func (uc *HarvestUseCase) flush(ctx context.Context, run *runState) error {
	if ctx.Err() == nil {
		err := uc.persist(ctx, run)
		if err == nil || ctx.Err() == nil {
			return err
		}
	}
	return uc.stop(ctx, run, ctx.Err())
}

// stop flushes what was accumulated before surfacing cause. After
// cancellation the flush runs detached, bounded by flushTimeout.
func (uc *HarvestUseCase) stop(ctx context.Context, run *runState, cause error) error {
	if ctx.Err() != nil {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
		defer cancel()
		ctx = flushCtx
	}
	if err := uc.persist(ctx, run); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// fetchPage claims new URLs in page order, then fetches and extracts them on
// at most cfg.Workers goroutines. Results keep page order.
func (uc *HarvestUseCase) fetchPage(ctx context.Context, run *runState, urls []string) []documentResult {
	claimed := make([]string, 0, len(urls))
	for _, u := range urls {
		if !run.visited.MarkIfNew(u) {
			run.summary.DuplicatesSkipped++
			slog.Debug("document_duplicate_skipped", "url", u)
			continue
		}
		claimed = append(claimed, u)
	}

	results := make([]documentResult, len(claimed))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.cfg.Workers)
	for i, u := range claimed {
		g.Go(func() error {
			results[i] = uc.processDocument(gctx, u)
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("harvest_page_fetched", "page", run.summary.Pages, "listed", len(urls), "claimed", len(claimed))
	return results
}

func (uc *HarvestUseCase) processDocument(ctx context.Context, url string) documentResult {
	raw, err := uc.fetcher.Fetch(ctx, url)
	if err != nil {
		return documentResult{url: url, stage: stageDownload, err: err}
	}
	uc.archiveDocument(ctx, url, raw)

	text, err := uc.extractor.Extract(ctx, raw)
	if err != nil {
		return documentResult{url: url, stage: stageExtract, err: domain.WrapError(domain.ErrExtraction, "extract text", err)}
	}
	if strings.TrimSpace(text) == "" {
		return documentResult{url: url, stage: stageExtract, err: domain.WrapError(domain.ErrExtraction, "extract text", errors.New("empty extracted text"))}
	}

	x := uc.cases.ExtractIssue(text)
	return documentResult{
		url: url,
		issue: &domain.GazetteIssue{
			SourceURL:        dedup.NormalizeURL(url),
			AvailabilityDate: x.AvailabilityDate,
			FullText:         text,
		},
		extraction: x,
	}
}

func (uc *HarvestUseCase) accumulate(run *runState, results []documentResult) {
	for _, res := range results {
		if res.err != nil {
			switch res.stage {
			case stageDownload:
				run.summary.DownloadFailures++
				slog.Warn("document_download_failed", "url", res.url, "error", res.err)
			default:
				run.summary.ExtractionFailures++
				slog.Warn("document_extraction_failed", "url", res.url, "error", res.err)
			}
			uc.cfg.Metrics.ObserveDocument(string(res.stage) + "_error")
			continue
		}

		run.summary.DocumentsFetched++
		uc.cfg.Metrics.ObserveDocument("success")
		if res.issue.AvailabilityDate == nil {
			slog.Warn("issue_availability_date_missing", "url", res.url, "matched_blocks", res.extraction.Matched)
		}

		x := res.extraction
		run.summary.BlocksMatched += x.Matched
		for _, outcome := range x.Outcomes {
			switch outcome.Kind {
			case extraction.OutcomeSkipped:
				run.summary.BlocksSkipped++
				slog.Debug("case_block_skipped", "url", res.url, "block", outcome.BlockIndex, "reason", outcome.Reason)
			case extraction.OutcomeFailed:
				run.summary.BlocksFailed++
				slog.Warn("case_block_failed", "url", res.url, "block", outcome.BlockIndex, "error", outcome.Err)
			}
		}

		run.pending = append(run.pending, pendingIssue{issue: res.issue, records: x.Records()})
	}
}

// persist stores pending issues in accumulation order. An issue failure
// stops the run and leaves that issue pending; a case failure only skips
// that case.
func (uc *HarvestUseCase) persist(ctx context.Context, run *runState) error {
	for len(run.pending) > 0 {
		if err := uc.persistIssue(ctx, run, run.pending[0]); err != nil {
			return err
		}
		run.pending = run.pending[1:]
	}
	return nil
}

func (uc *HarvestUseCase) persistIssue(ctx context.Context, run *runState, item pendingIssue) error {
	issueID, err := uc.store.StoreIssue(ctx, item.issue)
	if err != nil {
		uc.cfg.Metrics.ObserveCase("issue_error")
		return domain.WrapError(domain.ErrPersistence, "store issue "+item.issue.SourceURL, err)
	}

	issue := *item.issue
	issue.ID = issueID
	stored := domain.StoredIssue{Issue: issue}

	for _, record := range item.records {
		if strings.TrimSpace(record.ProcessNumber) == "" {
			continue
		}
		if err := uc.store.StoreCase(ctx, issueID, &record); err != nil {
			run.summary.CaseStoreFailures++
			uc.cfg.Metrics.ObserveCase("error")
			slog.Warn("case_store_failed", "issue_id", issueID, "process_number", record.ProcessNumber, "error", err)
			continue
		}
		run.summary.CasesStored++
		uc.cfg.Metrics.ObserveCase("success")
		stored.Cases = append(stored.Cases, record)
		uc.publishCaseStored(ctx, issue, record)
	}

	run.summary.IssuesStored++
	run.summary.Stored = append(run.summary.Stored, stored)
	return nil
}
