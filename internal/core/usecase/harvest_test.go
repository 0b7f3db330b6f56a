package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
	"github.com/kirillkom/dje-harvester/internal/core/extraction"
	"github.com/kirillkom/dje-harvester/internal/core/ports"
)

const docBase = "https://dje.example.org/cdje/consultaSimples.do?id="

func docURL(id string) string { return docBase + id }

func issueText(date string, numbers ...string) string {
	var b strings.Builder
	b.WriteString("Disponibilização: quarta-feira, " + date + "\nTribunal de Justiça")
	for _, n := range numbers {
		b.WriteString("\nProcesso " + n + " - Cumprimento de Sentença - Benefício - AUTOR " + n +
			" - INSS - Expeça-se RPV para pagamento pelo INSS. R$ 1.000,00 - principal bruto/líquido; ADV: DRA. FULANA")
	}
	return b.String()
}

type sessionFake struct {
	pages      [][]string
	alwaysNext bool
	current    int

	begun     *domain.HarvestRequest
	closed    bool
	advances  int
	onAdvance func()
	urlsErr   error
}

func (s *sessionFake) Begin(_ context.Context, req domain.HarvestRequest) error {
	s.begun = &req
	return nil
}

func (s *sessionFake) CurrentPageURLs(context.Context) ([]string, error) {
	if s.urlsErr != nil {
		return nil, s.urlsErr
	}
	if s.alwaysNext {
		return []string{docURL(fmt.Sprintf("page-%d", s.current))}, nil
	}
	if s.current < len(s.pages) {
		return s.pages[s.current], nil
	}
	return nil, nil
}

func (s *sessionFake) HasNextPage(context.Context) (bool, error) {
	if s.alwaysNext {
		return true, nil
	}
	return s.current < len(s.pages)-1, nil
}

func (s *sessionFake) AdvanceToNextPage(context.Context) error {
	s.current++
	s.advances++
	if s.onAdvance != nil {
		s.onAdvance()
	}
	return nil
}

func (s *sessionFake) Close() { s.closed = true }

type openerFake struct {
	session *sessionFake
	err     error
}

func (o *openerFake) Open(context.Context) (ports.SearchSession, error) {
	if o.err != nil {
		return nil, o.err
	}
	return o.session, nil
}

type fetcherFake struct {
	mu     sync.Mutex
	docs   map[string]string
	errs   map[string]error
	delays map[string]time.Duration
	calls  map[string]int

	afterFetch func(url string)
}

func newFetcherFake(docs map[string]string) *fetcherFake {
	return &fetcherFake{
		docs:   docs,
		errs:   map[string]error{},
		delays: map[string]time.Duration{},
		calls:  map[string]int{},
	}
}

func (f *fetcherFake) Fetch(_ context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls[url]++
	delay := f.delays[url]
	err := f.errs[url]
	doc, ok := f.docs[url]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if f.afterFetch != nil {
		f.afterFetch(url)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &domain.DownloadError{URL: url, StatusCode: 404}
	}
	return []byte(doc), nil
}

func (f *fetcherFake) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

type textFake struct{}

func (textFake) Extract(_ context.Context, raw []byte) (string, error) {
	if strings.HasPrefix(string(raw), "%BROKEN") {
		return "", errors.New("malformed xref table")
	}
	return string(raw), nil
}

type storedCase struct {
	issueID string
	record  domain.CaseRecord
}

type storeFake struct {
	t        *testing.T
	issues   []domain.GazetteIssue
	ids      map[string]bool
	cases    []storedCase
	issueErr map[string]error
	caseErr  map[string]error

	// honorCtx fails every call on a done context, like a database driver.
	honorCtx bool
}

func newStoreFake(t *testing.T) *storeFake {
	return &storeFake{t: t, ids: map[string]bool{}, issueErr: map[string]error{}, caseErr: map[string]error{}}
}

func (s *storeFake) StoreIssue(ctx context.Context, issue *domain.GazetteIssue) (string, error) {
	if s.honorCtx && ctx.Err() != nil {
		return "", ctx.Err()
	}
	if err := s.issueErr[issue.SourceURL]; err != nil {
		return "", err
	}
	id := fmt.Sprintf("issue-%d", len(s.issues)+1)
	s.ids[id] = true
	copied := *issue
	copied.ID = id
	s.issues = append(s.issues, copied)
	return id, nil
}

func (s *storeFake) StoreCase(ctx context.Context, issueID string, record *domain.CaseRecord) error {
	if s.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	if !s.ids[issueID] {
		s.t.Errorf("case %s stored before issue %s", record.ProcessNumber, issueID)
	}
	if err := s.caseErr[record.ProcessNumber]; err != nil {
		return err
	}
	s.cases = append(s.cases, storedCase{issueID: issueID, record: *record})
	return nil
}

func (s *storeFake) sourceURLs() []string {
	out := make([]string, 0, len(s.issues))
	for _, issue := range s.issues {
		out = append(out, issue.SourceURL)
	}
	return out
}

type eventsFake struct {
	events []domain.CaseStoredEvent
	err    error
}

func (f *eventsFake) PublishCaseStored(_ context.Context, event domain.CaseStoredEvent) error {
	f.events = append(f.events, event)
	return f.err
}

type archiveFake struct {
	saved map[string]string
}

func (f *archiveFake) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.saved[key] = string(raw)
	return nil
}

func (f *archiveFake) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, errors.New("not implemented")
}

type metricsFake struct {
	documents map[string]int
	cases     map[string]int
	runErr    error
	started   int
	runs      int
}

func newMetricsFake() *metricsFake {
	return &metricsFake{documents: map[string]int{}, cases: map[string]int{}}
}

func (m *metricsFake) StartRun()                             { m.started++ }
func (m *metricsFake) ObserveDocument(status string)         { m.documents[status]++ }
func (m *metricsFake) ObserveCase(status string)             { m.cases[status]++ }
func (m *metricsFake) ObserveRun(_ time.Duration, err error) { m.runs++; m.runErr = err }

func validRequest() domain.HarvestRequest {
	return domain.HarvestRequest{
		DateStart:   "13/11/2024",
		DateEnd:     "13/11/2024",
		SectionCode: "12",
		QueryTerm:   `"RPV" e "pagamento pelo INSS"`,
	}
}

func newHarvest(session *sessionFake, fetcher *fetcherFake, store *storeFake, cfg HarvestConfig) *HarvestUseCase {
	return NewHarvestUseCase(
		&openerFake{session: session},
		fetcher,
		textFake{},
		extraction.NewExtractor(extraction.NewSegmenter(nil)),
		store,
		cfg,
	)
}

func TestHarvestDeduplicatesAcrossPages(t *testing.T) {
	session := &sessionFake{pages: [][]string{
		{docURL("A"), docURL("B")},
		{docURL("B"), docURL("C")},
	}}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024", "0000001-11.2024.8.26.0053"),
		docURL("B"): issueText("13 de novembro de 2024", "0000002-22.2024.8.26.0053"),
		docURL("C"): issueText("13 de novembro de 2024", "0000003-33.2024.8.26.0053"),
	})
	store := newStoreFake(t)

	summary, err := newHarvest(session, fetcher, store, HarvestConfig{}).Harvest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}

	want := []string{docURL("A"), docURL("B"), docURL("C")}
	if diff := cmp.Diff(want, store.sourceURLs()); diff != "" {
		t.Fatalf("stored issues mismatch (-want +got):\n%s", diff)
	}
	if fetcher.calls[docURL("B")] != 1 {
		t.Fatalf("expected B fetched once, got %d", fetcher.calls[docURL("B")])
	}
	if summary.Pages != 2 || summary.DuplicatesSkipped != 1 || summary.IssuesStored != 3 || summary.CasesStored != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !session.closed {
		t.Fatalf("expected session to be closed")
	}
	if session.begun == nil || session.begun.SectionCode != "12" {
		t.Fatalf("expected search to begin with request, got %+v", session.begun)
	}
}

func TestHarvestSamePageTwiceIsIdempotent(t *testing.T) {
	page := []string{docURL("A"), docURL("B"), docURL("A")}
	session := &sessionFake{pages: [][]string{page, page}}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024", "0000001-11.2024.8.26.0053"),
		docURL("B"): issueText("13 de novembro de 2024"),
	})
	store := newStoreFake(t)

	summary, err := newHarvest(session, fetcher, store, HarvestConfig{}).Harvest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(store.issues) != 2 || len(store.cases) != 1 {
		t.Fatalf("expected 2 issues and 1 case, got %d and %d", len(store.issues), len(store.cases))
	}
	if fetcher.totalCalls() != 2 {
		t.Fatalf("expected 2 fetches, got %d", fetcher.totalCalls())
	}
	if summary.DuplicatesSkipped != 4 {
		t.Fatalf("expected 4 duplicates skipped, got %d", summary.DuplicatesSkipped)
	}
}

func TestHarvestStopsWhenSessionReportsLastPage(t *testing.T) {
	pages := make([][]string, 0, 5)
	docs := map[string]string{}
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("p%d", i)
		pages = append(pages, []string{docURL(id)})
		docs[docURL(id)] = issueText("13 de novembro de 2024")
	}
	session := &sessionFake{pages: pages}
	store := newStoreFake(t)

	summary, err := newHarvest(session, newFetcherFake(docs), store, HarvestConfig{MaxPages: 5}).
		Harvest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("expected exactly MaxPages pages to finish cleanly, got %v", err)
	}
	if summary.Pages != 5 || len(store.issues) != 5 {
		t.Fatalf("expected 5 pages and 5 issues, got %d and %d", summary.Pages, len(store.issues))
	}
}

func TestHarvestPaginationGuardTrips(t *testing.T) {
	session := &sessionFake{alwaysNext: true}
	docs := map[string]string{}
	for i := 0; i < 10; i++ {
		docs[docURL(fmt.Sprintf("page-%d", i))] = issueText("13 de novembro de 2024", fmt.Sprintf("000000%d-11.2024.8.26.0053", i))
	}
	store := newStoreFake(t)
	metrics := newMetricsFake()
	persistEachPage := false

	summary, err := newHarvest(session, newFetcherFake(docs), store, HarvestConfig{
		MaxPages:        3,
		PersistEachPage: &persistEachPage,
		Metrics:         metrics,
	}).Harvest(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrPaginationGuardTripped) {
		t.Fatalf("expected pagination guard error, got %v", err)
	}
	if summary.Pages != 3 || session.advances != 2 {
		t.Fatalf("expected 3 pages and 2 advances, got %d and %d", summary.Pages, session.advances)
	}
	if len(store.issues) != 3 || len(store.cases) != 3 {
		t.Fatalf("expected accumulated data to be flushed, got %d issues %d cases", len(store.issues), len(store.cases))
	}
	if metrics.started != 1 || metrics.runs != 1 || !errors.Is(metrics.runErr, domain.ErrPaginationGuardTripped) {
		t.Fatalf("expected run metric with guard error, got %+v", metrics)
	}
}

func TestHarvestContinuesAfterPerURLFailures(t *testing.T) {
	session := &sessionFake{pages: [][]string{{docURL("A"), docURL("B"), docURL("C"), docURL("D")}}}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024", "0000001-11.2024.8.26.0053"),
		docURL("C"): "%BROKEN pdf",
		docURL("D"): issueText("13 de novembro de 2024", "0000004-44.2024.8.26.0053"),
	})
	fetcher.errs[docURL("B")] = &domain.DownloadError{URL: docURL("B"), StatusCode: 500}
	store := newStoreFake(t)
	metrics := newMetricsFake()

	summary, err := newHarvest(session, fetcher, store, HarvestConfig{Metrics: metrics}).
		Harvest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if summary.DownloadFailures != 1 || summary.ExtractionFailures != 1 {
		t.Fatalf("expected one download and one extraction failure, got %+v", summary)
	}
	if diff := cmp.Diff([]string{docURL("A"), docURL("D")}, store.sourceURLs()); diff != "" {
		t.Fatalf("stored issues mismatch (-want +got):\n%s", diff)
	}
	if metrics.documents["download_error"] != 1 || metrics.documents["extract_error"] != 1 || metrics.documents["success"] != 2 {
		t.Fatalf("unexpected document metrics: %+v", metrics.documents)
	}
}

func TestHarvestIssueStoreFailureStopsRun(t *testing.T) {
	session := &sessionFake{pages: [][]string{{docURL("A"), docURL("B"), docURL("C")}}}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024", "0000001-11.2024.8.26.0053"),
		docURL("B"): issueText("13 de novembro de 2024", "0000002-22.2024.8.26.0053"),
		docURL("C"): issueText("13 de novembro de 2024", "0000003-33.2024.8.26.0053"),
	})
	store := newStoreFake(t)
	store.issueErr[docURL("B")] = errors.New("connection reset")

	summary, err := newHarvest(session, fetcher, store, HarvestConfig{}).Harvest(context.Background(), validRequest())
	if !errors.Is(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if diff := cmp.Diff([]string{docURL("A")}, store.sourceURLs()); diff != "" {
		t.Fatalf("stored issues mismatch (-want +got):\n%s", diff)
	}
	if len(store.cases) != 1 || store.cases[0].record.ProcessNumber != "0000001-11.2024.8.26.0053" {
		t.Fatalf("expected only A's case, got %+v", store.cases)
	}
	if summary.IssuesStored != 1 {
		t.Fatalf("expected 1 stored issue, got %d", summary.IssuesStored)
	}
}

func TestHarvestCaseStoreFailureSkipsOnlyThatCase(t *testing.T) {
	session := &sessionFake{pages: [][]string{{docURL("A")}}}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024",
			"0000001-11.2024.8.26.0053", "0000002-22.2024.8.26.0053", "0000003-33.2024.8.26.0053"),
	})
	store := newStoreFake(t)
	store.caseErr["0000002-22.2024.8.26.0053"] = errors.New("value too long")
	events := &eventsFake{}

	summary, err := newHarvest(session, fetcher, store, HarvestConfig{Events: events}).
		Harvest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if summary.CasesStored != 2 || summary.CaseStoreFailures != 1 {
		t.Fatalf("expected 2 stored and 1 failed case, got %+v", summary)
	}
	if len(events.events) != 2 {
		t.Fatalf("expected 2 case events, got %d", len(events.events))
	}
	ev := events.events[0]
	if ev.IssueID != "issue-1" || ev.AvailabilityDate != "13/11/2024" || ev.EventID == "" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if len(summary.Stored) != 1 || len(summary.Stored[0].Cases) != 2 || summary.Stored[0].Issue.ID != "issue-1" {
		t.Fatalf("unexpected stored summary: %+v", summary.Stored)
	}
}

func TestHarvestStoresIssueWithoutDateButNoCases(t *testing.T) {
	session := &sessionFake{pages: [][]string{{docURL("A")}}}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): "Sem cabeçalho\nProcesso 0000001-11.2024.8.26.0053 - RPV - pagamento pelo INSS",
	})
	store := newStoreFake(t)

	summary, err := newHarvest(session, fetcher, store, HarvestConfig{}).Harvest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if len(store.issues) != 1 || store.issues[0].AvailabilityDate != nil {
		t.Fatalf("expected one issue without date, got %+v", store.issues)
	}
	if len(store.cases) != 0 || summary.BlocksSkipped != 1 {
		t.Fatalf("expected the case to be skipped, got cases=%d summary=%+v", len(store.cases), summary)
	}
}

func TestHarvestWorkerPoolPreservesPageOrder(t *testing.T) {
	session := &sessionFake{pages: [][]string{{docURL("A"), docURL("B"), docURL("C")}}}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024", "0000001-11.2024.8.26.0053"),
		docURL("B"): issueText("13 de novembro de 2024", "0000002-22.2024.8.26.0053"),
		docURL("C"): issueText("13 de novembro de 2024", "0000003-33.2024.8.26.0053"),
	})
	fetcher.delays[docURL("A")] = 30 * time.Millisecond
	fetcher.delays[docURL("B")] = 10 * time.Millisecond
	store := newStoreFake(t)

	_, err := newHarvest(session, fetcher, store, HarvestConfig{Workers: 3}).Harvest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if diff := cmp.Diff([]string{docURL("A"), docURL("B"), docURL("C")}, store.sourceURLs()); diff != "" {
		t.Fatalf("stored order mismatch (-want +got):\n%s", diff)
	}
	for i, c := range store.cases {
		if c.issueID != fmt.Sprintf("issue-%d", i+1) {
			t.Fatalf("case %d stored against %s", i, c.issueID)
		}
	}
}

func TestHarvestCancellationKeepsFlushedPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := &sessionFake{
		pages:     [][]string{{docURL("A")}, {docURL("B")}},
		onAdvance: cancel,
	}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024", "0000001-11.2024.8.26.0053"),
		docURL("B"): issueText("13 de novembro de 2024", "0000002-22.2024.8.26.0053"),
	})
	store := newStoreFake(t)

	_, err := newHarvest(session, fetcher, store, HarvestConfig{}).Harvest(ctx, validRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if diff := cmp.Diff([]string{docURL("A")}, store.sourceURLs()); diff != "" {
		t.Fatalf("stored issues mismatch (-want +got):\n%s", diff)
	}
	if fetcher.calls[docURL("B")] != 0 {
		t.Fatalf("expected page 2 not to be fetched")
	}
}

func TestHarvestArchivesDownloadedDocuments(t *testing.T) {
	session := &sessionFake{pages: [][]string{{docURL("A")}}}
	text := issueText("13 de novembro de 2024")
	fetcher := newFetcherFake(map[string]string{docURL("A"): text})
	archive := &archiveFake{saved: map[string]string{}}

	_, err := newHarvest(session, fetcher, newStoreFake(t), HarvestConfig{Archive: archive}).
		Harvest(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Harvest() error = %v", err)
	}
	if archive.saved[ArchiveKey(docURL("A"))] != text {
		t.Fatalf("expected document archived under %s, got keys %v", ArchiveKey(docURL("A")), archive.saved)
	}
}

func TestHarvestRejectsInvalidRequest(t *testing.T) {
	req := validRequest()
	req.DateStart = "2024-11-13"
	opener := &openerFake{err: errors.New("must not open")}
	uc := NewHarvestUseCase(opener, newFetcherFake(nil), textFake{}, nil, newStoreFake(t), HarvestConfig{})

	_, err := uc.Harvest(context.Background(), req)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestHarvestSurfacesSessionErrorsAfterFlushing(t *testing.T) {
	session := &sessionFake{pages: [][]string{{docURL("A")}, {docURL("B")}}}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024"),
	})
	store := newStoreFake(t)
	persistEachPage := false
	session.onAdvance = func() { session.urlsErr = errors.New("selector timeout") }

	_, err := newHarvest(session, fetcher, store, HarvestConfig{PersistEachPage: &persistEachPage}).
		Harvest(context.Background(), validRequest())
	if err == nil || !strings.Contains(err.Error(), "selector timeout") {
		t.Fatalf("expected session error, got %v", err)
	}
	if len(store.issues) != 1 {
		t.Fatalf("expected page 1 to be flushed, got %d issues", len(store.issues))
	}
}

func TestHarvestCancellationFlushesAccumulatedIssues(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := &sessionFake{
		pages:     [][]string{{docURL("A")}, {docURL("B")}},
		onAdvance: cancel,
	}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024", "0000001-11.2024.8.26.0053"),
	})
	store := newStoreFake(t)
	persistEachPage := false

	_, err := newHarvest(session, fetcher, store, HarvestConfig{PersistEachPage: &persistEachPage}).Harvest(ctx, validRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(store.issues) != 1 || len(store.cases) != 1 {
		t.Fatalf("expected page 1 flushed after cancellation, got %d issues %d cases", len(store.issues), len(store.cases))
	}
}

func TestHarvestCancellationDuringPageKeepsFetchedDocuments(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := &sessionFake{pages: [][]string{{docURL("A"), docURL("B")}, {docURL("C")}}}
	fetcher := newFetcherFake(map[string]string{
		docURL("A"): issueText("13 de novembro de 2024", "0000001-11.2024.8.26.0053"),
		docURL("B"): issueText("13 de novembro de 2024", "0000002-22.2024.8.26.0053"),
		docURL("C"): issueText("13 de novembro de 2024", "0000003-33.2024.8.26.0053"),
	})
	fetcher.afterFetch = func(url string) {
		if url == docURL("B") {
			cancel()
		}
	}
	store := newStoreFake(t)
	store.honorCtx = true

	summary, err := newHarvest(session, fetcher, store, HarvestConfig{}).Harvest(ctx, validRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("expected no persistence error, got %v", err)
	}
	if diff := cmp.Diff([]string{docURL("A"), docURL("B")}, store.sourceURLs()); diff != "" {
		t.Fatalf("stored issues mismatch (-want +got):\n%s", diff)
	}
	if len(store.cases) != 2 || summary.CasesStored != 2 {
		t.Fatalf("expected 2 cases stored, got %d (summary %d)", len(store.cases), summary.CasesStored)
	}
	if session.advances != 0 {
		t.Fatalf("expected no advance after cancellation, got %d", session.advances)
	}
}

func TestHarvestIssueStoreFailureKeepsIssuePending(t *testing.T) {
	store := newStoreFake(t)
	store.issueErr[docURL("B")] = errors.New("connection reset")
	uc := newHarvest(&sessionFake{}, newFetcherFake(nil), store, HarvestConfig{})

	run := newRunState(validRequest())
	for _, id := range []string{"A", "B", "C"} {
		run.pending = append(run.pending, pendingIssue{issue: &domain.GazetteIssue{SourceURL: docURL(id)}})
	}

	if err := uc.persist(context.Background(), run); !domain.IsKind(err, domain.ErrPersistence) {
		t.Fatalf("expected persistence error, got %v", err)
	}
	if len(run.pending) != 2 || run.pending[0].issue.SourceURL != docURL("B") {
		t.Fatalf("expected B and C still pending, got %d items", len(run.pending))
	}
	if run.summary.IssuesStored != 1 {
		t.Fatalf("expected 1 issue stored, got %d", run.summary.IssuesStored)
	}
}
