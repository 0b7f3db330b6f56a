package chromedp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
	"github.com/kirillkom/dje-harvester/internal/core/ports"
)

const DefaultBaseURL = "https://dje.tjsp.jus.br"

const (
	startDateSelector = "#dtInicioString"
	endDateSelector   = "#dtFimString"
	sectionSelector   = "[name='dadosConsulta.cdCaderno']"
	termSelector      = "#procura"
	submitSelector    = `input[type="submit"]`
	nextPageXPath     = `//a[contains(normalize-space(.), "Próximo>")]`
)

type Options struct {
	BaseURL     string
	Headless    *bool
	StepTimeout time.Duration
	SettleDelay time.Duration
}

func (o Options) normalize() Options {
	out := o
	out.BaseURL = strings.TrimRight(strings.TrimSpace(out.BaseURL), "/")
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Headless == nil {
		headless := true
		out.Headless = &headless
	}
	if out.StepTimeout <= 0 {
		out.StepTimeout = 60 * time.Second
	}
	if out.SettleDelay < 0 {
		out.SettleDelay = 0
	}
	return out
}

// Opener starts one headless browser per harvest run.
type Opener struct {
	opts Options
}

func NewOpener(opts Options) *Opener {
	return &Opener{opts: opts.normalize()}
}

func (o *Opener) Open(ctx context.Context) (ports.SearchSession, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", *o.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	// The browser lives as long as the session, not as long as Open's caller.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}

	return &Session{
		opts:          o.opts,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		allocCancel:   allocCancel,
	}, nil
}

// Session is one search in one browser tab. It is not safe for concurrent use.
type Session struct {
	opts Options

	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc

	page int
}

func (s *Session) Begin(ctx context.Context, req domain.HarvestRequest) error {
	indexURL := s.opts.BaseURL + "/cdje/index.do"
	err := s.run(ctx,
		chromedp.Navigate(indexURL),
		chromedp.WaitReady(startDateSelector, chromedp.ByQuery),
		removeReadonly(startDateSelector),
		chromedp.SetValue(startDateSelector, req.DateStart, chromedp.ByQuery),
		chromedp.WaitReady(endDateSelector, chromedp.ByQuery),
		removeReadonly(endDateSelector),
		chromedp.SetValue(endDateSelector, req.DateEnd, chromedp.ByQuery),
		chromedp.SetValue(sectionSelector, req.SectionCode, chromedp.ByQuery),
		chromedp.WaitReady(termSelector, chromedp.ByQuery),
		chromedp.SetValue(termSelector, req.QueryTerm, chromedp.ByQuery),
		chromedp.Click(submitSelector, chromedp.ByQuery),
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("submit search form: %w", err)
	}
	s.page = 1
	slog.Info("search_submitted",
		"date_start", req.DateStart,
		"date_end", req.DateEnd,
		"section_code", req.SectionCode,
	)
	return nil
}

func (s *Session) CurrentPageURLs(ctx context.Context) ([]string, error) {
	html, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	urls, err := ParseResultLinks(html, s.opts.BaseURL)
	if err != nil {
		return nil, err
	}
	slog.Info("search_page_loaded", "page", s.page, "links", len(urls))
	return urls, nil
}

func (s *Session) HasNextPage(ctx context.Context) (bool, error) {
	html, err := s.snapshot(ctx)
	if err != nil {
		return false, err
	}
	return HasNextLink(html)
}

func (s *Session) AdvanceToNextPage(ctx context.Context) error {
	err := s.run(ctx,
		chromedp.Click(nextPageXPath, chromedp.BySearch),
		chromedp.Sleep(s.opts.SettleDelay),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("click next page: %w", err)
	}
	s.page++
	return nil
}

func (s *Session) Close() {
	s.browserCancel()
	s.allocCancel()
}

func (s *Session) snapshot(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read result page: %w", err)
	}
	return html, nil
}

// run executes actions in the browser tab, bounded by the step timeout and
// by the caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(s.browserCtx, s.opts.StepTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(stepCtx, actions...)
}

func removeReadonly(selector string) chromedp.Action {
	return chromedp.Evaluate(
		fmt.Sprintf(`document.querySelector(%q).removeAttribute('readonly')`, selector),
		nil,
	)
}
