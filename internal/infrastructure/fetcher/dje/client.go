package dje

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/kirillkom/dje-harvester/internal/core/domain"
	"github.com/kirillkom/dje-harvester/internal/infrastructure/resilience"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type Options struct {
	Timeout            time.Duration
	RatePerSecond      float64
	UserAgent          string
	ResilienceExecutor *resilience.Executor
}

// Client downloads gazette documents from the DJE document endpoint.
type Client struct {
	http     *resty.Client
	executor *resilience.Executor
}

func New() (*Client, error) {
	return NewWithOptions(Options{})
}

func NewWithOptions(options Options) (*Client, error) {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	perSecond := options.RatePerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	userAgent := strings.TrimSpace(options.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	httpClient := resty.New()
	httpClient.SetCookieJar(jar)
	httpClient.SetTimeout(timeout)
	httpClient.SetHeader("User-Agent", userAgent)

	burst := max(int(perSecond), 1)
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return &Client{
		http:     httpClient,
		executor: options.ResilienceExecutor,
	}, nil
}

func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	target := RewriteURL(url)
	call := func(ctx context.Context) ([]byte, error) {
		res, err := c.http.R().
			SetContext(ctx).
			Get(target)
		if err != nil {
			return nil, fmt.Errorf("dje fetch %s: %w", target, err)
		}
		if !res.IsSuccess() {
			return nil, &domain.DownloadError{URL: target, StatusCode: res.StatusCode()}
		}
		return res.Body(), nil
	}

	body, err := resilience.Do(ctx, c.executor, "dje.fetch", call, classifyFetchError)
	if err != nil {
		return nil, wrapTemporaryIfNeeded(err)
	}
	return body, nil
}
