package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pbaille/fefe/internal/domain"
	"go.uber.org/zap"
)

// DefaultBaseURL is the archive root
const DefaultBaseURL = "https://blog.fefe.de"

// DefaultUserAgent identifies the crawler to the archive
const DefaultUserAgent = "fefe-corpus/1.0 (archive crawler)"

// maxPageSize caps a month page body (busy months run to a few MB)
const maxPageSize = 32 * 1024 * 1024

// Options configures a Fetcher. Zero values fall back to defaults.
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Client    *http.Client
	Renderer  Renderer
	Location  *time.Location
	Logger    *zap.Logger
}

// Fetcher retrieves and parses archive month pages
type Fetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	renderer  Renderer
	loc       *time.Location
	logger    *zap.Logger
}

// New creates a Fetcher
func New(opts Options) (*Fetcher, error) {
	base := opts.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	f := &Fetcher{
		client:    client,
		baseURL:   strings.TrimRight(base, "/"),
		userAgent: opts.UserAgent,
		renderer:  opts.Renderer,
		loc:       opts.Location,
		logger:    opts.Logger,
	}
	if f.userAgent == "" {
		f.userAgent = DefaultUserAgent
	}
	if f.renderer == nil {
		f.renderer = NewMarkdownRenderer()
	}
	if f.loc == nil {
		f.loc = time.Local
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	return f, nil
}

// MonthURL returns the archive page URL for a month
func (f *Fetcher) MonthURL(key domain.MonthKey) string {
	return f.baseURL + "/?mon=" + key.String()
}

// Fetch retrieves one month page and returns its articles in document order
func (f *Fetcher) Fetch(ctx context.Context, key domain.MonthKey) ([]domain.Article, error) {
	pageURL := f.MonthURL(key)
	f.logger.Info("fetching month", zap.String("month", key.String()), zap.String("url", pageURL))

	body, err := f.get(ctx, key, pageURL)
	if err != nil {
		return nil, err
	}

	articles, err := ParseMonth(bytes.NewReader(body), pageURL, f.renderer, f.loc)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Month = key
		}
		return nil, err
	}

	f.logger.Debug("parsed month",
		zap.String("month", key.String()),
		zap.Int("articles", len(articles)))
	return articles, nil
}

func (f *Fetcher) get(ctx context.Context, key domain.MonthKey, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &FetchError{Month: key, URL: pageURL, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{Month: key, URL: pageURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{Month: key, URL: pageURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, &FetchError{Month: key, URL: pageURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return body, nil
}
