package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
)

// ErrInvalidURL is returned for references that are not absolute http(s) URLs.
var ErrInvalidURL = errors.New("invalid image URL")

// ValidateURL checks that raw is an absolute http or https URL with a host.
func ValidateURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: scheme must be http or https, got %q", ErrInvalidURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	return u, nil
}

// StatusError is a non-2xx answer from an image host.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

// FetcherConfig configures remote image downloads.
type FetcherConfig struct {
	Timeout  time.Duration // per attempt (default: 30s)
	Attempts uint          // default: 3
	Delay    time.Duration // base backoff delay (default: 500ms)
	MaxBytes int           // default: DefaultMaxBytes
	Client   *http.Client  // optional (tests)
	Logger   *slog.Logger
}

// Fetcher downloads remote images with retry. Client errors (4xx other than
// 408 and 429) are not retried.
type Fetcher struct {
	client   *http.Client
	attempts uint
	delay    time.Duration
	maxBytes int
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Attempts == 0 {
		cfg.Attempts = 3
	}
	if cfg.Delay == 0 {
		cfg.Delay = 500 * time.Millisecond
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Fetcher{
		client:   cfg.Client,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		maxBytes: cfg.MaxBytes,
		logger:   cfg.Logger,
	}
}

// Fetch downloads the image at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	target := u.String()

	return retry.DoWithData(
		func() ([]byte, error) {
			return f.get(ctx, target)
		},
		retry.Context(ctx),
		retry.Attempts(f.attempts),
		retry.Delay(f.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			f.logger.Debug("retrying image fetch", "url", target, "attempt", n+1, "error", err)
		}),
	)
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "image/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{URL: target, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 &&
			resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Unrecoverable(serr)
		}
		return nil, serr
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, int64(f.maxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	if len(data) > f.maxBytes {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.maxBytes))
	}
	return data, nil
}
