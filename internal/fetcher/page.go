// Package fetcher retrieves listing pages and distills them into compact
// evidence excerpts for the ranking oracle. Fetches run through a bounded
// worker pool with bounded retries and an on-disk cache keyed by URL hash;
// failures degrade to an explicit "unavailable" evidence value, never an
// error that stalls the pipeline.
package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/farelens/deals-cli/internal/config"
	"github.com/farelens/deals-cli/internal/resilience"
)

// Evidence is the outcome of one page fetch. Unavailable distinguishes
// "fetch failed" from "fetched but nothing relevant on the page".
type Evidence struct {
	URL         string
	Text        string
	Unavailable bool
	FromCache   bool
}

// PageFetcher fetches pages concurrently and extracts evidence text.
type PageFetcher struct {
	cfg  config.FetchConfig
	http *http.Client
}

// NewPageFetcher builds a fetcher with a connection pool sized to the
// configured parallelism.
func NewPageFetcher(cfg config.FetchConfig) *PageFetcher {
	if cfg.Parallel <= 0 {
		cfg.Parallel = 12
	}
	if cfg.TimeoutSecs <= 0 {
		cfg.TimeoutSecs = 20
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 * 1024 * 1024
	}
	if cfg.EvidenceMaxChars <= 0 {
		cfg.EvidenceMaxChars = 3500
	}
	return &PageFetcher{
		cfg: cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSecs) * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: cfg.Parallel,
				IdleConnTimeout:     90 * time.Second,
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// FetchAll fetches evidence for every URL concurrently. Results are
// re-associated positionally with the input slice, so callers can rely on
// index alignment regardless of completion order.
func (f *PageFetcher) FetchAll(ctx context.Context, urls []string) []Evidence {
	results := make([]Evidence, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(f.cfg.Parallel)
	for i, u := range urls {
		g.Go(func() error {
			results[i] = f.Fetch(gCtx, u)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Fetch returns evidence for one URL, consulting the disk cache first. A
// cache hit skips the network entirely. Terminal fetch failure yields an
// Unavailable evidence value.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) Evidence {
	if f.cfg.CachePages {
		if text, ok := f.cacheGet(rawURL); ok {
			return Evidence{URL: rawURL, Text: text, FromCache: true}
		}
	}

	body, err := f.download(ctx, rawURL)
	if err != nil {
		zap.L().Debug("fetch: page unavailable",
			zap.String("url", rawURL),
			zap.Error(err),
		)
		return Evidence{URL: rawURL, Unavailable: true}
	}

	text := ExtractRelevant(StripHTML(strings.NewReader(body)), f.cfg.EvidenceMaxChars)

	if f.cfg.CachePages {
		f.cachePut(rawURL, text)
	}

	return Evidence{URL: rawURL, Text: text}
}

// download performs the HTTP GET with bounded retries on transient statuses.
func (f *PageFetcher) download(ctx context.Context, rawURL string) (string, error) {
	retryCfg := resilience.DefaultRetryConfig()
	if f.cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = f.cfg.MaxRetries
	}
	retryCfg.OnRetry = resilience.RetryLogger("fetch", rawURL)

	return resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return "", eris.Wrap(err, "fetch: create request")
		}
		req.Header.Set("User-Agent", f.cfg.UserAgent)
		req.Header.Set("Accept", "text/html,application/xhtml+xml")

		resp, err := f.http.Do(req)
		if err != nil {
			return "", resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close()

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return "", resilience.NewTransientError(
				eris.Errorf("fetch: status %d for %s", resp.StatusCode, rawURL),
				resp.StatusCode,
			)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", eris.Errorf("fetch: status %d for %s", resp.StatusCode, rawURL)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
		if err != nil {
			return "", resilience.NewTransientError(err, 0)
		}
		return string(body), nil
	})
}

// cacheKey hashes the URL into a stable cache filename.
func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:]) + ".txt"
}

func (f *PageFetcher) cachePath(rawURL string) string {
	return filepath.Join(f.cfg.CacheDir, cacheKey(rawURL))
}

func (f *PageFetcher) cacheGet(rawURL string) (string, bool) {
	data, err := os.ReadFile(f.cachePath(rawURL))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// cachePut writes via temp file + rename. Concurrent fetchers may race on
// the same URL; writes are idempotent so last-writer-wins is fine.
func (f *PageFetcher) cachePut(rawURL, text string) {
	if err := os.MkdirAll(f.cfg.CacheDir, 0o755); err != nil {
		zap.L().Warn("fetch: cache dir create failed", zap.Error(err))
		return
	}
	path := f.cachePath(rawURL)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(text), 0o644); err != nil {
		zap.L().Warn("fetch: cache write failed", zap.String("url", rawURL), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		zap.L().Warn("fetch: cache rename failed", zap.String("url", rawURL), zap.Error(err))
	}
}
