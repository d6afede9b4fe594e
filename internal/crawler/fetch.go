package crawler

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"sjsage522/keypriceworker/helpers"
	"sjsage522/keypriceworker/logger"
	"sjsage522/keypriceworker/pkg/errors"
	"sjsage522/keypriceworker/services/cache"
)

// Fetcher returns the status and the parsed document of a URL.
// The document is nil unless the status is 200.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (int, *goquery.Document, error)
}

// HTTPFetcher fetches pages over HTTP with retries and a shared
// rate-limit block stored in the cache
type HTTPFetcher struct {
	Client     *http.Client
	MaxRetries int
	RetryDelay time.Duration
	CacheSvc   cache.CacheService
	CacheKey   string
	BlockTime  time.Duration

	// Limiter paces every request attempt, nil means unlimited
	Limiter *rate.Limiter
}

// NewHTTPFetcher creates a fetcher. cacheSvc may be nil.
func NewHTTPFetcher(client *http.Client, maxRetries int, retryDelay time.Duration, cacheSvc cache.CacheService, blockTime time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		Client:     client,
		MaxRetries: maxRetries,
		RetryDelay: retryDelay,
		CacheSvc:   cacheSvc,
		CacheKey:   "keyprice_rate_limited",
		BlockTime:  blockTime,
	}
}

// Fetch fetches url, retrying retryable transport errors and 5xx responses
// with exponential backoff. A 429 response sets the rate-limit block and is
// returned without retrying; while the block is set no request is sent.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (int, *goquery.Document, error) {
	log := logger.ForFetcher().WithField("url", url)

	if f.isBlocked() {
		log.Warn().Dur("block", f.BlockTime).Msg("Rate limit block active, skipping request")
		return http.StatusTooManyRequests, nil, nil
	}

	attempts := f.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	delay := f.RetryDelay
	for attempt := 1; attempt <= attempts; attempt++ {
		if f.Limiter != nil {
			if err := f.Limiter.Wait(ctx); err != nil {
				return 0, nil, err
			}
		}

		page, err := helpers.FetchWithRandomHeaders(ctx, f.Client, url)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, nil, ctxErr
			}
			if !isRetryable(err) {
				return 0, nil, err
			}
			lastErr = err
		case page.StatusCode == http.StatusOK:
			doc, err := goquery.NewDocumentFromReader(page.Body)
			if err != nil {
				return page.StatusCode, nil, fmt.Errorf("HTML parsing error: %w", err)
			}
			return page.StatusCode, doc, nil
		case page.StatusCode == http.StatusTooManyRequests:
			blockTime := f.block(page.RetryAfter)
			log.Warn().Err(errors.NewRateLimit("fetcher", blockTime)).Msg("Rate limited, blocking further requests")
			return page.StatusCode, nil, nil
		case !helpers.IsRetryableStatus(page.StatusCode):
			return page.StatusCode, nil, nil
		default:
			lastErr = fmt.Errorf("unexpected status code: %d", page.StatusCode)
			if attempt == attempts {
				log.Warn().Int("status", page.StatusCode).Int("attempts", attempts).Msg("Giving up on server errors")
				return page.StatusCode, nil, nil
			}
		}

		if attempt < attempts {
			log.Debug().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).Msg("Fetch failed, retrying")
			if err := sleepContext(ctx, delay); err != nil {
				return 0, nil, err
			}
			delay *= 2
		}
	}

	return 0, nil, fmt.Errorf("fetch %s failed after %d attempts: %w", url, attempts, lastErr)
}

// isBlocked reports whether an earlier 429 set the rate-limit block
func (f *HTTPFetcher) isBlocked() bool {
	if f.CacheSvc == nil || f.CacheKey == "" {
		return false
	}
	_, err := f.CacheSvc.Get(f.CacheKey)
	if err != nil && !stderrors.Is(err, cache.ErrMiss) {
		logger.ForCache().Debug().Err(errors.NewCache("fetcher", "rate limit lookup", err)).Msg("Rate limit lookup failed")
	}
	return err == nil
}

// block sets the rate-limit block, honouring a numeric Retry-After, and
// returns its duration
func (f *HTTPFetcher) block(retryAfter string) time.Duration {
	blockTime := f.BlockTime
	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		blockTime = time.Duration(seconds) * time.Second
	}

	if f.CacheSvc == nil || f.CacheKey == "" {
		return blockTime
	}

	value := []byte(strconv.Itoa(int(blockTime / time.Second)))
	if err := f.CacheSvc.Set(f.CacheKey, value, blockTime); err != nil {
		logger.ForCache().Warn().Err(errors.NewCache("fetcher", "rate limit block", err)).Msg("Failed to set rate limit block")
	}
	return blockTime
}

// isRetryable reports whether a transport error is worth another attempt.
// Errors outside the crawler taxonomy are retried.
func isRetryable(err error) bool {
	var ce *errors.CrawlerError
	if stderrors.As(err, &ce) {
		return ce.IsRetryable()
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
