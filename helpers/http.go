package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	mathrand "math/rand"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"sjsage522/keypriceworker/pkg/errors"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	}

	referers = []string{
		"https://www.google.fr/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}
)

// NewClient returns an HTTP client with the given timeout
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
	}
}

// Page is a fetched response. Body is only set for 200 responses and is
// always UTF-8.
type Page struct {
	StatusCode int
	RetryAfter string
	Body       io.Reader
}

// FetchWithRandomHeaders sends an HTTP GET request with randomized headers.
// Non-200 statuses are reported through Page.StatusCode, not as errors.
// A request that cannot be built fails with a validation error, transport
// and read failures with a network error.
func FetchWithRandomHeaders(ctx context.Context, client *http.Client, url string) (*Page, error) {
	// Create a new random number generator for header selection
	rnd := mathrand.New(mathrand.NewSource(time.Now().UnixNano()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewValidation("fetcher", fmt.Sprintf("invalid request URL %q: %v", url, err))
	}

	// Set browser-like headers
	req.Header.Set("User-Agent", userAgents[rnd.Intn(len(userAgents))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "fr-FR,fr;q=0.9,en-US;q=0.8,en;q=0.7")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("referer", referers[rnd.Intn(len(referers))])
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("upgrade-insecure-requests", "1")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	req.Header.Set("Sec-Fetch-User", "?1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.NewNetwork("fetcher", "failed to fetch URL", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		io.Copy(io.Discard, resp.Body)
		return &Page{
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
		}, nil
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewNetwork("fetcher", "failed to read response body", err)
	}

	body, err := toUTF8(bodyBytes, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, err
	}

	return &Page{StatusCode: resp.StatusCode, Body: body}, nil
}

// toUTF8 converts a response body to UTF-8 based on the Content-Type header
// and the body content
func toUTF8(bodyBytes []byte, contentType string) (io.Reader, error) {
	encoding, name, _ := charset.DetermineEncoding(bodyBytes, contentType)

	if strings.EqualFold(name, "utf-8") {
		return bytes.NewReader(bodyBytes), nil
	}

	utf8Reader := encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, utf8Reader); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}

	return &buf, nil
}

// IsRetryableStatus reports whether a status code is worth another attempt
func IsRetryableStatus(code int) bool {
	return code >= http.StatusInternalServerError
}
