package crawler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/keypriceworker/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	mu    sync.Mutex
	cache map[string][]byte
	err   error
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{
		cache: make(map[string][]byte),
	}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key)
	return nil
}

// fakePage is a canned response of fakeFetcher
type fakePage struct {
	status int
	html   string
	err    error
}

// fakeFetcher serves canned pages by URL and records the requested URLs
type fakeFetcher struct {
	pages     map[string]fakePage
	requested []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{pages: make(map[string]fakePage)}
}

func (f *fakeFetcher) serve(url string, status int, html string) {
	f.pages[url] = fakePage{status: status, html: html}
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (int, *goquery.Document, error) {
	f.requested = append(f.requested, url)

	page, ok := f.pages[url]
	if !ok {
		return 404, nil, nil
	}
	if page.err != nil {
		return 0, nil, page.err
	}
	if page.status != 200 {
		return page.status, nil, nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.html))
	return page.status, doc, err
}

// mustDoc parses an inline HTML fixture
func mustDoc(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(err)
	}
	return doc
}
