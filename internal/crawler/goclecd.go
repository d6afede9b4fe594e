package crawler

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/keypriceworker/config"
	"sjsage522/keypriceworker/logger"
	"sjsage522/keypriceworker/pkg/errors"
)

const goclecdProvider = "Goclecd"

// GoclecdBuilder builds the ranked table of the goclecd top-click list
type GoclecdBuilder struct {
	URL       string
	Selectors config.GoclecdSelectors
	Fetcher   Fetcher

	// SortByPrice reorders the finalized rows by ascending price. It is off
	// by default so rows keep their page order.
	SortByPrice bool

	entries []RankedEntry
}

// NewGoclecdBuilder creates a ranked-list builder
func NewGoclecdBuilder(url string, selectors config.GoclecdSelectors, fetcher Fetcher) *GoclecdBuilder {
	return &GoclecdBuilder{
		URL:       url,
		Selectors: selectors,
		Fetcher:   fetcher,
	}
}

// GetName returns the builder name
func (b *GoclecdBuilder) GetName() string {
	return goclecdProvider
}

// FetchGameData fetches the front page and extracts the ranked list.
// gameName is ignored.
func (b *GoclecdBuilder) FetchGameData(ctx context.Context, _ string) error {
	log := logger.ForBuilder(b.GetName())
	b.entries = nil

	status, doc, err := b.Fetcher.Fetch(ctx, b.URL)
	if err != nil {
		return errors.NewNetwork(b.GetName(), "front page", err)
	}
	if status != http.StatusOK {
		log.Warn().Int("status", status).Str("url", b.URL).Msg("Front page unavailable")
		return nil
	}

	entries, err := b.processTopClick(doc)
	if err != nil {
		return err
	}

	log.Info().Int("entries", len(entries)).Msg("Ranked list extracted")
	b.entries = entries
	return nil
}

// Build finalizes the ranked table
func (b *GoclecdBuilder) Build(capturedOn time.Time) *Table {
	entries := b.entries
	if b.SortByPrice {
		entries = sortedByPrice(entries)
	}

	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		records = append(records, entry.Record())
	}
	return Finalize("goclecd_top", records, RankedColumns, capturedOn)
}

// processTopClick extracts the ranked entries in page order. The ranking
// is the page position, starting at 1.
func (b *GoclecdBuilder) processTopClick(doc *goquery.Document) ([]RankedEntry, error) {
	container := doc.Find(b.Selectors.TopClick).First()
	if container.Length() == 0 {
		return nil, errors.NewParsing(b.GetName(), "top-click list not found", nil)
	}

	var entries []RankedEntry
	var extractErr error
	ranking := 1
	container.Find(b.Selectors.Item).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		entry, err := b.extractEntry(s, ranking)
		if err != nil {
			extractErr = err
			return false
		}
		entries = append(entries, entry)
		ranking++
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	return entries, nil
}

func (b *GoclecdBuilder) extractEntry(s *goquery.Selection, ranking int) (RankedEntry, error) {
	href, _ := s.Attr("href")
	priceText := strings.TrimSpace(s.Find(b.Selectors.Price).First().Text())

	currency, ok := ExtractCurrency(priceText)
	if !ok {
		return RankedEntry{}, errors.NewParsing(b.GetName(), "no currency in price "+strconv.Quote(priceText), nil)
	}
	price, err := ParsePrice(strings.ReplaceAll(priceText, currency, ""))
	if err != nil {
		return RankedEntry{}, errors.NewParsing(b.GetName(), "ranked price", err)
	}

	return RankedEntry{
		Ranking:  ranking,
		Name:     strings.TrimSpace(s.Find(b.Selectors.Name).First().Text()),
		Price:    price,
		Currency: currency,
		Merchant: strings.TrimSpace(s.Find(b.Selectors.Merchant).First().Text()),
		URL:      resolveURL(b.URL, strings.TrimSpace(href)),
	}, nil
}

func sortedByPrice(entries []RankedEntry) []RankedEntry {
	sorted := append([]RankedEntry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price < sorted[j].Price
	})
	return sorted
}
