package crawler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/keypriceworker/config"
	"sjsage522/keypriceworker/helpers"
	"sjsage522/keypriceworker/logger"
	"sjsage522/keypriceworker/pkg/errors"
	"sjsage522/keypriceworker/services/cache"
)

const allKeyShopProvider = "AllKeyShop"

// searchCacheTTL bounds how long a game name keeps resolving to the same
// detail page
const searchCacheTTL = 24 * time.Hour

// searchResult is the first hit of a search page
type searchResult struct {
	ProductName string `json:"product_name"`
	URL         string `json:"url"`
}

// AllKeyShopBuilder builds the offers table of one game: it searches the
// game, follows the first result and extracts every offer of its detail page
type AllKeyShopBuilder struct {
	SearchURL string
	Selectors config.AllKeyShopSelectors
	Fetcher   Fetcher
	CacheSvc  cache.CacheService

	records []Record
}

// NewAllKeyShopBuilder creates an offers builder. cacheSvc may be nil.
func NewAllKeyShopBuilder(searchURL string, selectors config.AllKeyShopSelectors, fetcher Fetcher, cacheSvc cache.CacheService) *AllKeyShopBuilder {
	return &AllKeyShopBuilder{
		SearchURL: searchURL,
		Selectors: selectors,
		Fetcher:   fetcher,
		CacheSvc:  cacheSvc,
	}
}

// GetName returns the builder name
func (b *AllKeyShopBuilder) GetName() string {
	return allKeyShopProvider
}

// BuildSearchURL returns the first search page URL for a game name
func BuildSearchURL(base, gameName string) string {
	query := url.QueryEscape(strings.ToLower(gameName))
	return base + "?search_name=" + query + "&pagenum=1"
}

// FetchGameData searches gameName and extracts the offers of the first
// result. A non-200 status on either request, or a search without results,
// leaves the table empty.
func (b *AllKeyShopBuilder) FetchGameData(ctx context.Context, gameName string) error {
	log := logger.ForBuilder(b.GetName())
	b.records = nil

	result, err := b.resolve(ctx, gameName)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}

	status, doc, err := b.Fetcher.Fetch(ctx, result.URL)
	if err != nil {
		return errors.NewNetwork(b.GetName(), "detail page", err)
	}
	if status != http.StatusOK {
		log.Warn().Int("status", status).Str("url", result.URL).Msg("Detail page unavailable")
		return nil
	}

	records, err := b.processGameData(doc, result.ProductName)
	if err != nil {
		return err
	}

	log.Info().
		Str("product", result.ProductName).
		Int("offers", len(records)).
		Msg("Offers extracted")
	b.records = records
	return nil
}

// Build finalizes the offers table
func (b *AllKeyShopBuilder) Build(capturedOn time.Time) *Table {
	return Finalize("allkeyshop", b.records, OfferColumns, capturedOn)
}

// resolve returns the first search result for gameName, or nil when there
// is none
func (b *AllKeyShopBuilder) resolve(ctx context.Context, gameName string) (*searchResult, error) {
	log := logger.ForBuilder(b.GetName())
	cacheKey := "allkeyshop_search_" + helpers.Slugify(gameName)

	if b.CacheSvc != nil {
		var cached searchResult
		found, err := cache.GetJSON(b.CacheSvc, cacheKey, &cached)
		if err != nil {
			log.Debug().Err(errors.NewCache(b.GetName(), "search lookup", err)).Msg("Search cache lookup failed")
		}
		if found {
			log.Debug().Str("url", cached.URL).Msg("Search resolved from cache")
			return &cached, nil
		}
	}

	searchURL := BuildSearchURL(b.SearchURL, gameName)
	status, doc, err := b.Fetcher.Fetch(ctx, searchURL)
	if err != nil {
		return nil, errors.NewNetwork(b.GetName(), "search page", err)
	}
	if status != http.StatusOK {
		log.Warn().Int("status", status).Str("url", searchURL).Msg("Search page unavailable")
		return nil, nil
	}

	first := doc.Find(b.Selectors.SearchResult).First()
	if first.Length() == 0 {
		log.Info().Str("game", gameName).Msg("No search result")
		return nil, nil
	}

	link := first.Find(b.Selectors.SearchLink).First()
	href, ok := link.Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return nil, errors.NewParsing(b.GetName(), "search result has no link", nil)
	}
	name, ok := link.Attr("aria-label")
	if !ok || strings.TrimSpace(name) == "" {
		return nil, errors.NewParsing(b.GetName(), "search result has no name", nil)
	}

	result := &searchResult{
		ProductName: strings.TrimSpace(name),
		URL:         resolveURL(searchURL, strings.TrimSpace(href)),
	}

	if b.CacheSvc != nil {
		if err := cache.SetJSON(b.CacheSvc, cacheKey, result, searchCacheTTL); err != nil {
			log.Debug().Err(errors.NewCache(b.GetName(), "search store", err)).Msg("Search cache store failed")
		}
	}
	return result, nil
}

// processGameData extracts every offer row of a detail page in document
// order. The first malformed offer aborts the page.
func (b *AllKeyShopBuilder) processGameData(doc *goquery.Document, productName string) ([]Record, error) {
	offersTable := doc.Find(b.Selectors.OffersTable).First()
	if offersTable.Length() == 0 {
		return nil, errors.NewParsing(b.GetName(), "offers table not found", nil)
	}

	var records []Record
	var extractErr error
	offersTable.Find(b.Selectors.OfferRow).EachWithBreak(func(i int, s *goquery.Selection) bool {
		offer, err := ExtractOffer(s, productName, b.Selectors)
		if err != nil {
			extractErr = errors.NewParsing(b.GetName(), "offer "+strconv.Itoa(i+1), err)
			return false
		}
		records = append(records, offer.Record())
		return true
	})
	if extractErr != nil {
		return nil, extractErr
	}

	return records, nil
}

// resolveURL makes href absolute against the page it was found on
func resolveURL(pageURL, href string) string {
	if href == "" {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
