package crawler

import (
	"context"
	"strconv"
	"time"
)

// OfferColumns is the fixed column order of a finalized offers table
var OfferColumns = []string{
	"product_name", "price", "platform", "edition", "region",
	"merchant_name", "merchant_review_score_upon_5", "merchant_review_count",
	"voucher_percentage", "voucher_code",
	"price_with_voucher", "price_before_voucher", "price_with_paypal_fees", "price_with_cb_fees",
	"paypal_fee", "card_fee", "price_currency", "url", DateColumn,
}

// RankedColumns is the fixed column order of a finalized ranked table
var RankedColumns = []string{
	"ranking", "name", "price", "currency", "merchant", "url", DateColumn,
}

// DateColumn is stamped on every row by Finalize
const DateColumn = "date_insertion"

// OfferCurrency is emitted for every offer. The detail page is not parsed
// for a currency.
const OfferCurrency = "EUR"

// Record is one table row keyed by column name
type Record map[string]string

// PriceNote holds the price variants found in an offer tooltip.
// A field is empty when its label is absent.
type PriceNote struct {
	PriceWithVoucher    string `json:"price_with_voucher"`
	PriceWithPaypalFees string `json:"price_with_paypal_fees"`
	PriceWithCardFees   string `json:"price_with_cb_fees"`
	PriceBeforeVoucher  string `json:"price_before_voucher"`
}

// OfferRow is one merchant offer on a detail page
type OfferRow struct {
	ProductName         string
	Price               float64
	PriceCurrency       string
	Platform            string
	Edition             string
	Region              string
	MerchantName        string
	MerchantReviewScore string
	MerchantReviewCount string
	VoucherPercentage   string
	VoucherCode         string
	PriceNote
	PaypalFee string
	CardFee   string
	URL       string
}

// Record flattens the offer into table columns
func (o OfferRow) Record() Record {
	return Record{
		"product_name":                 o.ProductName,
		"price":                        FormatDecimal(o.Price),
		"platform":                     o.Platform,
		"edition":                      o.Edition,
		"region":                       o.Region,
		"merchant_name":                o.MerchantName,
		"merchant_review_score_upon_5": o.MerchantReviewScore,
		"merchant_review_count":        o.MerchantReviewCount,
		"voucher_percentage":           o.VoucherPercentage,
		"voucher_code":                 o.VoucherCode,
		"price_with_voucher":           o.PriceWithVoucher,
		"price_before_voucher":         o.PriceBeforeVoucher,
		"price_with_paypal_fees":       o.PriceWithPaypalFees,
		"price_with_cb_fees":           o.PriceWithCardFees,
		"paypal_fee":                   o.PaypalFee,
		"card_fee":                     o.CardFee,
		"price_currency":               o.PriceCurrency,
		"url":                          o.URL,
	}
}

// RankedEntry is one item of the top-click list
type RankedEntry struct {
	Ranking  int
	Name     string
	Price    float64
	Currency string
	Merchant string
	URL      string
}

// Record flattens the entry into table columns
func (e RankedEntry) Record() Record {
	return Record{
		"ranking":  strconv.Itoa(e.Ranking),
		"name":     e.Name,
		"price":    FormatDecimal(e.Price),
		"currency": e.Currency,
		"merchant": e.Merchant,
		"url":      e.URL,
	}
}

// Builder fetches one source and builds a finalized table from it
type Builder interface {
	// GetName returns the builder's name for logging and identification
	GetName() string

	// FetchGameData fetches and extracts the source. Sources that list
	// every game ignore gameName.
	FetchGameData(ctx context.Context, gameName string) error

	// Build finalizes the extracted records, stamping capturedOn on every row
	Build(capturedOn time.Time) *Table
}
