package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Selectors holds every markup selector the extractors depend on.
// Upstream markup drift is fixed here or in a SELECTORS_PATH override file.
type Selectors struct {
	AllKeyShop AllKeyShopSelectors `yaml:"allkeyshop"`
	Goclecd    GoclecdSelectors    `yaml:"goclecd"`
}

// AllKeyShopSelectors locate the search result and the offers table
type AllKeyShopSelectors struct {
	SearchResult string `yaml:"search_result"`
	SearchLink   string `yaml:"search_link"`

	OffersTable string `yaml:"offers_table"`
	OfferRow    string `yaml:"offer_row"`

	Merchant            string `yaml:"merchant"`
	MerchantName        string `yaml:"merchant_name"`
	MerchantReviewScore string `yaml:"merchant_review_score"`
	MerchantReviewCount string `yaml:"merchant_review_count"`

	Region       string `yaml:"region"`
	RegionName   string `yaml:"region_name"`
	PlatformLogo string `yaml:"platform_logo"`

	Edition     string `yaml:"edition"`
	EditionName string `yaml:"edition_name"`

	OldPrice  string `yaml:"old_price"`
	PriceNote string `yaml:"price_note"`
	PaypalFee string `yaml:"paypal_fee"`
	CardFee   string `yaml:"card_fee"`

	Voucher           string `yaml:"voucher"`
	VoucherPercentage string `yaml:"voucher_percentage"`
	VoucherCode       string `yaml:"voucher_code"`

	BuyButton string `yaml:"buy_button"`
	BuyLink   string `yaml:"buy_link"`
	BuyPrice  string `yaml:"buy_price"`
}

// GoclecdSelectors locate the top-click ranked list
type GoclecdSelectors struct {
	TopClick string `yaml:"top_click"`
	Item     string `yaml:"item"`
	Name     string `yaml:"name"`
	Merchant string `yaml:"merchant"`
	Price    string `yaml:"price"`
}

// DefaultSelectors returns the selectors matching the live markup
func DefaultSelectors() Selectors {
	return Selectors{
		AllKeyShop: AllKeyShopSelectors{
			SearchResult: `div[class="grid grid-rows-[auto_1fr_auto] gap-1 hover:shadow-lg relative rounded-[5px] group hover:bg-[#242A3A] bg-[#202533]"]`,
			SearchLink:   "a",

			OffersTable: "div.offers-table.x-offers",
			OfferRow:    "div.offers-table-row.x-offer",

			Merchant:            "div.offers-table-row-cell-merchant",
			MerchantName:        "span.x-offer-merchant-name",
			MerchantReviewScore: "span.x-offer-merchant-review-score",
			MerchantReviewCount: "span.x-offer-merchant-review-count",

			Region:       "div.x-offer-region.offers-table-row-cell-region",
			RegionName:   "div.x-offer-region-name",
			PlatformLogo: "div.offers-edition-logo span",

			Edition:     "div.x-offer-edition.offers-table-row-cell-edition",
			EditionName: "a.x-offer-edition-name",

			OldPrice:  "div.offers-table-row-cell-old-price",
			PriceNote: "span.x-offer-is-not-cashback.x-offers-price-info.price-without-coupon",
			PaypalFee: "div.fees-value.x-offer-fee-paypal",
			CardFee:   "div.fees-value.x-offer-fee-card",

			Voucher:           "div.offers-table-row-cell-coupon",
			VoucherPercentage: "span.x-offer-coupon-value.coupon-value",
			VoucherCode:       "span.x-offer-coupon-code.coupon-code",

			BuyButton: "div.offers-table-row-cell.buy-btn-cell",
			BuyLink:   "a",
			BuyPrice:  "span.x-offer-buy-btn-in-stock",
		},
		Goclecd: GoclecdSelectors{
			TopClick: "div.content-box.topclick",
			Item:     "a",
			Name:     "div.topclick-list-element-game-title",
			Merchant: "div.topclick-list-element-game-merchant",
			Price:    "span.topclick-list-element-priceWrapper-price",
		},
	}
}

// LoadSelectors reads a YAML override file on top of DefaultSelectors.
// Keys missing from the file keep their default value.
func LoadSelectors(path string) (Selectors, error) {
	selectors := DefaultSelectors()
	if path == "" {
		return selectors, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return selectors, fmt.Errorf("failed to read selectors file at '%s': %w", path, err)
	}
	if err := yaml.Unmarshal(data, &selectors); err != nil {
		return selectors, fmt.Errorf("failed to parse YAML selectors: %w", err)
	}
	return selectors, nil
}
