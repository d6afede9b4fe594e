package crawler

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"sjsage522/keypriceworker/config"
)

// ExtractOffer reads one offer row of a detail page.
//
// The merchant, region, edition and buy-button blocks are mandatory, as are
// the merchant name, the platform sprite token, the buy link and a numeric
// buy price. The fees block and the voucher block are optional and resolve
// to empty strings when absent.
func ExtractOffer(row *goquery.Selection, productName string, sel config.AllKeyShopSelectors) (OfferRow, error) {
	offer := OfferRow{
		ProductName:   productName,
		PriceCurrency: OfferCurrency,
	}

	merchant, err := requiredBlock(row, sel.Merchant, "merchant")
	if err != nil {
		return offer, err
	}
	region, err := requiredBlock(row, sel.Region, "region")
	if err != nil {
		return offer, err
	}
	edition, err := requiredBlock(row, sel.Edition, "edition")
	if err != nil {
		return offer, err
	}
	buy, err := requiredBlock(row, sel.BuyButton, "buy button")
	if err != nil {
		return offer, err
	}
	oldPrice := row.Find(sel.OldPrice).First()
	voucher := row.Find(sel.Voucher).First()

	// Merchant
	name, ok := optionalText(merchant, sel.MerchantName)
	if !ok {
		return offer, fmt.Errorf("merchant name not found (%s)", sel.MerchantName)
	}
	offer.MerchantName = name
	offer.MerchantReviewScore, _ = optionalText(merchant, sel.MerchantReviewScore)
	offer.MerchantReviewCount, _ = optionalText(merchant, sel.MerchantReviewCount)

	// Region and platform
	offer.Region, _ = optionalText(region, sel.RegionName)
	class, _ := region.Find(sel.PlatformLogo).First().Attr("class")
	if offer.Platform, err = PlatformFromClass(class); err != nil {
		return offer, err
	}

	// Edition
	offer.Edition, _ = optionalText(edition, sel.EditionName)

	// Fees and tooltip prices
	offer.PriceNote = PriceNoteFrom(oldPrice, sel.PriceNote)
	offer.PaypalFee, _ = optionalText(oldPrice, sel.PaypalFee)
	offer.CardFee, _ = optionalText(oldPrice, sel.CardFee)

	// Voucher, only kept when both parts are present
	percentage, hasPercentage := optionalText(voucher, sel.VoucherPercentage)
	code, hasCode := optionalText(voucher, sel.VoucherCode)
	if hasPercentage && hasCode {
		offer.VoucherPercentage = percentage
		offer.VoucherCode = code
	}

	// Buy button
	link, ok := buy.Find(sel.BuyLink).First().Attr("href")
	if !ok {
		return offer, fmt.Errorf("buy link not found (%s)", sel.BuyLink)
	}
	offer.URL = strings.TrimSpace(link)

	priceText, ok := optionalText(buy, sel.BuyPrice)
	if !ok {
		return offer, fmt.Errorf("buy price not found (%s)", sel.BuyPrice)
	}
	if offer.Price, err = ParsePrice(priceText); err != nil {
		return offer, err
	}

	return offer, nil
}

// requiredBlock returns the first match of selector or an error naming the block
func requiredBlock(s *goquery.Selection, selector, name string) (*goquery.Selection, error) {
	block := s.Find(selector).First()
	if block.Length() == 0 {
		return nil, fmt.Errorf("%s block not found (%s)", name, selector)
	}
	return block, nil
}

// optionalText returns the trimmed text of the first match of selector and
// whether it exists
func optionalText(s *goquery.Selection, selector string) (string, bool) {
	found := s.Find(selector).First()
	if found.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(found.Text()), true
}
