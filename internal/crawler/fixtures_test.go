package crawler

import (
	"fmt"
	"html"
	"strings"
)

// offerFixture describes one offer row of a detail page fixture.
// Empty optional fields leave the matching markup out.
type offerFixture struct {
	merchant      string
	score         string
	count         string
	platformClass string
	region        string
	edition       string
	note          string
	paypalFee     string
	cardFee       string
	voucherPct    string
	voucherCode   string
	link          string
	price         string

	noMerchantBlock bool
	noOldPrice      bool
}

func (o offerFixture) html() string {
	var b strings.Builder
	b.WriteString(`<div class="offers-table-row x-offer">`)

	if !o.noMerchantBlock {
		b.WriteString(`<div class="offers-table-row-cell offers-table-row-cell-first offers-table-row-cell-merchant">`)
		if o.merchant != "" {
			fmt.Fprintf(&b, `<span class="x-offer-merchant-name offers-merchant-name">%s</span>`, o.merchant)
		}
		fmt.Fprintf(&b, `<span class="x-offer-merchant-review-score">%s</span>`, o.score)
		fmt.Fprintf(&b, `<span class="x-offer-merchant-review-count">%s</span>`, o.count)
		b.WriteString(`</div>`)
	}

	b.WriteString(`<div class="x-offer-region offers-table-row-cell text-center x-popover d-none d-md-table-cell offers-table-row-cell-region">`)
	fmt.Fprintf(&b, `<div class="offers-edition-logo"><span class="%s"></span></div>`, o.platformClass)
	fmt.Fprintf(&b, `<div class="x-offer-region-name offers-edition-region text-truncate text-capitalize">
		%s
	</div>`, o.region)
	b.WriteString(`</div>`)

	b.WriteString(`<div class="x-offer-edition offers-table-row-cell text-center d-none d-md-table-cell offers-table-row-cell-edition">`)
	fmt.Fprintf(&b, `<a class="x-offer-edition-name d-inline-block" href="#">%s</a>`, o.edition)
	b.WriteString(`</div>`)

	if !o.noOldPrice {
		b.WriteString(`<div class="offers-table-row-cell text-right d-none d-md-table-cell offers-table-row-cell-old-price">`)
		if o.note != "" {
			fmt.Fprintf(&b, `<span class="x-offer-is-not-cashback x-offers-price-info price-without-coupon" data-bs-original-title="%s"></span>`, html.EscapeString(o.note))
		}
		if o.paypalFee != "" {
			fmt.Fprintf(&b, `<div class="fees-value x-offer-fee-paypal">%s</div>`, o.paypalFee)
		}
		if o.cardFee != "" {
			fmt.Fprintf(&b, `<div class="fees-value x-offer-fee-card">%s</div>`, o.cardFee)
		}
		b.WriteString(`</div>`)
	}

	b.WriteString(`<div class="offers-table-row-cell text-center offers-table-row-cell-coupon">`)
	if o.voucherPct != "" {
		fmt.Fprintf(&b, `<span class="x-offer-coupon-value coupon-value text-truncate text-center">%s</span>`, o.voucherPct)
	}
	if o.voucherCode != "" {
		fmt.Fprintf(&b, `<span class="x-offer-coupon-code coupon-code text-truncate">%s</span>`, o.voucherCode)
	}
	b.WriteString(`</div>`)

	b.WriteString(`<div class="offers-table-row-cell buy-btn-cell">`)
	fmt.Fprintf(&b, `<a href="%s" class="buy-btn"><span class="x-offer-buy-btn-in-stock">%s</span></a>`, o.link, o.price)
	b.WriteString(`</div>`)

	b.WriteString(`</div>`)
	return b.String()
}

func detailPage(offers ...offerFixture) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="offers-table x-offers">`)
	for _, o := range offers {
		b.WriteString(o.html())
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func searchPage(productName, href string) string {
	return fmt.Sprintf(`<html><body>
		<div class="grid grid-rows-[auto_1fr_auto] gap-1 hover:shadow-lg relative rounded-[5px] group hover:bg-[#242A3A] bg-[#202533]">
			<a href="%s" aria-label="%s"><img src="/cover.jpg"></a>
		</div>
		<div class="grid grid-rows-[auto_1fr_auto] gap-1 hover:shadow-lg relative rounded-[5px] group hover:bg-[#242A3A] bg-[#202533]">
			<a href="/blog/other-game/" aria-label="Other Game"></a>
		</div>
	</body></html>`, href, productName)
}

// voucherOffer carries a voucher, fees and a full price note
var voucherOffer = offerFixture{
	merchant:      "Kinguin",
	score:         "4.5",
	count:         "1203",
	platformClass: "sprite sprite-30-steam",
	region:        "EU",
	edition:       "Standard",
	note:          fullPriceNote,
	paypalFee:     "0.49€",
	cardFee:       "0.35€",
	voucherPct:    "-10%",
	voucherCode:   "SAVE10",
	link:          "https://www.allkeyshop.com/redirection/offer/1",
	price:         "12,34€",
}

// plainOffer has no voucher, no fees and no price note
var plainOffer = offerFixture{
	merchant:      "Gamivo",
	score:         "4.1",
	count:         "870",
	platformClass: "sprite sprite-30-play-station-5",
	region:        "Europe",
	edition:       "Deluxe Edition",
	link:          "https://www.allkeyshop.com/redirection/offer/2",
	price:         "15€",
}

// bareOffer lacks the whole fees block and the review data
var bareOffer = offerFixture{
	merchant:      "Eneba",
	platformClass: "sprite-30-xbox-series-x",
	region:        "Global",
	edition:       "Standard",
	link:          "https://www.allkeyshop.com/redirection/offer/3",
	price:         "9,99€",
	noOldPrice:    true,
}
