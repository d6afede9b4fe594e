package crawler

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	noteIndentRegex = regexp.MustCompile(`\n[ \t]*`)
	noteReplacer    = strings.NewReplacer(
		"~", "",
		"<p>", "",
		`<span class="price">`, "",
		"</span></p>", " | ",
	)

	priceWithVoucherRegex    = regexp.MustCompile(`Price with voucher: (\d+.\d+)`)
	priceWithPaypalFeesRegex = regexp.MustCompile(`Price with Paypal Fees: (\d+.\d+)`)
	priceWithCardFeesRegex   = regexp.MustCompile(`Price with Card Fees: (\d+.\d+)`)
	priceBeforeVoucherRegex  = regexp.MustCompile(`Price before voucher: (\d+.\d+)`)
)

// priceNoteAttrs are read in order. Bootstrap moves "title" to
// "data-bs-original-title" once the tooltip is initialized.
var priceNoteAttrs = []string{"data-bs-original-title", "title"}

// ParsePriceNote extracts the four labeled price variants of a tooltip.
// Each label is matched on its own; missing labels stay empty.
func ParsePriceNote(note string) PriceNote {
	normalized := strings.TrimSpace(noteReplacer.Replace(noteIndentRegex.ReplaceAllString(note, "")))

	return PriceNote{
		PriceWithVoucher:    firstGroup(priceWithVoucherRegex, normalized),
		PriceWithPaypalFees: firstGroup(priceWithPaypalFeesRegex, normalized),
		PriceWithCardFees:   firstGroup(priceWithCardFeesRegex, normalized),
		PriceBeforeVoucher:  firstGroup(priceBeforeVoucherRegex, normalized),
	}
}

// PriceNoteFrom reads the tooltip of the price-note element inside block.
// A missing element or attribute yields an empty PriceNote.
func PriceNoteFrom(block *goquery.Selection, selector string) PriceNote {
	note := block.Find(selector).First()
	if note.Length() == 0 {
		return PriceNote{}
	}

	for _, attr := range priceNoteAttrs {
		if text, ok := note.Attr(attr); ok {
			return ParsePriceNote(text)
		}
	}
	return PriceNote{}
}

func firstGroup(re *regexp.Regexp, s string) string {
	if m := re.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return ""
}
