package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Greek numbering plan: ten national digits, landlines on 2, mobiles on 69.
const (
	countryCallingCode = "30"
	nationalLength     = 10
)

var (
	nonDigit = regexp.MustCompile(`\D`)

	// phoneCandidate finds loosely delimited digit groups that could be a
	// Greek number with or without the country code.
	phoneCandidate = regexp.MustCompile(
		`(?:\+30|0030)?[\s.\-()]{0,3}(?:2\d|69)[\d\s.\-()]{7,14}`)
)

// Phones extracts phone numbers from tel: anchors, itemprop telephone
// properties, and the page text. Every emitted value is in canonical
// +30XXXXXXXXXX form; unnormalizable candidates are dropped.
func Phones(doc *goquery.Document, sourceURL, text string) []Phone {
	var out []Phone
	seen := make(map[string]struct{})

	add := func(candidate string) {
		value, kind, ok := NormalizePhone(candidate)
		if !ok {
			return
		}
		if _, dup := seen[value]; dup {
			return
		}
		seen[value] = struct{}{}
		out = append(out, Phone{Value: value, Kind: kind, SourceURL: sourceURL})
	}

	if doc != nil {
		doc.Find(`a[href^="tel:"]`).Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			add(strings.TrimPrefix(href, "tel:"))
		})
		doc.Find(`[itemprop="telephone"]`).Each(func(_ int, sel *goquery.Selection) {
			if content, ok := sel.Attr("content"); ok {
				add(content)
				return
			}
			add(sel.Text())
		})
	}

	for _, candidate := range phoneCandidate.FindAllString(text, -1) {
		add(candidate)
	}

	return out
}

// NormalizePhone canonicalizes a raw phone candidate to +30XXXXXXXXXX. The
// country code is inferred when absent. It reports false when the digits
// do not form a valid Greek landline or mobile number; the caller never
// receives a partially normalized value.
func NormalizePhone(raw string) (string, PhoneKind, bool) {
	digits := nonDigit.ReplaceAllString(raw, "")
	switch {
	case strings.HasPrefix(digits, "00"+countryCallingCode):
		digits = digits[2+len(countryCallingCode):]
	case strings.HasPrefix(digits, countryCallingCode) && len(digits) == nationalLength+len(countryCallingCode):
		digits = digits[len(countryCallingCode):]
	}
	if len(digits) != nationalLength {
		return "", "", false
	}
	switch {
	case strings.HasPrefix(digits, "69"):
		return "+" + countryCallingCode + digits, PhoneMobile, true
	case strings.HasPrefix(digits, "2"):
		return "+" + countryCallingCode + digits, PhoneLandline, true
	default:
		return "", "", false
	}
}
