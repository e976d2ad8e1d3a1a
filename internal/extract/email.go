package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	emailPattern = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
	emailExact   = regexp.MustCompile(`(?i)^[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}$`)

	// Obfuscation styles like "info [at] example [dot] gr".
	obfuscatedAt  = regexp.MustCompile(`(?i)\s*[\[\(\{]\s*at\s*[\]\)\}]\s*`)
	obfuscatedDot = regexp.MustCompile(`(?i)\s*[\[\(\{]\s*dot\s*[\]\)\}]\s*`)
)

// junkEmailFragments discards addresses that are placeholders or artifacts
// of asset filenames ending up inside an email-shaped token.
var junkEmailFragments = []string{
	"example.com",
	"@example",
	"yourname@",
	"youremail",
	"sampleemail",
	".png",
	".jpg",
	".jpeg",
	".gif",
	".svg",
	".webp",
}

// Emails extracts every valid email address on a page: mailto anchors,
// in-text matches (including bracket-obfuscated ones), and schema.org
// email properties. Invalid candidates are dropped silently.
func Emails(doc *goquery.Document, sourceURL, text string) []Email {
	var out []Email
	seen := make(map[string]struct{})

	add := func(candidate, context string) {
		value, ok := NormalizeEmail(candidate)
		if !ok {
			return
		}
		if _, dup := seen[value]; dup {
			return
		}
		seen[value] = struct{}{}
		out = append(out, Email{Value: value, SourceURL: sourceURL, Context: context})
	}

	if doc != nil {
		doc.Find(`a[href^="mailto:"]`).Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			addr := strings.TrimPrefix(href, "mailto:")
			if i := strings.IndexByte(addr, '?'); i >= 0 {
				addr = addr[:i]
			}
			for _, part := range strings.Split(addr, ",") {
				add(part, strings.TrimSpace(sel.Text()))
			}
		})
		doc.Find(`[itemprop="email"]`).Each(func(_ int, sel *goquery.Selection) {
			if content, ok := sel.Attr("content"); ok {
				add(content, "")
				return
			}
			add(sel.Text(), "")
		})
	}

	for _, candidate := range emailPattern.FindAllString(deobfuscate(text), -1) {
		add(candidate, "")
	}

	return out
}

// NormalizeEmail lowercases and validates a candidate address. It returns
// false for anything that fails the grammar or looks like a placeholder.
func NormalizeEmail(raw string) (string, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.Trim(value, "<>[](){}\"'.,;:")
	if value == "" || !emailExact.MatchString(value) {
		return "", false
	}
	for _, junk := range junkEmailFragments {
		if strings.Contains(value, junk) {
			return "", false
		}
	}
	return value, true
}

func deobfuscate(text string) string {
	text = obfuscatedAt.ReplaceAllString(text, "@")
	text = obfuscatedDot.ReplaceAllString(text, ".")
	return text
}
