// Package parse turns fetched markup into the link sets and text the
// extractors and the crawl orchestrator consume.
package parse

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/leadharvest/leadharvest/internal/urlutil"
)

// contactKeywords flags links that likely lead to a page listing contact
// details. Greek terms are stored lowercased and unaccented variants are
// included because site builders are inconsistent about accents in slugs.
var contactKeywords = []string{
	// English
	"contact", "contact-us", "contactus", "about", "about-us", "aboutus",
	"team", "our-team", "support", "help", "company", "who-we-are", "imprint",
	// Greek
	"επικοινωνία", "επικοινωνια", "επικοινωνηστε",
	"σχετικά", "σχετικα", "σχετικα-με-εμας",
	"εταιρεία", "εταιρεια", "η-εταιρεια",
	"ομάδα", "ομαδα", "η-ομαδα-μας",
	"υποστήριξη", "υποστηριξη",
	"ποιοι-ειμαστε", "ποιοι είμαστε", "ποιοι ειμαστε",
}

var whitespaceRun = regexp.MustCompile(`[\s\p{Zs}]+`)

// Result is the parsed view of one page.
type Result struct {
	// Links holds every same-domain crawlable link in canonical form,
	// deduplicated, including the contact-like ones.
	Links []string
	// ContactLinks is the subset of Links classified contact-like, in
	// document order.
	ContactLinks []string
	// Text is the visible page text with whitespace collapsed.
	Text string
	// Doc is the parsed document, reusable by the extractors.
	Doc *goquery.Document
}

// Parse extracts links and text from markup. Links are resolved against
// baseURL and kept only when they stay on baseDomain and look crawlable.
func Parse(markup []byte, baseURL *url.URL, baseDomain string) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil {
		return Result{}, fmt.Errorf("parse markup: %w", err)
	}

	res := Result{Doc: doc}
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		resolved, ok := urlutil.Resolve(baseURL, href)
		if !ok || !urlutil.IsCrawlable(resolved) {
			return
		}
		if !urlutil.SameRegistrableDomain(resolved.Hostname(), baseDomain) {
			return
		}
		canonical := urlutil.Canonicalize(resolved)
		if _, dup := seen[canonical]; dup {
			return
		}
		seen[canonical] = struct{}{}
		res.Links = append(res.Links, canonical)
		if IsContactLike(resolved.Path, sel.Text()) {
			res.ContactLinks = append(res.ContactLinks, canonical)
		}
	})

	res.Text = visibleText(doc)
	return res, nil
}

// IsContactLike reports whether a link path or its anchor text matches the
// contact/about/team keyword heuristics.
func IsContactLike(path, anchorText string) bool {
	path = strings.ToLower(path)
	anchorText = strings.ToLower(strings.TrimSpace(anchorText))
	for _, kw := range contactKeywords {
		if strings.Contains(path, kw) || strings.Contains(anchorText, kw) {
			return true
		}
	}
	return false
}

func visibleText(doc *goquery.Document) string {
	clone := doc.Selection.Clone()
	clone.Find("script, style, noscript, template").Remove()
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(clone.Text(), " "))
}
