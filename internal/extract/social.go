package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// platformHosts maps known social network hostnames (www-stripped) to a
// platform identifier.
var platformHosts = map[string]string{
	"facebook.com":  "facebook",
	"fb.com":        "facebook",
	"instagram.com": "instagram",
	"linkedin.com":  "linkedin",
	"twitter.com":   "twitter",
	"x.com":         "twitter",
	"youtube.com":   "youtube",
	"tiktok.com":    "tiktok",
}

// sharePathPrefixes are intent/share endpoints, not profiles.
var sharePathPrefixes = []string{
	"/sharer", "/share", "/intent", "/plugins", "/dialog",
}

// linkedinSections keep their second path segment: /company/acme and
// /in/jane identify different entity types.
var linkedinSections = map[string]struct{}{
	"company": {}, "in": {}, "school": {}, "showcase": {},
}

// Socials scans anchors for known platform profile links. Each platform
// contributes at most one canonical URL per page; the first match wins.
func Socials(doc *goquery.Document, sourceURL string) []Social {
	if doc == nil {
		return nil
	}
	var out []Social
	seen := make(map[string]struct{})

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		platform, canonical, ok := CanonicalProfile(href)
		if !ok {
			return
		}
		if _, dup := seen[platform]; dup {
			return
		}
		seen[platform] = struct{}{}
		out = append(out, Social{Platform: platform, URL: canonical, SourceURL: sourceURL})
	})

	return out
}

// CanonicalProfile reduces a social link to its primary profile form:
// https scheme, bare host, first path segment (two for linkedin), no query
// or tracking parameters.
func CanonicalProfile(raw string) (platform, canonical string, ok bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	platform, known := platformHosts[host]
	if !known {
		return "", "", false
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return "", "", false
	}
	for _, prefix := range sharePathPrefixes {
		if strings.HasPrefix("/"+strings.ToLower(path), prefix) {
			return "", "", false
		}
	}

	segments := strings.Split(path, "/")
	keep := 1
	if platform == "linkedin" {
		if _, sectioned := linkedinSections[strings.ToLower(segments[0])]; sectioned && len(segments) > 1 {
			keep = 2
		}
	}
	if len(segments) < keep {
		return "", "", false
	}
	return platform, "https://" + host + "/" + strings.Join(segments[:keep], "/"), true
}
