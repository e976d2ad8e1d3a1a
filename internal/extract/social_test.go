package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCanonicalProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in       string
		platform string
		want     string
		ok       bool
	}{
		{"https://www.facebook.com/acmegr?ref=page", "facebook", "https://facebook.com/acmegr", true},
		{"https://facebook.com/acmegr/photos/123", "facebook", "https://facebook.com/acmegr", true},
		{"https://instagram.com/acme.gr/", "instagram", "https://instagram.com/acme.gr", true},
		{"https://www.linkedin.com/company/acme/about/", "linkedin", "https://linkedin.com/company/acme", true},
		{"https://www.linkedin.com/in/jane-doe", "linkedin", "https://linkedin.com/in/jane-doe", true},
		{"https://x.com/acmegr", "twitter", "https://x.com/acmegr", true},
		{"https://twitter.com/intent/tweet?text=hi", "", "", false},
		{"https://www.facebook.com/sharer/sharer.php?u=x", "", "", false},
		{"https://facebook.com/", "", "", false},
		{"https://example.gr/about", "", "", false},
		{"not a url", "", "", false},
	}
	for _, tt := range tests {
		platform, canonical, ok := CanonicalProfile(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.platform, platform, tt.in)
		require.Equal(t, tt.want, canonical, tt.in)
	}
}

func TestSocialsFirstMatchWinsPerPlatform(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body>
		<a href="https://facebook.com/first">fb</a>
		<a href="https://facebook.com/second">fb again</a>
		<a href="https://instagram.com/acme">ig</a>
		<a href="/contact">contact</a>
	</body></html>`)

	socials := Socials(doc, "https://example.gr/")
	require.Len(t, socials, 2)
	require.Equal(t, "facebook", socials[0].Platform)
	require.Equal(t, "https://facebook.com/first", socials[0].URL)
	require.Equal(t, "instagram", socials[1].Platform)
	require.Equal(t, "https://example.gr/", socials[1].SourceURL)
}
