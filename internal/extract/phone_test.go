package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		kind PhoneKind
		ok   bool
	}{
		{"2101234567", "+302101234567", PhoneLandline, true},
		{"210 123 4567", "+302101234567", PhoneLandline, true},
		{"210-123-4567", "+302101234567", PhoneLandline, true},
		{"+30 210 1234567", "+302101234567", PhoneLandline, true},
		{"0030 2101234567", "+302101234567", PhoneLandline, true},
		{"6971234567", "+306971234567", PhoneMobile, true},
		{"+30 697 123 4567", "+306971234567", PhoneMobile, true},
		{"2310123456", "+302310123456", PhoneLandline, true}, // Thessaloniki
		{"123", "", "", false},
		{"5101234567", "", "", false},  // invalid leading digit
		{"21012345678", "", "", false}, // eleven national digits
		{"", "", "", false},
	}
	for _, tt := range tests {
		got, kind, ok := NormalizePhone(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
		require.Equal(t, tt.kind, kind, tt.in)
	}
}

func TestNormalizePhoneRoundTrip(t *testing.T) {
	t.Parallel()

	for _, canonical := range []string{"+302101234567", "+306971234567"} {
		got, _, ok := NormalizePhone(canonical)
		require.True(t, ok)
		require.Equal(t, canonical, got, "canonical form must normalize to itself")
	}
}

func TestPhonesFromAnchorsAndText(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body>
		<a href="tel:+302101234567">Call</a>
		<span itemprop="telephone">697 123 4567</span>
	</body></html>`)
	text := "Τηλ: 210 123 4567, κινητό 6971234567, fax 210.999.8877"

	phones := Phones(doc, "https://example.gr/contact", text)
	values := make([]string, 0, len(phones))
	for _, p := range phones {
		values = append(values, p.Value)
	}
	require.Equal(t, []string{"+302101234567", "+306971234567", "+302109998877"}, values)
	require.Equal(t, PhoneLandline, phones[0].Kind)
	require.Equal(t, PhoneMobile, phones[1].Kind)
}

func TestPhonesDropUnnormalizable(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<html><body><a href="tel:12345">Short</a></body></html>`)
	phones := Phones(doc, "u", "random 123 numbers 4567")
	require.Empty(t, phones)
}
