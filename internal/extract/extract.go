// Package extract pulls contact signals (emails, phones, social profiles)
// out of parsed pages. Extractors are pure: same page, same output.
package extract

// Email is one extracted email address.
type Email struct {
	// Value is the normalized (lowercased, validated) address.
	Value string
	// SourceURL is the page the address was found on.
	SourceURL string
	// Context is a short text snippet around the match, when available.
	Context string
}

// PhoneKind distinguishes mobile from landline numbers by prefix.
type PhoneKind string

// Phone kinds.
const (
	PhoneLandline PhoneKind = "landline"
	PhoneMobile   PhoneKind = "mobile"
)

// Phone is one extracted phone number in canonical international form.
type Phone struct {
	Value     string
	Kind      PhoneKind
	SourceURL string
}

// Social is one canonical social profile URL.
type Social struct {
	Platform  string
	URL       string
	SourceURL string
}
