package fetch

import (
	"bytes"
)

// jsAppMarkers are byte sequences that indicate a client-side rendered app
// whose server response carries no useful markup.
var jsAppMarkers = [][]byte{
	[]byte("window.__nuxt__"),
	[]byte("window.__next_data__"),
	[]byte("id=\"___gatsby\""),
	[]byte("ng-version="),
	[]byte("data-reactroot"),
	[]byte("you need to enable javascript"),
}

// Detector decides whether a plain-HTTP response is worth re-fetching
// through the headless renderer.
type Detector struct {
	// MinBodyBytes is the size below which a 200 response looks empty.
	MinBodyBytes int
}

// NewDetector returns a Detector with the default emptiness threshold.
func NewDetector() *Detector {
	return &Detector{MinBodyBytes: 512}
}

// NeedsRender inspects a fetched response for signals that the real content
// is assembled by JavaScript.
func (d *Detector) NeedsRender(resp Response) bool {
	if d == nil || resp.Rendered {
		return false
	}
	if len(resp.Body) < d.MinBodyBytes {
		return true
	}
	lower := bytes.ToLower(resp.Body)
	for _, marker := range jsAppMarkers {
		if bytes.Contains(lower, marker) {
			return true
		}
	}
	return false
}
