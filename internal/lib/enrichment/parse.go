package enrichment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

// ErrNoJSONArray is returned when the generated text has no [...] span
var ErrNoJSONArray = errors.New("no JSON array in response")

// ParseResponse extracts the outermost JSON array from generated text and decodes it.
// Entries without an id are dropped.
func ParseResponse(text string) ([]hotspot.Patch, error) {
	first := strings.Index(text, "[")
	last := strings.LastIndex(text, "]")
	if first == -1 || last == -1 || last < first {
		return nil, ErrNoJSONArray
	}

	var patches []hotspot.Patch
	if err := json.Unmarshal([]byte(text[first:last+1]), &patches); err != nil {
		return nil, fmt.Errorf("failed to decode enrichment JSON: %w", err)
	}

	out := patches[:0]
	for _, p := range patches {
		if p.ID != "" {
			out = append(out, p)
		}
	}
	return out, nil
}
