package enrichment

import (
	"fmt"
	"strings"

	"github.com/campuspulse/pulse/server/internal/lib/hotspot"
)

// SystemPrompt frames the model as a campus safety assistant returning a JSON array
const SystemPrompt = "You are a concise campus safety assistant. Return only valid JSON array."

const (
	promptMaxTokens   = 360
	promptTemperature = 0.2
	maxPromptVariants = 3
)

// BuildPrompt creates one user message per hotspot describing its area, centroid,
// primary road, nearby candidates and incident count
func BuildPrompt(hotspots []hotspot.Hotspot) Prompt {
	messages := make([]string, 0, len(hotspots))
	for _, h := range hotspots {
		coords := fmt.Sprintf("%.4f,%.4f", h.Centroid.Latitude, h.Centroid.Longitude)

		area := coords
		if h.AreaName != nil && *h.AreaName != "" {
			area = *h.AreaName
		} else if h.SampleLocationName != nil && *h.SampleLocationName != "" {
			area = *h.SampleLocationName
		}

		primary := ""
		if h.PrimaryRoad != nil {
			primary = *h.PrimaryRoad
		}

		variants := h.NearbyRoadVariants
		if len(variants) > maxPromptVariants {
			variants = variants[:maxPromptVariants]
		}

		messages = append(messages, fmt.Sprintf(
			`Hotspot id:%s at %s (centroid %s). PrimaryRoad:"%s". NearbyCandidates:"%s". %d events. `+
				`Output JSON object with id, summary (<=18 words), recommendation (pattern: "Avoid AREA; take ALT instead." <=10 words), alternativeRoute (ALT).`,
			h.ID, area, coords, primary, strings.Join(variants, ", "), h.Count))
	}

	return Prompt{
		System:      SystemPrompt,
		Messages:    messages,
		MaxTokens:   promptMaxTokens,
		Temperature: promptTemperature,
	}
}
