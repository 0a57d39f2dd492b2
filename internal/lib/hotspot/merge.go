package hotspot

// Merge returns a copy of base with the non-empty fields of patch applied.
// A summary makes the summary visible; an alternative route clears NeedsEnrichment.
func Merge(base Hotspot, patch Patch) Hotspot {
	merged := base
	merged.NearbyRoadVariants = cloneStrings(base.NearbyRoadVariants)
	merged.AlertIDs = cloneStrings(base.AlertIDs)

	if s := deref(patch.Summary); s != "" {
		merged.Summary = stringPtr(s)
		merged.SummaryVisible = true
	}
	if r := deref(patch.Recommendation); r != "" {
		merged.Recommendation = r
	}
	if alt := deref(patch.AlternativeRoute); alt != "" {
		merged.AlternativeRoute = stringPtr(alt)
		merged.NeedsEnrichment = false
	}
	return merged
}

// MergeAll applies patches by hotspot id. Hotspots without a patch are returned unchanged.
func MergeAll(hotspots []Hotspot, patches []Patch) []Hotspot {
	byID := make(map[string]Patch, len(patches))
	for _, p := range patches {
		if p.ID == "" {
			continue
		}
		byID[p.ID] = p
	}

	out := make([]Hotspot, len(hotspots))
	for i, h := range hotspots {
		if p, ok := byID[h.ID]; ok {
			out[i] = Merge(h, p)
		} else {
			out[i] = h
		}
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
