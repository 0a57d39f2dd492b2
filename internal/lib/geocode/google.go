package geocode

import (
	"context"
	"encoding/json"

	"github.com/campuspulse/pulse/server/internal/clients/google"
	"github.com/campuspulse/pulse/server/internal/lib/geo"
)

// preferredGoogleTypes ranks Geocoding API result types, most specific first
var preferredGoogleTypes = []string{
	"street_address", "premise", "subpremise", "route", "establishment",
	"point_of_interest", "neighborhood", "locality", "postal_town", "sublocality",
}

type googleProvider struct {
	client          *google.Client
	defaultLocality string
}

// NewGoogleProvider adapts the Google Geocoding client to a Provider.
// Without an API key the provider is skipped (returns no result).
func NewGoogleProvider(client *google.Client, defaultLocality string) Provider {
	return &googleProvider{client: client, defaultLocality: defaultLocality}
}

func (g *googleProvider) Name() string { return "google" }

func (g *googleProvider) Reverse(ctx context.Context, point geo.Point) (*Place, error) {
	if g.client == nil || !g.client.HasKey() {
		return nil, nil
	}

	response, err := g.client.ReverseGeocode(ctx, point.Latitude, point.Longitude)
	if err != nil {
		return nil, err
	}
	if response.Status != "OK" || len(response.Results) == 0 {
		return nil, nil
	}

	chosen := chooseGoogleResult(response.Results)
	components := chosen.Components()

	road := firstNonEmpty(components, "route", "street_address", "street")
	displayName, road := Sanitize(chosen.FormattedAddress, road, components, g.defaultLocality)

	raw, _ := json.Marshal(chosen)
	return &Place{
		Provider:      g.Name(),
		DisplayName:   displayName,
		Road:          road,
		Neighbourhood: firstNonEmpty(components, "neighborhood", "sublocality", "locality", "postal_town"),
		Locality:      firstNonEmpty(components, "locality", "administrative_area_level_2", "administrative_area_level_1"),
		Raw:           raw,
	}, nil
}

// chooseGoogleResult picks the first result matching the type preference list, else the first result
func chooseGoogleResult(results []google.GeocodeResult) google.GeocodeResult {
	for _, t := range preferredGoogleTypes {
		for _, r := range results {
			if r.HasType(t) {
				return r
			}
		}
	}
	return results[0]
}
