package geocode

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/campuspulse/pulse/server/internal/clients/nominatim"
	"github.com/campuspulse/pulse/server/internal/lib/geo"
)

type nominatimProvider struct {
	client          *nominatim.Client
	defaultLocality string
}

// NewNominatimProvider adapts the OpenStreetMap Nominatim client to a Provider
func NewNominatimProvider(client *nominatim.Client, defaultLocality string) Provider {
	return &nominatimProvider{client: client, defaultLocality: defaultLocality}
}

func (n *nominatimProvider) Name() string { return "nominatim" }

func (n *nominatimProvider) Reverse(ctx context.Context, point geo.Point) (*Place, error) {
	response, err := n.client.Reverse(ctx, point.Latitude, point.Longitude)
	if err != nil {
		return nil, err
	}
	if response.Error != "" || (len(response.Address) == 0 && response.DisplayName == "") {
		return nil, nil
	}

	address := response.Address
	road := firstNonEmpty(address, "road", "residential", "cycleway", "pedestrian")
	neighbourhood := firstNonEmpty(address, "neighbourhood", "suburb", "village", "hamlet", "town", "city")
	locality := firstNonEmpty(address, "city", "county", "state")

	displayName := response.DisplayName
	if displayName == "" && neighbourhood != "" {
		displayName = strings.TrimSpace(strings.TrimSuffix(neighbourhood+", "+locality, ", "))
	}
	displayName, road = Sanitize(displayName, road, address, n.defaultLocality)

	raw, _ := json.Marshal(response)
	return &Place{
		Provider:      n.Name(),
		DisplayName:   displayName,
		Road:          road,
		Neighbourhood: neighbourhood,
		Locality:      locality,
		Raw:           raw,
	}, nil
}
