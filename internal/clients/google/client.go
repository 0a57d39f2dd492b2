package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the Google Maps Platform API host
const DefaultBaseURL = "https://maps.googleapis.com"

// HTTPDoer executes HTTP requests; *http.Client satisfies it
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client provides access to the Google Geocoding API
type Client struct {
	apiKey     string
	httpClient HTTPDoer
	baseURL    string
}

// NewClient creates a new Google Geocoding API client
func NewClient(apiKey string) *Client {
	return NewClientWithHTTPDoer(apiKey, DefaultBaseURL, &http.Client{
		Timeout: 30 * time.Second,
	})
}

// NewClientWithHTTPDoer creates a client with a custom base URL and HTTP transport
func NewClientWithHTTPDoer(apiKey, baseURL string, doer HTTPDoer) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: doer,
	}
}

// HasKey reports whether an API key is configured
func (c *Client) HasKey() bool {
	return c.apiKey != ""
}

// ReverseGeocode looks up addresses for a coordinate.
// Transport failures, non-2xx responses and undecodable bodies are returned as errors;
// the API status (OK, ZERO_RESULTS, ...) is left for the caller to interpret.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResponse, error) {
	if !c.HasKey() {
		return nil, fmt.Errorf("google geocoding API key not configured")
	}

	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%.6f,%.6f", lat, lng))
	params.Set("key", c.apiKey)

	requestURL := fmt.Sprintf("%s/maps/api/geocode/json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 429 {
		return nil, fmt.Errorf("rate limit exceeded")
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var response GeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &response, nil
}

// GeocodeResponse represents the Geocoding API response structure
type GeocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Results      []GeocodeResult `json:"results"`
}

// GeocodeResult is a single candidate address
type GeocodeResult struct {
	FormattedAddress  string             `json:"formatted_address"`
	PlaceID           string             `json:"place_id"`
	Types             []string           `json:"types"`
	AddressComponents []AddressComponent `json:"address_components"`
}

// AddressComponent is one typed part of an address
type AddressComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

// HasType reports whether the result is tagged with the given place type
func (r GeocodeResult) HasType(placeType string) bool {
	for _, t := range r.Types {
		if t == placeType {
			return true
		}
	}
	return false
}

// Components flattens address components into a type -> long name map.
// When several components share a type the first one wins.
func (r GeocodeResult) Components() map[string]string {
	out := make(map[string]string)
	for _, c := range r.AddressComponents {
		for _, t := range c.Types {
			if _, ok := out[t]; !ok {
				out[t] = c.LongName
			}
		}
	}
	return out
}
