package nominatim

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestFixture(t *testing.T, filename string) []byte {
	data, err := os.ReadFile("testdata/" + filename)
	require.NoError(t, err, "Failed to load test fixture %s", filename)
	return data
}

func TestReverse_Success(t *testing.T) {
	fixture := loadTestFixture(t, "rocky_point.json")

	var gotUserAgent string
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		gotQuery = map[string]string{
			"path":           r.URL.Path,
			"format":         r.URL.Query().Get("format"),
			"lat":            r.URL.Query().Get("lat"),
			"lon":            r.URL.Query().Get("lon"),
			"addressdetails": r.URL.Query().Get("addressdetails"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(fixture)
	}))
	defer server.Close()

	client := NewClientWithHTTPDoer(server.URL, "PulseTest/1.0", 0, server.Client())

	response, err := client.Reverse(context.Background(), 17.8070312, -77.1420538)
	require.NoError(t, err)

	assert.Equal(t, "PulseTest/1.0", gotUserAgent)
	assert.Equal(t, "/reverse", gotQuery["path"])
	assert.Equal(t, "jsonv2", gotQuery["format"])
	assert.Equal(t, "17.807031", gotQuery["lat"])
	assert.Equal(t, "-77.142054", gotQuery["lon"])
	assert.Equal(t, "1", gotQuery["addressdetails"])

	assert.Equal(t, "Unnamed Road, Rocky Point, Clarendon, Jamaica", response.DisplayName)
	assert.Equal(t, "Rocky Point", response.Address["village"])
	assert.Equal(t, "Unnamed Road", response.Address["road"])
	assert.Empty(t, response.Error)
}

func TestReverse_DefaultUserAgent(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"error":"Unable to geocode"}`))
	}))
	defer server.Close()

	client := NewClientWithHTTPDoer(server.URL, "", 0, server.Client())

	response, err := client.Reverse(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultUserAgent, gotUserAgent)
	assert.Equal(t, "Unable to geocode", response.Error)
}

func TestReverse_Non200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "blocked", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClientWithHTTPDoer(server.URL, "", 0, server.Client())

	_, err := client.Reverse(context.Background(), 18.0, -76.7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error 403")
}

func TestReverse_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer server.Close()

	client := NewClientWithHTTPDoer(server.URL, "", 0, server.Client())

	_, err := client.Reverse(context.Background(), 18.0, -76.7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestReverse_RateLimited(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_, _ = w.Write([]byte(`{"display_name":"Somewhere"}`))
	}))
	defer server.Close()

	client := NewClientWithHTTPDoer(server.URL, "", 1, server.Client())

	_, err := client.Reverse(context.Background(), 18.0, -76.7)
	require.NoError(t, err)

	// Second call must wait for the limiter; a short deadline makes it fail fast
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Reverse(ctx, 18.0, -76.7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limiter")
	assert.Equal(t, 1, calls)
}
