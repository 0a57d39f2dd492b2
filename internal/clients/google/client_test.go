package google

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockHTTPDoer is a mock implementation of HTTPDoer
type MockHTTPDoer struct {
	mock.Mock
}

func (m *MockHTTPDoer) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	resp, _ := args.Get(0).(*http.Response)
	return resp, args.Error(1)
}

// Helper function to load test fixture data
func loadTestFixture(t *testing.T, filename string) string {
	data, err := os.ReadFile("testdata/" + filename)
	require.NoError(t, err, "Failed to load test fixture %s", filename)
	return string(data)
}

// Helper function to create mock HTTP response
func createMockResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
	}
}

func TestReverseGeocode_Success(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, loadTestFixture(t, "mona_road.json")), nil)

	client := NewClientWithHTTPDoer("test-api-key", "https://maps.example.com", mockHTTP)

	response, err := client.ReverseGeocode(context.Background(), 18.006, -76.7466)

	require.NoError(t, err)
	require.NotNil(t, response)
	assert.Equal(t, "OK", response.Status)
	require.Len(t, response.Results, 2)

	route := response.Results[1]
	assert.True(t, route.HasType("route"))
	assert.False(t, route.HasType("locality"))

	components := route.Components()
	assert.Equal(t, "Mona Road", components["route"])
	assert.Equal(t, "Mona", components["neighborhood"])
	assert.Equal(t, "Kingston", components["locality"])
	assert.Equal(t, "Mona", components["political"], "First component wins for shared types")

	mockHTTP.AssertExpectations(t)
}

func TestReverseGeocode_RequestFormat(t *testing.T) {
	var capturedRequest *http.Request
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Run(func(args mock.Arguments) {
		capturedRequest = args.Get(0).(*http.Request)
	}).Return(createMockResponse(200, `{"status":"ZERO_RESULTS","results":[]}`), nil)

	client := NewClientWithHTTPDoer("test-api-key", "https://maps.example.com", mockHTTP)

	response, err := client.ReverseGeocode(context.Background(), 18.0060001, -76.7466)
	require.NoError(t, err)
	assert.Equal(t, "ZERO_RESULTS", response.Status)

	require.NotNil(t, capturedRequest)
	assert.Equal(t, "GET", capturedRequest.Method)
	assert.Equal(t, "/maps/api/geocode/json", capturedRequest.URL.Path)
	assert.Equal(t, "18.006000,-76.746600", capturedRequest.URL.Query().Get("latlng"))
	assert.Equal(t, "test-api-key", capturedRequest.URL.Query().Get("key"))
}

func TestReverseGeocode_RateLimitError(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(429, `{"error_message": "Quota exceeded"}`), nil)

	client := NewClientWithHTTPDoer("test-api-key", "", mockHTTP)

	response, err := client.ReverseGeocode(context.Background(), 18.006, -76.7466)

	assert.Error(t, err)
	assert.Nil(t, response)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

func TestReverseGeocode_APIError(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(500, `upstream failure`), nil)

	client := NewClientWithHTTPDoer("test-api-key", "", mockHTTP)

	_, err := client.ReverseGeocode(context.Background(), 18.006, -76.7466)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error 500")
}

func TestReverseGeocode_MalformedJSON(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(
		createMockResponse(200, `{"status": "OK", "results": [`), nil)

	client := NewClientWithHTTPDoer("test-api-key", "", mockHTTP)

	_, err := client.ReverseGeocode(context.Background(), 18.006, -76.7466)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode response")
}

func TestReverseGeocode_TransportError(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	mockHTTP.On("Do", mock.AnythingOfType("*http.Request")).Return(nil, errors.New("connection refused"))

	client := NewClientWithHTTPDoer("test-api-key", "", mockHTTP)

	_, err := client.ReverseGeocode(context.Background(), 18.006, -76.7466)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReverseGeocode_NoKey(t *testing.T) {
	mockHTTP := &MockHTTPDoer{}
	client := NewClientWithHTTPDoer("", "", mockHTTP)

	assert.False(t, client.HasKey())
	_, err := client.ReverseGeocode(context.Background(), 18.006, -76.7466)
	assert.Error(t, err)
	mockHTTP.AssertNotCalled(t, "Do", mock.Anything)
}
