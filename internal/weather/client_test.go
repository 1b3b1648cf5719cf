package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"busboard/internal/arrivals"
)

const vancouverJSON = `{
  "coord": {"lon": -123.12, "lat": 49.25},
  "weather": [{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}],
  "main": {"temp": 281.65, "pressure": 1012, "humidity": 87},
  "dt": 1540770000,
  "id": 6173331,
  "name": "Vancouver",
  "cod": 200
}`

func TestCurrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/weather", r.URL.Path)
		assert.Equal(t, "6173331", r.URL.Query().Get("id"))
		assert.Equal(t, "owm-key", r.URL.Query().Get("APPID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(vancouverJSON))
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, APIKey: "owm-key", Timeout: time.Second}, nil)
	cond, err := client.Current(context.Background(), 6173331)
	require.NoError(t, err)

	assert.Equal(t, "Vancouver", cond.City)
	assert.Equal(t, "light rain", cond.Description)
	assert.InDelta(t, 8.5, cond.Celsius(), 1e-9)
	assert.Equal(t, int64(1540770000), cond.ObservedAt.Unix())
}

func TestCurrent_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   arrivals.FailureKind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"cod":401,"message":"Invalid API key"}`, arrivals.FailureHTTPStatus},
		{"bad json", http.StatusOK, `{"main":`, arrivals.FailureParse},
		{"no weather entries", http.StatusOK, `{"main":{"temp":280},"weather":[]}`, arrivals.FailureParse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(Config{BaseURL: server.URL, APIKey: "k"}, nil)
			_, err := client.Current(context.Background(), 1)

			du, ok := arrivals.IsDataUnavailable(err)
			require.True(t, ok)
			assert.Equal(t, "weather", du.Source)
			assert.Equal(t, tt.kind, du.Kind)
		})
	}
}

func TestCurrent_ConnectError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	base := server.URL
	server.Close()

	client := NewClient(Config{BaseURL: base, APIKey: "k", Timeout: time.Second}, nil)
	_, err := client.Current(context.Background(), 1)

	du, ok := arrivals.IsDataUnavailable(err)
	require.True(t, ok)
	assert.Equal(t, arrivals.FailureConnect, du.Kind)
}
