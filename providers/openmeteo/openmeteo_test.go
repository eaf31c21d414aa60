package openmeteo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrishap/ParallelLives/engine/resolve"
)

func TestGeocode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/search", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [
			{"name": "Tokyo", "country": "Japan", "latitude": 35.6895, "longitude": 139.6917}
		]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	coords, err := client.Geocode(context.Background(), "Tokyo", "Japan")
	require.NoError(t, err)
	assert.Equal(t, 35.6895, coords.Lat)
	assert.Equal(t, 139.6917, coords.Lon)
}

func TestGeocodeFallsBackToBareCity(t *testing.T) {
	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		queries = append(queries, name)
		w.Header().Set("Content-Type", "application/json")
		if name == "Tokyo" {
			_, _ = w.Write([]byte(`{"results": [{"latitude": 35.7, "longitude": 139.7}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	coords, err := client.Geocode(context.Background(), "Tokyo", "Nippon")
	require.NoError(t, err)
	assert.Equal(t, []string{"Tokyo Nippon", "Tokyo"}, queries)
	assert.Equal(t, 35.7, coords.Lat)
}

func TestGeocodeNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	_, err := client.Geocode(context.Background(), "Atlantis", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolve.ErrNotFound))
}

func TestClimateAt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/climate", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// Flat 21°C, no rain, steady sunshine: the comfort ideal.
		_, _ = w.Write([]byte(`{"monthly": {
			"temperature_2m_mean": [21, 21, 21, 21, 21, 21, 21, 21, 21, 21, 21, 21],
			"precipitation_sum": [0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0],
			"sunshine_duration": [210, 210, 210, 210, 210, 210, 210, 210, 210, 210, 210, 210]
		}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	climate, err := client.ClimateAt(context.Background(), resolve.Coordinates{Lat: 35.7, Lon: 139.7})
	require.NoError(t, err)

	assert.Equal(t, 21.0, climate.AvgTempC)
	assert.Equal(t, 0, climate.RainDays)
	assert.Equal(t, 360, climate.SunnyDays)
	assert.Equal(t, 10.0, climate.ComfortIndex)
}

func TestClimateComfortDegradesWithColdAndRain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		// 5°C average with heavy rain.
		_, _ = w.Write([]byte(`{"monthly": {
			"temperature_2m_mean": [5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5, 5],
			"precipitation_sum": [160, 160, 160, 160, 160, 160, 160, 160, 160, 160, 160, 160],
			"sunshine_duration": [70, 70, 70, 70, 70, 70, 70, 70, 70, 70, 70, 70]
		}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	climate, err := client.ClimateAt(context.Background(), resolve.Coordinates{})
	require.NoError(t, err)

	assert.Equal(t, 5.0, climate.AvgTempC)
	assert.Equal(t, 240, climate.RainDays)
	assert.Less(t, climate.ComfortIndex, 3.0)
	assert.GreaterOrEqual(t, climate.ComfortIndex, 0.0)
}

func TestClimateAtNoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"monthly": {}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, srv.URL)
	_, err := client.ClimateAt(context.Background(), resolve.Coordinates{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolve.ErrNotFound))
}
