package cityapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrishap/ParallelLives/engine/resolve"
	"github.com/Hrishap/ParallelLives/engine/retry"
)

func TestLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Tokyo", r.URL.Query().Get("name"))
		assert.Equal(t, "Japan", r.URL.Query().Get("country"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "Tokyo",
			"country": "Japan",
			"population": 13960000,
			"timezone": "Asia/Tokyo",
			"scores": {
				"costOfLiving": 7.2, "safety": 9.1, "housing": 4.5,
				"healthcare": 8.3, "education": 7.8, "leisure": 8.9,
				"tolerance": 6.2, "commute": 6.8, "business": 7.5,
				"economy": 7.9, "overall": 7.4
			}
		}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	m, err := client.Lookup(context.Background(), "Tokyo", "Japan")
	require.NoError(t, err)

	assert.Equal(t, "Tokyo", m.Name)
	assert.Equal(t, "Japan", m.Country)
	assert.Equal(t, int64(13960000), m.Population)
	assert.Equal(t, 9.1, m.Scores.Safety)
	assert.Equal(t, 7.2, m.Scores.CostOfLiving)
}

func TestLookupNotFound(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	_, err := client.Lookup(context.Background(), "Atlantis", "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolve.ErrNotFound))
	// Not-found is permanent: no retries.
	assert.Equal(t, int32(1), calls.Load())
}

func TestLookupRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	client.backoff = time.Millisecond

	_, err := client.Lookup(context.Background(), "Tokyo", "Japan")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolve.ErrUnavailable))
	assert.Equal(t, int32(retry.DefaultAttempts), calls.Load())
}

func TestLookupRecoversMidRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name": "Tokyo", "country": "Japan", "scores": {"overall": 7.4}}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL)
	client.backoff = time.Millisecond

	m, err := client.Lookup(context.Background(), "Tokyo", "Japan")
	require.NoError(t, err)
	assert.Equal(t, 7.4, m.Scores.Overall)
	assert.Equal(t, int32(2), calls.Load())
}
