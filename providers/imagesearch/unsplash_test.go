package imagesearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Hrishap/ParallelLives/engine/resolve"
)

func TestCoverImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "chef Tokyo", r.URL.Query().Get("query"))
		assert.Equal(t, "Client-ID test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": [{
			"description": "",
			"alt_description": "a chef plating a dish",
			"urls": {"regular": "https://images.example/chef.jpg"},
			"user": {"name": "Kana Sato"}
		}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	cover, err := client.CoverImage(context.Background(), "chef Tokyo")
	require.NoError(t, err)

	assert.Equal(t, "https://images.example/chef.jpg", cover.URL)
	assert.Equal(t, "Kana Sato", cover.Credit)
	assert.Equal(t, "a chef plating a dish", cover.Description)
}

func TestCoverImageNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	_, err := client.CoverImage(context.Background(), "nothing matches this")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolve.ErrNotFound))
}

func TestCoverImageUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key")
	client.backoff = time.Millisecond

	_, err := client.CoverImage(context.Background(), "chef Tokyo")
	require.Error(t, err)
	assert.True(t, errors.Is(err, resolve.ErrUnavailable))
}
