package archidb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProbeConnection(t *testing.T) {
	ctx := context.Background()

	t.Run("fast response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		assert.Equal(t, QualityFast, ProbeConnection(ctx, srv.Client(), srv.URL))
	})

	t.Run("slow response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(150 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		assert.Equal(t, QualitySlow, ProbeConnection(ctx, srv.Client(), srv.URL))
	})

	t.Run("very slow response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(600 * time.Millisecond)
			w.WriteHeader(http.StatusOK)
		}))
		defer srv.Close()

		assert.Equal(t, QualityVerySlow, ProbeConnection(ctx, srv.Client(), srv.URL))
	})

	t.Run("unreachable host", func(t *testing.T) {
		assert.Equal(t, QualityVerySlow,
			ProbeConnection(ctx, http.DefaultClient, "http://127.0.0.1:1/probe"))
	})

	t.Run("invalid url", func(t *testing.T) {
		assert.Equal(t, QualityVerySlow, ProbeConnection(ctx, http.DefaultClient, "://bad"))
	})
}

func TestQualityString(t *testing.T) {
	assert.Equal(t, "fast", QualityFast.String())
	assert.Equal(t, "slow", QualitySlow.String())
	assert.Equal(t, "very_slow", QualityVerySlow.String())
}
