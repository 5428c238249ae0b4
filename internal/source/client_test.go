package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kbhub/internal/domain"
)

func drive(externalID string) domain.SourceBinding {
	return domain.SourceBinding{SourceType: "drive", ExternalID: externalID, AccessControlled: true}
}

func TestHTTPClient_HasAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sources/drive/folder-1/access", r.URL.Path)
		assert.Equal(t, "a@example.com", r.URL.Query().Get("principal"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"has_access": true}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	ok, err := c.HasAccess(context.Background(), drive("folder-1"), "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHTTPClient_ProviderErrorIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, time.Second)
	_, err := c.HasAccess(context.Background(), drive("folder-1"), "a@example.com")
	var unavailable *domain.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "drive", unavailable.Source)
}

func TestHTTPClient_TimeoutIsSourceUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL, 20*time.Millisecond)
	_, err := c.HasAccess(context.Background(), drive("folder-1"), "a@example.com")
	var unavailable *domain.SourceUnavailableError
	require.ErrorAs(t, err, &unavailable)
}

func TestMemoryClient(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	ok, err := c.HasAccess(ctx, drive("f"), "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	c.Grant("f", "a@example.com")
	ok, err = c.HasAccess(ctx, drive("f"), "a@example.com")
	require.NoError(t, err)
	assert.True(t, ok)

	c.Revoke("f", "a@example.com")
	ok, err = c.HasAccess(ctx, drive("f"), "a@example.com")
	require.NoError(t, err)
	assert.False(t, ok)

	c.SetUnavailable("f", true)
	_, err = c.HasAccess(ctx, drive("f"), "a@example.com")
	var unavailable *domain.SourceUnavailableError
	assert.ErrorAs(t, err, &unavailable)
}
