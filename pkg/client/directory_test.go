package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"billing-service/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testAPIKey    = "svc-billing"
	testAPISecret = "partner-secret"
)

func TestLookupByEmailSignsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/internal/users/lookup", r.URL.Path)
		assert.Equal(t, testAPIKey, r.Header.Get("X-API-Key"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		ts, err := strconv.ParseInt(r.Header.Get("X-Timestamp"), 10, 64)
		require.NoError(t, err)
		assert.Equal(t, signRequest(body, ts, testAPISecret), r.Header.Get("X-Signature"))

		var req map[string]string
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "bob@example.com", req["email"])

		json.NewEncoder(w).Encode(domain.DirectoryUser{
			UserID: "user-bob",
			Email:  "bob@example.com",
			Name:   "Bob",
		})
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, testAPIKey, testAPISecret, zap.NewNop())
	user, err := c.LookupByEmail(context.Background(), "bob@example.com")
	require.NoError(t, err)

	assert.Equal(t, "user-bob", user.UserID)
	assert.Equal(t, "bob@example.com", user.Email)
}

func TestLookupByEmailNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, testAPIKey, testAPISecret, zap.NewNop())
	_, err := c.LookupByEmail(context.Background(), "nobody@example.com")
	require.Error(t, err)

	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestLookupByEmailEmptyUserTreatedAsMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(domain.DirectoryUser{})
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, testAPIKey, testAPISecret, zap.NewNop())
	_, err := c.LookupByEmail(context.Background(), "ghost@example.com")
	require.Error(t, err)

	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestLookupByEmailUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, testAPIKey, testAPISecret, zap.NewNop())
	_, err := c.LookupByEmail(context.Background(), "bob@example.com")
	require.Error(t, err)

	var notFound *domain.NotFoundError
	assert.False(t, errors.As(err, &notFound), "a 5xx must not read as a missing user")
	assert.Contains(t, err.Error(), "500")
}
