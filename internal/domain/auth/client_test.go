package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zetta/internal/pkg/apiclient"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(apiclient.New(srv.URL, "/api/v1", "tok", time.Second))
}

func TestClient_Me(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/me", r.URL.Path)
		_, _ = w.Write([]byte(`{"user":{"id":12,"full_name":"Amina Diallo","email":"amina@zetta.test","role":"Teacher"}}`))
	})

	u, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "12", u.ID)
	assert.Equal(t, "Amina Diallo", u.FullName)
	assert.Equal(t, RoleTeacher, u.Role)
	assert.True(t, u.Role.Valid())
}

func TestClient_MeUnauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Me(context.Background())
	assert.True(t, errors.Is(err, ErrUnauthorized))
}

func TestClient_MeMissingUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"email":"x@y.z"}}`))
	})

	_, err := c.Me(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidUser))
}

func TestClient_Logout(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/logout", r.URL.Path)
	})

	require.NoError(t, c.Logout(context.Background()))
	assert.True(t, called)
}
