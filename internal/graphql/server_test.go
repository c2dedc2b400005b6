package graphql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencollective/opencollective-api-sub009/internal/auth"
	"github.com/opencollective/opencollective-api-sub009/internal/mutations"
	"github.com/opencollective/opencollective-api-sub009/internal/ratelimit"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
	"github.com/opencollective/opencollective-api-sub009/internal/store/memstore"
	"github.com/opencollective/opencollective-api-sub009/internal/twofactor"
)

const testSecret = "server-test-secret"

type failingPing struct {
	store.Store
}

func (failingPing) Ping(ctx context.Context) error {
	return errors.New("connection refused")
}

func newTestServer(t *testing.T, st store.Store, f *memstore.Fixtures, trustedProxies ...string) *Server {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	svc := mutations.NewService(st,
		ratelimit.NewMemoryLimiter(ratelimit.Config{Limit: 60, Window: time.Hour}),
		twofactor.NewEnforcer(2*time.Hour, logger),
		mutations.NewLogMailer(logger),
		mutations.Options{OpenSourceHostID: f.Host.ID},
		logger)

	srv, err := NewServer(Deps{
		Store:     st,
		Mutations: svc,
		Auth:      auth.NewMiddleware(testSecret, st, f.Root.ID, logger),
		Logger:    logger,

		TrustedProxies: trustedProxies,
	})
	require.NoError(t, err)
	return srv
}

type gqlResponse struct {
	Data   map[string]interface{} `json:"data"`
	Errors []struct {
		Message    string                 `json:"message"`
		Extensions map[string]interface{} `json:"extensions"`
	} `json:"errors"`
}

func post(t *testing.T, srv http.Handler, path, token, query string) (*httptest.ResponseRecorder, gqlResponse) {
	t.Helper()
	body, err := json.Marshal(map[string]string{"query": query})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	var out gqlResponse
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestServerRoutesBothSchemas(t *testing.T) {
	st := memstore.New()
	f := memstore.Seed(st)
	srv := newTestServer(t, st, f)

	token, err := auth.IssueToken([]byte(testSecret), f.Carol.ID, auth.IssueOptions{})
	require.NoError(t, err)

	t.Run("v2 anonymous", func(t *testing.T) {
		rec, out := post(t, srv, "/graphql/v2", "", `{ individual(slug: "carol") { email } }`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, out.Errors)
		assert.Equal(t, map[string]interface{}{"individual": map[string]interface{}{"email": nil}}, out.Data)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})

	t.Run("v2 authenticated", func(t *testing.T) {
		_, out := post(t, srv, "/graphql/v2", token, `{ individual(slug: "carol") { email } }`)
		assert.Equal(t, map[string]interface{}{"individual": map[string]interface{}{"email": "carol@example.com"}}, out.Data)
	})

	t.Run("alias serves v2", func(t *testing.T) {
		_, out := post(t, srv, "/graphql", token, `{ me { slug } }`)
		assert.Equal(t, map[string]interface{}{"me": map[string]interface{}{"slug": "carol"}}, out.Data)
	})

	t.Run("v1", func(t *testing.T) {
		_, out := post(t, srv, "/graphql/v1", token, `{ LoggedInUser { email } }`)
		assert.Equal(t, map[string]interface{}{"LoggedInUser": map[string]interface{}{"email": "carol@example.com"}}, out.Data)
	})

	t.Run("error codes survive serialization", func(t *testing.T) {
		_, out := post(t, srv, "/graphql/v2", "", `{ account(slug: "missing") { id } }`)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "NOT_FOUND", out.Errors[0].Extensions["code"])
	})

	t.Run("bad token", func(t *testing.T) {
		rec, _ := post(t, srv, "/graphql/v2", "not-a-jwt", `{ me { id } }`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestIDIsEchoed(t *testing.T) {
	st := memstore.New()
	f := memstore.Seed(st)
	srv := newTestServer(t, st, f)

	req := httptest.NewRequest(http.MethodPost, "/graphql/v2", strings.NewReader(`{"query":"{ me { id } }"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, "req-123")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(RequestIDHeader))
}

func TestHealthEndpoints(t *testing.T) {
	st := memstore.New()
	f := memstore.Seed(st)

	rec := httptest.NewRecorder()
	newTestServer(t, st, f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	newTestServer(t, st, f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ready"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	newTestServer(t, failingPing{st}, f).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status": "unavailable", "error": "connection refused"}`, rec.Body.String())
}

func TestClientIP(t *testing.T) {
	resolver, err := NewClientIPResolver([]string{"10.0.0.0/8", "192.0.2.1"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{"forwarded by a trusted proxy", map[string]string{"X-Forwarded-For": "198.51.100.7"}, "10.0.0.2:4000", "198.51.100.7"},
		{"trusted hops are skipped", map[string]string{"X-Forwarded-For": "198.51.100.7, 10.0.0.1"}, "10.0.0.2:4000", "198.51.100.7"},
		{"spoofed leftmost hop", map[string]string{"X-Forwarded-For": "6.6.6.6, 198.51.100.7"}, "10.0.0.2:4000", "198.51.100.7"},
		{"real ip from a trusted proxy", map[string]string{"X-Real-IP": "198.51.100.8"}, "192.0.2.1:4000", "198.51.100.8"},
		{"forwarded by an untrusted peer", map[string]string{"X-Forwarded-For": "10.0.0.9"}, "198.51.100.7:1234", "198.51.100.7"},
		{"real ip from an untrusted peer", map[string]string{"X-Real-IP": "10.0.0.9"}, "198.51.100.7:1234", "198.51.100.7"},
		{"peer address", nil, "192.0.2.44:51234", "192.0.2.44"},
		{"peer without port", nil, "192.0.2.45", "192.0.2.45"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, resolver.ClientIP(req))
		})
	}

	t.Run("no trusted proxies", func(t *testing.T) {
		none, err := NewClientIPResolver(nil)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/graphql", nil)
		req.RemoteAddr = "10.0.0.2:4000"
		req.Header.Set("X-Forwarded-For", "198.51.100.7")
		assert.Equal(t, "10.0.0.2", none.ClientIP(req))
	})

	t.Run("invalid entries", func(t *testing.T) {
		_, err := NewClientIPResolver([]string{"not-an-ip"})
		assert.Error(t, err)
		_, err = NewClientIPResolver([]string{"10.0.0.0/33"})
		assert.Error(t, err)
	})
}

func TestCreateUserRateLimitIgnoresSpoofedHeaders(t *testing.T) {
	createUser := func(srv http.Handler, remoteAddr, forwardedFor string, i int) gqlResponse {
		query := fmt.Sprintf(`mutation { createUser(user: {email: "spoof%d@example.com"}) { user { slug } } }`, i)
		body, err := json.Marshal(map[string]string{"query": query})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/graphql/v2", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwardedFor)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var out gqlResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		return out
	}

	t.Run("untrusted peer", func(t *testing.T) {
		st := memstore.New()
		srv := newTestServer(t, st, memstore.Seed(st))

		for i := 1; i <= 60; i++ {
			out := createUser(srv, "198.51.100.7:1234", fmt.Sprintf("10.0.0.%d", i), i)
			require.Empty(t, out.Errors, "call %d", i)
		}
		out := createUser(srv, "198.51.100.7:1234", "10.0.0.61", 61)
		require.Len(t, out.Errors, 1)
		assert.Equal(t, "RATE_LIMIT_EXCEEDED", out.Errors[0].Extensions["code"])
		assert.Equal(t, 60, st.CallCount("CreateUser"))
	})

	t.Run("trusted proxy forwards distinct clients", func(t *testing.T) {
		st := memstore.New()
		srv := newTestServer(t, st, memstore.Seed(st), "10.1.0.0/16")

		for i := 1; i <= 61; i++ {
			out := createUser(srv, "10.1.0.5:443", fmt.Sprintf("198.51.100.%d", i), i)
			require.Empty(t, out.Errors, "call %d", i)
		}
		assert.Equal(t, 61, st.CallCount("CreateUser"))
	})
}
