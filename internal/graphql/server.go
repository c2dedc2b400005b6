// Package graphql assembles the v1 and v2 schemas behind one HTTP router.
package graphql

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/graphql-go/handler"
	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/auth"
	v1 "github.com/opencollective/opencollective-api-sub009/internal/graphql/v1"
	v2 "github.com/opencollective/opencollective-api-sub009/internal/graphql/v2"
	"github.com/opencollective/opencollective-api-sub009/internal/loaders"
	"github.com/opencollective/opencollective-api-sub009/internal/mutations"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// RequestIDHeader is echoed on every GraphQL response
const RequestIDHeader = "X-Request-Id"

// Deps are the collaborators the server is built from
type Deps struct {
	Store     store.Store
	Mutations *mutations.Service
	// Auth may be nil, in which case every request is anonymous
	Auth        *auth.Middleware
	Development bool
	Logger      *logrus.Logger
	// TrustedProxies lists the IPs or CIDRs allowed to set forwarding headers
	TrustedProxies []string
}

// Server routes requests to both schemas and the health endpoints
type Server struct {
	router   *mux.Router
	store    store.Store
	clientIP *ClientIPResolver
	logger   *logrus.Logger
}

// NewServer builds both schemas once and mounts them
func NewServer(deps Deps) (*Server, error) {
	resolver, err := NewClientIPResolver(deps.TrustedProxies)
	if err != nil {
		return nil, err
	}
	legacy, err := v1.NewSchema(deps.Store, deps.Mutations, deps.Logger)
	if err != nil {
		return nil, err
	}
	current, err := v2.NewSchema(deps.Store, deps.Mutations, deps.Logger)
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:   mux.NewRouter(),
		store:    deps.Store,
		clientIP: resolver,
		logger:   deps.Logger,
	}

	v1Schema := legacy.GetSchema()
	v2Schema := current.GetSchema()
	v1Handler := s.wrap(deps.Auth, handler.New(&handler.Config{
		Schema:   &v1Schema,
		Pretty:   true,
		GraphiQL: deps.Development,
	}))
	v2Handler := s.wrap(deps.Auth, handler.New(&handler.Config{
		Schema:   &v2Schema,
		Pretty:   true,
		GraphiQL: deps.Development,
	}))

	s.router.Handle("/graphql/v1", v1Handler).Methods(http.MethodGet, http.MethodPost)
	s.router.Handle("/graphql/v2", v2Handler).Methods(http.MethodGet, http.MethodPost)
	s.router.Handle("/graphql", v2Handler).Methods(http.MethodGet, http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/ready", s.handleReady).Methods(http.MethodGet)

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// wrap authenticates the request, then gives it a fresh request context
func (s *Server) wrap(authMw *auth.Middleware, next http.Handler) http.Handler {
	h := s.requestContext(next)
	if authMw != nil {
		h = authMw.Authenticate(h)
	}
	return h
}

func (s *Server) requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		rc := reqctx.New(reqctx.Options{
			Actor:     auth.ActorFromContext(r.Context()),
			Loaders:   loaders.New(s.store),
			ClientIP:  s.clientIP.ClientIP(r),
			RequestID: requestID,
		})

		w.Header().Set(RequestIDHeader, requestID)
		next.ServeHTTP(w, r.WithContext(reqctx.With(r.Context(), rc)))
	})
}

// ClientIP returns the address the request is attributed to, for rate limits and logs
func (s *Server) ClientIP(r *http.Request) string {
	return s.clientIP.ClientIP(r)
}

// ClientIPResolver attributes requests to an address. Forwarding headers are only
// read when the peer is a trusted proxy, since any client can send them.
type ClientIPResolver struct {
	trusted []*net.IPNet
}

// NewClientIPResolver parses proxies given as IPs or CIDRs
func NewClientIPResolver(proxies []string) (*ClientIPResolver, error) {
	c := &ClientIPResolver{}
	for _, entry := range proxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 8 * net.IPv6len
			if ip.To4() != nil {
				ip, bits = ip.To4(), 8*net.IPv4len
			}
			c.trusted = append(c.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		c.trusted = append(c.trusted, network)
	}
	return c, nil
}

func (c *ClientIPResolver) isTrusted(addr string) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, network := range c.trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer address unless the peer is a trusted proxy. Behind trusted
// proxies, X-Forwarded-For is read from the right and the first untrusted hop wins, then
// X-Real-IP is used.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer := peerAddress(r)
	if !c.isTrusted(peer) {
		return peer
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if i == 0 || !c.isTrusted(hop) {
				return hop
			}
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	return peer
}

func peerAddress(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Health endpoint (liveness)
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness endpoint
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.WithError(err).Warn("Readiness check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
