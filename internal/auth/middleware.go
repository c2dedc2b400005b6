package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// ContextKeyActor is the context key for the authenticated actor
const ContextKeyActor contextKey = "actor"

// PersonalTokenHeader carries personal tokens
const PersonalTokenHeader = "Personal-Token"

// ActorSource is the subset of the store needed to authenticate a request
type ActorSource interface {
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*models.User, error)
	GetCollectivesByIDs(ctx context.Context, ids []int64) ([]*models.Collective, error)
	ListMembershipsOf(ctx context.Context, memberCollectiveIDs []int64) ([]*models.Member, error)
	GetPersonalTokenByHash(ctx context.Context, hash string) (*models.PersonalToken, error)
}

// errInvalidCredentials marks failures that must answer 401 rather than 500
var errInvalidCredentials = errors.New("invalid credentials")

// Middleware authenticates requests with a session/OAuth JWT or a personal token
type Middleware struct {
	secret           []byte
	source           ActorSource
	rootCollectiveID int64
	logger           *logrus.Logger
	now              func() time.Time
}

// NewMiddleware creates a new auth middleware
func NewMiddleware(secret string, source ActorSource, rootCollectiveID int64, logger *logrus.Logger) *Middleware {
	return &Middleware{
		secret:           []byte(secret),
		source:           source,
		rootCollectiveID: rootCollectiveID,
		logger:           logger,
		now:              time.Now,
	}
}

// Authenticate resolves the actor and stores it in the request context.
// Requests without credentials continue anonymously.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, err := m.actorFromRequest(r)
		if err != nil {
			if errors.Is(err, errInvalidCredentials) {
				m.logger.WithError(err).Warn("Authentication failed")
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}
			m.logger.WithError(err).Error("Failed to load actor")
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if actor != nil {
			m.logger.WithFields(logrus.Fields{
				"user_id": actor.ID(),
				"token":   actor.Token,
			}).Debug("Request authenticated")
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func (m *Middleware) actorFromRequest(r *http.Request) (*Actor, error) {
	if pt := r.Header.Get(PersonalTokenHeader); pt != "" {
		return m.actorFromPersonalToken(r.Context(), pt)
	}

	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return nil, fmt.Errorf("%w: malformed authorization header", errInvalidCredentials)
	}

	claims, err := ParseToken(m.secret, parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCredentials, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCredentials, err)
	}

	actor, err := m.loadActor(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	actor.Token = TokenKind(claims.Scope)
	if actor.Token == TokenKindOAuth {
		actor.Scopes = claims.Scopes
	}
	if claims.TwoFactorVerifiedAt > 0 {
		verified := time.Unix(claims.TwoFactorVerifiedAt, 0)
		actor.TwoFactorVerifiedAt = &verified
	}
	return actor, nil
}

func (m *Middleware) actorFromPersonalToken(ctx context.Context, token string) (*Actor, error) {
	if err := ValidatePersonalTokenFormat(token); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidCredentials, err)
	}

	pt, err := m.source.GetPersonalTokenByHash(ctx, HashPersonalToken(token))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: unknown personal token", errInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to look up personal token: %w", err)
	}
	if pt.ExpiresAt != nil && !pt.ExpiresAt.After(m.now()) {
		return nil, fmt.Errorf("%w: personal token expired", errInvalidCredentials)
	}

	actor, err := m.loadActor(ctx, pt.UserID)
	if err != nil {
		return nil, err
	}
	actor.Token = TokenKindPersonal
	actor.Scopes = pt.Scopes
	return actor, nil
}

// loadActor fetches the user, its profile and the profile's memberships
func (m *Middleware) loadActor(ctx context.Context, userID int64) (*Actor, error) {
	users, err := m.source.GetUsersByIDs(ctx, []int64{userID})
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("%w: unknown user %d", errInvalidCredentials, userID)
	}
	user := users[0]

	var profile *models.Collective
	profiles, err := m.source.GetCollectivesByIDs(ctx, []int64{user.CollectiveID})
	if err != nil {
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	if len(profiles) > 0 {
		profile = profiles[0]
	}

	memberships, err := m.source.ListMembershipsOf(ctx, []int64{user.CollectiveID})
	if err != nil {
		return nil, fmt.Errorf("failed to load memberships: %w", err)
	}

	return NewActor(user, profile, memberships, m.rootCollectiveID), nil
}

// ─── Context Helpers ────────────────────────────────────────

// WithActor stores the actor in ctx. A nil actor is stored as anonymous.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// ActorFromContext extracts the actor, nil when anonymous
func ActorFromContext(ctx context.Context) *Actor {
	if actor, ok := ctx.Value(ContextKeyActor).(*Actor); ok {
		return actor
	}
	return nil
}
