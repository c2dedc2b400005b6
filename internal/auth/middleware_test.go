package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/store/memstore"
)

const testSecret = "test-secret"

func newTestMiddleware(t *testing.T) (*Middleware, *memstore.Store, *memstore.Fixtures) {
	t.Helper()
	s := memstore.New()
	f := memstore.Seed(s)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewMiddleware(testSecret, s, f.Root.ID, logger), s, f
}

// serve runs a request through the middleware and captures the actor it produced
func serve(m *Middleware, req *http.Request) (*httptest.ResponseRecorder, *Actor, bool) {
	var (
		captured *Actor
		reached  bool
	)
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		captured = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, captured, reached
}

func TestAuthenticateAnonymous(t *testing.T) {
	m, _, _ := newTestMiddleware(t)

	rec, actor, reached := serve(m, httptest.NewRequest(http.MethodPost, "/graphql/v2", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
	assert.Nil(t, actor)
	assert.False(t, actor.IsAuthenticated())
}

func TestAuthenticateSessionToken(t *testing.T) {
	m, _, f := newTestMiddleware(t)
	verified := time.Now().Add(-10 * time.Minute)
	token, err := IssueToken([]byte(testSecret), f.Alice.ID, IssueOptions{TwoFactorVerifiedAt: &verified})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql/v2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, actor, _ := serve(m, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, actor)
	assert.Equal(t, f.Alice.ID, actor.ID())
	assert.Equal(t, TokenKindSession, actor.Token)
	assert.False(t, actor.IsScoped())
	assert.True(t, actor.IsAdmin(f.Babel.ID))
	assert.True(t, actor.IsAdmin(f.Acme.ID))
	assert.False(t, actor.IsAdmin(f.Host.ID))
	require.NotNil(t, actor.TwoFactorVerifiedAt)
	assert.Equal(t, verified.Unix(), actor.TwoFactorVerifiedAt.Unix())
}

func TestAuthenticateOAuthTokenCarriesScopes(t *testing.T) {
	m, _, f := newTestMiddleware(t)
	token, err := IssueToken([]byte(testSecret), f.Alice.ID, IssueOptions{Kind: TokenKindOAuth, Scopes: []string{"account"}})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/graphql/v2", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	_, actor, _ := serve(m, req)

	require.NotNil(t, actor)
	assert.True(t, actor.IsScoped())
	assert.True(t, actor.HasScope("account"))
	assert.False(t, actor.HasScope("incognito"))
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	m, _, f := newTestMiddleware(t)
	wrongKey, err := IssueToken([]byte("other-secret"), f.Alice.ID, IssueOptions{})
	require.NoError(t, err)
	expired, err := IssueToken([]byte(testSecret), f.Alice.ID, IssueOptions{Expiration: -time.Minute})
	require.NoError(t, err)
	unknownUser, err := IssueToken([]byte(testSecret), 987654, IssueOptions{})
	require.NoError(t, err)
	neverExpires, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Scope:            string(TokenKindSession),
		RegisteredClaims: jwt.RegisteredClaims{Subject: "102"},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	otherAlgorithm, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		Scope: string(TokenKindSession),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "102",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		value  string
	}{
		{"malformed header", "Authorization", "Token abc"},
		{"wrong signature", "Authorization", "Bearer " + wrongKey},
		{"expired", "Authorization", "Bearer " + expired},
		{"no expiry", "Authorization", "Bearer " + neverExpires},
		{"other algorithm", "Authorization", "Bearer " + otherAlgorithm},
		{"unknown user", "Authorization", "Bearer " + unknownUser},
		{"bad personal token format", PersonalTokenHeader, "nope"},
		{"unknown personal token", PersonalTokenHeader, PersonalTokenPrefix + "dW5rbm93bg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/graphql/v2", nil)
			req.Header.Set(tt.header, tt.value)
			rec, _, reached := serve(m, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, reached)
		})
	}
}

func TestAuthenticatePersonalToken(t *testing.T) {
	m, s, f := newTestMiddleware(t)
	token, hash, err := GeneratePersonalToken()
	require.NoError(t, err)
	s.PutPersonalToken(&models.PersonalToken{UserID: f.Bob.ID, Name: "ci", TokenHash: hash, Scopes: []string{"host", "expenses"}})

	req := httptest.NewRequest(http.MethodPost, "/graphql/v2", nil)
	req.Header.Set(PersonalTokenHeader, token)
	rec, actor, _ := serve(m, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, actor)
	assert.Equal(t, f.Bob.ID, actor.ID())
	assert.Equal(t, TokenKindPersonal, actor.Token)
	assert.True(t, actor.HasScope("host"))
	assert.True(t, actor.IsAdmin(f.Host.ID))
}

func TestAuthenticateExpiredPersonalToken(t *testing.T) {
	m, s, f := newTestMiddleware(t)
	token, hash, err := GeneratePersonalToken()
	require.NoError(t, err)
	past := time.Now().Add(-time.Hour)
	s.PutPersonalToken(&models.PersonalToken{UserID: f.Bob.ID, TokenHash: hash, ExpiresAt: &past})

	req := httptest.NewRequest(http.MethodPost, "/graphql/v2", nil)
	req.Header.Set(PersonalTokenHeader, token)
	rec, _, _ := serve(m, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPersonalTokenFormat(t *testing.T) {
	token, hash, err := GeneratePersonalToken()
	require.NoError(t, err)

	assert.NoError(t, ValidatePersonalTokenFormat(token))
	assert.Equal(t, hash, HashPersonalToken(token))
	assert.Len(t, hash, 64)
	assert.Error(t, ValidatePersonalTokenFormat("pt_"))
	assert.Error(t, ValidatePersonalTokenFormat("spoke_abc"))
	assert.Error(t, ValidatePersonalTokenFormat("pt_!!!"))
}

func TestActorRoles(t *testing.T) {
	parentID := int64(20)
	hostID := int64(11004)
	event := &models.Collective{ID: 50, Type: models.CollectiveTypeEvent, ParentCollectiveID: &parentID, HostCollectiveID: &hostID}

	user := &models.User{ID: 1, CollectiveID: 10}
	actor := NewActor(user, nil, []*models.Member{
		{CollectiveID: 20, MemberCollectiveID: 10, Role: models.MemberRoleAdmin},
		{CollectiveID: 30, MemberCollectiveID: 10, Role: models.MemberRoleMember},
		{CollectiveID: 1, MemberCollectiveID: 99, Role: models.MemberRoleAdmin},
	}, 1)

	assert.True(t, actor.IsAdmin(10), "own profile")
	assert.True(t, actor.IsAdminOfCollective(event), "admin of the parent")
	assert.False(t, actor.IsHostAdmin(event))
	assert.True(t, actor.IsMember(30))
	assert.False(t, actor.IsAdmin(30))
	assert.False(t, actor.IsRoot(), "memberships of other profiles are ignored")
	assert.ElementsMatch(t, []int64{20}, actor.AdministratedCollectiveIDs())

	var anonymous *Actor
	assert.False(t, anonymous.IsAdmin(10))
	assert.False(t, anonymous.IsAdminOfCollectiveOrHost(event))
	assert.False(t, anonymous.HasScope("email"))
	assert.Zero(t, anonymous.ID())
}
