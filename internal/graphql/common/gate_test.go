package common

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencollective/opencollective-api-sub009/internal/auth"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/prometheus"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type gateFixture struct {
	resolved int
	schema   graphql.Schema
}

func newGateFixture(t *testing.T, surface permissions.Surface, allow Check) *gateFixture {
	t.Helper()
	fx := &gateFixture{}
	g := NewGuard(surface, quietLogger())

	resolve := func(value interface{}) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (interface{}, error) {
			fx.resolved++
			return value, nil
		}
	}
	relation := graphql.NewObject(graphql.ObjectConfig{
		Name:   "Relation",
		Fields: graphql.Fields{"name": &graphql.Field{Type: graphql.String}},
	})

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"secret": &graphql.Field{
				Type:    graphql.String,
				Resolve: g.Field(permissions.ClassSecret, permissions.ScopeAccount, allow, resolve("s3cr3t")),
			},
			"items": &graphql.Field{
				Type:    graphql.NewList(graphql.String),
				Resolve: g.Field(permissions.ClassCollection, permissions.ScopeOrders, allow, resolve([]string{"a", "b"})),
			},
			"relation": &graphql.Field{
				Type:    relation,
				Resolve: g.Relation(allow, resolve(map[string]interface{}{"name": "hidden"})),
			},
			"scoped": &graphql.Field{
				Type:    graphql.String,
				Resolve: g.Field(permissions.ClassSecret, permissions.ScopeEmail, Public(), resolve("scoped")),
			},
		},
	})
	schema, err := graphql.NewSchema(graphql.SchemaConfig{Query: query})
	require.NoError(t, err)
	fx.schema = schema
	return fx
}

func (fx *gateFixture) run(rc *reqctx.RequestContext, query string) *graphql.Result {
	return graphql.Do(graphql.Params{
		Schema:        fx.schema,
		RequestString: query,
		Context:       reqctx.With(context.Background(), rc),
	})
}

func TestGateAllows(t *testing.T) {
	fx := newGateFixture(t, permissions.SurfaceV2, Public())
	res := fx.run(reqctx.New(reqctx.Options{}), `{ secret items relation { name } }`)
	require.Empty(t, res.Errors)

	data := res.Data.(map[string]interface{})
	assert.Equal(t, "s3cr3t", data["secret"])
	assert.Equal(t, []interface{}{"a", "b"}, data["items"])
	assert.Equal(t, map[string]interface{}{"name": "hidden"}, data["relation"])
	assert.Equal(t, 3, fx.resolved)
}

func TestGateDenialValues(t *testing.T) {
	deny := func(p graphql.ResolveParams) (bool, error) { return false, nil }

	t.Run("v2", func(t *testing.T) {
		before := testutil.ToFloat64(prometheus.FieldAccessDeniedTotal.WithLabelValues("v2", "secret"))
		fx := newGateFixture(t, permissions.SurfaceV2, deny)
		res := fx.run(reqctx.New(reqctx.Options{}), `{ secret items relation { name } }`)
		require.Empty(t, res.Errors)

		data := res.Data.(map[string]interface{})
		assert.Nil(t, data["secret"])
		assert.Equal(t, []interface{}{}, data["items"])
		assert.Nil(t, data["relation"])
		assert.Equal(t, 0, fx.resolved)
		assert.Equal(t, before+1, testutil.ToFloat64(prometheus.FieldAccessDeniedTotal.WithLabelValues("v2", "secret")))
	})

	t.Run("v1 keeps relations non-null", func(t *testing.T) {
		fx := newGateFixture(t, permissions.SurfaceV1, deny)
		res := fx.run(reqctx.New(reqctx.Options{}), `{ relation { name } }`)
		require.Empty(t, res.Errors)

		data := res.Data.(map[string]interface{})
		assert.Equal(t, map[string]interface{}{"name": nil}, data["relation"])
	})
}

func TestGatePropagatesCheckErrors(t *testing.T) {
	failing := func(p graphql.ResolveParams) (bool, error) { return false, errors.New("loader exploded") }
	fx := newGateFixture(t, permissions.SurfaceV2, failing)

	res := fx.run(reqctx.New(reqctx.Options{}), `{ secret }`)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Message, "loader exploded")
	assert.Equal(t, 0, fx.resolved)
}

func TestFieldChecksScope(t *testing.T) {
	fx := newGateFixture(t, permissions.SurfaceV2, Public())
	user := &models.User{ID: 1, CollectiveID: 10}

	session := auth.NewActor(user, nil, nil, 0)
	res := fx.run(reqctx.New(reqctx.Options{Actor: session}), `{ scoped }`)
	assert.Equal(t, "scoped", res.Data.(map[string]interface{})["scoped"])

	token := auth.NewActor(user, nil, nil, 0)
	token.Token = auth.TokenKindOAuth
	res = fx.run(reqctx.New(reqctx.Options{Actor: token}), `{ scoped }`)
	assert.Nil(t, res.Data.(map[string]interface{})["scoped"])

	token.Scopes = []string{"email"}
	res = fx.run(reqctx.New(reqctx.Options{Actor: token}), `{ scoped }`)
	assert.Equal(t, "scoped", res.Data.(map[string]interface{})["scoped"])
}

func TestFieldRequiresScope(t *testing.T) {
	g := NewGuard(permissions.SurfaceV2, quietLogger())
	resolve := func(p graphql.ResolveParams) (interface{}, error) { return "x", nil }

	for _, class := range []permissions.FieldClass{permissions.ClassSecret, permissions.ClassCollection} {
		assert.Panics(t, func() { g.Field(class, permissions.ScopeNone, Public(), resolve) }, string(class))
	}
	assert.NotPanics(t, func() { g.Relation(Public(), resolve) })
}

func TestScopelessTokenSeesNoSecrets(t *testing.T) {
	fx := newGateFixture(t, permissions.SurfaceV2, Public())
	token := auth.NewActor(&models.User{ID: 1, CollectiveID: 10}, nil, nil, 0)
	token.Token = auth.TokenKindOAuth

	res := fx.run(reqctx.New(reqctx.Options{Actor: token}), `{ secret items }`)
	require.Empty(t, res.Errors)
	data := res.Data.(map[string]interface{})
	assert.Nil(t, data["secret"])
	assert.Equal(t, []interface{}{}, data["items"])
	assert.Equal(t, 0, fx.resolved)
}

func TestCombinators(t *testing.T) {
	yes := func(p graphql.ResolveParams) (bool, error) { return true, nil }
	no := func(p graphql.ResolveParams) (bool, error) { return false, nil }
	boom := func(p graphql.ResolveParams) (bool, error) { return false, errors.New("boom") }
	p := graphql.ResolveParams{Context: reqctx.With(context.Background(), reqctx.New(reqctx.Options{}))}

	ok, err := All(yes, yes)(p)
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, _ = All(yes, no)(p)
	assert.False(t, ok)

	ok, _ = Any(no, yes)(p)
	assert.True(t, ok)

	_, err = Any(no, boom, yes)(p)
	assert.Error(t, err)

	ok, _ = Authenticated()(p)
	assert.False(t, ok)

	ok, _ = Predicate(func(ctx context.Context, rc *reqctx.RequestContext, c *models.Collective) (bool, error) {
		return true, nil
	})(graphql.ResolveParams{Source: "not a collective", Context: p.Context})
	assert.False(t, ok)
}

func TestIDArg(t *testing.T) {
	id, ok := IDArg(map[string]interface{}{"id": "42"}, "id")
	assert.True(t, ok)
	assert.Equal(t, int64(42), id)

	id, ok = IDArg(map[string]interface{}{"id": 7}, "id")
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)

	_, ok = IDArg(map[string]interface{}{}, "id")
	assert.False(t, ok)
}
