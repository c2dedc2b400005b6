// Package common holds what both schema versions share: the field gate, check
// combinators and custom scalars.
package common

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/prometheus"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

// Check decides whether the field being resolved may be shown
type Check func(p graphql.ResolveParams) (bool, error)

// Guard wraps resolvers of one schema surface with authorization checks
type Guard struct {
	surface permissions.Surface
	logger  *logrus.Logger
}

// NewGuard creates a guard for surface
func NewGuard(surface permissions.Surface, logger *logrus.Logger) *Guard {
	return &Guard{surface: surface, logger: logger}
}

// Surface returns the schema version the guard serves
func (g *Guard) Surface() permissions.Surface {
	return g.surface
}

// Field runs the token scope check and allow before resolve. A denied field returns the
// denial value of its class and resolve is never called. Errors from allow propagate to
// the executor. Every secret or collection field names the scope a token needs, so
// scope must not be permissions.ScopeNone.
func (g *Guard) Field(class permissions.FieldClass, scope permissions.Scope, allow Check, resolve graphql.FieldResolveFn) graphql.FieldResolveFn {
	if scope == permissions.ScopeNone {
		panic(fmt.Sprintf("guard: %s field registered without a token scope", class))
	}
	return g.gate(class, All(Scope(scope), allow), resolve)
}

// Relation gates a field pointing at a possibly incognito account or its creator
func (g *Guard) Relation(allow Check, resolve graphql.FieldResolveFn) graphql.FieldResolveFn {
	return g.gate(permissions.ClassIncognitoRelation, allow, resolve)
}

func (g *Guard) gate(class permissions.FieldClass, allow Check, resolve graphql.FieldResolveFn) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		ok, err := allow(p)
		if err != nil {
			return nil, err
		}
		if !ok {
			g.denied(p, class)
			return permissions.DenialValue(class, g.surface)
		}
		return resolve(p)
	}
}

func (g *Guard) denied(p graphql.ResolveParams, class permissions.FieldClass) {
	prometheus.FieldAccessDeniedTotal.WithLabelValues(string(g.surface), string(class)).Inc()

	field := p.Info.FieldName
	if p.Info.ParentType != nil {
		field = p.Info.ParentType.Name() + "." + field
	}
	g.logger.WithFields(logrus.Fields{
		"field":      field,
		"class":      class,
		"surface":    g.surface,
		"request_id": reqctx.From(p.Context).RequestID(),
	}).Debug("Field access denied")
}
