package common

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

// RC returns the request context the resolver runs in
func RC(p graphql.ResolveParams) *reqctx.RequestContext {
	return reqctx.From(p.Context)
}

// All passes when every check passes. It stops at the first denial or error.
func All(checks ...Check) Check {
	return func(p graphql.ResolveParams) (bool, error) {
		for _, check := range checks {
			ok, err := check(p)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// Any passes when one check passes. An error stops the evaluation.
func Any(checks ...Check) Check {
	return func(p graphql.ResolveParams) (bool, error) {
		for _, check := range checks {
			ok, err := check(p)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// Scope checks the token scope of the caller
func Scope(scope permissions.Scope) Check {
	return func(p graphql.ResolveParams) (bool, error) {
		return permissions.CheckScope(RC(p), scope), nil
	}
}

// Authenticated passes for logged-in callers
func Authenticated() Check {
	return func(p graphql.ResolveParams) (bool, error) {
		return RC(p).Actor().IsAuthenticated(), nil
	}
}

// Public always passes
func Public() Check {
	return func(p graphql.ResolveParams) (bool, error) {
		return true, nil
	}
}

// Predicate adapts a permission predicate on the parent object. A source of another
// type is denied.
func Predicate[T any](pred func(ctx context.Context, rc *reqctx.RequestContext, entity T) (bool, error)) Check {
	return func(p graphql.ResolveParams) (bool, error) {
		entity, ok := p.Source.(T)
		if !ok {
			return false, nil
		}
		return pred(p.Context, RC(p), entity)
	}
}
