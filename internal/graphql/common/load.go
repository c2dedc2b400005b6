package common

import (
	"github.com/graphql-go/graphql"

	"github.com/opencollective/opencollective-api-sub009/internal/loaders"
)

// Load queues id on loader and returns a thunk for the executor, so that sibling
// fields asking for the same entity kind share one batch. A zero id resolves to null.
func Load[V any](p graphql.ResolveParams, loader *loaders.Loader[int64, V], id int64) (interface{}, error) {
	if id == 0 {
		return nil, nil
	}
	thunk := loader.Thunk(p.Context, id)
	return func() (interface{}, error) {
		return thunk()
	}, nil
}

// LoadOptional is Load for nullable foreign keys
func LoadOptional[V any](p graphql.ResolveParams, loader *loaders.Loader[int64, V], id *int64) (interface{}, error) {
	return Load(p, loader, loaders.OptionalID(id))
}
