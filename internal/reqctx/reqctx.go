// Package reqctx holds the per-request resolution context: who is asking, the
// request's loaders and the grants resolvers share with their descendants.
package reqctx

import (
	"context"
	"sync"

	"github.com/opencollective/opencollective-api-sub009/internal/auth"
	"github.com/opencollective/opencollective-api-sub009/internal/loaders"
)

type contextKey string

const contextKeyRequest contextKey = "request_context"

// GrantKey identifies a cached permission decision about one subject
type GrantKey struct {
	Permission string
	SubjectID  int64
}

// RequestContext is built once per request and discarded with it. Everything but the
// grant table is read-only after New.
type RequestContext struct {
	actor     *auth.Actor
	loaders   *loaders.Loaders
	clientIP  string
	requestID string

	mu     sync.RWMutex
	grants map[GrantKey]bool
}

// Options carries what New needs
type Options struct {
	Actor     *auth.Actor
	Loaders   *loaders.Loaders
	ClientIP  string
	RequestID string
}

func New(opts Options) *RequestContext {
	return &RequestContext{
		actor:     opts.Actor,
		loaders:   opts.Loaders,
		clientIP:  opts.ClientIP,
		requestID: opts.RequestID,
		grants:    make(map[GrantKey]bool),
	}
}

// Actor is nil for anonymous requests
func (rc *RequestContext) Actor() *auth.Actor {
	if rc == nil {
		return nil
	}
	return rc.actor
}

func (rc *RequestContext) Loaders() *loaders.Loaders {
	if rc == nil {
		return nil
	}
	return rc.loaders
}

func (rc *RequestContext) ClientIP() string {
	if rc == nil {
		return ""
	}
	return rc.clientIP
}

func (rc *RequestContext) RequestID() string {
	if rc == nil {
		return ""
	}
	return rc.requestID
}

// SetGrant records a decision. Later writes for the same key overwrite.
func (rc *RequestContext) SetGrant(key GrantKey, granted bool) {
	if rc == nil {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.grants[key] = granted
}

// Grant returns the recorded decision and whether one was recorded at all
func (rc *RequestContext) Grant(key GrantKey) (granted bool, known bool) {
	if rc == nil {
		return false, false
	}
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	granted, known = rc.grants[key]
	return granted, known
}

// With stores rc in ctx
func With(ctx context.Context, rc *RequestContext) context.Context {
	return context.WithValue(ctx, contextKeyRequest, rc)
}

// From returns the request context stored in ctx, or nil
func From(ctx context.Context) *RequestContext {
	if rc, ok := ctx.Value(contextKeyRequest).(*RequestContext); ok {
		return rc
	}
	return nil
}
