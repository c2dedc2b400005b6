package permissions

import (
	"fmt"

	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

// Scope is a capability granted to OAuth and personal tokens
type Scope string

const (
	// ScopeNone is the zero Scope, CheckScope always passes it
	ScopeNone Scope = ""

	ScopeEmail             Scope = "email"
	ScopeAccount           Scope = "account"
	ScopeIncognito         Scope = "incognito"
	ScopeExpenses          Scope = "expenses"
	ScopeOrders            Scope = "orders"
	ScopeTransactions      Scope = "transactions"
	ScopeVirtualCards      Scope = "virtualCards"
	ScopeHost              Scope = "host"
	ScopeRoot              Scope = "root"
	ScopeApplications      Scope = "applications"
	ScopeConversations     Scope = "conversations"
	ScopeUpdates           Scope = "updates"
	ScopeWebhooks          Scope = "webhooks"
	ScopeConnectedAccounts Scope = "connectedAccounts"
)

// AllScopes lists every scope a token can be granted
var AllScopes = []Scope{
	ScopeEmail, ScopeAccount, ScopeIncognito, ScopeExpenses, ScopeOrders, ScopeTransactions,
	ScopeVirtualCards, ScopeHost, ScopeRoot, ScopeApplications, ScopeConversations, ScopeUpdates,
	ScopeWebhooks, ScopeConnectedAccounts,
}

// CheckScope passes for session and anonymous callers. Token callers pass only
// when their token lists scope.
func CheckScope(rc *reqctx.RequestContext, scope Scope) bool {
	if scope == ScopeNone {
		return true
	}
	actor := rc.Actor()
	if !actor.IsScoped() {
		return true
	}
	return actor.HasScope(string(scope))
}

// EnforceScope is the mutation variant of CheckScope
func EnforceScope(rc *reqctx.RequestContext, scope Scope) error {
	if CheckScope(rc, scope) {
		return nil
	}
	return apierrors.Forbidden(fmt.Sprintf("The User Token is not allowed for operations in scope %q.", string(scope)))
}
