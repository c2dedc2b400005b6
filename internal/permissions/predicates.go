// Package permissions answers "can this actor see or do X on entity Y".
//
// Predicates never fail for a denial: they return false and let the caller pick the
// denial representation. The error return only carries loader failures.
// Every fetch goes through the request's loaders so that checks on sibling fields batch.
package permissions

import (
	"context"

	"github.com/opencollective/opencollective-api-sub009/internal/auth"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

// IsAdmin reports whether actor administers collectiveID
func IsAdmin(actor *auth.Actor, collectiveID int64) bool {
	return actor.IsAdmin(collectiveID)
}

// IsAdminOfCollective also accepts admins of the parent collective
func IsAdminOfCollective(actor *auth.Actor, c *models.Collective) bool {
	return actor.IsAdminOfCollective(c)
}

// IsAdminOfCollectiveOrHost accepts collective admins and admins of its fiscal host
func IsAdminOfCollectiveOrHost(actor *auth.Actor, c *models.Collective) bool {
	return actor.IsAdminOfCollectiveOrHost(c)
}

// IsHostAdmin reports whether actor administers hostID
func IsHostAdmin(actor *auth.Actor, hostID *int64) bool {
	return hostID != nil && actor.IsAdmin(*hostID)
}

// IsRoot reports platform admin rights
func IsRoot(actor *auth.Actor) bool {
	return actor.IsRoot()
}

func loadCollective(ctx context.Context, rc *reqctx.RequestContext, id int64) (*models.Collective, error) {
	if id == 0 {
		return nil, nil
	}
	return rc.Loaders().Collective.ByID.Load(ctx, id)
}

// CanSeeUserPrivateInfo covers emails and other private user details.
// Allowed for the user themself, root, and admins of any account the user is a member of.
func CanSeeUserPrivateInfo(ctx context.Context, rc *reqctx.RequestContext, user *models.User) (bool, error) {
	actor := rc.Actor()
	if user == nil || !actor.IsAuthenticated() {
		return false, nil
	}
	if actor.ID() == user.ID || actor.IsRoot() {
		return true, nil
	}

	return hasContextPermission(rc, SeeAccountPrivateProfileInfo, user.CollectiveID, func() (bool, error) {
		memberships, err := rc.Loaders().Member.ByMemberCollectiveID.Load(ctx, user.CollectiveID)
		if err != nil {
			return false, err
		}
		for _, m := range memberships {
			if actor.IsAdmin(m.CollectiveID) {
				return true, nil
			}
		}
		return false, nil
	})
}

// CanSeeAccountPrivateInfo applies the private-info rule to an account. Accounts that
// are not individuals have no private profile info hidden by this rule.
func CanSeeAccountPrivateInfo(ctx context.Context, rc *reqctx.RequestContext, account *models.Collective) (bool, error) {
	if account == nil {
		return false, nil
	}
	actor := rc.Actor()
	if account.IsIncognito {
		return actor.IsAdmin(account.ID) || actor.IsRoot(), nil
	}
	if actor.IsAdminOfCollectiveOrHost(account) || actor.IsRoot() {
		return true, nil
	}
	if !account.IsIndividual() {
		return false, nil
	}
	user, err := rc.Loaders().User.ByCollectiveID.Load(ctx, account.ID)
	if err != nil || user == nil {
		return false, err
	}
	return CanSeeUserPrivateInfo(ctx, rc, user)
}

// CanSeeAccountLegalName allows the account's admins, its host's admins, root, and
// anyone a parent resolver granted SEE_ACCOUNT_LEGAL_NAME for this account
func CanSeeAccountLegalName(ctx context.Context, rc *reqctx.RequestContext, account *models.Collective) (bool, error) {
	if account == nil {
		return false, nil
	}
	actor := rc.Actor()
	if account.IsIncognito {
		return actor.IsAdmin(account.ID), nil
	}
	return hasContextPermission(rc, SeeAccountLegalName, account.ID, func() (bool, error) {
		return actor.IsAdminOfCollectiveOrHost(account) || actor.IsRoot(), nil
	})
}

// CanSeeAccountLocation keeps individuals' addresses private. Other account types
// publish their location.
func CanSeeAccountLocation(ctx context.Context, rc *reqctx.RequestContext, account *models.Collective) (bool, error) {
	if account == nil {
		return false, nil
	}
	actor := rc.Actor()
	if account.IsIncognito {
		return actor.IsAdmin(account.ID), nil
	}
	if !account.IsIndividual() {
		return true, nil
	}
	return hasContextPermission(rc, SeeAccountLocation, account.ID, func() (bool, error) {
		return actor.IsAdminOfCollectiveOrHost(account) || actor.IsRoot(), nil
	})
}

// expenseParties reports whether the actor submitted the expense, administers the payee,
// or administers the collective or its host
func expenseParties(ctx context.Context, rc *reqctx.RequestContext, expense *models.Expense) (payee, collectiveOrHost bool, err error) {
	actor := rc.Actor()
	payee = actor.ID() == expense.UserID || actor.IsAdmin(expense.FromCollectiveID)

	collective, err := loadCollective(ctx, rc, expense.CollectiveID)
	if err != nil {
		return false, false, err
	}
	collectiveOrHost = actor.IsAdminOfCollectiveOrHost(collective)
	return payee, collectiveOrHost, nil
}

// payoutVisibleToHost lists the statuses past which host admins need payout details to pay
var payoutVisibleToHost = map[models.ExpenseStatus]bool{
	models.ExpenseStatusApproved:            true,
	models.ExpenseStatusProcessing:          true,
	models.ExpenseStatusScheduledForPayment: true,
	models.ExpenseStatusPaid:                true,
	models.ExpenseStatusError:               true,
}

// CanSeeExpensePayoutMethod allows the payee, root, and host admins once the expense
// is approved
func CanSeeExpensePayoutMethod(ctx context.Context, rc *reqctx.RequestContext, expense *models.Expense) (bool, error) {
	actor := rc.Actor()
	if expense == nil || !actor.IsAuthenticated() {
		return false, nil
	}
	if actor.ID() == expense.UserID || actor.IsAdmin(expense.FromCollectiveID) || actor.IsRoot() {
		return true, nil
	}
	if !payoutVisibleToHost[expense.Status] {
		return false, nil
	}

	collective, err := loadCollective(ctx, rc, expense.CollectiveID)
	if err != nil {
		return false, err
	}
	return actor.IsHostAdmin(collective), nil
}

// CanSeeExpenseInvoiceInfo allows the payee, collective admins, host admins and root
func CanSeeExpenseInvoiceInfo(ctx context.Context, rc *reqctx.RequestContext, expense *models.Expense) (bool, error) {
	actor := rc.Actor()
	if expense == nil || !actor.IsAuthenticated() {
		return false, nil
	}
	if actor.IsRoot() {
		return true, nil
	}
	payee, collectiveOrHost, err := expenseParties(ctx, rc, expense)
	if err != nil {
		return false, err
	}
	return payee || collectiveOrHost, nil
}

// CanSeeExpensePayeeLocation follows the invoice info rule
func CanSeeExpensePayeeLocation(ctx context.Context, rc *reqctx.RequestContext, expense *models.Expense) (bool, error) {
	return CanSeeExpenseInvoiceInfo(ctx, rc, expense)
}

// CanSeePayoutMethodDetails reads the grant set by Expense.payoutMethod, falling back
// to ownership of the payout method
func CanSeePayoutMethodDetails(ctx context.Context, rc *reqctx.RequestContext, pm *models.PayoutMethod) (bool, error) {
	if pm == nil {
		return false, nil
	}
	return hasContextPermission(rc, SeePayoutMethodDetails, pm.ID, func() (bool, error) {
		actor := rc.Actor()
		return actor.IsAdmin(pm.CollectiveID) || actor.IsRoot(), nil
	})
}

// CanSeeIncognitoProfile hides the identity behind an incognito account from everyone
// except its own admins and root. When tx is given, admins of the host that processed it
// may see the profile too.
func CanSeeIncognitoProfile(ctx context.Context, rc *reqctx.RequestContext, incognito *models.Collective, tx *models.Transaction) (bool, error) {
	if incognito == nil {
		return false, nil
	}
	if !incognito.IsIncognito {
		return true, nil
	}
	actor := rc.Actor()
	return hasContextPermission(rc, SeeIncognitoAccountDetails, incognito.ID, func() (bool, error) {
		if actor.IsAdmin(incognito.ID) || actor.IsRoot() {
			return true, nil
		}
		return tx != nil && IsHostAdmin(actor, tx.HostCollectiveID), nil
	})
}

// CanSeeTransactionPaymentMethod allows the payer's admins, the host's admins and root
func CanSeeTransactionPaymentMethod(ctx context.Context, rc *reqctx.RequestContext, tx *models.Transaction) (bool, error) {
	if tx == nil {
		return false, nil
	}
	actor := rc.Actor()
	return actor.IsAdmin(tx.FromCollectiveID) || IsHostAdmin(actor, tx.HostCollectiveID) || actor.IsRoot(), nil
}

// CanSeeOrderPaymentMethod allows the contributor's admins, the collective's host admins and root
func CanSeeOrderPaymentMethod(ctx context.Context, rc *reqctx.RequestContext, order *models.Order) (bool, error) {
	actor := rc.Actor()
	if order == nil || !actor.IsAuthenticated() {
		return false, nil
	}
	if actor.IsAdmin(order.FromCollectiveID) || actor.IsRoot() {
		return true, nil
	}
	collective, err := loadCollective(ctx, rc, order.CollectiveID)
	if err != nil {
		return false, err
	}
	return actor.IsHostAdmin(collective), nil
}

// CanSeePaymentMethodSecrets covers uuid, data and redeem codes of a payment method
func CanSeePaymentMethodSecrets(ctx context.Context, rc *reqctx.RequestContext, pm *models.PaymentMethod) (bool, error) {
	if pm == nil {
		return false, nil
	}
	actor := rc.Actor()
	if actor.IsAdmin(pm.CollectiveID) || actor.IsRoot() {
		return true, nil
	}
	return pm.CreatedByUserID != nil && actor.ID() == *pm.CreatedByUserID, nil
}

// CanSeePaymentMethods lists are for account admins only
func CanSeePaymentMethods(ctx context.Context, rc *reqctx.RequestContext, account *models.Collective) (bool, error) {
	return rc.Actor().IsAdminOfCollective(account), nil
}

// CanSeePayoutMethods lists are for account admins and host admins
func CanSeePayoutMethods(ctx context.Context, rc *reqctx.RequestContext, account *models.Collective) (bool, error) {
	return rc.Actor().IsAdminOfCollectiveOrHost(account), nil
}

// CanSeeApplicationSecrets allows admins of the owning account
func CanSeeApplicationSecrets(ctx context.Context, rc *reqctx.RequestContext, app *models.Application) (bool, error) {
	if app == nil {
		return false, nil
	}
	return rc.Actor().IsAdmin(app.CollectiveID), nil
}

// CanSeeNotifications allows account admins
func CanSeeNotifications(ctx context.Context, rc *reqctx.RequestContext, account *models.Collective) (bool, error) {
	return rc.Actor().IsAdminOfCollective(account), nil
}

// CanSeeIncognitoMembers decides whether incognito rows appear in a member list
func CanSeeIncognitoMembers(ctx context.Context, rc *reqctx.RequestContext, account *models.Collective) (bool, error) {
	return rc.Actor().IsAdminOfCollective(account) && CheckScope(rc, ScopeIncognito), nil
}

// CanEditCoreContributors allows account admins
func CanEditCoreContributors(ctx context.Context, rc *reqctx.RequestContext, account *models.Collective) (bool, error) {
	return rc.Actor().IsAdminOfCollective(account), nil
}
