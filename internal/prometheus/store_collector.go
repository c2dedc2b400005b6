package prometheus

import (
	"context"
	"time"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// StoreCollector wraps a store.Store and records metrics for all operations
type StoreCollector struct {
	next store.Store
}

var _ store.Store = (*StoreCollector)(nil)

// NewStoreCollector creates a new instrumented wrapper around a store.Store
func NewStoreCollector(next store.Store) *StoreCollector {
	return &StoreCollector{next: next}
}

// recordOperation records duration and count for an operation
func recordOperation(operation string, start time.Time, err error) {
	success := "true"
	if err != nil && !store.IsNotFound(err) {
		success = "false"
	}

	OperationDuration.WithLabelValues(operation, success).Observe(time.Since(start).Seconds())
	OperationsTotal.WithLabelValues(operation, success).Inc()
}

// recordBatch records the fan-in of a batched read
func recordBatch(operation string, keys int) {
	BatchSize.WithLabelValues(operation).Observe(float64(keys))
}

// ═══════════════════════════════════════════════════════════════════════════
// BATCHED READS
// ═══════════════════════════════════════════════════════════════════════════

func (c *StoreCollector) GetCollectivesByIDs(ctx context.Context, ids []int64) ([]*models.Collective, error) {
	start := time.Now()
	recordBatch("get_collectives", len(ids))
	res, err := c.next.GetCollectivesByIDs(ctx, ids)
	recordOperation("get_collectives", start, err)
	return res, err
}

func (c *StoreCollector) GetUsersByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	start := time.Now()
	recordBatch("get_users", len(ids))
	res, err := c.next.GetUsersByIDs(ctx, ids)
	recordOperation("get_users", start, err)
	return res, err
}

func (c *StoreCollector) GetUsersByCollectiveIDs(ctx context.Context, collectiveIDs []int64) ([]*models.User, error) {
	start := time.Now()
	recordBatch("get_users_by_collective", len(collectiveIDs))
	res, err := c.next.GetUsersByCollectiveIDs(ctx, collectiveIDs)
	recordOperation("get_users_by_collective", start, err)
	return res, err
}

func (c *StoreCollector) GetExpensesByIDs(ctx context.Context, ids []int64) ([]*models.Expense, error) {
	start := time.Now()
	recordBatch("get_expenses", len(ids))
	res, err := c.next.GetExpensesByIDs(ctx, ids)
	recordOperation("get_expenses", start, err)
	return res, err
}

func (c *StoreCollector) GetPayoutMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PayoutMethod, error) {
	start := time.Now()
	recordBatch("get_payout_methods", len(ids))
	res, err := c.next.GetPayoutMethodsByIDs(ctx, ids)
	recordOperation("get_payout_methods", start, err)
	return res, err
}

func (c *StoreCollector) GetPaymentMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PaymentMethod, error) {
	start := time.Now()
	recordBatch("get_payment_methods", len(ids))
	res, err := c.next.GetPaymentMethodsByIDs(ctx, ids)
	recordOperation("get_payment_methods", start, err)
	return res, err
}

func (c *StoreCollector) GetOrdersByIDs(ctx context.Context, ids []int64) ([]*models.Order, error) {
	start := time.Now()
	recordBatch("get_orders", len(ids))
	res, err := c.next.GetOrdersByIDs(ctx, ids)
	recordOperation("get_orders", start, err)
	return res, err
}

func (c *StoreCollector) GetTransactionsByIDs(ctx context.Context, ids []int64) ([]*models.Transaction, error) {
	start := time.Now()
	recordBatch("get_transactions", len(ids))
	res, err := c.next.GetTransactionsByIDs(ctx, ids)
	recordOperation("get_transactions", start, err)
	return res, err
}

func (c *StoreCollector) GetTiersByIDs(ctx context.Context, ids []int64) ([]*models.Tier, error) {
	start := time.Now()
	recordBatch("get_tiers", len(ids))
	res, err := c.next.GetTiersByIDs(ctx, ids)
	recordOperation("get_tiers", start, err)
	return res, err
}

// ═══════════════════════════════════════════════════════════════════════════
// MEMBERSHIPS
// ═══════════════════════════════════════════════════════════════════════════

func (c *StoreCollector) ListMembers(ctx context.Context, collectiveIDs []int64) ([]*models.Member, error) {
	start := time.Now()
	recordBatch("list_members", len(collectiveIDs))
	res, err := c.next.ListMembers(ctx, collectiveIDs)
	recordOperation("list_members", start, err)
	return res, err
}

func (c *StoreCollector) ListMembershipsOf(ctx context.Context, memberCollectiveIDs []int64) ([]*models.Member, error) {
	start := time.Now()
	recordBatch("list_memberships", len(memberCollectiveIDs))
	res, err := c.next.ListMembershipsOf(ctx, memberCollectiveIDs)
	recordOperation("list_memberships", start, err)
	return res, err
}

// ═══════════════════════════════════════════════════════════════════════════
// SINGLE LOOKUPS
// ═══════════════════════════════════════════════════════════════════════════

func (c *StoreCollector) GetCollectiveBySlug(ctx context.Context, slug string) (*models.Collective, error) {
	start := time.Now()
	res, err := c.next.GetCollectiveBySlug(ctx, slug)
	recordOperation("get_collective_by_slug", start, err)
	return res, err
}

func (c *StoreCollector) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	start := time.Now()
	res, err := c.next.GetUserByEmail(ctx, email)
	recordOperation("get_user_by_email", start, err)
	return res, err
}

func (c *StoreCollector) GetApplicationByClientID(ctx context.Context, clientID string) (*models.Application, error) {
	start := time.Now()
	res, err := c.next.GetApplicationByClientID(ctx, clientID)
	recordOperation("get_application", start, err)
	return res, err
}

func (c *StoreCollector) GetPersonalTokenByHash(ctx context.Context, hash string) (*models.PersonalToken, error) {
	start := time.Now()
	res, err := c.next.GetPersonalTokenByHash(ctx, hash)
	recordOperation("get_personal_token", start, err)
	return res, err
}

// ═══════════════════════════════════════════════════════════════════════════
// ACCOUNT-SCOPED LISTS
// ═══════════════════════════════════════════════════════════════════════════

func (c *StoreCollector) ListPaymentMethods(ctx context.Context, collectiveID int64, filter store.PaymentMethodFilter) ([]*models.PaymentMethod, error) {
	start := time.Now()
	res, err := c.next.ListPaymentMethods(ctx, collectiveID, filter)
	recordOperation("list_payment_methods", start, err)
	return res, err
}

func (c *StoreCollector) ListPayoutMethods(ctx context.Context, collectiveID int64) ([]*models.PayoutMethod, error) {
	start := time.Now()
	res, err := c.next.ListPayoutMethods(ctx, collectiveID)
	recordOperation("list_payout_methods", start, err)
	return res, err
}

func (c *StoreCollector) ListNotifications(ctx context.Context, collectiveID int64) ([]*models.Notification, error) {
	start := time.Now()
	res, err := c.next.ListNotifications(ctx, collectiveID)
	recordOperation("list_notifications", start, err)
	return res, err
}

// ═══════════════════════════════════════════════════════════════════════════
// WRITES
// ═══════════════════════════════════════════════════════════════════════════

func (c *StoreCollector) CreateUser(ctx context.Context, user *models.User, profile, org *models.Collective) error {
	start := time.Now()
	err := c.next.CreateUser(ctx, user, profile, org)
	recordOperation("create_user", start, err)
	return err
}

func (c *StoreCollector) CreatePaymentMethods(ctx context.Context, pms []*models.PaymentMethod) error {
	start := time.Now()
	err := c.next.CreatePaymentMethods(ctx, pms)
	recordOperation("create_payment_methods", start, err)
	return err
}

func (c *StoreCollector) ReplaceCoreContributors(ctx context.Context, collectiveID int64, members []*models.Member) error {
	start := time.Now()
	err := c.next.ReplaceCoreContributors(ctx, collectiveID, members)
	recordOperation("replace_core_contributors", start, err)
	return err
}

func (c *StoreCollector) Ping(ctx context.Context) error {
	start := time.Now()
	err := c.next.Ping(ctx)
	recordOperation("ping", start, err)
	return err
}
