package loaders

import (
	"context"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
)

// Source is the subset of the store the loaders read from
type Source interface {
	GetCollectivesByIDs(ctx context.Context, ids []int64) ([]*models.Collective, error)
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*models.User, error)
	GetUsersByCollectiveIDs(ctx context.Context, collectiveIDs []int64) ([]*models.User, error)
	GetExpensesByIDs(ctx context.Context, ids []int64) ([]*models.Expense, error)
	GetPayoutMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PayoutMethod, error)
	GetPaymentMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PaymentMethod, error)
	GetOrdersByIDs(ctx context.Context, ids []int64) ([]*models.Order, error)
	GetTransactionsByIDs(ctx context.Context, ids []int64) ([]*models.Transaction, error)
	GetTiersByIDs(ctx context.Context, ids []int64) ([]*models.Tier, error)
	ListMembers(ctx context.Context, collectiveIDs []int64) ([]*models.Member, error)
	ListMembershipsOf(ctx context.Context, memberCollectiveIDs []int64) ([]*models.Member, error)
}

// Loaders is the per-request set of entity loaders, grouped by entity and relation
type Loaders struct {
	Collective struct {
		ByID *Loader[int64, *models.Collective]
	}
	User struct {
		ByID           *Loader[int64, *models.User]
		ByCollectiveID *Loader[int64, *models.User]
	}
	Expense struct {
		ByID *Loader[int64, *models.Expense]
	}
	PayoutMethod struct {
		ByID *Loader[int64, *models.PayoutMethod]
	}
	PaymentMethod struct {
		ByID *Loader[int64, *models.PaymentMethod]
	}
	Order struct {
		ByID *Loader[int64, *models.Order]
	}
	Transaction struct {
		ByID *Loader[int64, *models.Transaction]
	}
	Tier struct {
		ByID *Loader[int64, *models.Tier]
	}
	Member struct {
		ByCollectiveID       *Loader[int64, []*models.Member]
		ByMemberCollectiveID *Loader[int64, []*models.Member]
	}
}

// New builds a fresh, empty set of loaders. Call once per request.
func New(src Source) *Loaders {
	l := &Loaders{}
	l.Collective.ByID = NewLoader(byKey(src.GetCollectivesByIDs, func(c *models.Collective) int64 { return c.ID }))
	l.User.ByID = NewLoader(byKey(src.GetUsersByIDs, func(u *models.User) int64 { return u.ID }))
	l.User.ByCollectiveID = NewLoader(byKey(src.GetUsersByCollectiveIDs, func(u *models.User) int64 { return u.CollectiveID }))
	l.Expense.ByID = NewLoader(byKey(src.GetExpensesByIDs, func(e *models.Expense) int64 { return e.ID }))
	l.PayoutMethod.ByID = NewLoader(byKey(src.GetPayoutMethodsByIDs, func(pm *models.PayoutMethod) int64 { return pm.ID }))
	l.PaymentMethod.ByID = NewLoader(byKey(src.GetPaymentMethodsByIDs, func(pm *models.PaymentMethod) int64 { return pm.ID }))
	l.Order.ByID = NewLoader(byKey(src.GetOrdersByIDs, func(o *models.Order) int64 { return o.ID }))
	l.Transaction.ByID = NewLoader(byKey(src.GetTransactionsByIDs, func(t *models.Transaction) int64 { return t.ID }))
	l.Tier.ByID = NewLoader(byKey(src.GetTiersByIDs, func(t *models.Tier) int64 { return t.ID }))
	l.Member.ByCollectiveID = NewLoader(groupBy(src.ListMembers, func(m *models.Member) int64 { return m.CollectiveID }))
	l.Member.ByMemberCollectiveID = NewLoader(groupBy(src.ListMembershipsOf, func(m *models.Member) int64 { return m.MemberCollectiveID }))
	return l
}

func byKey[V any](fetch func(context.Context, []int64) ([]V, error), key func(V) int64) BatchFunc[int64, V] {
	return func(ctx context.Context, keys []int64) (map[int64]V, error) {
		rows, err := fetch(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make(map[int64]V, len(rows))
		for _, row := range rows {
			out[key(row)] = row
		}
		return out, nil
	}
}

func groupBy[V any](fetch func(context.Context, []int64) ([]V, error), key func(V) int64) BatchFunc[int64, []V] {
	return func(ctx context.Context, keys []int64) (map[int64][]V, error) {
		rows, err := fetch(ctx, keys)
		if err != nil {
			return nil, err
		}
		out := make(map[int64][]V, len(keys))
		for _, row := range rows {
			k := key(row)
			out[k] = append(out[k], row)
		}
		return out, nil
	}
}

// OptionalID dereferences nullable foreign keys; 0 never matches a row
func OptionalID(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
