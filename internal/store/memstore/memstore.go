// Package memstore is an in-process implementation of store.Store used for
// development runs without a database and for end-to-end tests.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// Store keeps every entity in maps keyed by id
type Store struct {
	mu     sync.RWMutex
	nextID int64
	calls  map[string]int

	collectives    map[int64]*models.Collective
	users          map[int64]*models.User
	members        map[int64]*models.Member
	expenses       map[int64]*models.Expense
	payoutMethods  map[int64]*models.PayoutMethod
	paymentMethods map[int64]*models.PaymentMethod
	orders         map[int64]*models.Order
	transactions   map[int64]*models.Transaction
	tiers          map[int64]*models.Tier
	applications   map[int64]*models.Application
	notifications  map[int64]*models.Notification
	personalTokens map[int64]*models.PersonalToken
}

var _ store.Store = (*Store)(nil)

// New creates an empty store. Generated ids start at 1000 so seeded fixtures can use small ids.
func New() *Store {
	return &Store{
		nextID:         1000,
		calls:          make(map[string]int),
		collectives:    make(map[int64]*models.Collective),
		users:          make(map[int64]*models.User),
		members:        make(map[int64]*models.Member),
		expenses:       make(map[int64]*models.Expense),
		payoutMethods:  make(map[int64]*models.PayoutMethod),
		paymentMethods: make(map[int64]*models.PaymentMethod),
		orders:         make(map[int64]*models.Order),
		transactions:   make(map[int64]*models.Transaction),
		tiers:          make(map[int64]*models.Tier),
		applications:   make(map[int64]*models.Application),
		notifications:  make(map[int64]*models.Notification),
		personalTokens: make(map[int64]*models.PersonalToken),
	}
}

// CallCount returns how many times op was invoked
func (s *Store) CallCount(op string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls[op]
}

func (s *Store) track(op string) {
	s.calls[op]++
}

func (s *Store) allocID(id int64) int64 {
	if id != 0 {
		if id >= s.nextID {
			s.nextID = id + 1
		}
		return id
	}
	id = s.nextID
	s.nextID++
	return id
}

func pick[T any](m map[int64]*T, ids []int64) []*T {
	out := make([]*T, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if v, ok := m[id]; ok {
			out = append(out, v)
		}
	}
	return out
}

// ─── Seeders ─────────────────────────────────────────────────

func (s *Store) PutCollective(c *models.Collective) *models.Collective {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.allocID(c.ID)
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.collectives[c.ID] = c
	return c
}

func (s *Store) PutUser(u *models.User) *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.allocID(u.ID)
	s.users[u.ID] = u
	return u
}

func (s *Store) PutMember(m *models.Member) *models.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	m.ID = s.allocID(m.ID)
	s.members[m.ID] = m
	return m
}

func (s *Store) PutExpense(e *models.Expense) *models.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.allocID(e.ID)
	s.expenses[e.ID] = e
	return e
}

func (s *Store) PutPayoutMethod(pm *models.PayoutMethod) *models.PayoutMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	pm.ID = s.allocID(pm.ID)
	s.payoutMethods[pm.ID] = pm
	return pm
}

func (s *Store) PutPaymentMethod(pm *models.PaymentMethod) *models.PaymentMethod {
	s.mu.Lock()
	defer s.mu.Unlock()
	pm.ID = s.allocID(pm.ID)
	s.paymentMethods[pm.ID] = pm
	return pm
}

func (s *Store) PutOrder(o *models.Order) *models.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.allocID(o.ID)
	s.orders[o.ID] = o
	return o
}

func (s *Store) PutTransaction(t *models.Transaction) *models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.allocID(t.ID)
	s.transactions[t.ID] = t
	return t
}

func (s *Store) PutTier(t *models.Tier) *models.Tier {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.allocID(t.ID)
	s.tiers[t.ID] = t
	return t
}

func (s *Store) PutApplication(a *models.Application) *models.Application {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.allocID(a.ID)
	s.applications[a.ID] = a
	return a
}

func (s *Store) PutNotification(n *models.Notification) *models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	n.ID = s.allocID(n.ID)
	s.notifications[n.ID] = n
	return n
}

func (s *Store) PutPersonalToken(pt *models.PersonalToken) *models.PersonalToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	pt.ID = s.allocID(pt.ID)
	s.personalTokens[pt.ID] = pt
	return pt
}

// ─── Batched reads ───────────────────────────────────────────

func (s *Store) GetCollectivesByIDs(ctx context.Context, ids []int64) ([]*models.Collective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetCollectivesByIDs")
	return pick(s.collectives, ids), nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetUsersByIDs")
	return pick(s.users, ids), nil
}

func (s *Store) GetUsersByCollectiveIDs(ctx context.Context, collectiveIDs []int64) ([]*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetUsersByCollectiveIDs")

	wanted := make(map[int64]bool, len(collectiveIDs))
	for _, id := range collectiveIDs {
		wanted[id] = true
	}
	var out []*models.User
	for _, u := range s.users {
		if wanted[u.CollectiveID] {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetExpensesByIDs(ctx context.Context, ids []int64) ([]*models.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetExpensesByIDs")
	return pick(s.expenses, ids), nil
}

func (s *Store) GetPayoutMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PayoutMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetPayoutMethodsByIDs")
	return pick(s.payoutMethods, ids), nil
}

func (s *Store) GetPaymentMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetPaymentMethodsByIDs")
	return pick(s.paymentMethods, ids), nil
}

func (s *Store) GetOrdersByIDs(ctx context.Context, ids []int64) ([]*models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetOrdersByIDs")
	return pick(s.orders, ids), nil
}

func (s *Store) GetTransactionsByIDs(ctx context.Context, ids []int64) ([]*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetTransactionsByIDs")
	return pick(s.transactions, ids), nil
}

func (s *Store) GetTiersByIDs(ctx context.Context, ids []int64) ([]*models.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetTiersByIDs")
	return pick(s.tiers, ids), nil
}

// ─── Memberships ─────────────────────────────────────────────

func (s *Store) filterMembers(match func(*models.Member) bool) []*models.Member {
	var out []*models.Member
	for _, m := range s.members {
		if match(m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ListMembers(ctx context.Context, collectiveIDs []int64) ([]*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("ListMembers")

	wanted := idSet(collectiveIDs)
	return s.filterMembers(func(m *models.Member) bool { return wanted[m.CollectiveID] }), nil
}

func (s *Store) ListMembershipsOf(ctx context.Context, memberCollectiveIDs []int64) ([]*models.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("ListMembershipsOf")

	wanted := idSet(memberCollectiveIDs)
	return s.filterMembers(func(m *models.Member) bool { return wanted[m.MemberCollectiveID] }), nil
}

func idSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// ─── Single lookups ──────────────────────────────────────────

func (s *Store) GetCollectiveBySlug(ctx context.Context, slug string) (*models.Collective, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetCollectiveBySlug")

	for _, c := range s.collectives {
		if strings.EqualFold(c.Slug, slug) {
			return c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetUserByEmail")

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetApplicationByClientID(ctx context.Context, clientID string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetApplicationByClientID")

	for _, a := range s.applications {
		if a.ClientID == clientID {
			return a, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) GetPersonalTokenByHash(ctx context.Context, hash string) (*models.PersonalToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("GetPersonalTokenByHash")

	for _, pt := range s.personalTokens {
		if pt.TokenHash == hash {
			return pt, nil
		}
	}
	return nil, store.ErrNotFound
}

// ─── Account-scoped lists ────────────────────────────────────

func (s *Store) ListPaymentMethods(ctx context.Context, collectiveID int64, filter store.PaymentMethodFilter) ([]*models.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("ListPaymentMethods")

	var out []*models.PaymentMethod
	for _, pm := range s.paymentMethods {
		if pm.CollectiveID != collectiveID {
			continue
		}
		if pm.ArchivedAt != nil && !filter.IncludeArchived {
			continue
		}
		if len(filter.Types) > 0 && !hasType(filter.Types, pm.Type) {
			continue
		}
		out = append(out, pm)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func hasType(types []models.PaymentMethodType, t models.PaymentMethodType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func (s *Store) ListPayoutMethods(ctx context.Context, collectiveID int64) ([]*models.PayoutMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("ListPayoutMethods")

	var out []*models.PayoutMethod
	for _, pm := range s.payoutMethods {
		if pm.CollectiveID == collectiveID {
			out = append(out, pm)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListNotifications(ctx context.Context, collectiveID int64) ([]*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("ListNotifications")

	var out []*models.Notification
	for _, n := range s.notifications {
		if n.CollectiveID == collectiveID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─── Writes ──────────────────────────────────────────────────

// CreateUser validates every row before writing any, all under one lock
func (s *Store) CreateUser(ctx context.Context, user *models.User, profile, org *models.Collective) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("CreateUser")

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return fmt.Errorf("%w: %s", store.ErrEmailTaken, user.Email)
		}
	}
	for _, c := range []*models.Collective{profile, org} {
		if c != nil && s.slugTaken(c.Slug) {
			return fmt.Errorf("%w: %s", store.ErrSlugTaken, c.Slug)
		}
	}
	if org != nil && strings.EqualFold(org.Slug, profile.Slug) {
		return fmt.Errorf("%w: %s", store.ErrSlugTaken, org.Slug)
	}

	now := time.Now()
	profile.ID = s.allocID(0)
	profile.CreatedAt = now
	user.ID = s.allocID(0)
	user.CollectiveID = profile.ID
	user.CreatedAt = now
	profile.CreatedByUserID = &user.ID

	s.collectives[profile.ID] = profile
	s.users[user.ID] = user

	if org == nil {
		return nil
	}
	org.ID = s.allocID(0)
	org.CreatedAt = now
	org.CreatedByUserID = &user.ID
	s.collectives[org.ID] = org

	m := &models.Member{
		ID:                 s.allocID(0),
		CollectiveID:       org.ID,
		MemberCollectiveID: profile.ID,
		Role:               models.MemberRoleAdmin,
		CreatedAt:          now,
	}
	s.members[m.ID] = m
	return nil
}

func (s *Store) slugTaken(slug string) bool {
	if slug == "" {
		return false
	}
	for _, existing := range s.collectives {
		if strings.EqualFold(existing.Slug, slug) {
			return true
		}
	}
	return false
}

func (s *Store) CreatePaymentMethods(ctx context.Context, pms []*models.PaymentMethod) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("CreatePaymentMethods")

	uuids := make(map[string]bool, len(s.paymentMethods)+len(pms))
	for _, pm := range s.paymentMethods {
		uuids[pm.UUID] = true
	}
	for _, pm := range pms {
		if uuids[pm.UUID] {
			return fmt.Errorf("duplicate payment method uuid %s", pm.UUID)
		}
		uuids[pm.UUID] = true
	}

	now := time.Now()
	for _, pm := range pms {
		pm.ID = s.allocID(0)
		pm.CreatedAt = now
		s.paymentMethods[pm.ID] = pm
	}
	return nil
}

func (s *Store) ReplaceCoreContributors(ctx context.Context, collectiveID int64, members []*models.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.track("ReplaceCoreContributors")

	for id, m := range s.members {
		if m.CollectiveID == collectiveID && (m.Role == models.MemberRoleAdmin || m.Role == models.MemberRoleMember) {
			delete(s.members, id)
		}
	}

	now := time.Now()
	for _, m := range members {
		m.ID = s.allocID(0)
		m.CollectiveID = collectiveID
		m.CreatedAt = now
		s.members[m.ID] = m
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}
