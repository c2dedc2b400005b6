// Package postgres implements store.Store on top of the platform's PostgreSQL schema.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// Store is the PostgreSQL implementation of store.Store
type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// New wraps an open database handle
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects with the lib/pq driver and verifies the connection
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db), nil
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

// queryAll runs query and scans every row with scan
func queryAll[T any](ctx context.Context, db *sql.DB, what string, scan func(scanner) (T, error), query string, args ...interface{}) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", what, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", what, err)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", what, err)
	}
	return out, nil
}

// queryOne returns store.ErrNotFound when no row matches
func queryOne[T any](ctx context.Context, db *sql.DB, what string, scan func(scanner) (T, error), query string, args ...interface{}) (T, error) {
	item, err := scan(db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		var zero T
		return zero, fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("failed to get %s: %w", what, err)
	}
	return item, nil
}

func nullableID(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	id := v.Int64
	return &id
}

func nullableTime(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func unmarshalJSON(raw []byte, dest interface{}) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}

// ─── Collectives ─────────────────────────────────────────────

const collectiveColumns = `id, slug, name, "legalName", type, description, website, "githubHandle", currency,
		       "isIncognito", "isHostAccount", "isActive", "HostCollectiveId", "ParentCollectiveId",
		       "CreatedByUserId", location, settings, "createdAt"`

func scanCollective(row scanner) (*models.Collective, error) {
	c := &models.Collective{}
	var legalName, description, website, githubHandle sql.NullString
	var hostID, parentID, createdBy sql.NullInt64
	var location, settings []byte
	if err := row.Scan(
		&c.ID, &c.Slug, &c.Name, &legalName, &c.Type, &description, &website, &githubHandle, &c.Currency,
		&c.IsIncognito, &c.IsHostAccount, &c.IsActive, &hostID, &parentID,
		&createdBy, &location, &settings, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	c.LegalName = legalName.String
	c.Description = description.String
	c.Website = website.String
	c.GithubHandle = githubHandle.String
	c.HostCollectiveID = nullableID(hostID)
	c.ParentCollectiveID = nullableID(parentID)
	c.CreatedByUserID = nullableID(createdBy)
	if len(location) > 0 {
		c.Location = &models.Location{}
		if err := unmarshalJSON(location, c.Location); err != nil {
			return nil, fmt.Errorf("invalid location: %w", err)
		}
	}
	if err := unmarshalJSON(settings, &c.Settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	return c, nil
}

func (s *Store) GetCollectivesByIDs(ctx context.Context, ids []int64) ([]*models.Collective, error) {
	query := `
		SELECT ` + collectiveColumns + `
		FROM "Collectives"
		WHERE id = ANY($1) AND "deletedAt" IS NULL
	`
	return queryAll(ctx, s.db, "collectives", scanCollective, query, pq.Array(ids))
}

func (s *Store) GetCollectiveBySlug(ctx context.Context, slug string) (*models.Collective, error) {
	query := `
		SELECT ` + collectiveColumns + `
		FROM "Collectives"
		WHERE slug = $1 AND "deletedAt" IS NULL
	`
	return queryOne(ctx, s.db, "collective", scanCollective, query, strings.ToLower(slug))
}

// ─── Users ───────────────────────────────────────────────────

const userColumns = `id, email, "CollectiveId", "twoFactorAuthToken" IS NOT NULL, "createdAt", "lastLoginAt"`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var lastLogin sql.NullTime
	if err := row.Scan(&u.ID, &u.Email, &u.CollectiveID, &u.TwoFactorEnabled, &u.CreatedAt, &lastLogin); err != nil {
		return nil, err
	}
	u.LastLoginAt = nullableTime(lastLogin)
	return u, nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []int64) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM "Users"
		WHERE id = ANY($1) AND "deletedAt" IS NULL
	`
	return queryAll(ctx, s.db, "users", scanUser, query, pq.Array(ids))
}

func (s *Store) GetUsersByCollectiveIDs(ctx context.Context, collectiveIDs []int64) ([]*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM "Users"
		WHERE "CollectiveId" = ANY($1) AND "deletedAt" IS NULL
	`
	return queryAll(ctx, s.db, "users", scanUser, query, pq.Array(collectiveIDs))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM "Users"
		WHERE email = $1 AND "deletedAt" IS NULL
	`
	return queryOne(ctx, s.db, "user", scanUser, query, strings.ToLower(email))
}

// ─── Members ─────────────────────────────────────────────────

const memberColumns = `id, "CollectiveId", "MemberCollectiveId", role, description, "createdAt"`

func scanMember(row scanner) (*models.Member, error) {
	m := &models.Member{}
	var description sql.NullString
	if err := row.Scan(&m.ID, &m.CollectiveID, &m.MemberCollectiveID, &m.Role, &description, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Description = description.String
	return m, nil
}

func (s *Store) ListMembers(ctx context.Context, collectiveIDs []int64) ([]*models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM "Members"
		WHERE "CollectiveId" = ANY($1) AND "deletedAt" IS NULL
		ORDER BY id ASC
	`
	return queryAll(ctx, s.db, "members", scanMember, query, pq.Array(collectiveIDs))
}

func (s *Store) ListMembershipsOf(ctx context.Context, memberCollectiveIDs []int64) ([]*models.Member, error) {
	query := `
		SELECT ` + memberColumns + `
		FROM "Members"
		WHERE "MemberCollectiveId" = ANY($1) AND "deletedAt" IS NULL
		ORDER BY id ASC
	`
	return queryAll(ctx, s.db, "memberships", scanMember, query, pq.Array(memberCollectiveIDs))
}

// ─── Expenses ────────────────────────────────────────────────

func scanExpense(row scanner) (*models.Expense, error) {
	e := &models.Expense{}
	var payoutMethodID sql.NullInt64
	var invoiceInfo sql.NullString
	var payeeLocation []byte
	if err := row.Scan(
		&e.ID, &e.CollectiveID, &e.FromCollectiveID, &e.UserID, &payoutMethodID, &e.Description,
		&e.Amount, &e.Currency, &e.Status, &invoiceInfo, &payeeLocation, &e.CreatedAt,
	); err != nil {
		return nil, err
	}
	e.PayoutMethodID = nullableID(payoutMethodID)
	e.InvoiceInfo = invoiceInfo.String
	if len(payeeLocation) > 0 {
		e.PayeeLocation = &models.Location{}
		if err := unmarshalJSON(payeeLocation, e.PayeeLocation); err != nil {
			return nil, fmt.Errorf("invalid payee location: %w", err)
		}
	}
	return e, nil
}

func (s *Store) GetExpensesByIDs(ctx context.Context, ids []int64) ([]*models.Expense, error) {
	query := `
		SELECT id, "CollectiveId", "FromCollectiveId", "UserId", "PayoutMethodId", description,
		       amount, currency, status, "invoiceInfo", "payeeLocation", "createdAt"
		FROM "Expenses"
		WHERE id = ANY($1) AND "deletedAt" IS NULL
	`
	return queryAll(ctx, s.db, "expenses", scanExpense, query, pq.Array(ids))
}

// ─── Payout methods ──────────────────────────────────────────

const payoutMethodColumns = `id, "CollectiveId", type, name, data, "isSaved", "createdAt"`

func scanPayoutMethod(row scanner) (*models.PayoutMethod, error) {
	pm := &models.PayoutMethod{}
	var name sql.NullString
	var data []byte
	if err := row.Scan(&pm.ID, &pm.CollectiveID, &pm.Type, &name, &data, &pm.IsSaved, &pm.CreatedAt); err != nil {
		return nil, err
	}
	pm.Name = name.String
	if err := unmarshalJSON(data, &pm.Data); err != nil {
		return nil, fmt.Errorf("invalid payout method data: %w", err)
	}
	return pm, nil
}

func (s *Store) GetPayoutMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PayoutMethod, error) {
	query := `
		SELECT ` + payoutMethodColumns + `
		FROM "PayoutMethods"
		WHERE id = ANY($1) AND "deletedAt" IS NULL
	`
	return queryAll(ctx, s.db, "payout methods", scanPayoutMethod, query, pq.Array(ids))
}

func (s *Store) ListPayoutMethods(ctx context.Context, collectiveID int64) ([]*models.PayoutMethod, error) {
	query := `
		SELECT ` + payoutMethodColumns + `
		FROM "PayoutMethods"
		WHERE "CollectiveId" = $1 AND "deletedAt" IS NULL
		ORDER BY id ASC
	`
	return queryAll(ctx, s.db, "payout methods", scanPayoutMethod, query, collectiveID)
}

// ─── Payment methods ─────────────────────────────────────────

const paymentMethodColumns = `id, uuid, name, description, service, type, "CollectiveId", "CreatedByUserId",
		       "SourcePaymentMethodId", token, currency, "initialBalance", balance,
		       "limitedToHostCollectiveIds", "limitedToCollectiveIds", "emailSentTo", data,
		       "expiryDate", "archivedAt", "createdAt"`

func scanPaymentMethod(row scanner) (*models.PaymentMethod, error) {
	pm := &models.PaymentMethod{}
	var name, description, token, emailSentTo sql.NullString
	var createdBy, sourceID sql.NullInt64
	var initialBalance, balance sql.NullInt64
	var limitedToHosts, limitedToCollectives pq.Int64Array
	var data []byte
	var expiry, archived sql.NullTime
	if err := row.Scan(
		&pm.ID, &pm.UUID, &name, &description, &pm.Service, &pm.Type, &pm.CollectiveID, &createdBy,
		&sourceID, &token, &pm.Currency, &initialBalance, &balance,
		&limitedToHosts, &limitedToCollectives, &emailSentTo, &data,
		&expiry, &archived, &pm.CreatedAt,
	); err != nil {
		return nil, err
	}
	pm.Name = name.String
	pm.Description = description.String
	pm.Token = token.String
	pm.EmailSentTo = emailSentTo.String
	pm.CreatedByUserID = nullableID(createdBy)
	pm.SourcePaymentMethodID = nullableID(sourceID)
	pm.InitialBalance = initialBalance.Int64
	pm.Balance = balance.Int64
	pm.LimitedToHostCollectiveIDs = []int64(limitedToHosts)
	pm.LimitedToCollectiveIDs = []int64(limitedToCollectives)
	pm.ExpiryDate = nullableTime(expiry)
	pm.ArchivedAt = nullableTime(archived)
	if err := unmarshalJSON(data, &pm.Data); err != nil {
		return nil, fmt.Errorf("invalid payment method data: %w", err)
	}
	return pm, nil
}

func (s *Store) GetPaymentMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PaymentMethod, error) {
	query := `
		SELECT ` + paymentMethodColumns + `
		FROM "PaymentMethods"
		WHERE id = ANY($1) AND "deletedAt" IS NULL
	`
	return queryAll(ctx, s.db, "payment methods", scanPaymentMethod, query, pq.Array(ids))
}

func (s *Store) ListPaymentMethods(ctx context.Context, collectiveID int64, filter store.PaymentMethodFilter) ([]*models.PaymentMethod, error) {
	query := `
		SELECT ` + paymentMethodColumns + `
		FROM "PaymentMethods"
		WHERE "CollectiveId" = $1 AND "deletedAt" IS NULL
		  AND ($2 OR "archivedAt" IS NULL)
		  AND (cardinality($3::text[]) = 0 OR type = ANY($3))
		ORDER BY id ASC
	`
	types := make([]string, len(filter.Types))
	for i, t := range filter.Types {
		types[i] = string(t)
	}
	return queryAll(ctx, s.db, "payment methods", scanPaymentMethod, query, collectiveID, filter.IncludeArchived, pq.Array(types))
}

// ─── Orders, transactions, tiers ─────────────────────────────

func scanOrder(row scanner) (*models.Order, error) {
	o := &models.Order{}
	var tierID, paymentMethodID sql.NullInt64
	var description sql.NullString
	if err := row.Scan(
		&o.ID, &o.CollectiveID, &o.FromCollectiveID, &o.CreatedByUserID, &tierID, &paymentMethodID,
		&description, &o.TotalAmount, &o.Currency, &o.Status, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	o.TierID = nullableID(tierID)
	o.PaymentMethodID = nullableID(paymentMethodID)
	o.Description = description.String
	return o, nil
}

func (s *Store) GetOrdersByIDs(ctx context.Context, ids []int64) ([]*models.Order, error) {
	query := `
		SELECT id, "CollectiveId", "FromCollectiveId", "CreatedByUserId", "TierId", "PaymentMethodId",
		       description, "totalAmount", currency, status, "createdAt"
		FROM "Orders"
		WHERE id = ANY($1) AND "deletedAt" IS NULL
	`
	return queryAll(ctx, s.db, "orders", scanOrder, query, pq.Array(ids))
}

func scanTransaction(row scanner) (*models.Transaction, error) {
	t := &models.Transaction{}
	var description sql.NullString
	var hostID, createdBy, orderID, expenseID, paymentMethodID, giftCardFrom sql.NullInt64
	if err := row.Scan(
		&t.ID, &t.UUID, &t.Kind, &t.Type, &description, &t.Amount, &t.Currency,
		&t.CollectiveID, &t.FromCollectiveID, &hostID, &createdBy, &orderID, &expenseID,
		&paymentMethodID, &giftCardFrom, &t.CreatedAt,
	); err != nil {
		return nil, err
	}
	t.Description = description.String
	t.HostCollectiveID = nullableID(hostID)
	t.CreatedByUserID = nullableID(createdBy)
	t.OrderID = nullableID(orderID)
	t.ExpenseID = nullableID(expenseID)
	t.PaymentMethodID = nullableID(paymentMethodID)
	t.UsingGiftCardFromCollectiveID = nullableID(giftCardFrom)
	return t, nil
}

func (s *Store) GetTransactionsByIDs(ctx context.Context, ids []int64) ([]*models.Transaction, error) {
	query := `
		SELECT id, uuid, kind, type, description, amount, currency,
		       "CollectiveId", "FromCollectiveId", "HostCollectiveId", "CreatedByUserId", "OrderId", "ExpenseId",
		       "PaymentMethodId", "UsingGiftCardFromCollectiveId", "createdAt"
		FROM "Transactions"
		WHERE id = ANY($1) AND "deletedAt" IS NULL
	`
	return queryAll(ctx, s.db, "transactions", scanTransaction, query, pq.Array(ids))
}

func scanTier(row scanner) (*models.Tier, error) {
	t := &models.Tier{}
	if err := row.Scan(&t.ID, &t.CollectiveID, &t.Slug, &t.Name, &t.Amount, &t.Currency); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) GetTiersByIDs(ctx context.Context, ids []int64) ([]*models.Tier, error) {
	query := `
		SELECT id, "CollectiveId", slug, name, amount, currency
		FROM "Tiers"
		WHERE id = ANY($1) AND "deletedAt" IS NULL
	`
	return queryAll(ctx, s.db, "tiers", scanTier, query, pq.Array(ids))
}

// ─── Applications, notifications, tokens ─────────────────────

func scanApplication(row scanner) (*models.Application, error) {
	a := &models.Application{}
	var callbackURL sql.NullString
	if err := row.Scan(&a.ID, &a.CollectiveID, &a.Name, &a.ClientID, &a.ClientSecret, &callbackURL, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.CallbackURL = callbackURL.String
	return a, nil
}

func (s *Store) GetApplicationByClientID(ctx context.Context, clientID string) (*models.Application, error) {
	query := `
		SELECT id, "CollectiveId", name, "clientId", "clientSecret", "callbackUrl", "createdAt"
		FROM "Applications"
		WHERE "clientId" = $1 AND "deletedAt" IS NULL
	`
	return queryOne(ctx, s.db, "application", scanApplication, query, clientID)
}

func scanNotification(row scanner) (*models.Notification, error) {
	n := &models.Notification{}
	var userID sql.NullInt64
	var webhookURL sql.NullString
	if err := row.Scan(&n.ID, &n.CollectiveID, &userID, &n.Channel, &n.Type, &webhookURL, &n.Active); err != nil {
		return nil, err
	}
	n.UserID = nullableID(userID)
	n.WebhookURL = webhookURL.String
	return n, nil
}

func (s *Store) ListNotifications(ctx context.Context, collectiveID int64) ([]*models.Notification, error) {
	query := `
		SELECT id, "CollectiveId", "UserId", channel, type, "webhookUrl", active
		FROM "Notifications"
		WHERE "CollectiveId" = $1
		ORDER BY id ASC
	`
	return queryAll(ctx, s.db, "notifications", scanNotification, query, collectiveID)
}

func scanPersonalToken(row scanner) (*models.PersonalToken, error) {
	pt := &models.PersonalToken{}
	var scopes pq.StringArray
	var expiresAt sql.NullTime
	if err := row.Scan(&pt.ID, &pt.UserID, &pt.Name, &pt.TokenHash, &scopes, &expiresAt, &pt.CreatedAt); err != nil {
		return nil, err
	}
	pt.Scopes = []string(scopes)
	pt.ExpiresAt = nullableTime(expiresAt)
	return pt, nil
}

func (s *Store) GetPersonalTokenByHash(ctx context.Context, hash string) (*models.PersonalToken, error) {
	query := `
		SELECT id, "UserId", name, token, scope, "expiresAt", "createdAt"
		FROM "PersonalTokens"
		WHERE token = $1 AND "deletedAt" IS NULL
	`
	return queryOne(ctx, s.db, "personal token", scanPersonalToken, query, hash)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
