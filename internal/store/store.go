// Package store is the persistence contract the API layer is written against.
// Batched getters return only the rows that exist, in no particular order.
package store

import (
	"context"
	"errors"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
)

var (
	// ErrNotFound is returned by single-row lookups when nothing matches
	ErrNotFound = errors.New("not found")
	// ErrSlugTaken is returned when a new account would reuse an existing slug
	ErrSlugTaken = errors.New("slug is already taken")
	// ErrEmailTaken is returned when a new user would reuse an existing email
	ErrEmailTaken = errors.New("email is already taken")
)

// PaymentMethodFilter narrows ListPaymentMethods
type PaymentMethodFilter struct {
	Types           []models.PaymentMethodType
	IncludeArchived bool
}

// Store defines the interface for all persistence operations
type Store interface {
	// Batched reads
	GetCollectivesByIDs(ctx context.Context, ids []int64) ([]*models.Collective, error)
	GetUsersByIDs(ctx context.Context, ids []int64) ([]*models.User, error)
	GetUsersByCollectiveIDs(ctx context.Context, collectiveIDs []int64) ([]*models.User, error)
	GetExpensesByIDs(ctx context.Context, ids []int64) ([]*models.Expense, error)
	GetPayoutMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PayoutMethod, error)
	GetPaymentMethodsByIDs(ctx context.Context, ids []int64) ([]*models.PaymentMethod, error)
	GetOrdersByIDs(ctx context.Context, ids []int64) ([]*models.Order, error)
	GetTransactionsByIDs(ctx context.Context, ids []int64) ([]*models.Transaction, error)
	GetTiersByIDs(ctx context.Context, ids []int64) ([]*models.Tier, error)

	// Memberships
	ListMembers(ctx context.Context, collectiveIDs []int64) ([]*models.Member, error)
	ListMembershipsOf(ctx context.Context, memberCollectiveIDs []int64) ([]*models.Member, error)

	// Single lookups
	GetCollectiveBySlug(ctx context.Context, slug string) (*models.Collective, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetApplicationByClientID(ctx context.Context, clientID string) (*models.Application, error)
	GetPersonalTokenByHash(ctx context.Context, hash string) (*models.PersonalToken, error)

	// Account-scoped lists
	ListPaymentMethods(ctx context.Context, collectiveID int64, filter PaymentMethodFilter) ([]*models.PaymentMethod, error)
	ListPayoutMethods(ctx context.Context, collectiveID int64) ([]*models.PayoutMethod, error)
	ListNotifications(ctx context.Context, collectiveID int64) ([]*models.Notification, error)

	// Writes
	// CreateUser writes the user, its profile and, when org is not nil, the organization
	// administered by the profile. Nothing is written unless every row is.
	CreateUser(ctx context.Context, user *models.User, profile, org *models.Collective) error
	CreatePaymentMethods(ctx context.Context, pms []*models.PaymentMethod) error
	ReplaceCoreContributors(ctx context.Context, collectiveID int64, members []*models.Member) error

	// Health
	Ping(ctx context.Context) error
}

// IsNotFound reports whether err is (or wraps) ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSlugTaken reports whether err is (or wraps) ErrSlugTaken
func IsSlugTaken(err error) bool {
	return errors.Is(err, ErrSlugTaken)
}

// IsEmailTaken reports whether err is (or wraps) ErrEmailTaken
func IsEmailTaken(err error) bool {
	return errors.Is(err, ErrEmailTaken)
}
