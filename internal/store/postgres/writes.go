package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

const uniqueViolation = "23505"

// isUniqueViolation matches a unique constraint error on a constraint naming column
func isUniqueViolation(err error, column string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && strings.Contains(pqErr.Constraint, column)
}

// withTx runs fn inside a transaction and commits when it returns nil
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func marshalJSON(v interface{}) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func insertCollective(ctx context.Context, tx *sql.Tx, c *models.Collective) error {
	settings, err := marshalJSON(c.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	var location []byte
	if c.Location != nil {
		if location, err = marshalJSON(c.Location); err != nil {
			return fmt.Errorf("failed to encode location: %w", err)
		}
	}

	query := `
		INSERT INTO "Collectives" (slug, name, "legalName", type, description, website, currency,
		                           "isIncognito", "isHostAccount", "isActive", "CreatedByUserId",
		                           location, settings, "createdAt", "updatedAt")
		VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, $11, $12, $13, NOW(), NOW())
		RETURNING id, "createdAt"
	`
	err = tx.QueryRowContext(ctx, query,
		strings.ToLower(c.Slug), c.Name, c.LegalName, c.Type, c.Description, c.Website, c.Currency,
		c.IsIncognito, c.IsHostAccount, c.IsActive, c.CreatedByUserID,
		location, settings,
	).Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err, "slug") {
		return fmt.Errorf("%w: %s", store.ErrSlugTaken, c.Slug)
	}
	if err != nil {
		return fmt.Errorf("failed to insert collective: %w", err)
	}
	return nil
}

func insertMember(ctx context.Context, tx *sql.Tx, m *models.Member, createdBy *int64) error {
	query := `
		INSERT INTO "Members" ("CollectiveId", "MemberCollectiveId", role, description, "CreatedByUserId", "createdAt", "updatedAt")
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW(), NOW())
		RETURNING id, "createdAt"
	`
	if err := tx.QueryRowContext(ctx, query,
		m.CollectiveID, m.MemberCollectiveID, m.Role, m.Description, createdBy,
	).Scan(&m.ID, &m.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// CreateUser inserts the profile and the user, then links the profile back to its creator.
// The optional organization and the profile's ADMIN membership go in the same transaction.
func (s *Store) CreateUser(ctx context.Context, user *models.User, profile, org *models.Collective) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertCollective(ctx, tx, profile); err != nil {
			return err
		}

		query := `
			INSERT INTO "Users" (email, "CollectiveId", "createdAt", "updatedAt")
			VALUES ($1, $2, NOW(), NOW())
			RETURNING id, "createdAt"
		`
		err := tx.QueryRowContext(ctx, query, strings.ToLower(user.Email), profile.ID).Scan(&user.ID, &user.CreatedAt)
		if isUniqueViolation(err, "email") {
			return fmt.Errorf("%w: %s", store.ErrEmailTaken, user.Email)
		}
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		user.CollectiveID = profile.ID

		if _, err := tx.ExecContext(ctx,
			`UPDATE "Collectives" SET "CreatedByUserId" = $1 WHERE id = $2`,
			user.ID, profile.ID,
		); err != nil {
			return fmt.Errorf("failed to link profile to user: %w", err)
		}
		profile.CreatedByUserID = &user.ID

		if org == nil {
			return nil
		}
		org.CreatedByUserID = &user.ID
		if err := insertCollective(ctx, tx, org); err != nil {
			return err
		}
		m := &models.Member{CollectiveID: org.ID, MemberCollectiveID: profile.ID, Role: models.MemberRoleAdmin}
		return insertMember(ctx, tx, m, &user.ID)
	})
}

// CreatePaymentMethods inserts all of pms or none of them
func (s *Store) CreatePaymentMethods(ctx context.Context, pms []*models.PaymentMethod) error {
	query := `
		INSERT INTO "PaymentMethods" (uuid, name, description, service, type, "CollectiveId", "CreatedByUserId",
		                              "SourcePaymentMethodId", token, currency, "initialBalance", balance,
		                              "limitedToHostCollectiveIds", "limitedToCollectiveIds", "emailSentTo", data,
		                              "expiryDate", "createdAt", "updatedAt")
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NULLIF($15, ''), $16, $17, NOW(), NOW())
		RETURNING id, "createdAt"
	`
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, pm := range pms {
			data, err := marshalJSON(pm.Data)
			if err != nil {
				return fmt.Errorf("failed to encode payment method data: %w", err)
			}
			err = tx.QueryRowContext(ctx, query,
				pm.UUID, pm.Name, pm.Description, pm.Service, pm.Type, pm.CollectiveID, pm.CreatedByUserID,
				pm.SourcePaymentMethodID, pm.Token, pm.Currency, pm.InitialBalance, pm.Balance,
				pq.Array(pm.LimitedToHostCollectiveIDs), pq.Array(pm.LimitedToCollectiveIDs), pm.EmailSentTo, data,
				pm.ExpiryDate,
			).Scan(&pm.ID, &pm.CreatedAt)
			if err != nil {
				return fmt.Errorf("failed to insert payment method: %w", err)
			}
		}
		return nil
	})
}

// ReplaceCoreContributors soft-deletes the ADMIN and MEMBER rows of the collective and inserts members
func (s *Store) ReplaceCoreContributors(ctx context.Context, collectiveID int64, members []*models.Member) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			UPDATE "Members" SET "deletedAt" = NOW()
			WHERE "CollectiveId" = $1 AND role = ANY($2) AND "deletedAt" IS NULL
		`
		roles := []string{string(models.MemberRoleAdmin), string(models.MemberRoleMember)}
		if _, err := tx.ExecContext(ctx, query, collectiveID, pq.Array(roles)); err != nil {
			return fmt.Errorf("failed to remove core contributors: %w", err)
		}

		for _, m := range members {
			m.CollectiveID = collectiveID
			if err := insertMember(ctx, tx, m, nil); err != nil {
				return err
			}
		}
		return nil
	})
}
