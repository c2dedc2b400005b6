package mutations

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/prometheus"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

// CoreContributorInput is one row of the new admin/member set
type CoreContributorInput struct {
	MemberAccount AccountRef
	Role          models.MemberRole
	Description   string
}

// EditCoreContributorsInput is the argument set of editCoreContributors
type EditCoreContributorsInput struct {
	Account AccountRef
	Members []CoreContributorInput
}

func validateCoreContributors(members []CoreContributorInput) error {
	hasAdmin := false
	for _, m := range members {
		switch m.Role {
		case models.MemberRoleAdmin:
			hasAdmin = true
		case models.MemberRoleMember:
		default:
			return apierrors.Validation(fmt.Sprintf("Role %q is not allowed for core contributors, use ADMIN or MEMBER", m.Role))
		}
	}
	if !hasAdmin {
		return apierrors.Validation("There must be at least one admin for the account")
	}
	return nil
}

// EditCoreContributors replaces the ADMIN and MEMBER rows of an account in one write
func (s *Service) EditCoreContributors(ctx context.Context, rc *reqctx.RequestContext, in EditCoreContributorsInput) (*models.Collective, error) {
	const mutation = "editCoreContributors"

	actor := rc.Actor()
	if !actor.IsAuthenticated() {
		return nil, s.reject(rc, mutation, apierrors.Unauthorized(""))
	}
	if err := permissions.EnforceScope(rc, permissions.ScopeAccount); err != nil {
		return nil, s.reject(rc, mutation, err)
	}

	account, err := s.loadAccount(ctx, rc, in.Account)
	if err != nil {
		return nil, s.reject(rc, mutation, err)
	}
	allowed, err := permissions.CanEditCoreContributors(ctx, rc, account)
	if err != nil {
		return nil, s.reject(rc, mutation, err)
	}
	if !allowed {
		return nil, s.reject(rc, mutation, apierrors.Forbidden("Only admins can edit the core contributors"))
	}
	if err := s.twoFactor.Enforce(rc, account); err != nil {
		return nil, s.reject(rc, mutation, err)
	}

	if err := validateCoreContributors(in.Members); err != nil {
		return nil, s.reject(rc, mutation, err)
	}
	members, err := s.resolveContributors(ctx, rc, in.Members)
	if err != nil {
		return nil, s.reject(rc, mutation, err)
	}

	if err := s.store.ReplaceCoreContributors(ctx, account.ID, members); err != nil {
		return nil, s.reject(rc, mutation, fmt.Errorf("failed to edit core contributors: %w", err))
	}
	rc.Loaders().Member.ByCollectiveID.Clear(account.ID)

	prometheus.CoreContributorsEditedTotal.Inc()
	s.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"user_id":    actor.ID(),
		"members":    len(members),
	}).Info("Core contributors edited")

	return account, nil
}

// resolveContributors turns references into member rows. Every referenced account must exist
// and appear once.
func (s *Service) resolveContributors(ctx context.Context, rc *reqctx.RequestContext, in []CoreContributorInput) ([]*models.Member, error) {
	// queue id lookups so they resolve in one batch
	thunks := make([]func() (*models.Collective, error), len(in))
	for i, m := range in {
		if m.MemberAccount.ID != 0 {
			thunks[i] = rc.Loaders().Collective.ByID.Thunk(ctx, m.MemberAccount.ID)
		}
	}

	seen := make(map[int64]bool, len(in))
	members := make([]*models.Member, 0, len(in))
	for i, m := range in {
		var account *models.Collective
		var err error
		if thunks[i] != nil {
			account, err = thunks[i]()
			if err == nil && account == nil {
				err = apierrors.NotFound(fmt.Sprintf("Account %s not found", m.MemberAccount))
			}
		} else {
			account, err = s.loadAccount(ctx, rc, m.MemberAccount)
		}
		if err != nil {
			return nil, err
		}
		if seen[account.ID] {
			return nil, apierrors.Validation(fmt.Sprintf("Account %s is listed more than once", account.Slug))
		}
		seen[account.ID] = true
		members = append(members, &models.Member{
			MemberCollectiveID: account.ID,
			Role:               m.Role,
			Description:        m.Description,
		})
	}
	return members, nil
}
