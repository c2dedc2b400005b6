package mutations

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/prometheus"
	"github.com/opencollective/opencollective-api-sub009/internal/ratelimit"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// CreateUserAction is the rate limit bucket of createUser
const CreateUserAction = "createUser"

// UserInput describes the user to create
type UserInput struct {
	Email     string
	Name      string
	LegalName string
}

// OrganizationInput describes an organization created along with the user
type OrganizationInput struct {
	Name        string
	Slug        string
	LegalName   string
	Website     string
	Description string
}

// CreateUserInput is the argument set of createUser
type CreateUserInput struct {
	User           UserInput
	Organization   *OrganizationInput
	ThrowIfExists  bool
	SendSignInLink bool
}

// CreateUserResult holds the created (or existing) user and the optional organization
type CreateUserResult struct {
	User         *models.User
	Profile      *models.Collective
	Organization *models.Collective
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	return strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

// uniqueSlug appends a short random suffix so that homonyms don't collide
func uniqueSlug(base string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	if base == "" {
		return "user-" + suffix
	}
	return base + "-" + suffix
}

// CreateUser signs up a user. Calls are rate limited per user, or per IP for anonymous callers.
func (s *Service) CreateUser(ctx context.Context, rc *reqctx.RequestContext, in CreateUserInput) (*CreateUserResult, error) {
	const mutation = "createUser"

	key := ratelimit.Key(CreateUserAction, rc.Actor().ID(), rc.ClientIP())
	allowed, err := s.limiter.Allow(ctx, key)
	if err != nil {
		return nil, s.reject(rc, mutation, fmt.Errorf("failed to check rate limit: %w", err))
	}
	if !allowed {
		prometheus.RateLimitRejectionsTotal.WithLabelValues(CreateUserAction).Inc()
		return nil, s.reject(rc, mutation, apierrors.RateLimitExceeded("Rate limit exceeded. Please try again in a few minutes."))
	}

	email, err := parseEmail(in.User.Email)
	if err != nil {
		return nil, s.reject(rc, mutation, err)
	}
	if in.Organization != nil && strings.TrimSpace(in.Organization.Name) == "" {
		return nil, s.reject(rc, mutation, apierrors.Validation("The organization needs a name"))
	}

	existing, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if in.ThrowIfExists {
			return nil, s.reject(rc, mutation, apierrors.Validation("A user with this email already exists"))
		}
		profile, err := rc.Loaders().Collective.ByID.Load(ctx, existing.CollectiveID)
		if err != nil {
			return nil, s.reject(rc, mutation, err)
		}
		return &CreateUserResult{User: existing, Profile: profile}, nil
	case !store.IsNotFound(err):
		return nil, s.reject(rc, mutation, fmt.Errorf("failed to look up user: %w", err))
	}

	name := strings.TrimSpace(in.User.Name)
	user := &models.User{Email: email}
	profile := &models.Collective{
		Slug:      uniqueSlug(slugify(name)),
		Name:      name,
		LegalName: strings.TrimSpace(in.User.LegalName),
		Type:      models.CollectiveTypeUser,
		Currency:  "USD",
		IsActive:  true,
	}
	var org *models.Collective
	if in.Organization != nil {
		org = newOrganization(profile, in.Organization)
	}
	if err := s.store.CreateUser(ctx, user, profile, org); err != nil {
		switch {
		case store.IsSlugTaken(err) && org != nil:
			err = apierrors.Validation(fmt.Sprintf("The slug %s is already taken", org.Slug))
		case store.IsEmailTaken(err):
			err = apierrors.Validation("A user with this email already exists")
		default:
			err = fmt.Errorf("failed to create user: %w", err)
		}
		return nil, s.reject(rc, mutation, err)
	}
	result := &CreateUserResult{User: user, Profile: profile, Organization: org}

	if in.SendSignInLink {
		if err := s.mailer.SendSignInLink(ctx, user); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to send sign-in link")
		}
	}

	prometheus.UsersCreatedTotal.WithLabelValues(fmt.Sprintf("%t", result.Organization != nil)).Inc()
	s.logger.WithFields(logrus.Fields{
		"user_id":    user.ID,
		"profile_id": profile.ID,
		"with_org":   result.Organization != nil,
		"client_ip":  rc.ClientIP(),
	}).Info("User created")

	return result, nil
}

// newOrganization prepares the organization created along with a user. The store sets
// its creator once the user exists.
func newOrganization(profile *models.Collective, in *OrganizationInput) *models.Collective {
	slug := slugify(in.Slug)
	if slug == "" {
		slug = uniqueSlug(slugify(in.Name))
	}
	return &models.Collective{
		Slug:        slug,
		Name:        strings.TrimSpace(in.Name),
		LegalName:   strings.TrimSpace(in.LegalName),
		Type:        models.CollectiveTypeOrganization,
		Website:     in.Website,
		Description: in.Description,
		Currency:    profile.Currency,
		IsActive:    true,
	}
}
