// Package mutations holds the multi-step write operations shared by the v1 and v2 schemas.
// Each orchestrator validates input, authorizes, enforces 2FA where needed and then writes.
package mutations

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/prometheus"
	"github.com/opencollective/opencollective-api-sub009/internal/ratelimit"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
	"github.com/opencollective/opencollective-api-sub009/internal/twofactor"
)

// Options tunes the orchestrators
type Options struct {
	// OpenSourceHostID is the host gift cards are limited to with limitedToOpenSourceCollectives
	OpenSourceHostID int64
	// EmailConcurrency bounds concurrent gift card emails
	EmailConcurrency int
	// GiftCardValidity is the default lifetime of a gift card
	GiftCardValidity time.Duration
}

// Service runs the mutations against a store
type Service struct {
	store     store.Store
	limiter   ratelimit.Limiter
	twoFactor *twofactor.Enforcer
	mailer    Mailer
	opts      Options
	logger    *logrus.Logger
	now       func() time.Time
}

// NewService creates a mutation service
func NewService(st store.Store, limiter ratelimit.Limiter, tf *twofactor.Enforcer, mailer Mailer, opts Options, logger *logrus.Logger) *Service {
	if opts.EmailConcurrency <= 0 {
		opts.EmailConcurrency = 4
	}
	if opts.GiftCardValidity == 0 {
		opts.GiftCardValidity = 2 * 365 * 24 * time.Hour
	}
	return &Service{
		store:     st,
		limiter:   limiter,
		twoFactor: tf,
		mailer:    mailer,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// AccountRef points at an account by id or slug
type AccountRef struct {
	ID   int64
	Slug string
}

func (r AccountRef) String() string {
	if r.ID != 0 {
		return fmt.Sprintf("#%d", r.ID)
	}
	return r.Slug
}

// loadAccount resolves ref through the request loaders, falling back to a slug lookup
func (s *Service) loadAccount(ctx context.Context, rc *reqctx.RequestContext, ref AccountRef) (*models.Collective, error) {
	switch {
	case ref.ID != 0:
		c, err := rc.Loaders().Collective.ByID.Load(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, apierrors.NotFound(fmt.Sprintf("Account %s not found", ref))
		}
		return c, nil
	case ref.Slug != "":
		c, err := s.store.GetCollectiveBySlug(ctx, ref.Slug)
		if store.IsNotFound(err) {
			return nil, apierrors.NotFound(fmt.Sprintf("Account %s not found", ref))
		}
		if err != nil {
			return nil, err
		}
		rc.Loaders().Collective.ByID.Prime(c.ID, c)
		return c, nil
	default:
		return nil, apierrors.Validation("An account reference needs an id or a slug")
	}
}

// reject counts and logs a refused mutation and returns err unchanged
func (s *Service) reject(rc *reqctx.RequestContext, mutation string, err error) error {
	code := apierrors.CodeOf(err)
	if code == "" {
		code = "INTERNAL"
	}
	prometheus.MutationRejectionsTotal.WithLabelValues(mutation, string(code)).Inc()

	entry := s.logger.WithFields(logrus.Fields{
		"mutation":   mutation,
		"code":       code,
		"user_id":    rc.Actor().ID(),
		"request_id": rc.RequestID(),
	})
	if code == "INTERNAL" {
		entry.WithError(err).Error("Mutation failed")
	} else {
		entry.WithError(err).Warn("Mutation rejected")
	}
	return err
}
