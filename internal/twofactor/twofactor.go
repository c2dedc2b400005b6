// Package twofactor decides whether a sensitive operation needs a fresh second factor.
package twofactor

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
	"github.com/opencollective/opencollective-api-sub009/internal/auth"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/prometheus"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

// Enforcer checks the 2FA verification carried by session tokens
type Enforcer struct {
	window time.Duration
	now    func() time.Time
	logger *logrus.Logger
}

// NewEnforcer accepts verifications younger than window
func NewEnforcer(window time.Duration, logger *logrus.Logger) *Enforcer {
	return &Enforcer{
		window: window,
		now:    time.Now,
		logger: logger,
	}
}

// Required reports whether account operations by actor need 2FA at all
func Required(actor *auth.Actor, account *models.Collective) bool {
	if actor.HasTwoFactorEnabled() {
		return true
	}
	return account != nil && account.Settings.RequireTwoFactorForAdmins
}

// Enforce returns nil when no verification is needed or the last one is recent enough
func (e *Enforcer) Enforce(rc *reqctx.RequestContext, account *models.Collective) error {
	actor := rc.Actor()
	if !actor.IsAuthenticated() {
		return apierrors.Unauthorized("")
	}
	if !Required(actor, account) {
		return nil
	}
	// personal tokens are created behind 2FA and cannot carry a verification time
	if actor.Token == auth.TokenKindPersonal {
		return nil
	}

	fields := logrus.Fields{"user_id": actor.ID()}
	if account != nil {
		fields["account_id"] = account.ID
	}

	if !actor.HasTwoFactorEnabled() {
		prometheus.TwoFactorChallengesTotal.Inc()
		e.logger.WithFields(fields).Info("Account requires two-factor authentication but user has none")
		return apierrors.TwoFactorRequired("Two-factor authentication must be enabled to administer this account")
	}

	verified := actor.TwoFactorVerifiedAt
	if verified == nil || e.now().Sub(*verified) > e.window {
		prometheus.TwoFactorChallengesTotal.Inc()
		e.logger.WithFields(fields).Debug("Two-factor verification missing or expired")
		return apierrors.TwoFactorRequired("Two-factor authentication is required for this operation")
	}
	return nil
}
