package twofactor

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
	"github.com/opencollective/opencollective-api-sub009/internal/auth"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
)

func TestEnforce(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	e := NewEnforcer(2*time.Hour, logger)
	e.now = func() time.Time { return now }

	recent := now.Add(-30 * time.Minute)
	stale := now.Add(-3 * time.Hour)
	plain := &models.Collective{ID: 20}
	strict := &models.Collective{ID: 21, Settings: models.CollectiveSettings{RequireTwoFactorForAdmins: true}}

	newActor := func(twoFactor bool, kind auth.TokenKind, verified *time.Time) *auth.Actor {
		a := auth.NewActor(&models.User{ID: 1, CollectiveID: 10, TwoFactorEnabled: twoFactor}, nil, nil, 0)
		a.Token = kind
		a.TwoFactorVerifiedAt = verified
		return a
	}

	tests := []struct {
		name    string
		actor   *auth.Actor
		account *models.Collective
		code    apierrors.Code
	}{
		{"anonymous", nil, plain, apierrors.CodeUnauthorized},
		{"no 2fa anywhere", newActor(false, auth.TokenKindSession, nil), plain, ""},
		{"2fa user recently verified", newActor(true, auth.TokenKindSession, &recent), plain, ""},
		{"2fa user never verified", newActor(true, auth.TokenKindSession, nil), plain, apierrors.CodeTwoFactorRequired},
		{"2fa user stale verification", newActor(true, auth.TokenKindSession, &stale), plain, apierrors.CodeTwoFactorRequired},
		{"account requires 2fa, user has none", newActor(false, auth.TokenKindSession, nil), strict, apierrors.CodeTwoFactorRequired},
		{"account requires 2fa, user verified", newActor(true, auth.TokenKindSession, &recent), strict, ""},
		{"personal token exempt", newActor(true, auth.TokenKindPersonal, nil), strict, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.Enforce(reqctx.New(reqctx.Options{Actor: tt.actor}), tt.account)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apierrors.Is(err, tt.code), "got %v", err)
		})
	}
}
