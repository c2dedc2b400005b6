package mutations

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
)

// Mailer delivers the emails mutations trigger
type Mailer interface {
	SendGiftCard(ctx context.Context, to string, card *models.PaymentMethod, emitter *models.Collective) error
	SendSignInLink(ctx context.Context, user *models.User) error
}

// LogMailer writes emails to the log instead of sending them
type LogMailer struct {
	logger *logrus.Logger
}

// NewLogMailer creates a mailer for development
func NewLogMailer(logger *logrus.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendGiftCard(ctx context.Context, to string, card *models.PaymentMethod, emitter *models.Collective) error {
	m.logger.WithFields(logrus.Fields{
		"to":         to,
		"emitter":    emitter.Slug,
		"card_uuid":  card.UUID,
		"amount":     card.InitialBalance,
		"currency":   card.Currency,
		"expires_at": card.ExpiryDate,
	}).Info("Gift card email")
	return nil
}

func (m *LogMailer) SendSignInLink(ctx context.Context, user *models.User) error {
	m.logger.WithFields(logrus.Fields{
		"to":      user.Email,
		"user_id": user.ID,
	}).Info("Sign-in link email")
	return nil
}
