package mutations

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/prometheus"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// Capability is the answer of a feature check on an account
type Capability string

const (
	CapabilitySupported   Capability = "SUPPORTED"
	CapabilityUnsupported Capability = "UNSUPPORTED"
)

// GiftCardsInput is the argument set of createGiftCards
type GiftCardsInput struct {
	Account                        AccountRef
	Emails                         []string
	NumberOfGiftCards              *int
	Amount                         int64
	Currency                       string
	ExpiryDate                     *time.Time
	LimitedToOpenSourceCollectives bool
	LimitedToHostCollectiveIDs     []int64
	LimitedToCollectiveIDs         []int64
	Description                    string
}

// count returns how many cards the input asks for
func (in GiftCardsInput) count() int {
	if len(in.Emails) > 0 {
		return len(in.Emails)
	}
	if in.NumberOfGiftCards != nil {
		return *in.NumberOfGiftCards
	}
	return 0
}

func (in GiftCardsInput) validate() error {
	if len(in.Emails) == 0 && in.NumberOfGiftCards == nil {
		return apierrors.Validation("You need to provide a list of emails or a number of gift cards to create")
	}
	if in.NumberOfGiftCards != nil {
		if *in.NumberOfGiftCards <= 0 {
			return apierrors.Validation("numberOfGiftCards must be greater than 0")
		}
		if len(in.Emails) > 0 && *in.NumberOfGiftCards != len(in.Emails) {
			return apierrors.Validation(fmt.Sprintf(
				"numberOfGiftCards (%d) and the number of emails (%d) don't match",
				*in.NumberOfGiftCards, len(in.Emails)))
		}
	}
	if in.LimitedToOpenSourceCollectives && len(in.LimitedToHostCollectiveIDs) > 0 {
		return apierrors.Validation("limitedToOpenSourceCollectives and limitedToHostCollectiveIds cannot be used together")
	}
	if in.Amount <= 0 {
		return apierrors.Validation("amount must be greater than 0")
	}
	for _, email := range in.Emails {
		if _, err := parseEmail(email); err != nil {
			return err
		}
	}
	return nil
}

// parseEmail accepts bare addresses only and returns them lowercased
func parseEmail(email string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" || addr.Address != strings.TrimSpace(email) {
		return "", apierrors.Validation(fmt.Sprintf("Invalid email address: %q", email))
	}
	return strings.ToLower(addr.Address), nil
}

// CheckCanEmitGiftCards reports whether account has a funding source for gift cards.
// The source is the account's first non-archived credit card.
func (s *Service) CheckCanEmitGiftCards(ctx context.Context, account *models.Collective) (Capability, *models.PaymentMethod, error) {
	if account == nil || account.IsIncognito {
		return CapabilityUnsupported, nil, nil
	}
	cards, err := s.store.ListPaymentMethods(ctx, account.ID, store.PaymentMethodFilter{
		Types: []models.PaymentMethodType{models.PaymentMethodTypeCreditCard},
	})
	if err != nil {
		return CapabilityUnsupported, nil, err
	}
	if len(cards) == 0 {
		return CapabilityUnsupported, nil, nil
	}
	return CapabilitySupported, cards[0], nil
}

// CreateGiftCards emits prepaid gift cards funded by the account's credit card.
// Nothing is written unless every check passes. Emails are sent after the cards exist.
func (s *Service) CreateGiftCards(ctx context.Context, rc *reqctx.RequestContext, in GiftCardsInput) ([]*models.PaymentMethod, error) {
	const mutation = "createGiftCards"

	if err := in.validate(); err != nil {
		return nil, s.reject(rc, mutation, err)
	}

	account, err := s.loadAccount(ctx, rc, in.Account)
	if err != nil {
		return nil, s.reject(rc, mutation, err)
	}

	actor := rc.Actor()
	if !actor.IsAuthenticated() {
		return nil, s.reject(rc, mutation, apierrors.Unauthorized("You need to be logged in to create gift cards"))
	}
	if !actor.IsAdminOfCollective(account) {
		return nil, s.reject(rc, mutation, apierrors.Forbidden("You must be an admin of the account to create gift cards"))
	}
	if err := permissions.EnforceScope(rc, permissions.ScopeVirtualCards); err != nil {
		return nil, s.reject(rc, mutation, err)
	}

	capability, source, err := s.CheckCanEmitGiftCards(ctx, account)
	if err != nil {
		return nil, s.reject(rc, mutation, err)
	}
	if capability == CapabilityUnsupported {
		return nil, s.reject(rc, mutation, apierrors.Forbidden("This account cannot emit gift cards: it needs an active credit card"))
	}

	if err := s.twoFactor.Enforce(rc, account); err != nil {
		return nil, s.reject(rc, mutation, err)
	}

	cards := s.buildGiftCards(rc, account, source, in)
	if err := s.store.CreatePaymentMethods(ctx, cards); err != nil {
		return nil, s.reject(rc, mutation, fmt.Errorf("failed to create gift cards: %w", err))
	}

	delivery := "code"
	if len(in.Emails) > 0 {
		delivery = "email"
		s.sendGiftCardEmails(ctx, account, cards)
	}
	prometheus.GiftCardsCreatedTotal.WithLabelValues(delivery).Add(float64(len(cards)))

	s.logger.WithFields(logrus.Fields{
		"account_id": account.ID,
		"user_id":    actor.ID(),
		"count":      len(cards),
		"amount":     in.Amount,
		"delivery":   delivery,
	}).Info("Gift cards created")

	return cards, nil
}

func (s *Service) buildGiftCards(rc *reqctx.RequestContext, account *models.Collective, source *models.PaymentMethod, in GiftCardsInput) []*models.PaymentMethod {
	currency := in.Currency
	if currency == "" {
		currency = account.Currency
	}
	expiry := s.now().Add(s.opts.GiftCardValidity)
	if in.ExpiryDate != nil {
		expiry = *in.ExpiryDate
	}
	hostIDs := in.LimitedToHostCollectiveIDs
	if in.LimitedToOpenSourceCollectives {
		hostIDs = []int64{s.opts.OpenSourceHostID}
	}
	description := in.Description
	if description == "" {
		description = fmt.Sprintf("%s %.2f gift card from %s", currency, float64(in.Amount)/100, account.Name)
	}

	createdBy := rc.Actor().ID()
	batch := uuid.NewString()
	n := in.count()
	cards := make([]*models.PaymentMethod, 0, n)
	for i := 0; i < n; i++ {
		card := &models.PaymentMethod{
			UUID:                       uuid.NewString(),
			Name:                       description,
			Description:                description,
			Service:                    "opencollective",
			Type:                       models.PaymentMethodTypeGiftCard,
			CollectiveID:               account.ID,
			CreatedByUserID:            &createdBy,
			SourcePaymentMethodID:      &source.ID,
			Token:                      redeemCode(),
			Currency:                   currency,
			InitialBalance:             in.Amount,
			Balance:                    in.Amount,
			LimitedToHostCollectiveIDs: hostIDs,
			LimitedToCollectiveIDs:     in.LimitedToCollectiveIDs,
			Data:                       map[string]interface{}{"batch": batch},
			ExpiryDate:                 &expiry,
		}
		if i < len(in.Emails) {
			card.EmailSentTo, _ = parseEmail(in.Emails[i])
		}
		cards = append(cards, card)
	}
	return cards
}

// redeemCode is the 8-character code printed on a gift card
func redeemCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// sendGiftCardEmails never fails the mutation: a card without its email can be resent later
func (s *Service) sendGiftCardEmails(ctx context.Context, emitter *models.Collective, cards []*models.PaymentMethod) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.EmailConcurrency)

	for _, card := range cards {
		card := card
		if card.EmailSentTo == "" {
			continue
		}
		g.Go(func() error {
			if err := s.mailer.SendGiftCard(gctx, card.EmailSentTo, card, emitter); err != nil {
				prometheus.GiftCardEmailFailuresTotal.Inc()
				s.logger.WithFields(logrus.Fields{
					"card_uuid": card.UUID,
					"to":        card.EmailSentTo,
				}).WithError(err).Warn("Failed to send gift card email")
			}
			return nil
		})
	}
	g.Wait()
}
