package v2

import (
	"github.com/graphql-go/graphql"

	"github.com/opencollective/opencollective-api-sub009/internal/graphql/common"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
)

// ============================================================================
// Payment methods
// ============================================================================

func (s *Schema) definePaymentMethodType() *graphql.Object {
	secret := func(resolve graphql.FieldResolveFn) graphql.FieldResolveFn {
		return s.guard.Field(permissions.ClassSecret, permissions.ScopeOrders, common.Predicate(permissions.CanSeePaymentMethodSecrets), resolve)
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "PaymentMethod",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
				"name":           &graphql.Field{Type: graphql.String},
				"description":    &graphql.Field{Type: graphql.String},
				"service":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
				"type":           &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
				"currency":       &graphql.Field{Type: graphql.String},
				"balance":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
				"initialBalance": &graphql.Field{Type: graphql.Int},
				"createdAt":      &graphql.Field{Type: graphql.DateTime},
				"expiryDate": &graphql.Field{
					Type: graphql.DateTime,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						pm := p.Source.(*models.PaymentMethod)
						if pm.ExpiryDate == nil {
							return nil, nil
						}
						return *pm.ExpiryDate, nil
					},
				},
				"limitedToHostCollectiveIds": &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(graphql.Int))},
				"limitedToCollectiveIds":     &graphql.Field{Type: graphql.NewList(graphql.NewNonNull(graphql.Int))},
				"account": &graphql.Field{
					Type: s.accountType,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						pm := p.Source.(*models.PaymentMethod)
						return common.Load(p, common.RC(p).Loaders().Collective.ByID, pm.CollectiveID)
					},
				},
				"uuid": &graphql.Field{
					Type: graphql.String,
					Resolve: secret(func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(*models.PaymentMethod).UUID, nil
					}),
				},
				"data": &graphql.Field{
					Type: common.JSON,
					Resolve: secret(func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(*models.PaymentMethod).Data, nil
					}),
				},
				"code": &graphql.Field{
					Type:        graphql.String,
					Description: "Redeem code of a gift card",
					Resolve: secret(func(p graphql.ResolveParams) (interface{}, error) {
						pm := p.Source.(*models.PaymentMethod)
						if pm.Type != models.PaymentMethodTypeGiftCard || pm.Token == "" {
							return nil, nil
						}
						return pm.Token, nil
					}),
				},
				"emailSentTo": &graphql.Field{
					Type: graphql.String,
					Resolve: secret(func(p graphql.ResolveParams) (interface{}, error) {
						pm := p.Source.(*models.PaymentMethod)
						if pm.EmailSentTo == "" {
							return nil, nil
						}
						return pm.EmailSentTo, nil
					}),
				},
			}
		}),
	})
}

func (s *Schema) resolvePaymentMethod(p graphql.ResolveParams) (interface{}, error) {
	id, _ := common.IDArg(p.Args, "id")
	return common.Load(p, common.RC(p).Loaders().PaymentMethod.ByID, id)
}

// ============================================================================
// Orders and transactions
// ============================================================================

func (s *Schema) defineTierType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Tier",
		Fields: graphql.Fields{
			"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"slug":     &graphql.Field{Type: graphql.String},
			"name":     &graphql.Field{Type: graphql.String},
			"amount":   &graphql.Field{Type: graphql.Int},
			"currency": &graphql.Field{Type: graphql.String},
		},
	})
}

// canSeeContributor checks the incognito rule on the contributing account of an
// order, a transaction or an expense. Transactions also let their host's admins through.
func canSeeContributor(fromID func(p graphql.ResolveParams) int64) common.Check {
	return func(p graphql.ResolveParams) (bool, error) {
		rc := common.RC(p)
		from, err := rc.Loaders().Collective.ByID.Load(p.Context, fromID(p))
		if err != nil || from == nil {
			return false, err
		}
		tx, _ := p.Source.(*models.Transaction)
		return permissions.CanSeeIncognitoProfile(p.Context, rc, from, tx)
	}
}

func (s *Schema) defineOrderType(tierType, paymentMethodType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Order",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"description": &graphql.Field{Type: graphql.String},
			"totalAmount": &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"currency":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"status":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
			"fromAccount": &graphql.Field{
				Type: s.accountType,
				Resolve: s.guard.Relation(
					canSeeContributor(func(p graphql.ResolveParams) int64 {
						return p.Source.(*models.Order).FromCollectiveID
					}),
					func(p graphql.ResolveParams) (interface{}, error) {
						order := p.Source.(*models.Order)
						return common.Load(p, common.RC(p).Loaders().Collective.ByID, order.FromCollectiveID)
					}),
			},
			"toAccount": &graphql.Field{
				Type: s.accountType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					order := p.Source.(*models.Order)
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, order.CollectiveID)
				},
			},
			"tier": &graphql.Field{
				Type: tierType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					order := p.Source.(*models.Order)
					return common.LoadOptional(p, common.RC(p).Loaders().Tier.ByID, order.TierID)
				},
			},
			"paymentMethod": &graphql.Field{
				Type: paymentMethodType,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeOrders,
					common.Predicate(permissions.CanSeeOrderPaymentMethod),
					func(p graphql.ResolveParams) (interface{}, error) {
						order := p.Source.(*models.Order)
						return common.LoadOptional(p, common.RC(p).Loaders().PaymentMethod.ByID, order.PaymentMethodID)
					}),
			},
		},
	})
}

func (s *Schema) defineTransactionType(paymentMethodType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Transaction",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"uuid":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"kind":        &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"description": &graphql.Field{Type: graphql.String},
			"amount":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"currency":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
			"fromAccount": &graphql.Field{
				Type: s.accountType,
				Resolve: s.guard.Relation(
					canSeeContributor(func(p graphql.ResolveParams) int64 {
						return p.Source.(*models.Transaction).FromCollectiveID
					}),
					func(p graphql.ResolveParams) (interface{}, error) {
						tx := p.Source.(*models.Transaction)
						return common.Load(p, common.RC(p).Loaders().Collective.ByID, tx.FromCollectiveID)
					}),
			},
			"toAccount": &graphql.Field{
				Type: s.accountType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tx := p.Source.(*models.Transaction)
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, tx.CollectiveID)
				},
			},
			"host": &graphql.Field{
				Type: s.accountType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tx := p.Source.(*models.Transaction)
					return common.LoadOptional(p, common.RC(p).Loaders().Collective.ByID, tx.HostCollectiveID)
				},
			},
			"giftCardEmitterAccount": &graphql.Field{
				Type: s.accountType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					tx := p.Source.(*models.Transaction)
					return common.LoadOptional(p, common.RC(p).Loaders().Collective.ByID, tx.UsingGiftCardFromCollectiveID)
				},
			},
			"paymentMethod": &graphql.Field{
				Type: paymentMethodType,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeTransactions,
					common.Predicate(permissions.CanSeeTransactionPaymentMethod),
					func(p graphql.ResolveParams) (interface{}, error) {
						tx := p.Source.(*models.Transaction)
						return common.LoadOptional(p, common.RC(p).Loaders().PaymentMethod.ByID, tx.PaymentMethodID)
					}),
			},
		},
	})
}

func (s *Schema) resolveOrder(p graphql.ResolveParams) (interface{}, error) {
	id, _ := common.IDArg(p.Args, "id")
	return common.Load(p, common.RC(p).Loaders().Order.ByID, id)
}

func (s *Schema) resolveTransaction(p graphql.ResolveParams) (interface{}, error) {
	id, _ := common.IDArg(p.Args, "id")
	return common.Load(p, common.RC(p).Loaders().Transaction.ByID, id)
}
