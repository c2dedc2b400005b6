package v1

import (
	"context"

	"github.com/graphql-go/graphql"

	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
	"github.com/opencollective/opencollective-api-sub009/internal/graphql/common"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/reqctx"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// ============================================================================
// Collective and user
// ============================================================================

func (s *Schema) defineLocationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationType",
		Fields: graphql.Fields{
			"name":    &graphql.Field{Type: graphql.String},
			"address": &graphql.Field{Type: graphql.String},
			"country": &graphql.Field{Type: graphql.String},
		},
	})
}

func (s *Schema) defineCollectiveType(locationType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Collective",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"slug":        &graphql.Field{Type: graphql.String},
			"name":        &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"website":     &graphql.Field{Type: graphql.String},
			"currency":    &graphql.Field{Type: graphql.String},
			"isIncognito": &graphql.Field{Type: graphql.Boolean},
			"isHost": &graphql.Field{
				Type: graphql.Boolean,
				Resolve: on(func(p graphql.ResolveParams, c *models.Collective) (interface{}, error) {
					return c.IsHostAccount, nil
				}),
			},
			"githubHandle": &graphql.Field{
				Type: graphql.String,
				Resolve: on(func(p graphql.ResolveParams, c *models.Collective) (interface{}, error) {
					if c.GithubHandle == "" {
						return nil, nil
					}
					return c.GithubHandle, nil
				}),
			},
			"createdAt": &graphql.Field{Type: graphql.DateTime},
			"location": &graphql.Field{
				Type: locationType,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeAccount,
					common.Predicate(permissions.CanSeeAccountLocation),
					func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(*models.Collective).Location, nil
					}),
			},
		},
	})
}

// completeCollectiveType adds the fields that point back to types defined after Collective
func (s *Schema) completeCollectiveType(memberType, paymentMethodType *graphql.Object) {
	s.collectiveType.AddFieldConfig("host", &graphql.Field{
		Type: s.collectiveType,
		Resolve: on(func(p graphql.ResolveParams, c *models.Collective) (interface{}, error) {
			return common.LoadOptional(p, common.RC(p).Loaders().Collective.ByID, c.HostCollectiveID)
		}),
	})
	s.collectiveType.AddFieldConfig("members", &graphql.Field{
		Type: graphql.NewList(memberType),
		Args: graphql.FieldConfigArgument{
			"role": &graphql.ArgumentConfig{Type: graphql.String},
		},
		Resolve: on(func(p graphql.ResolveParams, c *models.Collective) (interface{}, error) {
			return common.VisibleMembers(p.Context, common.RC(p), c, models.MemberRole(common.StringArg(p.Args, "role")))
		}),
	})
	s.collectiveType.AddFieldConfig("paymentMethods", &graphql.Field{
		Type: graphql.NewList(paymentMethodType),
		Resolve: s.guard.Field(permissions.ClassCollection, permissions.ScopeOrders,
			common.Predicate(permissions.CanSeePaymentMethods),
			s.resolveCollectivePaymentMethods),
	})
	s.collectiveType.AddFieldConfig("createdByUser", &graphql.Field{
		Type: s.userType,
		Resolve: s.guard.Relation(
			common.Predicate(func(ctx context.Context, rc *reqctx.RequestContext, c *models.Collective) (bool, error) {
				return permissions.CanSeeIncognitoProfile(ctx, rc, c, nil)
			}),
			on(func(p graphql.ResolveParams, c *models.Collective) (interface{}, error) {
				return common.LoadOptional(p, common.RC(p).Loaders().User.ByID, c.CreatedByUserID)
			})),
	})
}

func (s *Schema) defineUserType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "UserDetails",
		Fields: graphql.Fields{
			"id": &graphql.Field{Type: graphql.Int},
			"email": &graphql.Field{
				Type: graphql.String,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeEmail,
					common.Predicate(permissions.CanSeeUserPrivateInfo),
					func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(*models.User).Email, nil
					}),
			},
			"name": &graphql.Field{
				Type: graphql.String,
				Resolve: on(func(p graphql.ResolveParams, u *models.User) (interface{}, error) {
					thunk := common.RC(p).Loaders().Collective.ByID.Thunk(p.Context, u.CollectiveID)
					return func() (interface{}, error) {
						profile, err := thunk()
						if err != nil || profile == nil {
							return nil, err
						}
						return profile.Name, nil
					}, nil
				}),
			},
			"collective": &graphql.Field{
				Type: s.collectiveType,
				Resolve: on(func(p graphql.ResolveParams, u *models.User) (interface{}, error) {
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, u.CollectiveID)
				}),
			},
		},
	})
}

func (s *Schema) defineMemberType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Member",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"role":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
			"collective": &graphql.Field{
				Type: s.collectiveType,
				Resolve: on(func(p graphql.ResolveParams, m *models.Member) (interface{}, error) {
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, m.CollectiveID)
				}),
			},
			"member": &graphql.Field{
				Type: s.collectiveType,
				Resolve: on(func(p graphql.ResolveParams, m *models.Member) (interface{}, error) {
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, m.MemberCollectiveID)
				}),
			},
		},
	})
}

// resolveCollectivePaymentMethods keeps the legacy listing: active methods, without the
// gift cards that have been spent
func (s *Schema) resolveCollectivePaymentMethods(p graphql.ResolveParams) (interface{}, error) {
	c := p.Source.(*models.Collective)
	pms, err := s.store.ListPaymentMethods(p.Context, c.ID, store.PaymentMethodFilter{})
	if err != nil {
		return nil, err
	}
	out := make([]*models.PaymentMethod, 0, len(pms))
	for _, pm := range pms {
		if pm.Type == models.PaymentMethodTypeGiftCard && pm.Balance <= 0 {
			continue
		}
		out = append(out, pm)
	}
	return out, nil
}

// ============================================================================
// Payment and payout methods
// ============================================================================

func (s *Schema) definePaymentMethodType() *graphql.Object {
	secret := func(resolve graphql.FieldResolveFn) graphql.FieldResolveFn {
		return s.guard.Field(permissions.ClassSecret, permissions.ScopeOrders, common.Predicate(permissions.CanSeePaymentMethodSecrets), resolve)
	}

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "PaymentMethodType",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.Int},
			"name":           &graphql.Field{Type: graphql.String},
			"description":    &graphql.Field{Type: graphql.String},
			"service":        &graphql.Field{Type: graphql.String},
			"type":           &graphql.Field{Type: graphql.String},
			"currency":       &graphql.Field{Type: graphql.String},
			"balance":        &graphql.Field{Type: graphql.Int},
			"initialBalance": &graphql.Field{Type: graphql.Int},
			"createdAt":      &graphql.Field{Type: graphql.DateTime},
			"expiryDate": &graphql.Field{
				Type: graphql.DateTime,
				Resolve: on(func(p graphql.ResolveParams, pm *models.PaymentMethod) (interface{}, error) {
					if pm.ExpiryDate == nil {
						return nil, nil
					}
					return *pm.ExpiryDate, nil
				}),
			},
			"collective": &graphql.Field{
				Type: s.collectiveType,
				Resolve: on(func(p graphql.ResolveParams, pm *models.PaymentMethod) (interface{}, error) {
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, pm.CollectiveID)
				}),
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
		},
	})
}

func (s *Schema) definePayoutMethodType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "PayoutMethod",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.Int},
			"type": &graphql.Field{Type: graphql.String},
			"name": &graphql.Field{Type: graphql.String},
			"data": &graphql.Field{
				Type: common.JSON,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeExpenses,
					common.Predicate(permissions.CanSeePayoutMethodDetails),
					func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(*models.PayoutMethod).Data, nil
					}),
			},
		},
	})
}

// ============================================================================
// Expenses, orders, transactions
// ============================================================================

func (s *Schema) defineExpenseType(payoutMethodType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "ExpenseType",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"description": &graphql.Field{Type: graphql.String},
			"amount":      &graphql.Field{Type: graphql.Int},
			"currency":    &graphql.Field{Type: graphql.String},
			"status":      &graphql.Field{Type: graphql.String},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
			"collective": &graphql.Field{
				Type: s.collectiveType,
				Resolve: on(func(p graphql.ResolveParams, e *models.Expense) (interface{}, error) {
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, e.CollectiveID)
				}),
			},
			"fromCollective": &graphql.Field{
				Type: s.collectiveType,
				Resolve: s.guard.Relation(contributorCheck(expenseFromID),
					on(func(p graphql.ResolveParams, e *models.Expense) (interface{}, error) {
						return common.Load(p, common.RC(p).Loaders().Collective.ByID, e.FromCollectiveID)
					})),
			},
			"PayoutMethod": &graphql.Field{
				Type: payoutMethodType,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeExpenses,
					common.Predicate(permissions.CanSeeExpensePayoutMethod),
					func(p graphql.ResolveParams) (interface{}, error) {
						e := p.Source.(*models.Expense)
						if e.PayoutMethodID == nil {
							return nil, nil
						}
						rc := common.RC(p)
						permissions.AllowContextPermission(rc, permissions.SeePayoutMethodDetails, *e.PayoutMethodID)
						return common.Load(p, rc.Loaders().PayoutMethod.ByID, *e.PayoutMethodID)
					}),
			},
		},
	})
}

// contributorCheck applies the incognito rule to the account behind an order, a
// transaction or an expense. Transactions also let their host's admins through.
func contributorCheck(fromID func(source interface{}) int64) common.Check {
	return func(p graphql.ResolveParams) (bool, error) {
		id := fromID(p.Source)
		if id == 0 {
			return false, nil
		}
		rc := common.RC(p)
		from, err := rc.Loaders().Collective.ByID.Load(p.Context, id)
		if err != nil || from == nil {
			return false, err
		}
		tx, _ := p.Source.(*models.Transaction)
		return permissions.CanSeeIncognitoProfile(p.Context, rc, from, tx)
	}
}

func expenseFromID(source interface{}) int64 {
	if e, ok := source.(*models.Expense); ok {
		return e.FromCollectiveID
	}
	return 0
}

func orderFromID(source interface{}) int64 {
	if o, ok := source.(*models.Order); ok {
		return o.FromCollectiveID
	}
	return 0
}

func transactionFromID(source interface{}) int64 {
	if tx, ok := source.(*models.Transaction); ok {
		return tx.FromCollectiveID
	}
	return 0
}

func (s *Schema) defineOrderType(paymentMethodType *graphql.Object) *graphql.Object {
	canSeeContributor := contributorCheck(orderFromID)

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "OrderType",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"description": &graphql.Field{Type: graphql.String},
			"totalAmount": &graphql.Field{Type: graphql.Int},
			"currency":    &graphql.Field{Type: graphql.String},
			"status":      &graphql.Field{Type: graphql.String},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
			"collective": &graphql.Field{
				Type: s.collectiveType,
				Resolve: on(func(p graphql.ResolveParams, o *models.Order) (interface{}, error) {
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, o.CollectiveID)
				}),
			},
			"fromCollective": &graphql.Field{
				Type: s.collectiveType,
				Resolve: s.guard.Relation(canSeeContributor,
					on(func(p graphql.ResolveParams, o *models.Order) (interface{}, error) {
						return common.Load(p, common.RC(p).Loaders().Collective.ByID, o.FromCollectiveID)
					})),
			},
			"createdByUser": &graphql.Field{
				Type: s.userType,
				Resolve: s.guard.Relation(canSeeContributor,
					on(func(p graphql.ResolveParams, o *models.Order) (interface{}, error) {
						return common.Load(p, common.RC(p).Loaders().User.ByID, o.CreatedByUserID)
					})),
			},
			"paymentMethod": &graphql.Field{
				Type: paymentMethodType,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeOrders,
					common.Predicate(permissions.CanSeeOrderPaymentMethod),
					func(p graphql.ResolveParams) (interface{}, error) {
						o := p.Source.(*models.Order)
						return common.LoadOptional(p, common.RC(p).Loaders().PaymentMethod.ByID, o.PaymentMethodID)
					}),
			},
		},
	})
}

func (s *Schema) defineTransactionType(paymentMethodType *graphql.Object) *graphql.Object {
	canSeeContributor := contributorCheck(transactionFromID)

	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Transaction",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.Int},
			"uuid":        &graphql.Field{Type: graphql.String},
			"type":        &graphql.Field{Type: graphql.String},
			"description": &graphql.Field{Type: graphql.String},
			"amount":      &graphql.Field{Type: graphql.Int},
			"currency":    &graphql.Field{Type: graphql.String},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
			"collective": &graphql.Field{
				Type: s.collectiveType,
				Resolve: on(func(p graphql.ResolveParams, tx *models.Transaction) (interface{}, error) {
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, tx.CollectiveID)
				}),
			},
			"host": &graphql.Field{
				Type: s.collectiveType,
				Resolve: on(func(p graphql.ResolveParams, tx *models.Transaction) (interface{}, error) {
					return common.LoadOptional(p, common.RC(p).Loaders().Collective.ByID, tx.HostCollectiveID)
				}),
			},
			"fromCollective": &graphql.Field{
				Type: s.collectiveType,
				Resolve: s.guard.Relation(canSeeContributor,
					on(func(p graphql.ResolveParams, tx *models.Transaction) (interface{}, error) {
						return common.Load(p, common.RC(p).Loaders().Collective.ByID, tx.FromCollectiveID)
					})),
			},
			"createdByUser": &graphql.Field{
				Type: s.userType,
				Resolve: s.guard.Relation(canSeeContributor,
					on(func(p graphql.ResolveParams, tx *models.Transaction) (interface{}, error) {
						return common.LoadOptional(p, common.RC(p).Loaders().User.ByID, tx.CreatedByUserID)
					})),
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

// ============================================================================
// Query resolvers
// ============================================================================

func (s *Schema) resolveLoggedInUser(p graphql.ResolveParams) (interface{}, error) {
	actor := common.RC(p).Actor()
	if !actor.IsAuthenticated() {
		return nil, nil
	}
	return actor.User, nil
}

func (s *Schema) resolveCollective(p graphql.ResolveParams) (interface{}, error) {
	if id, ok := common.IDArg(p.Args, "id"); ok {
		c, err := common.RC(p).Loaders().Collective.ByID.Load(p.Context, id)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return nil, apierrors.NotFound("No collective found with this id")
		}
		return c, nil
	}
	return s.collectiveBySlug(p, common.StringArg(p.Args, "slug"))
}

func (s *Schema) collectiveBySlug(p graphql.ResolveParams, slug string) (*models.Collective, error) {
	if slug == "" {
		return nil, apierrors.Validation("Please provide a slug or an id")
	}
	c, err := s.store.GetCollectiveBySlug(p.Context, slug)
	if store.IsNotFound(err) {
		return nil, apierrors.NotFound("No collective found with slug " + slug)
	}
	if err != nil {
		return nil, err
	}
	common.RC(p).Loaders().Collective.ByID.Prime(c.ID, c)
	return c, nil
}

func (s *Schema) resolveAllMembers(p graphql.ResolveParams) (interface{}, error) {
	c, err := s.collectiveBySlug(p, common.StringArg(p.Args, "collectiveSlug"))
	if err != nil {
		return nil, err
	}
	return common.VisibleMembers(p.Context, common.RC(p), c, models.MemberRole(common.StringArg(p.Args, "role")))
}

func (s *Schema) resolveExpense(p graphql.ResolveParams) (interface{}, error) {
	id, _ := common.IDArg(p.Args, "id")
	return common.Load(p, common.RC(p).Loaders().Expense.ByID, id)
}

func (s *Schema) resolveTransaction(p graphql.ResolveParams) (interface{}, error) {
	id, _ := common.IDArg(p.Args, "id")
	return common.Load(p, common.RC(p).Loaders().Transaction.ByID, id)
}

func (s *Schema) resolveOrder(p graphql.ResolveParams) (interface{}, error) {
	id, _ := common.IDArg(p.Args, "id")
	return common.Load(p, common.RC(p).Loaders().Order.ByID, id)
}

func (s *Schema) resolvePaymentMethod(p graphql.ResolveParams) (interface{}, error) {
	id, _ := common.IDArg(p.Args, "id")
	return common.Load(p, common.RC(p).Loaders().PaymentMethod.ByID, id)
}
