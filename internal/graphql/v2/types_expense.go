package v2

import (
	"github.com/graphql-go/graphql"

	"github.com/opencollective/opencollective-api-sub009/internal/graphql/common"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
)

func (s *Schema) defineExpenseType(locationType, payoutMethodType *graphql.Object) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Expense",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"description": &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"amount":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"currency":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"status":      &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
			"account": &graphql.Field{
				Type: s.accountType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					expense := p.Source.(*models.Expense)
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, expense.CollectiveID)
				},
			},
			"payee": &graphql.Field{
				Type: s.accountType,
				Resolve: s.guard.Relation(
					canSeeContributor(func(p graphql.ResolveParams) int64 {
						return p.Source.(*models.Expense).FromCollectiveID
					}),
					s.resolveExpensePayee),
			},
			"payoutMethod": &graphql.Field{
				Type: payoutMethodType,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeExpenses,
					common.Predicate(permissions.CanSeeExpensePayoutMethod),
					s.resolveExpensePayoutMethod),
			},
			"invoiceInfo": &graphql.Field{
				Type: graphql.String,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeExpenses,
					common.Predicate(permissions.CanSeeExpenseInvoiceInfo),
					func(p graphql.ResolveParams) (interface{}, error) {
						expense := p.Source.(*models.Expense)
						if expense.InvoiceInfo == "" {
							return nil, nil
						}
						return expense.InvoiceInfo, nil
					}),
			},
			"payeeLocation": &graphql.Field{
				Type: locationType,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeExpenses,
					common.Predicate(permissions.CanSeeExpensePayeeLocation),
					func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(*models.Expense).PayeeLocation, nil
					}),
			},
		},
	})
}

func (s *Schema) definePayoutMethodType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "PayoutMethod",
		Fields: graphql.Fields{
			"id":      &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"type":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"name":    &graphql.Field{Type: graphql.String},
			"isSaved": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
			"data": &graphql.Field{
				Type:        common.JSON,
				Description: "Bank account, PayPal email... Visible to the owner and to viewers of an expense paid with it.",
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeExpenses,
					common.Predicate(permissions.CanSeePayoutMethodDetails),
					func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(*models.PayoutMethod).Data, nil
					}),
			},
		},
	})
}

// resolveExpensePayee returns the payee account. Whoever may read the invoice info may
// also read the payee's legal name and location.
func (s *Schema) resolveExpensePayee(p graphql.ResolveParams) (interface{}, error) {
	expense := p.Source.(*models.Expense)
	rc := common.RC(p)

	ok, err := permissions.CanSeeExpenseInvoiceInfo(p.Context, rc, expense)
	if err != nil {
		return nil, err
	}
	if ok {
		permissions.AllowContextPermission(rc, permissions.SeeAccountLegalName, expense.FromCollectiveID)
		permissions.AllowContextPermission(rc, permissions.SeeAccountLocation, expense.FromCollectiveID)
	}
	return common.Load(p, rc.Loaders().Collective.ByID, expense.FromCollectiveID)
}

func (s *Schema) resolveExpensePayoutMethod(p graphql.ResolveParams) (interface{}, error) {
	expense := p.Source.(*models.Expense)
	if expense.PayoutMethodID == nil {
		return nil, nil
	}
	rc := common.RC(p)
	permissions.AllowContextPermission(rc, permissions.SeePayoutMethodDetails, *expense.PayoutMethodID)
	return common.Load(p, rc.Loaders().PayoutMethod.ByID, *expense.PayoutMethodID)
}

func (s *Schema) resolveExpense(p graphql.ResolveParams) (interface{}, error) {
	id, _ := common.IDArg(p.Args, "id")
	return common.Load(p, common.RC(p).Loaders().Expense.ByID, id)
}
