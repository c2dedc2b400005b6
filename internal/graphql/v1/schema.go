// Package v1 is the legacy GraphQL schema. Every root field is deprecated in favor of v2.
package v1

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/graphql/common"
	"github.com/opencollective/opencollective-api-sub009/internal/mutations"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// DeprecationReason is set on every root field
const DeprecationReason = "2022-06-01: Please use the v2 API"

// Schema represents the v1 GraphQL schema
type Schema struct {
	schema    graphql.Schema
	store     store.Store
	mutations *mutations.Service
	guard     *common.Guard
	logger    *logrus.Logger

	collectiveType *graphql.Object
	userType       *graphql.Object
}

// on adapts a resolver to a typed source. Denied relations resolve to an empty map on
// this surface, so any other source resolves to null.
func on[T any](resolve func(p graphql.ResolveParams, source T) (interface{}, error)) graphql.FieldResolveFn {
	return func(p graphql.ResolveParams) (interface{}, error) {
		source, ok := p.Source.(T)
		if !ok {
			return nil, nil
		}
		return resolve(p, source)
	}
}

// NewSchema builds the v1 schema
func NewSchema(st store.Store, svc *mutations.Service, logger *logrus.Logger) (*Schema, error) {
	s := &Schema{
		store:     st,
		mutations: svc,
		guard:     common.NewGuard(permissions.SurfaceV1, logger),
		logger:    logger,
	}

	// Define types
	locationType := s.defineLocationType()
	s.collectiveType = s.defineCollectiveType(locationType)
	s.userType = s.defineUserType()
	memberType := s.defineMemberType()
	paymentMethodType := s.definePaymentMethodType()
	payoutMethodType := s.definePayoutMethodType()
	expenseType := s.defineExpenseType(payoutMethodType)
	orderType := s.defineOrderType(paymentMethodType)
	transactionType := s.defineTransactionType(paymentMethodType)
	createUserResultType := s.defineCreateUserResultType()

	s.completeCollectiveType(memberType, paymentMethodType)

	// Define input types
	userInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UserInputType",
		Fields: graphql.InputObjectConfigFieldMap{
			"email":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"name":      &graphql.InputObjectFieldConfig{Type: graphql.String},
			"legalName": &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})
	organizationInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CreateUserOrganizationInputType",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"website":     &graphql.InputObjectFieldConfig{Type: graphql.String},
			"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})

	idArgs := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
	}

	// Define root query
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"LoggedInUser": &graphql.Field{
				Type:              s.userType,
				DeprecationReason: DeprecationReason,
				Resolve:           s.resolveLoggedInUser,
			},
			"Collective": &graphql.Field{
				Type:              s.collectiveType,
				DeprecationReason: DeprecationReason,
				Args: graphql.FieldConfigArgument{
					"id":   &graphql.ArgumentConfig{Type: graphql.Int},
					"slug": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: s.resolveCollective,
			},
			"Expense": &graphql.Field{
				Type:              expenseType,
				DeprecationReason: DeprecationReason,
				Args:              idArgs,
				Resolve:           s.resolveExpense,
			},
			"Transaction": &graphql.Field{
				Type:              transactionType,
				DeprecationReason: DeprecationReason,
				Args:              idArgs,
				Resolve:           s.resolveTransaction,
			},
			"Order": &graphql.Field{
				Type:              orderType,
				DeprecationReason: DeprecationReason,
				Args:              idArgs,
				Resolve:           s.resolveOrder,
			},
			"PaymentMethod": &graphql.Field{
				Type:              paymentMethodType,
				DeprecationReason: DeprecationReason,
				Args:              idArgs,
				Resolve:           s.resolvePaymentMethod,
			},
			"allMembers": &graphql.Field{
				Type:              graphql.NewList(memberType),
				DeprecationReason: DeprecationReason,
				Args: graphql.FieldConfigArgument{
					"collectiveSlug": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"role":           &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: s.resolveAllMembers,
			},
		},
	})

	// Define root mutation
	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createUser": &graphql.Field{
				Type:              createUserResultType,
				DeprecationReason: DeprecationReason,
				Args: graphql.FieldConfigArgument{
					"user":           &graphql.ArgumentConfig{Type: graphql.NewNonNull(userInputType)},
					"organization":   &graphql.ArgumentConfig{Type: organizationInputType},
					"throwIfExists":  &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"sendSignInLink": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: s.resolveCreateUser,
			},
			"createVirtualCards": &graphql.Field{
				Type:              graphql.NewList(paymentMethodType),
				DeprecationReason: DeprecationReason,
				Args: graphql.FieldConfigArgument{
					"CollectiveId":                   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"emails":                         &graphql.ArgumentConfig{Type: graphql.NewList(graphql.String)},
					"numberOfVirtualCards":           &graphql.ArgumentConfig{Type: graphql.Int},
					"amount":                         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
					"currency":                       &graphql.ArgumentConfig{Type: graphql.String},
					"expiryDate":                     &graphql.ArgumentConfig{Type: graphql.DateTime},
					"limitedToOpenSourceCollectives": &graphql.ArgumentConfig{Type: graphql.Boolean},
					"limitedToHostCollectiveIds":     &graphql.ArgumentConfig{Type: graphql.NewList(graphql.Int)},
					"limitedToCollectiveIds":         &graphql.ArgumentConfig{Type: graphql.NewList(graphql.Int)},
					"description":                    &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: s.resolveCreateVirtualCards,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create v1 schema: %w", err)
	}
	s.schema = schema
	return s, nil
}

// GetSchema returns the GraphQL schema
func (s *Schema) GetSchema() graphql.Schema {
	return s.schema
}
