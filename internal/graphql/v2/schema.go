// Package v2 is the current GraphQL schema
package v2

import (
	"fmt"

	"github.com/graphql-go/graphql"
	"github.com/sirupsen/logrus"

	"github.com/opencollective/opencollective-api-sub009/internal/graphql/common"
	"github.com/opencollective/opencollective-api-sub009/internal/mutations"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// Schema represents the v2 GraphQL schema
type Schema struct {
	schema    graphql.Schema
	store     store.Store
	mutations *mutations.Service
	guard     *common.Guard
	logger    *logrus.Logger

	// object types referenced by the Account interface's ResolveType
	accountType      *graphql.Interface
	individualType   *graphql.Object
	organizationType *graphql.Object
	collectiveType   *graphql.Object
	hostType         *graphql.Object
	fieldTypes       accountFieldTypes
}

// NewSchema builds the v2 schema
func NewSchema(st store.Store, svc *mutations.Service, logger *logrus.Logger) (*Schema, error) {
	s := &Schema{
		store:     st,
		mutations: svc,
		guard:     common.NewGuard(permissions.SurfaceV2, logger),
		logger:    logger,
	}

	// Define enums
	accountTypeEnum := s.defineAccountTypeEnum()
	memberRoleEnum := s.defineMemberRoleEnum()
	capabilityEnum := s.defineCapabilityEnum()

	// Define types
	locationType := s.defineLocationType()
	s.accountType = s.defineAccountInterface()
	memberType := s.defineMemberType(memberRoleEnum)
	payoutMethodType := s.definePayoutMethodType()
	paymentMethodType := s.definePaymentMethodType()
	notificationType := s.defineNotificationType()

	s.fieldTypes = accountFieldTypes{
		accountType:   accountTypeEnum,
		location:      locationType,
		member:        memberType,
		memberRole:    memberRoleEnum,
		paymentMethod: paymentMethodType,
		payoutMethod:  payoutMethodType,
		notification:  notificationType,
		capability:    capabilityEnum,
	}
	s.individualType = s.defineIndividualType(s.fieldTypes)
	s.organizationType = s.defineOrganizationType(s.fieldTypes)
	s.collectiveType = s.defineCollectiveType(s.fieldTypes)
	s.hostType = s.defineHostType(s.fieldTypes)

	expenseType := s.defineExpenseType(locationType, payoutMethodType)
	tierType := s.defineTierType()
	orderType := s.defineOrderType(tierType, paymentMethodType)
	transactionType := s.defineTransactionType(paymentMethodType)
	applicationType := s.defineApplicationType()
	createUserResultType := s.defineCreateUserResultType()

	// Define input types
	accountReferenceInput := s.defineAccountReferenceInput()
	userCreateInput := s.defineUserCreateInput()
	organizationCreateInput := s.defineOrganizationCreateInput()
	coreContributorInput := s.defineCoreContributorInput(accountReferenceInput, memberRoleEnum)

	idArgs := graphql.FieldConfigArgument{
		"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int)},
	}

	// Define root query
	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"me": &graphql.Field{
				Type:        s.individualType,
				Description: "The account of the logged-in user",
				Resolve:     s.resolveMe,
			},
			"account": &graphql.Field{
				Type: s.accountType,
				Args: graphql.FieldConfigArgument{
					"id":             &graphql.ArgumentConfig{Type: graphql.Int},
					"slug":           &graphql.ArgumentConfig{Type: graphql.String},
					"throwIfMissing": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: true},
				},
				Resolve: s.resolveAccount,
			},
			"individual": &graphql.Field{
				Type: s.individualType,
				Args: graphql.FieldConfigArgument{
					"id":   &graphql.ArgumentConfig{Type: graphql.Int},
					"slug": &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: s.resolveIndividual,
			},
			"expense": &graphql.Field{
				Type:    expenseType,
				Args:    idArgs,
				Resolve: s.resolveExpense,
			},
			"order": &graphql.Field{
				Type:    orderType,
				Args:    idArgs,
				Resolve: s.resolveOrder,
			},
			"transaction": &graphql.Field{
				Type:    transactionType,
				Args:    idArgs,
				Resolve: s.resolveTransaction,
			},
			"paymentMethod": &graphql.Field{
				Type:    paymentMethodType,
				Args:    idArgs,
				Resolve: s.resolvePaymentMethod,
			},
			"application": &graphql.Field{
				Type: applicationType,
				Args: graphql.FieldConfigArgument{
					"clientId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: s.resolveApplication,
			},
		},
	})

	// Define root mutation
	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createGiftCards": &graphql.Field{
				Type:        graphql.NewList(paymentMethodType),
				Description: "Create gift cards funded by the account's credit card",
				Args: graphql.FieldConfigArgument{
					"account":                        &graphql.ArgumentConfig{Type: graphql.NewNonNull(accountReferenceInput)},
					"emails":                         &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.String))},
					"numberOfGiftCards":              &graphql.ArgumentConfig{Type: graphql.Int},
					"amount":                         &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Int), Description: "Amount in cents"},
					"currency":                       &graphql.ArgumentConfig{Type: graphql.String},
					"expiryDate":                     &graphql.ArgumentConfig{Type: graphql.DateTime},
					"limitedToOpenSourceCollectives": &graphql.ArgumentConfig{Type: graphql.Boolean},
					"limitedToHostCollectiveIds":     &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.Int))},
					"limitedToCollectiveIds":         &graphql.ArgumentConfig{Type: graphql.NewList(graphql.NewNonNull(graphql.Int))},
					"description":                    &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: s.resolveCreateGiftCards,
			},
			"createUser": &graphql.Field{
				Type: createUserResultType,
				Args: graphql.FieldConfigArgument{
					"user":           &graphql.ArgumentConfig{Type: graphql.NewNonNull(userCreateInput)},
					"organization":   &graphql.ArgumentConfig{Type: organizationCreateInput},
					"throwIfExists":  &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
					"sendSignInLink": &graphql.ArgumentConfig{Type: graphql.Boolean, DefaultValue: false},
				},
				Resolve: s.resolveCreateUser,
			},
			"editCoreContributors": &graphql.Field{
				Type: graphql.NewNonNull(s.accountType),
				Args: graphql.FieldConfigArgument{
					"account": &graphql.ArgumentConfig{Type: graphql.NewNonNull(accountReferenceInput)},
					"members": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(coreContributorInput)))},
				},
				Resolve: s.resolveEditCoreContributors,
			},
		},
	})

	schema, err := graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
		Types:    []graphql.Type{s.individualType, s.organizationType, s.collectiveType, s.hostType},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create v2 schema: %w", err)
	}
	s.schema = schema
	return s, nil
}

// GetSchema returns the GraphQL schema
func (s *Schema) GetSchema() graphql.Schema {
	return s.schema
}
