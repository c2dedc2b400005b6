package v2

import (
	"github.com/graphql-go/graphql"

	"github.com/opencollective/opencollective-api-sub009/internal/graphql/common"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/mutations"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

func (s *Schema) defineApplicationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Application",
		Fields: graphql.Fields{
			"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"name":        &graphql.Field{Type: graphql.String},
			"clientId":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"callbackUrl": &graphql.Field{Type: graphql.String},
			"createdAt":   &graphql.Field{Type: graphql.DateTime},
			"account": &graphql.Field{
				Type: s.accountType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					app := p.Source.(*models.Application)
					return common.Load(p, common.RC(p).Loaders().Collective.ByID, app.CollectiveID)
				},
			},
			"clientSecret": &graphql.Field{
				Type: graphql.String,
				Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeApplications,
					common.Predicate(permissions.CanSeeApplicationSecrets),
					func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(*models.Application).ClientSecret, nil
					}),
			},
		},
	})
}

func (s *Schema) resolveApplication(p graphql.ResolveParams) (interface{}, error) {
	app, err := s.store.GetApplicationByClientID(p.Context, common.StringArg(p.Args, "clientId"))
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Schema) defineCreateUserResultType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "CreateUserResult",
		Fields: graphql.Fields{
			"user": &graphql.Field{
				Type: graphql.NewNonNull(s.individualType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*mutations.CreateUserResult).Profile, nil
				},
			},
			"organization": &graphql.Field{
				Type: s.organizationType,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return p.Source.(*mutations.CreateUserResult).Organization, nil
				},
			},
		},
	})
}
