package v1

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/opencollective/opencollective-api-sub009/internal/graphql/common"
	"github.com/opencollective/opencollective-api-sub009/internal/mutations"
)

func (s *Schema) defineCreateUserResultType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "CreateUserResult",
		Fields: graphql.Fields{
			"user": &graphql.Field{
				Type: s.userType,
				Resolve: on(func(p graphql.ResolveParams, r *mutations.CreateUserResult) (interface{}, error) {
					return r.User, nil
				}),
			},
			"organization": &graphql.Field{
				Type: s.collectiveType,
				Resolve: on(func(p graphql.ResolveParams, r *mutations.CreateUserResult) (interface{}, error) {
					return r.Organization, nil
				}),
			},
		},
	})
}

func (s *Schema) resolveCreateUser(p graphql.ResolveParams) (interface{}, error) {
	user, _ := p.Args["user"].(map[string]interface{})
	in := mutations.CreateUserInput{
		User: mutations.UserInput{
			Email:     common.StringArg(user, "email"),
			Name:      common.StringArg(user, "name"),
			LegalName: common.StringArg(user, "legalName"),
		},
	}
	in.ThrowIfExists, _ = p.Args["throwIfExists"].(bool)
	in.SendSignInLink, _ = p.Args["sendSignInLink"].(bool)
	if org, ok := p.Args["organization"].(map[string]interface{}); ok {
		in.Organization = &mutations.OrganizationInput{
			Name:        common.StringArg(org, "name"),
			Website:     common.StringArg(org, "website"),
			Description: common.StringArg(org, "description"),
		}
	}

	result, err := s.mutations.CreateUser(p.Context, common.RC(p), in)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// resolveCreateVirtualCards is the legacy name of createGiftCards
func (s *Schema) resolveCreateVirtualCards(p graphql.ResolveParams) (interface{}, error) {
	id, _ := common.IDArg(p.Args, "CollectiveId")
	in := mutations.GiftCardsInput{
		Account:     mutations.AccountRef{ID: id},
		Currency:    common.StringArg(p.Args, "currency"),
		Description: common.StringArg(p.Args, "description"),
	}
	if emails, ok := p.Args["emails"].([]interface{}); ok {
		for _, email := range emails {
			if e, ok := email.(string); ok {
				in.Emails = append(in.Emails, e)
			}
		}
	}
	for _, arg := range []struct {
		name string
		dst  *[]int64
	}{
		{"limitedToHostCollectiveIds", &in.LimitedToHostCollectiveIDs},
		{"limitedToCollectiveIds", &in.LimitedToCollectiveIDs},
	} {
		items, _ := p.Args[arg.name].([]interface{})
		for _, item := range items {
			if v, ok := item.(int); ok {
				*arg.dst = append(*arg.dst, int64(v))
			}
		}
	}
	if amount, ok := p.Args["amount"].(int); ok {
		in.Amount = int64(amount)
	}
	if n, ok := p.Args["numberOfVirtualCards"].(int); ok {
		in.NumberOfGiftCards = &n
	}
	if expiry, ok := p.Args["expiryDate"].(time.Time); ok {
		in.ExpiryDate = &expiry
	}
	in.LimitedToOpenSourceCollectives, _ = p.Args["limitedToOpenSourceCollectives"].(bool)

	cards, err := s.mutations.CreateGiftCards(p.Context, common.RC(p), in)
	if err != nil {
		return nil, err
	}
	return cards, nil
}
