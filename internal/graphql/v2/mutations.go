package v2

import (
	"time"

	"github.com/graphql-go/graphql"

	"github.com/opencollective/opencollective-api-sub009/internal/graphql/common"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/mutations"
)

// ============================================================================
// Input types
// ============================================================================

func (s *Schema) defineAccountReferenceInput() *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "AccountReferenceInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"id":   &graphql.InputObjectFieldConfig{Type: graphql.Int},
			"slug": &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})
}

func (s *Schema) defineUserCreateInput() *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "UserCreateInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"email":     &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"name":      &graphql.InputObjectFieldConfig{Type: graphql.String},
			"legalName": &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})
}

func (s *Schema) defineOrganizationCreateInput() *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "OrganizationCreateInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"name":        &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"slug":        &graphql.InputObjectFieldConfig{Type: graphql.String},
			"legalName":   &graphql.InputObjectFieldConfig{Type: graphql.String},
			"website":     &graphql.InputObjectFieldConfig{Type: graphql.String},
			"description": &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})
}

func (s *Schema) defineCoreContributorInput(accountRef *graphql.InputObject, roleEnum *graphql.Enum) *graphql.InputObject {
	return graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "CoreContributorInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"memberAccount": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(accountRef)},
			"role":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(roleEnum)},
			"description":   &graphql.InputObjectFieldConfig{Type: graphql.String},
		},
	})
}

// ============================================================================
// Argument decoding
// ============================================================================

func accountRefArg(v interface{}) mutations.AccountRef {
	m, _ := v.(map[string]interface{})
	id, _ := common.IDArg(m, "id")
	return mutations.AccountRef{ID: id, Slug: common.StringArg(m, "slug")}
}

func stringList(v interface{}) []string {
	items, _ := v.([]interface{})
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func idList(v interface{}) []int64 {
	items, _ := v.([]interface{})
	out := make([]int64, 0, len(items))
	for _, item := range items {
		if id, ok := common.IDArg(map[string]interface{}{"id": item}, "id"); ok {
			out = append(out, id)
		}
	}
	return out
}

// ============================================================================
// Mutation resolvers
// ============================================================================

func (s *Schema) resolveCreateGiftCards(p graphql.ResolveParams) (interface{}, error) {
	in := mutations.GiftCardsInput{
		Account:                    accountRefArg(p.Args["account"]),
		Emails:                     stringList(p.Args["emails"]),
		Currency:                   common.StringArg(p.Args, "currency"),
		LimitedToHostCollectiveIDs: idList(p.Args["limitedToHostCollectiveIds"]),
		LimitedToCollectiveIDs:     idList(p.Args["limitedToCollectiveIds"]),
		Description:                common.StringArg(p.Args, "description"),
	}
	if amount, ok := p.Args["amount"].(int); ok {
		in.Amount = int64(amount)
	}
	if n, ok := p.Args["numberOfGiftCards"].(int); ok {
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
			Slug:        common.StringArg(org, "slug"),
			LegalName:   common.StringArg(org, "legalName"),
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

func (s *Schema) resolveEditCoreContributors(p graphql.ResolveParams) (interface{}, error) {
	in := mutations.EditCoreContributorsInput{Account: accountRefArg(p.Args["account"])}
	items, _ := p.Args["members"].([]interface{})
	for _, item := range items {
		m, _ := item.(map[string]interface{})
		role, _ := m["role"].(models.MemberRole)
		in.Members = append(in.Members, mutations.CoreContributorInput{
			MemberAccount: accountRefArg(m["memberAccount"]),
			Role:          role,
			Description:   common.StringArg(m, "description"),
		})
	}

	account, err := s.mutations.EditCoreContributors(p.Context, common.RC(p), in)
	if err != nil {
		return nil, err
	}
	return account, nil
}
