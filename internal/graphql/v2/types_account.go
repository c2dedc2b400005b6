package v2

import (
	"github.com/graphql-go/graphql"

	"github.com/opencollective/opencollective-api-sub009/internal/apierrors"
	"github.com/opencollective/opencollective-api-sub009/internal/graphql/common"
	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/mutations"
	"github.com/opencollective/opencollective-api-sub009/internal/permissions"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

// accountFieldTypes are the types the shared Account fields point to
type accountFieldTypes struct {
	accountType   *graphql.Enum
	location      *graphql.Object
	member        *graphql.Object
	memberRole    *graphql.Enum
	paymentMethod *graphql.Object
	payoutMethod  *graphql.Object
	notification  *graphql.Object
	capability    *graphql.Enum
}

// ============================================================================
// Enums
// ============================================================================

func (s *Schema) defineAccountTypeEnum() *graphql.Enum {
	return graphql.NewEnum(graphql.EnumConfig{
		Name: "AccountType",
		Values: graphql.EnumValueConfigMap{
			"INDIVIDUAL":   &graphql.EnumValueConfig{Value: models.CollectiveTypeUser},
			"ORGANIZATION": &graphql.EnumValueConfig{Value: models.CollectiveTypeOrganization},
			"COLLECTIVE":   &graphql.EnumValueConfig{Value: models.CollectiveTypeCollective},
			"FUND":         &graphql.EnumValueConfig{Value: models.CollectiveTypeFund},
			"PROJECT":      &graphql.EnumValueConfig{Value: models.CollectiveTypeProject},
			"EVENT":        &graphql.EnumValueConfig{Value: models.CollectiveTypeEvent},
		},
	})
}

func (s *Schema) defineMemberRoleEnum() *graphql.Enum {
	return graphql.NewEnum(graphql.EnumConfig{
		Name: "MemberRole",
		Values: graphql.EnumValueConfigMap{
			"ADMIN":       &graphql.EnumValueConfig{Value: models.MemberRoleAdmin},
			"MEMBER":      &graphql.EnumValueConfig{Value: models.MemberRoleMember},
			"HOST":        &graphql.EnumValueConfig{Value: models.MemberRoleHost},
			"BACKER":      &graphql.EnumValueConfig{Value: models.MemberRoleBacker},
			"FOLLOWER":    &graphql.EnumValueConfig{Value: models.MemberRoleFollower},
			"CONTRIBUTOR": &graphql.EnumValueConfig{Value: models.MemberRoleContributor},
			"ACCOUNTANT":  &graphql.EnumValueConfig{Value: models.MemberRoleAccountant},
		},
	})
}

func (s *Schema) defineCapabilityEnum() *graphql.Enum {
	return graphql.NewEnum(graphql.EnumConfig{
		Name: "Capability",
		Values: graphql.EnumValueConfigMap{
			"SUPPORTED":   &graphql.EnumValueConfig{Value: mutations.CapabilitySupported},
			"UNSUPPORTED": &graphql.EnumValueConfig{Value: mutations.CapabilityUnsupported},
		},
	})
}

// ============================================================================
// Account interface and its implementations
// ============================================================================

func (s *Schema) defineLocationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"name":    &graphql.Field{Type: graphql.String},
			"address": &graphql.Field{Type: graphql.String},
			"country": &graphql.Field{Type: graphql.String},
		},
	})
}

// defineAccountInterface declares Account. Its fields are read from s.fieldTypes
// when the schema is built, once the types they reference exist.
func (s *Schema) defineAccountInterface() *graphql.Interface {
	return graphql.NewInterface(graphql.InterfaceConfig{
		Name:        "Account",
		Description: "An account on the platform: individual, organization, collective or host",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return s.accountFields(s.fieldTypes, nil)
		}),
		ResolveType: func(p graphql.ResolveTypeParams) *graphql.Object {
			account, ok := p.Value.(*models.Collective)
			if !ok {
				return nil
			}
			switch {
			case account.IsHostAccount:
				return s.hostType
			case account.Type == models.CollectiveTypeUser:
				return s.individualType
			case account.Type == models.CollectiveTypeOrganization:
				return s.organizationType
			default:
				return s.collectiveType
			}
		},
	})
}

// accountFields returns a fresh copy of the fields every Account implementation shares,
// plus extra
func (s *Schema) accountFields(t accountFieldTypes, extra graphql.Fields) graphql.Fields {
	fields := graphql.Fields{
		"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
		"slug":        &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
		"name":        &graphql.Field{Type: graphql.String},
		"type":        &graphql.Field{Type: graphql.NewNonNull(t.accountType)},
		"isIncognito": &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		"isHost": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Boolean),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return p.Source.(*models.Collective).IsHostAccount, nil
			},
		},
		"description": &graphql.Field{Type: graphql.String},
		"website":     &graphql.Field{Type: graphql.String},
		"currency":    &graphql.Field{Type: graphql.String},
		"createdAt":   &graphql.Field{Type: graphql.DateTime},
		"legalName": &graphql.Field{
			Type:        graphql.String,
			Description: "Private, legal name. Visible to admins, host admins and granted viewers.",
			Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeAccount,
				common.Predicate(permissions.CanSeeAccountLegalName),
				s.resolveLegalName),
		},
		"location": &graphql.Field{
			Type: t.location,
			Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeAccount,
				common.Predicate(permissions.CanSeeAccountLocation),
				s.resolveLocation),
		},
		"members": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(t.member))),
			Args: graphql.FieldConfigArgument{
				"role": &graphql.ArgumentConfig{Type: t.memberRole},
			},
			Resolve: s.resolveMembers,
		},
		"paymentMethods": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(t.paymentMethod)),
			Resolve: s.guard.Field(permissions.ClassCollection, permissions.ScopeOrders,
				common.Predicate(permissions.CanSeePaymentMethods),
				s.resolvePaymentMethods),
		},
		"payoutMethods": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(t.payoutMethod)),
			Resolve: s.guard.Field(permissions.ClassCollection, permissions.ScopeExpenses,
				common.Predicate(permissions.CanSeePayoutMethods),
				s.resolvePayoutMethods),
		},
		"emails": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(graphql.String)),
			Resolve: s.guard.Field(permissions.ClassCollection, permissions.ScopeEmail,
				common.Predicate(permissions.CanSeeAccountPrivateInfo),
				s.resolveEmails),
		},
		"notifications": &graphql.Field{
			Type: graphql.NewNonNull(graphql.NewList(t.notification)),
			Resolve: s.guard.Field(permissions.ClassCollection, permissions.ScopeWebhooks,
				common.Predicate(permissions.CanSeeNotifications),
				s.resolveNotifications),
		},
		"canEmitGiftCards": &graphql.Field{
			Type:        t.capability,
			Description: "Whether the account has a funding source for gift cards. Admins only.",
			Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeVirtualCards,
				common.Predicate(permissions.CanSeePaymentMethods),
				s.resolveCanEmitGiftCards),
		},
	}
	for name, field := range extra {
		fields[name] = field
	}
	return fields
}

func (s *Schema) defineIndividualType(t accountFieldTypes) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name:       "Individual",
		Interfaces: []*graphql.Interface{s.accountType},
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return s.accountFields(t, graphql.Fields{
				"email": &graphql.Field{
					Type: graphql.String,
					Resolve: s.guard.Field(permissions.ClassSecret, permissions.ScopeEmail,
						common.Predicate(permissions.CanSeeAccountPrivateInfo),
						s.resolveIndividualEmail),
				},
			})
		}),
	})
}

func (s *Schema) defineOrganizationType(t accountFieldTypes) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name:       "Organization",
		Interfaces: []*graphql.Interface{s.accountType},
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return s.accountFields(t, nil)
		}),
	})
}

func (s *Schema) defineCollectiveType(t accountFieldTypes) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name:       "Collective",
		Interfaces: []*graphql.Interface{s.accountType},
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return s.accountFields(t, graphql.Fields{
				"host": &graphql.Field{
					Type: s.accountType,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						account := p.Source.(*models.Collective)
						return common.LoadOptional(p, common.RC(p).Loaders().Collective.ByID, account.HostCollectiveID)
					},
				},
				"parent": &graphql.Field{
					Type: s.accountType,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						account := p.Source.(*models.Collective)
						return common.LoadOptional(p, common.RC(p).Loaders().Collective.ByID, account.ParentCollectiveID)
					},
				},
			})
		}),
	})
}

func (s *Schema) defineHostType(t accountFieldTypes) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name:       "Host",
		Interfaces: []*graphql.Interface{s.accountType},
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return s.accountFields(t, nil)
		}),
	})
}

func (s *Schema) defineMemberType(roleEnum *graphql.Enum) *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Member",
		Fields: graphql.FieldsThunk(func() graphql.Fields {
			return graphql.Fields{
				"id":          &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
				"role":        &graphql.Field{Type: graphql.NewNonNull(roleEnum)},
				"description": &graphql.Field{Type: graphql.String},
				"since": &graphql.Field{
					Type: graphql.DateTime,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						return p.Source.(*models.Member).CreatedAt, nil
					},
				},
				"account": &graphql.Field{
					Type: s.accountType,
					Resolve: func(p graphql.ResolveParams) (interface{}, error) {
						m := p.Source.(*models.Member)
						return common.Load(p, common.RC(p).Loaders().Collective.ByID, m.MemberCollectiveID)
					},
				},
			}
		}),
	})
}

func (s *Schema) defineNotificationType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Notification",
		Fields: graphql.Fields{
			"id":         &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"channel":    &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"type":       &graphql.Field{Type: graphql.NewNonNull(graphql.String)},
			"webhookUrl": &graphql.Field{Type: graphql.String},
			"active":     &graphql.Field{Type: graphql.NewNonNull(graphql.Boolean)},
		},
	})
}

// ============================================================================
// Account resolvers
// ============================================================================

func (s *Schema) resolveLegalName(p graphql.ResolveParams) (interface{}, error) {
	account := p.Source.(*models.Collective)
	if account.LegalName == "" {
		return nil, nil
	}
	return account.LegalName, nil
}

func (s *Schema) resolveLocation(p graphql.ResolveParams) (interface{}, error) {
	return p.Source.(*models.Collective).Location, nil
}

func (s *Schema) resolveMembers(p graphql.ResolveParams) (interface{}, error) {
	account, ok := p.Source.(*models.Collective)
	if !ok {
		return []*models.Member{}, nil
	}
	role, _ := p.Args["role"].(models.MemberRole)
	return common.VisibleMembers(p.Context, common.RC(p), account, role)
}

func (s *Schema) resolvePaymentMethods(p graphql.ResolveParams) (interface{}, error) {
	account := p.Source.(*models.Collective)
	pms, err := s.store.ListPaymentMethods(p.Context, account.ID, store.PaymentMethodFilter{})
	if err != nil {
		return nil, err
	}
	if pms == nil {
		pms = []*models.PaymentMethod{}
	}
	return pms, nil
}

func (s *Schema) resolvePayoutMethods(p graphql.ResolveParams) (interface{}, error) {
	account := p.Source.(*models.Collective)
	pms, err := s.store.ListPayoutMethods(p.Context, account.ID)
	if err != nil {
		return nil, err
	}
	saved := make([]*models.PayoutMethod, 0, len(pms))
	for _, pm := range pms {
		if pm.IsSaved {
			saved = append(saved, pm)
		}
	}
	return saved, nil
}

// resolveEmails returns the individual's email, or the emails of the account's admins
func (s *Schema) resolveEmails(p graphql.ResolveParams) (interface{}, error) {
	account := p.Source.(*models.Collective)
	rc := common.RC(p)

	profileIDs := []int64{account.ID}
	if !account.IsIndividual() {
		members, err := rc.Loaders().Member.ByCollectiveID.Load(p.Context, account.ID)
		if err != nil {
			return nil, err
		}
		profileIDs = profileIDs[:0]
		for _, m := range members {
			if m.Role == models.MemberRoleAdmin {
				profileIDs = append(profileIDs, m.MemberCollectiveID)
			}
		}
	}

	users, errs := rc.Loaders().User.ByCollectiveID.LoadMany(p.Context, profileIDs)
	emails := make([]string, 0, len(users))
	for i, user := range users {
		if errs[i] != nil {
			return nil, errs[i]
		}
		if user != nil {
			emails = append(emails, user.Email)
		}
	}
	return emails, nil
}

func (s *Schema) resolveNotifications(p graphql.ResolveParams) (interface{}, error) {
	account := p.Source.(*models.Collective)
	notifications, err := s.store.ListNotifications(p.Context, account.ID)
	if err != nil {
		return nil, err
	}
	if notifications == nil {
		notifications = []*models.Notification{}
	}
	return notifications, nil
}

func (s *Schema) resolveCanEmitGiftCards(p graphql.ResolveParams) (interface{}, error) {
	capability, _, err := s.mutations.CheckCanEmitGiftCards(p.Context, p.Source.(*models.Collective))
	if err != nil {
		return nil, err
	}
	return capability, nil
}

func (s *Schema) resolveIndividualEmail(p graphql.ResolveParams) (interface{}, error) {
	account := p.Source.(*models.Collective)
	user, err := common.RC(p).Loaders().User.ByCollectiveID.Load(p.Context, account.ID)
	if err != nil || user == nil {
		return nil, err
	}
	return user.Email, nil
}

// ============================================================================
// Account queries
// ============================================================================

func (s *Schema) resolveMe(p graphql.ResolveParams) (interface{}, error) {
	actor := common.RC(p).Actor()
	if !actor.IsAuthenticated() {
		return nil, nil
	}
	if actor.Profile != nil {
		return actor.Profile, nil
	}
	return common.Load(p, common.RC(p).Loaders().Collective.ByID, actor.User.CollectiveID)
}

// findAccount looks an account up by id or slug. It returns nil when nothing matches.
func (s *Schema) findAccount(p graphql.ResolveParams) (*models.Collective, error) {
	if id, ok := common.IDArg(p.Args, "id"); ok {
		return common.RC(p).Loaders().Collective.ByID.Load(p.Context, id)
	}
	slug := common.StringArg(p.Args, "slug")
	if slug == "" {
		return nil, apierrors.Validation("Please provide an id or a slug")
	}
	account, err := s.store.GetCollectiveBySlug(p.Context, slug)
	if store.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	common.RC(p).Loaders().Collective.ByID.Prime(account.ID, account)
	return account, nil
}

func (s *Schema) resolveAccount(p graphql.ResolveParams) (interface{}, error) {
	account, err := s.findAccount(p)
	if err != nil {
		return nil, err
	}
	if account == nil {
		if throw, _ := p.Args["throwIfMissing"].(bool); throw {
			return nil, apierrors.NotFound("Account Not Found")
		}
		return nil, nil
	}
	return account, nil
}

func (s *Schema) resolveIndividual(p graphql.ResolveParams) (interface{}, error) {
	account, err := s.findAccount(p)
	if err != nil {
		return nil, err
	}
	if account == nil || !account.IsIndividual() {
		return nil, nil
	}
	return account, nil
}
