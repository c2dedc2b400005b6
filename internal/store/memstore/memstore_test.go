package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

func TestSeedIsConsistent(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := Seed(s)

	members, err := s.ListMembers(ctx, []int64{f.Babel.ID})
	require.NoError(t, err)
	assert.Len(t, members, 4)

	memberships, err := s.ListMembershipsOf(ctx, []int64{f.Alice.CollectiveID})
	require.NoError(t, err)
	assert.Len(t, memberships, 2)

	users, err := s.GetUsersByCollectiveIDs(ctx, []int64{f.Carol.CollectiveID})
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, f.Carol.ID, users[0].ID)
}

func TestBatchedReadsDedupeAndSkipMissing(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := Seed(s)

	cols, err := s.GetCollectivesByIDs(ctx, []int64{f.Babel.ID, 999999, f.Babel.ID})
	require.NoError(t, err)
	require.Len(t, cols, 1)
	assert.Equal(t, "babel", cols[0].Slug)
	assert.Equal(t, 1, s.CallCount("GetCollectivesByIDs"))
}

func TestSingleLookups(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := Seed(s)

	c, err := s.GetCollectiveBySlug(ctx, "BABEL")
	require.NoError(t, err)
	assert.Equal(t, f.Babel.ID, c.ID)

	u, err := s.GetUserByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, f.Alice.ID, u.ID)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.True(t, store.IsNotFound(err))

	_, err = s.GetApplicationByClientID(ctx, "missing")
	assert.True(t, store.IsNotFound(err))
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := Seed(s)

	t.Run("links user and profile", func(t *testing.T) {
		user := &models.User{Email: "new@example.com"}
		profile := &models.Collective{Slug: "new-user", Name: "New", Type: models.CollectiveTypeUser}
		require.NoError(t, s.CreateUser(ctx, user, profile, nil))

		assert.NotZero(t, user.ID)
		assert.Equal(t, profile.ID, user.CollectiveID)
		require.NotNil(t, profile.CreatedByUserID)
		assert.Equal(t, user.ID, *profile.CreatedByUserID)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		err := s.CreateUser(ctx, &models.User{Email: "ALICE@example.com"}, &models.Collective{Type: models.CollectiveTypeUser}, nil)
		assert.True(t, store.IsEmailTaken(err))
	})

	t.Run("makes the profile admin of the organization", func(t *testing.T) {
		user := &models.User{Email: "globex@example.com"}
		profile := &models.Collective{Slug: "hank", Type: models.CollectiveTypeUser}
		org := &models.Collective{Slug: "globex", Name: "Globex", Type: models.CollectiveTypeOrganization}
		require.NoError(t, s.CreateUser(ctx, user, profile, org))

		members, err := s.ListMembers(ctx, []int64{org.ID})
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, models.MemberRoleAdmin, members[0].Role)
		assert.Equal(t, profile.ID, members[0].MemberCollectiveID)
		require.NotNil(t, org.CreatedByUserID)
		assert.Equal(t, user.ID, *org.CreatedByUserID)
	})

	t.Run("a taken organization slug writes nothing", func(t *testing.T) {
		org := &models.Collective{Slug: f.Babel.Slug, Name: "X", Type: models.CollectiveTypeOrganization}
		err := s.CreateUser(ctx, &models.User{Email: "orphan@x.com"}, &models.Collective{Slug: "orphan", Type: models.CollectiveTypeUser}, org)
		assert.True(t, store.IsSlugTaken(err))

		_, err = s.GetUserByEmail(ctx, "orphan@x.com")
		assert.True(t, store.IsNotFound(err))
		_, err = s.GetCollectiveBySlug(ctx, "orphan")
		assert.True(t, store.IsNotFound(err))
	})
}

func TestCreatePaymentMethodsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := Seed(s)

	before, err := s.ListPaymentMethods(ctx, f.Acme.ID, store.PaymentMethodFilter{IncludeArchived: true})
	require.NoError(t, err)

	err = s.CreatePaymentMethods(ctx, []*models.PaymentMethod{
		{UUID: "fresh-1", Type: models.PaymentMethodTypeGiftCard, CollectiveID: f.Acme.ID},
		{UUID: f.AcmeCard.UUID, Type: models.PaymentMethodTypeGiftCard, CollectiveID: f.Acme.ID},
	})
	require.Error(t, err)

	after, err := s.ListPaymentMethods(ctx, f.Acme.ID, store.PaymentMethodFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestListPaymentMethodsFilter(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := Seed(s)

	archivedAt := time.Now()
	s.PutPaymentMethod(&models.PaymentMethod{
		UUID: "archived", Type: models.PaymentMethodTypeCreditCard, CollectiveID: f.Acme.ID, ArchivedAt: &archivedAt,
	})

	cards, err := s.ListPaymentMethods(ctx, f.Acme.ID, store.PaymentMethodFilter{
		Types: []models.PaymentMethodType{models.PaymentMethodTypeCreditCard},
	})
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, f.AcmeCard.ID, cards[0].ID)

	all, err := s.ListPaymentMethods(ctx, f.Acme.ID, store.PaymentMethodFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestReplaceCoreContributorsKeepsOtherRoles(t *testing.T) {
	ctx := context.Background()
	s := New()
	f := Seed(s)

	err := s.ReplaceCoreContributors(ctx, f.Babel.ID, []*models.Member{
		{MemberCollectiveID: f.Bob.CollectiveID, Role: models.MemberRoleAdmin},
		{MemberCollectiveID: f.Carol.CollectiveID, Role: models.MemberRoleMember},
	})
	require.NoError(t, err)

	members, err := s.ListMembers(ctx, []int64{f.Babel.ID})
	require.NoError(t, err)

	roles := map[models.MemberRole][]int64{}
	for _, m := range members {
		roles[m.Role] = append(roles[m.Role], m.MemberCollectiveID)
	}
	assert.Equal(t, []int64{f.Bob.CollectiveID}, roles[models.MemberRoleAdmin])
	assert.Equal(t, []int64{f.Carol.CollectiveID}, roles[models.MemberRoleMember])
	assert.Len(t, roles[models.MemberRoleHost], 1)
	assert.Len(t, roles[models.MemberRoleBacker], 2)
}
