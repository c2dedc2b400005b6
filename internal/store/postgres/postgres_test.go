package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
	"github.com/opencollective/opencollective-api-sub009/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock, db
}

var collectiveCols = []string{
	"id", "slug", "name", "legalName", "type", "description", "website", "githubHandle", "currency",
	"isIncognito", "isHostAccount", "isActive", "HostCollectiveId", "ParentCollectiveId",
	"CreatedByUserId", "location", "settings", "createdAt",
}

func TestGetCollectivesByIDs(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("scans nullable and json columns", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		rows := sqlmock.NewRows(collectiveCols).
			AddRow(20, "babel", "Babel", nil, "COLLECTIVE", "compiler", nil, "babel", "USD",
				false, false, true, 11004, nil,
				nil, nil, []byte(`{"requireTwoFactorForAdmins":true}`), now).
			AddRow(30, "acme", "Acme", "Acme Corporation", "ORGANIZATION", nil, "https://acme.test", nil, "USD",
				false, false, true, nil, nil,
				101, []byte(`{"country":"US","address":"1 Road"}`), nil, now)

		mock.ExpectQuery(`SELECT .+ FROM "Collectives"\s+WHERE id = ANY\(\$1\) AND "deletedAt" IS NULL`).
			WithArgs(pq.Array([]int64{20, 30})).
			WillReturnRows(rows)

		cols, err := s.GetCollectivesByIDs(ctx, []int64{20, 30})
		require.NoError(t, err)
		require.Len(t, cols, 2)

		babel := cols[0]
		assert.Equal(t, "babel", babel.GithubHandle)
		assert.Empty(t, babel.LegalName)
		require.NotNil(t, babel.HostCollectiveID)
		assert.Equal(t, int64(11004), *babel.HostCollectiveID)
		assert.Nil(t, babel.Location)
		assert.True(t, babel.Settings.RequireTwoFactorForAdmins)

		acme := cols[1]
		assert.Equal(t, "Acme Corporation", acme.LegalName)
		assert.Equal(t, models.CollectiveTypeOrganization, acme.Type)
		require.NotNil(t, acme.Location)
		assert.Equal(t, "US", acme.Location.Country)
		require.NotNil(t, acme.CreatedByUserID)
		assert.Equal(t, int64(101), *acme.CreatedByUserID)

		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		mock.ExpectQuery(`FROM "Collectives"`).
			WithArgs(pq.Array([]int64{1})).
			WillReturnError(errors.New("connection reset"))

		_, err := s.GetCollectivesByIDs(ctx, []int64{1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list collectives")
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetCollectiveBySlug(t *testing.T) {
	ctx := context.Background()

	t.Run("not found", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		mock.ExpectQuery(`FROM "Collectives"\s+WHERE slug = \$1`).
			WithArgs("babel").
			WillReturnRows(sqlmock.NewRows(collectiveCols))

		_, err := s.GetCollectiveBySlug(ctx, "Babel")
		assert.True(t, store.IsNotFound(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetUserByEmail(t *testing.T) {
	ctx := context.Background()
	s, mock, _ := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "email", "CollectiveId", "twoFactor", "createdAt", "lastLoginAt"}).
		AddRow(101, "alice@example.com", 11006, true, now, nil)
	mock.ExpectQuery(`FROM "Users"\s+WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(rows)

	u, err := s.GetUserByEmail(ctx, "Alice@Example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(101), u.ID)
	assert.Equal(t, int64(11006), u.CollectiveID)
	assert.True(t, u.TwoFactorEnabled)
	assert.Nil(t, u.LastLoginAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListMembers(t *testing.T) {
	ctx := context.Background()
	s, mock, _ := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "CollectiveId", "MemberCollectiveId", "role", "description", "createdAt"}).
		AddRow(1, 20, 11006, "ADMIN", "Maintainer", now).
		AddRow(2, 20, 11004, "HOST", nil, now)
	mock.ExpectQuery(`FROM "Members"\s+WHERE "CollectiveId" = ANY\(\$1\)`).
		WithArgs(pq.Array([]int64{20})).
		WillReturnRows(rows)

	members, err := s.ListMembers(ctx, []int64{20})
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, models.MemberRoleAdmin, members[0].Role)
	assert.Equal(t, "Maintainer", members[0].Description)
	assert.Empty(t, members[1].Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListPaymentMethods(t *testing.T) {
	ctx := context.Background()
	s, mock, _ := newMockStore(t)
	now := time.Now()

	cols := []string{
		"id", "uuid", "name", "description", "service", "type", "CollectiveId", "CreatedByUserId",
		"SourcePaymentMethodId", "token", "currency", "initialBalance", "balance",
		"limitedToHostCollectiveIds", "limitedToCollectiveIds", "emailSentTo", "data",
		"expiryDate", "archivedAt", "createdAt",
	}
	rows := sqlmock.NewRows(cols).
		AddRow(7, "uuid-7", "Gift", nil, "opencollective", "giftcard", 30, 101,
			5, "ABCD1234", "USD", 5000, 5000,
			[]byte("{11004}"), nil, "carol@example.com", []byte(`{"batch":"spring"}`),
			now.Add(24*time.Hour), nil, now)

	mock.ExpectQuery(`FROM "PaymentMethods"\s+WHERE "CollectiveId" = \$1`).
		WithArgs(int64(30), false, pq.Array([]string{"giftcard"})).
		WillReturnRows(rows)

	pms, err := s.ListPaymentMethods(ctx, 30, store.PaymentMethodFilter{Types: []models.PaymentMethodType{models.PaymentMethodTypeGiftCard}})
	require.NoError(t, err)
	require.Len(t, pms, 1)

	pm := pms[0]
	assert.Equal(t, models.PaymentMethodTypeGiftCard, pm.Type)
	assert.Equal(t, "ABCD1234", pm.Token)
	assert.Equal(t, []int64{11004}, pm.LimitedToHostCollectiveIDs)
	assert.Empty(t, pm.LimitedToCollectiveIDs)
	assert.Equal(t, "spring", pm.Data["batch"])
	require.NotNil(t, pm.SourcePaymentMethodID)
	assert.Equal(t, int64(5), *pm.SourcePaymentMethodID)
	assert.NotNil(t, pm.ExpiryDate)
	assert.Nil(t, pm.ArchivedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("inserts profile then user in one transaction", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "Collectives"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(2000, now))
		mock.ExpectQuery(`INSERT INTO "Users"`).
			WithArgs("new@example.com", int64(2000)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(500, now))
		mock.ExpectExec(`UPDATE "Collectives" SET "CreatedByUserId" = \$1 WHERE id = \$2`).
			WithArgs(int64(500), int64(2000)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		user := &models.User{Email: "New@example.com"}
		profile := &models.Collective{Slug: "new", Name: "New", Type: models.CollectiveTypeUser, Currency: "USD"}
		require.NoError(t, s.CreateUser(ctx, user, profile, nil))

		assert.Equal(t, int64(500), user.ID)
		assert.Equal(t, int64(2000), user.CollectiveID)
		require.NotNil(t, profile.CreatedByUserID)
		assert.Equal(t, int64(500), *profile.CreatedByUserID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("adds the organization and its admin in the same transaction", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "Collectives"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(2002, now))
		mock.ExpectQuery(`INSERT INTO "Users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(502, now))
		mock.ExpectExec(`UPDATE "Collectives" SET "CreatedByUserId"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO "Collectives"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(3000, now))
		mock.ExpectQuery(`INSERT INTO "Members"`).
			WithArgs(int64(3000), int64(2002), models.MemberRoleAdmin, "", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(1, now))
		mock.ExpectCommit()

		user := &models.User{Email: "founder@example.com"}
		profile := &models.Collective{Slug: "founder", Type: models.CollectiveTypeUser}
		org := &models.Collective{Slug: "neworg", Name: "New Org", Type: models.CollectiveTypeOrganization}
		require.NoError(t, s.CreateUser(ctx, user, profile, org))

		assert.Equal(t, int64(3000), org.ID)
		require.NotNil(t, org.CreatedByUserID)
		assert.Equal(t, int64(502), *org.CreatedByUserID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("a taken organization slug rolls the user back", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "Collectives"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(2003, now))
		mock.ExpectQuery(`INSERT INTO "Users"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(503, now))
		mock.ExpectExec(`UPDATE "Collectives" SET "CreatedByUserId"`).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`INSERT INTO "Collectives"`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "Collectives_slug_key"})
		mock.ExpectRollback()

		org := &models.Collective{Slug: "babel", Name: "X", Type: models.CollectiveTypeOrganization}
		err := s.CreateUser(ctx, &models.User{Email: "orphan@x.com"}, &models.Collective{Slug: "orphan", Type: models.CollectiveTypeUser}, org)
		require.Error(t, err)
		assert.True(t, store.IsSlugTaken(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when the user insert fails", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "Collectives"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(2001, now))
		mock.ExpectQuery(`INSERT INTO "Users"`).
			WillReturnError(errors.New("connection reset"))
		mock.ExpectRollback()

		err := s.CreateUser(ctx, &models.User{Email: "dup@example.com"}, &models.Collective{Slug: "dup", Type: models.CollectiveTypeUser}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert user")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps a duplicate email", func(t *testing.T) {
		s, mock, _ := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`INSERT INTO "Collectives"`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(2004, now))
		mock.ExpectQuery(`INSERT INTO "Users"`).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "Users_email_key"})
		mock.ExpectRollback()

		err := s.CreateUser(ctx, &models.User{Email: "alice@example.com"}, &models.Collective{Slug: "alice-2", Type: models.CollectiveTypeUser}, nil)
		assert.True(t, store.IsEmailTaken(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreatePaymentMethodsIsAtomic(t *testing.T) {
	ctx := context.Background()
	s, mock, _ := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "PaymentMethods"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(70, now))
	mock.ExpectQuery(`INSERT INTO "PaymentMethods"`).
		WillReturnError(errors.New("duplicate uuid"))
	mock.ExpectRollback()

	pms := []*models.PaymentMethod{
		{UUID: "a", Service: "opencollective", Type: models.PaymentMethodTypeGiftCard, CollectiveID: 30},
		{UUID: "a", Service: "opencollective", Type: models.PaymentMethodTypeGiftCard, CollectiveID: 30},
	}
	err := s.CreatePaymentMethods(ctx, pms)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceCoreContributors(t *testing.T) {
	ctx := context.Background()
	s, mock, _ := newMockStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "Members" SET "deletedAt" = NOW\(\)`).
		WithArgs(int64(20), pq.Array([]string{"ADMIN", "MEMBER"})).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "Members"`).
		WithArgs(int64(20), int64(11007), models.MemberRoleAdmin, "", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "createdAt"}).AddRow(9, now))
	mock.ExpectCommit()

	members := []*models.Member{{MemberCollectiveID: 11007, Role: models.MemberRoleAdmin}}
	require.NoError(t, s.ReplaceCoreContributors(ctx, 20, members))
	assert.Equal(t, int64(9), members[0].ID)
	assert.Equal(t, int64(20), members[0].CollectiveID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	require.NoError(t, New(db).Ping(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}
