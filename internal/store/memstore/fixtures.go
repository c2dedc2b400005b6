package memstore

import (
	"strings"
	"time"

	"github.com/opencollective/opencollective-api-sub009/internal/models"
)

// Fixtures references the demo world created by Seed
type Fixtures struct {
	Root             *models.Collective
	Host             *models.Collective
	Babel            *models.Collective
	Acme             *models.Collective
	IncognitoProfile *models.Collective

	RootAdmin *models.User
	Alice     *models.User // admin of Babel and Acme
	Bob       *models.User // admin of Host
	Carol     *models.User // backer of Babel, expense payee
	Dave      *models.User // owns IncognitoProfile

	CarolPayout  *models.PayoutMethod
	Expense      *models.Expense
	AcmeCard     *models.PaymentMethod
	SpentGift    *models.PaymentMethod
	DaveCard     *models.PaymentMethod
	Order        *models.Order
	Transaction  *models.Transaction
	Tier         *models.Tier
	Application  *models.Application
	Notification *models.Notification
}

func int64Ptr(v int64) *int64 { return &v }

// Seed fills s with a small, consistent demo world
func Seed(s *Store) *Fixtures {
	f := &Fixtures{}
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	f.Root = s.PutCollective(&models.Collective{
		ID: 1, Slug: "opencollective", Name: "Open Collective", Type: models.CollectiveTypeOrganization,
		Currency: "USD", IsActive: true, CreatedAt: created,
	})
	f.Host = s.PutCollective(&models.Collective{
		ID: 11004, Slug: "opensource", Name: "Open Source Collective", LegalName: "Open Source Collective 501(c)(6)",
		Type: models.CollectiveTypeOrganization, Currency: "USD", IsHostAccount: true, IsActive: true,
		Location: &models.Location{Name: "OSC", Address: "340 S Lemon Ave #3717, Walnut, CA 91789", Country: "US"},
		CreatedAt: created,
	})
	f.Babel = s.PutCollective(&models.Collective{
		ID: 20, Slug: "babel", Name: "Babel", Type: models.CollectiveTypeCollective, Currency: "USD",
		HostCollectiveID: int64Ptr(f.Host.ID), IsActive: true, GithubHandle: "babel",
		Website: "https://babeljs.io", Description: "The compiler for next generation JavaScript",
		CreatedAt: created,
	})
	f.Acme = s.PutCollective(&models.Collective{
		ID: 30, Slug: "acme", Name: "Acme", LegalName: "Acme Corporation", Type: models.CollectiveTypeOrganization,
		Currency: "USD", IsActive: true,
		Location: &models.Location{Address: "1 Road Runner Way", Country: "US"},
		CreatedAt: created,
	})

	f.RootAdmin = seedUser(s, 100, "root@opencollective.com", "Platform Admin", "", nil)
	f.Alice = seedUser(s, 101, "alice@example.com", "Alice", "Alice Liddell",
		&models.Location{Address: "12 rue des Lilas, Paris", Country: "FR"})
	f.Bob = seedUser(s, 102, "bob@example.com", "Bob", "Robert Host", nil)
	f.Carol = seedUser(s, 103, "carol@example.com", "Carol", "Carol Danvers",
		&models.Location{Address: "42 Main St, Portland", Country: "US"})
	f.Dave = seedUser(s, 104, "dave@example.com", "Dave", "David Hidden", nil)

	f.IncognitoProfile = s.PutCollective(&models.Collective{
		ID: 40, Slug: "incognito-7f3a", Name: "Incognito", Type: models.CollectiveTypeUser,
		IsIncognito: true, IsActive: true, Currency: "USD", CreatedByUserID: int64Ptr(f.Dave.ID),
		CreatedAt: created,
	})

	s.PutMember(&models.Member{CollectiveID: f.Root.ID, MemberCollectiveID: f.RootAdmin.CollectiveID, Role: models.MemberRoleAdmin, CreatedAt: created})
	s.PutMember(&models.Member{CollectiveID: f.Host.ID, MemberCollectiveID: f.Bob.CollectiveID, Role: models.MemberRoleAdmin, CreatedAt: created})
	s.PutMember(&models.Member{CollectiveID: f.Babel.ID, MemberCollectiveID: f.Alice.CollectiveID, Role: models.MemberRoleAdmin, Description: "Maintainer", CreatedAt: created})
	s.PutMember(&models.Member{CollectiveID: f.Babel.ID, MemberCollectiveID: f.Host.ID, Role: models.MemberRoleHost, CreatedAt: created})
	s.PutMember(&models.Member{CollectiveID: f.Babel.ID, MemberCollectiveID: f.Carol.CollectiveID, Role: models.MemberRoleBacker, CreatedAt: created})
	s.PutMember(&models.Member{CollectiveID: f.Babel.ID, MemberCollectiveID: f.IncognitoProfile.ID, Role: models.MemberRoleBacker, CreatedAt: created})
	s.PutMember(&models.Member{CollectiveID: f.Acme.ID, MemberCollectiveID: f.Alice.CollectiveID, Role: models.MemberRoleAdmin, CreatedAt: created})
	s.PutMember(&models.Member{CollectiveID: f.IncognitoProfile.ID, MemberCollectiveID: f.Dave.CollectiveID, Role: models.MemberRoleAdmin, CreatedAt: created})

	f.CarolPayout = s.PutPayoutMethod(&models.PayoutMethod{
		CollectiveID: f.Carol.CollectiveID, Type: models.PayoutMethodTypePaypal, Name: "Carol's PayPal",
		Data: map[string]interface{}{"email": "carol.paypal@example.com"}, IsSaved: true, CreatedAt: created,
	})
	f.Expense = s.PutExpense(&models.Expense{
		CollectiveID: f.Babel.ID, FromCollectiveID: f.Carol.CollectiveID, UserID: f.Carol.ID,
		PayoutMethodID: int64Ptr(f.CarolPayout.ID), Description: "Conference travel", Amount: 45000,
		Currency: "USD", Status: models.ExpenseStatusApproved, InvoiceInfo: "VAT FR123456789",
		PayeeLocation: &models.Location{Address: "42 Main St, Portland", Country: "US"}, CreatedAt: created,
	})

	f.AcmeCard = s.PutPaymentMethod(&models.PaymentMethod{
		UUID: "0c1f4b36-8d55-4a2b-9a3e-7f1e2b6c9d01", Name: "4242", Service: "stripe",
		Type: models.PaymentMethodTypeCreditCard, CollectiveID: f.Acme.ID, CreatedByUserID: int64Ptr(f.Alice.ID),
		Currency: "USD", Data: map[string]interface{}{"brand": "Visa", "expMonth": 12, "expYear": 2030},
		CreatedAt: created,
	})
	f.SpentGift = s.PutPaymentMethod(&models.PaymentMethod{
		UUID: "5a7d2c14-3b9e-4f61-8c20-d4e5f6a7b802", Name: "Spent gift card", Service: "opencollective",
		Type: models.PaymentMethodTypeGiftCard, CollectiveID: f.Acme.ID, SourcePaymentMethodID: int64Ptr(f.AcmeCard.ID),
		Token: "SPENT0001", Currency: "USD", InitialBalance: 5000, Balance: 0, CreatedAt: created,
	})
	f.DaveCard = s.PutPaymentMethod(&models.PaymentMethod{
		UUID: "9e8d7c6b-5a49-4382-b1a0-f9e8d7c6b503", Name: "1881", Service: "stripe",
		Type: models.PaymentMethodTypeCreditCard, CollectiveID: f.Dave.CollectiveID, CreatedByUserID: int64Ptr(f.Dave.ID),
		Currency: "USD", Data: map[string]interface{}{"brand": "Mastercard"}, CreatedAt: created,
	})

	f.Tier = s.PutTier(&models.Tier{CollectiveID: f.Babel.ID, Slug: "backers", Name: "Backers", Amount: 500, Currency: "USD"})
	f.Order = s.PutOrder(&models.Order{
		CollectiveID: f.Babel.ID, FromCollectiveID: f.IncognitoProfile.ID, CreatedByUserID: f.Dave.ID,
		TierID: int64Ptr(f.Tier.ID), PaymentMethodID: int64Ptr(f.DaveCard.ID), Description: "Monthly donation",
		TotalAmount: 2500, Currency: "USD", Status: "ACTIVE", CreatedAt: created,
	})
	f.Transaction = s.PutTransaction(&models.Transaction{
		UUID: "d1e2f3a4-b5c6-4d7e-8f90-a1b2c3d4e504", Kind: "CONTRIBUTION", Type: models.TransactionTypeCredit,
		Description: "Monthly donation", Amount: 2500, Currency: "USD",
		CollectiveID: f.Babel.ID, FromCollectiveID: f.IncognitoProfile.ID, HostCollectiveID: int64Ptr(f.Host.ID),
		CreatedByUserID: int64Ptr(f.Dave.ID), OrderID: int64Ptr(f.Order.ID), PaymentMethodID: int64Ptr(f.DaveCard.ID),
		CreatedAt: created,
	})

	f.Application = s.PutApplication(&models.Application{
		CollectiveID: f.Acme.ID, Name: "Acme Integration", ClientID: "acme-client-id",
		ClientSecret: "acme-client-secret", CallbackURL: "https://acme.example.com/callback", CreatedAt: created,
	})
	f.Notification = s.PutNotification(&models.Notification{
		CollectiveID: f.Babel.ID, UserID: int64Ptr(f.Alice.ID), Channel: "webhook", Type: "collective.expense.created",
		WebhookURL: "https://hooks.example.com/babel", Active: true,
	})

	return f
}

func seedUser(s *Store, id int64, email, name, legalName string, location *models.Location) *models.User {
	profile := s.PutCollective(&models.Collective{
		Slug: slugify(name), Name: name, LegalName: legalName, Type: models.CollectiveTypeUser,
		Currency: "USD", IsActive: true, Location: location, CreatedByUserID: int64Ptr(id),
	})
	return s.PutUser(&models.User{ID: id, Email: email, CollectiveID: profile.ID, CreatedAt: profile.CreatedAt})
}

func slugify(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
