package models

import "time"

// CollectiveType is the kind of account a Collective row represents
type CollectiveType string

const (
	CollectiveTypeUser         CollectiveType = "USER"
	CollectiveTypeOrganization CollectiveType = "ORGANIZATION"
	CollectiveTypeCollective   CollectiveType = "COLLECTIVE"
	CollectiveTypeFund         CollectiveType = "FUND"
	CollectiveTypeProject      CollectiveType = "PROJECT"
	CollectiveTypeEvent        CollectiveType = "EVENT"
)

// Collective is the generic account entity (individual, organization, collective, host...)
type Collective struct {
	ID                 int64              `json:"id"`
	Slug               string             `json:"slug"`
	Name               string             `json:"name"`
	LegalName          string             `json:"legalName,omitempty"`
	Type               CollectiveType     `json:"type"`
	Description        string             `json:"description,omitempty"`
	Website            string             `json:"website,omitempty"`
	GithubHandle       string             `json:"githubHandle,omitempty"`
	Currency           string             `json:"currency"`
	IsIncognito        bool               `json:"isIncognito"`
	IsHostAccount      bool               `json:"isHostAccount"`
	IsActive           bool               `json:"isActive"`
	HostCollectiveID   *int64             `json:"HostCollectiveId,omitempty"`
	ParentCollectiveID *int64             `json:"ParentCollectiveId,omitempty"`
	CreatedByUserID    *int64             `json:"CreatedByUserId,omitempty"`
	Location           *Location          `json:"location,omitempty"`
	Settings           CollectiveSettings `json:"settings"`
	CreatedAt          time.Time          `json:"createdAt"`
}

// IsIndividual reports whether the account belongs to a single person
func (c *Collective) IsIndividual() bool {
	return c != nil && c.Type == CollectiveTypeUser
}

// Location is a postal address attached to an account or an expense payee
type Location struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Country string `json:"country,omitempty"`
}

// CollectiveSettings holds the per-account toggles the API layer cares about
type CollectiveSettings struct {
	RequireTwoFactorForAdmins bool `json:"requireTwoFactorForAdmins,omitempty"`
}

// User is a login identity. Its public profile is the Collective at CollectiveID.
type User struct {
	ID               int64      `json:"id"`
	Email            string     `json:"email"`
	CollectiveID     int64      `json:"CollectiveId"`
	TwoFactorEnabled bool       `json:"twoFactorEnabled"`
	CreatedAt        time.Time  `json:"createdAt"`
	LastLoginAt      *time.Time `json:"lastLoginAt,omitempty"`
}

// MemberRole is the role an account holds inside another account
type MemberRole string

const (
	MemberRoleAdmin       MemberRole = "ADMIN"
	MemberRoleMember      MemberRole = "MEMBER"
	MemberRoleHost        MemberRole = "HOST"
	MemberRoleBacker      MemberRole = "BACKER"
	MemberRoleFollower    MemberRole = "FOLLOWER"
	MemberRoleContributor MemberRole = "CONTRIBUTOR"
	MemberRoleAccountant  MemberRole = "ACCOUNTANT"
)

// Member links MemberCollectiveID to CollectiveID with a role
type Member struct {
	ID                 int64      `json:"id"`
	CollectiveID       int64      `json:"CollectiveId"`
	MemberCollectiveID int64      `json:"MemberCollectiveId"`
	Role               MemberRole `json:"role"`
	Description        string     `json:"description,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
}

// ExpenseStatus is the lifecycle state of an expense
type ExpenseStatus string

const (
	ExpenseStatusDraft               ExpenseStatus = "DRAFT"
	ExpenseStatusPending             ExpenseStatus = "PENDING"
	ExpenseStatusApproved            ExpenseStatus = "APPROVED"
	ExpenseStatusRejected            ExpenseStatus = "REJECTED"
	ExpenseStatusProcessing          ExpenseStatus = "PROCESSING"
	ExpenseStatusScheduledForPayment ExpenseStatus = "SCHEDULED_FOR_PAYMENT"
	ExpenseStatusPaid                ExpenseStatus = "PAID"
	ExpenseStatusError               ExpenseStatus = "ERROR"
)

// Expense is a reimbursement or invoice submitted by FromCollectiveID to CollectiveID
type Expense struct {
	ID               int64         `json:"id"`
	CollectiveID     int64         `json:"CollectiveId"`
	FromCollectiveID int64         `json:"FromCollectiveId"`
	UserID           int64         `json:"UserId"`
	PayoutMethodID   *int64        `json:"PayoutMethodId,omitempty"`
	Description      string        `json:"description"`
	Amount           int64         `json:"amount"`
	Currency         string        `json:"currency"`
	Status           ExpenseStatus `json:"status"`
	InvoiceInfo      string        `json:"invoiceInfo,omitempty"`
	PayeeLocation    *Location     `json:"payeeLocation,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
}

// PayoutMethodType is how a payee receives money
type PayoutMethodType string

const (
	PayoutMethodTypePaypal      PayoutMethodType = "PAYPAL"
	PayoutMethodTypeBankAccount PayoutMethodType = "BANK_ACCOUNT"
	PayoutMethodTypeOther       PayoutMethodType = "OTHER"
)

// PayoutMethod holds payout details (bank account, paypal email...) of an account
type PayoutMethod struct {
	ID           int64                  `json:"id"`
	CollectiveID int64                  `json:"CollectiveId"`
	Type         PayoutMethodType       `json:"type"`
	Name         string                 `json:"name,omitempty"`
	Data         map[string]interface{} `json:"data,omitempty"`
	IsSaved      bool                   `json:"isSaved"`
	CreatedAt    time.Time              `json:"createdAt"`
}

// PaymentMethodType is the funding source kind
type PaymentMethodType string

const (
	PaymentMethodTypeCreditCard PaymentMethodType = "creditcard"
	PaymentMethodTypeGiftCard   PaymentMethodType = "giftcard"
	PaymentMethodTypePrepaid    PaymentMethodType = "prepaid"
	PaymentMethodTypeCollective PaymentMethodType = "collective"
)

// PaymentMethod is a funding source owned by an account
type PaymentMethod struct {
	ID                         int64                  `json:"id"`
	UUID                       string                 `json:"uuid"`
	Name                       string                 `json:"name,omitempty"`
	Description                string                 `json:"description,omitempty"`
	Service                    string                 `json:"service"`
	Type                       PaymentMethodType      `json:"type"`
	CollectiveID               int64                  `json:"CollectiveId"`
	CreatedByUserID            *int64                 `json:"CreatedByUserId,omitempty"`
	SourcePaymentMethodID      *int64                 `json:"SourcePaymentMethodId,omitempty"`
	Token                      string                 `json:"-"`
	Currency                   string                 `json:"currency"`
	InitialBalance             int64                  `json:"initialBalance"`
	Balance                    int64                  `json:"balance"`
	LimitedToHostCollectiveIDs []int64                `json:"limitedToHostCollectiveIds,omitempty"`
	LimitedToCollectiveIDs     []int64                `json:"limitedToCollectiveIds,omitempty"`
	EmailSentTo                string                 `json:"emailSentTo,omitempty"`
	Data                       map[string]interface{} `json:"data,omitempty"`
	ExpiryDate                 *time.Time             `json:"expiryDate,omitempty"`
	ArchivedAt                 *time.Time             `json:"archivedAt,omitempty"`
	CreatedAt                  time.Time              `json:"createdAt"`
}

// Order is a contribution from FromCollectiveID to CollectiveID
type Order struct {
	ID               int64     `json:"id"`
	CollectiveID     int64     `json:"CollectiveId"`
	FromCollectiveID int64     `json:"FromCollectiveId"`
	CreatedByUserID  int64     `json:"CreatedByUserId"`
	TierID           *int64    `json:"TierId,omitempty"`
	PaymentMethodID  *int64    `json:"PaymentMethodId,omitempty"`
	Description      string    `json:"description,omitempty"`
	TotalAmount      int64     `json:"totalAmount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	CreatedAt        time.Time `json:"createdAt"`
}

// TransactionType is the ledger direction of a transaction
type TransactionType string

const (
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// Transaction is one ledger entry
type Transaction struct {
	ID                            int64           `json:"id"`
	UUID                          string          `json:"uuid"`
	Kind                          string          `json:"kind"`
	Type                          TransactionType `json:"type"`
	Description                   string          `json:"description,omitempty"`
	Amount                        int64           `json:"amount"`
	Currency                      string          `json:"currency"`
	CollectiveID                  int64           `json:"CollectiveId"`
	FromCollectiveID              int64           `json:"FromCollectiveId"`
	HostCollectiveID              *int64          `json:"HostCollectiveId,omitempty"`
	CreatedByUserID               *int64          `json:"CreatedByUserId,omitempty"`
	OrderID                       *int64          `json:"OrderId,omitempty"`
	ExpenseID                     *int64          `json:"ExpenseId,omitempty"`
	PaymentMethodID               *int64          `json:"PaymentMethodId,omitempty"`
	UsingGiftCardFromCollectiveID *int64          `json:"UsingGiftCardFromCollectiveId,omitempty"`
	CreatedAt                     time.Time       `json:"createdAt"`
}

// Tier is a contribution level offered by a collective
type Tier struct {
	ID           int64  `json:"id"`
	CollectiveID int64  `json:"CollectiveId"`
	Slug         string `json:"slug"`
	Name         string `json:"name"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Application is an OAuth client registered by an account
type Application struct {
	ID           int64     `json:"id"`
	CollectiveID int64     `json:"CollectiveId"`
	Name         string    `json:"name"`
	ClientID     string    `json:"clientId"`
	ClientSecret string    `json:"-"`
	CallbackURL  string    `json:"callbackUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Notification is a subscription (email or webhook) of an account to an activity type
type Notification struct {
	ID           int64  `json:"id"`
	CollectiveID int64  `json:"CollectiveId"`
	UserID       *int64 `json:"UserId,omitempty"`
	Channel      string `json:"channel"`
	Type         string `json:"type"`
	WebhookURL   string `json:"webhookUrl,omitempty"`
	Active       bool   `json:"active"`
}

// PersonalToken is a long-lived, scope-restricted API token owned by a user
type PersonalToken struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"UserId"`
	Name      string     `json:"name"`
	TokenHash string     `json:"-"`
	Scopes    []string   `json:"scopes"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
	Database  bool   `json:"database"`
}
