// Package models contains the domain models for pocketledger.
package models

import "time"

// User represents a registered user.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Name         string    `json:"name"`
	CashBalance  float64   `json:"cash_balance"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// UserSettings holds per-user notification preferences.
type UserSettings struct {
	ID                 int64     `json:"id"`
	UserID             int64     `json:"user_id"`
	EmailNotifications bool      `json:"email_notifications"`
	SMSNotifications   bool      `json:"sms_notifications"`
	PushNotifications  bool      `json:"push_notifications"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Category represents a user-scoped budgeting bucket. Categories are created
// explicitly by the user or implicitly by the classifier the first time an
// unseen provider label is seen for that user.
type Category struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	WeeklyLimit *float64  `json:"weekly_limit,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ItemType identifies which provider connection a token belongs to.
// A user may hold one token per type, rotated independently.
const (
	ItemTypeBank       = "bank"
	ItemTypeInvestment = "investment"
)

// ProviderItem represents a linked provider connection. The access token is
// held as AES-GCM ciphertext plus nonce and is only decrypted in memory for
// the duration of a provider call.
type ProviderItem struct {
	ID             int64      `json:"id"`
	UserID         int64      `json:"user_id"`
	ItemType       string     `json:"item_type"`
	AccessToken    []byte     `json:"-"` // Ciphertext, never exposed
	TokenNonce     []byte     `json:"-"`
	LastSyncAt     *time.Time `json:"last_sync_at,omitempty"`
	LastSyncStatus string     `json:"last_sync_status,omitempty"` // "success", "error"
	LastSyncError  string     `json:"last_sync_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// LinkedAccount represents one external bank or investment account. Identity
// fields never change after the first sync; balances are overwritten on every
// sync. Accounts that disappear from the provider response are kept until the
// user unlinks.
type LinkedAccount struct {
	ID                int64      `json:"id"`
	UserID            int64      `json:"user_id"`
	ProviderAccountID string     `json:"provider_account_id"`
	Name              string     `json:"name"`
	AccountType       string     `json:"account_type"` // "depository", "credit", "investment"
	Subtype           string     `json:"subtype,omitempty"`
	CurrentBalance    float64    `json:"current_balance"`
	AvailableBalance  *float64   `json:"available_balance,omitempty"`
	Currency          string     `json:"currency"`
	LastSyncedAt      *time.Time `json:"last_synced_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	Holdings          []*Holding `json:"holdings,omitempty"` // Populated for investment views
}

// IsInvestment reports whether the account carries holdings.
func (a *LinkedAccount) IsInvestment() bool {
	return a.AccountType == "investment"
}

// Transaction represents one ingested ledger entry. Rows are insert-once:
// re-syncs never update an existing row, even if the provider issued a
// correction for it.
type Transaction struct {
	ID                    int64     `json:"id"`
	AccountID             int64     `json:"account_id"`
	ProviderTransactionID string    `json:"provider_transaction_id"`
	Amount                float64   `json:"amount"`
	Currency              string    `json:"currency,omitempty"`
	CategoryLabel         string    `json:"category_label,omitempty"`
	MerchantName          string    `json:"merchant_name,omitempty"`
	PostedOn              string    `json:"posted_on"` // Calendar date, YYYY-MM-DD
	CreatedAt             time.Time `json:"created_at"`
}

// CategoryLink associates a transaction with a category, one per transaction.
type CategoryLink struct {
	ID            int64     `json:"id"`
	TransactionID int64     `json:"transaction_id"`
	CategoryID    int64     `json:"category_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// Holding represents one position within an investment account. Holdings are
// mutable snapshots keyed by (account, security); every sync is authoritative
// for the current state of the position.
type Holding struct {
	ID          int64     `json:"id"`
	AccountID   int64     `json:"account_id"`
	SecurityID  string    `json:"security_id"`
	ExternalID  string    `json:"external_id,omitempty"` // accountID:securityID composite
	Symbol      string    `json:"symbol,omitempty"`
	Name        string    `json:"name,omitempty"`
	Quantity    float64   `json:"quantity"`
	Price       float64   `json:"price,omitempty"`
	Value       float64   `json:"value"`
	Currency    string    `json:"currency"`
	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
}

// Sync job lifecycle states.
const (
	SyncStatusStarted = "started"
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// Sync triggers.
const (
	SyncTriggerLink    = "link"
	SyncTriggerRefresh = "refresh"
)

// SyncJob tracks one ingestion run. Background runs persist their outcome
// here so the client that initiated a link can poll for the result.
type SyncJob struct {
	ID                 string     `json:"id"`
	UserID             int64      `json:"user_id"`
	ItemType           string     `json:"item_type"`
	Trigger            string     `json:"trigger"`
	Status             string     `json:"status"`
	AccountsSynced     int        `json:"accounts_synced"`
	TransactionsSynced int        `json:"transactions_synced"`
	HoldingsSynced     int        `json:"holdings_synced"`
	ErrorMessage       string     `json:"error_message,omitempty"`
	StartedAt          time.Time  `json:"started_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	DurationMs         int64      `json:"duration_ms,omitempty"`
}

// SavingsGoal represents a savings milestone.
type SavingsGoal struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Name          string    `json:"name"`
	TargetAmount  float64   `json:"target_amount"`
	CurrentAmount float64   `json:"current_amount"`
	TargetDate    *string   `json:"target_date,omitempty"` // YYYY-MM-DD
	Status        string    `json:"status"`                // "active", "reached", "abandoned"
	CreatedAt     time.Time `json:"created_at"`
}

// Progress returns goal completion as a percentage (0-100).
func (g *SavingsGoal) Progress() float64 {
	if g.TargetAmount == 0 {
		return 0
	}
	p := (g.CurrentAmount / g.TargetAmount) * 100
	if p > 100 {
		return 100
	}
	return p
}
