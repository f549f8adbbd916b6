package provider

// Typed response schemas for the aggregation API. Unknown or missing fields
// decode to zero values; nothing downstream does dynamic map lookups.

// Balances carries the balance block of a provider account.
type Balances struct {
	Available       *float64 `json:"available"`
	Current         float64  `json:"current"`
	ISOCurrencyCode string   `json:"iso_currency_code"`
}

// Account is one external account as the provider reports it.
type Account struct {
	AccountID string   `json:"account_id"`
	Name      string   `json:"name"`
	Type      string   `json:"type"` // "depository", "credit", "investment"
	Subtype   string   `json:"subtype"`
	Balances  Balances `json:"balances"`
}

// PersonalFinanceCategory is the provider's structured categorization.
type PersonalFinanceCategory struct {
	Primary  string `json:"primary"`
	Detailed string `json:"detailed"`
}

// Transaction is one ledger entry as the provider reports it. Category holds
// the legacy free-text hierarchy; PersonalFinanceCategory the structured one.
type Transaction struct {
	TransactionID           string                   `json:"transaction_id"`
	AccountID               string                   `json:"account_id"`
	Amount                  float64                  `json:"amount"`
	ISOCurrencyCode         string                   `json:"iso_currency_code"`
	Category                []string                 `json:"category"`
	PersonalFinanceCategory *PersonalFinanceCategory `json:"personal_finance_category"`
	MerchantName            string                   `json:"merchant_name"`
	Date                    string                   `json:"date"` // YYYY-MM-DD
}

// Holding is one investment position as the provider reports it.
type Holding struct {
	AccountID        string  `json:"account_id"`
	SecurityID       string  `json:"security_id"`
	Quantity         float64 `json:"quantity"`
	InstitutionPrice float64 `json:"institution_price"`
	InstitutionValue float64 `json:"institution_value"`
	ISOCurrencyCode  string  `json:"iso_currency_code"`
}

// Security is the metadata record referenced by holdings.
type Security struct {
	SecurityID   string `json:"security_id"`
	TickerSymbol string `json:"ticker_symbol"`
	Name         string `json:"name"`
}

// LinkTokenResponse is the payload of a link-token creation call.
type LinkTokenResponse struct {
	LinkToken  string `json:"link_token"`
	Expiration string `json:"expiration"`
}

// ExchangeResponse is the payload of a public-token exchange call.
type ExchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}

// HoldingsResponse bundles holdings with their accounts and securities.
type HoldingsResponse struct {
	Accounts   []Account  `json:"accounts"`
	Holdings   []Holding  `json:"holdings"`
	Securities []Security `json:"securities"`
}

type accountsResponse struct {
	Accounts []Account `json:"accounts"`
}

type transactionsResponse struct {
	Transactions      []Transaction `json:"transactions"`
	TotalTransactions int           `json:"total_transactions"`
}

// apiError is the provider's error envelope.
type apiError struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}
