package sync

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pocketledger/internal/database"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/provider"
	"pocketledger/internal/repository"
	"pocketledger/internal/vault"
)

// fakeClient is a canned provider for pipeline tests.
type fakeClient struct {
	accounts     []provider.Account
	transactions []provider.Transaction
	holdings     *provider.HoldingsResponse
	accountsErr  error
	txnErr       error
	holdingsErr  error
	exchangeErr  error
}

func (f *fakeClient) CreateLinkToken(userID int64) (*provider.LinkTokenResponse, error) {
	return &provider.LinkTokenResponse{LinkToken: "link-sandbox-token"}, nil
}

func (f *fakeClient) ExchangePublicToken(publicToken string) (*provider.ExchangeResponse, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &provider.ExchangeResponse{AccessToken: "access-sandbox-token", ItemID: "item-1"}, nil
}

func (f *fakeClient) GetAccounts(accessToken string) ([]provider.Account, error) {
	if f.accountsErr != nil {
		return nil, f.accountsErr
	}
	return f.accounts, nil
}

func (f *fakeClient) GetTransactions(accessToken, startDate, endDate string) ([]provider.Transaction, error) {
	if f.txnErr != nil {
		return nil, f.txnErr
	}
	return f.transactions, nil
}

func (f *fakeClient) GetHoldings(accessToken string) (*provider.HoldingsResponse, error) {
	if f.holdingsErr != nil {
		return nil, f.holdingsErr
	}
	return f.holdings, nil
}

func setupSyncService(t *testing.T) (*Service, *fakeClient, *database.DB, int64) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := database.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})

	result, err := db.Exec(`
		INSERT INTO users (email, password_hash, name)
		VALUES (?, ?, ?)
	`, "test@example.com", "hashedpassword", "Test User")
	if err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	userID, _ := result.LastInsertId()

	v, err := vault.New("test-master-secret-at-least-32-chars-long")
	if err != nil {
		t.Fatalf("failed to create vault: %v", err)
	}

	client := &fakeClient{}
	svc := NewService(
		db, v, client,
		repository.NewItemRepository(db),
		repository.NewAccountRepository(db),
		repository.NewTransactionRepository(db),
		repository.NewCategoryRepository(db),
		repository.NewHoldingRepository(db),
		repository.NewSyncJobRepository(db),
	)
	return svc, client, db, userID
}

func checkingAccount() provider.Account {
	avail := 950.00
	return provider.Account{
		AccountID: "acc-checking-1",
		Name:      "Everyday Checking",
		Type:      "depository",
		Subtype:   "checking",
		Balances: provider.Balances{
			Available:       &avail,
			Current:         1000.00,
			ISOCurrencyCode: "USD",
		},
	}
}

func coffeeTransaction() provider.Transaction {
	return provider.Transaction{
		TransactionID:   "txn-coffee-1",
		AccountID:       "acc-checking-1",
		Amount:          4.50,
		ISOCurrencyCode: "USD",
		MerchantName:    "Blue Bottle",
		Date:            time.Now().AddDate(0, 0, -2).Format("2006-01-02"),
		PersonalFinanceCategory: &provider.PersonalFinanceCategory{
			Primary:  "FOOD_AND_DRINK",
			Detailed: "FOOD_AND_DRINK_COFFEE",
		},
	}
}

func TestService_Refresh_BankSync_IngestsAndClassifies(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}
	client.transactions = []provider.Transaction{coffeeTransaction()}

	if _, err := svc.Refresh(userID, models.ItemTypeBank); !errors.Is(err, apperrors.ErrNotLinked) {
		t.Fatalf("Refresh() without link error = %v, want ErrNotLinked", err)
	}

	linkItem(t, svc, userID, models.ItemTypeBank)

	result, err := svc.Refresh(userID, models.ItemTypeBank)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if result.AccountsSynced != 1 || result.TransactionsSynced != 1 {
		t.Errorf("Refresh() accounts = %d, transactions = %d, want 1 and 1",
			result.AccountsSynced, result.TransactionsSynced)
	}

	accounts, err := repository.NewAccountRepository(db).GetByUserID(userID)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("got %d accounts, want 1", len(accounts))
	}
	if accounts[0].CurrentBalance != 1000.00 {
		t.Errorf("CurrentBalance = %f, want 1000.00", accounts[0].CurrentBalance)
	}

	txns, err := repository.NewTransactionRepository(db).GetByUserID(userID, 50, 0)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].CategoryLabel != "Food And Drink" {
		t.Errorf("CategoryLabel = %q, want %q", txns[0].CategoryLabel, "Food And Drink")
	}

	// Classifier created the category and linked the transaction
	cats, err := repository.NewCategoryRepository(db).GetByUserID(userID)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if len(cats) != 1 || cats[0].Name != "Food And Drink" {
		t.Fatalf("categories = %+v, want one named %q", cats, "Food And Drink")
	}

	var linked int
	err = db.QueryRow(`
		SELECT COUNT(*) FROM category_links WHERE transaction_id = ? AND category_id = ?
	`, txns[0].ID, cats[0].ID).Scan(&linked)
	if err != nil {
		t.Fatalf("counting links: %v", err)
	}
	if linked != 1 {
		t.Errorf("category_links count = %d, want 1", linked)
	}

	// Job recorded the outcome
	job, err := repository.NewSyncJobRepository(db).GetByID(result.JobID, userID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if job.Status != models.SyncStatusSuccess {
		t.Errorf("job status = %q, want %q", job.Status, models.SyncStatusSuccess)
	}
	if job.TransactionsSynced != 1 {
		t.Errorf("job transactions_synced = %d, want 1", job.TransactionsSynced)
	}
}

func TestService_Refresh_RepeatSync_IsIdempotent(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}
	client.transactions = []provider.Transaction{coffeeTransaction()}
	linkItem(t, svc, userID, models.ItemTypeBank)

	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	result, err := svc.Refresh(userID, models.ItemTypeBank)
	if err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}
	if result.TransactionsSynced != 0 {
		t.Errorf("second sync transactions = %d, want 0 (already ingested)", result.TransactionsSynced)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		t.Fatalf("counting transactions: %v", err)
	}
	if count != 1 {
		t.Errorf("transaction count after re-sync = %d, want 1", count)
	}
}

func TestService_Refresh_BalanceChange_UpdatesAccountInPlace(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}
	linkItem(t, svc, userID, models.ItemTypeBank)

	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	accountRepo := repository.NewAccountRepository(db)
	before, _ := accountRepo.GetByUserID(userID)

	updated := checkingAccount()
	updated.Balances.Current = 750.00
	updated.Name = "Everyday Checking (renamed)"
	client.accounts = []provider.Account{updated}

	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}

	after, _ := accountRepo.GetByUserID(userID)
	if len(after) != 1 {
		t.Fatalf("got %d accounts, want 1 (upsert, not duplicate)", len(after))
	}
	if after[0].ID != before[0].ID {
		t.Errorf("account row changed: id %d -> %d", before[0].ID, after[0].ID)
	}
	if after[0].CurrentBalance != 750.00 {
		t.Errorf("CurrentBalance = %f, want 750.00", after[0].CurrentBalance)
	}
	if after[0].Name != "Everyday Checking (renamed)" {
		t.Errorf("Name = %q, want refreshed name", after[0].Name)
	}
}

func TestService_Refresh_ProviderCorrection_DoesNotUpdateTransaction(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}
	client.transactions = []provider.Transaction{coffeeTransaction()}
	linkItem(t, svc, userID, models.ItemTypeBank)

	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	// Provider reissues the same transaction with a corrected amount
	corrected := coffeeTransaction()
	corrected.Amount = 5.75
	client.transactions = []provider.Transaction{corrected}

	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}

	txns, _ := repository.NewTransactionRepository(db).GetByUserID(userID, 50, 0)
	if len(txns) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txns))
	}
	if txns[0].Amount != 4.50 {
		t.Errorf("Amount = %f, want original 4.50 (rows are insert-once)", txns[0].Amount)
	}
}

func TestService_Refresh_ExistingCategory_KeepsUserCustomization(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}
	client.transactions = []provider.Transaction{coffeeTransaction()}
	linkItem(t, svc, userID, models.ItemTypeBank)

	// User already budgets this label with a custom color and weekly limit
	catRepo := repository.NewCategoryRepository(db)
	limit := 75.0
	existing := &models.Category{UserID: userID, Name: "Food And Drink", Color: "#ff0000", WeeklyLimit: &limit}
	if _, err := catRepo.Create(existing); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	cats, _ := catRepo.GetByUserID(userID)
	if len(cats) != 1 {
		t.Fatalf("got %d categories, want 1 (classifier reuses existing)", len(cats))
	}
	if cats[0].Color != "#ff0000" {
		t.Errorf("Color = %q, want user's %q", cats[0].Color, "#ff0000")
	}
	if cats[0].WeeklyLimit == nil || *cats[0].WeeklyLimit != 75.0 {
		t.Errorf("WeeklyLimit = %v, want 75.0", cats[0].WeeklyLimit)
	}
}

func TestService_Refresh_LegacyCategoryFallback(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}
	legacy := coffeeTransaction()
	legacy.PersonalFinanceCategory = nil
	legacy.Category = []string{"Travel", "Airlines"}
	client.transactions = []provider.Transaction{legacy}
	linkItem(t, svc, userID, models.ItemTypeBank)

	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	cats, _ := repository.NewCategoryRepository(db).GetByUserID(userID)
	if len(cats) != 1 || cats[0].Name != "Travel" {
		t.Fatalf("categories = %+v, want one named %q", cats, "Travel")
	}
}

func TestService_Refresh_InvestmentSync_HoldingsAreSnapshot(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)

	invAccount := provider.Account{
		AccountID: "acc-brokerage-1",
		Name:      "Brokerage",
		Type:      "investment",
		Subtype:   "brokerage",
		Balances:  provider.Balances{Current: 5000.00, ISOCurrencyCode: "USD"},
	}
	client.accounts = []provider.Account{invAccount}
	client.holdings = &provider.HoldingsResponse{
		Accounts: []provider.Account{invAccount},
		Holdings: []provider.Holding{
			{AccountID: "acc-brokerage-1", SecurityID: "sec-aapl", Quantity: 10, InstitutionPrice: 150, InstitutionValue: 1500, ISOCurrencyCode: "USD"},
			{AccountID: "acc-brokerage-1", SecurityID: "sec-voo", Quantity: 5, InstitutionPrice: 400, InstitutionValue: 2000, ISOCurrencyCode: "USD"},
		},
		Securities: []provider.Security{
			{SecurityID: "sec-aapl", TickerSymbol: "AAPL", Name: "Apple Inc."},
			{SecurityID: "sec-voo", TickerSymbol: "VOO", Name: "Vanguard S&P 500 ETF"},
		},
	}
	linkItem(t, svc, userID, models.ItemTypeInvestment)

	result, err := svc.Refresh(userID, models.ItemTypeInvestment)
	if err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}
	if result.HoldingsSynced != 2 {
		t.Errorf("HoldingsSynced = %d, want 2", result.HoldingsSynced)
	}

	accounts, _ := repository.NewAccountRepository(db).GetInvestmentsByUserID(userID)
	if len(accounts) != 1 {
		t.Fatalf("got %d investment accounts, want 1", len(accounts))
	}
	accountID := accounts[0].ID

	// Position sold between syncs: the next snapshot drops it
	client.holdings.Holdings = client.holdings.Holdings[:1]
	client.holdings.Holdings[0].Quantity = 12
	client.holdings.Holdings[0].InstitutionValue = 1800

	time.Sleep(10 * time.Millisecond)
	if _, err := svc.Refresh(userID, models.ItemTypeInvestment); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}

	holdings, err := repository.NewHoldingRepository(db).GetByAccountID(accountID)
	if err != nil {
		t.Fatalf("GetByAccountID() error = %v", err)
	}
	if len(holdings) != 1 {
		t.Fatalf("got %d holdings, want 1 (sold position swept)", len(holdings))
	}
	if holdings[0].SecurityID != "sec-aapl" {
		t.Errorf("remaining holding = %q, want sec-aapl", holdings[0].SecurityID)
	}
	if holdings[0].Quantity != 12 {
		t.Errorf("Quantity = %f, want updated 12", holdings[0].Quantity)
	}
}

func TestService_Refresh_InvestmentSync_IngestsTransactions(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)

	invAccount := provider.Account{
		AccountID: "acc-brokerage-1",
		Name:      "Brokerage",
		Type:      "investment",
		Balances:  provider.Balances{Current: 5000.00, ISOCurrencyCode: "USD"},
	}
	client.accounts = []provider.Account{invAccount}
	client.transactions = []provider.Transaction{{
		TransactionID:   "txn-dividend-1",
		AccountID:       "acc-brokerage-1",
		Amount:          -12.40,
		ISOCurrencyCode: "USD",
		MerchantName:    "Apple Inc.",
		Date:            time.Now().AddDate(0, 0, -3).Format("2006-01-02"),
		PersonalFinanceCategory: &provider.PersonalFinanceCategory{
			Primary:  "INCOME",
			Detailed: "INCOME_DIVIDENDS",
		},
	}}
	client.holdings = &provider.HoldingsResponse{
		Holdings: []provider.Holding{
			{AccountID: "acc-brokerage-1", SecurityID: "sec-aapl", Quantity: 10, InstitutionPrice: 150, InstitutionValue: 1500, ISOCurrencyCode: "USD"},
		},
		Securities: []provider.Security{{SecurityID: "sec-aapl", TickerSymbol: "AAPL"}},
	}
	linkItem(t, svc, userID, models.ItemTypeInvestment)

	result, err := svc.Refresh(userID, models.ItemTypeInvestment)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// Investment connections sync their ledger alongside their positions
	if result.TransactionsSynced != 1 || result.HoldingsSynced != 1 {
		t.Errorf("Refresh() transactions = %d, holdings = %d, want 1 and 1",
			result.TransactionsSynced, result.HoldingsSynced)
	}

	txns, err := repository.NewTransactionRepository(db).GetByUserID(userID, 50, 0)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("got %d stored transactions, want 1", len(txns))
	}
	if txns[0].ProviderTransactionID != "txn-dividend-1" {
		t.Errorf("ProviderTransactionID = %q, want txn-dividend-1", txns[0].ProviderTransactionID)
	}
	if txns[0].CategoryLabel != "Income" {
		t.Errorf("CategoryLabel = %q, want %q", txns[0].CategoryLabel, "Income")
	}
}

func TestService_Refresh_ProviderFailure_LeavesNoPartialBatch(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}
	client.txnErr = errors.New("RATE_LIMIT_EXCEEDED")
	linkItem(t, svc, userID, models.ItemTypeBank)

	_, err := svc.Refresh(userID, models.ItemTypeBank)
	if !errors.Is(err, apperrors.ErrProvider) {
		t.Fatalf("Refresh() error = %v, want ErrProvider", err)
	}

	// Accounts were fetched successfully but must not be committed alone
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM linked_accounts`).Scan(&count); err != nil {
		t.Fatalf("counting accounts: %v", err)
	}
	if count != 0 {
		t.Errorf("linked_accounts count = %d, want 0 (batch is atomic)", count)
	}

	jobs, err := repository.NewSyncJobRepository(db).GetRecentByUserID(userID, 10)
	if err != nil {
		t.Fatalf("GetRecentByUserID() error = %v", err)
	}
	if len(jobs) != 1 {
		t.Fatalf("got %d jobs, want 1", len(jobs))
	}
	if jobs[0].Status != models.SyncStatusError {
		t.Errorf("job status = %q, want %q", jobs[0].Status, models.SyncStatusError)
	}
	if jobs[0].ErrorMessage == "" {
		t.Error("job error message is empty")
	}

	item, _ := repository.NewItemRepository(db).GetByUserAndType(userID, models.ItemTypeBank)
	if item.LastSyncStatus != models.SyncStatusError {
		t.Errorf("item sync status = %q, want %q", item.LastSyncStatus, models.SyncStatusError)
	}
}

func TestService_Link_RunsBackgroundSync(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}
	client.transactions = []provider.Transaction{coffeeTransaction()}

	jobID, err := svc.Link(userID, "public-sandbox-token", models.ItemTypeBank)
	if err != nil {
		t.Fatalf("Link() error = %v", err)
	}
	if jobID == "" {
		t.Fatal("Link() returned empty job ID")
	}

	jobRepo := repository.NewSyncJobRepository(db)
	deadline := time.Now().Add(5 * time.Second)
	var job *models.SyncJob
	for {
		job, err = jobRepo.GetByID(jobID, userID)
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if job.Status != models.SyncStatusStarted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("background sync did not finish in time")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if job.Status != models.SyncStatusSuccess {
		t.Fatalf("job status = %q, want %q (error: %s)", job.Status, models.SyncStatusSuccess, job.ErrorMessage)
	}
	if job.AccountsSynced != 1 || job.TransactionsSynced != 1 {
		t.Errorf("job counts = %d accounts, %d transactions, want 1 and 1",
			job.AccountsSynced, job.TransactionsSynced)
	}

	item, _ := repository.NewItemRepository(db).GetByUserAndType(userID, models.ItemTypeBank)
	if item == nil {
		t.Fatal("provider item was not stored")
	}
	if len(item.AccessToken) == 0 || len(item.TokenNonce) == 0 {
		t.Error("stored token is not encrypted ciphertext with nonce")
	}
}

func TestService_Unlink_RemovesConnectionData_KeepsCategories(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}
	client.transactions = []provider.Transaction{coffeeTransaction()}
	linkItem(t, svc, userID, models.ItemTypeBank)

	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if err := svc.Unlink(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("Unlink() error = %v", err)
	}

	for _, table := range []string{"linked_accounts", "transactions", "category_links", "provider_items"} {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("%s count after unlink = %d, want 0", table, count)
		}
	}

	// Categories are the user's budgeting structure and survive
	cats, _ := repository.NewCategoryRepository(db).GetByUserID(userID)
	if len(cats) != 1 {
		t.Errorf("got %d categories after unlink, want 1", len(cats))
	}

	if err := svc.Unlink(userID, models.ItemTypeBank); !errors.Is(err, apperrors.ErrNotLinked) {
		t.Errorf("second Unlink() error = %v, want ErrNotLinked", err)
	}
}

func TestService_Unlink_BankOnly_KeepsInvestmentData(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)

	invAccount := provider.Account{
		AccountID: "acc-brokerage-1",
		Name:      "Brokerage",
		Type:      "investment",
		Balances:  provider.Balances{Current: 5000.00, ISOCurrencyCode: "USD"},
	}
	client.accounts = []provider.Account{invAccount}
	client.holdings = &provider.HoldingsResponse{
		Holdings: []provider.Holding{
			{AccountID: "acc-brokerage-1", SecurityID: "sec-aapl", Quantity: 10, InstitutionPrice: 150, InstitutionValue: 1500, ISOCurrencyCode: "USD"},
		},
		Securities: []provider.Security{{SecurityID: "sec-aapl", TickerSymbol: "AAPL"}},
	}
	linkItem(t, svc, userID, models.ItemTypeInvestment)
	if _, err := svc.Refresh(userID, models.ItemTypeInvestment); err != nil {
		t.Fatalf("investment Refresh() error = %v", err)
	}

	client.accounts = []provider.Account{checkingAccount()}
	client.transactions = []provider.Transaction{coffeeTransaction()}
	linkItem(t, svc, userID, models.ItemTypeBank)
	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("bank Refresh() error = %v", err)
	}

	if err := svc.Unlink(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("Unlink() error = %v", err)
	}

	accounts, _ := repository.NewAccountRepository(db).GetByUserID(userID)
	if len(accounts) != 1 || !accounts[0].IsInvestment() {
		t.Fatalf("accounts after bank unlink = %+v, want only the brokerage", accounts)
	}

	var holdings int
	if err := db.QueryRow(`SELECT COUNT(*) FROM holdings`).Scan(&holdings); err != nil {
		t.Fatalf("counting holdings: %v", err)
	}
	if holdings != 1 {
		t.Errorf("holdings count = %d, want 1 (investment connection untouched)", holdings)
	}

	item, _ := repository.NewItemRepository(db).GetByUserAndType(userID, models.ItemTypeInvestment)
	if item == nil {
		t.Error("investment item was removed by bank unlink")
	}
}

func TestService_UnlinkAll_RemovesEveryConnection(t *testing.T) {
	svc, client, db, userID := setupSyncService(t)

	invAccount := provider.Account{
		AccountID: "acc-brokerage-1",
		Name:      "Brokerage",
		Type:      "investment",
		Balances:  provider.Balances{Current: 5000.00, ISOCurrencyCode: "USD"},
	}
	client.accounts = []provider.Account{invAccount}
	client.holdings = &provider.HoldingsResponse{
		Holdings: []provider.Holding{
			{AccountID: "acc-brokerage-1", SecurityID: "sec-aapl", Quantity: 10, InstitutionPrice: 150, InstitutionValue: 1500, ISOCurrencyCode: "USD"},
		},
		Securities: []provider.Security{{SecurityID: "sec-aapl", TickerSymbol: "AAPL"}},
	}
	linkItem(t, svc, userID, models.ItemTypeInvestment)
	if _, err := svc.Refresh(userID, models.ItemTypeInvestment); err != nil {
		t.Fatalf("investment Refresh() error = %v", err)
	}

	client.accounts = []provider.Account{checkingAccount()}
	client.transactions = []provider.Transaction{coffeeTransaction()}
	client.holdings = nil
	linkItem(t, svc, userID, models.ItemTypeBank)
	if _, err := svc.Refresh(userID, models.ItemTypeBank); err != nil {
		t.Fatalf("bank Refresh() error = %v", err)
	}

	if err := svc.UnlinkAll(userID); err != nil {
		t.Fatalf("UnlinkAll() error = %v", err)
	}

	for _, table := range []string{"linked_accounts", "transactions", "category_links", "holdings", "provider_items"} {
		var count int
		if err := db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("counting %s: %v", table, err)
		}
		if count != 0 {
			t.Errorf("%s count after UnlinkAll = %d, want 0", table, count)
		}
	}

	if err := svc.UnlinkAll(userID); !errors.Is(err, apperrors.ErrNotLinked) {
		t.Errorf("second UnlinkAll() error = %v, want ErrNotLinked", err)
	}
}

func TestService_LiveAccounts(t *testing.T) {
	svc, client, _, userID := setupSyncService(t)
	client.accounts = []provider.Account{checkingAccount()}

	if _, err := svc.LiveAccounts(userID); !errors.Is(err, apperrors.ErrNotLinked) {
		t.Fatalf("LiveAccounts() without link error = %v, want ErrNotLinked", err)
	}

	linkItem(t, svc, userID, models.ItemTypeBank)

	accounts, err := svc.LiveAccounts(userID)
	if err != nil {
		t.Fatalf("LiveAccounts() error = %v", err)
	}
	if len(accounts) != 1 || accounts[0].AccountID != "acc-checking-1" {
		t.Fatalf("accounts = %+v, want the provider's checking account", accounts)
	}
}

// linkItem stores an encrypted token directly, bypassing the background sync
// that Link would start.
func linkItem(t *testing.T, svc *Service, userID int64, itemType string) {
	t.Helper()
	ciphertext, nonce, err := svc.vault.Encrypt("access-sandbox-token", userID)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	err = svc.itemRepo.Upsert(&models.ProviderItem{
		UserID:      userID,
		ItemType:    itemType,
		AccessToken: ciphertext,
		TokenNonce:  nonce,
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
}
