// Package sync orchestrates ingestion of provider data: accounts,
// transactions and investment holdings.
package sync

import (
	"fmt"
	"log"
	"time"

	"pocketledger/internal/database"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/models"
	"pocketledger/internal/provider"
	"pocketledger/internal/repository"
	"pocketledger/internal/vault"
)

// TransactionWindowDays is how far back each sync fetches transactions.
// Re-syncing an overlapping window is safe: rows are insert-once.
const TransactionWindowDays = 30

// Service runs the sync pipeline for linked provider connections.
type Service struct {
	db          *database.DB
	vault       *vault.Vault
	client      provider.Client
	itemRepo    *repository.ItemRepository
	accountRepo *repository.AccountRepository
	txnRepo     *repository.TransactionRepository
	catRepo     *repository.CategoryRepository
	holdingRepo *repository.HoldingRepository
	jobRepo     *repository.SyncJobRepository
}

// NewService creates a new sync service.
func NewService(
	db *database.DB,
	v *vault.Vault,
	client provider.Client,
	itemRepo *repository.ItemRepository,
	accountRepo *repository.AccountRepository,
	txnRepo *repository.TransactionRepository,
	catRepo *repository.CategoryRepository,
	holdingRepo *repository.HoldingRepository,
	jobRepo *repository.SyncJobRepository,
) *Service {
	return &Service{
		db:          db,
		vault:       v,
		client:      client,
		itemRepo:    itemRepo,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		catRepo:     catRepo,
		holdingRepo: holdingRepo,
		jobRepo:     jobRepo,
	}
}

// Result contains the outcome of one sync run.
type Result struct {
	JobID              string
	AccountsSynced     int
	TransactionsSynced int
	HoldingsSynced     int
}

// Link exchanges a public token, stores the encrypted access token and kicks
// off the initial sync in the background. The returned job ID lets the caller
// poll for the outcome.
func (s *Service) Link(userID int64, publicToken, itemType string) (string, error) {
	resp, err := s.client.ExchangePublicToken(publicToken)
	if err != nil {
		return "", apperrors.Provider("token exchange failed", err)
	}

	ciphertext, nonce, err := s.vault.Encrypt(resp.AccessToken, userID)
	if err != nil {
		return "", apperrors.Internal("encrypting access token", err)
	}

	item := &models.ProviderItem{
		UserID:      userID,
		ItemType:    itemType,
		AccessToken: ciphertext,
		TokenNonce:  nonce,
	}
	if err := s.itemRepo.Upsert(item); err != nil {
		return "", apperrors.Internal("storing access token", err)
	}

	jobID, err := s.jobRepo.Start(userID, itemType, models.SyncTriggerLink)
	if err != nil {
		return "", apperrors.Internal("starting sync job", err)
	}

	go func() {
		if _, err := s.run(jobID, userID, itemType); err != nil {
			log.Printf("[Sync] Background sync %s failed for user %d: %v", jobID, userID, err)
		}
	}()

	return jobID, nil
}

// Refresh re-runs the pipeline for an existing connection and waits for it.
func (s *Service) Refresh(userID int64, itemType string) (*Result, error) {
	item, err := s.itemRepo.GetByUserAndType(userID, itemType)
	if err != nil {
		return nil, apperrors.Internal("loading provider item", err)
	}
	if item == nil {
		return nil, apperrors.NotLinked(itemType)
	}

	jobID, err := s.jobRepo.Start(userID, itemType, models.SyncTriggerRefresh)
	if err != nil {
		return nil, apperrors.Internal("starting sync job", err)
	}

	return s.run(jobID, userID, itemType)
}

// run executes one full sync for a connection and records the outcome on the
// job and the item. All writes of a run commit in one database transaction.
func (s *Service) run(jobID string, userID int64, itemType string) (*Result, error) {
	start := time.Now()

	item, err := s.itemRepo.GetByUserAndType(userID, itemType)
	if err != nil {
		return nil, s.fail(jobID, nil, apperrors.Internal("loading provider item", err))
	}
	if item == nil {
		return nil, s.fail(jobID, nil, apperrors.NotLinked(itemType))
	}

	accessToken, err := s.vault.Decrypt(item.AccessToken, item.TokenNonce, userID)
	if err != nil {
		return nil, s.fail(jobID, item, apperrors.Internal("decrypting access token", err))
	}

	// Fetch everything from the provider before touching the database, so a
	// provider failure leaves no partial batch behind.
	accounts, err := s.client.GetAccounts(accessToken)
	if err != nil {
		return nil, s.fail(jobID, item, apperrors.Provider("fetching accounts", err))
	}

	end := time.Now()
	startDate := end.AddDate(0, 0, -TransactionWindowDays)
	txns, err := s.client.GetTransactions(accessToken, startDate.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return nil, s.fail(jobID, item, apperrors.Provider("fetching transactions", err))
	}

	// Investment connections additionally carry positions
	var holdingsResp *provider.HoldingsResponse
	if itemType == models.ItemTypeInvestment {
		holdingsResp, err = s.client.GetHoldings(accessToken)
		if err != nil {
			return nil, s.fail(jobID, item, apperrors.Provider("fetching holdings", err))
		}
	}

	result := &Result{JobID: jobID}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, s.fail(jobID, item, apperrors.Internal("beginning transaction", err))
	}
	defer tx.Rollback()

	accountRepo := s.accountRepo.WithTx(tx)
	txnRepo := s.txnRepo.WithTx(tx)
	catRepo := s.catRepo.WithTx(tx)
	holdingRepo := s.holdingRepo.WithTx(tx)

	accountIDs, err := s.syncAccounts(accountRepo, userID, accounts)
	if err != nil {
		return nil, s.fail(jobID, item, apperrors.Internal("upserting accounts", err))
	}
	result.AccountsSynced = len(accountIDs)

	txnCount, err := s.ingestTransactions(txnRepo, catRepo, userID, accountIDs, txns)
	if err != nil {
		return nil, s.fail(jobID, item, apperrors.Internal("ingesting transactions", err))
	}
	result.TransactionsSynced = txnCount

	if itemType == models.ItemTypeInvestment {
		count, err := s.ingestHoldings(holdingRepo, accountIDs, holdingsResp)
		if err != nil {
			return nil, s.fail(jobID, item, apperrors.Internal("upserting holdings", err))
		}
		result.HoldingsSynced = count
	}

	if err := tx.Commit(); err != nil {
		return nil, s.fail(jobID, item, apperrors.Internal("committing sync batch", err))
	}

	if err := s.itemRepo.UpdateSyncStatus(item.ID, models.SyncStatusSuccess, ""); err != nil {
		log.Printf("[Sync] Recording item success %d: %v", item.ID, err)
	}
	if err := s.jobRepo.Complete(jobID, result.AccountsSynced, result.TransactionsSynced, result.HoldingsSynced); err != nil {
		log.Printf("[Sync] Recording job completion %s: %v", jobID, err)
	}

	log.Printf("[Sync] Completed %s sync for user %d in %s: accounts=%d transactions=%d holdings=%d",
		itemType, userID, time.Since(start).Round(time.Millisecond),
		result.AccountsSynced, result.TransactionsSynced, result.HoldingsSynced)

	return result, nil
}

// syncAccounts upserts the provider's account list and returns a map from
// provider account id to local account id.
func (s *Service) syncAccounts(accountRepo *repository.AccountRepository, userID int64, accounts []provider.Account) (map[string]int64, error) {
	accountIDs := make(map[string]int64, len(accounts))

	for _, acc := range accounts {
		account := &models.LinkedAccount{
			UserID:            userID,
			ProviderAccountID: acc.AccountID,
			Name:              acc.Name,
			AccountType:       acc.Type,
			Subtype:           acc.Subtype,
			CurrentBalance:    acc.Balances.Current,
			AvailableBalance:  acc.Balances.Available,
			Currency:          acc.Balances.ISOCurrencyCode,
		}
		if err := accountRepo.Upsert(account); err != nil {
			return nil, fmt.Errorf("upserting account %s: %w", acc.AccountID, err)
		}

		stored, err := accountRepo.GetByProviderAccountID(acc.AccountID)
		if err != nil {
			return nil, fmt.Errorf("reading back account %s: %w", acc.AccountID, err)
		}
		accountIDs[acc.AccountID] = stored.ID
	}

	return accountIDs, nil
}

// ingestTransactions inserts new transactions and auto-classifies each one
// that carries a provider category. Transactions referencing accounts missing
// from the batch are skipped, not fatal.
func (s *Service) ingestTransactions(txnRepo *repository.TransactionRepository, catRepo *repository.CategoryRepository, userID int64, accountIDs map[string]int64, txns []provider.Transaction) (int, error) {
	inserted := 0

	for _, pt := range txns {
		accountID, ok := accountIDs[pt.AccountID]
		if !ok {
			log.Printf("[Sync] Skipping transaction %s: unknown account %s", pt.TransactionID, pt.AccountID)
			continue
		}

		label := CategoryLabel(pt)
		txn := &models.Transaction{
			AccountID:             accountID,
			ProviderTransactionID: pt.TransactionID,
			Amount:                pt.Amount,
			Currency:              pt.ISOCurrencyCode,
			CategoryLabel:         label,
			MerchantName:          pt.MerchantName,
			PostedOn:              pt.Date,
		}

		wasInserted, err := txnRepo.InsertIgnore(txn)
		if err != nil {
			return 0, fmt.Errorf("inserting transaction %s: %w", pt.TransactionID, err)
		}
		if !wasInserted {
			continue
		}
		inserted++

		// Classify: uncategorized transactions stay unlinked
		if label == "" {
			continue
		}
		stored, err := txnRepo.GetByProviderTransactionID(pt.TransactionID)
		if err != nil {
			return 0, fmt.Errorf("reading back transaction %s: %w", pt.TransactionID, err)
		}
		categoryID, err := catRepo.Resolve(userID, label)
		if err != nil {
			return 0, fmt.Errorf("resolving category %q: %w", label, err)
		}
		if err := txnRepo.LinkCategory(stored.ID, categoryID); err != nil {
			return 0, fmt.Errorf("linking transaction %s: %w", pt.TransactionID, err)
		}
	}

	return inserted, nil
}

// ingestHoldings upserts the current positions and sweeps away the ones the
// provider stopped reporting.
func (s *Service) ingestHoldings(holdingRepo *repository.HoldingRepository, accountIDs map[string]int64, resp *provider.HoldingsResponse) (int, error) {
	if resp == nil {
		return 0, nil
	}

	securities := make(map[string]provider.Security, len(resp.Securities))
	for _, sec := range resp.Securities {
		securities[sec.SecurityID] = sec
	}

	syncStart := time.Now()
	touched := make(map[int64]bool)
	count := 0

	for _, ph := range resp.Holdings {
		accountID, ok := accountIDs[ph.AccountID]
		if !ok {
			log.Printf("[Sync] Skipping holding %s: unknown account %s", ph.SecurityID, ph.AccountID)
			continue
		}

		sec := securities[ph.SecurityID]
		holding := &models.Holding{
			AccountID:  accountID,
			SecurityID: ph.SecurityID,
			ExternalID: fmt.Sprintf("%s:%s", ph.AccountID, ph.SecurityID),
			Symbol:     sec.TickerSymbol,
			Name:       sec.Name,
			Quantity:   ph.Quantity,
			Price:      ph.InstitutionPrice,
			Value:      ph.InstitutionValue,
			Currency:   ph.ISOCurrencyCode,
		}
		if err := holdingRepo.Upsert(holding); err != nil {
			return 0, fmt.Errorf("upserting holding %s: %w", ph.SecurityID, err)
		}
		touched[accountID] = true
		count++
	}

	for accountID := range touched {
		if err := holdingRepo.DeleteStale(accountID, syncStart); err != nil {
			return 0, fmt.Errorf("sweeping stale holdings: %w", err)
		}
	}

	return count, nil
}

// LiveAccounts fetches the current account list for every linked connection
// straight from the provider, without persisting anything.
func (s *Service) LiveAccounts(userID int64) ([]provider.Account, error) {
	items, err := s.itemRepo.GetByUserID(userID)
	if err != nil {
		return nil, apperrors.Internal("loading provider items", err)
	}
	if len(items) == 0 {
		return nil, apperrors.NotLinked("provider")
	}

	accounts := make([]provider.Account, 0)
	for _, item := range items {
		accessToken, err := s.vault.Decrypt(item.AccessToken, item.TokenNonce, userID)
		if err != nil {
			return nil, apperrors.Internal("decrypting access token", err)
		}
		batch, err := s.client.GetAccounts(accessToken)
		if err != nil {
			return nil, apperrors.Provider("fetching accounts", err)
		}
		accounts = append(accounts, batch...)
	}
	return accounts, nil
}

// Unlink removes a connection and everything ingested through it: accounts,
// transactions, holdings and category links, all in one transaction. The
// user's categories survive.
func (s *Service) Unlink(userID int64, itemType string) error {
	item, err := s.itemRepo.GetByUserAndType(userID, itemType)
	if err != nil {
		return apperrors.Internal("loading provider item", err)
	}
	if item == nil {
		return apperrors.NotLinked(itemType)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Internal("beginning transaction", err)
	}
	defer tx.Rollback()

	if err := s.accountRepo.WithTx(tx).DeleteByUserAndItemType(userID, itemType); err != nil {
		return apperrors.Internal("deleting linked accounts", err)
	}
	if err := s.itemRepo.WithTx(tx).DeleteByUserAndType(userID, itemType); err != nil {
		return apperrors.Internal("deleting provider item", err)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Internal("committing unlink", err)
	}

	log.Printf("[Sync] Unlinked %s connection for user %d", itemType, userID)
	return nil
}

// UnlinkAll removes every linked connection and all data ingested through
// them, in one transaction. The user's categories survive.
func (s *Service) UnlinkAll(userID int64) error {
	items, err := s.itemRepo.GetByUserID(userID)
	if err != nil {
		return apperrors.Internal("loading provider items", err)
	}
	if len(items) == 0 {
		return apperrors.NotLinked("provider")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return apperrors.Internal("beginning transaction", err)
	}
	defer tx.Rollback()

	accountRepo := s.accountRepo.WithTx(tx)
	itemRepo := s.itemRepo.WithTx(tx)
	for _, item := range items {
		if err := accountRepo.DeleteByUserAndItemType(userID, item.ItemType); err != nil {
			return apperrors.Internal("deleting linked accounts", err)
		}
		if err := itemRepo.DeleteByUserAndType(userID, item.ItemType); err != nil {
			return apperrors.Internal("deleting provider item", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Internal("committing unlink", err)
	}

	log.Printf("[Sync] Unlinked all connections for user %d", userID)
	return nil
}

// fail records a failed run on the job and, when known, the item. It returns
// the original error for the caller.
func (s *Service) fail(jobID string, item *models.ProviderItem, err error) error {
	if jobErr := s.jobRepo.Fail(jobID, err.Error()); jobErr != nil {
		log.Printf("[Sync] Recording job failure %s: %v", jobID, jobErr)
	}
	if item != nil {
		if itemErr := s.itemRepo.UpdateSyncStatus(item.ID, models.SyncStatusError, err.Error()); itemErr != nil {
			log.Printf("[Sync] Recording item failure %d: %v", item.ID, itemErr)
		}
	}
	return err
}
