// Package demo seeds sample data for demonstration deployments.
package demo

import (
	"fmt"
	"log"
	"time"

	"pocketledger/internal/auth"
	"pocketledger/internal/database"
	"pocketledger/internal/models"
	"pocketledger/internal/repository"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "demo1234"
)

// Seeder populates the database with a demo user whose accounts and
// transactions look like the output of a real provider sync, so the API can
// be explored without linking a provider.
type Seeder struct {
	db           *database.DB
	userRepo     *repository.UserRepository
	categoryRepo *repository.CategoryRepository
	accountRepo  *repository.AccountRepository
	txnRepo      *repository.TransactionRepository
	holdingRepo  *repository.HoldingRepository
	goalRepo     *repository.GoalRepository
	settingsRepo *repository.SettingsRepository
}

// NewSeeder creates a new demo data seeder.
func NewSeeder(db *database.DB) *Seeder {
	return &Seeder{
		db:           db,
		userRepo:     repository.NewUserRepository(db),
		categoryRepo: repository.NewCategoryRepository(db),
		accountRepo:  repository.NewAccountRepository(db),
		txnRepo:      repository.NewTransactionRepository(db),
		holdingRepo:  repository.NewHoldingRepository(db),
		goalRepo:     repository.NewGoalRepository(db),
		settingsRepo: repository.NewSettingsRepository(db),
	}
}

// SeedIfAbsent seeds demo data unless the demo user already exists.
func (s *Seeder) SeedIfAbsent() error {
	exists, err := s.userRepo.EmailExists(demoEmail)
	if err != nil {
		return err
	}
	if exists {
		log.Println("[Demo] Demo user already present, skipping seed")
		return nil
	}

	log.Println("[Demo] Seeding demo data...")
	return s.seed()
}

func (s *Seeder) seed() error {
	passwordHash, err := auth.HashPassword(demoPassword)
	if err != nil {
		return err
	}

	userID, err := s.userRepo.Create(&models.User{
		Email:        demoEmail,
		PasswordHash: passwordHash,
		Name:         "Demo User",
		CashBalance:  420.00,
	})
	if err != nil {
		return err
	}

	if err := s.settingsRepo.Upsert(&models.UserSettings{
		UserID:             userID,
		EmailNotifications: true,
		PushNotifications:  true,
	}); err != nil {
		return err
	}

	if err := s.seedBank(userID); err != nil {
		return err
	}
	if err := s.seedInvestments(userID); err != nil {
		return err
	}
	if err := s.seedGoals(userID); err != nil {
		return err
	}

	log.Println("[Demo] ========================================")
	log.Println("[Demo] Demo mode enabled. Login with:")
	log.Printf("[Demo]   Email:    %s", demoEmail)
	log.Printf("[Demo]   Password: %s", demoPassword)
	log.Println("[Demo] ========================================")
	return nil
}

// seedBank creates a checking and a credit account with four weeks of
// categorized spending.
func (s *Seeder) seedBank(userID int64) error {
	checking := &models.LinkedAccount{
		UserID:            userID,
		ProviderAccountID: "demo-checking",
		Name:              "Everyday Checking",
		AccountType:       "depository",
		Subtype:           "checking",
		CurrentBalance:    2840.50,
		Currency:          "USD",
	}
	credit := &models.LinkedAccount{
		UserID:            userID,
		ProviderAccountID: "demo-credit",
		Name:              "Rewards Card",
		AccountType:       "credit",
		Subtype:           "credit card",
		CurrentBalance:    -612.35,
		Currency:          "USD",
	}
	for _, acc := range []*models.LinkedAccount{checking, credit} {
		if err := s.accountRepo.Upsert(acc); err != nil {
			return err
		}
		stored, err := s.accountRepo.GetByProviderAccountID(acc.ProviderAccountID)
		if err != nil {
			return err
		}
		acc.ID = stored.ID
	}

	weekly := func(limit float64) *float64 { return &limit }
	for _, cat := range []*models.Category{
		{UserID: userID, Name: "Food And Drink", Color: "#f59e0b", WeeklyLimit: weekly(150)},
		{UserID: userID, Name: "Travel", Color: "#6366f1"},
		{UserID: userID, Name: "Entertainment", Color: "#ec4899", WeeklyLimit: weekly(60)},
		{UserID: userID, Name: "General Merchandise", Color: "#10b981"},
	} {
		if _, err := s.categoryRepo.Create(cat); err != nil {
			return err
		}
	}

	type spend struct {
		accountID int64
		merchant  string
		category  string
		amount    float64
		daysAgo   int
	}
	spends := []spend{
		{checking.ID, "Corner Coffee", "Food And Drink", 4.50, 1},
		{checking.ID, "Green Grocer", "Food And Drink", 62.18, 2},
		{credit.ID, "Thai Palace", "Food And Drink", 38.40, 3},
		{credit.ID, "Metro Transit", "Travel", 2.75, 1},
		{credit.ID, "City Cabs", "Travel", 18.20, 5},
		{checking.ID, "Streamflix", "Entertainment", 15.99, 4},
		{credit.ID, "Cinema Twelve", "Entertainment", 24.00, 9},
		{credit.ID, "Hardware Depot", "General Merchandise", 84.12, 6},
		{checking.ID, "Corner Coffee", "Food And Drink", 4.50, 8},
		{checking.ID, "Green Grocer", "Food And Drink", 57.03, 9},
		{credit.ID, "Metro Transit", "Travel", 2.75, 12},
		{checking.ID, "Book Nook", "General Merchandise", 21.50, 15},
		{credit.ID, "Thai Palace", "Food And Drink", 41.10, 17},
		{checking.ID, "Streamflix", "Entertainment", 15.99, 25},
		{credit.ID, "Airline Direct", "Travel", 248.00, 26},
	}

	now := time.Now()
	for i, sp := range spends {
		txn := &models.Transaction{
			AccountID:             sp.accountID,
			ProviderTransactionID: fmt.Sprintf("demo-txn-%03d", i+1),
			Amount:                sp.amount,
			Currency:              "USD",
			CategoryLabel:         sp.category,
			MerchantName:          sp.merchant,
			PostedOn:              now.AddDate(0, 0, -sp.daysAgo).Format("2006-01-02"),
		}
		inserted, err := s.txnRepo.InsertIgnore(txn)
		if err != nil {
			return err
		}
		if !inserted {
			continue
		}
		stored, err := s.txnRepo.GetByProviderTransactionID(txn.ProviderTransactionID)
		if err != nil {
			return err
		}
		categoryID, err := s.categoryRepo.Resolve(userID, sp.category)
		if err != nil {
			return err
		}
		if err := s.txnRepo.LinkCategory(stored.ID, categoryID); err != nil {
			return err
		}
	}

	log.Printf("[Demo] Seeded 2 bank accounts with %d transactions", len(spends))
	return nil
}

// seedInvestments creates a brokerage account holding a small index portfolio.
func (s *Seeder) seedInvestments(userID int64) error {
	brokerage := &models.LinkedAccount{
		UserID:            userID,
		ProviderAccountID: "demo-brokerage",
		Name:              "Index Brokerage",
		AccountType:       "investment",
		Subtype:           "brokerage",
		CurrentBalance:    18432.90,
		Currency:          "USD",
	}
	if err := s.accountRepo.Upsert(brokerage); err != nil {
		return err
	}
	stored, err := s.accountRepo.GetByProviderAccountID(brokerage.ProviderAccountID)
	if err != nil {
		return err
	}

	holdings := []*models.Holding{
		{SecurityID: "demo-sec-vti", Symbol: "VTI", Name: "Total Stock Market ETF", Quantity: 42, Price: 265.10, Currency: "USD"},
		{SecurityID: "demo-sec-bnd", Symbol: "BND", Name: "Total Bond Market ETF", Quantity: 60, Price: 72.45, Currency: "USD"},
		{SecurityID: "demo-sec-vxus", Symbol: "VXUS", Name: "Total International ETF", Quantity: 48, Price: 61.30, Currency: "USD"},
	}
	for _, h := range holdings {
		h.AccountID = stored.ID
		h.ExternalID = fmt.Sprintf("%s:%s", brokerage.ProviderAccountID, h.SecurityID)
		h.Value = h.Quantity * h.Price
		if err := s.holdingRepo.Upsert(h); err != nil {
			return err
		}
	}

	log.Printf("[Demo] Seeded 1 investment account with %d holdings", len(holdings))
	return nil
}

func (s *Seeder) seedGoals(userID int64) error {
	vacation := "2027-06-01"
	emergency := "2026-12-31"
	goals := []*models.SavingsGoal{
		{UserID: userID, Name: "Emergency fund", TargetAmount: 10000, CurrentAmount: 6400, TargetDate: &emergency, Status: "active"},
		{UserID: userID, Name: "Vacation", TargetAmount: 3000, CurrentAmount: 850, TargetDate: &vacation, Status: "active"},
		{UserID: userID, Name: "New laptop", TargetAmount: 1500, CurrentAmount: 1500, Status: "reached"},
	}
	for _, g := range goals {
		if _, err := s.goalRepo.Create(g); err != nil {
			return err
		}
	}

	log.Printf("[Demo] Seeded %d savings goals", len(goals))
	return nil
}
