// Package services contains business logic for pocketledger.
package services

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"pocketledger/internal/repository"
)

// DefaultSpendingDays is the lookback window for the spending summary.
const DefaultSpendingDays = 7

// SpendingService aggregates ingested transactions into per-category spending
// totals. Totals are computed with decimal arithmetic so fractional cents
// never drift.
type SpendingService struct {
	txnRepo *repository.TransactionRepository
}

// NewSpendingService creates a new SpendingService.
func NewSpendingService(txnRepo *repository.TransactionRepository) *SpendingService {
	return &SpendingService{txnRepo: txnRepo}
}

// SpendingSummary is the full spending breakdown for one lookback window.
type SpendingSummary struct {
	Days       int                `json:"days"`
	Since      string             `json:"since"`
	TotalSpent float64            `json:"total_spent"`
	Categories []CategorySpending `json:"categories"`
}

// CategorySpending is one category's spend against its optional weekly limit.
type CategorySpending struct {
	CategoryID   int64    `json:"category_id"`
	CategoryName string   `json:"category_name"`
	Spent        float64  `json:"spent"`
	Transactions int      `json:"transactions"`
	WeeklyLimit  *float64 `json:"weekly_limit,omitempty"`
	Remaining    *float64 `json:"remaining,omitempty"`
	OverLimit    bool     `json:"over_limit"`
}

// Summary computes per-category spending over the last days days. Only
// outflows count; inflows and uncategorized transactions are excluded by the
// underlying query.
func (s *SpendingService) Summary(userID int64, days int) (*SpendingSummary, error) {
	if days <= 0 {
		days = DefaultSpendingDays
	}
	since := time.Now().AddDate(0, 0, -days).Format("2006-01-02")

	rows, err := s.txnRepo.GetSpendingSince(userID, since)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		name        string
		weeklyLimit *float64
		spent       decimal.Decimal
		count       int
	}
	buckets := make(map[int64]*bucket)
	total := decimal.Zero

	for _, row := range rows {
		amount := decimal.NewFromFloat(row.Amount)
		total = total.Add(amount)

		b, ok := buckets[row.CategoryID]
		if !ok {
			b = &bucket{name: row.CategoryName, weeklyLimit: row.WeeklyLimit}
			buckets[row.CategoryID] = b
		}
		b.spent = b.spent.Add(amount)
		b.count++
	}

	summary := &SpendingSummary{
		Days:       days,
		Since:      since,
		Categories: make([]CategorySpending, 0, len(buckets)),
	}
	summary.TotalSpent, _ = total.Round(2).Float64()

	for id, b := range buckets {
		cs := CategorySpending{
			CategoryID:   id,
			CategoryName: b.name,
			Transactions: b.count,
			WeeklyLimit:  b.weeklyLimit,
		}
		cs.Spent, _ = b.spent.Round(2).Float64()

		if b.weeklyLimit != nil {
			limit := decimal.NewFromFloat(*b.weeklyLimit)
			remaining, _ := limit.Sub(b.spent).Round(2).Float64()
			cs.Remaining = &remaining
			cs.OverLimit = b.spent.GreaterThan(limit)
		}
		summary.Categories = append(summary.Categories, cs)
	}

	sort.Slice(summary.Categories, func(i, j int) bool {
		return summary.Categories[i].Spent > summary.Categories[j].Spent
	})

	return summary, nil
}
