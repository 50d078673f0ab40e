package pricing

import (
	"context"
	"fmt"

	"bidsage/internal/store"
)

// Advisor answers price questions for a cohort by pairing the store
// collaborator with the pure recommendation function.
type Advisor struct {
	store store.Store
}

// NewAdvisor returns an Advisor reading from s.
func NewAdvisor(s store.Store) *Advisor {
	return &Advisor{store: s}
}

// RecommendFor queries the cohort's settled prices in chronological
// order and computes a recommendation. Insufficient data comes back as
// ErrNoSamples / ErrNotEnoughSamples, storage problems as a wrapped
// query error.
func (a *Advisor) RecommendFor(ctx context.Context, f store.Filter) (*Recommendation, error) {
	f.RequireBid = true
	sales, err := a.store.QuerySales(ctx, f, store.OrderChronological, 0)
	if err != nil {
		return nil, fmt.Errorf("querying cohort: %w", err)
	}

	prices := make([]int64, 0, len(sales))
	for _, rec := range sales {
		if rec.WinningBid == nil {
			continue
		}
		prices = append(prices, *rec.WinningBid)
	}

	return Recommend(prices)
}

// CohortSales returns the cohort's settled sales for display, highest
// price first.
func (a *Advisor) CohortSales(ctx context.Context, f store.Filter, limit int) ([]*store.SaleRecord, error) {
	f.RequireBid = true
	sales, err := a.store.QuerySales(ctx, f, store.OrderPriceDesc, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cohort sales: %w", err)
	}
	return sales, nil
}
