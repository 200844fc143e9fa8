package session

import (
	"context"

	"github.com/you/trisonapp/domain"
)

// Rewards exposes the authenticated loyalty endpoints through the
// session's refresh-and-retry door, so a mid-call token expiry is
// transparent to screens.
type Rewards struct {
	store *Store
	api   domain.RewardsAPI
}

// NewRewards creates a rewards facade over the session store.
func NewRewards(store *Store, api domain.RewardsAPI) *Rewards {
	return &Rewards{store: store, api: api}
}

// Balance returns the current points balance.
func (r *Rewards) Balance(ctx context.Context) (int, error) {
	var balance int
	err := r.store.Do(ctx, func(ctx context.Context, accessToken string) error {
		n, err := r.api.PointsBalance(ctx, accessToken)
		if err != nil {
			return err
		}
		balance = n
		return nil
	})
	return balance, err
}

// Transactions pages through the points ledger.
func (r *Rewards) Transactions(ctx context.Context, q domain.TransactionQuery) (*domain.TransactionPage, error) {
	var page *domain.TransactionPage
	err := r.store.Do(ctx, func(ctx context.Context, accessToken string) error {
		p, err := r.api.PointsTransactions(ctx, accessToken, q)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	return page, err
}

// Summary returns the aggregated points view.
func (r *Rewards) Summary(ctx context.Context) (*domain.PointsSummary, error) {
	var summary *domain.PointsSummary
	err := r.store.Do(ctx, func(ctx context.Context, accessToken string) error {
		s, err := r.api.PointsSummary(ctx, accessToken)
		if err != nil {
			return err
		}
		summary = s
		return nil
	})
	return summary, err
}

// Scan submits a scanned QR code for points.
func (r *Rewards) Scan(ctx context.Context, code string) (*domain.ScanResult, error) {
	var result *domain.ScanResult
	err := r.store.Do(ctx, func(ctx context.Context, accessToken string) error {
		res, err := r.api.ScanQR(ctx, accessToken, code)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}

// History pages through the scan history.
func (r *Rewards) History(ctx context.Context, limit, offset int) (*domain.ScanHistoryPage, error) {
	var page *domain.ScanHistoryPage
	err := r.store.Do(ctx, func(ctx context.Context, accessToken string) error {
		p, err := r.api.ScanHistory(ctx, accessToken, limit, offset)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	return page, err
}

// Products lists the catalog.
func (r *Rewards) Products(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	err := r.store.Do(ctx, func(ctx context.Context, accessToken string) error {
		ps, err := r.api.Products(ctx, accessToken)
		if err != nil {
			return err
		}
		products = ps
		return nil
	})
	return products, err
}
