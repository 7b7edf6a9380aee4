package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
	"stockledger/internal/domain/registers/stock"
)

type balanceKey struct {
	variantID  id.ID
	locationID id.ID
}

// StockRepo keeps balances and the movement journal in memory.
type StockRepo struct {
	mu        sync.RWMutex
	balances  map[balanceKey]entity.StockBalance
	movements []entity.StockMovement
}

var _ stock.Repository = (*StockRepo)(nil)

// NewStockRepo creates an empty StockRepo.
func NewStockRepo() *StockRepo {
	return &StockRepo{
		balances: make(map[balanceKey]entity.StockBalance),
	}
}

func (r *StockRepo) GetBalance(_ context.Context, variantID, locationID id.ID) (entity.StockBalance, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.balances[balanceKey{variantID, locationID}]
	return b, ok, nil
}

func (r *StockRepo) Credit(_ context.Context, m *entity.StockMovement) (types.Quantity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := balanceKey{m.VariantID, m.LocationID}
	b, ok := r.balances[k]
	if !ok {
		b = entity.StockBalance{VariantID: m.VariantID, LocationID: m.LocationID, Quantity: types.Zero()}
	}
	b.Quantity = types.RoundQuantity(b.Quantity.Add(m.Quantity))
	b.UpdatedAt = time.Now().UTC()
	r.balances[k] = b

	m.BalanceAfter = b.Quantity
	r.movements = append(r.movements, *m)
	return b.Quantity, nil
}

func (r *StockRepo) Debit(_ context.Context, m *entity.StockMovement) (stock.DebitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := balanceKey{m.VariantID, m.LocationID}
	b, ok := r.balances[k]
	if !ok {
		return stock.DebitResult{Exists: false, Balance: types.Zero()}, nil
	}
	if b.Quantity.LessThan(m.Quantity) {
		return stock.DebitResult{Exists: true, Balance: b.Quantity}, nil
	}

	b.Quantity = types.RoundQuantity(b.Quantity.Sub(m.Quantity))
	b.UpdatedAt = time.Now().UTC()
	r.balances[k] = b

	m.BalanceAfter = b.Quantity
	r.movements = append(r.movements, *m)
	return stock.DebitResult{Applied: true, Exists: true, Balance: b.Quantity}, nil
}

func (r *StockRepo) ListBalances(_ context.Context, filter stock.BalanceFilter) ([]entity.StockBalance, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.StockBalance, 0)
	for k, b := range r.balances {
		if filter.VariantID != nil && k.variantID != *filter.VariantID {
			continue
		}
		if filter.LocationID != nil && k.locationID != *filter.LocationID {
			continue
		}
		if filter.ExcludeZero && b.Quantity.IsZero() {
			continue
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].VariantID != out[j].VariantID {
			return id.Less(out[i].VariantID, out[j].VariantID)
		}
		return id.Less(out[i].LocationID, out[j].LocationID)
	})
	return out, nil
}

func (r *StockRepo) GetMovementHistory(_ context.Context, variantID id.ID, filter stock.MovementFilter) ([]entity.StockMovement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]entity.StockMovement, 0)
	skipped := 0
	// Journal is append-only, so walking backwards yields newest first.
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if !matchMovement(&m, variantID, filter) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, m)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func matchMovement(m *entity.StockMovement, variantID id.ID, f stock.MovementFilter) bool {
	switch {
	case m.VariantID != variantID:
		return false
	case f.LocationID != nil && m.LocationID != *f.LocationID:
		return false
	case f.RecorderID != nil && (m.RecorderID == nil || *m.RecorderID != *f.RecorderID):
		return false
	case f.RecordType != nil && m.RecordType != *f.RecordType:
		return false
	case f.FromDate != nil && m.CreatedAt.Before(*f.FromDate):
		return false
	case f.ToDate != nil && !m.CreatedAt.Before(*f.ToDate):
		return false
	}
	return true
}
