package memory

import (
	"context"
	"sort"
	"sync"

	"stockledger/internal/core/apperror"
	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/domain"
	"stockledger/internal/domain/transaction"
)

// TransactionRepo stores transaction headers and lines in memory.
// Headers are stored without lines; reads return copies.
type TransactionRepo struct {
	mu      sync.RWMutex
	headers map[id.ID]transaction.Transaction
	lines   map[id.ID][]transaction.Line
}

var _ transaction.Repository = (*TransactionRepo)(nil)

func NewTransactionRepo() *TransactionRepo {
	return &TransactionRepo{
		headers: make(map[id.ID]transaction.Transaction),
		lines:   make(map[id.ID][]transaction.Line),
	}
}

func (r *TransactionRepo) Create(_ context.Context, t *transaction.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.headers[t.ID]; ok {
		return apperror.NewDuplicate("transaction", "id", t.ID.String())
	}
	for _, h := range r.headers {
		if h.BusinessID == t.BusinessID && h.Kind == t.Kind && h.Number == t.Number {
			return apperror.NewDuplicate("transaction", "number", t.Number)
		}
	}

	h := *t
	h.Lines = nil
	r.headers[t.ID] = h
	return nil
}

func (r *TransactionRepo) Delete(_ context.Context, txID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.headers, txID)
	return nil
}

func (r *TransactionRepo) SaveLines(_ context.Context, txID id.ID, lines []transaction.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.headers[txID]; !ok {
		return apperror.NewNotFound("transaction", txID)
	}
	stored := make([]transaction.Line, len(lines))
	copy(stored, lines)
	for i := range stored {
		stored[i].TransactionID = txID
	}
	r.lines[txID] = append(r.lines[txID], stored...)
	return nil
}

func (r *TransactionRepo) DeleteLines(_ context.Context, txID id.ID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.lines, txID)
	return nil
}

func (r *TransactionRepo) GetByID(_ context.Context, businessID, txID id.ID) (*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.headers[txID]
	if !ok || h.BusinessID != businessID {
		return nil, apperror.NewNotFound("transaction", txID)
	}
	return &h, nil
}

func (r *TransactionRepo) GetLines(_ context.Context, txID id.ID) ([]transaction.Line, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]transaction.Line, len(r.lines[txID]))
	copy(out, r.lines[txID])
	sort.Slice(out, func(i, j int) bool { return out[i].LineNo < out[j].LineNo })
	return out, nil
}

func (r *TransactionRepo) MarkFinal(_ context.Context, t *transaction.Transaction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.headers[t.ID]
	if !ok {
		return false, apperror.NewNotFound("transaction", t.ID)
	}
	if h.Status != entity.StatusDraft {
		return false, nil
	}

	h.Status = t.Status
	h.FinalizedAt = t.FinalizedAt
	h.Version = t.Version
	h.UpdatedAt = t.UpdatedAt
	r.headers[t.ID] = h
	return true, nil
}

func (r *TransactionRepo) List(_ context.Context, filter transaction.ListFilter) (domain.ListResult[*transaction.Transaction], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*transaction.Transaction
	for _, h := range r.headers {
		if !matchTransaction(&h, filter) {
			continue
		}
		matched = append(matched, &h)
	}
	sortTransactions(matched, filter.OrderBy)

	res := domain.ListResult[*transaction.Transaction]{
		Items:      []*transaction.Transaction{},
		TotalCount: int64(len(matched)),
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if filter.Offset < len(matched) {
		end := len(matched)
		if filter.Limit > 0 && filter.Offset+filter.Limit < end {
			end = filter.Offset + filter.Limit
		}
		res.Items = matched[filter.Offset:end]
	}
	return res, nil
}

func matchTransaction(t *transaction.Transaction, f transaction.ListFilter) bool {
	switch {
	case t.BusinessID != f.BusinessID:
		return false
	case f.Kind != nil && t.Kind != *f.Kind:
		return false
	case f.Status != nil && t.Status != *f.Status:
		return false
	case f.LocationID != nil && t.LocationID != *f.LocationID:
		return false
	case f.DateFrom != nil && t.Date.Before(*f.DateFrom):
		return false
	case f.DateTo != nil && !t.Date.Before(*f.DateTo):
		return false
	}
	return true
}

func sortTransactions(items []*transaction.Transaction, orderBy string) {
	desc := len(orderBy) > 0 && orderBy[0] == '-'
	field := orderBy
	if desc {
		field = orderBy[1:]
	}

	less := func(a, b *transaction.Transaction) bool {
		switch field {
		case "number":
			return a.Number < b.Number
		case "created_at", "createdAt":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			if a.Date.Equal(b.Date) {
				return a.Number < b.Number
			}
			return a.Date.Before(b.Date)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if desc {
			return less(items[j], items[i])
		}
		return less(items[i], items[j])
	})
}
