package sale

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain"
	"stockledger/internal/domain/transaction"
)

// Service provides business operations for sales.
type Service struct {
	controller *transaction.Controller
	numbering  *numerator.Options
}

// NewService creates a new sale service.
func NewService(controller *transaction.Controller) *Service {
	return &Service{
		controller: controller,
		numbering:  &numerator.Options{Strategy: NumeratorStrategy},
	}
}

// Create creates a sale. A final sale decreases stock at its location for
// every line, or fails without touching any balance.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*transaction.Result, error) {
	txReq := req.toTransaction()
	txReq.Numbering = s.numbering
	return s.controller.Create(ctx, txReq)
}

// Complete finalizes a draft sale.
func (s *Service) Complete(ctx context.Context, saleID id.ID) (*transaction.Result, error) {
	return s.controller.Complete(ctx, saleID, transaction.ExpectKind(Kind))
}

// Get retrieves a sale with lines.
func (s *Service) Get(ctx context.Context, saleID id.ID) (*transaction.Transaction, error) {
	return s.controller.Get(ctx, saleID, transaction.ExpectKind(Kind))
}

// List retrieves sales with filtering.
func (s *Service) List(ctx context.Context, filter transaction.ListFilter) (domain.ListResult[*transaction.Transaction], error) {
	kind := Kind
	filter.Kind = &kind
	return s.controller.List(ctx, filter)
}
