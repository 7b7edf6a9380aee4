package adjustment

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain"
	"stockledger/internal/domain/transaction"
)

// Service provides business operations for adjustments.
type Service struct {
	controller *transaction.Controller
	numbering  *numerator.Options
}

// NewService creates a new adjustment service.
func NewService(controller *transaction.Controller) *Service {
	return &Service{
		controller: controller,
		numbering: &numerator.Options{
			Strategy:  NumeratorStrategy,
			RangeSize: RangeSize,
		},
	}
}

// Create creates an adjustment. When final, each line adjusts the balance
// up or down by its quantity; a decrease needs the stock to be there.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*transaction.Result, error) {
	txReq := req.toTransaction()
	txReq.Numbering = s.numbering
	return s.controller.Create(ctx, txReq)
}

// Complete finalizes a draft adjustment.
func (s *Service) Complete(ctx context.Context, adjustmentID id.ID) (*transaction.Result, error) {
	return s.controller.Complete(ctx, adjustmentID, transaction.ExpectKind(Kind))
}

// Get retrieves an adjustment with lines.
func (s *Service) Get(ctx context.Context, adjustmentID id.ID) (*transaction.Transaction, error) {
	return s.controller.Get(ctx, adjustmentID, transaction.ExpectKind(Kind))
}

// List retrieves adjustments with filtering.
func (s *Service) List(ctx context.Context, filter transaction.ListFilter) (domain.ListResult[*transaction.Transaction], error) {
	kind := Kind
	filter.Kind = &kind
	return s.controller.List(ctx, filter)
}
