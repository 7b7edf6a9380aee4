package transfer

import (
	"context"

	"stockledger/internal/core/id"
	"stockledger/internal/core/numerator"
	"stockledger/internal/domain"
	"stockledger/internal/domain/transaction"
)

// Service provides business operations for transfers.
type Service struct {
	controller *transaction.Controller
	numbering  *numerator.Options
}

func NewService(controller *transaction.Controller) *Service {
	return &Service{
		controller: controller,
		numbering: &numerator.Options{
			Strategy:  NumeratorStrategy,
			RangeSize: RangeSize,
		},
	}
}

// Create creates a transfer. When final, every line runs a ledger transfer
// from the source to its destination; a failed line undoes earlier ones.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*transaction.Result, error) {
	txReq := req.toTransaction()
	txReq.Numbering = s.numbering
	return s.controller.Create(ctx, txReq)
}

func (s *Service) Complete(ctx context.Context, transferID id.ID) (*transaction.Result, error) {
	return s.controller.Complete(ctx, transferID, transaction.ExpectKind(Kind))
}

func (s *Service) Get(ctx context.Context, transferID id.ID) (*transaction.Transaction, error) {
	return s.controller.Get(ctx, transferID, transaction.ExpectKind(Kind))
}

func (s *Service) List(ctx context.Context, filter transaction.ListFilter) (domain.ListResult[*transaction.Transaction], error) {
	kind := Kind
	filter.Kind = &kind
	return s.controller.List(ctx, filter)
}
