package stock

import (
	"stockledger/internal/core/id"
)

// MutationOption annotates the movement a mutation records.
type MutationOption func(*mutation)

type mutation struct {
	recorderID *id.ID
	reason     string
}

// WithRecorder links the movement to the transaction that caused it.
func WithRecorder(transactionID id.ID) MutationOption {
	return func(m *mutation) {
		m.recorderID = &transactionID
	}
}

// WithReason stores a free-form reason on the movement.
func WithReason(reason string) MutationOption {
	return func(m *mutation) {
		m.reason = reason
	}
}

func applyOptions(opts []MutationOption) mutation {
	var m mutation
	for _, o := range opts {
		o(&m)
	}
	return m
}
