package document_repo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/apperror"
)

func TestParseOrderBy(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "date DESC"},
		{"date", "date ASC"},
		{"-number", "number DESC"},
		{"+created_at", "created_at ASC"},
	}
	for _, tt := range tests {
		got, err := parseOrderBy(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseOrderBy_RejectsUnknownColumn(t *testing.T) {
	_, err := parseOrderBy("-1; DROP TABLE transactions")
	assert.Equal(t, apperror.CodeValidation, apperror.CodeOf(err))
}

func TestColumns_SkipLines(t *testing.T) {
	assert.NotContains(t, headerColumns, "lines")
	assert.Contains(t, headerColumns, "business_id")
	assert.Contains(t, headerColumns, "total_amount")
	assert.Contains(t, lineColumns, "base_quantity")
}
