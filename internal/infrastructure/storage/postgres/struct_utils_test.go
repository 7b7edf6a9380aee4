package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/core/entity"
	"stockledger/internal/core/id"
	"stockledger/internal/core/types"
)

type testCatalog struct {
	entity.Catalog
	Symbol  string `db:"symbol"`
	Ignored string `db:"-"`
	Plain   string
}

func TestExtractDBColumns_Embedded(t *testing.T) {
	cols := ExtractDBColumns[testCatalog]()

	assert.Equal(t, []string{
		"id", "version", "created_at", "updated_at", "business_id", "name", "symbol",
	}, cols)
}

func TestStructToMap(t *testing.T) {
	c := testCatalog{
		Catalog: entity.NewCatalog(id.New(), "Piece"),
		Symbol:  "pcs",
		Ignored: "x",
	}

	m := StructToMap(&c)

	assert.Equal(t, c.ID, m["id"])
	assert.Equal(t, 1, m["version"])
	assert.Equal(t, "Piece", m["name"])
	assert.Equal(t, "pcs", m["symbol"])
	assert.NotContains(t, m, "-")
	assert.Len(t, m, 7)
}

func TestStructToMap_NonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	var nilPtr *testCatalog
	assert.Nil(t, StructToMap(nilPtr))
}

func TestValues_FollowsColumnOrder(t *testing.T) {
	recorder := id.New()
	mv := entity.NewStockMovement(&recorder, entity.RecordTypeReceipt, id.New(), id.New(), types.NewQuantity(3), "count")
	mv.CreatedAt = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	cols := []string{"quantity", "reason", "recorder_id"}
	row := Values(StructToMap(mv), cols)

	require.Len(t, row, 3)
	assert.Equal(t, "3", row[0].(types.Quantity).String())
	assert.Equal(t, "count", row[1])
	assert.Equal(t, &recorder, row[2])
}
