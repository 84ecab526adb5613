package fills

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-data/vigil/internal/common"
)

func TestNormalizeSchemaUnionStability(t *testing.T) {
	// Two batches with disjoint field sets beyond the shared subset must
	// yield frames with identical column sets and order.
	batchA := []Record{{"user": "u1", "coin": "BTC", "px": "1.0"}}
	batchB := []Record{{"user": "u2", "coin": "ETH", "oid": json.Number("7")}}

	frameA, err := Normalize(batchA)
	require.NoError(t, err)
	frameB, err := Normalize(batchB)
	require.NoError(t, err)

	assert.Equal(t, len(Columns), frameA.NumCols())
	assert.Equal(t, frameA.NumCols(), frameB.NumCols())

	// px present in A, absent (null) in B
	assert.Equal(t, "1.0", frameA.ColumnByName("px")[0])
	assert.Nil(t, frameB.ColumnByName("px")[0])
	// oid absent (null) in A, present in B
	assert.Nil(t, frameA.ColumnByName("oid")[0])
	assert.Equal(t, int64(7), frameB.ColumnByName("oid")[0])
}

func TestNormalizeDropsUnknownFields(t *testing.T) {
	frame, err := Normalize([]Record{{"user": "u1", "someFutureField": "x"}})
	require.NoError(t, err)
	assert.Equal(t, len(Columns), frame.NumCols())
	assert.Equal(t, -1, ColumnIndex("someFutureField"))
}

func TestNormalizeLiquidationTextEncoded(t *testing.T) {
	frame, err := Normalize([]Record{
		{"user": "u1", "liquidation": map[string]any{"liquidatedUser": "0xabc", "markPx": "2.5"}},
		{"user": "u2"},
	})
	require.NoError(t, err)

	liq := frame.ColumnByName("liquidation")
	require.Len(t, liq, 2)
	assert.JSONEq(t, `{"liquidatedUser":"0xabc","markPx":"2.5"}`, liq[0].(string))
	assert.Nil(t, liq[1])
}

func TestNormalizeCoercion(t *testing.T) {
	frame, err := Normalize([]Record{{
		"user":       "u1",
		"time":       json.Number("1753600000123"),
		"block_time": int64(1753600000123),
		"crossed":    true,
		"tid":        json.Number("987654321098765"),
		"fee":        json.Number("0.05"),
	}})
	require.NoError(t, err)

	assert.Equal(t, int64(1753600000123), frame.ColumnByName("time")[0])
	assert.Equal(t, int64(1753600000123), frame.ColumnByName("block_time")[0])
	assert.Equal(t, true, frame.ColumnByName("crossed")[0])
	assert.Equal(t, int64(987654321098765), frame.ColumnByName("tid")[0])
	// numeric upstream value for a text column keeps its decimal form
	assert.Equal(t, "0.05", frame.ColumnByName("fee")[0])
}

func TestNormalizeSchemaMismatch(t *testing.T) {
	_, err := Normalize([]Record{{"crossed": "not a bool"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSchemaMismatch)

	_, err = Normalize([]Record{{"oid": json.Number("1.5")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrSchemaMismatch)
}

func TestNormalizeEmptyBatch(t *testing.T) {
	frame, err := Normalize(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, frame.NumRows())
	assert.Equal(t, len(Columns), frame.NumCols())
}

func TestNormalizeRowOrderPreserved(t *testing.T) {
	records := []Record{
		{"user": "u1", "block_time": int64(100)},
		{"user": "u2", "block_time": int64(100)},
		{"user": "u3", "block_time": int64(200)},
	}
	frame, err := Normalize(records)
	require.NoError(t, err)
	require.Equal(t, 3, frame.NumRows())

	users := frame.ColumnByName("user")
	assert.Equal(t, []any{"u1", "u2", "u3"}, users)
	times := frame.ColumnByName("block_time")
	assert.Equal(t, []any{int64(100), int64(100), int64(200)}, times)
}
