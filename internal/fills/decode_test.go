package fills

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/pierrec/lz4/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-data/vigil/internal/common"
)

func compress(t *testing.T, data string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	_, err := w.Write([]byte(data))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestDecodeFlattensInOrder(t *testing.T) {
	raw := compress(t, `{"block_time":100,"events":[["u1",{"coin":"BTC","px":"1.5"}],["u2",{"coin":"ETH"}]]}
{"block_time":200,"events":[["u3",{"coin":"SOL","oid":42}]]}
`)

	records, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "u1", records[0]["user"])
	assert.Equal(t, int64(100), records[0]["block_time"])
	assert.Equal(t, "BTC", records[0]["coin"])
	assert.Equal(t, "1.5", records[0]["px"])

	assert.Equal(t, "u2", records[1]["user"])
	assert.Equal(t, int64(100), records[1]["block_time"])

	assert.Equal(t, "u3", records[2]["user"])
	assert.Equal(t, int64(200), records[2]["block_time"])
	assert.Equal(t, json.Number("42"), records[2]["oid"])
}

func TestDecodeSkipsBlankLines(t *testing.T) {
	raw := compress(t, "\n{\"block_time\":1,\"events\":[[\"u\",{}]]}\n\n   \n")
	records, err := Decode(raw)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestDecodeEmptyPartition(t *testing.T) {
	records, err := Decode(compress(t, ""))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecodeMalformedLineFailsPartition(t *testing.T) {
	raw := compress(t, `{"block_time":1,"events":[["u",{}]]}
{not json}
`)
	_, err := Decode(raw)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCorruptData)
}

func TestDecodeCorruptFrame(t *testing.T) {
	_, err := Decode([]byte("definitely not an lz4 frame"))
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrCorruptData)
}

func TestDecodePreservesNestedLiquidation(t *testing.T) {
	raw := compress(t, `{"block_time":5,"events":[["u",{"liquidation":{"liquidatedUser":"0xabc","markPx":"12.5","method":"market"}}]]}`)
	records, err := Decode(raw)
	require.NoError(t, err)
	require.Len(t, records, 1)

	liq, ok := records[0]["liquidation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0xabc", liq["liquidatedUser"])
}
