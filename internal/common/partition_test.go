package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionID(t *testing.T) {
	p := Partition{Date: "20250727", Hour: 3}
	assert.Equal(t, "20250727/3", p.ID())
	assert.Equal(t, "node_fills_by_block/hourly/20250727/3.lz4", p.RawKey("node_fills_by_block/hourly"))
	assert.Equal(t, "node_fills_by_block/hourly/20250727/3.parquet", p.ParquetKey("node_fills_by_block/hourly"))
}

func TestParsePartitionID(t *testing.T) {
	p, err := ParsePartitionID("20250727/23")
	require.NoError(t, err)
	assert.Equal(t, Partition{Date: "20250727", Hour: 23}, p)

	for _, id := range []string{"", "20250727", "20250727/24", "2025072/3", "20250727/3/4", "20250727/x"} {
		_, err := ParsePartitionID(id)
		assert.Error(t, err, "id %q", id)
	}
}

func TestPartitionFromKey(t *testing.T) {
	tests := []struct {
		key  string
		want Partition
	}{
		{"node_fills_by_block/hourly/20250727/0.lz4", Partition{"20250727", 0}},
		{"data/hl-mainnet-node-data/node_fills_by_block/hourly/20250801/15.parquet", Partition{"20250801", 15}},
		{"20250727/7.parquet", Partition{"20250727", 7}},
	}
	for _, tt := range tests {
		p, err := PartitionFromKey(tt.key)
		require.NoError(t, err, tt.key)
		assert.Equal(t, tt.want, p, tt.key)
	}

	_, err := PartitionFromKey("hourly/notadate/5.parquet")
	assert.Error(t, err)
}

func TestDateRange(t *testing.T) {
	dates, err := DateRange("20250730", "20250802")
	require.NoError(t, err)
	assert.Equal(t, []string{"20250730", "20250731", "20250801", "20250802"}, dates)

	_, err = DateRange("20250802", "20250730")
	assert.Error(t, err)
}

func TestParseHours(t *testing.T) {
	hours, err := ParseHours("0-3")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3}, hours)

	hours, err = ParseHours("0,12,23")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 12, 23}, hours)

	hours, err = ParseHours("5")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, hours)

	for _, s := range []string{"24", "3-1", "a", "0,25"} {
		_, err := ParseHours(s)
		assert.Error(t, err, s)
	}
}

func TestSortPartitions(t *testing.T) {
	parts := []Partition{{"20250728", 0}, {"20250727", 12}, {"20250727", 3}}
	SortPartitions(parts)
	assert.Equal(t, []Partition{{"20250727", 3}, {"20250727", 12}, {"20250728", 0}}, parts)
}
