package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vigil-data/vigil/internal/fills"
)

type execCall struct {
	sql  string
	args []any
}

// recordingTx implements the narrow slice of pgx.Tx the loader touches; any
// other method panics through the embedded nil interface.
type recordingTx struct {
	pgx.Tx
	execs []execCall
}

func (t *recordingTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	t.execs = append(t.execs, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func oneRowFrame(t *testing.T) *fills.Frame {
	t.Helper()
	frame, err := fills.Normalize([]fills.Record{{
		"time":      int64(1753600000000),
		"user":      "0xabc",
		"coin":      "BTC",
		"closedPnl": "1.5",
	}})
	require.NoError(t, err)
	require.Equal(t, 1, frame.NumRows())
	return frame
}

func TestLoadCopiesThenRecordsProgressInSameTx(t *testing.T) {
	var copied string
	loader := &Loader{copyFrom: func(ctx context.Context, tx pgx.Tx, r io.Reader, sql string) (pgconn.CommandTag, error) {
		assert.Equal(t, copyFillsSQL, sql)
		raw, err := io.ReadAll(r)
		require.NoError(t, err)
		copied = string(raw)
		return pgconn.NewCommandTag("COPY 1"), nil
	}}
	tx := &recordingTx{}

	rows, err := loader.Load(context.Background(), tx, oneRowFrame(t), "20250727/5")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	// The copied stream starts with the header row of db column names.
	assert.True(t, strings.HasPrefix(copied, strings.Join(fills.DBNames(), "\t")+"\n"))

	require.Len(t, tx.execs, 1)
	assert.Equal(t, insertProgressSQL, tx.execs[0].sql)
	assert.Equal(t, []any{"20250727/5", int64(1)}, tx.execs[0].args)
}

func TestLoadCopyFailureLeavesNoLedgerEntry(t *testing.T) {
	loader := &Loader{copyFrom: func(ctx context.Context, tx pgx.Tx, r io.Reader, sql string) (pgconn.CommandTag, error) {
		return pgconn.CommandTag{}, errors.New("server closed the connection unexpectedly")
	}}
	tx := &recordingTx{}

	_, err := loader.Load(context.Background(), tx, oneRowFrame(t), "20250727/5")
	require.Error(t, err)
	// No progress insert may run once the copy failed; the caller rolls the
	// transaction back and a re-run picks the partition up again.
	assert.Empty(t, tx.execs)
}

func TestLoadEmptyFrameLedgersZeroWithoutCopy(t *testing.T) {
	copyCalled := false
	loader := &Loader{copyFrom: func(ctx context.Context, tx pgx.Tx, r io.Reader, sql string) (pgconn.CommandTag, error) {
		copyCalled = true
		return pgconn.NewCommandTag("COPY 0"), nil
	}}
	tx := &recordingTx{}

	frame, err := fills.Normalize(nil)
	require.NoError(t, err)

	rows, err := loader.Load(context.Background(), tx, frame, "20250727/6")
	require.NoError(t, err)
	assert.Zero(t, rows)
	assert.False(t, copyCalled)

	require.Len(t, tx.execs, 1)
	assert.Equal(t, insertProgressSQL, tx.execs[0].sql)
	assert.Equal(t, []any{"20250727/6", int64(0)}, tx.execs[0].args)
}
