package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vigil-data/vigil/internal/fills"
)

var copyFillsSQL = fmt.Sprintf(
	"COPY fills (%s) FROM STDIN WITH (FORMAT text, HEADER true)",
	strings.Join(fills.DBNames(), ","),
)

const insertProgressSQL = `INSERT INTO load_progress (file_id, rows_loaded)
VALUES ($1, $2)
ON CONFLICT (file_id) DO NOTHING`

// Loader streams normalized frames into the fills table. The copy function
// is a seam over pgx's raw COPY entry point so the transactional behavior is
// testable without a server.
type Loader struct {
	copyFrom func(ctx context.Context, tx pgx.Tx, r io.Reader, sql string) (pgconn.CommandTag, error)
}

func NewLoader() *Loader {
	return &Loader{copyFrom: pgCopyFrom}
}

func pgCopyFrom(ctx context.Context, tx pgx.Tx, r io.Reader, sql string) (pgconn.CommandTag, error) {
	return tx.Conn().PgConn().CopyFrom(ctx, r, sql)
}

// Load copies the frame into the fills table and records the partition in the
// progress ledger, all inside the caller's transaction: after commit either
// both are visible or neither is. The copy uses the bulk wire protocol, never
// row-by-row inserts. Returns the number of rows copied.
func (l *Loader) Load(ctx context.Context, tx pgx.Tx, frame *fills.Frame, partitionID string) (int64, error) {
	if frame.NumRows() == 0 {
		// Still ledger the partition so re-runs skip it before any I/O.
		if _, err := tx.Exec(ctx, insertProgressSQL, partitionID, int64(0)); err != nil {
			return 0, fmt.Errorf("record progress for %s: %w", partitionID, err)
		}
		return 0, nil
	}

	var buf bytes.Buffer
	if err := encodeCopyText(&buf, frame); err != nil {
		return 0, fmt.Errorf("encode copy stream for %s: %w", partitionID, err)
	}

	tag, err := l.copyFrom(ctx, tx, &buf, copyFillsSQL)
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", partitionID, err)
	}
	rows := tag.RowsAffected()

	if _, err := tx.Exec(ctx, insertProgressSQL, partitionID, rows); err != nil {
		return 0, fmt.Errorf("record progress for %s: %w", partitionID, err)
	}

	return rows, nil
}

// Truncate wipes the fills table and the progress ledger together; leaving
// the ledger behind would permanently mask the reload.
func (l *Loader) Truncate(ctx context.Context, tx pgx.Tx) error {
	if _, err := tx.Exec(ctx, "TRUNCATE fills"); err != nil {
		return fmt.Errorf("truncate fills: %w", err)
	}
	if _, err := tx.Exec(ctx, "TRUNCATE load_progress"); err != nil {
		return fmt.Errorf("truncate load_progress: %w", err)
	}
	return nil
}
