package sink

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/vigil-data/vigil/internal/fills"
)

// fillRow is the parquet schema of a normalized partition file. Field names
// keep the upstream spelling so mirrored files stay readable by existing
// notebook tooling; every field is optional because schema drift across
// partitions is expected.
type fillRow struct {
	Time          *int64  `parquet:"time,optional"`
	User          *string `parquet:"user,optional"`
	Coin          *string `parquet:"coin,optional"`
	Px            *string `parquet:"px,optional"`
	Sz            *string `parquet:"sz,optional"`
	Side          *string `parquet:"side,optional"`
	Dir           *string `parquet:"dir,optional"`
	StartPosition *string `parquet:"startPosition,optional"`
	ClosedPnl     *string `parquet:"closedPnl,optional"`
	Fee           *string `parquet:"fee,optional"`
	Crossed       *bool   `parquet:"crossed,optional"`
	Hash          *string `parquet:"hash,optional"`
	Oid           *int64  `parquet:"oid,optional"`
	Tid           *int64  `parquet:"tid,optional"`
	BlockTime     *int64  `parquet:"block_time,optional"`
	FeeToken      *string `parquet:"feeToken,optional"`
	TwapID        *int64  `parquet:"twapId,optional"`
	BuilderFee    *string `parquet:"builderFee,optional"`
	Cloid         *string `parquet:"cloid,optional"`
	Builder       *string `parquet:"builder,optional"`
	Liquidation   *string `parquet:"liquidation,optional"`
}

var writerOptions = []parquet.WriterOption{
	parquet.Compression(&parquet.Zstd),
	parquet.DataPageStatistics(true),
	parquet.PageBufferSize(8 * 1024 * 1024),
}

func encodeParquet(w io.Writer, frame *fills.Frame) error {
	pw := parquet.NewGenericWriter[fillRow](w, writerOptions...)
	rows := frameToRows(frame)
	for len(rows) > 0 {
		n, err := pw.Write(rows)
		if err != nil {
			return fmt.Errorf("write parquet rows: %w", err)
		}
		rows = rows[n:]
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

func decodeParquet(r io.ReaderAt, size int64) (*fills.Frame, error) {
	rows, err := parquet.Read[fillRow](r, size)
	if err != nil {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return rowsToFrame(rows)
}

func frameToRows(frame *fills.Frame) []fillRow {
	rows := make([]fillRow, frame.NumRows())
	c := func(name string, i int) any { return frame.ColumnByName(name)[i] }
	for i := range rows {
		rows[i] = fillRow{
			Time:          optInt(c("time", i)),
			User:          optStr(c("user", i)),
			Coin:          optStr(c("coin", i)),
			Px:            optStr(c("px", i)),
			Sz:            optStr(c("sz", i)),
			Side:          optStr(c("side", i)),
			Dir:           optStr(c("dir", i)),
			StartPosition: optStr(c("startPosition", i)),
			ClosedPnl:     optStr(c("closedPnl", i)),
			Fee:           optStr(c("fee", i)),
			Crossed:       optBool(c("crossed", i)),
			Hash:          optStr(c("hash", i)),
			Oid:           optInt(c("oid", i)),
			Tid:           optInt(c("tid", i)),
			BlockTime:     optInt(c("block_time", i)),
			FeeToken:      optStr(c("feeToken", i)),
			TwapID:        optInt(c("twapId", i)),
			BuilderFee:    optStr(c("builderFee", i)),
			Cloid:         optStr(c("cloid", i)),
			Builder:       optStr(c("builder", i)),
			Liquidation:   optStr(c("liquidation", i)),
		}
	}
	return rows
}

// rowsToFrame rebuilds a frame through the normalizer so read-back frames
// carry the exact canonical shape a freshly decoded partition would.
func rowsToFrame(rows []fillRow) (*fills.Frame, error) {
	records := make([]fills.Record, len(rows))
	for i, r := range rows {
		record := fills.Record{}
		putInt(record, "time", r.Time)
		putStr(record, "user", r.User)
		putStr(record, "coin", r.Coin)
		putStr(record, "px", r.Px)
		putStr(record, "sz", r.Sz)
		putStr(record, "side", r.Side)
		putStr(record, "dir", r.Dir)
		putStr(record, "startPosition", r.StartPosition)
		putStr(record, "closedPnl", r.ClosedPnl)
		putStr(record, "fee", r.Fee)
		putBool(record, "crossed", r.Crossed)
		putStr(record, "hash", r.Hash)
		putInt(record, "oid", r.Oid)
		putInt(record, "tid", r.Tid)
		putInt(record, "block_time", r.BlockTime)
		putStr(record, "feeToken", r.FeeToken)
		putInt(record, "twapId", r.TwapID)
		putStr(record, "builderFee", r.BuilderFee)
		putStr(record, "cloid", r.Cloid)
		putStr(record, "builder", r.Builder)
		putStr(record, "liquidation", r.Liquidation)
		records[i] = record
	}
	return fills.Normalize(records)
}

func optInt(v any) *int64 {
	if n, ok := v.(int64); ok {
		return &n
	}
	return nil
}

func optStr(v any) *string {
	if s, ok := v.(string); ok {
		return &s
	}
	return nil
}

func optBool(v any) *bool {
	if b, ok := v.(bool); ok {
		return &b
	}
	return nil
}

func putInt(r fills.Record, key string, v *int64) {
	if v != nil {
		r[key] = *v
	}
}

func putStr(r fills.Record, key string, v *string) {
	if v != nil {
		r[key] = *v
	}
}

func putBool(r fills.Record, key string, v *bool) {
	if v != nil {
		r[key] = *v
	}
}
