package fills

// Kind is the normalized type of a canonical column.
type Kind int

const (
	KindInt Kind = iota
	KindString
	KindBool
	// KindJSON columns hold an optional nested sub-record. They are always
	// text-serialized (compact JSON) before leaving the normalizer so the
	// output type is uniform whether or not any row in a batch had a value.
	KindJSON
)

// Column maps one upstream field to its store column. Source names keep the
// exchange's mixed-case spelling; DB names are snake_case and must match the
// fills table definition exactly.
type Column struct {
	Source string
	DB     string
	Kind   Kind
}

// Columns is the canonical column table: the single source of truth for the
// schema contract between the upstream archives, the parquet mirror and the
// fills table. Order is fixed for the lifetime of this pipeline version;
// changing it requires a coordinated migration on the store table.
var Columns = []Column{
	{"time", "time", KindInt},
	{"user", "user_address", KindString},
	{"coin", "coin", KindString},
	{"px", "px", KindString},
	{"sz", "sz", KindString},
	{"side", "side", KindString},
	{"dir", "dir", KindString},
	{"startPosition", "start_position", KindString},
	{"closedPnl", "closed_pnl", KindString},
	{"fee", "fee", KindString},
	{"crossed", "crossed", KindBool},
	{"hash", "hash", KindString},
	{"oid", "oid", KindInt},
	{"tid", "tid", KindInt},
	{"block_time", "block_time", KindInt},
	{"feeToken", "fee_token", KindString},
	{"twapId", "twap_id", KindInt},
	{"builderFee", "builder_fee", KindString},
	{"cloid", "cloid", KindString},
	{"builder", "builder", KindString},
	{"liquidation", "liquidation", KindJSON},
}

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Columns))
	for i, c := range Columns {
		m[c.Source] = i
	}
	return m
}()

// SourceNames returns the canonical source-side column names in order.
func SourceNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Source
	}
	return names
}

// DBNames returns the canonical store-side column names in order.
func DBNames() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.DB
	}
	return names
}

// ColumnIndex returns the position of a source field in the canonical order,
// or -1 if the field is not part of the schema contract.
func ColumnIndex(source string) int {
	if i, ok := columnIndex[source]; ok {
		return i
	}
	return -1
}
