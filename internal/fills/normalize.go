package fills

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/vigil-data/vigil/internal/common"
)

// Normalize converts a flattened record batch into a fixed-schema frame.
// Every canonical column exists in the output regardless of which fields the
// batch carried: missing fields become nulls, fields outside the canonical
// table are dropped. Values are coerced to the column's kind; the optional
// liquidation sub-record is serialized to compact JSON text. A record that
// cannot be reconciled fails the whole batch with ErrSchemaMismatch.
func Normalize(records []Record) (*Frame, error) {
	frame := NewFrame(len(records))
	row := make([]any, len(Columns))

	for n, record := range records {
		for i, col := range Columns {
			raw, ok := record[col.Source]
			if !ok || raw == nil {
				row[i] = nil
				continue
			}
			v, err := coerce(raw, col.Kind)
			if err != nil {
				return nil, fmt.Errorf("%w: record %d field %q: %v", common.ErrSchemaMismatch, n, col.Source, err)
			}
			row[i] = v
		}
		frame.appendRow(row)
	}

	return frame, nil
}

func coerce(v any, kind Kind) (any, error) {
	switch kind {
	case KindInt:
		switch x := v.(type) {
		case int64:
			return x, nil
		case json.Number:
			n, err := x.Int64()
			if err != nil {
				return nil, fmt.Errorf("not an integer: %v", x)
			}
			return n, nil
		case string:
			n, err := strconv.ParseInt(x, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("not an integer: %q", x)
			}
			return n, nil
		default:
			return nil, fmt.Errorf("cannot use %T as integer", v)
		}
	case KindString:
		switch x := v.(type) {
		case string:
			return x, nil
		case json.Number:
			// Numeric-looking upstream values for text columns keep their
			// exact decimal representation.
			return x.String(), nil
		default:
			return nil, fmt.Errorf("cannot use %T as string", v)
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return nil, fmt.Errorf("cannot use %T as bool", v)
	case KindJSON:
		switch x := v.(type) {
		case string:
			// Already text-encoded, e.g. read back from the parquet mirror.
			return x, nil
		case map[string]any:
			encoded, err := json.Marshal(x)
			if err != nil {
				return nil, err
			}
			return string(encoded), nil
		default:
			return nil, fmt.Errorf("cannot use %T as nested record", v)
		}
	}
	return nil, fmt.Errorf("unknown column kind %d", kind)
}
