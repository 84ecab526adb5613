package storage

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/vigil-data/vigil/internal/fills"
)

// escapes for the postgres text COPY format
var copyEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"\t", "\\t",
	"\n", "\\n",
	"\r", "\\r",
)

// encodeCopyText writes a frame in the postgres text COPY wire format:
// tab-separated values, a header row of destination column names, \N for
// nulls, literal t/f for booleans, backslash escapes for tab, newline and
// backslash bytes inside text values.
func encodeCopyText(w io.Writer, frame *fills.Frame) error {
	if _, err := io.WriteString(w, strings.Join(fills.DBNames(), "\t")+"\n"); err != nil {
		return err
	}

	var sb strings.Builder
	for i := 0; i < frame.NumRows(); i++ {
		sb.Reset()
		for c := 0; c < frame.NumCols(); c++ {
			if c > 0 {
				sb.WriteByte('\t')
			}
			if err := writeCopyValue(&sb, frame.Column(c)[i]); err != nil {
				return fmt.Errorf("row %d column %s: %w", i, fills.Columns[c].DB, err)
			}
		}
		sb.WriteByte('\n')
		if _, err := io.WriteString(w, sb.String()); err != nil {
			return err
		}
	}
	return nil
}

func writeCopyValue(sb *strings.Builder, v any) error {
	switch x := v.(type) {
	case nil:
		sb.WriteString(`\N`)
	case bool:
		if x {
			sb.WriteByte('t')
		} else {
			sb.WriteByte('f')
		}
	case int64:
		sb.WriteString(strconv.FormatInt(x, 10))
	case string:
		copyEscaper.WriteString(sb, x)
	default:
		return fmt.Errorf("unsupported value type %T", v)
	}
	return nil
}
