package sink

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/vigil-data/vigil/internal/common"
	"github.com/vigil-data/vigil/internal/fills"
)

// Local stores partition files on the local filesystem, mirroring the source
// bucket's key layout under root.
type Local struct {
	root string
}

func NewLocal(root string) *Local {
	return &Local{root: root}
}

func (l *Local) path(p common.Partition, ext string) string {
	return filepath.Join(l.root, p.Date, fmt.Sprintf("%d%s", p.Hour, ext))
}

func (l *Local) Exists(_ context.Context, p common.Partition) (bool, error) {
	_, err := os.Stat(l.path(p, ".parquet"))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", p.ID(), err)
}

func (l *Local) Write(_ context.Context, p common.Partition, frame *fills.Frame) (int, error) {
	if frame.NumRows() == 0 {
		return 0, nil
	}

	dest := l.path(p, ".parquet")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("mkdir for %s: %w", p.ID(), err)
	}

	var buf bytes.Buffer
	if err := encodeParquet(&buf, frame); err != nil {
		return 0, fmt.Errorf("encode %s: %w", p.ID(), err)
	}
	if err := os.WriteFile(dest, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("write %s: %w", p.ID(), err)
	}
	return frame.NumRows(), nil
}

func (l *Local) WriteRaw(_ context.Context, p common.Partition, raw []byte) error {
	dest := l.path(p, ".lz4")
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("mkdir for %s: %w", p.ID(), err)
	}
	if err := os.WriteFile(dest, raw, 0o644); err != nil {
		return fmt.Errorf("write raw %s: %w", p.ID(), err)
	}
	return nil
}

func (l *Local) Read(_ context.Context, p common.Partition) (*fills.Frame, error) {
	data, err := os.ReadFile(l.path(p, ".parquet"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", p.ID(), common.ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", p.ID(), err)
	}
	return decodeParquet(bytes.NewReader(data), int64(len(data)))
}

func (l *Local) List(_ context.Context, dateFilter string) ([]common.Partition, error) {
	var parts []common.Partition
	err := filepath.WalkDir(l.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == l.root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".parquet") {
			return nil
		}
		p, perr := common.PartitionFromKey(path)
		if perr != nil {
			return nil
		}
		if dateFilter != "" && p.Date != dateFilter {
			return nil
		}
		parts = append(parts, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list local partitions: %w", err)
	}
	common.SortPartitions(parts)
	return parts, nil
}
