package sink

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/vigil-data/vigil/internal/common"
	"github.com/vigil-data/vigil/internal/fills"

	config "github.com/vigil-data/vigil/configs"
)

// Sink persists normalized partition files. Implementations must behave
// identically whether they address the local filesystem or an object store;
// callers never special-case the backend.
type Sink interface {
	// Exists reports whether the partition's normalized file is present.
	// "Confirmed absent" is (false, nil); failure to determine existence is
	// an error.
	Exists(ctx context.Context, p common.Partition) (bool, error)

	// Write persists the frame as the partition's normalized file, creating
	// parent directories or prefixes as needed, and returns the row count
	// written. Writing an empty frame is a no-op that returns zero and does
	// not create the destination.
	Write(ctx context.Context, p common.Partition, frame *fills.Frame) (int, error)

	// WriteRaw persists the partition's raw compressed bytes alongside the
	// normalized file.
	WriteRaw(ctx context.Context, p common.Partition, raw []byte) error

	// Read loads the partition's normalized file back into a frame.
	Read(ctx context.Context, p common.Partition) (*fills.Frame, error)

	// List enumerates partitions with a normalized file, ordered by date then
	// hour. A non-empty dateFilter restricts the listing to that date.
	List(ctx context.Context, dateFilter string) ([]common.Partition, error)
}

// New selects the backend once at startup from configuration.
func New(ctx context.Context, cfg config.SinkConfig, src config.SourceConfig) (Sink, error) {
	switch cfg.Backend {
	case "", "local":
		// The local tree mirrors the source bucket layout so files are
		// interchangeable with the S3 sink.
		root := filepath.Join(cfg.LocalRoot, src.Bucket, filepath.FromSlash(src.Prefix))
		return NewLocal(root), nil
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown sink backend %q", cfg.Backend)
	}
}
