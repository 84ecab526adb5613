package sink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	config "github.com/vigil-data/vigil/configs"
	"github.com/vigil-data/vigil/internal/common"
	"github.com/vigil-data/vigil/internal/fills"
	"github.com/vigil-data/vigil/internal/source"
)

// S3 stores partition files in a private bucket under the configured prefix,
// using the same key layout as the local backend so files stay
// interchangeable.
type S3 struct {
	s3     *awss3.Client
	bucket string
	prefix string
}

func NewS3(ctx context.Context, cfg config.SinkConfig) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 sink requires a bucket")
	}
	client, err := source.NewAWSClient(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	return &S3{
		s3:     client,
		bucket: cfg.Bucket,
		prefix: strings.TrimSuffix(cfg.Prefix, "/"),
	}, nil
}

func (s *S3) Exists(ctx context.Context, p common.Partition) (bool, error) {
	_, err := s.s3.HeadObject(ctx, &awss3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(p.ParquetKey(s.prefix)),
	})
	if err == nil {
		return true, nil
	}
	classified := source.ClassifyError(err)
	if errors.Is(classified, common.ErrNotFound) {
		// Confirmed absent; anything else means we could not determine
		// existence and must not be treated as "missing".
		return false, nil
	}
	return false, fmt.Errorf("exists %s: %w", p.ID(), classified)
}

func (s *S3) Write(ctx context.Context, p common.Partition, frame *fills.Frame) (int, error) {
	if frame.NumRows() == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	if err := encodeParquet(&buf, frame); err != nil {
		return 0, fmt.Errorf("encode %s: %w", p.ID(), err)
	}

	_, err := s.s3.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(p.ParquetKey(s.prefix)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", p.ID(), source.ClassifyError(err))
	}
	return frame.NumRows(), nil
}

func (s *S3) WriteRaw(ctx context.Context, p common.Partition, raw []byte) error {
	_, err := s.s3.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(p.RawKey(s.prefix)),
		Body:        bytes.NewReader(raw),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return fmt.Errorf("write raw %s: %w", p.ID(), source.ClassifyError(err))
	}
	return nil
}

func (s *S3) Read(ctx context.Context, p common.Partition) (*fills.Frame, error) {
	out, err := s.s3.GetObject(ctx, &awss3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(p.ParquetKey(s.prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", p.ID(), source.ClassifyError(err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %v: %w", p.ID(), err, common.ErrTransient)
	}
	return decodeParquet(bytes.NewReader(data), int64(len(data)))
}

func (s *S3) List(ctx context.Context, dateFilter string) ([]common.Partition, error) {
	prefix := s.prefix + "/"
	if dateFilter != "" {
		prefix += dateFilter + "/"
	}

	var parts []common.Partition
	paginator := awss3.NewListObjectsV2Paginator(s.s3, &awss3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list sink partitions: %w", source.ClassifyError(err))
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || !strings.HasSuffix(*obj.Key, ".parquet") {
				continue
			}
			p, err := common.PartitionFromKey(*obj.Key)
			if err != nil {
				continue
			}
			parts = append(parts, p)
		}
	}

	common.SortPartitions(parts)
	return parts, nil
}
