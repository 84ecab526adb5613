package source

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog/log"

	config "github.com/vigil-data/vigil/configs"
	"github.com/vigil-data/vigil/internal/common"
)

// Client lists and fetches compressed partition objects from the source
// bucket. The bucket bills the requester, so every request carries the
// requester-pays marker; callers cannot opt out.
type Client struct {
	s3     *s3.Client
	bucket string
	prefix string
}

func New(ctx context.Context, cfg config.SourceConfig) (*Client, error) {
	client, err := NewAWSClient(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	return &Client{
		s3:     client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// NewAWSClient builds an S3 client from the default credential chain
// (env vars, shared config, instance metadata) for the given region.
func NewAWSClient(ctx context.Context, region string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// ListDates returns every date folder under the fills prefix, ascending.
func (c *Client) ListDates(ctx context.Context) ([]string, error) {
	var dates []string

	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket:       aws.String(c.bucket),
		Prefix:       aws.String(c.prefix + "/"),
		Delimiter:    aws.String("/"),
		RequestPayer: types.RequestPayerRequester,
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, ClassifyError(fmt.Errorf("list dates: %w", err))
		}
		for _, prefix := range page.CommonPrefixes {
			if prefix.Prefix == nil {
				continue
			}
			// prefix looks like "node_fills_by_block/hourly/20250727/"
			parts := strings.Split(strings.TrimSuffix(*prefix.Prefix, "/"), "/")
			date := parts[len(parts)-1]
			if common.ValidDate(date) {
				dates = append(dates, date)
			}
		}
	}

	sort.Strings(dates)
	return dates, nil
}

// ListHours returns the hours available for one date, ascending.
func (c *Client) ListHours(ctx context.Context, date string) ([]int, error) {
	var hours []int

	paginator := s3.NewListObjectsV2Paginator(c.s3, &s3.ListObjectsV2Input{
		Bucket:       aws.String(c.bucket),
		Prefix:       aws.String(fmt.Sprintf("%s/%s/", c.prefix, date)),
		RequestPayer: types.RequestPayerRequester,
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, ClassifyError(fmt.Errorf("list hours for %s: %w", date, err))
		}
		for _, obj := range page.Contents {
			if obj.Key == nil || !strings.HasSuffix(*obj.Key, ".lz4") {
				continue
			}
			// key looks like "node_fills_by_block/hourly/20250727/0.lz4"
			name := (*obj.Key)[strings.LastIndex(*obj.Key, "/")+1:]
			hour, err := strconv.Atoi(strings.TrimSuffix(name, ".lz4"))
			if err != nil || hour < 0 || hour > 23 {
				log.Warn().Str("key", *obj.Key).Msg("skipping object with unexpected name")
				continue
			}
			hours = append(hours, hour)
		}
	}

	sort.Ints(hours)
	return hours, nil
}

// ListPartitions enumerates every available partition, ordered by date then
// hour. Listing is paginated internally and never truncates silently.
func (c *Client) ListPartitions(ctx context.Context) ([]common.Partition, error) {
	dates, err := c.ListDates(ctx)
	if err != nil {
		return nil, err
	}

	var parts []common.Partition
	for _, date := range dates {
		hours, err := c.ListHours(ctx, date)
		if err != nil {
			return nil, err
		}
		for _, hour := range hours {
			parts = append(parts, common.Partition{Date: date, Hour: hour})
		}
	}
	return parts, nil
}

// Fetch downloads one partition's raw compressed bytes.
func (c *Client) Fetch(ctx context.Context, p common.Partition) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket:       aws.String(c.bucket),
		Key:          aws.String(p.RawKey(c.prefix)),
		RequestPayer: types.RequestPayerRequester,
	})
	if err != nil {
		return nil, ClassifyError(fmt.Errorf("fetch %s: %w", p.ID(), err))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %v: %w", p.ID(), err, common.ErrTransient)
	}
	return data, nil
}
