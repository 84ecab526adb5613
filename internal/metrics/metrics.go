package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch metrics
var (
	PartitionsFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_partitions_total",
		Help: "The total number of partitions downloaded and converted to parquet",
	})

	PartitionsEmpty = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_partitions_empty_total",
		Help: "The number of fetched partitions that decoded to zero fills",
	})

	PartitionsAlreadyFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_partitions_skipped_total",
		Help: "The number of partitions skipped because the sink file already exists",
	})

	BytesDownloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fetch_bytes_downloaded_total",
		Help: "Raw compressed bytes downloaded from the source bucket",
	})
)

// Load metrics
var (
	PartitionsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "load_partitions_total",
		Help: "The total number of partitions committed to the fills table",
	})

	PartitionsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "load_partitions_skipped_total",
		Help: "The number of partitions skipped because the progress ledger already has them",
	})

	PartitionsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "load_partitions_failed_total",
		Help: "The number of partitions that failed and were rolled back",
	})

	RowsLoaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "load_rows_total",
		Help: "The total number of fill rows copied into the store",
	})
)

// Proxy metrics
var (
	ProxiedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_requests_total",
		Help: "The total number of requests forwarded by the HTTP proxy",
	})

	ProxyRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "proxy_rate_limited_total",
		Help: "The number of upstream 429 responses observed by the proxy",
	})
)
