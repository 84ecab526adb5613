package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vigil-data/vigil/internal/common"
	customLogger "github.com/vigil-data/vigil/internal/log"
	"github.com/vigil-data/vigil/internal/pipeline"
	"github.com/vigil-data/vigil/internal/sink"
	"github.com/vigil-data/vigil/internal/source"
)

var (
	fetchDate     string
	fetchStart    string
	fetchEnd      string
	fetchHours    string
	fetchKeepRaw  bool
	fetchEarliest bool

	fetchCmd = &cobra.Command{
		Use:   "fetch",
		Short: "Download hourly fill archives and write them to the parquet sink",
		Long:  "fetch lists the requested partitions in the source bucket, downloads each hourly archive, decodes and normalizes the fills and writes one parquet file per partition. Partitions already present in the sink are skipped.",
		RunE:  runFetch,
	}
)

func init() {
	fetchCmd.Flags().StringVar(&fetchDate, "date", "", "Fetch a single date (YYYYMMDD)")
	fetchCmd.Flags().StringVar(&fetchStart, "start", "", "First date of an inclusive range (YYYYMMDD)")
	fetchCmd.Flags().StringVar(&fetchEnd, "end", "", "Last date of an inclusive range (YYYYMMDD)")
	fetchCmd.Flags().StringVar(&fetchHours, "hours", "", "Hours to fetch, e.g. 5, 0-7 or 0,12,23 (default: all hours present)")
	fetchCmd.Flags().BoolVar(&fetchKeepRaw, "keep-raw", false, "Also keep the raw .lz4 archive next to the parquet file")
	fetchCmd.Flags().BoolVar(&fetchEarliest, "earliest", false, "When listing all dates, start from the earliest known archive date")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := source.New(ctx, appCfg.Source)
	if err != nil {
		return fmt.Errorf("init source: %w", err)
	}
	snk, err := sink.New(ctx, appCfg.Sink, appCfg.Source)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}

	parts, err := selectPartitions(ctx, src)
	if err != nil {
		return err
	}
	if len(parts) == 0 {
		log.Warn().Msg("no partitions matched the requested dates")
		return nil
	}

	keepRaw := fetchKeepRaw || appCfg.Sink.KeepRaw
	retry := pipeline.NewRetryPolicy(appCfg.Pipeline)
	fetcher := pipeline.NewFetcher(src, snk, retry, appCfg.Pipeline.Workers, keepRaw, customLogger.NewLogger("fetch", appCfg.Log))

	summary := fetcher.Run(ctx, parts)
	printSummary("fetch", summary)
	if summary.TotalFailure() {
		return fmt.Errorf("all %d partitions failed", len(summary.Failed))
	}
	return nil
}

// selectPartitions resolves the date/hour flags into the concrete partition
// list. With no date flags the whole bucket is walked.
func selectPartitions(ctx context.Context, src *source.Client) ([]common.Partition, error) {
	var dates []string
	switch {
	case fetchDate != "":
		if !common.ValidDate(fetchDate) {
			return nil, fmt.Errorf("invalid --date %q, want YYYYMMDD", fetchDate)
		}
		dates = []string{fetchDate}
	case fetchStart != "" || fetchEnd != "":
		if fetchStart == "" || fetchEnd == "" {
			return nil, fmt.Errorf("--start and --end must be given together")
		}
		var err error
		dates, err = common.DateRange(fetchStart, fetchEnd)
		if err != nil {
			return nil, err
		}
	default:
		var err error
		dates, err = src.ListDates(ctx)
		if err != nil {
			return nil, fmt.Errorf("list dates: %w", err)
		}
		if fetchEarliest {
			filtered := dates[:0]
			for _, d := range dates {
				if d >= common.EarliestDate {
					filtered = append(filtered, d)
				}
			}
			dates = filtered
		}
	}

	var hours []int
	if fetchHours != "" {
		var err error
		hours, err = common.ParseHours(fetchHours)
		if err != nil {
			return nil, err
		}
	}

	var parts []common.Partition
	for _, date := range dates {
		dateHours := hours
		if dateHours == nil {
			var err error
			dateHours, err = src.ListHours(ctx, date)
			if err != nil {
				return nil, fmt.Errorf("list hours for %s: %w", date, err)
			}
		}
		for _, h := range dateHours {
			parts = append(parts, common.Partition{Date: date, Hour: h})
		}
	}
	common.SortPartitions(parts)
	return parts, nil
}

func printSummary(op string, s pipeline.Summary) {
	log.Info().
		Str("op", op).
		Int("done", len(s.Done)).
		Int("skipped", len(s.Skipped)).
		Int("empty", len(s.Empty)).
		Int("failed", len(s.Failed)).
		Int64("rows", s.Rows).
		Msg("run complete")
	for _, f := range s.Failed {
		log.Error().Str("partition", f.ID).Str("error", f.Err).Msg("partition failed")
	}
}
