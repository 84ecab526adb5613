package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vigil-data/vigil/internal/common"
	customLogger "github.com/vigil-data/vigil/internal/log"
	"github.com/vigil-data/vigil/internal/pipeline"
	"github.com/vigil-data/vigil/internal/sink"
	"github.com/vigil-data/vigil/internal/storage"
)

var (
	loadDate     string
	loadTruncate bool
	loadYes      bool

	loadCmd = &cobra.Command{
		Use:   "load",
		Short: "Bulk load parquet partitions into the fills table",
		Long:  "load lists the parquet files in the sink, skips everything already recorded in the progress ledger and COPYs the rest into the fills table. Each partition commits atomically with its ledger entry.",
		RunE:  runLoad,
	}
)

func init() {
	loadCmd.Flags().StringVar(&loadDate, "date", "", "Only load partitions for this date (YYYYMMDD)")
	loadCmd.Flags().BoolVar(&loadTruncate, "truncate", false, "Truncate the fills table and the progress ledger before loading")
	loadCmd.Flags().BoolVar(&loadYes, "yes", false, "Skip the interactive confirmation for --truncate")
}

func runLoad(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if loadDate != "" && !common.ValidDate(loadDate) {
		return fmt.Errorf("invalid --date %q, want YYYYMMDD", loadDate)
	}

	db, err := storage.NewPostgres(ctx, appCfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	snk, err := sink.New(ctx, appCfg.Sink, appCfg.Source)
	if err != nil {
		return fmt.Errorf("init sink: %w", err)
	}

	retry := pipeline.NewRetryPolicy(appCfg.Pipeline)
	loader := pipeline.NewLoader(db, snk, retry, appCfg.Pipeline.Workers, customLogger.NewLogger("load", appCfg.Log))

	if loadTruncate {
		if !loadYes && !confirm("This drops every loaded fill and the progress ledger. Continue? [y/N] ") {
			return fmt.Errorf("truncate aborted")
		}
		if err := loader.Truncate(ctx); err != nil {
			return fmt.Errorf("truncate: %w", err)
		}
	}

	summary, err := loader.Run(ctx, loadDate)
	if err != nil {
		return err
	}
	printSummary("load", summary)
	if summary.TotalFailure() {
		return fmt.Errorf("all %d partitions failed", len(summary.Failed))
	}
	return nil
}

func confirm(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
