package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vigil-data/vigil/internal/discovery"
	customLogger "github.com/vigil-data/vigil/internal/log"
	"github.com/vigil-data/vigil/internal/storage"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Classify top traders as new or established",
	Long:  "discover ranks traders in the fills table by realized pnl, asks the exchange API for each trader's first fill and reports who started trading after the cutoff date.",
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().String("cutoff", "", "Cutoff date (YYYY-MM-DD); traders whose first fill is after it count as new")
	discoverCmd.Flags().Int("top", 0, "How many top traders to classify")
	discoverCmd.Flags().Int("discovery-workers", 0, "How many traders to classify concurrently")
	viper.BindPFlag("discovery.cutoff", discoverCmd.Flags().Lookup("cutoff"))
	viper.BindPFlag("discovery.top", discoverCmd.Flags().Lookup("top"))
	viper.BindPFlag("discovery.workers", discoverCmd.Flags().Lookup("discovery-workers"))
}

func runDiscover(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if appCfg.Discovery.Cutoff == "" {
		return fmt.Errorf("a cutoff date is required (--cutoff or discovery.cutoff)")
	}
	cutoff, err := time.Parse("2006-01-02", appCfg.Discovery.Cutoff)
	if err != nil {
		return fmt.Errorf("invalid cutoff %q, want YYYY-MM-DD: %w", appCfg.Discovery.Cutoff, err)
	}

	db, err := storage.NewPostgres(ctx, appCfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	client := discovery.NewClient(appCfg.Discovery)
	walker := discovery.NewWalker(db.Pool, client, cutoff, appCfg.Discovery.Workers, customLogger.NewLogger("discover", appCfg.Log))

	reports, err := walker.Run(ctx, appCfg.Discovery.Top)
	if err != nil {
		return err
	}
	for _, r := range reports {
		if r.Err != "" {
			fmt.Printf("%s\terror\t%s\n", r.Address, r.Err)
			continue
		}
		status := "established"
		if r.IsNew {
			status = "new"
		}
		firstFill := time.UnixMilli(r.FirstFillTime).UTC().Format(time.RFC3339)
		fmt.Printf("%s\t%s\tfirst_fill=%s\tapi_pnl=%.2f\n", r.Address, status, firstFill, r.APIPnl)
	}
	return nil
}
