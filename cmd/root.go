package cmd

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	config "github.com/vigil-data/vigil/configs"
	"github.com/vigil-data/vigil/internal/env"
	customLogger "github.com/vigil-data/vigil/internal/log"
)

var (
	// Used for flags.
	cfgFile string

	// appCfg is loaded once in PersistentPreRunE and passed by value into
	// every component constructor.
	appCfg config.Config

	rootCmd = &cobra.Command{
		Use:           "vigil",
		Short:         "Batch pipeline for Hyperliquid node fill archives",
		Long:          "vigil fetches hourly fill archives from the Hyperliquid node data bucket, normalizes them to parquet and bulk loads them into TimescaleDB.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			env.Load()
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			appCfg = cfg
			customLogger.InitLogger(appCfg.Log)
			return nil
		},
	}
)

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./configs/config.yml)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level to use for the application")
	rootCmd.PersistentFlags().Bool("log-prettify", false, "Whether to prettify the log output")
	rootCmd.PersistentFlags().String("source-bucket", "", "Source bucket holding the hourly fill archives")
	rootCmd.PersistentFlags().String("source-prefix", "", "Key prefix of the hourly fill archives")
	rootCmd.PersistentFlags().String("source-region", "", "AWS region of the source bucket")
	rootCmd.PersistentFlags().String("sink-backend", "", "Parquet sink backend: local or s3")
	rootCmd.PersistentFlags().String("sink-local-root", "", "Base data directory for the local sink")
	rootCmd.PersistentFlags().String("sink-bucket", "", "Bucket for the s3 sink")
	rootCmd.PersistentFlags().String("sink-prefix", "", "Key prefix for the s3 sink")
	rootCmd.PersistentFlags().String("sink-region", "", "AWS region of the s3 sink")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL")
	rootCmd.PersistentFlags().Int("database-max-conns", 0, "Max connections in the database pool")
	rootCmd.PersistentFlags().Int("workers", 0, "How many partitions to process concurrently")
	rootCmd.PersistentFlags().Int("retry-max-attempts", 0, "Max attempts for transient failures")
	rootCmd.PersistentFlags().Int("retry-base-delay-ms", 0, "Base backoff delay in milliseconds")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.prettify", rootCmd.PersistentFlags().Lookup("log-prettify"))
	viper.BindPFlag("source.bucket", rootCmd.PersistentFlags().Lookup("source-bucket"))
	viper.BindPFlag("source.prefix", rootCmd.PersistentFlags().Lookup("source-prefix"))
	viper.BindPFlag("source.region", rootCmd.PersistentFlags().Lookup("source-region"))
	viper.BindPFlag("sink.backend", rootCmd.PersistentFlags().Lookup("sink-backend"))
	viper.BindPFlag("sink.localRoot", rootCmd.PersistentFlags().Lookup("sink-local-root"))
	viper.BindPFlag("sink.bucket", rootCmd.PersistentFlags().Lookup("sink-bucket"))
	viper.BindPFlag("sink.prefix", rootCmd.PersistentFlags().Lookup("sink-prefix"))
	viper.BindPFlag("sink.region", rootCmd.PersistentFlags().Lookup("sink-region"))
	viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url"))
	viper.BindPFlag("database.maxConns", rootCmd.PersistentFlags().Lookup("database-max-conns"))
	viper.BindPFlag("pipeline.workers", rootCmd.PersistentFlags().Lookup("workers"))
	viper.BindPFlag("pipeline.retryMaxAttempts", rootCmd.PersistentFlags().Lookup("retry-max-attempts"))
	viper.BindPFlag("pipeline.retryBaseDelayMs", rootCmd.PersistentFlags().Lookup("retry-base-delay-ms"))
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(proxyCmd)
	rootCmd.AddCommand(discoverCmd)
}
