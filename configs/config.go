package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Prettify bool   `mapstructure:"prettify"`
}

type SourceConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	Region string `mapstructure:"region"`
}

type SinkConfig struct {
	// Backend selects where normalized parquet files live: "local" or "s3".
	Backend string `mapstructure:"backend"`
	// LocalRoot is the base data directory for the local backend. Files are
	// laid out as <localRoot>/<sourceBucket>/<sourcePrefix>/<date>/<hour>.parquet
	// so local mirrors and the S3 sink stay interchangeable.
	LocalRoot string `mapstructure:"localRoot"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	KeepRaw   bool   `mapstructure:"keepRaw"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"maxConns"`
}

type PipelineConfig struct {
	Workers          int `mapstructure:"workers"`
	RetryMaxAttempts int `mapstructure:"retryMaxAttempts"`
	RetryBaseDelayMs int `mapstructure:"retryBaseDelayMs"`
}

type ProxyConfig struct {
	Addr           string `mapstructure:"addr"`
	TimeoutSeconds int    `mapstructure:"timeoutSeconds"`
	MaxAttempts    int    `mapstructure:"maxAttempts"`
}

type DiscoveryConfig struct {
	APIURL  string `mapstructure:"apiUrl"`
	Cutoff  string `mapstructure:"cutoff"`
	Top     int    `mapstructure:"top"`
	Workers int    `mapstructure:"workers"`
}

type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Source    SourceConfig    `mapstructure:"source"`
	Sink      SinkConfig      `mapstructure:"sink"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Proxy     ProxyConfig     `mapstructure:"proxy"`
	Discovery DiscoveryConfig `mapstructure:"discovery"`
}

// LoadConfig reads the config file (if any), applies env overrides and returns
// the resulting config as a value. The config is constructed once at process
// entry and passed explicitly to component constructors; nothing reads it
// ambiently after that.
func LoadConfig(cfgFile string) (Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./configs")
		// A config file is optional; env vars and flags can carry everything.
		if err := viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// sets e.g. DATABASE_URL to database.url
	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("error unmarshalling config: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("log.level", "info")
	viper.SetDefault("source.bucket", "hl-mainnet-node-data")
	viper.SetDefault("source.prefix", "node_fills_by_block/hourly")
	viper.SetDefault("source.region", "us-east-2")
	viper.SetDefault("sink.backend", "local")
	viper.SetDefault("sink.localRoot", "./data")
	viper.SetDefault("database.maxConns", 8)
	viper.SetDefault("pipeline.workers", 2)
	viper.SetDefault("pipeline.retryMaxAttempts", 3)
	viper.SetDefault("pipeline.retryBaseDelayMs", 2000)
	viper.SetDefault("proxy.addr", ":8080")
	viper.SetDefault("proxy.timeoutSeconds", 30)
	viper.SetDefault("proxy.maxAttempts", 3)
	viper.SetDefault("discovery.apiUrl", "https://api.hyperliquid.xyz/info")
	viper.SetDefault("discovery.top", 50)
	viper.SetDefault("discovery.workers", 5)
}
