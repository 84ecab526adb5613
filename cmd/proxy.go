package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/vigil-data/vigil/internal/proxy"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run the HTTP request proxy",
	Long:  "proxy runs a small HTTP service that forwards JSON requests to upstream APIs with bounded retries on rate limits, and exposes Prometheus metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return proxy.NewServer(appCfg.Proxy).Run()
	},
}

func init() {
	proxyCmd.Flags().String("addr", "", "Listen address, e.g. :8080")
	proxyCmd.Flags().Int("timeout-seconds", 0, "Per-request upstream timeout in seconds")
	proxyCmd.Flags().Int("max-attempts", 0, "Max upstream attempts per proxied request")
	viper.BindPFlag("proxy.addr", proxyCmd.Flags().Lookup("addr"))
	viper.BindPFlag("proxy.timeoutSeconds", proxyCmd.Flags().Lookup("timeout-seconds"))
	viper.BindPFlag("proxy.maxAttempts", proxyCmd.Flags().Lookup("max-attempts"))
}
