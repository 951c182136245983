package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/Ezekail/rostercrawl/collect"
	"github.com/Ezekail/rostercrawl/config"
	"github.com/Ezekail/rostercrawl/proxy"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfg    *config.Config
	logger = zap.NewNop()

	configFile string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "rostercrawl",
	Short: "Collect junior faculty rosters from political science departments",
	Long: "Downloads faculty roster pages, extracts assistant and associate professors " +
		"with per-institution rules, and stores rosters, raw pages and fetch metadata.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configFile, cmd.Flags())
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if verbose {
			c.Log.Level = "debug"
		}
		cfg = c

		l, err := config.NewLogger(cfg.Log)
		if err != nil {
			return eris.Wrap(err, "init logger")
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./rostercrawl.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "set log level to debug")
	rootCmd.PersistentFlags().Int("timeout", 0, "per-fetch timeout in seconds")
	rootCmd.PersistentFlags().String("log-file", "", "also write a rotating JSON log to this file")
}

// newFetcher builds the page fetcher from the fetch config.
func newFetcher(fc config.FetchConfig, logger *zap.Logger) (*collect.BrowserFetch, error) {
	opts := []collect.Option{
		collect.WithTimeout(fc.Timeout()),
		collect.WithUserAgent(fc.UserAgent),
		collect.WithRateLimit(fc.RatePerSec),
		collect.WithLogger(logger),
	}
	if len(fc.Proxies) > 0 {
		p, err := proxy.RoundRobinProxySwitcher(fc.Proxies...)
		if err != nil {
			return nil, eris.Wrap(err, "configure proxies")
		}
		opts = append(opts, collect.WithProxy(p))
	}
	return collect.NewBrowserFetch(opts...), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
