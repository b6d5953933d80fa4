// CLAUDE:SUMMARY cobra root command: config loading, JSON slog setup, relay construction shared by subcommands.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/itemrelay/crawl"
	"github.com/hazyhaar/itemrelay/relay"
)

var (
	configPath string
	logLevel   string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "itemrelay",
	Short: "itemrelay captures vendor product pages and relists them on SmartStore.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		var lvl slog.Level
		switch logLevel {
		case "debug":
			lvl = slog.LevelDebug
		case "warn":
			lvl = slog.LevelWarn
		case "error":
			lvl = slog.LevelError
		default:
			lvl = slog.LevelInfo
		}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
		slog.SetDefault(logger)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "itemrelay.yaml", "YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
}

// ExecuteContext runs the CLI.
func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads --config. A missing default file yields an environment-only config.
func loadConfig(cmd *cobra.Command) (*relay.Config, error) {
	cfg, err := relay.LoadConfigFile(configPath)
	if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config") {
		logger.Warn("itemrelay: no config file, using defaults", "path", configPath)
		return relay.ConfigFromEnv(), nil
	}
	return cfg, err
}

func openRelay(cmd *cobra.Command, opts ...relay.Option) (*relay.Relay, *relay.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	r, err := relay.New(cfg, logger, opts...)
	if err != nil {
		return nil, nil, err
	}
	return r, cfg, nil
}

// startCrawler loads the config, starts a browser and returns a relay
// that crawls with it. The returned func closes both.
func startCrawler(cmd *cobra.Command) (*relay.Relay, *crawl.Crawler, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, err
	}
	ccfg := cfg.CrawlConfig()
	ccfg.Logger = logger
	c, err := crawl.New(ccfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := c.Start(cmd.Context()); err != nil {
		c.Close()
		return nil, nil, nil, err
	}
	r, err := relay.New(cfg, logger, relay.WithCrawler(c))
	if err != nil {
		c.Close()
		return nil, nil, nil, err
	}
	return r, c, func() {
		r.Close()
		c.Close()
	}, nil
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
