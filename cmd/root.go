package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/s0up4200/yfscreener/config"
	"github.com/s0up4200/yfscreener/screener"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  zerolog.Logger
	scr     *screener.Screener

	// Shared output flags
	outputFormat string
	whereExpr    string
	noCache      bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "yfscreener",
	Short: "Screen stocks by fundamentals, sector and region",
	Long: `yfscreener is a CLI tool that queries the Yahoo Finance equity screener
with range filters on price, valuation and growth metrics, categorical filters
on sector, industry and exchange, and a region restriction.

Results are cached in memory for the lifetime of the process and can be
refined client-side with a --where expression.`,
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (symbols, table, json)")
	rootCmd.PersistentFlags().StringVarP(&whereExpr, "where", "w", "", "client-side refinement expression, e.g. 'trailingPE < 20'")
	rootCmd.PersistentFlags().BoolVar(&noCache, "no-cache", false, "bypass the result cache")

	// Add subcommands
	rootCmd.AddCommand(screenCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(availableCmd)
	rootCmd.AddCommand(versionCmd)
}

// initializeApp initializes the configuration and the screener
func initializeApp(cmd *cobra.Command, args []string) error {
	// Load configuration
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger = setupLogger(cfg.Logging)

	if _, err := parseOutputFormat(outputFormat); err != nil {
		return err
	}

	// Override cache from command line if specified
	if noCache {
		cfg.Cache.Enabled = false
	}

	scr, err = screener.New(cfg.ScreenerOptions(), logger)
	if err != nil {
		return fmt.Errorf("failed to create screener: %w", err)
	}

	logger.Debug().
		Str("base_url", cfg.Upstream.BaseURL).
		Bool("cache", cfg.Cache.Enabled).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("Screener initialized")

	return nil
}

func shutdownApp(cmd *cobra.Command, args []string) error {
	if scr == nil {
		return nil
	}
	return scr.Close()
}

// setupLogger configures the zerolog logger
func setupLogger(cfg config.LoggingConfig) zerolog.Logger {
	// Set log level
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zerolog.SetGlobalLevel(level)

	// Configure output format
	if cfg.Format == "json" {
		return zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	// Console format
	fd := os.Stderr.Fd()
	tty := isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)

	output := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color || !tty,
	}

	return zerolog.New(output).With().Timestamp().Logger()
}

// skipInit replaces initializeApp for commands that need no config or network
func skipInit(cmd *cobra.Command, args []string) error {
	return nil
}
