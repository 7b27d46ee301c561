package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	cfgpkg "github.com/KaramelBytes/corrlab/internal/config"
	"github.com/KaramelBytes/corrlab/internal/logging"
)

var (
	// Global flags (override config when set)
	cfgFile       string
	flagAddr      string
	flagLogLevel  string
	flagLogFormat string

	// Loaded configuration
	cfg *cfgpkg.Global
)

// Version is set at build time with -ldflags "-X .../cmd.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "corrlab",
	Short: "Correlation dashboard and photo adjustments",
	Long: `corrlab serves a small multilingual dashboard for exploring the correlation
between two numeric columns of a CSV/XLSX file, plus a photo rotate/brightness/
contrast playground. The analysis and photo steps are also available as commands.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.corrlab/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagAddr, "addr", "", "dashboard listen address (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "console|json (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so one-shot commands still run
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = defaultConfig()
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("addr") && flagAddr != "" {
		cfg.Addr = flagAddr
	}
	if f.Changed("log-level") && flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
}

func defaultConfig() *cfgpkg.Global {
	return &cfgpkg.Global{
		Addr:          "127.0.0.1:8501",
		DefaultLang:   "en",
		MaxUploadMB:   32,
		SessionTTLMin: 60,
		LogLevel:      "info",
		LogFormat:     "console",
		ChartWidthIn:  6,
		ChartHeightIn: 4,
	}
}

// newLogger builds the process logger from the effective config.
func newLogger() (*zap.Logger, error) {
	if cfg == nil {
		cfg = defaultConfig()
	}
	return logging.New(cfg.LogLevel, cfg.LogFormat)
}
