package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"

	"github.com/KaramelBytes/corrlab/internal/analysis"
	cfgpkg "github.com/KaramelBytes/corrlab/internal/config"
	"github.com/KaramelBytes/corrlab/internal/chart"
	"github.com/KaramelBytes/corrlab/internal/i18n"
	"github.com/KaramelBytes/corrlab/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard web server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLogger()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		// A broken locale catalog is fatal before anything is served.
		cat, err := i18n.Load()
		if err != nil {
			return fmt.Errorf("locale catalog: %w", err)
		}
		opt, err := serverOptions(cfg)
		if err != nil {
			return err
		}
		srv, err := web.New(cat, log, opt)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		log.Info("starting corrlab",
			zap.String("version", Version),
			zap.Strings("languages", cat.Languages()),
			zap.String("default_lang", opt.DefaultLang))
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Dashboard on http://%s\n", cfg.Addr)
		return srv.Run(ctx, cfg.Addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serverOptions(c *cfgpkg.Global) (web.Options, error) {
	load, err := loadOptions(c)
	if err != nil {
		return web.Options{}, err
	}
	return web.Options{
		DefaultLang:    c.DefaultLang,
		MaxUploadBytes: int64(c.MaxUploadMB) << 20,
		SessionTTL:     time.Duration(c.SessionTTLMin) * time.Minute,
		Chart:          chartOptions(c),
		Load:           load,
	}, nil
}

// loadOptions maps the configured number locale onto loader options.
func loadOptions(c *cfgpkg.Global) (analysis.Options, error) {
	opt := analysis.DefaultOptions()
	dec, err := cfgpkg.Separator(c.DecimalSeparator)
	if err != nil {
		return opt, fmt.Errorf("decimal_separator: %w", err)
	}
	th, err := cfgpkg.Separator(c.ThousandsSeparator)
	if err != nil {
		return opt, fmt.Errorf("thousands_separator: %w", err)
	}
	opt.DecimalSeparator, opt.ThousandsSeparator = dec, th
	return opt, nil
}

func chartOptions(c *cfgpkg.Global) chart.Options {
	opt := chart.DefaultOptions()
	if c.ChartWidthIn > 0 {
		opt.Width = vg.Length(c.ChartWidthIn) * vg.Inch
	}
	if c.ChartHeightIn > 0 {
		opt.Height = vg.Length(c.ChartHeightIn) * vg.Inch
	}
	return opt
}
