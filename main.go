package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/vps-tracker/internal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Params struct {
	Action   string `descr:"What to do" positional:"true" alts:"list,add,edit,delete,check,rates,stats,export,publish,notify-test" strict:"true"`
	Config   string `descr:"Path to config file (default ~/.vps-tracker/config.yaml)" optional:"true"`
	Document string `descr:"Host HTML document holding the server list (overrides config)" optional:"true"`
	Output   string `descr:"Output format for list and stats" alts:"table,json" strict:"true" default:"table"`
	Index    int    `descr:"1-based record number for edit and delete" optional:"true"`
	Name     string `descr:"Server name" optional:"true"`
	Cost     string `descr:"Cost per billing cycle" optional:"true"`
	Currency string `descr:"Currency code, e.g. USD" optional:"true"`
	Cycle    string `descr:"Billing cycle: Monthly, Quarterly, Semi-Annually, Annually, Biennially, Triennially" optional:"true"`
	Start    string `descr:"Start of the current cycle (YYYY-MM-DD); the due date is computed from it" optional:"true"`
	Due      string `descr:"Next due date (YYYY-MM-DD)" optional:"true"`
	URL      string `descr:"Provider control panel URL" optional:"true"`
	ClearURL bool   `descr:"Remove the stored URL (edit)" optional:"true"`
	File     string `descr:"Export destination file" optional:"true"`
	Format   string `descr:"Export format" alts:"xlsx,json" strict:"true" default:"xlsx"`
	Message  string `descr:"Commit message for publish" optional:"true"`
	Today    string `descr:"Evaluate expiry as of this date (YYYY-MM-DD)" optional:"true"`
	NoNotify bool   `descr:"Do not send notifications" optional:"true"`
	Verbose  bool   `descr:"Enable debug logging" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("vps-tracker").
		WithShort("Track leased servers and their renewal dates").
		WithLong("Maintains the server list embedded in a static HTML dashboard: add, edit and delete records, migrate old record layouts, warn about renewals due within a few days, and keep an exchange rate file for the page.").
		WithRunFunc(func(params *Params) {
			logger, err := newLogger(params.Verbose)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			if err := run(ctx, params, logger); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				stop()
				logger.Sync()
				os.Exit(1)
			}
		}).
		Run()
}

func run(ctx context.Context, params *Params, logger *zap.Logger) error {
	configPath := params.Config
	if configPath == "" {
		configPath = internal.DefaultConfigPath()
	}
	cfg, err := internal.LoadOrCreateConfig(configPath)
	if err != nil {
		return err
	}
	if params.Document != "" {
		cfg.Document = params.Document
	}
	logger.Debug("config loaded", zap.String("path", configPath), zap.String("document", cfg.Document))

	a := newApp(cfg, logger, os.Stdout)
	if params.NoNotify {
		a.notifier = nil
	}
	return a.dispatch(ctx, params)
}

// newLogger logs warnings and above to stderr, or everything when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
