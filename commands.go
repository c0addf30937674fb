package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gigurra/vps-tracker/internal"
	"go.uber.org/zap"
)

// app carries what every action needs. Collaborators are fields so tests
// can replace them.
type app struct {
	cfg       *internal.Config
	logger    *zap.Logger
	out       io.Writer
	notifier  internal.Notifier
	rates     internal.RateSource
	publisher internal.Publisher
	now       func() time.Time
}

func newApp(cfg *internal.Config, logger *zap.Logger, out io.Writer) *app {
	return &app{
		cfg:      cfg,
		logger:   logger,
		out:      out,
		notifier: internal.NewNotifier(cfg),
		rates: &internal.HTTPRateSource{
			URLTemplates: cfg.GetRateSources(),
			Logger:       logger,
		},
		now: time.Now,
	}
}

func (a *app) dispatch(ctx context.Context, p *Params) error {
	switch p.Action {
	case "list":
		return a.list(p)
	case "add":
		return a.add(ctx, p)
	case "edit":
		return a.edit(ctx, p)
	case "delete":
		return a.remove(ctx, p)
	case "check":
		return a.check(ctx, p)
	case "rates":
		return a.refreshRates(ctx)
	case "stats":
		return a.stats(p)
	case "export":
		return a.export(p)
	case "publish":
		return a.publish(ctx, p)
	case "notify-test":
		return a.notifyTest(ctx)
	default:
		return fmt.Errorf("unknown action %q", p.Action)
	}
}

func (a *app) openRepository() (*internal.Repository, error) {
	return internal.OpenRepository(a.cfg.Document,
		internal.WithLogger(a.logger),
		internal.WithNotifier(a.notifier),
		internal.WithClock(a.now),
	)
}

// today returns the --today override or the current time.
func (a *app) today(p *Params) (time.Time, error) {
	if p.Today == "" {
		return a.now(), nil
	}
	t, err := internal.ValidateDueDate(p.Today)
	if err != nil {
		return time.Time{}, fmt.Errorf("--today: %w", err)
	}
	return t, nil
}

// ratesPath resolves a relative rates file next to the document.
func (a *app) ratesPath() string {
	if filepath.IsAbs(a.cfg.RatesFile) {
		return a.cfg.RatesFile
	}
	return filepath.Join(filepath.Dir(a.cfg.Document), a.cfg.RatesFile)
}

func (a *app) list(p *Params) error {
	repo, err := a.openRepository()
	if err != nil {
		return err
	}
	today, err := a.today(p)
	if err != nil {
		return err
	}
	opts := internal.OutputOptions{Today: today, Threshold: a.cfg.GetAlertThreshold()}
	if p.Output == "json" {
		return internal.PrintRecordsJSON(a.out, repo.Records(), opts)
	}
	internal.PrintRecordsTable(a.out, repo.Records(), opts)
	return nil
}

func (a *app) add(ctx context.Context, p *Params) error {
	repo, err := a.openRepository()
	if err != nil {
		return err
	}
	rec, err := repo.Add(internal.RecordDraft{
		Name:         p.Name,
		Cost:         p.Cost,
		Currency:     p.Currency,
		BillingCycle: p.Cycle,
		AnchorDate:   p.Start,
		DueDate:      p.Due,
		URL:          p.URL,
	})
	if err != nil {
		return err
	}
	if err := repo.Persist(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added #%d %s (%s, next due %s)\n", repo.Len(), rec.Name, rec.BillingCycle, rec.NextDueDate)
	return nil
}

func (a *app) edit(ctx context.Context, p *Params) error {
	changes := internal.RecordChanges{
		Name:         flagValue(p.Name),
		Cost:         flagValue(p.Cost),
		Currency:     flagValue(p.Currency),
		BillingCycle: flagValue(p.Cycle),
		AnchorDate:   flagValue(p.Start),
		DueDate:      flagValue(p.Due),
		URL:          flagValue(p.URL),
	}
	if p.ClearURL {
		if changes.URL != nil {
			return fmt.Errorf("%w: give either --url or --clear-url, not both", internal.ErrValidation)
		}
		empty := ""
		changes.URL = &empty
	}
	if changes.IsEmpty() {
		return fmt.Errorf("%w: nothing to change, pass at least one field flag", internal.ErrValidation)
	}

	repo, err := a.openRepository()
	if err != nil {
		return err
	}
	rec, err := repo.Edit(p.Index-1, changes)
	if err != nil {
		return err
	}
	if err := repo.Persist(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated #%d %s (%s, next due %s)\n", p.Index, rec.Name, rec.BillingCycle, rec.NextDueDate)
	return nil
}

func (a *app) remove(ctx context.Context, p *Params) error {
	repo, err := a.openRepository()
	if err != nil {
		return err
	}
	rec, err := repo.Delete(p.Index - 1)
	if err != nil {
		return err
	}
	if err := repo.Persist(ctx); err != nil {
		return err
	}
	name := rec.Name
	if name == "" {
		name = "unreadable record"
	}
	fmt.Fprintf(a.out, "Deleted #%d %s\n", p.Index, name)
	return nil
}

func (a *app) check(ctx context.Context, p *Params) error {
	repo, err := a.openRepository()
	if err != nil {
		return err
	}
	now, err := a.today(p)
	if err != nil {
		return err
	}
	threshold := a.cfg.GetAlertThreshold()
	alerts := internal.CheckExpiring(ctx, repo.Records(), now, threshold, a.notifier, a.logger)
	internal.PrintAlerts(a.out, alerts, threshold)
	return nil
}

func (a *app) refreshRates(ctx context.Context) error {
	table, err := internal.RefreshRates(ctx, a.rates, a.cfg.BaseCurrency, a.now())
	if err != nil {
		return fmt.Errorf("refreshing exchange rates: %w", err)
	}
	path := a.ratesPath()
	if err := internal.WriteRatesArtifact(path, table); err != nil {
		return err
	}
	a.logger.Debug("rates written", zap.String("path", path), zap.Int("currencies", len(table.Rates)))

	internal.NotifyBestEffort(ctx, a.notifier, a.logger, internal.RatesSummary(table))
	internal.PrintRatesTable(a.out, table)
	return nil
}

func (a *app) stats(p *Params) error {
	repo, err := a.openRepository()
	if err != nil {
		return err
	}
	table, err := internal.LoadRatesArtifact(a.ratesPath())
	if err != nil {
		// totals are still useful per currency without conversion
		a.logger.Warn("no exchange rates available, run the rates action first", zap.Error(err))
		table = internal.RateTable{Base: a.cfg.BaseCurrency}
	}
	if table.Base == "" {
		table.Base = a.cfg.BaseCurrency
	}

	s := internal.ComputeStats(repo.Records(), table)
	if p.Output == "json" {
		return internal.PrintStatsJSON(a.out, s)
	}
	internal.PrintStatsTable(a.out, s)
	return nil
}

func (a *app) export(p *Params) (err error) {
	exporter, err := internal.GetExporter(p.Format)
	if err != nil {
		return err
	}
	repo, err := a.openRepository()
	if err != nil {
		return err
	}

	path := p.File
	if path == "" {
		path = "vps-servers." + p.Format
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", internal.ErrIO, path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: closing %s: %v", internal.ErrIO, path, cerr)
		}
	}()

	if err := exporter.Export(f, repo.Records()); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Exported %d servers to %s\n", repo.Len(), path)
	return nil
}

func (a *app) publish(ctx context.Context, p *Params) error {
	publisher := a.publisher
	if publisher == nil {
		dir, err := filepath.Abs(filepath.Dir(a.cfg.Document))
		if err != nil {
			return fmt.Errorf("%w: resolving document directory: %v", internal.ErrIO, err)
		}
		publisher = &internal.GitPublisher{Dir: dir}
	}

	message := p.Message
	if message == "" {
		message = "Update VPS records " + a.now().Format("2006-01-02 15:04:05")
	}
	if err := publisher.Publish(ctx, message); err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	fmt.Fprintln(a.out, "Published")
	return nil
}

func (a *app) notifyTest(ctx context.Context) error {
	if a.notifier == nil {
		return errors.New("notifications are disabled; set telegram.enabled in the config")
	}
	msg := fmt.Sprintf("Test message from vps-tracker\nSent at: %s", a.now().Format("2006-01-02 15:04:05"))
	if err := a.notifier.Notify(ctx, msg); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Test notification sent")
	return nil
}

// flagValue maps an unset flag to "no change".
func flagValue(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
