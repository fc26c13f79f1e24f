package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"signaldash/internal/config"
	"signaldash/internal/dashboard"
	"signaldash/internal/httpapi"
	"signaldash/internal/live"
	"signaldash/internal/metrics"
	"signaldash/internal/settings"
	"signaldash/internal/store"
	"signaldash/internal/tui"
	"signaldash/internal/util"
	"signaldash/pkg/signalapi"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("SIGNALDASH_CONFIG"), "path to YAML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	// The terminal belongs to the UI, so logs always go to a file.
	logPath := cfg.Logging.File
	if logPath == "" {
		logPath = util.DailyLogPath(os.TempDir(), "signal-tui", time.Now())
	}
	logFile, err := util.OpenLogFile(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, "text", logFile)
	util.SetDefault(logger)

	loc, err := cfg.Display.Location()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading timezone: %v\n", err)
		os.Exit(1)
	}
	locale := dashboard.ParseLocale(cfg.Display.Locale)

	client := signalapi.NewClient(cfg.Backend.BaseURL,
		signalapi.WithStatePath(cfg.Backend.StatePath),
		signalapi.WithSettingsPath(cfg.Backend.SettingsPath),
		signalapi.WithTimeout(cfg.Backend.Timeout()),
	)

	journal, err := store.NewSQLiteJournal(cfg.Journal.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening journal: %v\n", err)
		os.Exit(1)
	}
	defer journal.Close()

	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initial := loadSettings(ctx, client, logger)

	mirror := httpapi.NewMirror(locale)
	var p *tea.Program
	target := tui.NewTarget(func(msg tea.Msg) { p.Send(msg) })

	syncer := live.NewSyncer(client,
		dashboard.MultiTarget{target, mirror},
		dashboard.MultiStatus{target, mirror},
		live.Config{
			DefaultInterval: cfg.Refresh.Interval(),
			Options:         dashboard.Options{Locale: locale, Location: loc},
			Metrics:         rec,
			Logger:          logger,
			OnRender:        target.Rendered,
		},
	)

	p = tea.NewProgram(
		tui.New(tui.Deps{
			Locale:          locale,
			ChartHeight:     cfg.Display.ChartHeight,
			TimelineSize:    cfg.Journal.TimelineSize,
			Refresh:         syncer.Refresh,
			Cancel:          cancel,
			Journal:         journal,
			Exporter:        store.NewParquetExporter(cfg.Export.Dir),
			Settings:        client,
			InitialSettings: initial,
			Logger:          logger,
		}),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	// The mirror's stream subscription must exist before the first status
	// report, so Sync starts last.
	g, gctx := errgroup.WithContext(ctx)
	if cfg.HTTP.Addr != "" {
		api := httpapi.NewServer(mirror, reg, logger)
		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			return api.Run(gctx)
		})
		g.Go(func() error {
			logger.Info("http mirror listening", "addr", cfg.HTTP.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http mirror: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}
	g.Go(func() error {
		return syncer.Sync(gctx)
	})

	_, runErr := p.Run()
	cancel()
	if err := g.Wait(); err != nil {
		logger.Error("shutdown", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "error: %v\n", runErr)
		os.Exit(1)
	}
}

// loadSettings fetches the settings document for the editor, retrying
// transient failures. The editor falls back to defaults if it never arrives.
func loadSettings(ctx context.Context, client *signalapi.Client, logger *slog.Logger) settings.Document {
	var doc settings.Document
	err := util.Retry(ctx, 3, 500*time.Millisecond,
		func(err error) bool { return !signalapi.IsReason(err, signalapi.ReasonParse) },
		func(ctx context.Context) error {
			s, err := client.GetSettings(ctx)
			if err != nil {
				return err
			}
			doc = s
			return nil
		})
	if err != nil {
		logger.Warn("loading settings, using defaults", "error", err)
		return nil
	}
	logger.Info("settings loaded", "keys", len(doc))
	return doc
}
