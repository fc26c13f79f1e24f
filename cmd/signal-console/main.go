package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"signaldash/internal/config"
	"signaldash/internal/console"
	"signaldash/internal/dashboard"
	"signaldash/internal/httpapi"
	"signaldash/internal/live"
	"signaldash/internal/metrics"
	"signaldash/internal/util"
	"signaldash/pkg/signalapi"
)

func main() {
	cfgPath := flag.String("config", os.Getenv("SIGNALDASH_CONFIG"), "path to YAML config (optional)")
	noClear := flag.Bool("no-clear", false, "append frames instead of redrawing the screen")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logOut := os.Stderr
	if cfg.Logging.File != "" {
		f, err := util.OpenLogFile(cfg.Logging.File)
		if err != nil {
			fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, logOut)
	util.SetDefault(logger)

	loc, err := cfg.Display.Location()
	if err != nil {
		logger.Error("loading timezone", "error", err)
		os.Exit(1)
	}
	locale := dashboard.ParseLocale(cfg.Display.Locale)

	client := signalapi.NewClient(cfg.Backend.BaseURL,
		signalapi.WithStatePath(cfg.Backend.StatePath),
		signalapi.WithSettingsPath(cfg.Backend.SettingsPath),
		signalapi.WithTimeout(cfg.Backend.Timeout()),
	)

	reg := prometheus.NewRegistry()
	screen := console.NewScreen(locale, !*noClear)
	mirror := httpapi.NewMirror(locale)

	draw := func() {
		if err := screen.Print(os.Stdout); err != nil {
			logger.Warn("printing frame", "error", err)
		}
	}
	syncer := live.NewSyncer(client,
		dashboard.MultiTarget{screen, mirror},
		dashboard.MultiStatus{screen, mirror, statusPrinter(draw)},
		live.Config{
			DefaultInterval: cfg.Refresh.Interval(),
			Options:         dashboard.Options{Locale: locale, Location: loc},
			Metrics:         metrics.New(reg),
			Logger:          logger,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	if err := g.Wait(); err != nil {
		logger.Error("exiting", "error", err)
		os.Exit(1)
	}
	fmt.Println("\nshutdown")
}

// statusPrinter redraws the screen after every status report, which closes
// each poll whether it rendered or not.
type statusPrinter func()

func (p statusPrinter) SetStatus(dashboard.Connectivity, string) { p() }
