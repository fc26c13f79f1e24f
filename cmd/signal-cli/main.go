package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"signaldash/internal/config"
	"signaldash/internal/console"
	"signaldash/internal/dashboard"
	"signaldash/internal/settings"
	"signaldash/internal/util"
	"signaldash/pkg/signalapi"
)

const version = "0.3.0"

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: signal-cli [-config path] <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  version                    Print the CLI version\n")
	fmt.Fprintf(os.Stderr, "  state [-format json|text]  Fetch and print the normalized state once\n")
	fmt.Fprintf(os.Stderr, "  settings get               Print the backend settings document\n")
	fmt.Fprintf(os.Stderr, "  settings set key=value...  Update settings and save them\n")
	fmt.Fprintf(os.Stderr, "\n")
}

func main() {
	flag.Usage = usage
	cfgPath := flag.String("config", os.Getenv("SIGNALDASH_CONFIG"), "path to YAML config (optional)")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	if args[0] == "version" {
		fmt.Printf("signal-cli %s\n", version)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	util.SetDefault(util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr))

	client := signalapi.NewClient(cfg.Backend.BaseURL,
		signalapi.WithStatePath(cfg.Backend.StatePath),
		signalapi.WithSettingsPath(cfg.Backend.SettingsPath),
		signalapi.WithTimeout(cfg.Backend.Timeout()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout()+5*time.Second)
	defer cancel()

	switch args[0] {
	case "state":
		err = runState(ctx, cfg, client, args[1:])
	case "settings":
		err = runSettings(ctx, client, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func runState(ctx context.Context, cfg *config.Config, client *signalapi.Client, args []string) error {
	fs := flag.NewFlagSet("state", flag.ExitOnError)
	format := fs.String("format", "text", "output format: json or text")
	fs.Parse(args)

	loc, err := cfg.Display.Location()
	if err != nil {
		return err
	}
	opts := dashboard.Options{Locale: dashboard.ParseLocale(cfg.Display.Locale), Location: loc}

	snap, err := client.FetchState(ctx)
	if err != nil {
		c, msg := dashboard.NewReporter(nil, opts.Locale).Classify(dashboard.Outcome{Err: err})
		return fmt.Errorf("%s (%s): %w", msg, c, err)
	}
	vm := dashboard.Normalize(snap, opts)

	switch *format {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(vm)
	case "text":
		screen := console.NewScreen(opts.Locale, false)
		dashboard.Render(screen, vm)
		dashboard.NewReporter(screen, opts.Locale).Report(dashboard.Outcome{BackendError: snap.BackendError()})
		return screen.Print(os.Stdout)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

func runSettings(ctx context.Context, client *signalapi.Client, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("settings: want get or set")
	}
	switch args[0] {
	case "get":
		doc, err := client.GetSettings(ctx)
		if err != nil {
			return err
		}
		return printJSON(doc)

	case "set":
		if len(args) < 2 {
			return fmt.Errorf("settings set: want at least one key=value")
		}
		doc, err := client.GetSettings(ctx)
		if err != nil {
			return err
		}
		for _, kv := range args[1:] {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || strings.TrimSpace(key) == "" {
				return fmt.Errorf("settings set: %q is not key=value", kv)
			}
			doc = settings.Set(doc, strings.TrimSpace(key), value)
		}
		doc, err = settings.Coerce(doc)
		if err != nil {
			return fmt.Errorf("settings set: %w", err)
		}
		if err := client.PutSettings(ctx, doc); err != nil {
			return err
		}
		return printJSON(doc)

	default:
		return fmt.Errorf("settings: unknown subcommand %q", args[0])
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
