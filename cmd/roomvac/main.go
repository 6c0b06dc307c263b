package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"roomvac/internal/config"
	appLog "roomvac/internal/log"
	"roomvac/internal/render"
	"roomvac/internal/report"
	"roomvac/internal/web"
)

const version = "0.1.0"

// flagConfig holds CLI flag values; non-empty values override the config file.
type flagConfig struct {
	configPath string
	feed       string
	rooms      string
	listen     string
	serve      bool
}

func main() {
	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	if flags.feed != "" {
		conf.Feed.URL = flags.feed
	}
	if flags.rooms != "" {
		conf.Registry.Path = flags.rooms
	}
	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := conf.Validate(); err != nil {
		appLog.Error("invalid config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	appLog.SetLevel(appLog.ParseLevel(conf.LogLevel))
	defer appLog.Sync()

	appLog.Debug("effective config",
		"version", version,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"registry", conf.Registry.Path,
		"window_start", conf.Window.StartHour,
		"window_end", conf.Window.EndHour,
		"serve", flags.serve,
	)

	svc, err := report.FromConfig(conf)
	if err != nil {
		appLog.Error("failed to set up report service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !flags.serve {
		if err := runOnce(ctx, svc); err != nil {
			appLog.Error("vacancy run failed", err)
			appLog.Sync()
			os.Exit(1)
		}
		return
	}

	if err := serve(ctx, conf, svc); err != nil {
		appLog.Error("server failed", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Info("roomvac exiting")
}

// runOnce builds the report for the current day and prints the table.
func runOnce(ctx context.Context, svc *report.Service) error {
	r, err := svc.Build(ctx, time.Now())
	if err != nil {
		return err
	}
	return render.WriteTable(os.Stdout, r.Hours, r.Rooms, r.Matrix, r.Location)
}

// serve keeps the report fresh on the configured cron schedule and serves
// it over HTTP until ctx is canceled.
func serve(ctx context.Context, conf *config.Config, svc *report.Service) error {
	appLog.Info("roomvac starting", "version", version, "listen", conf.Listen)

	// A failed first build is not fatal here; requests retry it.
	_, _ = svc.Refresh(ctx)

	sched := cron.New()
	if _, err := sched.AddFunc(conf.RefreshCron, func() {
		_, _ = svc.Refresh(ctx)
	}); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		<-sched.Stop().Done()
	}()

	return web.NewServer(conf, svc).Run(ctx)
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "./roomvac.yaml", "Path to config file (created with defaults if missing)")
	flag.StringVar(&cfg.feed, "feed", "", "Feed URL or local .ics path (overrides config if set)")
	flag.StringVar(&cfg.rooms, "rooms", "", "Room registry CSV path (overrides config if set)")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address for -serve (overrides config if set)")
	flag.BoolVar(&cfg.serve, "serve", false, "Serve the report over HTTP and refresh it on the configured schedule")

	flag.Parse()

	return cfg
}
