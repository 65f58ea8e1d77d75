package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/trainwatch/internal/api/booking"
	"github.com/danpilch/trainwatch/internal/config"
	"github.com/danpilch/trainwatch/internal/monitor"
	"github.com/danpilch/trainwatch/internal/notify"
	"github.com/danpilch/trainwatch/internal/scheduler"
)

var CLI struct {
	Config   string `help:"Path to config file" default:"config.yaml" type:"path"`
	EnvFile  string `help:"Optional dotenv file holding secrets" default:".env" type:"path"`
	LogLevel string `help:"Log level" default:"info" enum:"trace,debug,info,warn,error"`
	LogJSON  bool   `help:"Log as JSON instead of logfmt" name:"log-json"`

	Check      CheckCmd      `cmd:"" default:"1" help:"Run one watchdog pass and exit (default)"`
	Watch      WatchCmd      `cmd:"" help:"Run the watchdog periodically until interrupted"`
	TestNotify TestNotifyCmd `cmd:"" name:"test-notify" help:"Send a test message through the configured channel"`
	Stations   StationsCmd   `cmd:"" help:"Look up station ids by name"`
}

// app holds what every command shares; config is loaded per command because
// station lookup must work before the trip is configured.
type app struct {
	configPath string
	logger     *logrus.Logger

	cfg      *config.Config
	client   *booking.Client
	notifier *notify.Notifier
}

func (a *app) load(loader func(string) (*config.Config, error)) error {
	cfg, err := loader(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.client = booking.NewClientFromConfig(cfg.Booking, a.logger)
	a.notifier = notify.NewFromConfig(cfg.Notify, a.logger)
	return nil
}

// watchdog loads and fully validates config, then wires the watchdog.
func (a *app) watchdog() (*monitor.Watchdog, error) {
	if err := a.load(config.Load); err != nil {
		return nil, err
	}
	return monitor.NewWatchdog(a.cfg, a.client, a.client, a.notifier, a.logger)
}

type CheckCmd struct{}

func (c *CheckCmd) Run(ctx context.Context, a *app) error {
	w, err := a.watchdog()
	if err != nil {
		return err
	}

	res := w.Run(ctx)
	a.logger.WithFields(logrus.Fields{
		"run_id":    res.RunID,
		"outcome":   res.Outcome,
		"journeys":  res.Journeys,
		"matches":   res.Matches,
		"alerts":    res.Alerts,
		"heartbeat": res.Heartbeat,
	}).Info("check finished")

	if !res.OK() {
		return fmt.Errorf("check failed: %w", res.Err)
	}
	return nil
}

type WatchCmd struct {
	Every time.Duration `help:"Interval between runs" default:"15m"`
}

func (c *WatchCmd) Run(ctx context.Context, a *app) error {
	w, err := a.watchdog()
	if err != nil {
		return err
	}

	a.logger.WithFields(logrus.Fields{
		"route":  a.cfg.Trip.Route(),
		"date":   a.cfg.Trip.Date,
		"every":  c.Every.String(),
		"notify": a.notifier.ChannelName(),
	}).Info("starting trainwatch")

	sched := scheduler.NewScheduler(w, c.Every, a.logger)
	sched.Start(ctx)

	// Wait for context cancellation
	<-ctx.Done()

	sched.Stop()
	runs, failures := sched.Stats()
	a.logger.WithFields(logrus.Fields{
		"runs":     runs,
		"failures": failures,
	}).Info("trainwatch stopped")
	return nil
}

type TestNotifyCmd struct{}

func (c *TestNotifyCmd) Run(ctx context.Context, a *app) error {
	w, err := a.watchdog()
	if err != nil {
		return err
	}
	a.logger.WithField("channel", a.notifier.ChannelName()).Info("sending test notification")
	w.TestNotification(ctx)
	return nil
}

type StationsCmd struct {
	Query string `arg:"" help:"Station name or prefix"`
}

func (c *StationsCmd) Run(ctx context.Context, a *app) error {
	if err := a.load(config.LoadBooking); err != nil {
		return err
	}

	places, err := a.client.Places(ctx, c.Query)
	if err != nil {
		return err
	}
	if len(places) == 0 {
		a.logger.WithField("query", c.Query).Warn("no stations found")
		return nil
	}
	for _, p := range places {
		fmt.Printf("%s\t%s\n", p.ID, p.Name)
	}
	return nil
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("trainwatch"),
		kong.Description("Watches a train booking backend and alerts when tickets are released."),
	)

	// Setup structured logging with logfmt
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(CLI.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if CLI.LogJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	}

	if err := config.LoadEnvFile(CLI.EnvFile); err != nil {
		logger.WithField("error", err).Fatal("failed to load env file")
	}

	a := &app{
		configPath: CLI.Config,
		logger:     logger,
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig).Info("received signal, shutting down")
		cancel()
	}()

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(a); err != nil {
		var cfgErr *config.ConfigurationError
		if errors.As(err, &cfgErr) {
			logger.WithField("problems", cfgErr.Problems).Fatal("configuration error")
		}
		logger.WithField("error", err).Error("command failed")
		os.Exit(1)
	}
}
