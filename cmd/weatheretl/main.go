package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/pallapothu30/weather-etl/internal/config"
	"github.com/pallapothu30/weather-etl/internal/httputil"
	"github.com/pallapothu30/weather-etl/internal/metrics"
	"github.com/pallapothu30/weather-etl/internal/observability"
	"github.com/pallapothu30/weather-etl/internal/pipeline"
)

type cli struct {
	EnvFile string `name:"env-file" type:"path" placeholder:"PATH" help:"Dotenv file loaded before configuration is read. Existing environment variables win."`

	Run       runCmd       `cmd:"" default:"withargs" help:"Fetch, normalize and load the current weather for a city (default)."`
	Dump      dumpCmd      `cmd:"" help:"Capture the raw forecast payload for a city. The database is not touched."`
	Replay    replayCmd    `cmd:"" help:"Normalize and load a payload captured by dump."`
	Latest    latestCmd    `cmd:"" help:"Print the most recent stored readings for a city as JSON."`
	Locations locationsCmd `cmd:"" help:"Print every stored location as JSON."`
}

// app is bound into every command's Run method.
type app struct {
	ctx      context.Context
	cfg      *config.Config
	client   *http.Client
	logger   *zap.Logger
	pipeline *pipeline.Pipeline
	out      io.Writer
}

type runCmd struct {
	City string `help:"City to process. Defaults to CITY_NAME."`
}

func (c *runCmd) Run(a *app) error {
	city := a.cfg.ResolveCity(c.City)
	defer a.pushMetrics(city)

	res, err := a.pipeline.Run(a.ctx, city)
	if err != nil {
		return err
	}
	a.logger.Info("weather loaded",
		zap.String("run_id", res.RunID),
		zap.String("city", res.City),
		zap.Int64("rows_affected", res.RowsAffected),
	)
	return nil
}

type dumpCmd struct {
	City   string `help:"City to capture. Defaults to CITY_NAME."`
	Output string `short:"o" type:"path" default:"raw_weather_latest.json" help:"Where to write the capture."`
}

func (c *dumpCmd) Run(a *app) error {
	d, err := a.pipeline.Dump(a.ctx, c.City, c.Output)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Saved raw API output for %s to %s\n", d.CityMetadata.CityName, c.Output)
	return nil
}

type replayCmd struct {
	Input string `short:"i" type:"path" default:"raw_weather_latest.json" help:"Capture written by dump."`
}

func (c *replayCmd) Run(a *app) error {
	res, err := a.pipeline.Replay(a.ctx, c.Input)
	city := a.cfg.CityName
	if res != nil {
		city = res.City
	}
	a.pushMetrics(city)
	if err != nil {
		return err
	}
	a.logger.Info("capture loaded",
		zap.String("run_id", res.RunID),
		zap.String("city", res.City),
		zap.Int64("rows_affected", res.RowsAffected),
	)
	return nil
}

type latestCmd struct {
	City  string `help:"City to show. Defaults to CITY_NAME."`
	Limit int    `short:"n" default:"1" help:"Number of readings to print."`
}

func (c *latestCmd) Run(a *app) error {
	readings, err := a.pipeline.Latest(a.ctx, c.City, c.Limit)
	if err != nil {
		return err
	}
	return writeJSON(a.out, readingViews(readings))
}

type locationsCmd struct{}

func (c *locationsCmd) Run(a *app) error {
	locations, err := a.pipeline.Locations(a.ctx)
	if err != nil {
		return err
	}
	return writeJSON(a.out, locationViews(locations))
}

// pushMetrics is best effort; a batch run never fails because the gateway is down.
func (a *app) pushMetrics(city string) {
	if a.cfg.PushgatewayURL == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTPTimeout)
	defer cancel()
	if err := metrics.Push(ctx, a.client, a.cfg.PushgatewayURL, city); err != nil {
		a.logger.Warn("metrics push failed", zap.String("pushgateway", a.cfg.PushgatewayURL), zap.Error(err))
	}
}

func main() {
	var c cli
	kctx := kong.Parse(&c,
		kong.Name("weatheretl"),
		kong.Description("Fetch the current weather for a city from Open-Meteo and load it into a normalized SQL schema."),
		kong.UsageOnError(),
	)

	if c.EnvFile != "" {
		kctx.FatalIfErrorf(godotenv.Load(c.EnvFile), "load env file")
	}

	cfg, cfgErr := config.Load()

	// An invalid config still needs a logger to report it.
	level := os.Getenv("LOG_LEVEL")
	if cfg != nil {
		level = cfg.LogLevel
	}
	logger, err := observability.NewLogger(level)
	kctx.FatalIfErrorf(err, "create logger")

	if cfgErr != nil {
		fail(logger, kctx.Command(), cfgErr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	client := httputil.NewClient(cfg.HTTPTimeout)
	a := &app{
		ctx:      ctx,
		cfg:      cfg,
		client:   client,
		logger:   logger,
		pipeline: pipeline.New(cfg, client, logger),
		out:      os.Stdout,
	}

	err = kctx.Run(a)
	stop()
	if err != nil {
		fail(logger, kctx.Command(), err)
	}
	_ = logger.Sync()
}

func fail(logger *zap.Logger, command string, err error) {
	logger.Error("weatheretl failed",
		zap.String("command", command),
		zap.String("failure_kind", pipeline.FailureKind(err)),
		zap.Error(err),
	)
	_ = logger.Sync()
	os.Exit(1)
}
