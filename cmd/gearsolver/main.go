package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/gearsolver/internal/application"
	"github.com/eugenenazirov/gearsolver/internal/config"
	"github.com/eugenenazirov/gearsolver/internal/gears"
	"github.com/eugenenazirov/gearsolver/internal/logging"
	"github.com/eugenenazirov/gearsolver/internal/storage"
)

var signalNotify = signal.Notify

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	kingpinApp := kingpin.New("gearsolver", "Planetary gearset solver - derives sun and planet tooth counts from a gear ratio and ring gear")
	kingpinApp.UsageWriter(stderr)
	kingpinApp.ErrorWriter(stderr)

	solveCmd := kingpinApp.Command("solve", "Solve a single gearset and print the result").Default()
	ratioFlag := solveCmd.Flag("ratio", "Gear ratio as a/b, a:b or a decimal").Default("1/9").String()
	ringFlag := solveCmd.Flag("ring", "Ring gear tooth count").Default("80").Int()
	planetsFlag := solveCmd.Flag("planets", "Number of planet gears").Default("3").Int()
	toleranceFlag := solveCmd.Flag("tolerance", "Accept tooth counts within this distance of a whole number (0 = exact)").Default("0").Float64()
	solveLogLevel := solveCmd.Flag("log-level", "Log level for diagnostics written to stderr").Default("warn").String()

	serveCmd := kingpinApp.Command("serve", "Run the HTTP API")
	configFile := serveCmd.Flag("config", "Path to YAML configuration file").String()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	planetCountFlag := serveCmd.Flag("planet-count", "Number of planet gears used by the meshing check").Default("-1").Int()
	serveToleranceFlag := serveCmd.Flag("tolerance", "Integrality tolerance (0 = exact)").Default("-1").Float64()
	logLevel := serveCmd.Flag("log-level", "Log level (debug, info, warn, error)").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	command, err := kingpinApp.Parse(args)
	if err != nil {
		fmt.Fprintf(stderr, "gearsolver: %v\n", err)
		return 2
	}

	switch command {
	case serveCmd.FullCommand():
		overrides := &config.CLIOverrides{
			ConfigFile: *configFile,
		}
		if overrides.ConfigFile == "" {
			if path, err := config.Discover(config.DefaultConfigFile); err == nil {
				overrides.ConfigFile = path
			}
		}
		if *port != "" {
			overrides.Port = port
		}
		if *planetCountFlag >= 0 {
			overrides.PlanetCount = planetCountFlag
		}
		if *serveToleranceFlag >= 0 {
			overrides.Tolerance = serveToleranceFlag
		}
		if *logLevel != "" {
			overrides.LogLevel = logLevel
		}
		if *rateLimitRPSFlag >= 0 {
			overrides.RateLimitRPS = rateLimitRPSFlag
		}
		if *rateLimitBurstFlag >= 0 {
			overrides.RateLimitBurst = rateLimitBurstFlag
		}
		return serve(overrides, stderr)
	default:
		logger, err := logging.New(*solveLogLevel)
		if err != nil {
			fmt.Fprintf(stderr, "gearsolver: %v\n", err)
			return 2
		}
		defer func() {
			_ = logger.Sync()
		}()
		settings := storage.Settings{PlanetCount: *planetsFlag, Tolerance: *toleranceFlag}
		return solve(stdout, logger, *ratioFlag, *ringFlag, settings)
	}
}

// solve prints either the solution or the diagnostic message to out.
func solve(out io.Writer, logger *zap.Logger, rawRatio string, ring int, settings storage.Settings) int {
	if err := storage.Validate(settings); err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	ratio, err := gears.ParseRatio(rawRatio)
	if err != nil {
		fmt.Fprintln(out, err)
		return 2
	}

	solution, err := gears.New(settings.SolverOptions()...).Solve(ratio, ring)
	if err != nil {
		logger.Debug("no gearset for inputs",
			zap.Stringer("ratio", ratio),
			zap.Int("ring", ring),
			zap.String("kind", gears.Kind(err)),
		)
		fmt.Fprintln(out, err)
		return 1
	}

	logger.Debug("gearset solved",
		zap.Stringer("ratio", ratio),
		zap.Int("ring", ring),
		zap.Int("sun", solution.Sun),
		zap.Int("planet", solution.Planet),
	)
	fmt.Fprintln(out, solution)
	return 0
}

func serve(overrides *config.CLIOverrides, stderr io.Writer) int {
	cfg, err := config.Load(overrides)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return 1
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize application", zap.Error(err))
		return 1
	}

	settings, err := app.Settings()
	if err != nil {
		logger.Error("failed to read solver settings", zap.Error(err))
		return 1
	}
	logger.Info("solver settings",
		zap.Int("planet_count", settings.PlanetCount),
		zap.Float64("tolerance", settings.Tolerance),
		zap.Int("batch_limit", cfg.BatchLimit),
	)

	if err := app.Start(); err != nil {
		logger.Error("failed to start server", zap.Error(err))
		return 1
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return 0
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
