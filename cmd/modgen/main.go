package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/terradrive/modgen/pkg/elevation"
	"github.com/terradrive/modgen/pkg/fetch"
	"github.com/terradrive/modgen/pkg/geo"
	"github.com/terradrive/modgen/pkg/overpass"
	"github.com/terradrive/modgen/pkg/pipeline"
	"github.com/terradrive/modgen/pkg/tracing"
	ver "github.com/terradrive/modgen/pkg/version"
)

var (
	showVersionFlag bool
	debug           bool
	jsonProgress    bool
	userAgent       string

	// Bounding box
	minLat float64
	minLon float64
	maxLat float64
	maxLon float64

	// Output
	outDir   string
	modName  string
	zoom     int
	keepTree bool

	// Elevation tile policy
	placeholderTiles bool

	// Monitoring flags
	enableMonitoring bool
	monitoringAddr   string

	// Rate limits for each service
	overpassRPS   float64
	overpassBurst int
	tileRPS       float64
	tileBurst     int
)

func init() {
	flag.BoolVar(&showVersionFlag, "version", false, "Display version information")
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&jsonProgress, "json-progress", false, "Emit progress as JSON lines on stdout")
	flag.StringVar(&userAgent, "user-agent", fetch.DefaultUserAgent, "User-Agent string for upstream API requests")

	// Bounding box
	flag.Float64Var(&minLat, "min-lat", 0, "Bounding box minimum latitude")
	flag.Float64Var(&minLon, "min-lon", 0, "Bounding box minimum longitude")
	flag.Float64Var(&maxLat, "max-lat", 0, "Bounding box maximum latitude")
	flag.Float64Var(&maxLon, "max-lon", 0, "Bounding box maximum longitude")

	// Output
	flag.StringVar(&outDir, "out", ".", "Output directory for the mod archive")
	flag.StringVar(&modName, "name", "generated_map", "Mod folder and level name")
	flag.IntVar(&zoom, "zoom", pipeline.DefaultZoom, "Elevation tile zoom level")
	flag.BoolVar(&keepTree, "keep-tree", false, "Keep the assembled directory next to the archive")

	// Elevation tile policy
	flag.BoolVar(&placeholderTiles, "placeholder-tiles", true, "Substitute flat tiles for failed elevation fetches")

	// Monitoring flags
	flag.BoolVar(&enableMonitoring, "enable-monitoring", false, "Enable Prometheus metrics endpoint")
	flag.StringVar(&monitoringAddr, "monitoring-addr", ":9090", "Monitoring server address")

	// Overpass rate limits
	flag.Float64Var(&overpassRPS, "overpass-rps", 1.0, "Overpass rate limit in requests per second")
	flag.IntVar(&overpassBurst, "overpass-burst", 1, "Overpass rate limit burst size")

	// Elevation tile rate limits
	flag.Float64Var(&tileRPS, "tile-rps", 4.0, "Elevation tile rate limit in requests per second")
	flag.IntVar(&tileBurst, "tile-burst", 4, "Elevation tile rate limit burst size")
}

func main() {
	flag.Parse()

	var logLevel slog.Level
	if debug {
		logLevel = slog.LevelDebug
	} else {
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if showVersionFlag {
		fmt.Println(ver.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracing(ctx, ver.BuildVersion)
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		// Continue without tracing - it's not critical
	} else {
		defer func() {
			if err := shutdownTracing(context.Background()); err != nil {
				logger.Error("error shutting down tracing", "error", err)
			}
		}()

		if endpoint := os.Getenv("OTLP_ENDPOINT"); endpoint != "" {
			logger.Info("OpenTelemetry tracing enabled", "endpoint", endpoint)
		}
	}

	bbox := geo.BoundingBox{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
	if err := bbox.Validate(); err != nil {
		logger.Error("invalid bounding box", "error", err)
		flag.Usage()
		os.Exit(2)
	}

	logger.Info("starting map generation",
		"version", ver.BuildVersion,
		"log_level", logLevel.String(),
		"name", modName,
		"out", outDir,
		"zoom", zoom,
		"min_lat", minLat, "min_lon", minLon,
		"max_lat", maxLat, "max_lon", maxLon,
		"placeholder_tiles", placeholderTiles,
		"overpass_rps", overpassRPS,
		"tile_rps", tileRPS,
		"monitoring_enabled", enableMonitoring)

	if enableMonitoring {
		startMonitoringServer(ctx, logger)
	}

	elements := overpass.NewClient(
		overpass.WithUserAgent(userAgent),
		overpass.WithRateLimit(overpassRPS, overpassBurst),
	)

	tiles := elevation.NewFetcher(
		elevation.WithTileUserAgent(userAgent),
		elevation.WithTileRateLimit(tileRPS, tileBurst),
	)
	tiles.PlaceholderOnFailure = placeholderTiles

	var reporter pipeline.Reporter
	if jsonProgress {
		reporter = pipeline.NewJSONReporter(os.Stdout)
	} else {
		reporter = &pipeline.LogReporter{Logger: logger}
	}

	runner := pipeline.NewRunner(pipeline.Config{
		BBox:                     bbox,
		OutDir:                   outDir,
		Name:                     modName,
		Zoom:                     zoom,
		PlaceholderOnTileFailure: placeholderTiles,
		KeepTree:                 keepTree,
	},
		pipeline.WithElementSource(elements),
		pipeline.WithTileSource(tiles),
		pipeline.WithReporter(reporter),
		pipeline.WithLogger(logger),
	)

	zipPath, err := runner.Run(ctx)
	if err != nil {
		logger.Error("generation failed", "error", err)
		os.Exit(1)
	}

	// Wrapping UIs parse this line to locate the archive.
	fmt.Printf("OUTPUT:%s\n", zipPath)
}

// startMonitoringServer serves Prometheus metrics for the duration of the run.
func startMonitoringServer(ctx context.Context, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              monitoringAddr,
		Handler:           mux,
		ReadHeaderTimeout: 30 * time.Second, // Prevent Slowloris attacks
	}

	go func() {
		logger.Info("starting Prometheus metrics server", "addr", monitoringAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("monitoring server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown monitoring server", "error", err)
		}
	}()
}
