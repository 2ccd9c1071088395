// Package pipeline orchestrates a full generation run: fetch geographic
// elements and elevation tiles, build the domain graph, assemble the mod
// package and archive it.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/terradrive/modgen/pkg/elevation"
	"github.com/terradrive/modgen/pkg/geo"
	"github.com/terradrive/modgen/pkg/graph"
	"github.com/terradrive/modgen/pkg/mod"
	"github.com/terradrive/modgen/pkg/monitoring"
	"github.com/terradrive/modgen/pkg/overpass"
	"github.com/terradrive/modgen/pkg/pack"
	"github.com/terradrive/modgen/pkg/tracing"
)

// DefaultZoom balances tile count against elevation resolution for
// city-sized bounding boxes.
const DefaultZoom = 12

// Config holds the per-run parameters. Zero values fall back to defaults in
// NewRunner.
type Config struct {
	BBox   geo.BoundingBox
	OutDir string
	Name   string
	Zoom   int

	// PlaceholderOnTileFailure substitutes flat tiles for failed elevation
	// fetches instead of aborting the run.
	PlaceholderOnTileFailure bool

	// KeepTree leaves the assembled directory next to the archive instead
	// of removing it after zipping.
	KeepTree bool
}

// ElementSource fetches the tagged elements for a bounding box.
type ElementSource interface {
	FetchElements(ctx context.Context, bbox geo.BoundingBox) ([]overpass.Element, error)
}

// TileSource fetches the decoded elevation tile grid for a tile range.
type TileSource interface {
	FetchRange(ctx context.Context, r geo.TileRange) (*elevation.FetchResult, error)
}

// Runner executes generation runs. A Runner is safe to reuse; each Run is
// independent.
type Runner struct {
	cfg      Config
	elements ElementSource
	tiles    TileSource
	reporter Reporter
	logger   *slog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithElementSource replaces the Overpass client.
func WithElementSource(s ElementSource) RunnerOption {
	return func(r *Runner) { r.elements = s }
}

// WithTileSource replaces the elevation tile fetcher.
func WithTileSource(s TileSource) RunnerOption {
	return func(r *Runner) { r.tiles = s }
}

// WithReporter sets the progress reporter.
func WithReporter(rep Reporter) RunnerOption {
	return func(r *Runner) { r.reporter = rep }
}

// WithLogger sets the run logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner returns a Runner for cfg with production sources unless
// overridden by options.
func NewRunner(cfg Config, opts ...RunnerOption) *Runner {
	if cfg.Name == "" {
		cfg.Name = "generated_map"
	}
	if cfg.Zoom == 0 {
		cfg.Zoom = DefaultZoom
	}

	r := &Runner{
		cfg:      cfg,
		reporter: nopReporter{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.elements == nil {
		r.elements = overpass.NewClient()
	}
	if r.tiles == nil {
		fetcher := elevation.NewFetcher()
		fetcher.PlaceholderOnFailure = cfg.PlaceholderOnTileFailure
		r.tiles = fetcher
	}
	return r
}

// Run executes the whole pipeline and returns the path of the finished
// archive. On failure the mod directory and any partial archive are removed
// and the returned error is a *Error carrying the failing stage and code.
func (r *Runner) Run(ctx context.Context) (string, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.Run")
	defer span.End()

	modDir := filepath.Join(r.cfg.OutDir, r.cfg.Name)
	zipPath := filepath.Join(r.cfg.OutDir, r.cfg.Name+".zip")

	zip, err := r.run(ctx, modDir, zipPath)
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			monitoring.RecordError(perr.Stage, string(perr.Code))
			r.logger.Error("generation failed",
				"stage", perr.Stage, "code", perr.Code, "error", err)
		} else {
			r.logger.Error("generation failed", "error", err)
		}
		tracing.RecordError(ctx, err)
		tracing.SetStatus(ctx, codes.Error, err.Error())
		monitoring.RecordRun(false)

		// No success-shaped partial output may remain.
		os.RemoveAll(modDir)
		os.Remove(zipPath)
		return "", err
	}

	monitoring.RecordRun(true)
	return zip, nil
}

func (r *Runner) run(ctx context.Context, modDir, zipPath string) (string, error) {
	if err := r.cfg.BBox.Validate(); err != nil {
		return "", &Error{Stage: "validate", Code: ErrInvalidBounds,
			Message: "invalid bounding box", Err: err}
	}

	tracing.SetAttributes(ctx,
		attribute.String("modgen.name", r.cfg.Name),
		attribute.Int("modgen.zoom", r.cfg.Zoom),
	)

	r.reporter.Report(progressFetchStart, "Fetching map data")

	elements, err := r.fetchElements(ctx)
	if err != nil {
		return "", err
	}
	r.reporter.Report(progressParseComplete, "Parsing map data")

	heightmap, placeholders, err := r.fetchElevation(ctx)
	if err != nil {
		return "", err
	}

	result, err := r.buildGraph(ctx, elements)
	if err != nil {
		return "", err
	}
	r.reporter.Report(progressConvertComplete, "Converting to game format")

	if err := r.assembleAndPack(ctx, modDir, zipPath, mod.Input{
		Heightmap:        heightmap,
		Features:         result.Features,
		Network:          result.Network,
		BBox:             r.cfg.BBox,
		ElementCount:     len(elements),
		PlaceholderTiles: placeholders,
	}); err != nil {
		return "", err
	}

	r.reporter.Report(progressPackageComplete, "Mod package complete")
	r.logger.Info("generation complete", "archive", zipPath,
		"elements", len(elements),
		"features", len(result.Features),
		"segments", len(result.Network.Segments))
	return zipPath, nil
}

func (r *Runner) fetchElements(ctx context.Context) ([]overpass.Element, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.fetchElements")
	defer span.End()
	defer timeStage("fetch_elements")()

	elements, err := r.elements.FetchElements(ctx, r.cfg.BBox)
	if err != nil {
		return nil, &Error{Stage: "fetch_elements", Code: ErrElementParseFailure,
			Message: "fetching map elements", Err: err}
	}

	r.logger.Info("fetched map elements", "count", len(elements))
	tracing.SetAttributes(ctx, attribute.Int("modgen.elements", len(elements)))
	return elements, nil
}

func (r *Runner) fetchElevation(ctx context.Context) (*elevation.Heightmap, int, error) {
	ctx, span := tracing.StartSpan(ctx, "pipeline.fetchElevation")
	defer span.End()
	defer timeStage("fetch_elevation")()

	tileRange := r.cfg.BBox.TileRange(r.cfg.Zoom)
	result, err := r.tiles.FetchRange(ctx, tileRange)
	if err != nil {
		return nil, 0, &Error{Stage: "fetch_elevation",
			Code: elevationErrorCode(err), Message: "fetching elevation tiles", Err: err}
	}

	heightmap, err := elevation.Stitch(result.Tiles)
	if err != nil {
		return nil, 0, &Error{Stage: "fetch_elevation", Code: ErrRasterDecodeFailure,
			Message: "stitching elevation tiles", Err: err}
	}

	r.logger.Info("fetched elevation tiles",
		"tiles", tileRange.Count(), "placeholders", result.Placeholders)
	return heightmap, result.Placeholders, nil
}

// elevationErrorCode maps tile source failures onto error codes: bad payload
// and empty range failures are distinct from plain transport errors.
func elevationErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, elevation.ErrNoData):
		return ErrNoElevationData
	case errors.Is(err, elevation.ErrDecode):
		return ErrRasterDecodeFailure
	default:
		return ErrTileFetchFailure
	}
}

func (r *Runner) buildGraph(ctx context.Context, elements []overpass.Element) (*graph.Result, error) {
	_, span := tracing.StartSpan(ctx, "pipeline.buildGraph")
	defer span.End()
	defer timeStage("build_graph")()

	result, err := graph.Build(elements, r.cfg.BBox)
	if err != nil {
		return nil, &Error{Stage: "build_graph", Code: ErrElementParseFailure,
			Message: "building map graph", Err: err}
	}

	for _, f := range result.Features {
		monitoring.FeaturesBuilt.WithLabelValues(string(f.Kind)).Inc()
	}
	monitoring.RoadSegmentsBuilt.Add(float64(len(result.Network.Segments)))

	r.logger.Info("built map graph",
		"features", len(result.Features),
		"road_nodes", len(result.Network.Nodes),
		"segments", len(result.Network.Segments))
	return result, nil
}

func (r *Runner) assembleAndPack(ctx context.Context, modDir, zipPath string, in mod.Input) error {
	_, span := tracing.StartSpan(ctx, "pipeline.assembleAndPack")
	defer span.End()
	defer timeStage("package")()

	assembler := &mod.Assembler{Name: r.cfg.Name}
	if _, err := assembler.Assemble(r.cfg.OutDir, in); err != nil {
		return &Error{Stage: "package", Code: ErrPackagingFailure,
			Message: "assembling mod package", Err: err}
	}

	if err := pack.Zip(modDir, zipPath); err != nil {
		return &Error{Stage: "package", Code: ErrPackagingFailure,
			Message: "archiving mod package", Err: err}
	}

	if !r.cfg.KeepTree {
		if err := os.RemoveAll(modDir); err != nil {
			return &Error{Stage: "package", Code: ErrPackagingFailure,
				Message: "removing assembled tree", Err: err}
		}
	}
	return nil
}

// timeStage returns a function that records the stage duration when called.
func timeStage(stage string) func() {
	start := time.Now()
	return func() { monitoring.RecordStage(stage, time.Since(start)) }
}
