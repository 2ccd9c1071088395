package elevation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/terradrive/modgen/pkg/fetch"
	"github.com/terradrive/modgen/pkg/geo"
	"github.com/terradrive/modgen/pkg/monitoring"
)

const (
	// DefaultTileBaseURL serves Terrarium-packed elevation tiles from the
	// AWS open data program.
	DefaultTileBaseURL = "https://s3.amazonaws.com/elevation-tiles-prod/terrarium"

	// defaultTileCacheSize bounds the raw tile byte cache.
	defaultTileCacheSize = 256

	// defaultConcurrency caps simultaneous tile downloads.
	defaultConcurrency = 4
)

// Sentinel errors callers can test with errors.Is to distinguish transport
// failures from bad tile payloads.
var (
	// ErrNoData is returned when every tile in the requested range failed.
	ErrNoData = errors.New("no usable elevation data")

	// ErrDecode wraps failures to decode fetched tile bytes.
	ErrDecode = errors.New("decoding elevation tile")
)

// Fetcher downloads and decodes elevation tiles for a tile range.
// Fetches run concurrently; decode results are assembled into the range's
// row-major grid. Per-tile fetch failures are either substituted with a
// zero-elevation placeholder or abort the run, depending on policy.
type Fetcher struct {
	baseURL     string
	userAgent   string
	http        *http.Client
	limiter     *rate.Limiter
	cache       *lru.Cache[string, []byte]
	retry       fetch.RetryOptions
	concurrency int

	// PlaceholderOnFailure substitutes a flat zero-elevation tile when a
	// tile cannot be fetched. Decode failures of fetched bytes are always
	// fatal regardless of this setting.
	PlaceholderOnFailure bool
}

// FetchResult is the decoded tile grid for a range plus bookkeeping about
// approximated regions.
type FetchResult struct {
	// Tiles is indexed [row][col] matching the range's row-major layout.
	Tiles [][]*Heightmap

	// Placeholders counts tiles substituted with zero elevation.
	Placeholders int
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithTileBaseURL overrides the tile server endpoint.
func WithTileBaseURL(u string) FetcherOption {
	return func(f *Fetcher) { f.baseURL = u }
}

// WithTileUserAgent overrides the User-Agent header.
func WithTileUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) { f.userAgent = ua }
}

// WithTileHTTPClient overrides the underlying HTTP client.
func WithTileHTTPClient(h *http.Client) FetcherOption {
	return func(f *Fetcher) { f.http = h }
}

// WithTileRateLimit overrides the tile server rate limit.
func WithTileRateLimit(rps float64, burst int) FetcherOption {
	return func(f *Fetcher) { f.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// WithConcurrency overrides the number of simultaneous downloads.
func WithConcurrency(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = n
		}
	}
}

// NewFetcher returns a Fetcher with pooled transport, an LRU byte cache and
// placeholder substitution enabled.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	cache, _ := lru.New[string, []byte](defaultTileCacheSize)
	f := &Fetcher{
		baseURL:              DefaultTileBaseURL,
		userAgent:            fetch.DefaultUserAgent,
		http:                 fetch.DefaultClient,
		limiter:              rate.NewLimiter(rate.Limit(4), 4),
		cache:                cache,
		retry:                fetch.DefaultRetryOptions,
		concurrency:          defaultConcurrency,
		PlaceholderOnFailure: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchRange downloads and decodes every tile in the range. When every tile
// in the range fails there is no usable elevation data and the run aborts
// even under the placeholder policy.
func (f *Fetcher) FetchRange(ctx context.Context, r geo.TileRange) (*FetchResult, error) {
	logger := slog.Default().With("component", "tile_fetcher", "zoom", r.Zoom)

	result := &FetchResult{Tiles: make([][]*Heightmap, r.Rows())}
	for row := range result.Tiles {
		result.Tiles[row] = make([]*Heightmap, r.Cols())
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for _, tile := range r.Tiles() {
		tile := tile
		g.Go(func() error {
			hm, placeholder, err := f.fetchTile(ctx, tile, logger)
			if err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			result.Tiles[tile.Y-r.MinY][tile.X-r.MinX] = hm
			if placeholder {
				result.Placeholders++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	if result.Placeholders == r.Count() {
		return nil, fmt.Errorf("%w: all %d tiles failed", ErrNoData, r.Count())
	}

	if result.Placeholders > 0 {
		logger.Warn("substituted zero-elevation placeholder tiles",
			"placeholders", result.Placeholders,
			"total", r.Count())
	}
	return result, nil
}

// fetchTile returns the decoded tile, or a placeholder when allowed by policy.
func (f *Fetcher) fetchTile(ctx context.Context, tile geo.Tile, logger *slog.Logger) (hm *Heightmap, placeholder bool, err error) {
	data, err := f.tileBytes(ctx, tile)
	if err != nil {
		monitoring.RecordTileFetch(false)
		if !f.PlaceholderOnFailure {
			return nil, false, fmt.Errorf("fetching tile %d/%d/%d: %w", tile.Zoom, tile.X, tile.Y, err)
		}
		logger.Warn("tile fetch failed, substituting placeholder",
			"x", tile.X, "y", tile.Y, "error", err)
		monitoring.PlaceholderTilesTotal.Inc()
		return NewHeightmap(TileSize, TileSize), true, nil
	}
	monitoring.RecordTileFetch(true)

	hm, err = DecodeTerrarium(data)
	if err != nil {
		return nil, false, fmt.Errorf("%w %d/%d/%d: %v", ErrDecode, tile.Zoom, tile.X, tile.Y, err)
	}
	return hm, false, nil
}

// tileBytes fetches the raw tile image, consulting the LRU cache first.
func (f *Fetcher) tileBytes(ctx context.Context, tile geo.Tile) ([]byte, error) {
	key := fmt.Sprintf("tile:%d:%d:%d", tile.Zoom, tile.X, tile.Y)
	if data, ok := f.cache.Get(key); ok {
		monitoring.TileCacheHits.Inc()
		return data, nil
	}
	monitoring.TileCacheMisses.Inc()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tileURL := fmt.Sprintf("%s/%d/%d/%d.png", f.baseURL, tile.Zoom, tile.X, tile.Y)
	factory := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", f.userAgent)
		return req, nil
	}

	resp, err := fetch.WithRetryFactory(ctx, factory, f.http, f.retry)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile server returned %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading tile body: %w", err)
	}

	f.cache.Add(key, data)
	return data, nil
}
