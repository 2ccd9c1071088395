package pipeline

import "fmt"

// ErrorCode identifies a class of generation failure.
type ErrorCode string

const (
	ErrTileFetchFailure    ErrorCode = "TILE_FETCH_FAILURE"
	ErrRasterDecodeFailure ErrorCode = "RASTER_DECODE_FAILURE"
	ErrElementParseFailure ErrorCode = "ELEMENT_PARSE_FAILURE"
	ErrPackagingFailure    ErrorCode = "PACKAGING_FAILURE"
	ErrInvalidBounds       ErrorCode = "INVALID_BOUNDS"
	ErrNoElevationData     ErrorCode = "NO_ELEVATION_DATA"
)

// Error is a generation failure attributed to a pipeline stage.
type Error struct {
	Stage   string
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
