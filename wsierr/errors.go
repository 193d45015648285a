// Package wsierr defines the error taxonomy every component in this module
// returns: the seven kinds from the specification's error-handling design.
// Sparse-tile and edge-corruption recovery never surface these to callers;
// everything else carries enough context (tile position, frame size, crop
// rects) to reproduce the failure.
package wsierr

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/pspoerri/wsitile/geom"
)

// UnsupportedCompression is returned when a page's declared compression is
// not in the accepted set for the operation being attempted.
type UnsupportedCompression struct {
	Compression string
}

func (e *UnsupportedCompression) Error() string {
	return fmt.Sprintf("unsupported compression: %s", e.Compression)
}

// JpegStructureError is returned when an expected marker (SOI/SOF0/SOS/DRI,
// or an end-of-strip RST byte) is missing from a buffer the caller told us
// to manipulate.
type JpegStructureError struct {
	Op      string // which rewrite/concatenation operation failed
	Missing string // the marker or byte sequence that was expected
}

func (e *JpegStructureError) Error() string {
	return fmt.Sprintf("jpeg structure error in %s: missing %s", e.Op, e.Missing)
}

// JpegCropError is returned when the lossless crop driver rejects a
// transform, most often because a crop origin isn't MCU-aligned.
type JpegCropError struct {
	Rects    []geom.Region
	ImageSize geom.Size
	Reason   string
}

func (e *JpegCropError) Error() string {
	return fmt.Sprintf("jpeg crop error: %s (image %dx%d, %d rect(s))",
		e.Reason, e.ImageSize.W, e.ImageSize.H, len(e.Rects))
}

// OutOfBounds is returned when a requested tile position lies outside
// tiled_size, or a non-zero position is requested on a non-tiled image.
type OutOfBounds struct {
	Position geom.Point
	Bound    geom.Size
}

func (e *OutOfBounds) Error() string {
	return fmt.Sprintf("tile position (%d,%d) out of bounds %dx%d",
		e.Position.X, e.Position.Y, e.Bound.W, e.Bound.H)
}

// SparseFrame signals a zero-bytecount strip/tile offset. Callers within
// this module recover from it locally (blank-tile substitution); it is
// exported so tests can assert on the recovery path and so a future
// variant that doesn't want silent recovery can opt out.
type SparseFrame struct {
	Index int
}

func (e *SparseFrame) Error() string {
	return fmt.Sprintf("sparse frame at index %d (zero bytecount)", e.Index)
}

// EdgeCorruption signals a detected corrupt edge tile whose repair could
// not proceed because the finer pyramid level it needs is absent. This is
// the only EdgeCorruption case that surfaces to the caller; zero-bytecount
// detection with an available parent level is repaired silently.
type EdgeCorruption struct {
	Position     geom.Point
	Level        int
	MissingLevel int
}

func (e *EdgeCorruption) Error() string {
	return fmt.Sprintf("edge corruption at (%d,%d) level %d: parent level %d unavailable",
		e.Position.X, e.Position.Y, e.Level, e.MissingLevel)
}

// IoError wraps a file-read failure with the offset/length that failed,
// surfaced verbatim to the caller.
type IoError struct {
	Offset int64
	Length int
	Cause  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("io error reading %d bytes at offset %d: %v", e.Length, e.Offset, e.Cause)
}

func (e *IoError) Unwrap() error { return e.Cause }

// WrapIO wraps err as an IoError with read context, preserving the
// original error for errors.Is/As via github.com/pkg/errors so stack
// context survives across the file-handle boundary.
func WrapIO(err error, offset int64, length int) error {
	if err == nil {
		return nil
	}
	return &IoError{Offset: offset, Length: length, Cause: errors.WithStack(err)}
}
