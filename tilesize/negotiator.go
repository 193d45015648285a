// Package tilesize implements the tile-size negotiator (component C8):
// it adopts a power-of-two multiple of the smallest strip width present in
// the file, so every tile maps to a whole number of strips and no
// partial-strip read is ever needed. The power of two comes from the ratio
// between the requested width and the strip width; a request narrower than
// the strip also yields a multiple of the strip width, never a divider.
package tilesize

import (
	"math"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/wsierr"
)

// DefaultAlignment is the MCU alignment adopted tile sizes must divide
// evenly by when a Negotiator leaves Alignment unset.
const DefaultAlignment = 8

// Negotiator holds the alignment requirement adopted sizes must satisfy.
// The zero value negotiates against DefaultAlignment, matching the
// package-level Negotiate function.
type Negotiator struct {
	Alignment int
}

func (n Negotiator) resolved() Negotiator {
	if n.Alignment <= 0 {
		n.Alignment = DefaultAlignment
	}
	return n
}

// Negotiate adopts a tile size for a caller-requested width w given the
// smallest strip width present in the file. hasSmallestStrip is false
// when the file has no natural strip width to align to (e.g. a natively
// tiled page), in which case w is adopted as-is.
func (n Negotiator) Negotiate(w int, smallestStrip int, hasSmallestStrip bool) (geom.Size, error) {
	n = n.resolved()
	var adopted int
	switch {
	case !hasSmallestStrip || smallestStrip == w:
		adopted = w
	default:
		hi, lo := w, smallestStrip
		if lo > hi {
			hi, lo = lo, hi
		}
		f := float64(hi) / float64(lo)
		// "Nearest power of two" here means the smallest power of two
		// covering f, i.e. ceil in log2 space: 512 vs strip 400 gives
		// f=1.28, which rounds up to 2 (adopted 800), not down to 1.
		f2 := math.Pow(2, math.Ceil(math.Log2(f)))
		adopted = int(f2) * smallestStrip
	}

	if adopted%n.Alignment != 0 {
		return geom.Size{}, &wsierr.JpegStructureError{
			Op:      "tilesize_negotiate",
			Missing: "tile size must be a multiple of the negotiator's alignment",
		}
	}
	return geom.Size{W: adopted, H: adopted}, nil
}

// Negotiate is the package-level convenience entry point, equivalent to
// (Negotiator{}).Negotiate.
func Negotiate(w int, smallestStrip int, hasSmallestStrip bool) (geom.Size, error) {
	return Negotiator{}.Negotiate(w, smallestStrip, hasSmallestStrip)
}
