// Package svsrepair implements the SVS corrupt-edge repairer (§4.7): a
// pyramid of Level values that detects zero-bytecount tiles along
// the right column and bottom row and synthesizes replacements by
// resampling from the next-finer level.
//
// Cyclic references are the shape the spec calls out: level k needs level
// k-1 to repair its edge, and k-1 may in turn need k-2. Rather than giving
// each level an owned back-pointer to its parent (which Go can't express
// without unsafe aliasing once levels are stored by value), the pyramid
// owns every level in one array and each level carries a numeric parent
// index into that array.
package svsrepair

import (
	"sync"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/internal/lockfile"
	"github.com/pspoerri/wsitile/internal/metrics"
	"github.com/pspoerri/wsitile/tiffmodel"
)

// Level is one pyramid page: its TIFF geometry, a lockfile.Handle onto
// its source file, and the lazily-built edge-repair state.
type Level struct {
	tiff   tiffmodel.TiffImage
	handle *lockfile.Handle

	tileSize    geom.Size
	tiledSize   geom.Size
	pyramidIdx  int
	parentIndex int // index into Pyramid.levels, or -1 if this is the finest level

	rightEdgeCorrupt bool
	bottomEdgeCorrupt bool

	fixedMu    sync.Mutex
	fixedTiles map[geom.Point][]byte

	// blankTile is this level's sparse-tile substitute (§7 SparseFrame:
	// "built once: take first non-empty frame, splice tables,
	// fill_whole_image at white"), built lazily on first zero-bytecount,
	// non-corrupt-edge tile request and reused after that.
	blankMu   sync.Mutex
	blankTile []byte
}

// Pyramid owns every level of one SVS series. Levels are ordered from
// finest (index 0, pyramid_index 0) to coarsest.
type Pyramid struct {
	levels  []*Level
	metrics *metrics.Registry
}

// Config bundles the optional knobs NewPyramid takes beyond the mandatory
// per-level TiffImage/Handle pairs, with zero-value fields resolved to
// defaults in resolved().
type Config struct {
	TileSize geom.Size
	Metrics  *metrics.Registry
}

// DefaultTileSize is the fallback tile geometry when a caller leaves
// Config.TileSize unset.
var DefaultTileSize = geom.Size{W: 256, H: 256}

func (c Config) resolved() Config {
	if c.TileSize.IsZero() {
		c.TileSize = DefaultTileSize
	}
	return c
}

// NewPyramid builds a Pyramid from one TiffImage + lockfile.Handle pair
// per level, ordered finest-to-coarsest. Parent links are assigned as
// levels[i].parentIndex = i-1; level 0 has no parent (-1).
func NewPyramid(tiffs []tiffmodel.TiffImage, handles []*lockfile.Handle, cfg Config) (*Pyramid, error) {
	cfg = cfg.resolved()
	levels := make([]*Level, len(tiffs))
	for i, t := range tiffs {
		parent := i - 1
		lvl := &Level{
			tiff:        t,
			handle:      handles[i],
			tileSize:    cfg.TileSize,
			tiledSize:   t.ImageSize().CeilDiv(cfg.TileSize),
			pyramidIdx:  t.PyramidIndex(),
			parentIndex: parent,
			fixedTiles:  make(map[geom.Point][]byte),
		}
		detectCorruptEdges(lvl)
		levels[i] = lvl
	}
	return &Pyramid{levels: levels, metrics: cfg.Metrics}, nil
}

// detectCorruptEdges scans the right-edge column and bottom-edge row for
// any tile whose bytecount is zero (§4.7: "only the zero-length case is
// detected"). In a level with tiled_size 1x1 the single tile is both the
// right column and the bottom row, so a zero bytecount flags both edges.
func detectCorruptEdges(lvl *Level) {
	bytecounts := lvl.tiff.Bytecounts()
	w, h := lvl.tiledSize.W, lvl.tiledSize.H
	if w == 0 || h == 0 {
		return
	}
	for y := 0; y < h; y++ {
		idx := y*w + (w - 1)
		if idx < len(bytecounts) && bytecounts[idx] == 0 {
			lvl.rightEdgeCorrupt = true
			break
		}
	}
	for x := 0; x < w; x++ {
		idx := (h-1)*w + x
		if idx < len(bytecounts) && bytecounts[idx] == 0 {
			lvl.bottomEdgeCorrupt = true
			break
		}
	}
}

// isCorruptEdge reports whether p sits on an edge this level flagged as
// corrupt (so a zero-bytecount tile there should be repaired rather than
// surfaced as a SparseFrame).
func (lvl *Level) isCorruptEdge(p geom.Point) bool {
	onRight := lvl.rightEdgeCorrupt && p.X == lvl.tiledSize.W-1
	onBottom := lvl.bottomEdgeCorrupt && p.Y == lvl.tiledSize.H-1
	return onRight || onBottom
}
