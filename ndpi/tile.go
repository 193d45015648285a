// Package ndpi implements the NDPI tile synthesizer (component C6): it
// converts caller tile coordinates into frame jobs (which strips to read,
// what frame size to build, which crop rects produce the requested
// tiles), backed by an LRU frame cache keyed on frame position.
package ndpi

import (
	"github.com/pspoerri/wsitile/geom"
)

// NdpiTile describes one caller-requested tile in terms of the
// synthesized frame it will be cropped from.
type NdpiTile struct {
	Position  geom.Point // tile coordinates
	TileSize  geom.Size  // caller-requested tile size
	FrameSize geom.Size  // enclosing synthesized frame size
}

// TilesPerFrame returns max(FrameSize/TileSize, (1,1)).
func (t NdpiTile) TilesPerFrame() geom.Size {
	return t.FrameSize.Div(t.TileSize).Max(geom.Size{W: 1, H: 1})
}

// FramePosition returns the tile-coordinate origin of the frame this tile
// belongs to: (position / tiles_per_frame) * tiles_per_frame.
func (t NdpiTile) FramePosition() geom.Point {
	tpf := t.TilesPerFrame()
	return t.Position.DivSize(tpf).Mul(tpf)
}

// CropOrigin returns (left, top) = (position*tile_size) mod max(frame_size, tile_size).
func (t NdpiTile) CropOrigin() geom.Point {
	mod := t.FrameSize.Max(t.TileSize)
	return t.Position.Mul(t.TileSize).Mod(mod)
}

// CropRegion returns the crop rectangle (left, top, w, h) this tile is
// carved from within its frame.
func (t NdpiTile) CropRegion() geom.Region {
	return geom.Region{Origin: t.CropOrigin(), Size: t.TileSize}
}

// NdpiFrameJob batches the NdpiTiles that share one synthesized frame.
type NdpiFrameJob struct {
	Position  geom.Point
	FrameSize geom.Size
	Tiles     []NdpiTile
	// InputIndex[i] is the position in the caller's original request list
	// that Tiles[i] corresponds to, so GetTiles can restore call order
	// after batching by frame.
	InputIndex []int
}

// Add appends tile (originating from the caller's inputIndex-th request)
// to the job. Panics if tile does not share the job's frame identity,
// since that would violate the invariant the job bucketing relies on.
func (j *NdpiFrameJob) Add(tile NdpiTile, inputIndex int) {
	if tile.FramePosition() != j.Position || tile.FrameSize != j.FrameSize {
		panic("ndpi: tile does not belong to this frame job")
	}
	j.Tiles = append(j.Tiles, tile)
	j.InputIndex = append(j.InputIndex, inputIndex)
}

// CropParameters returns the (left, top, w, h) rects for every tile in
// the job, in the order tiles were added.
func (j *NdpiFrameJob) CropParameters() []geom.Region {
	out := make([]geom.Region, len(j.Tiles))
	for i, t := range j.Tiles {
		out[i] = t.CropRegion()
	}
	return out
}
