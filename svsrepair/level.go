package svsrepair

import (
	"bytes"
	"image/jpeg"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/tiffmodel"
	"github.com/pspoerri/wsitile/wsierr"
)

// LevelCount returns the number of pyramid levels this Pyramid owns.
func (pyr *Pyramid) LevelCount() int { return len(pyr.levels) }

// ImageSize returns level's full pixel dimensions (§6: "image_size").
func (pyr *Pyramid) ImageSize(level int) (geom.Size, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return geom.Size{}, err
	}
	return lvl.tiff.ImageSize(), nil
}

// TileSize returns the tile geometry every level in this Pyramid was
// constructed with (§6: "tile_size").
func (pyr *Pyramid) TileSize() geom.Size {
	if len(pyr.levels) == 0 {
		return geom.Size{}
	}
	return pyr.levels[0].tileSize
}

// TiledSize returns level's ceil(image_size/tile_size) (§6: "tiled_size").
func (pyr *Pyramid) TiledSize(level int) (geom.Size, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return geom.Size{}, err
	}
	return lvl.tiledSize, nil
}

// PyramidIndex returns level's declared pyramid index (§6: "pyramid_index").
func (pyr *Pyramid) PyramidIndex(level int) (int, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return 0, err
	}
	return lvl.pyramidIdx, nil
}

// MPP returns level's microns-per-pixel calibration, if any (§6: "mpp").
func (pyr *Pyramid) MPP(level int) (x, y float64, ok bool, err error) {
	lvl, lerr := pyr.level(level)
	if lerr != nil {
		return 0, 0, false, lerr
	}
	x, y, ok = lvl.tiff.MPP()
	return x, y, ok, nil
}

// Compression, Photometric, Subsampling, SamplesPerPixel, BitDepth,
// OpticalPath, and FocalPlane pass level's TIFF metadata through
// unchanged (§6 inbound interface).
func (pyr *Pyramid) Compression(level int) (tiffmodel.Compression, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return tiffmodel.CompressionUnknown, err
	}
	return lvl.tiff.Compression(), nil
}

func (pyr *Pyramid) Photometric(level int) (tiffmodel.PhotometricInterpretation, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return tiffmodel.PhotometricYCbCr, err
	}
	return lvl.tiff.Photometric(), nil
}

func (pyr *Pyramid) Subsampling(level int) (tiffmodel.Subsampling, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return tiffmodel.Subsampling{}, err
	}
	return lvl.tiff.Subsampling(), nil
}

func (pyr *Pyramid) SamplesPerPixel(level int) (int, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return 0, err
	}
	return lvl.tiff.SamplesPerPixel(), nil
}

func (pyr *Pyramid) BitDepth(level int) (int, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return 0, err
	}
	return lvl.tiff.BitDepth(), nil
}

func (pyr *Pyramid) OpticalPath(level int) (string, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return "", err
	}
	return lvl.tiff.OpticalPath(), nil
}

func (pyr *Pyramid) FocalPlane(level int) (int, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return 0, err
	}
	return lvl.tiff.FocalPlane(), nil
}

func (pyr *Pyramid) level(level int) (*Level, error) {
	if level < 0 || level >= len(pyr.levels) {
		return nil, &wsierr.OutOfBounds{Bound: geom.Size{W: len(pyr.levels), H: 1}}
	}
	return pyr.levels[level], nil
}

// GetTiles returns tiles for every requested position at level, in
// caller order (§5 ordering guarantee). SVS repair has no shared-frame
// batching to exploit (every tile is already natively stored, or
// independently resampled from its parent), so this is a thin per-tile
// loop rather than a job-batched synthesis path like ndpi.GetTiles.
func (pyr *Pyramid) GetTiles(level int, positions []geom.Point) ([][]byte, error) {
	out := make([][]byte, len(positions))
	for i, p := range positions {
		buf, err := pyr.GetTile(level, p)
		if err != nil {
			return nil, err
		}
		out[i] = buf
	}
	return out, nil
}

// GetDecodedTile returns the tile at (level, p) decoded to interleaved
// uint8 RGB pixels. Besides the edge-repair resample, the decoded-tile
// accessors and GetAllTiles(false) (here and in ndpi) are the module's
// only paths that decode JPEG to pixels.
func (pyr *Pyramid) GetDecodedTile(level int, p geom.Point) (pixels []byte, w, h, channels int, err error) {
	raw, err := pyr.GetTile(level, p)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, 0, err
	}
	bounds := decoded.Bounds()
	w, h = bounds.Dx(), bounds.Dy()
	channels = 3
	pixels = make([]byte, w*h*3)
	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := decoded.At(x, y).RGBA()
			pixels[idx] = byte(r >> 8)
			pixels[idx+1] = byte(g >> 8)
			pixels[idx+2] = byte(b >> 8)
			idx += 3
		}
	}
	return pixels, w, h, channels, nil
}

// GetAllTiles returns every tile of level in row-major order. When raw is
// false, each tile is decoded and re-encoded at quality 95 so the return
// shape matches ndpi.NdpiTiledImage.GetAllTiles (§6:
// "get_all_tiles(raw: bool) → iterator<bytes>").
func (pyr *Pyramid) GetAllTiles(level int, raw bool) ([][]byte, error) {
	lvl, err := pyr.level(level)
	if err != nil {
		return nil, err
	}
	var positions []geom.Point
	for y := 0; y < lvl.tiledSize.H; y++ {
		for x := 0; x < lvl.tiledSize.W; x++ {
			positions = append(positions, geom.Point{X: x, Y: y})
		}
	}
	tiles, err := pyr.GetTiles(level, positions)
	if err != nil {
		return nil, err
	}
	if raw {
		return tiles, nil
	}
	out := make([][]byte, len(tiles))
	for i, t := range tiles {
		decoded, err := jpeg.Decode(bytes.NewReader(t))
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, decoded, &jpeg.Options{Quality: 95}); err != nil {
			return nil, err
		}
		out[i] = buf.Bytes()
	}
	return out, nil
}
