package ndpi

import (
	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/internal/lockfile"
	"github.com/pspoerri/wsitile/internal/metrics"
	"github.com/pspoerri/wsitile/jpegcrop"
	"github.com/pspoerri/wsitile/jpegheader"
	"github.com/pspoerri/wsitile/tiffmodel"
	"github.com/pspoerri/wsitile/wsierr"
)

// oneFrameVariant handles pages where the whole level is a single JPEG
// (§4.6a): no tiling exists in the file at all, and every tile request
// synthesizes from the same full-image frame.
type oneFrameVariant struct {
	handle    *lockfile.Handle
	offset    int64
	length    int
	imageSize geom.Size
	tileSize  geom.Size
	mcu       geom.Size
	metrics   *metrics.Registry
	bg        float64
}

// FrameSizeForTile always returns the full padded frame, regardless of
// which tile was requested, matching the deliberately-preserved
// over-allocating behavior of the source synthesizer.
func (v *oneFrameVariant) FrameSizeForTile(p geom.Point) geom.Size {
	padded := v.imageSize.Div(v.tileSize).Add(geom.Size{W: 1, H: 1})
	return padded.Mul(v.tileSize)
}

// ReadExtendedFrame reads the page's single JPEG, legalizes its trailing
// MCU padding if image_size isn't a whole number of MCUs, then extends it
// to fsz via the lossless crop driver's background-fill path.
func (v *oneFrameVariant) ReadExtendedFrame(pos geom.Point, fsz geom.Size) ([]byte, error) {
	buf, err := v.handle.Read(lockfile.Range{Offset: v.offset, Length: v.length})
	if err != nil {
		return nil, err
	}

	even := v.imageSize.CeilDiv(v.mcu).Mul(v.mcu)
	if !even.Eq(v.imageSize) {
		buf, err = jpegheader.PatchSOF0Size(buf, even)
		if err != nil {
			return nil, err
		}
	}

	rects := []geom.Region{{Origin: geom.Point{X: 0, Y: 0}, Size: fsz}}
	cropped, err := jpegcrop.Transform(buf, rects, v.bg)
	if err != nil {
		return nil, err
	}
	return cropped[0], nil
}

// NewOneFrameImage constructs an NdpiTiledImage for a page whose level is
// a single whole-page JPEG.
func NewOneFrameImage(tiff tiffmodel.TiffImage, handle *lockfile.Handle, cfg Config) (*NdpiTiledImage, error) {
	cfg = cfg.resolved()
	if tiff.Compression() != tiffmodel.CompressionJPEG {
		return nil, &wsierr.UnsupportedCompression{Compression: tiff.Compression().String()}
	}
	if err := validateSubsampling(tiff.Subsampling()); err != nil {
		return nil, err
	}
	offsets, bytecounts := tiff.Offsets(), tiff.Bytecounts()
	if len(offsets) == 0 || len(bytecounts) == 0 {
		return nil, &wsierr.JpegStructureError{Op: "new_one_frame_image", Missing: "offsets/bytecounts"}
	}

	imageSize := tiff.ImageSize()
	variant := &oneFrameVariant{
		handle:    handle,
		offset:    int64(offsets[0]),
		length:    int(bytecounts[0]),
		imageSize: imageSize,
		tileSize:  cfg.TileSize,
		mcu:       tiff.Subsampling().MCUSize(),
		metrics:   cfg.Metrics,
		bg:        cfg.BackgroundLuminance,
	}
	return &NdpiTiledImage{
		variant:             variant,
		tiff:                tiff,
		imageSize:           imageSize,
		tileSize:            cfg.TileSize,
		tiledSize:           imageSize.CeilDiv(cfg.TileSize),
		cache:               NewFrameCache(cfg.CacheCapacity, cfg.Metrics),
		metrics:             cfg.Metrics,
		backgroundLuminance: cfg.BackgroundLuminance,
		verbose:             cfg.Verbose,
	}, nil
}
