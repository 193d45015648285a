package ndpi

import (
	"sync"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/internal/lockfile"
	"github.com/pspoerri/wsitile/jpegframe"
	"github.com/pspoerri/wsitile/jpegheader"
	"github.com/pspoerri/wsitile/tiffmodel"
	"github.com/pspoerri/wsitile/wsierr"
)

// stripedVariant handles pages where each source strip is a full JPEG
// covering one horizontal band of the page (§4.6b), as NDPI stores its
// volume levels.
type stripedVariant struct {
	fileHeader  []byte
	stripeSize  geom.Size
	stripedSize geom.Size
	offsets     []uint64
	bytecounts  []uint64
	handle      *lockfile.Handle
	tileSize    geom.Size
	tiledSize   geom.Size

	headersMu    sync.Mutex
	headersCache map[geom.Size][]byte
}

// FrameSizeForTile starts from max(tile_size, stripe_size) and clips to
// the remaining image extent on edge tiles so no read goes past the last
// strip.
func (v *stripedVariant) FrameSizeForTile(p geom.Point) geom.Size {
	fsz := v.tileSize.Max(v.stripeSize)
	if p.X == v.tiledSize.W-1 {
		fsz.W = v.stripeSize.W*v.stripedSize.W - p.X*v.tileSize.W
	}
	if p.Y == v.tiledSize.H-1 {
		fsz.H = v.stripeSize.H*v.stripedSize.H - p.Y*v.tileSize.H
	}
	return fsz
}

// ReadExtendedFrame reads the strips covering (pos, fsz) and concatenates
// them into one interchange JPEG with a header patched to fsz.
func (v *stripedVariant) ReadExtendedFrame(pos geom.Point, fsz geom.Size) ([]byte, error) {
	header, err := v.getOrBuildHeader(fsz)
	if err != nil {
		return nil, err
	}

	region := geom.Region{
		Origin: pos.Mul(v.tileSize).DivSize(v.stripeSize),
		Size:   fsz.Div(v.stripeSize).Max(geom.Size{W: 1, H: 1}),
	}

	var ranges []lockfile.Range
	var indices []int
	region.Points(func(p geom.Point) bool {
		idx := p.Y*v.stripedSize.W + p.X
		indices = append(indices, idx)
		if idx >= 0 && idx < len(v.offsets) {
			ranges = append(ranges, lockfile.Range{
				Offset: int64(v.offsets[idx]),
				Length: int(v.bytecounts[idx]),
			})
		}
		return true
	})
	if len(ranges) != len(indices) {
		return nil, &wsierr.JpegStructureError{Op: "read_extended_frame", Missing: "strip index in range"}
	}

	strips, err := v.handle.ReadMany(ranges)
	if err != nil {
		return nil, err
	}

	return jpegframe.ConcatenateVertical(header, strips)
}

func (v *stripedVariant) getOrBuildHeader(fsz geom.Size) ([]byte, error) {
	v.headersMu.Lock()
	defer v.headersMu.Unlock()
	if h, ok := v.headersCache[fsz]; ok {
		return h, nil
	}
	h, err := jpegheader.PatchSOF0Size(v.fileHeader, fsz)
	if err != nil {
		return nil, err
	}
	v.headersCache[fsz] = h
	return h, nil
}

// NewStripedImage constructs an NdpiTiledImage for a page stored as one
// JPEG strip per horizontal band.
func NewStripedImage(tiff tiffmodel.TiffImage, handle *lockfile.Handle, cfg Config) (*NdpiTiledImage, error) {
	cfg = cfg.resolved()
	if tiff.Compression() != tiffmodel.CompressionJPEG {
		return nil, &wsierr.UnsupportedCompression{Compression: tiff.Compression().String()}
	}
	if err := validateSubsampling(tiff.Subsampling()); err != nil {
		return nil, err
	}
	header := tiff.JPEGHeader()
	if header == nil {
		return nil, &wsierr.JpegStructureError{Op: "new_striped_image", Missing: "jpeg_header"}
	}
	stripeSize, err := decodeSOF0Size(header)
	if err != nil {
		return nil, err
	}

	imageSize := tiff.ImageSize()
	variant := &stripedVariant{
		fileHeader:   header,
		stripeSize:   stripeSize,
		stripedSize:  tiff.StripedSize(),
		offsets:      tiff.Offsets(),
		bytecounts:   tiff.Bytecounts(),
		handle:       handle,
		tileSize:     cfg.TileSize,
		tiledSize:    imageSize.CeilDiv(cfg.TileSize),
		headersCache: make(map[geom.Size][]byte),
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
