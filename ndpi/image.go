package ndpi

import (
	"bytes"
	"image"
	"image/jpeg"
	"log"

	"github.com/google/uuid"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/internal/metrics"
	"github.com/pspoerri/wsitile/jpegcrop"
	"github.com/pspoerri/wsitile/jpegtag"
	"github.com/pspoerri/wsitile/tiffmodel"
	"github.com/pspoerri/wsitile/wsierr"
)

// DefaultBackgroundLuminance is the fill value used for MCUs synthesized
// past the source image's bounds (§4.6: "lum=white").
const DefaultBackgroundLuminance = 255

// Config bundles the optional knobs NewOneFrameImage/NewStripedImage take
// beyond the mandatory TiffImage/Handle pair, with zero-value fields
// resolved to defaults in resolved().
type Config struct {
	TileSize            geom.Size
	CacheCapacity       int
	BackgroundLuminance float64
	Metrics             *metrics.Registry
	// Verbose logs one line per frame build (frame position/size plus a
	// correlation trace id), matching the teacher's own
	// internal/tile/generator.go "if cfg.Verbose { log.Printf(...) }"
	// progress-logging convention.
	Verbose bool
}

func (c Config) resolved() Config {
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = DefaultCacheCapacity
	}
	if c.BackgroundLuminance == 0 {
		c.BackgroundLuminance = DefaultBackgroundLuminance
	}
	return c
}

// Variant distinguishes the two NDPI page shapes this synthesizer
// handles: a single whole-page JPEG (OneFrame) or one JPEG strip per
// horizontal band (Striped). Natively tiled pages do not participate in
// synthesis and are out of scope for this package.
type Variant interface {
	FrameSizeForTile(p geom.Point) geom.Size
	ReadExtendedFrame(pos geom.Point, fsz geom.Size) ([]byte, error)
}

// NdpiTiledImage dispatches caller tile requests to a Variant, batching
// them into NdpiFrameJobs backed by a shared frame cache.
type NdpiTiledImage struct {
	variant             Variant
	tiff                tiffmodel.TiffImage
	imageSize           geom.Size
	tileSize            geom.Size
	tiledSize           geom.Size
	cache               *FrameCache
	metrics             *metrics.Registry
	backgroundLuminance float64
	verbose             bool
}

// ImageSize returns the page's full pixel dimensions (§6 inbound
// interface: "image_size").
func (img *NdpiTiledImage) ImageSize() geom.Size { return img.imageSize }

// TileSize returns the caller-negotiated tile size this image was
// constructed with (§6: "tile_size").
func (img *NdpiTiledImage) TileSize() geom.Size { return img.tileSize }

// TiledSize returns ceil(image_size/tile_size) (§6: "tiled_size").
func (img *NdpiTiledImage) TiledSize() geom.Size { return img.tiledSize }

// PyramidIndex returns the integer k such that this page's dimensions are
// the base level's divided by 2^k (§6: "pyramid_index").
func (img *NdpiTiledImage) PyramidIndex() int { return img.tiff.PyramidIndex() }

// MPP returns the page's microns-per-pixel calibration, if the TIFF
// reader supplied one (§6: "mpp").
func (img *NdpiTiledImage) MPP() (x, y float64, ok bool) { return img.tiff.MPP() }

// Compression returns the page's declared TIFF compression tag (§6).
func (img *NdpiTiledImage) Compression() tiffmodel.Compression { return img.tiff.Compression() }

// PhotometricInterpretation returns the page's photometric interpretation
// (§6).
func (img *NdpiTiledImage) PhotometricInterpretation() tiffmodel.PhotometricInterpretation {
	return img.tiff.Photometric()
}

// Subsampling returns the page's JPEG chroma subsampling factor (§6).
func (img *NdpiTiledImage) Subsampling() tiffmodel.Subsampling { return img.tiff.Subsampling() }

// SamplesPerPixel returns the page's declared sample count per pixel (§6).
func (img *NdpiTiledImage) SamplesPerPixel() int { return img.tiff.SamplesPerPixel() }

// BitDepth returns the page's declared bits per sample (§6).
func (img *NdpiTiledImage) BitDepth() int { return img.tiff.BitDepth() }

// OpticalPath returns the page's optical path identifier, if any (§6).
func (img *NdpiTiledImage) OpticalPath() string { return img.tiff.OpticalPath() }

// FocalPlane returns the page's focal plane index (§6).
func (img *NdpiTiledImage) FocalPlane() int { return img.tiff.FocalPlane() }

// GetDecodedTile returns the tile at p decoded to interleaved uint8
// pixels, plus its dimensions. Decoding is the Non-goal carve-out: this
// and GetAllTiles(false) are the only ndpi paths that turn JPEG bytes into
// pixels, and both decode the already-synthesized interchange JPEG that
// GetTile(s) produces, never touching the entropy-coding machinery that
// builds frames.
func (img *NdpiTiledImage) GetDecodedTile(p geom.Point) (pixels []byte, w, h, channels int, err error) {
	raw, err := img.GetTile(p)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	decoded, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, 0, err
	}
	return planarize(decoded)
}

// planarize flattens a decoded image.Image into row-major interleaved
// uint8 samples, handling the two concrete types image/jpeg.Decode
// returns (*image.YCbCr for color, *image.Gray for grayscale).
func planarize(img image.Image) (pixels []byte, w, h, channels int, err error) {
	bounds := img.Bounds()
	w, h = bounds.Dx(), bounds.Dy()
	switch src := img.(type) {
	case *image.Gray:
		channels = 1
		pixels = make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(pixels[y*w:(y+1)*w], src.Pix[y*src.Stride:y*src.Stride+w])
		}
	default:
		channels = 3
		pixels = make([]byte, w*h*3)
		at := img.At
		idx := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				r, g, b, _ := at(x, y).RGBA()
				pixels[idx] = byte(r >> 8)
				pixels[idx+1] = byte(g >> 8)
				pixels[idx+2] = byte(b >> 8)
				idx += 3
			}
		}
	}
	return pixels, w, h, channels, nil
}

// GetAllTiles returns every tile in the image in row-major order. When
// raw is true, elements are the byte-exact synthesized JPEGs GetTile
// would return; otherwise each is decoded with image/jpeg and
// re-encoded back to JPEG bytes at quality 95 purely so the return shape
// stays uniform (§6: "get_all_tiles(raw: bool) → iterator<bytes>"). Tiles
// are still batched into shared frame jobs internally via GetTiles, so a
// full-image sweep pays for each frame once regardless of raw.
func (img *NdpiTiledImage) GetAllTiles(raw bool) ([][]byte, error) {
	var positions []geom.Point
	for y := 0; y < img.tiledSize.H; y++ {
		for x := 0; x < img.tiledSize.W; x++ {
			positions = append(positions, geom.Point{X: x, Y: y})
		}
	}
	tiles, err := img.GetTiles(positions)
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

type jobKey struct {
	pos  geom.Point
	size geom.Size
}

// GetTile returns the synthesized JPEG bytes for one tile position.
func (img *NdpiTiledImage) GetTile(p geom.Point) ([]byte, error) {
	out, err := img.GetTiles([]geom.Point{p})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// GetTiles returns synthesized JPEG bytes for every requested position,
// in the same order as positions (§5 ordering guarantee, §8 property 3).
func (img *NdpiTiledImage) GetTiles(positions []geom.Point) ([][]byte, error) {
	out := make([][]byte, len(positions))
	jobs := make(map[jobKey]*NdpiFrameJob)
	var order []jobKey

	for i, p := range positions {
		if p.X < 0 || p.Y < 0 || p.X >= img.tiledSize.W || p.Y >= img.tiledSize.H {
			return nil, &wsierr.OutOfBounds{Position: p, Bound: img.tiledSize}
		}
		fsz := img.variant.FrameSizeForTile(p)
		tile := NdpiTile{Position: p, TileSize: img.tileSize, FrameSize: fsz}
		key := jobKey{pos: tile.FramePosition(), size: fsz}
		job, ok := jobs[key]
		if !ok {
			job = &NdpiFrameJob{Position: key.pos, FrameSize: key.size}
			jobs[key] = job
			order = append(order, key)
		}
		job.Add(tile, i)
	}

	for _, key := range order {
		job := jobs[key]
		frame, err := img.frameFor(job)
		if err != nil {
			return nil, err
		}
		cropped, err := jpegcrop.Transform(frame, job.CropParameters(), img.backgroundLuminance)
		if err != nil {
			return nil, err
		}
		for i, tileBytes := range cropped {
			out[job.InputIndex[i]] = tileBytes
		}
	}
	return out, nil
}

func (img *NdpiTiledImage) frameFor(job *NdpiFrameJob) ([]byte, error) {
	if frame, ok := img.cache.Get(job.Position); ok {
		return frame, nil
	}
	trace := traceID()
	if img.verbose {
		log.Printf("ndpi[%s]: building frame at %v size %v", trace, job.Position, job.FrameSize)
	}
	frame, err := img.variant.ReadExtendedFrame(job.Position, job.FrameSize)
	if err != nil {
		if img.verbose {
			log.Printf("ndpi[%s]: frame build failed: %v", trace, err)
		}
		return nil, err
	}
	img.metrics.ObserveFrameBuilt()
	img.cache.Put(job.Position, frame)
	return frame, nil
}

// traceID returns a fresh per-frame-build correlation id, logged
// alongside frame_position/frame_size in frameFor's verbose trace lines.
func traceID() string { return uuid.NewString() }

// validateSubsampling rejects subsampling factors this module's
// MCU-aligned machinery doesn't understand, per §3 "Other values reject."
func validateSubsampling(s tiffmodel.Subsampling) error {
	if !s.Valid() {
		return &wsierr.UnsupportedCompression{Compression: "subsampling"}
	}
	return nil
}

// decodeSOF0Size reads the (width, height) SOF0 declares in an embedded
// JPEG header, used to derive stripe_size per §3. This only walks marker
// segments (via jpegtag) rather than running the full entropy decoder,
// since the header blob ends at SOS with no scan data of its own.
func decodeSOF0Size(header []byte) (geom.Size, error) {
	idx, payloadLen := jpegtag.FindTag(header, jpegtag.SOF0)
	if idx < 0 || payloadLen < 7 {
		return geom.Size{}, &wsierr.JpegStructureError{Op: "decode_sof0_size", Missing: "SOF0"}
	}
	height := int(header[idx+5])<<8 | int(header[idx+6])
	width := int(header[idx+7])<<8 | int(header[idx+8])
	return geom.Size{W: width, H: height}, nil
}
