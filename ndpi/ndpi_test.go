package ndpi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/internal/jpegbits"
	"github.com/pspoerri/wsitile/internal/lockfile"
	"github.com/pspoerri/wsitile/jpegtag"
	"github.com/pspoerri/wsitile/tiffmodel"
)

var dcBits = [17]byte{0, 0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0}
var dcVals = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
var acBits = [17]byte{0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
var acVals = []byte{0x00}

func buildFrame(w, h int, fill int32) []byte {
	mcusX := (w + 7) / 8
	mcusY := (h + 7) / 8
	img := &jpegbits.CoeffImage{
		Width: w, Height: h, Precision: 8, HMax: 1, VMax: 1,
		DCTables: [4]*jpegbits.HuffTable{0: jpegbits.NewHuffTable(dcBits, dcVals)},
		ACTables: [4]*jpegbits.HuffTable{0: jpegbits.NewHuffTable(acBits, acVals)},
	}
	var q jpegbits.QuantTable
	for i := range q {
		q[i] = 8
	}
	img.QuantTables[0] = &q
	img.Components = []jpegbits.Component{{
		ID: 1, H: 1, V: 1,
		BlocksPerLine:   mcusX,
		BlocksPerColumn: mcusY,
		Blocks:          make([]jpegbits.Block, mcusX*mcusY),
	}}
	for i := range img.Components[0].Blocks {
		img.Components[0].Blocks[i][0] = fill
	}
	return jpegbits.EncodeBaseline(img)
}

// buildStrip simulates an NDPI strip: a full SOI..EOI JPEG whose trailer
// gets replaced by ConcatenateVertical, so it ends with a placeholder RST
// instead of EOI.
func buildStrip(w, h int, fill int32) []byte {
	frame := buildFrame(w, h, fill)
	eoiIdx, _ := jpegtag.FindTag(frame, jpegtag.EOI)
	return append(frame[:eoiIdx], jpegtag.Marker, jpegtag.RST0)
}

// buildHeader simulates the NDPI embedded jpeg_header: SOI through the
// first scan's SOS, with no entropy data of its own (spec §3: "an
// abbreviated header with tables but no scan data").
func buildHeader(w, h int) []byte {
	frame := buildFrame(w, h, 0)
	sosIdx, sosLen := jpegtag.FindTag(frame, jpegtag.SOS)
	return frame[:sosIdx+2+sosLen]
}

type byteReaderAt struct{ data [][]byte }

func (b *byteReaderAt) ReadAt(p []byte, off int64) (int, error) {
	// off encodes an index into data via a synthetic offset scheme: each
	// strip is stored at offset = index*stride, where stride is large
	// enough no strip overlaps another.
	const stride = 1 << 20
	idx := int(off / stride)
	local := int(off % stride)
	src := b.data[idx][local:]
	n := copy(p, src)
	return n, nil
}

func TestStripedImageGetTilesPreservesOrder(t *testing.T) {
	const stride = 1 << 20
	strip0 := buildStrip(32, 16, 10)
	strip1 := buildStrip(32, 16, 20)

	fileHeader := buildHeader(32, 16)

	reader := &byteReaderAt{data: [][]byte{strip0, strip1}}
	handle := lockfile.New(reader)

	tiff := &tiffmodel.StaticImage{
		Size:            geom.Size{W: 32, H: 32},
		Tile:            geom.Size{W: 32, H: 16},
		Stripe:          geom.Size{W: 32, H: 16},
		Striped:         geom.Size{W: 1, H: 2},
		OffsetsField:    []uint64{0, stride},
		BytecountsField: []uint64{uint64(len(strip0)), uint64(len(strip1))},
		Header:          fileHeader,
		CompressionVal:  tiffmodel.CompressionJPEG,
		SubsamplingVal:  tiffmodel.Subsampling{H: 1, V: 1},
	}

	img, err := NewStripedImage(tiff, handle, Config{TileSize: geom.Size{W: 32, H: 16}})
	require.NoError(t, err)

	out, err := img.GetTiles([]geom.Point{{X: 0, Y: 1}, {X: 0, Y: 0}})
	require.NoError(t, err)
	require.Len(t, out, 2)

	decoded0, err := jpegbits.DecodeBaseline(out[0])
	require.NoError(t, err)
	require.Equal(t, int32(20), decoded0.Components[0].Blocks[0][0])

	decoded1, err := jpegbits.DecodeBaseline(out[1])
	require.NoError(t, err)
	require.Equal(t, int32(10), decoded1.Components[0].Blocks[0][0])
}

func TestOutOfBoundsTileRejected(t *testing.T) {
	reader := &byteReaderAt{data: [][]byte{buildStrip(32, 16, 0)}}
	handle := lockfile.New(reader)
	tiff := &tiffmodel.StaticImage{
		Size:            geom.Size{W: 32, H: 16},
		Tile:            geom.Size{W: 32, H: 16},
		Stripe:          geom.Size{W: 32, H: 16},
		Striped:         geom.Size{W: 1, H: 1},
		OffsetsField:    []uint64{0},
		BytecountsField: []uint64{uint64(len(buildStrip(32, 16, 0)))},
		Header:          buildHeader(32, 16),
		CompressionVal:  tiffmodel.CompressionJPEG,
		SubsamplingVal:  tiffmodel.Subsampling{H: 1, V: 1},
	}
	img, err := NewStripedImage(tiff, handle, Config{TileSize: geom.Size{W: 32, H: 16}})
	require.NoError(t, err)

	_, err = img.GetTile(geom.Point{X: 5, Y: 5})
	require.Error(t, err)
}

func TestFrameCacheHitAvoidsRebuildForSameFramePosition(t *testing.T) {
	reader := &byteReaderAt{data: [][]byte{buildStrip(32, 16, 7), buildStrip(32, 16, 9)}}
	handle := lockfile.New(reader)
	stride := int64(1 << 20)
	tiff := &tiffmodel.StaticImage{
		Size:            geom.Size{W: 32, H: 32},
		Tile:            geom.Size{W: 32, H: 16},
		Stripe:          geom.Size{W: 32, H: 16},
		Striped:         geom.Size{W: 1, H: 2},
		OffsetsField:    []uint64{0, uint64(stride)},
		BytecountsField: []uint64{uint64(len(buildStrip(32, 16, 7))), uint64(len(buildStrip(32, 16, 9)))},
		Header:          buildHeader(32, 16),
		CompressionVal:  tiffmodel.CompressionJPEG,
		SubsamplingVal:  tiffmodel.Subsampling{H: 1, V: 1},
	}
	img, err := NewStripedImage(tiff, handle, Config{TileSize: geom.Size{W: 32, H: 16}})
	require.NoError(t, err)

	_, err = img.GetTile(geom.Point{X: 0, Y: 0})
	require.NoError(t, err)
	require.Equal(t, 1, img.cache.Len())

	_, err = img.GetTile(geom.Point{X: 0, Y: 0})
	require.NoError(t, err)
	require.Equal(t, 1, img.cache.Len())
}

func TestOneFrameImageMetadataAndDecode(t *testing.T) {
	frame := buildFrame(16, 16, 0)
	reader := &byteReaderAt{data: [][]byte{frame}}
	handle := lockfile.New(reader)
	tiff := &tiffmodel.StaticImage{
		Size:            geom.Size{W: 16, H: 16},
		OffsetsField:    []uint64{0},
		BytecountsField: []uint64{uint64(len(frame))},
		CompressionVal:  tiffmodel.CompressionJPEG,
		SubsamplingVal:  tiffmodel.Subsampling{H: 1, V: 1},
		PyramidIdx:      2,
		OpticalPathVal:  "brightfield",
	}

	img, err := NewOneFrameImage(tiff, handle, Config{TileSize: geom.Size{W: 16, H: 16}})
	require.NoError(t, err)

	require.Equal(t, geom.Size{W: 16, H: 16}, img.ImageSize())
	require.Equal(t, geom.Size{W: 16, H: 16}, img.TileSize())
	require.Equal(t, 2, img.PyramidIndex())
	require.Equal(t, "brightfield", img.OpticalPath())

	pixels, w, h, channels, err := img.GetDecodedTile(geom.Point{X: 0, Y: 0})
	require.NoError(t, err)
	require.Equal(t, 16, w)
	require.Equal(t, 16, h)
	require.Equal(t, 3, channels)
	require.Len(t, pixels, w*h*channels)
}

func TestStripedImageGetAllTiles(t *testing.T) {
	const stride = 1 << 20
	strip0 := buildStrip(32, 16, 10)
	strip1 := buildStrip(32, 16, 20)
	fileHeader := buildHeader(32, 16)

	reader := &byteReaderAt{data: [][]byte{strip0, strip1}}
	handle := lockfile.New(reader)

	tiff := &tiffmodel.StaticImage{
		Size:            geom.Size{W: 32, H: 32},
		Tile:            geom.Size{W: 32, H: 16},
		Stripe:          geom.Size{W: 32, H: 16},
		Striped:         geom.Size{W: 1, H: 2},
		OffsetsField:    []uint64{0, stride},
		BytecountsField: []uint64{uint64(len(strip0)), uint64(len(strip1))},
		Header:          fileHeader,
		CompressionVal:  tiffmodel.CompressionJPEG,
		SubsamplingVal:  tiffmodel.Subsampling{H: 1, V: 1},
	}

	img, err := NewStripedImage(tiff, handle, Config{TileSize: geom.Size{W: 32, H: 16}})
	require.NoError(t, err)

	require.Equal(t, geom.Size{W: 1, H: 2}, img.TiledSize())

	raw, err := img.GetAllTiles(true)
	require.NoError(t, err)
	require.Len(t, raw, 2)

	decoded, err := img.GetAllTiles(false)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
}
