package jpegcrop

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/internal/jpegbits"
)

var dcBits = [17]byte{0, 0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0}
var dcVals = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}
// Only EOB (symbol 0x00) is needed: every test block holds only a DC
// value with no AC energy, so encodeBlock only ever emits EOB.
var acBits = [17]byte{0, 1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
var acVals = []byte{0x00}

func buildGrayFrame(w, h int, valueAt func(col, row int) int32) []byte {
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
	c := &img.Components[0]
	for row := 0; row < mcusY; row++ {
		for col := 0; col < mcusX; col++ {
			c.Blocks[row*mcusX+col][0] = valueAt(col, row)
		}
	}
	return jpegbits.EncodeBaseline(img)
}

func TestTransformCropsInBoundsRegion(t *testing.T) {
	frame := buildGrayFrame(32, 16, func(col, row int) int32 { return int32(10*row + col) })

	rects := []geom.Region{
		{Origin: geom.Point{X: 8, Y: 0}, Size: geom.Size{W: 16, H: 8}},
	}
	out, err := Transform(frame, rects, 128)
	require.NoError(t, err)
	require.Len(t, out, 1)

	decoded, err := jpegbits.DecodeBaseline(out[0])
	require.NoError(t, err)
	require.Equal(t, 16, decoded.Width)
	require.Equal(t, 8, decoded.Height)
	// The cropped region starts at MCU column 1, so block (0,0) of the
	// output should equal block (1,0) of the source.
	require.Equal(t, int32(1), decoded.Components[0].Blocks[0][0])
}

func TestTransformRejectsUnalignedOrigin(t *testing.T) {
	frame := buildGrayFrame(32, 16, func(col, row int) int32 { return 0 })
	rects := []geom.Region{{Origin: geom.Point{X: 3, Y: 0}, Size: geom.Size{W: 8, H: 8}}}
	_, err := Transform(frame, rects, 128)
	require.Error(t, err)
}

func TestTransformSynthesizesBackgroundPastEdge(t *testing.T) {
	frame := buildGrayFrame(16, 8, func(col, row int) int32 { return 50 })
	rects := []geom.Region{
		{Origin: geom.Point{X: 8, Y: 0}, Size: geom.Size{W: 16, H: 8}},
	}
	out, err := Transform(frame, rects, 200)
	require.NoError(t, err)
	decoded, err := jpegbits.DecodeBaseline(out[0])
	require.NoError(t, err)

	// First block comes from the source image (col 1), second is
	// synthesized background since the source is only 16px (2 MCUs) wide.
	require.Equal(t, int32(50), decoded.Components[0].Blocks[0][0])
	wantDC := LuminanceToDC(200, 8)
	require.Equal(t, wantDC, decoded.Components[0].Blocks[1][0])
}

func TestFillWholeImageIsFlatBackground(t *testing.T) {
	frame := buildGrayFrame(8, 8, func(col, row int) int32 { return 0 })
	out, err := FillWholeImage(frame, geom.Size{W: 16, H: 8}, 180)
	require.NoError(t, err)
	decoded, err := jpegbits.DecodeBaseline(out)
	require.NoError(t, err)
	want := LuminanceToDC(180, 8)
	for _, b := range decoded.Components[0].Blocks {
		require.Equal(t, want, b[0])
	}
}
