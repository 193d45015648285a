// Package jpegcrop implements the lossless crop driver (component C4) and
// MCU background fill (component C5): given a decoded frame, it carves out
// caller-requested MCU-aligned rectangles at the DCT-coefficient level and
// re-serializes each as an independent JPEG, synthesizing background MCUs
// for any area that falls outside the source frame's bounds.
//
// This mirrors the shape of libjpeg-turbo's tjTransform (crop without a
// decode/recompress round trip) since no cgo binding for it exists in the
// retrieval pack; internal/jpegbits supplies the entropy codec underneath.
package jpegcrop

import (
	"math"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/internal/jpegbits"
	"github.com/pspoerri/wsitile/wsierr"
)

// Transform carves rects out of frame and returns one independently
// decodable JPEG per rect, in the same order. Each rect's origin must fall
// on an MCU boundary; its extent may run past the source image's edge, in
// which case the missing MCUs are synthesized as flat blocks at
// backgroundLuminance (see FillWholeImage for the all-background case).
func Transform(frame []byte, rects []geom.Region, backgroundLuminance float64) ([][]byte, error) {
	img, err := jpegbits.DecodeBaseline(frame)
	if err != nil {
		return nil, &wsierr.JpegStructureError{Op: "transform_decode", Missing: err.Error()}
	}

	mcuW, mcuH := img.MCUSize()
	out := make([][]byte, len(rects))
	for i, rect := range rects {
		if rect.Origin.X%mcuW != 0 || rect.Origin.Y%mcuH != 0 {
			return nil, &wsierr.JpegCropError{
				Rects:     rects,
				ImageSize: geom.Size{W: img.Width, H: img.Height},
				Reason:    "crop origin not aligned to MCU boundary",
			}
		}
		cropped := cropOne(img, rect, backgroundLuminance)
		out[i] = jpegbits.EncodeBaseline(cropped)
	}
	return out, nil
}

// FillWholeImage returns a JPEG of the given size, entirely composed of
// synthetic background MCUs at backgroundLuminance, carrying the same
// quantization and Huffman tables as frame. Used when a requested tile
// falls completely outside the source frame (a fully sparse region).
func FillWholeImage(frame []byte, size geom.Size, backgroundLuminance float64) ([]byte, error) {
	img, err := jpegbits.DecodeBaseline(frame)
	if err != nil {
		return nil, &wsierr.JpegStructureError{Op: "fill_whole_image_decode", Missing: err.Error()}
	}
	rect := geom.Region{Origin: geom.Point{X: 0, Y: 0}, Size: size}
	empty := &jpegbits.CoeffImage{
		Width: 0, Height: 0, Precision: img.Precision, HMax: img.HMax, VMax: img.VMax,
		Components:  cloneComponentsShape(img, 0, 0),
		QuantTables: img.QuantTables,
		DCTables:    img.DCTables,
		ACTables:    img.ACTables,
	}
	cropped := cropOne(empty, rect, backgroundLuminance)
	return jpegbits.EncodeBaseline(cropped), nil
}

func cropOne(img *jpegbits.CoeffImage, rect geom.Region, backgroundLuminance float64) *jpegbits.CoeffImage {
	mcuW, mcuH := img.MCUSize()
	mcusWide := ceilDiv(rect.Size.W, mcuW)
	mcusTall := ceilDiv(rect.Size.H, mcuH)

	out := &jpegbits.CoeffImage{
		Width: rect.Size.W, Height: rect.Size.H,
		Precision:   img.Precision,
		HMax:        img.HMax,
		VMax:        img.VMax,
		QuantTables: img.QuantTables,
		DCTables:    img.DCTables,
		ACTables:    img.ACTables,
		Components:  make([]jpegbits.Component, len(img.Components)),
	}

	startMCUx := rect.Origin.X / mcuW
	startMCUy := rect.Origin.Y / mcuH

	for ci := range img.Components {
		src := &img.Components[ci]
		dst := &out.Components[ci]
		dst.ID = src.ID
		dst.H, dst.V = src.H, src.V
		dst.QuantIdx, dst.DCIdx, dst.ACIdx = src.QuantIdx, src.DCIdx, src.ACIdx
		dst.BlocksPerLine = mcusWide * src.H
		dst.BlocksPerColumn = mcusTall * src.V
		dst.Blocks = make([]jpegbits.Block, dst.BlocksPerLine*dst.BlocksPerColumn)

		target := backgroundLuminance
		if ci > 0 {
			// Chroma components: fill neutral (no color cast) rather than
			// the luma target, which only makes sense for component 0.
			target = 128
		}
		bg := backgroundBlock(img, src, target)
		startCol := startMCUx * src.H
		startRow := startMCUy * src.V
		for row := 0; row < dst.BlocksPerColumn; row++ {
			srcRow := startRow + row
			for col := 0; col < dst.BlocksPerLine; col++ {
				srcCol := startCol + col
				idx := row*dst.BlocksPerLine + col
				if srcCol < src.BlocksPerLine && srcRow < src.BlocksPerColumn {
					dst.Blocks[idx] = src.Blocks[srcRow*src.BlocksPerLine+srcCol]
				} else {
					dst.Blocks[idx] = bg
				}
			}
		}
	}
	return out
}

func cloneComponentsShape(img *jpegbits.CoeffImage, cols, rows int) []jpegbits.Component {
	out := make([]jpegbits.Component, len(img.Components))
	for i, c := range img.Components {
		out[i] = jpegbits.Component{
			ID: c.ID, H: c.H, V: c.V, QuantIdx: c.QuantIdx, DCIdx: c.DCIdx, ACIdx: c.ACIdx,
			BlocksPerLine: cols, BlocksPerColumn: rows,
		}
	}
	return out
}

func backgroundBlock(img *jpegbits.CoeffImage, c *jpegbits.Component, luminance float64) jpegbits.Block {
	var block jpegbits.Block
	quant := img.QuantTables[c.QuantIdx]
	dcStep := uint16(1)
	if quant != nil {
		dcStep = quant[0]
	}
	block[0] = LuminanceToDC(luminance, dcStep)
	return block
}

// LuminanceToDC converts a desired flat output luminance (0..255) into the
// quantized DC coefficient that reconstructs to it, given the DC term's
// quantization step. The unquantized DC term of a flat 8x8 block equals
// 8*(luminance-128) under the standard orthonormal JPEG DCT.
func LuminanceToDC(luminance float64, quantDCStep uint16) int32 {
	if quantDCStep == 0 {
		quantDCStep = 1
	}
	raw := 8 * (luminance - 128)
	return int32(math.Round(raw / float64(quantDCStep)))
}

func ceilDiv(a, b int) int {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
