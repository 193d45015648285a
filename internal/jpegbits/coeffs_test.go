package jpegbits

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Standard Annex K default luminance Huffman tables, used across the
// corpus's JPEG-adjacent code as the canonical example BITS/HUFFVAL pair.
var stdLumaDCBits = [17]byte{0, 0, 1, 5, 1, 1, 1, 1, 1, 1, 0, 0, 0, 0, 0, 0, 0}
var stdLumaDCVals = []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}

var stdLumaACBits = [17]byte{0, 0, 2, 1, 3, 3, 2, 4, 3, 5, 5, 4, 4, 0, 0, 1, 0x7d}
var stdLumaACVals = []byte{
	0x01, 0x02, 0x03, 0x00, 0x04, 0x11, 0x05, 0x12,
	0x21, 0x31, 0x41, 0x06, 0x13, 0x51, 0x61, 0x07,
	0x22, 0x71, 0x14, 0x32, 0x81, 0x91, 0xa1, 0x08,
	0x23, 0x42, 0xb1, 0xc1, 0x15, 0x52, 0xd1, 0xf0,
	0x24, 0x33, 0x62, 0x72, 0x82, 0x09, 0x0a, 0x16,
	0x17, 0x18, 0x19, 0x1a, 0x25, 0x26, 0x27, 0x28,
	0x29, 0x2a, 0x34, 0x35, 0x36, 0x37, 0x38, 0x39,
	0x3a, 0x43, 0x44, 0x45, 0x46, 0x47, 0x48, 0x49,
	0x4a, 0x53, 0x54, 0x55, 0x56, 0x57, 0x58, 0x59,
	0x5a, 0x63, 0x64, 0x65, 0x66, 0x67, 0x68, 0x69,
	0x6a, 0x73, 0x74, 0x75, 0x76, 0x77, 0x78, 0x79,
	0x7a, 0x83, 0x84, 0x85, 0x86, 0x87, 0x88, 0x89,
	0x8a, 0x92, 0x93, 0x94, 0x95, 0x96, 0x97, 0x98,
	0x99, 0x9a, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7,
	0xa8, 0xa9, 0xaa, 0xb2, 0xb3, 0xb4, 0xb5, 0xb6,
	0xb7, 0xb8, 0xb9, 0xba, 0xc2, 0xc3, 0xc4, 0xc5,
	0xc6, 0xc7, 0xc8, 0xc9, 0xca, 0xd2, 0xd3, 0xd4,
	0xd5, 0xd6, 0xd7, 0xd8, 0xd9, 0xda, 0xe1, 0xe2,
	0xe3, 0xe4, 0xe5, 0xe6, 0xe7, 0xe8, 0xe9, 0xea,
	0xf1, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6, 0xf7, 0xf8,
	0xf9, 0xfa,
}

func sampleGrayImage(w, h int, fill func(col, row int, block *Block)) *CoeffImage {
	img := &CoeffImage{
		Width: w, Height: h, Precision: 8, HMax: 1, VMax: 1,
		QuantTables: [4]*QuantTable{},
		DCTables:    [4]*HuffTable{0: NewHuffTable(stdLumaDCBits, stdLumaDCVals)},
		ACTables:    [4]*HuffTable{0: NewHuffTable(stdLumaACBits, stdLumaACVals)},
	}
	var q QuantTable
	for i := range q {
		q[i] = 16
	}
	img.QuantTables[0] = &q

	mcusX := (w + 7) / 8
	mcusY := (h + 7) / 8
	img.Components = []Component{{
		ID: 1, H: 1, V: 1, QuantIdx: 0, DCIdx: 0, ACIdx: 0,
		BlocksPerLine:   mcusX,
		BlocksPerColumn: mcusY,
		Blocks:          make([]Block, mcusX*mcusY),
	}}
	c := &img.Components[0]
	for row := 0; row < c.BlocksPerColumn; row++ {
		for col := 0; col < c.BlocksPerLine; col++ {
			fill(col, row, c.blockAt(col, row))
		}
	}
	return img
}

func TestEncodeDecodeRoundTripSingleBlock(t *testing.T) {
	img := sampleGrayImage(8, 8, func(col, row int, b *Block) {
		b[0] = 120
		b[1] = -3
		b[8] = 7
		b[9] = 2
		b[63] = -1
	})

	frame := EncodeBaseline(img)
	decoded, err := DecodeBaseline(frame)
	require.NoError(t, err)

	require.Equal(t, img.Width, decoded.Width)
	require.Equal(t, img.Height, decoded.Height)
	require.Equal(t, img.Components[0].Blocks, decoded.Components[0].Blocks)
}

func TestEncodeDecodeRoundTripMultiMCUWithRestarts(t *testing.T) {
	img := sampleGrayImage(32, 16, func(col, row int, b *Block) {
		b[0] = int32(100 + col*5 - row*3)
		b[1] = int32(col - row)
		if (col+row)%3 == 0 {
			b[2] = 4
			b[16] = -2
		}
	})
	img.RestartInterval = 2

	frame := EncodeBaseline(img)
	decoded, err := DecodeBaseline(frame)
	require.NoError(t, err)
	require.Equal(t, img.Components[0].Blocks, decoded.Components[0].Blocks)
}

func TestEncodeDecodeRoundTripAllZeroBlock(t *testing.T) {
	img := sampleGrayImage(8, 8, func(col, row int, b *Block) {})
	frame := EncodeBaseline(img)
	decoded, err := DecodeBaseline(frame)
	require.NoError(t, err)
	require.Equal(t, img.Components[0].Blocks, decoded.Components[0].Blocks)
}

func TestBitSizeMagnitudes(t *testing.T) {
	require.Equal(t, 0, BitSize(0))
	require.Equal(t, 1, BitSize(1))
	require.Equal(t, 1, BitSize(-1))
	require.Equal(t, 4, BitSize(8))
	require.Equal(t, 4, BitSize(-15))
	require.Equal(t, 11, BitSize(1024))
}
