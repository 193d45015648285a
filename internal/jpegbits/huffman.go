// Package jpegbits implements the baseline-sequential JPEG entropy codec
// at the DCT-coefficient level: Huffman bit packing and the DC/AC
// run-length scheme, with no IDCT/FDCT anywhere. It exists so jpegcrop can
// perform a genuinely lossless MCU-aligned crop (decode coefficients,
// slice blocks, re-encode with the same tables) the way libjpeg-turbo's
// tjTransform does, without a cgo dependency.
//
// The Huffman table and bit-packing conventions follow the same shape as
// the standard library's image/jpeg decoder (as carried forward, with
// progressive-scan additions, in github.com/dlecorfec/progjpeg's
// scan.go/writer.go): a 64-entry zig-zag table, canonical code
// construction from BITS/HUFFVAL arrays, and an MSB-first bit writer.
package jpegbits

// ZigZag maps a zig-zag scan index to its natural (row-major) position
// within an 8x8 block.
var ZigZag = [64]int{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// Block holds the 64 quantized (raw, not dequantized) coefficients of one 8x8 DCT block in natural (not zig-zag) order.
type Block [64]int32

// HuffTable is a decode/encode pair built from the BITS (counts per code
// length 1..16) and HUFFVAL (symbols in code order) arrays stored in a DHT
// segment.
type HuffTable struct {
	// decode: code length -> minCode, maxCode, valPtr (index into Values)
	minCode   [17]int32
	maxCode   [17]int32
	valPtr    [17]int32
	Values    []byte

	// encode: symbol -> (code, length)
	encCode [256]uint32
	encLen  [256]uint8
}

// NewHuffTable builds canonical Huffman codes from a DHT-style bits/values
// pair (bits[1..16] = symbol-count per code length, values = symbols in
// code order) and returns a table usable for both decode and encode.
func NewHuffTable(bits [17]byte, values []byte) *HuffTable {
	h := &HuffTable{Values: values}

	var huffSize [257]byte
	var huffCode [257]uint32
	k := 0
	for l := 1; l <= 16; l++ {
		for i := 0; i < int(bits[l]); i++ {
			huffSize[k] = byte(l)
			k++
		}
	}
	huffSize[k] = 0
	numSymbols := k

	code := uint32(0)
	si := huffSize[0]
	k = 0
	for huffSize[k] != 0 {
		for huffSize[k] == si {
			huffCode[k] = code
			code++
			k++
		}
		code <<= 1
		si++
	}

	p := 0
	for l := 1; l <= 16; l++ {
		if bits[l] == 0 {
			h.maxCode[l] = -1
		} else {
			h.valPtr[l] = int32(p)
			h.minCode[l] = int32(huffCode[p])
			p += int(bits[l])
			h.maxCode[l] = int32(huffCode[p-1])
		}
	}
	for i := 0; i < numSymbols; i++ {
		sym := values[i]
		h.encCode[sym] = huffCode[i]
		h.encLen[sym] = huffSize[i]
	}
	return h
}

// Code returns the canonical code and bit length assigned to symbol.
func (h *HuffTable) Code(symbol byte) (code uint32, length uint8) {
	return h.encCode[symbol], h.encLen[symbol]
}
