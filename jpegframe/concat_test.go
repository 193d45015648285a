package jpegframe

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/jpegtag"
)

func strip(scanByte byte, rst byte) []byte {
	return []byte{scanByte, scanByte, 0xFF, rst}
}

// countRSTBytes scans raw bytes for FF D0..D7 occurrences, in order. Unlike
// jpegtag.Iterate (which stops at the first SOS since it only walks marker
// segments, not entropy data), this looks at every byte so it can verify
// restart markers embedded in concatenated scan payloads.
func countRSTBytes(buf []byte) []int {
	var seq []int
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] == 0xFF && jpegtag.IsRST(buf[i+1]) {
			seq = append(seq, jpegtag.RSTIndex(buf[i+1]))
		}
	}
	return seq
}

func TestConcatenateVerticalRSTSequence(t *testing.T) {
	header := []byte{0xFF, jpegtag.SOI, 0xFF, jpegtag.SOF0, 0x00, 0x02}
	strips := [][]byte{
		strip(0x01, jpegtag.RST0),
		strip(0x02, jpegtag.RST0),
		strip(0x03, jpegtag.RST0),
	}

	out, err := ConcatenateVertical(header, strips)
	require.NoError(t, err)

	require.Equal(t, []int{0, 1}, countRSTBytes(out)) // strips-1 = 2 RST markers

	eoiIdx, _ := jpegtag.FindTag(out, jpegtag.EOI)
	require.Equal(t, len(out)-2, eoiIdx)
}

func TestConcatenateVerticalRejectsBadTrailer(t *testing.T) {
	header := []byte{0xFF, jpegtag.SOI}
	strips := [][]byte{{0x01, 0x02, 0x03, 0x04}} // no trailing FF RSTn
	_, err := ConcatenateVertical(header, strips)
	require.Error(t, err)
}

func makeScanFrame(w, h int, scanByte byte) []byte {
	out := []byte{
		0xFF, jpegtag.SOI,
		0xFF, jpegtag.SOF0, 0x00, 0x11, 0x08,
		byte(h >> 8), byte(h),
		byte(w >> 8), byte(w),
		0x03, 0x01, 0x22, 0x00, 0x02, 0x11, 0x01, 0x03, 0x11, 0x01,
		0xFF, jpegtag.SOS, 0x00, 0x02,
		scanByte, scanByte, scanByte,
		0xFF, jpegtag.EOI,
	}
	return out
}

func TestConcatenateHorizontalSumsHeight(t *testing.T) {
	scans := []HorizontalScan{
		{Size: geom.Size{W: 32, H: 16}, Subsampling: [2]int{2, 2}, Frame: makeScanFrame(32, 16, 0x11)},
		{Size: geom.Size{W: 32, H: 16}, Subsampling: [2]int{2, 2}, Frame: makeScanFrame(32, 16, 0x22)},
		{Size: geom.Size{W: 32, H: 8}, Subsampling: [2]int{2, 2}, Frame: makeScanFrame(32, 8, 0x33)},
	}

	out, err := ConcatenateHorizontal(scans, nil, false)
	require.NoError(t, err)

	idx, _ := jpegtag.FindTag(out, jpegtag.SOF0)
	h := int(out[idx+5])<<8 | int(out[idx+6])
	w := int(out[idx+7])<<8 | int(out[idx+8])
	require.Equal(t, 40, h) // 16+16+8
	require.Equal(t, 32, w)

	require.Len(t, countRSTBytes(out), 2) // one seam per subsequent scan
}

func TestConcatenateHorizontalRejectsMismatchedWidth(t *testing.T) {
	scans := []HorizontalScan{
		{Size: geom.Size{W: 32, H: 16}, Subsampling: [2]int{1, 1}, Frame: makeScanFrame(32, 16, 0x11)},
		{Size: geom.Size{W: 16, H: 16}, Subsampling: [2]int{1, 1}, Frame: makeScanFrame(16, 16, 0x22)},
	}
	_, err := ConcatenateHorizontal(scans, nil, false)
	require.Error(t, err)
}
