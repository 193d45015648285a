package jpegheader

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/jpegtag"
)

func sampleSOF0Frame() []byte {
	return []byte{
		0xFF, jpegtag.SOI,
		0xFF, jpegtag.SOF0, 0x00, 0x11, 0x08,
		0x00, 0x10, // height 16
		0x00, 0x20, // width 32
		0x03,
		0x01, 0x22, 0x00,
		0x02, 0x11, 0x01,
		0x03, 0x11, 0x01,
		0xFF, jpegtag.SOS, 0x00, 0x02,
		0x00, 0x00,
		0xFF, jpegtag.EOI,
	}
}

func TestPatchSOF0Size(t *testing.T) {
	out, err := PatchSOF0Size(sampleSOF0Frame(), geom.Size{W: 64, H: 48})
	require.NoError(t, err)
	idx, _ := jpegtag.FindTag(out, jpegtag.SOF0)
	h := int(out[idx+5])<<8 | int(out[idx+6])
	w := int(out[idx+7])<<8 | int(out[idx+8])
	require.Equal(t, 48, h)
	require.Equal(t, 64, w)
	// precision/component bytes untouched
	require.Equal(t, byte(0x08), out[idx+4])
	require.Equal(t, byte(0x03), out[idx+9])
}

func TestPatchSOF0SizeIdempotentUnderReapplication(t *testing.T) {
	frame := sampleSOF0Frame()
	once, err := PatchSOF0Size(frame, geom.Size{W: 100, H: 50})
	require.NoError(t, err)
	twice, err := PatchSOF0Size(once, geom.Size{W: 200, H: 150})
	require.NoError(t, err)

	direct, err := PatchSOF0Size(frame, geom.Size{W: 200, H: 150})
	require.NoError(t, err)
	require.Equal(t, direct, twice)
}

func TestUpsertDRIInsertsWhenAbsent(t *testing.T) {
	out, err := UpsertDRI(sampleSOF0Frame(), 40)
	require.NoError(t, err)
	idx, plen := jpegtag.FindTag(out, jpegtag.DRI)
	require.GreaterOrEqual(t, idx, 0)
	require.Equal(t, 4, plen)
	interval := int(out[idx+4])<<8 | int(out[idx+5])
	require.Equal(t, 40, interval)

	sosIdx, _ := jpegtag.FindTag(out, jpegtag.SOS)
	require.Greater(t, sosIdx, idx)
}

func TestUpsertDRIOverwritesExisting(t *testing.T) {
	withDRI, err := UpsertDRI(sampleSOF0Frame(), 10)
	require.NoError(t, err)
	out, err := UpsertDRI(withDRI, 99)
	require.NoError(t, err)

	idx, _ := jpegtag.FindTag(out, jpegtag.DRI)
	interval := int(out[idx+4])<<8 | int(out[idx+5])
	require.Equal(t, 99, interval)
	// only one DRI segment present
	count := 0
	jpegtag.Iterate(out, func(s jpegtag.Segment) bool {
		if s.Marker == jpegtag.DRI {
			count++
		}
		return true
	})
	require.Equal(t, 1, count)
}

func TestSpliceTables(t *testing.T) {
	tables := []byte{
		0xFF, jpegtag.SOI,
		0xFF, jpegtag.DQT, 0x00, 0x05, 0x00, 0xAA, 0xBB,
		0xFF, jpegtag.EOI,
	}
	out, err := SpliceTables(sampleSOF0Frame(), tables)
	require.NoError(t, err)

	dqtIdx, _ := jpegtag.FindTag(out, jpegtag.DQT)
	sosIdx, _ := jpegtag.FindTag(out, jpegtag.SOS)
	require.GreaterOrEqual(t, dqtIdx, 0)
	require.Less(t, dqtIdx, sosIdx)

	// the original scan bytes are unchanged, just shifted.
	require.Contains(t, string(out), string(sampleSOF0Frame()[len(sampleSOF0Frame())-8:]))
}

func TestAddRGBColorspaceFix(t *testing.T) {
	out, err := AddRGBColorspaceFix(sampleSOF0Frame())
	require.NoError(t, err)
	idx, plen := jpegtag.FindTag(out, jpegtag.APP14)
	require.GreaterOrEqual(t, idx, 0)
	require.Equal(t, 0x0E, plen)
	sosIdx, _ := jpegtag.FindTag(out, jpegtag.SOS)
	require.Less(t, idx, sosIdx)
}

func TestMissingSOF0ReturnsStructureError(t *testing.T) {
	_, err := PatchSOF0Size([]byte{0xFF, jpegtag.SOI, 0xFF, jpegtag.EOI}, geom.Size{W: 1, H: 1})
	require.Error(t, err)
}
