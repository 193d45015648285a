package jpegtag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindTagSOF0(t *testing.T) {
	buf := []byte{
		0xFF, SOI,
		0xFF, SOF0, 0x00, 0x11, 0x08, 0x02, 0x00, 0x03, 0x00, 0x03,
		0x01, 0x11, 0x00,
		0xFF, SOS, 0x00, 0x02,
	}
	idx, plen := FindTag(buf, SOF0)
	require.Equal(t, 2, idx)
	require.Equal(t, 0x11, plen)
}

func TestFindTagAbsent(t *testing.T) {
	buf := []byte{0xFF, SOI, 0xFF, EOI}
	idx, plen := FindTag(buf, DRI)
	require.Equal(t, -1, idx)
	require.Equal(t, 0, plen)
}

func TestRSTMarkerWraps(t *testing.T) {
	require.Equal(t, RST0, RSTMarker(0))
	require.Equal(t, RST7, RSTMarker(7))
	require.Equal(t, RST0, RSTMarker(8))
	require.Equal(t, RST0+3, RSTMarker(11))
}

func TestIterateStopsAtSOS(t *testing.T) {
	buf := []byte{
		0xFF, SOI,
		0xFF, DQT, 0x00, 0x04, 0xAA, 0xBB,
		0xFF, SOS, 0x00, 0x02,
		0x12, 0x34, // scan bytes, not further scanned
		0xFF, EOI,
	}
	var markers []byte
	Iterate(buf, func(s Segment) bool {
		markers = append(markers, s.Marker)
		return true
	})
	require.Equal(t, []byte{SOI, DQT, SOS}, markers)
}
