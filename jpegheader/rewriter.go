// Package jpegheader is the JPEG header rewriter (component C2). Every
// operation allocates a new byte slice and patches or inserts marker
// segments without touching scan data; none of them decode.
package jpegheader

import (
	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/jpegtag"
	"github.com/pspoerri/wsitile/wsierr"
)

// AdobeAPP14RGB is the 16-byte Adobe application marker that signals
// transform=0 (RGB, no YCbCr inversion) to decoders.
var AdobeAPP14RGB = []byte{
	0xFF, jpegtag.APP14, 0x00, 0x0E,
	'A', 'd', 'o', 'b', 'e', 0x00,
	0x64, 0x80, 0x00, 0x00, 0x00, 0x00,
}

// PatchSOF0Size returns a copy of frame with the SOF0 segment's height and
// width fields replaced by size, preserving precision, component count,
// and sampling factors. The SOF0 payload layout (ISO/IEC 10918-1 B.2.2) is:
//
//	[0]    precision
//	[1:3]  number of lines (height), big-endian
//	[3:5]  number of samples per line (width), big-endian
//	[5]    number of components
//	...    3 bytes per component
func PatchSOF0Size(frame []byte, size geom.Size) ([]byte, error) {
	idx, plen := jpegtag.FindTag(frame, jpegtag.SOF0)
	if idx < 0 {
		return nil, &wsierr.JpegStructureError{Op: "patch_sof0_size", Missing: "SOF0"}
	}
	payloadStart := idx + 4
	if plen < 6 || payloadStart+5 > len(frame) {
		return nil, &wsierr.JpegStructureError{Op: "patch_sof0_size", Missing: "SOF0 payload"}
	}

	out := make([]byte, len(frame))
	copy(out, frame)
	out[payloadStart+1] = byte(size.H >> 8)
	out[payloadStart+2] = byte(size.H)
	out[payloadStart+3] = byte(size.W >> 8)
	out[payloadStart+4] = byte(size.W)
	return out, nil
}

// UpsertDRI overwrites an existing DRI marker's 2-byte restart-interval
// payload, or inserts a new `FF DD 00 04 <hi> <lo>` segment immediately
// before the first SOS if none exists.
func UpsertDRI(frame []byte, interval int) ([]byte, error) {
	idx, plen := jpegtag.FindTag(frame, jpegtag.DRI)
	if idx >= 0 && plen >= 4 {
		out := make([]byte, len(frame))
		copy(out, frame)
		out[idx+4] = byte(interval >> 8)
		out[idx+5] = byte(interval)
		return out, nil
	}

	sosIdx, _ := jpegtag.FindTag(frame, jpegtag.SOS)
	if sosIdx < 0 {
		return nil, &wsierr.JpegStructureError{Op: "upsert_dri", Missing: "SOS"}
	}

	dri := []byte{0xFF, jpegtag.DRI, 0x00, 0x04, byte(interval >> 8), byte(interval)}
	out := make([]byte, 0, len(frame)+len(dri))
	out = append(out, frame[:sosIdx]...)
	out = append(out, dri...)
	out = append(out, frame[sosIdx:]...)
	return out, nil
}

// SpliceTables inserts tablesBlock's payload (everything between its SOI
// and EOI markers) immediately before frame's first SOS, leaving the scan
// untouched. tablesBlock is itself a full SOI..EOI JPEG (an "abbreviated"
// table-only stream, as TIFF JPEGTables blobs are).
func SpliceTables(frame, tablesBlock []byte) ([]byte, error) {
	if len(tablesBlock) < 4 {
		return nil, &wsierr.JpegStructureError{Op: "splice_tables", Missing: "tables SOI/EOI"}
	}
	soiIdx, _ := jpegtag.FindTag(tablesBlock, jpegtag.SOI)
	eoiIdx, _ := jpegtag.FindTag(tablesBlock, jpegtag.EOI)
	if soiIdx < 0 || eoiIdx < 0 || eoiIdx <= soiIdx+2 {
		return nil, &wsierr.JpegStructureError{Op: "splice_tables", Missing: "tables SOI/EOI"}
	}
	payload := tablesBlock[soiIdx+2 : eoiIdx]

	sosIdx, _ := jpegtag.FindTag(frame, jpegtag.SOS)
	if sosIdx < 0 {
		return nil, &wsierr.JpegStructureError{Op: "splice_tables", Missing: "SOS"}
	}

	out := make([]byte, 0, len(frame)+len(payload))
	out = append(out, frame[:sosIdx]...)
	out = append(out, payload...)
	out = append(out, frame[sosIdx:]...)
	return out, nil
}

// AddRGBColorspaceFix inserts the Adobe APP14 RGB-transform marker
// immediately before frame's first SOS, so decoders don't YCbCr-invert
// photometric-RGB data.
func AddRGBColorspaceFix(frame []byte) ([]byte, error) {
	sosIdx, _ := jpegtag.FindTag(frame, jpegtag.SOS)
	if sosIdx < 0 {
		return nil, &wsierr.JpegStructureError{Op: "add_rgb_colorspace_fix", Missing: "SOS"}
	}
	out := make([]byte, 0, len(frame)+len(AdobeAPP14RGB))
	out = append(out, frame[:sosIdx]...)
	out = append(out, AdobeAPP14RGB...)
	out = append(out, frame[sosIdx:]...)
	return out, nil
}
