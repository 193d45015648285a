// Package jpegframe is the fragment concatenator (component C3): it
// stitches multiple JPEG scans or strips into a single interchange frame,
// renumbering restart markers and terminating with EOI.
package jpegframe

import (
	"github.com/pspoerri/wsitile/geom"
	"github.com/pspoerri/wsitile/jpegheader"
	"github.com/pspoerri/wsitile/jpegtag"
	"github.com/pspoerri/wsitile/wsierr"
)

// ConcatenateVertical builds one JPEG whose image height is the sum of
// strip heights and whose RST sequence is globally monotonic modulo 8, as
// used by NDPI striped images where each source strip is a full JPEG
// (SOI+header+scan+EOI) covering one horizontal band.
//
// header is the prebuilt abbreviated-or-interchange header (SOI through
// the first scan's SOS, already sized for the target frame). Each strip's
// final byte must be an existing RST marker's index byte (i.e. the strip
// ends with `FF D0..D7`); that trailing RST is replaced with the globally
// renumbered one, except the very last strip which gets EOI instead. A
// strip that starts with its own SOI contributes only the bytes after its
// SOS segment, since header already describes the whole frame.
func ConcatenateVertical(header []byte, strips [][]byte) ([]byte, error) {
	out := make([]byte, len(header), len(header)+estimateStripBytes(strips))
	copy(out, header)

	for i, strip := range strips {
		if len(strip) < 2 {
			return nil, &wsierr.JpegStructureError{Op: "concatenate_vertical", Missing: "strip too short"}
		}
		last := strip[len(strip)-1]
		prev := strip[len(strip)-2]
		if prev != jpegtag.Marker || !jpegtag.IsRST(last) {
			return nil, &wsierr.JpegStructureError{Op: "concatenate_vertical", Missing: "trailing RST marker"}
		}
		body := strip[:len(strip)-2]
		if len(body) >= 2 && body[0] == jpegtag.Marker && body[1] == jpegtag.SOI {
			sosIdx, sosLen := jpegtag.FindTag(body, jpegtag.SOS)
			if sosIdx < 0 {
				return nil, &wsierr.JpegStructureError{Op: "concatenate_vertical", Missing: "SOS in strip"}
			}
			body = body[sosIdx+2+sosLen:]
		}
		out = append(out, body...)
		out = append(out, jpegtag.Marker, jpegtag.RSTMarker(i))
	}

	// The loop above emits one RST per strip, including after the last one;
	// replace that trailing RST with EOI since no further strip follows.
	out = out[:len(out)-2]
	out = append(out, jpegtag.Marker, jpegtag.EOI)
	return out, nil
}

func estimateStripBytes(strips [][]byte) int {
	n := 0
	for _, s := range strips {
		n += len(s)
	}
	return n
}

// HorizontalScan is one input to ConcatenateHorizontal: the scan's
// geometry (used for the width/subsampling checks, height summing and the
// restart interval) plus its full frame bytes. The first scan's frame is
// copied with its leading tables; later frames contribute only their bytes
// after SOS.
type HorizontalScan struct {
	Size       geom.Size // this scan's (width, declared height)
	Subsampling [2]int
	Frame      []byte // full SOI..EOI bytes for this scan
}

// ConcatenateHorizontal stitches a sequence of independently-encoded JPEG
// scans into one frame covering their stacked height, as used for SVS
// overview recomposition. All scans must share width and subsampling;
// only the last may have a shorter height than the others. The result has
// tables spliced from tablesBlock (if non-nil), gets the Adobe RGB fix
// inserted when addRGBFix is set, has its SOF0 patched to the summed
// size, and has DRI upserted to one restart per original scan boundary so
// decoders resynchronize at every seam.
func ConcatenateHorizontal(scans []HorizontalScan, tablesBlock []byte, addRGBFix bool) ([]byte, error) {
	if len(scans) == 0 {
		return nil, &wsierr.JpegStructureError{Op: "concatenate_horizontal", Missing: "at least one scan"}
	}

	first := scans[0]
	totalHeight := 0
	for i, s := range scans {
		if s.Size.W != first.Size.W || s.Subsampling != first.Subsampling {
			return nil, &wsierr.JpegStructureError{Op: "concatenate_horizontal", Missing: "matching SOF0 width/subsampling"}
		}
		if i < len(scans)-1 && s.Size.H != first.Size.H {
			return nil, &wsierr.JpegStructureError{Op: "concatenate_horizontal", Missing: "only the last scan may be shorter"}
		}
		totalHeight += s.Size.H
	}

	out := append([]byte(nil), first.Frame...)
	// Drop the first frame's EOI; subsequent scans are appended with
	// their own leading tables/SOS stripped, keeping only entropy data.
	if eoiIdx, _ := jpegtag.FindTag(out, jpegtag.EOI); eoiIdx >= 0 {
		out = out[:eoiIdx]
	}

	restartIdx := 0
	for i := 1; i < len(scans); i++ {
		frame := scans[i].Frame
		sosIdx, sosLen := jpegtag.FindTag(frame, jpegtag.SOS)
		if sosIdx < 0 {
			return nil, &wsierr.JpegStructureError{Op: "concatenate_horizontal", Missing: "SOS in subsequent scan"}
		}
		scanStart := sosIdx + 2 + sosLen
		eoiIdx, _ := jpegtag.FindTag(frame, jpegtag.EOI)
		if eoiIdx < 0 {
			eoiIdx = len(frame)
		}
		restartIdx++
		out = append(out, jpegtag.Marker, jpegtag.RSTMarker(restartIdx))
		out = append(out, frame[scanStart:eoiIdx]...)
	}

	var err error
	if tablesBlock != nil {
		out, err = jpegheader.SpliceTables(out, tablesBlock)
		if err != nil {
			return nil, err
		}
	}
	if addRGBFix {
		out, err = jpegheader.AddRGBColorspaceFix(out)
		if err != nil {
			return nil, err
		}
	}

	summed := geom.Size{W: first.Size.W, H: totalHeight}
	out, err = jpegheader.PatchSOF0Size(out, summed)
	if err != nil {
		return nil, err
	}

	mcu := mcuSize(first.Subsampling)
	interval := (first.Size.W * first.Size.H) / (mcu.W * mcu.H)
	out, err = jpegheader.UpsertDRI(out, interval)
	if err != nil {
		return nil, err
	}

	out = append(out, jpegtag.Marker, jpegtag.EOI)
	return out, nil
}

func mcuSize(subsampling [2]int) geom.Size {
	switch subsampling {
	case [2]int{1, 1}:
		return geom.Size{W: 8, H: 8}
	case [2]int{2, 1}:
		return geom.Size{W: 16, H: 8}
	case [2]int{2, 2}:
		return geom.Size{W: 16, H: 16}
	default:
		return geom.Size{W: 8, H: 8}
	}
}
