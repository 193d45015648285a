package jpegbits

import (
	"fmt"

	"github.com/pspoerri/wsitile/jpegtag"
)

// QuantTable holds the 64 quantization divisors for one DQT table, stored
// in natural (not zig-zag) order.
type QuantTable [64]uint16

// Component describes one color component's sampling geometry and the
// coefficient block grid backing it. BlocksPerLine/BlocksPerColumn are
// padded up to a whole number of MCUs, matching how baseline JPEG always
// encodes complete blocks even past the image's true pixel dimensions.
type Component struct {
	ID              byte
	H, V            int
	QuantIdx        int
	DCIdx, ACIdx    int
	BlocksPerLine   int
	BlocksPerColumn int
	Blocks          []Block
}

func (c *Component) blockAt(col, row int) *Block {
	return &c.Blocks[row*c.BlocksPerLine+col]
}

// CoeffImage is a decoded baseline JPEG held at the DCT-coefficient level:
// no IDCT has been applied, and no dequantization either (Blocks store
// the raw quantized coefficients straight off the entropy decoder).
type CoeffImage struct {
	Width, Height int
	Precision     byte
	HMax, VMax    int
	Components    []Component
	QuantTables   [4]*QuantTable
	DCTables      [4]*HuffTable
	ACTables      [4]*HuffTable
	RestartInterval int
}

// MCUSize returns the pixel dimensions of one MCU.
func (img *CoeffImage) MCUSize() (w, h int) {
	return img.HMax * 8, img.VMax * 8
}

// MCUsAcross/MCUsDown in blocks-per-component grid terms.
func (img *CoeffImage) mcuGrid() (mx, my int) {
	c := &img.Components[0]
	return c.BlocksPerLine / c.H, c.BlocksPerColumn / c.V
}

type dhtEntry struct {
	class byte // 0 = DC, 1 = AC
	id    byte
	bits  [17]byte
	vals  []byte
}

// DecodeBaseline parses a baseline-sequential (SOF0) interchange or
// abbreviated JPEG and decodes its single scan down to DCT coefficients.
// Progressive (SOF2) frames are rejected here with an error; jpegcrop
// reports any decode error as a wsierr.JpegStructureError.
func DecodeBaseline(frame []byte) (*CoeffImage, error) {
	img := &CoeffImage{}
	var dhts []dhtEntry
	var sofPayload []byte
	pos := 0

	soiIdx, _ := jpegtag.FindTag(frame, jpegtag.SOI)
	if soiIdx < 0 {
		return nil, fmt.Errorf("jpegbits: missing SOI")
	}
	pos = soiIdx + 2

	var scanStart int
	var scanHeader []byte
	for pos+1 < len(frame) {
		if frame[pos] != jpegtag.Marker {
			pos++
			continue
		}
		second := frame[pos+1]
		if second == jpegtag.Stuff {
			pos += 2
			continue
		}
		if second == jpegtag.SOI {
			pos += 2
			continue
		}
		if second == jpegtag.EOI {
			break
		}
		if pos+3 >= len(frame) {
			break
		}
		length := int(frame[pos+2])<<8 | int(frame[pos+3])
		payload := frame[pos+4 : pos+2+length]
		switch second {
		case 0xDB: // DQT
			if err := parseDQT(img, payload); err != nil {
				return nil, err
			}
		case jpegtag.SOF0:
			sofPayload = payload
			if err := parseSOF0(img, payload); err != nil {
				return nil, err
			}
		case 0xC2: // SOF2, progressive
			return nil, fmt.Errorf("jpegbits: progressive SOF2 not supported")
		case jpegtag.DHT:
			entries, err := parseDHT(payload)
			if err != nil {
				return nil, err
			}
			dhts = append(dhts, entries...)
		case jpegtag.DRI:
			if len(payload) >= 2 {
				img.RestartInterval = int(payload[0])<<8 | int(payload[1])
			}
		case jpegtag.SOS:
			scanHeader = payload
			scanStart = pos + 2 + length
		}
		pos += 2 + length
		if second == jpegtag.SOS {
			break
		}
	}
	if sofPayload == nil {
		return nil, fmt.Errorf("jpegbits: missing SOF0")
	}
	if scanHeader == nil {
		return nil, fmt.Errorf("jpegbits: missing SOS")
	}

	for _, e := range dhts {
		table := NewHuffTable(e.bits, e.vals)
		if e.class == 0 {
			img.DCTables[e.id] = table
		} else {
			img.ACTables[e.id] = table
		}
	}

	if err := assignScanTables(img, scanHeader); err != nil {
		return nil, err
	}

	if err := decodeScan(img, frame[scanStart:]); err != nil {
		return nil, err
	}
	return img, nil
}

func parseDQT(img *CoeffImage, payload []byte) error {
	i := 0
	for i < len(payload) {
		pq := payload[i] >> 4
		tq := payload[i] & 0x0F
		i++
		var table QuantTable
		for k := 0; k < 64; k++ {
			if pq == 0 {
				table[ZigZag[k]] = uint16(payload[i])
				i++
			} else {
				table[ZigZag[k]] = uint16(payload[i])<<8 | uint16(payload[i+1])
				i += 2
			}
		}
		if tq > 3 {
			return fmt.Errorf("jpegbits: quant table index %d out of range", tq)
		}
		img.QuantTables[tq] = &table
	}
	return nil
}

func parseSOF0(img *CoeffImage, payload []byte) error {
	if len(payload) < 6 {
		return fmt.Errorf("jpegbits: short SOF0")
	}
	img.Precision = payload[0]
	img.Height = int(payload[1])<<8 | int(payload[2])
	img.Width = int(payload[3])<<8 | int(payload[4])
	nComp := int(payload[5])
	if len(payload) < 6+3*nComp {
		return fmt.Errorf("jpegbits: short SOF0 component list")
	}
	img.Components = make([]Component, nComp)
	hMax, vMax := 1, 1
	for i := 0; i < nComp; i++ {
		b := payload[6+3*i:]
		c := &img.Components[i]
		c.ID = b[0]
		c.H = int(b[1] >> 4)
		c.V = int(b[1] & 0x0F)
		c.QuantIdx = int(b[2])
		if c.H > hMax {
			hMax = c.H
		}
		if c.V > vMax {
			vMax = c.V
		}
	}
	img.HMax, img.VMax = hMax, vMax

	mcuW, mcuH := 8*hMax, 8*vMax
	mcusX := (img.Width + mcuW - 1) / mcuW
	mcusY := (img.Height + mcuH - 1) / mcuH
	for i := range img.Components {
		c := &img.Components[i]
		c.BlocksPerLine = mcusX * c.H
		c.BlocksPerColumn = mcusY * c.V
		c.Blocks = make([]Block, c.BlocksPerLine*c.BlocksPerColumn)
	}
	return nil
}

func parseDHT(payload []byte) ([]dhtEntry, error) {
	var out []dhtEntry
	i := 0
	for i < len(payload) {
		class := payload[i] >> 4
		id := payload[i] & 0x0F
		i++
		var bits [17]byte
		total := 0
		for l := 1; l <= 16; l++ {
			bits[l] = payload[i]
			total += int(payload[i])
			i++
		}
		vals := append([]byte(nil), payload[i:i+total]...)
		i += total
		out = append(out, dhtEntry{class: class, id: id, bits: bits, vals: vals})
	}
	return out, nil
}

func assignScanTables(img *CoeffImage, scanHeader []byte) error {
	if len(scanHeader) < 1 {
		return fmt.Errorf("jpegbits: short SOS")
	}
	nComp := int(scanHeader[0])
	if len(scanHeader) < 1+2*nComp {
		return fmt.Errorf("jpegbits: short SOS component list")
	}
	for i := 0; i < nComp; i++ {
		cs := scanHeader[1+2*i]
		sel := scanHeader[2+2*i]
		for j := range img.Components {
			if img.Components[j].ID == cs {
				img.Components[j].DCIdx = int(sel >> 4)
				img.Components[j].ACIdx = int(sel & 0x0F)
			}
		}
	}
	return nil
}

func decodeScan(img *CoeffImage, scan []byte) error {
	mcusX, mcusY := img.mcuGrid()
	r := newBitReader(scan)
	dcPred := make([]int32, len(img.Components))
	mcusUntilRestart := img.RestartInterval
	expectedRST := 0

	for my := 0; my < mcusY; my++ {
		for mx := 0; mx < mcusX; mx++ {
			for ci := range img.Components {
				c := &img.Components[ci]
				dcTable := img.DCTables[c.DCIdx]
				acTable := img.ACTables[c.ACIdx]
				for by := 0; by < c.V; by++ {
					for bx := 0; bx < c.H; bx++ {
						col := mx*c.H + bx
						row := my*c.V + by
						block := c.blockAt(col, row)
						if err := decodeBlock(r, dcTable, acTable, block, &dcPred[ci]); err != nil {
							return err
						}
					}
				}
			}
			if img.RestartInterval > 0 {
				mcusUntilRestart--
				isLast := my == mcusY-1 && mx == mcusX-1
				if mcusUntilRestart == 0 && !isLast {
					if err := consumeRestart(r, expectedRST); err != nil {
						return err
					}
					expectedRST = (expectedRST + 1) % 8
					mcusUntilRestart = img.RestartInterval
					for i := range dcPred {
						dcPred[i] = 0
					}
				}
			}
		}
	}
	return nil
}

func decodeBlock(r *bitReader, dcTable, acTable *HuffTable, block *Block, dcPred *int32) error {
	s, err := r.DecodeHuff(dcTable)
	if err != nil {
		return err
	}
	diff := receiveExtend(r, int(s))
	*dcPred += diff
	block[0] = *dcPred

	k := 1
	for k < 64 {
		rs, err := r.DecodeHuff(acTable)
		if err != nil {
			return err
		}
		run := int(rs >> 4)
		size := int(rs & 0x0F)
		if size == 0 {
			if run == 15 {
				k += 16
				continue
			}
			break // EOB
		}
		k += run
		if k >= 64 {
			break
		}
		v := receiveExtend(r, size)
		block[ZigZag[k]] = v
		k++
	}
	return nil
}

// EncodeScan re-serializes img's coefficient blocks into entropy-coded
// bytes, inserting RST markers every RestartInterval MCUs (if set). It
// does not touch headers; callers splice the result after an existing or
// freshly-built SOS segment.
func EncodeScan(img *CoeffImage) []byte {
	mcusX, mcusY := img.mcuGrid()
	// One coefficient compresses to at least a couple of bits; this just
	// keeps the pooled buffer's first growth spurt off the hot path.
	mcuW, mcuH := img.MCUSize()
	sizeHint := mcusX * mcusY * mcuW * mcuH * len(img.Components)
	w := newBitWriter(sizeHint)
	dcPred := make([]int32, len(img.Components))
	mcusUntilRestart := img.RestartInterval
	restartIdx := 0

	for my := 0; my < mcusY; my++ {
		for mx := 0; mx < mcusX; mx++ {
			for ci := range img.Components {
				c := &img.Components[ci]
				dcTable := img.DCTables[c.DCIdx]
				acTable := img.ACTables[c.ACIdx]
				for by := 0; by < c.V; by++ {
					for bx := 0; bx < c.H; bx++ {
						col := mx*c.H + bx
						row := my*c.V + by
						block := c.blockAt(col, row)
						encodeBlock(w, dcTable, acTable, block, &dcPred[ci])
					}
				}
			}
			if img.RestartInterval > 0 {
				mcusUntilRestart--
				isLast := my == mcusY-1 && mx == mcusX-1
				if mcusUntilRestart == 0 && !isLast {
					out := w.Flush()
					out = append(out, jpegtag.Marker, jpegtag.RSTMarker(restartIdx))
					w = &bitWriter{out: out}
					restartIdx++
					mcusUntilRestart = img.RestartInterval
					for i := range dcPred {
						dcPred[i] = 0
					}
				}
			}
		}
	}
	scan := w.Flush()
	result := append([]byte(nil), scan...)
	releaseBitWriter(w)
	return result
}

func encodeBlock(w *bitWriter, dcTable, acTable *HuffTable, block *Block, dcPred *int32) {
	diff := block[0] - *dcPred
	*dcPred = block[0]
	size := BitSize(diff)
	w.EmitHuff(dcTable, byte(size))
	w.EmitExtend(diff, size)

	run := 0
	// Find the last nonzero AC coefficient so the EOB marker can be
	// emitted as soon as the remaining zig-zag tail is all zero.
	lastNonzero := 0
	for k := 1; k < 64; k++ {
		if block[ZigZag[k]] != 0 {
			lastNonzero = k
		}
	}
	for k := 1; k <= lastNonzero; k++ {
		v := block[ZigZag[k]]
		if v == 0 {
			run++
			if run == 16 {
				w.EmitHuff(acTable, 0xF0)
				run = 0
			}
			continue
		}
		size := BitSize(v)
		w.EmitHuff(acTable, byte(run<<4|size))
		w.EmitExtend(v, size)
		run = 0
	}
	if lastNonzero < 63 {
		w.EmitHuff(acTable, 0x00) // EOB
	}
}

// EncodeBaseline serializes img back into a full interchange JPEG: DQT,
// SOF0, DHT, DRI (if set), SOS and the entropy-coded scan, terminated with
// EOI. Tables are emitted in ascending index order, one DQT/DHT segment
// per table, matching the layout most encoders (and this package's own
// DecodeBaseline) expect.
func EncodeBaseline(img *CoeffImage) []byte {
	var out []byte
	out = append(out, jpegtag.Marker, jpegtag.SOI)
	out = append(out, encodeDQTs(img)...)
	out = append(out, encodeSOF0(img)...)
	out = append(out, encodeDHTs(img)...)
	if img.RestartInterval > 0 {
		out = append(out, jpegtag.Marker, jpegtag.DRI, 0x00, 0x04,
			byte(img.RestartInterval>>8), byte(img.RestartInterval))
	}
	out = append(out, encodeSOS(img)...)
	out = append(out, EncodeScan(img)...)
	out = append(out, jpegtag.Marker, jpegtag.EOI)
	return out
}

func encodeDQTs(img *CoeffImage) []byte {
	var out []byte
	for i, t := range img.QuantTables {
		if t == nil {
			continue
		}
		payload := []byte{byte(i)}
		for k := 0; k < 64; k++ {
			payload = append(payload, byte(t[ZigZag[k]]))
		}
		length := len(payload) + 2
		out = append(out, jpegtag.Marker, 0xDB, byte(length>>8), byte(length))
		out = append(out, payload...)
	}
	return out
}

func encodeSOF0(img *CoeffImage) []byte {
	payload := []byte{img.Precision, byte(img.Height >> 8), byte(img.Height), byte(img.Width >> 8), byte(img.Width), byte(len(img.Components))}
	for _, c := range img.Components {
		payload = append(payload, c.ID, byte(c.H<<4|c.V), byte(c.QuantIdx))
	}
	length := len(payload) + 2
	out := []byte{jpegtag.Marker, jpegtag.SOF0, byte(length >> 8), byte(length)}
	return append(out, payload...)
}

func encodeDHTs(img *CoeffImage) []byte {
	var out []byte
	emit := func(class byte, id int, t *HuffTable) {
		if t == nil {
			return
		}
		var bits [16]byte
		// Reconstruct BITS counts from encLen, since HuffTable only keeps
		// the derived code table, not the original BITS array.
		var counts [17]int
		for _, sym := range t.Values {
			counts[t.encLen[sym]]++
		}
		for l := 1; l <= 16; l++ {
			bits[l-1] = byte(counts[l])
		}
		payload := []byte{class<<4 | byte(id)}
		payload = append(payload, bits[:]...)
		payload = append(payload, t.Values...)
		length := len(payload) + 2
		out = append(out, jpegtag.Marker, jpegtag.DHT, byte(length>>8), byte(length))
		out = append(out, payload...)
	}
	for i, t := range img.DCTables {
		emit(0, i, t)
	}
	for i, t := range img.ACTables {
		emit(1, i, t)
	}
	return out
}

func encodeSOS(img *CoeffImage) []byte {
	payload := []byte{byte(len(img.Components))}
	for _, c := range img.Components {
		payload = append(payload, c.ID, byte(c.DCIdx<<4|c.ACIdx))
	}
	payload = append(payload, 0x00, 0x3F, 0x00) // Ss, Se, AhAl: fixed for baseline
	length := len(payload) + 2
	out := []byte{jpegtag.Marker, jpegtag.SOS, byte(length >> 8), byte(length)}
	return append(out, payload...)
}

func consumeRestart(r *bitReader, expected int) error {
	// Skip to the marker the fill() loop already detected, then read its
	// two bytes for real and reset the bit buffer.
	for r.pos < len(r.buf)-1 {
		if r.buf[r.pos] == jpegtag.Marker && jpegtag.IsRST(r.buf[r.pos+1]) {
			r.pos += 2
			r.SyncToByte()
			return nil
		}
		if r.buf[r.pos] == jpegtag.Marker && r.buf[r.pos+1] != jpegtag.Stuff {
			return fmt.Errorf("jpegbits: expected RST%d, found other marker", expected)
		}
		r.pos++
	}
	return fmt.Errorf("jpegbits: missing restart marker")
}
