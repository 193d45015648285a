package jpegbits

import (
	"fmt"

	"github.com/pspoerri/wsitile/internal/bufpool"
)

// bitReader reads MSB-first bits from an entropy-coded JPEG scan,
// transparently discarding stuffed 0x00 bytes that follow a literal 0xFF
// and stopping (without consuming) at a genuine marker.
type bitReader struct {
	buf      []byte
	pos      int
	accum    uint32
	nBits    uint
	atMarker bool
}

func newBitReader(buf []byte) *bitReader {
	return &bitReader{buf: buf}
}

func (r *bitReader) fill() {
	for r.nBits <= 24 {
		if r.pos >= len(r.buf) {
			// pad with 1-bits past end, matching libjpeg's EOI handling.
			r.accum |= 0xFF << (24 - r.nBits)
			r.nBits += 8
			continue
		}
		b := r.buf[r.pos]
		if b == 0xFF {
			if r.pos+1 < len(r.buf) && r.buf[r.pos+1] == 0x00 {
				r.pos += 2
			} else {
				// Marker (RSTn, DNL, EOI, ...): stop feeding bits.
				r.atMarker = true
				r.accum |= 0xFF << (24 - r.nBits)
				r.nBits += 8
				continue
			}
		} else {
			r.pos++
		}
		r.accum |= uint32(b) << (24 - r.nBits)
		r.nBits += 8
	}
}

// ReceiveBits reads n (0..16) raw bits MSB-first.
func (r *bitReader) ReceiveBits(n int) uint32 {
	if n == 0 {
		return 0
	}
	r.fill()
	v := r.accum >> (32 - uint(n))
	r.accum <<= uint(n)
	r.nBits -= uint(n)
	return v
}

// DecodeHuff reads one Huffman-coded symbol using table h.
func (r *bitReader) DecodeHuff(h *HuffTable) (byte, error) {
	r.fill()
	code := int32(r.accum >> 31)
	r.accum <<= 1
	r.nBits--
	l := 1
	for l <= 16 && code > h.maxCode[l] {
		r.fill()
		code = code<<1 | int32(r.accum>>31)
		r.accum <<= 1
		r.nBits--
		l++
	}
	if l > 16 || h.maxCode[l] < 0 {
		return 0, fmt.Errorf("jpegbits: invalid huffman code")
	}
	idx := h.valPtr[l] + (code - h.minCode[l])
	if idx < 0 || int(idx) >= len(h.Values) {
		return 0, fmt.Errorf("jpegbits: huffman symbol index out of range")
	}
	return h.Values[idx], nil
}

// receiveExtend decodes an n-bit magnitude-and-sign value per ITU-T T.81
// F.2.2.1: values in [-(2^n-1), -2^(n-1)] ∪ [2^(n-1), 2^n-1].
func receiveExtend(r *bitReader, n int) int32 {
	if n == 0 {
		return 0
	}
	v := int32(r.ReceiveBits(n))
	vt := int32(1) << (n - 1)
	if v < vt {
		v += (int32(-1) << n) + 1
	}
	return v
}

// SyncToByte discards any partially-consumed bits so the next read starts
// byte-aligned (used after hitting a marker mid-scan, e.g. at a restart).
func (r *bitReader) SyncToByte() {
	r.accum = 0
	r.nBits = 0
	r.atMarker = false
}

// Pos returns the current byte offset into buf.
func (r *bitReader) Pos() int { return r.pos }

// AtMarker reports whether the reader has hit a real marker (not a
// stuffed 0xFF 0x00 pair) and stopped consuming entropy bytes.
func (r *bitReader) AtMarker() bool { return r.atMarker }

// bitWriter packs bits MSB-first into a byte-stuffed JPEG entropy stream.
type bitWriter struct {
	out   []byte
	accum uint32
	nBits uint
}

// newBitWriter borrows its output buffer from bufpool, sized to roughly
// hold an entropy-coded scan of sizeHint source bytes. Callers return the
// buffer with releaseBitWriter once they've copied what Flush produced.
func newBitWriter(sizeHint int) *bitWriter {
	return &bitWriter{out: bufpool.Get(sizeHint)}
}

// releaseBitWriter returns w's output buffer to bufpool. Call only after
// the bytes from Flush have been copied elsewhere.
func releaseBitWriter(w *bitWriter) {
	bufpool.Put(w.out)
}

// Emit writes the low nBits of v, MSB-first, byte-stuffing any 0xFF byte
// it flushes.
func (w *bitWriter) Emit(v uint32, nBits uint) {
	w.accum |= (v & ((1 << nBits) - 1)) << (32 - w.nBits - nBits)
	w.nBits += nBits
	for w.nBits >= 8 {
		b := byte(w.accum >> 24)
		w.out = append(w.out, b)
		if b == 0xFF {
			w.out = append(w.out, 0x00)
		}
		w.accum <<= 8
		w.nBits -= 8
	}
}

// EmitHuff writes the canonical code for symbol from table h.
func (w *bitWriter) EmitHuff(h *HuffTable, symbol byte) {
	code, length := h.Code(symbol)
	w.Emit(code, uint(length))
}

// EmitExtend writes the n-bit magnitude-and-sign encoding of v (the
// inverse of receiveExtend), used after the symbol's size nibble has
// already been emitted via EmitHuff.
func (w *bitWriter) EmitExtend(v int32, n int) {
	if n == 0 {
		return
	}
	if v < 0 {
		v--
	}
	w.Emit(uint32(v)&((1<<uint(n))-1), uint(n))
}

// Flush pads the final partial byte with 1-bits and returns the
// accumulated stream.
func (w *bitWriter) Flush() []byte {
	if w.nBits > 0 {
		padBits := 8 - w.nBits
		w.Emit((1<<padBits)-1, padBits)
	}
	return w.out
}

// BitSize returns the minimal number of bits needed to represent |v| in
// the magnitude-and-sign scheme (the "SSSS" value of JPEG's Huffman
// coding), used when building DC/AC symbols during encode.
func BitSize(v int32) int {
	if v < 0 {
		v = -v
	}
	n := 0
	for v != 0 {
		n++
		v >>= 1
	}
	return n
}
