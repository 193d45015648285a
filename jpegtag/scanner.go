// Package jpegtag is the JPEG tag scanner (component C1): it locates
// markers and reads payload lengths directly on raw bytes, never decoding
// entropy-coded data. Every operation assumes well-formed vendor JPEG
// output and performs no nesting validation.
package jpegtag

// Marker byte values, each prefixed by 0xFF in the stream.
const (
	Marker byte = 0xFF

	SOI   byte = 0xD8 // Start Of Image
	DQT   byte = 0xDB // Define Quantization Table
	SOF0  byte = 0xC0 // Start Of Frame (baseline DCT)
	DHT   byte = 0xC4 // Define Huffman Table
	SOS   byte = 0xDA // Start Of Scan
	EOI   byte = 0xD9 // End Of Image
	DRI   byte = 0xDD // Define Restart Interval
	RST0  byte = 0xD0 // Restart markers RST0..RST7
	RST7  byte = 0xD7
	APP14 byte = 0xEE // Adobe application marker
	Stuff byte = 0x00 // byte-stuffing after 0xFF within entropy data
)

// IsRST reports whether b is one of RST0..RST7.
func IsRST(b byte) bool {
	return b >= RST0 && b <= RST7
}

// RSTIndex returns the restart index (0..7) encoded by an RST marker byte.
// The caller must have already confirmed IsRST(b).
func RSTIndex(b byte) int {
	return int(b - RST0)
}

// RSTMarker returns the RST marker byte for restart index i mod 8.
func RSTMarker(i int) byte {
	return RST0 + byte(((i % 8) + 8) % 8)
}

// FindTag returns the index of the first occurrence of marker (0xFF
// followed by the given second byte) in buffer, and the payload length
// including the two length bytes themselves, as encoded by the 16-bit
// big-endian integer immediately following the marker. Markers with no
// length field (SOI, EOI, RSTn) report a payload length of 0.
//
// FindTag returns (-1, 0) if the marker is not present.
func FindTag(buffer []byte, second byte) (index int, payloadLen int) {
	for i := 0; i+1 < len(buffer); i++ {
		if buffer[i] != Marker || buffer[i+1] != second {
			continue
		}
		if second == SOI || second == EOI || IsRST(second) {
			return i, 0
		}
		if i+3 >= len(buffer) {
			return i, 0
		}
		length := int(buffer[i+2])<<8 | int(buffer[i+3])
		return i, length
	}
	return -1, 0
}

// Segment describes one marker segment located by Iterate: its marker
// byte, the index of the 0xFF marker prefix, and the payload bytes
// (excluding the marker and the two length bytes, empty for SOI/EOI/RSTn).
type Segment struct {
	Marker  byte
	Index   int
	Payload []byte
}

// Iterate walks buffer from the start, calling fn once per marker segment
// encountered up to and including SOS (the first entropy-coded scan),
// after which iteration stops since scan data is not marker-delimited in
// the same way. Iteration also stops early if fn returns false.
//
// This does not decode scan data; it is used by callers that need to find
// table/header segments (DQT, SOF0, DHT, DRI, APP14) before handing the
// rest of the buffer to a frame concatenator.
func Iterate(buffer []byte, fn func(Segment) bool) {
	i := 0
	for i+1 < len(buffer) {
		if buffer[i] != Marker {
			i++
			continue
		}
		second := buffer[i+1]
		if second == Stuff {
			i += 2
			continue
		}
		if second == SOI {
			if !fn(Segment{Marker: SOI, Index: i}) {
				return
			}
			i += 2
			continue
		}
		if second == EOI {
			fn(Segment{Marker: EOI, Index: i})
			return
		}
		if IsRST(second) {
			if !fn(Segment{Marker: second, Index: i}) {
				return
			}
			i += 2
			continue
		}
		if i+3 >= len(buffer) {
			return
		}
		length := int(buffer[i+2])<<8 | int(buffer[i+3])
		end := i + 2 + length
		if end > len(buffer) {
			return
		}
		seg := Segment{Marker: second, Index: i, Payload: buffer[i+4 : end]}
		if !fn(seg) {
			return
		}
		i = end
		if second == SOS {
			return
		}
	}
}
