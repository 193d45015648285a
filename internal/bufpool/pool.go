// Package bufpool recycles []byte scratch buffers for the entropy encoder
// (internal/jpegbits), which needs one growable buffer per scan (restart
// segments append to the same buffer) every time a tile gets re-encoded.
package bufpool

import "sync"

// classFor rounds n up to the nearest power-of-two bucket, with a 64-byte
// floor, so a wide range of scan sizes still hits a shared pool instead of
// each fragmenting its own bucket.
func classFor(n int) int {
	cls := 64
	for cls < n {
		cls <<= 1
	}
	return cls
}

// pools maps a size class -> *sync.Pool of []byte with that capacity.
// sync.Map avoids a mutex on the hot path; in practice only a handful of
// distinct scan-size classes exist per run, so the map stays tiny.
var pools sync.Map

// Get returns a zero-length []byte with capacity at least sizeHint,
// reused from the pool when available.
func Get(sizeHint int) []byte {
	cls := classFor(sizeHint)
	if p, ok := pools.Load(cls); ok {
		if v := p.(*sync.Pool).Get(); v != nil {
			return v.([]byte)[:0]
		}
	}
	return make([]byte, 0, cls)
}

// Put returns buf to the pool for reuse. Nil buffers are ignored. buf's
// contents are not cleared; callers must not read it after Put.
func Put(buf []byte) {
	if buf == nil {
		return
	}
	cls := cap(buf)
	p, _ := pools.LoadOrStore(cls, &sync.Pool{})
	p.(*sync.Pool).Put(buf)
}
