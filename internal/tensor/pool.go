package tensor

import "sync"

var bufferPool = sync.Pool{
	New: func() any {
		buf := make([]float64, 0, 256)
		return &buf
	},
}

// allocBuffer returns a zeroed float64 slice of length n, reusing a
// pooled backing array when one of sufficient capacity is available.
// Every tensor constructor allocates through here; later values are
// copied into the existing buffer by AssignValue. The returned
// slice is owned by the caller until passed to releaseBuffer: it is not
// put back into the pool here, to avoid a live alias re-entering
// circulation.
func allocBuffer(n int) []float64 {
	p := bufferPool.Get().(*[]float64)
	buf := *p
	if cap(buf) < n {
		buf = make([]float64, n)
	} else {
		buf = buf[:n]
		for i := range buf {
			buf[i] = 0
		}
	}
	return buf
}

// releaseBuffer returns buf's backing array to the pool. Call only once
// the tensor owning buf is discarded (e.g. reallocated to a new shape
// across a coupling iteration); reusing buf after this call aliases the
// next allocBuffer caller's data.
func releaseBuffer(buf []float64) {
	buf = buf[:0]
	bufferPool.Put(&buf)
}
