package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllocBufferIsZeroedAndCorrectLength(t *testing.T) {
	buf := allocBuffer(5)
	assert.Len(t, buf, 5)
	for _, v := range buf {
		assert.Equal(t, 0.0, v)
	}
}

func TestAllocBufferDoesNotAliasConcurrentlyLiveBuffers(t *testing.T) {
	a := allocBuffer(4)
	for i := range a {
		a[i] = float64(i + 1)
	}
	// A second allocation must not share backing storage with a, since a
	// has not been released back to the pool yet.
	b := allocBuffer(4)
	for i := range b {
		b[i] = -1
	}
	assert.Equal(t, []float64{1, 2, 3, 4}, a)
}

func TestReleaseBufferAllowsReuseWithoutCorruptingLiveData(t *testing.T) {
	a := allocBuffer(3)
	a[0], a[1], a[2] = 1, 2, 3
	releaseBuffer(a)

	b := allocBuffer(3)
	assert.Equal(t, []float64{0, 0, 0}, b)
}
