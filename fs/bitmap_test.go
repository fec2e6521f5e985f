package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmapFindAndSetExhaustsInOrder(t *testing.T) {
	bm := NewBitmap(4)
	assert.Equal(t, 4, bm.NumClear())

	got := []int{}
	for i := 0; i < 4; i++ {
		got = append(got, bm.FindAndSet())
	}
	assert.Equal(t, []int{0, 1, 2, 3}, got)
	assert.Equal(t, 0, bm.NumClear())
	assert.Equal(t, -1, bm.FindAndSet())
}

func TestBitmapClearFreesForReuse(t *testing.T) {
	bm := NewBitmap(4)
	a := bm.FindAndSet()
	b := bm.FindAndSet()
	bm.Clear(a)
	assert.True(t, bm.Test(b))
	assert.False(t, bm.Test(a))
	assert.Equal(t, a, bm.FindAndSet())
}

func TestBitmapBytesRoundTrip(t *testing.T) {
	bm := NewBitmap(20)
	bm.Mark(0)
	bm.Mark(5)
	bm.Mark(19)

	other := NewBitmap(20)
	other.LoadBytes(bm.Bytes())
	for i := 0; i < 20; i++ {
		assert.Equal(t, bm.Test(i), other.Test(i), "bit %d", i)
	}
}
