package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectoryAddFindRemove(t *testing.T) {
	d := NewDirectory(4)

	assert.True(t, d.Add("a", 10, true))
	assert.True(t, d.Add("b", 11, false))
	assert.Equal(t, 10, d.Find("a"))
	assert.Equal(t, 11, d.Find("b"))
	assert.Equal(t, -1, d.Find("missing"))

	isFile, ok := d.IsFile("b")
	assert.True(t, ok)
	assert.False(t, isFile)

	assert.True(t, d.Remove("a"))
	assert.Equal(t, -1, d.Find("a"))
	assert.False(t, d.Remove("a"))
}

func TestDirectoryRejectsDuplicateName(t *testing.T) {
	d := NewDirectory(4)
	assert.True(t, d.Add("x", 1, true))
	assert.False(t, d.Add("x", 2, true))
}

func TestDirectoryFullRejectsAdd(t *testing.T) {
	d := NewDirectory(2)
	assert.True(t, d.Add("a", 1, true))
	assert.True(t, d.Add("b", 2, true))
	assert.False(t, d.Add("c", 3, true))
}

func TestDirectoryRemoveDoesNotCompact(t *testing.T) {
	d := NewDirectory(2)
	d.Add("a", 1, true)
	d.Add("b", 2, true)
	d.Remove("a")
	// the freed slot is reusable, but the other entry keeps its slot.
	assert.True(t, d.Add("c", 3, true))
	assert.Equal(t, 2, d.Find("b"))
	assert.Equal(t, 3, d.Find("c"))
}

func TestDirectoryEncodeDecodeRoundTrip(t *testing.T) {
	geo := testGeometry()
	dev := NewMemDevice(geo.SectorSize, 64)
	bm := NewBitmap(dev.NumSectors())

	hdr := NewHeader(geo)
	dirFileSize := 4 * entrySize
	if err := hdr.Allocate(dev, bm, dirFileSize); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	d := NewDirectory(4)
	d.Add("alpha", 5, true)
	d.Add("beta", 6, false)
	if err := d.WriteBack(dev, hdr); err != nil {
		t.Fatalf("write back: %v", err)
	}

	reloaded := NewDirectory(4)
	if err := reloaded.FetchFrom(dev, hdr); err != nil {
		t.Fatalf("fetch from: %v", err)
	}
	assert.Equal(t, 5, reloaded.Find("alpha"))
	assert.Equal(t, 6, reloaded.Find("beta"))
	isFile, ok := reloaded.IsFile("beta")
	assert.True(t, ok)
	assert.False(t, isFile)
}
