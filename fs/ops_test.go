package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nachos-go/nachos/kernel/config"
)

func newTestOps(t *testing.T, geo config.Geometry) *Ops {
	t.Helper()
	dev := NewMemDevice(geo.SectorSize, geo.NumSectors)
	ops, err := Format(dev, geo, nil)
	require.NoError(t, err)
	return ops
}

// S4: create a small file, write it, close it, reopen it, read it back.
func TestS4CreateWriteReadSmallFile(t *testing.T) {
	ops := newTestOps(t, testGeometry())

	require.True(t, ops.Create("/a", 100))
	id, err := ops.Open("/a")
	require.NoError(t, err)

	want := make([]byte, 100)
	for i := range want {
		want[i] = byte(i)
	}
	n, err := ops.Write(id, want)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	require.NoError(t, ops.Close(id))

	id2, err := ops.Open("/a")
	require.NoError(t, err)
	got := make([]byte, 100)
	n, err = ops.Read(id2, got)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, want, got)
	length, err := ops.FileLength(id2)
	require.NoError(t, err)
	assert.Equal(t, 100, length)
}

// S5: a file sized one byte past L2 forces the header to level 2; it must
// still round-trip identically.
func TestS5FileCrossingLevel2(t *testing.T) {
	geo := tinyGeometry()
	l2, _, _ := thresholds(geo)
	ops := newTestOps(t, geo)

	size := l2 + 1
	require.True(t, ops.Create("/big", size))
	id, err := ops.Open("/big")
	require.NoError(t, err)

	want := make([]byte, size)
	for i := range want {
		want[i] = byte(i * 3)
	}
	_, err = ops.Write(id, want)
	require.NoError(t, err)
	require.NoError(t, ops.Close(id))

	id2, err := ops.Open("/big")
	require.NoError(t, err)
	got := make([]byte, size)
	_, err = ops.Read(id2, got)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// S6: CreateDirectory, Create inside it, List shows the entry, Remove
// clears it and frees its sectors.
func TestS6DirectoryCreateListRemove(t *testing.T) {
	ops := newTestOps(t, testGeometry())

	require.True(t, ops.CreateDirectory("/d"))
	require.True(t, ops.Create("/d/x", 50))

	entries, err := ops.List("/d")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "x", entries[0].Name)
	assert.True(t, entries[0].IsFile)

	require.True(t, ops.Remove("/d/x"))
	entries, err = ops.List("/d")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// Delete-then-recreate: after Remove, the freed sectors are eligible for
// re-allocation and subsequent creates succeed.
func TestDeleteThenRecreateReclaimsSectors(t *testing.T) {
	geo := config.Geometry{SectorSize: 32, NumSectors: 20, NumDirEntries: 4}
	ops := newTestOps(t, geo)

	require.True(t, ops.Create("/f", 64))
	require.True(t, ops.Remove("/f"))
	require.True(t, ops.Create("/g", 64))

	id, err := ops.Open("/g")
	require.NoError(t, err)
	length, err := ops.FileLength(id)
	require.NoError(t, err)
	assert.Equal(t, 64, length)
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	ops := newTestOps(t, testGeometry())
	require.True(t, ops.Create("/dup", 10))
	assert.False(t, ops.Create("/dup", 10))
}

func TestCreateFailsOnSectorExhaustion(t *testing.T) {
	geo := config.Geometry{SectorSize: 32, NumSectors: 10, NumDirEntries: 4}
	ops := newTestOps(t, geo)
	assert.False(t, ops.Create("/huge", 100*geo.SectorSize))
}

func TestOpenMissingFileFails(t *testing.T) {
	ops := newTestOps(t, testGeometry())
	_, err := ops.Open("/nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

// An intermediate path component that is a regular file is a hard
// resolution failure, per the open-question resolution.
func TestIntermediateFileComponentFailsResolution(t *testing.T) {
	ops := newTestOps(t, testGeometry())
	require.True(t, ops.Create("/f", 10))

	_, err := ops.Open("/f/child")
	assert.ErrorIs(t, err, ErrNotADirectory)
	assert.False(t, ops.Remove("/f/child"))
}

func TestNestedCreateTargetsLastSuccessfullyConsumedDirectory(t *testing.T) {
	ops := newTestOps(t, testGeometry())
	require.True(t, ops.CreateDirectory("/a"))
	require.True(t, ops.CreateDirectory("/a/b"))
	require.True(t, ops.Create("/a/b/c", 10))

	lines, err := ops.RecursiveList("/")
	require.NoError(t, err)
	assert.Contains(t, lines, "a")
	assert.Contains(t, lines, "  b")
	assert.Contains(t, lines, "    c")
}

func TestWriteAndReadRespectFileLengthBoundary(t *testing.T) {
	ops := newTestOps(t, testGeometry())
	require.True(t, ops.Create("/bounded", 10))
	id, err := ops.Open("/bounded")
	require.NoError(t, err)

	// writes past the file's fixed length are truncated, not extended.
	n, err := ops.Write(id, make([]byte, 20))
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	length, err := ops.FileLength(id)
	require.NoError(t, err)
	assert.Equal(t, 10, length)
}

func TestCloseThenOperateFails(t *testing.T) {
	ops := newTestOps(t, testGeometry())
	require.True(t, ops.Create("/f", 10))
	id, err := ops.Open("/f")
	require.NoError(t, err)
	require.NoError(t, ops.Close(id))

	_, err = ops.Read(id, make([]byte, 1))
	assert.ErrorIs(t, err, ErrNoOpenFile)
	assert.ErrorIs(t, ops.Close(id), ErrNoOpenFile)
}

func TestFormatThenReopenSeesPersistedState(t *testing.T) {
	geo := testGeometry()
	dev := NewMemDevice(geo.SectorSize, geo.NumSectors)

	ops, err := Format(dev, geo, nil)
	require.NoError(t, err)
	require.True(t, ops.Create("/persisted", 20))

	reopened, err := New(dev, geo, nil)
	require.NoError(t, err)
	entries, err := reopened.List("/")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "persisted", entries[0].Name)
}
