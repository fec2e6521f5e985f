package fs

import (
	"encoding/binary"
	"fmt"

	"github.com/nachos-go/nachos/kernel"
	"github.com/nachos-go/nachos/kernel/config"
)

// Header is the on-disk inode: a fixed-size index structure sized to
// exactly one sector. Its "level" — the height of its index
// subtree — is not stored, in core or on disk: Level() and every
// operation derive it from NumBytes, so every reader reconstructs it
// identically and the footprint stays exactly one sector.
type Header struct {
	geo config.Geometry

	NumBytes        int
	NumSectorsField int
	DataSectors     []int
}

// NewHeader returns a zero-value header sized for the given disk geometry.
func NewHeader(geo config.Geometry) *Header {
	return &Header{geo: geo, DataSectors: make([]int, geo.NumDirect())}
}

func ceilDiv(a, b int) int {
	if a <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// thresholds returns L2, L3, L4 in bytes for this header's geometry
//: L2 = NumDirect*SectorSize, L3 = NumDirect*L2, L4 = NumDirect*L3.
func thresholds(geo config.Geometry) (l2, l3, l4 int) {
	nd := geo.NumDirect()
	l2 = nd * geo.SectorSize
	l3 = nd * l2
	l4 = nd * l3
	return
}

// Level reports the header's index-tree height given its current NumBytes
//: 1 direct, 2/3/4 indirect.
func (h *Header) Level() int {
	l2, l3, l4 := thresholds(h.geo)
	switch {
	case h.NumBytes > l4:
		return 4
	case h.NumBytes > l3:
		return 3
	case h.NumBytes > l2:
		return 2
	default:
		return 1
	}
}

// FileLength returns the header's logical byte size.
func (h *Header) FileLength() int { return h.NumBytes }

// Allocate initializes a fresh header for a newly created file of the
// given size, drawing sectors from bm and persisting any child headers it
// creates along the way. It returns ErrNoSpace if bm has fewer free
// sectors than the file's data sectors up front. That check does not count
// the sectors that hold child headers; a FindAndSet failure later in the
// recursion aborts via kernel.Assert instead of returning an error.
func (h *Header) Allocate(dev Device, bm *Bitmap, size int) error {
	h.NumBytes = size
	h.NumSectorsField = ceilDiv(size, h.geo.SectorSize)
	if bm.NumClear() < h.NumSectorsField {
		return ErrNoSpace
	}

	l2, l3, l4 := thresholds(h.geo)
	switch {
	case size > l4:
		return h.allocateChildren(dev, bm, size, l4)
	case size > l3:
		return h.allocateChildren(dev, bm, size, l3)
	case size > l2:
		return h.allocateChildren(dev, bm, size, l2)
	default:
		for i := 0; i < h.NumSectorsField; i++ {
			sec := bm.FindAndSet()
			kernel.Assert(sec >= 0, "fs.Allocate", "free-map exhausted despite passing NumClear check")
			h.DataSectors[i] = sec
		}
	}
	return nil
}

func (h *Header) allocateChildren(dev Device, bm *Bitmap, size, cap int) error {
	nd := h.geo.NumDirect()
	remaining := size
	for i := 0; remaining > 0 && i < nd; i++ {
		sec := bm.FindAndSet()
		kernel.Assert(sec >= 0, "fs.Allocate", "free-map exhausted despite passing NumClear check")
		h.DataSectors[i] = sec

		child := NewHeader(h.geo)
		childSize := min(remaining, cap)
		if err := child.Allocate(dev, bm, childSize); err != nil {
			return err
		}
		if err := child.WriteBack(dev, sec); err != nil {
			return err
		}
		remaining -= cap
	}
	return nil
}

// Deallocate frees every sector this header's subtree owns, including the
// sectors holding any child headers — recursing by level rather than
// reusing the divRoundUp(numSectors, NumDirect) bound that the original
// Nachos source only gets right at level 2.
func (h *Header) Deallocate(dev Device, bm *Bitmap) error {
	l2, l3, l4 := thresholds(h.geo)
	switch {
	case h.NumBytes > l4:
		return h.deallocateChildren(dev, bm, ceilDiv(h.NumBytes, l4))
	case h.NumBytes > l3:
		return h.deallocateChildren(dev, bm, ceilDiv(h.NumBytes, l3))
	case h.NumBytes > l2:
		return h.deallocateChildren(dev, bm, ceilDiv(h.NumBytes, l2))
	default:
		for i := 0; i < h.NumSectorsField; i++ {
			kernel.Assert(bm.Test(h.DataSectors[i]), "fs.Deallocate", "sector %d expected marked", h.DataSectors[i])
			bm.Clear(h.DataSectors[i])
		}
	}
	return nil
}

func (h *Header) deallocateChildren(dev Device, bm *Bitmap, count int) error {
	for i := 0; i < count; i++ {
		child := NewHeader(h.geo)
		if err := child.FetchFrom(dev, h.DataSectors[i]); err != nil {
			return err
		}
		if err := child.Deallocate(dev, bm); err != nil {
			return err
		}
		kernel.Assert(bm.Test(h.DataSectors[i]), "fs.Deallocate", "sector %d expected marked", h.DataSectors[i])
		bm.Clear(h.DataSectors[i])
	}
	return nil
}

// ByteToSector translates a byte offset into the file to the disk sector
// holding it. Precondition: 0 <= offset < NumBytes.
func (h *Header) ByteToSector(dev Device, offset int) (int, error) {
	if offset < 0 || offset >= h.NumBytes {
		return -1, ErrBadOffset
	}
	l2, l3, l4 := thresholds(h.geo)
	switch {
	case h.NumBytes > l4:
		idx := offset / l4
		child := NewHeader(h.geo)
		if err := child.FetchFrom(dev, h.DataSectors[idx]); err != nil {
			return -1, err
		}
		return child.ByteToSector(dev, offset-idx*l4)
	case h.NumBytes > l3:
		idx := offset / l3
		child := NewHeader(h.geo)
		if err := child.FetchFrom(dev, h.DataSectors[idx]); err != nil {
			return -1, err
		}
		return child.ByteToSector(dev, offset-idx*l3)
	case h.NumBytes > l2:
		idx := offset / l2
		child := NewHeader(h.geo)
		if err := child.FetchFrom(dev, h.DataSectors[idx]); err != nil {
			return -1, err
		}
		return child.ByteToSector(dev, offset-idx*l2)
	default:
		return h.DataSectors[offset/h.geo.SectorSize], nil
	}
}

// FetchFrom reads the header's contents from the given disk sector.
func (h *Header) FetchFrom(dev Device, sector int) error {
	buf := make([]byte, dev.SectorSize())
	if err := dev.ReadSector(sector, buf); err != nil {
		return fmt.Errorf("fs: fetch header from sector %d: %w", sector, err)
	}
	h.NumBytes = int(int32(binary.LittleEndian.Uint32(buf[0:4])))
	h.NumSectorsField = int(int32(binary.LittleEndian.Uint32(buf[4:8])))
	nd := h.geo.NumDirect()
	h.DataSectors = make([]int, nd)
	for i := 0; i < nd; i++ {
		off := 8 + 4*i
		h.DataSectors[i] = int(int32(binary.LittleEndian.Uint32(buf[off : off+4])))
	}
	return nil
}

// WriteBack writes the header's contents back to the given disk sector.
func (h *Header) WriteBack(dev Device, sector int) error {
	buf := make([]byte, dev.SectorSize())
	binary.LittleEndian.PutUint32(buf[0:4], uint32(int32(h.NumBytes)))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(int32(h.NumSectorsField)))
	nd := h.geo.NumDirect()
	for i := 0; i < nd; i++ {
		v := -1
		if i < len(h.DataSectors) {
			v = h.DataSectors[i]
		}
		off := 8 + 4*i
		binary.LittleEndian.PutUint32(buf[off:off+4], uint32(int32(v)))
	}
	if err := dev.WriteSector(sector, buf); err != nil {
		return fmt.Errorf("fs: write header to sector %d: %w", sector, err)
	}
	return nil
}

// ReadAt reads len(buf) bytes (or up to FileLength) starting at offset,
// walking ByteToSector one sector at a time. It is the shared primitive
// behind both user file reads and the bitmap/directory files' own
// deserialization.
func (h *Header) ReadAt(dev Device, buf []byte, offset int) (int, error) {
	n := 0
	ss := dev.SectorSize()
	sectorBuf := make([]byte, ss)
	for n < len(buf) && offset+n < h.NumBytes {
		sector, err := h.ByteToSector(dev, offset+n)
		if err != nil {
			return n, err
		}
		if err := dev.ReadSector(sector, sectorBuf); err != nil {
			return n, err
		}
		within := (offset + n) % ss
		c := copy(buf[n:], sectorBuf[within:])
		n += c
	}
	return n, nil
}

// WriteAt writes len(buf) bytes starting at offset, read-modify-writing
// one sector at a time.
func (h *Header) WriteAt(dev Device, buf []byte, offset int) (int, error) {
	n := 0
	ss := dev.SectorSize()
	sectorBuf := make([]byte, ss)
	for n < len(buf) && offset+n < h.NumBytes {
		sector, err := h.ByteToSector(dev, offset+n)
		if err != nil {
			return n, err
		}
		if err := dev.ReadSector(sector, sectorBuf); err != nil {
			return n, err
		}
		within := (offset + n) % ss
		c := copy(sectorBuf[within:], buf[n:])
		if err := dev.WriteSector(sector, sectorBuf); err != nil {
			return n, err
		}
		n += c
	}
	return n, nil
}

// Describe renders a one-line diagnostic summary, the Go stand-in for
// Nachos's FileHeader::self_Print.
func (h *Header) Describe() string {
	return fmt.Sprintf("size=%d level=%d sectors=%d", h.NumBytes, h.Level(), h.NumSectorsField)
}
