package fs

import (
	"fmt"
	"io"
	"os"
)

// Device is the raw sector I/O collaborator this module consumes. The
// simulated disk itself (request/response sector queueing, seek-time
// modeling) is out of scope — this interface is the entire
// contract the filesystem core needs from it. The simulator contract
// treats ReadSector/WriteSector as infallible; Go still
// returns an error so a real backing store (a host file) can surface I/O
// failures without violating that contract for in-memory callers.
type Device interface {
	ReadSector(sector int, buf []byte) error
	WriteSector(sector int, buf []byte) error
	SectorSize() int
	NumSectors() int
}

// MemDevice is an in-memory Device, used by tests and by any caller that
// doesn't need the disk image to survive process exit.
type MemDevice struct {
	sectorSize int
	sectors    [][]byte
}

// NewMemDevice returns a zeroed in-memory disk of the given geometry.
func NewMemDevice(sectorSize, numSectors int) *MemDevice {
	sectors := make([][]byte, numSectors)
	for i := range sectors {
		sectors[i] = make([]byte, sectorSize)
	}
	return &MemDevice{sectorSize: sectorSize, sectors: sectors}
}

func (d *MemDevice) SectorSize() int { return d.sectorSize }
func (d *MemDevice) NumSectors() int { return len(d.sectors) }

func (d *MemDevice) ReadSector(sector int, buf []byte) error {
	if sector < 0 || sector >= len(d.sectors) {
		return fmt.Errorf("fs: sector %d out of range", sector)
	}
	copy(buf, d.sectors[sector])
	return nil
}

func (d *MemDevice) WriteSector(sector int, buf []byte) error {
	if sector < 0 || sector >= len(d.sectors) {
		return fmt.Errorf("fs: sector %d out of range", sector)
	}
	copy(d.sectors[sector], buf)
	return nil
}

// FileDevice is a Device backed by a host file — what the CLI's `-f`
// format and `-cp` commands operate against, analogous to Nachos's
// DISK file that backs the simulated disk between runs.
type FileDevice struct {
	f          *os.File
	sectorSize int
	numSectors int
}

// OpenFileDevice opens (or creates, if format is true) a host file as a
// disk image of the given geometry.
func OpenFileDevice(path string, sectorSize, numSectors int, format bool) (*FileDevice, error) {
	flags := os.O_RDWR
	if format {
		flags |= os.O_CREATE | os.O_TRUNC
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, fmt.Errorf("fs: open disk image: %w", err)
	}
	d := &FileDevice{f: f, sectorSize: sectorSize, numSectors: numSectors}
	if format {
		if err := d.truncateToGeometry(); err != nil {
			f.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *FileDevice) truncateToGeometry() error {
	return d.f.Truncate(int64(d.sectorSize) * int64(d.numSectors))
}

func (d *FileDevice) SectorSize() int { return d.sectorSize }
func (d *FileDevice) NumSectors() int { return d.numSectors }

func (d *FileDevice) ReadSector(sector int, buf []byte) error {
	if sector < 0 || sector >= d.numSectors {
		return fmt.Errorf("fs: sector %d out of range", sector)
	}
	_, err := d.f.ReadAt(buf[:d.sectorSize], int64(sector)*int64(d.sectorSize))
	if err != nil && err != io.EOF {
		return fmt.Errorf("fs: read sector %d: %w", sector, err)
	}
	return nil
}

func (d *FileDevice) WriteSector(sector int, buf []byte) error {
	if sector < 0 || sector >= d.numSectors {
		return fmt.Errorf("fs: sector %d out of range", sector)
	}
	if _, err := d.f.WriteAt(buf[:d.sectorSize], int64(sector)*int64(d.sectorSize)); err != nil {
		return fmt.Errorf("fs: write sector %d: %w", sector, err)
	}
	return nil
}

// Close releases the underlying host file.
func (d *FileDevice) Close() error {
	return d.f.Close()
}
