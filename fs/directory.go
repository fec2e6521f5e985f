package fs

import (
	"fmt"
)

// NameLength is the fixed on-disk width of a directory entry's name field.
const NameLength = 32

// entrySize is the packed on-disk size of one DirEntry: 1 inUse byte, the
// fixed name field, a 4-byte sector index, and 1 isFile byte.
const entrySize = 1 + NameLength + 4 + 1

// DirEntry is one slot in a Directory.
type DirEntry struct {
	InUse  bool
	Name   string
	Sector int
	IsFile bool
}

// Directory is a fixed-capacity name->(sector,isFile) mapping, itself
// stored as a regular file. Removal leaves a slot
// marked unused rather than compacting the array, matching Nachos's
// Directory::Remove.
type Directory struct {
	entries []DirEntry
}

// NewDirectory returns an empty directory with the given entry capacity.
func NewDirectory(capacity int) *Directory {
	return &Directory{entries: make([]DirEntry, capacity)}
}

// Capacity returns the directory's fixed entry capacity.
func (d *Directory) Capacity() int { return len(d.entries) }

func (d *Directory) indexOf(name string) int {
	for i := range d.entries {
		if d.entries[i].InUse && d.entries[i].Name == name {
			return i
		}
	}
	return -1
}

// Find returns the sector of name's entry, or -1 if not present.
func (d *Directory) Find(name string) int {
	i := d.indexOf(name)
	if i < 0 {
		return -1
	}
	return d.entries[i].Sector
}

// IsFile reports whether name is present and is a file (as opposed to a
// subdirectory). ok is false if name isn't present at all.
func (d *Directory) IsFile(name string) (isFile, ok bool) {
	i := d.indexOf(name)
	if i < 0 {
		return false, false
	}
	return d.entries[i].IsFile, true
}

// Add inserts a new entry into the first free slot. It fails if name
// already exists or the directory is full.
func (d *Directory) Add(name string, sector int, isFile bool) bool {
	if d.indexOf(name) >= 0 {
		return false
	}
	for i := range d.entries {
		if !d.entries[i].InUse {
			d.entries[i] = DirEntry{InUse: true, Name: name, Sector: sector, IsFile: isFile}
			return true
		}
	}
	return false
}

// Remove marks name's slot unused. It does not compact the entry array.
func (d *Directory) Remove(name string) bool {
	i := d.indexOf(name)
	if i < 0 {
		return false
	}
	d.entries[i] = DirEntry{}
	return true
}

// List returns all in-use entries, in slot order.
func (d *Directory) List() []DirEntry {
	var out []DirEntry
	for _, e := range d.entries {
		if e.InUse {
			out = append(out, e)
		}
	}
	return out
}

// FetchFrom loads the directory's contents from the given header's backing
// file.
func (d *Directory) FetchFrom(dev Device, hdr *Header) error {
	buf := make([]byte, entrySize*len(d.entries))
	if _, err := hdr.ReadAt(dev, buf, 0); err != nil {
		return fmt.Errorf("fs: fetch directory: %w", err)
	}
	for i := range d.entries {
		off := i * entrySize
		d.entries[i] = decodeEntry(buf[off : off+entrySize])
	}
	return nil
}

// WriteBack persists the directory's contents to the given header's
// backing file.
func (d *Directory) WriteBack(dev Device, hdr *Header) error {
	buf := make([]byte, entrySize*len(d.entries))
	for i := range d.entries {
		off := i * entrySize
		encodeEntry(buf[off:off+entrySize], d.entries[i])
	}
	if _, err := hdr.WriteAt(dev, buf, 0); err != nil {
		return fmt.Errorf("fs: write back directory: %w", err)
	}
	return nil
}

func encodeEntry(buf []byte, e DirEntry) {
	if e.InUse {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	name := []byte(e.Name)
	if len(name) > NameLength {
		name = name[:NameLength]
	}
	copy(buf[1:1+NameLength], name)
	for i := len(name); i < NameLength; i++ {
		buf[1+i] = 0
	}
	sec := uint32(int32(e.Sector))
	buf[1+NameLength] = byte(sec)
	buf[1+NameLength+1] = byte(sec >> 8)
	buf[1+NameLength+2] = byte(sec >> 16)
	buf[1+NameLength+3] = byte(sec >> 24)
	if e.IsFile {
		buf[1+NameLength+4] = 1
	} else {
		buf[1+NameLength+4] = 0
	}
}

func decodeEntry(buf []byte) DirEntry {
	inUse := buf[0] != 0
	nameEnd := 1
	for nameEnd < 1+NameLength && buf[nameEnd] != 0 {
		nameEnd++
	}
	name := string(buf[1:nameEnd])
	sec := uint32(buf[1+NameLength]) | uint32(buf[1+NameLength+1])<<8 |
		uint32(buf[1+NameLength+2])<<16 | uint32(buf[1+NameLength+3])<<24
	isFile := buf[1+NameLength+4] != 0
	return DirEntry{InUse: inUse, Name: name, Sector: int(int32(sec)), IsFile: isFile}
}
