// Package fs implements the multi-level indexed on-disk filesystem: a
// free-space bitmap, a height-variable inode tree, fixed-capacity
// directories stored as regular files, and the path resolver and
// operations that tie them together. It is grounded on the Nachos MP4
// filesystem assignment (original_source/MP4_FileSystem), re-expressed
// around an explicit handle table and a path resolver that never mutates
// its input.
package fs

import (
	"fmt"
	"strings"

	"github.com/nachos-go/nachos/kernel/config"
	"github.com/nachos-go/nachos/kernel/klog"
)

// Well-known sectors, placed so the kernel can find the bitmap and root
// directory files on boot-up.
const (
	FreeMapSector   = 0
	DirectorySector = 1
)

// OpenFile is one entry in Ops's open-file handle table, in place of a
// single process-wide "current open file" slot: each handle tracks its
// own header and read/write cursor, keyed by an integer id syscalls carry
// explicitly.
type OpenFile struct {
	hdr    *Header
	sector int
	pos    int
}

// Length returns the file's logical byte size.
func (of *OpenFile) Length() int { return of.hdr.NumBytes }

// Ops implements the filesystem's operation surface:
// Create, Open, Read, Write, Close, Remove, List, RecursiveList,
// CreateDirectory, plus a DescribeAll diagnostic dump.
type Ops struct {
	dev Device
	geo config.Geometry
	log *klog.Logger

	mapHdr *Header
	dirHdr *Header

	handles    map[int]*OpenFile
	nextHandle int
}

// Format initializes a fresh filesystem on dev: an empty root directory
// and a free-space bitmap with sectors 0 and 1 (their own headers) marked
// used, matching Nachos's FileSystem(format=true) constructor.
func Format(dev Device, geo config.Geometry, log *klog.Logger) (*Ops, error) {
	if log == nil {
		log = klog.Discard()
	}
	bm := NewBitmap(dev.NumSectors())
	dir := NewDirectory(geo.NumDirEntries)
	mapHdr := NewHeader(geo)
	dirHdr := NewHeader(geo)

	bm.Mark(FreeMapSector)
	bm.Mark(DirectorySector)

	freeMapFileSize := ceilDiv(dev.NumSectors(), 8)
	dirFileSize := geo.NumDirEntries * entrySize

	if err := mapHdr.Allocate(dev, bm, freeMapFileSize); err != nil {
		return nil, fmt.Errorf("fs: format: allocate free-map file: %w", err)
	}
	if err := dirHdr.Allocate(dev, bm, dirFileSize); err != nil {
		return nil, fmt.Errorf("fs: format: allocate directory file: %w", err)
	}
	if err := mapHdr.WriteBack(dev, FreeMapSector); err != nil {
		return nil, err
	}
	if err := dirHdr.WriteBack(dev, DirectorySector); err != nil {
		return nil, err
	}
	if err := dir.WriteBack(dev, dirHdr); err != nil {
		return nil, fmt.Errorf("fs: format: write root directory: %w", err)
	}
	if _, err := mapHdr.WriteAt(dev, bm.Bytes(), 0); err != nil {
		return nil, fmt.Errorf("fs: format: write free-map: %w", err)
	}

	log.FS("formatted disk: %d sectors, %d-byte sectors", dev.NumSectors(), geo.SectorSize)

	return &Ops{dev: dev, geo: geo, log: log, mapHdr: mapHdr, dirHdr: dirHdr, handles: map[int]*OpenFile{}}, nil
}

// New opens an already-formatted filesystem on dev, reading the bitmap and
// root directory headers from their well-known sectors.
func New(dev Device, geo config.Geometry, log *klog.Logger) (*Ops, error) {
	if log == nil {
		log = klog.Discard()
	}
	mapHdr := NewHeader(geo)
	if err := mapHdr.FetchFrom(dev, FreeMapSector); err != nil {
		return nil, fmt.Errorf("fs: open free-map header: %w", err)
	}
	dirHdr := NewHeader(geo)
	if err := dirHdr.FetchFrom(dev, DirectorySector); err != nil {
		return nil, fmt.Errorf("fs: open root directory header: %w", err)
	}
	return &Ops{dev: dev, geo: geo, log: log, mapHdr: mapHdr, dirHdr: dirHdr, handles: map[int]*OpenFile{}}, nil
}

func (o *Ops) loadFreeMap() (*Bitmap, error) {
	bm := NewBitmap(o.dev.NumSectors())
	buf := make([]byte, ceilDiv(o.dev.NumSectors(), 8))
	if _, err := o.mapHdr.ReadAt(o.dev, buf, 0); err != nil {
		return nil, err
	}
	bm.LoadBytes(buf)
	return bm, nil
}

func (o *Ops) flushFreeMap(bm *Bitmap) error {
	_, err := o.mapHdr.WriteAt(o.dev, bm.Bytes(), 0)
	return err
}

func (o *Ops) loadRootDir() (*Directory, error) {
	dir := NewDirectory(o.geo.NumDirEntries)
	if err := dir.FetchFrom(o.dev, o.dirHdr); err != nil {
		return nil, err
	}
	return dir, nil
}

// resolvedTarget is the outcome of walking a path down to its container
// directory.
type resolvedTarget struct {
	dir       *Directory
	dirHdr    *Header
	dirSector int
	name      string
}

// resolveContainer walks path's components except the last, opening each
// intermediate subdirectory in turn. If forCreate is true and an
// intermediate component is missing, the walk stops early and the missing
// component becomes the creation target in the last directory reached;
// otherwise a missing component is a hard failure. An intermediate
// component that names a file is always a hard failure.
func (o *Ops) resolveContainer(path string, forCreate bool) (*resolvedTarget, error) {
	tokens := splitPath(path)
	if len(tokens) == 0 {
		return nil, fmt.Errorf("fs: empty path")
	}

	dir, err := o.loadRootDir()
	if err != nil {
		return nil, err
	}
	curHdr := o.dirHdr
	curSector := DirectorySector

	for i := 0; i < len(tokens)-1; i++ {
		tok := tokens[i]
		sec := dir.Find(tok)
		if sec == -1 {
			if forCreate {
				return &resolvedTarget{dir: dir, dirHdr: curHdr, dirSector: curSector, name: tok}, nil
			}
			return nil, ErrNotFound
		}
		if isFile, _ := dir.IsFile(tok); isFile {
			return nil, ErrNotADirectory
		}
		childHdr := NewHeader(o.geo)
		if err := childHdr.FetchFrom(o.dev, sec); err != nil {
			return nil, err
		}
		childDir := NewDirectory(o.geo.NumDirEntries)
		if err := childDir.FetchFrom(o.dev, childHdr); err != nil {
			return nil, err
		}
		dir, curHdr, curSector = childDir, childHdr, sec
	}

	return &resolvedTarget{dir: dir, dirHdr: curHdr, dirSector: curSector, name: tokens[len(tokens)-1]}, nil
}

// resolveDirectory walks every component of path as a directory descent,
// used by List and RecursiveList.
func (o *Ops) resolveDirectory(path string) (*Directory, *Header, error) {
	tokens := splitPath(path)
	dir, err := o.loadRootDir()
	if err != nil {
		return nil, nil, err
	}
	curHdr := o.dirHdr
	for _, tok := range tokens {
		sec := dir.Find(tok)
		if sec == -1 {
			return nil, nil, ErrNotFound
		}
		if isFile, _ := dir.IsFile(tok); isFile {
			return nil, nil, ErrNotADirectory
		}
		childHdr := NewHeader(o.geo)
		if err := childHdr.FetchFrom(o.dev, sec); err != nil {
			return nil, nil, err
		}
		childDir := NewDirectory(o.geo.NumDirEntries)
		if err := childDir.FetchFrom(o.dev, childHdr); err != nil {
			return nil, nil, err
		}
		dir, curHdr = childDir, childHdr
	}
	return dir, curHdr, nil
}

// Create makes a new file of the given initial size at path. Any failure
// leaves the on-disk directory and free-map untouched: both are written
// back only on full success.
func (o *Ops) Create(path string, size int) bool {
	target, err := o.resolveContainer(path, true)
	if err != nil {
		return false
	}
	if target.dir.Find(target.name) != -1 {
		return false
	}

	bm, err := o.loadFreeMap()
	if err != nil {
		return false
	}
	sector := bm.FindAndSet()
	if sector == -1 {
		return false
	}
	if !target.dir.Add(target.name, sector, true) {
		return false
	}

	hdr := NewHeader(o.geo)
	if err := hdr.Allocate(o.dev, bm, size); err != nil {
		return false
	}
	if err := hdr.WriteBack(o.dev, sector); err != nil {
		return false
	}
	if err := target.dir.WriteBack(o.dev, target.dirHdr); err != nil {
		return false
	}
	if err := o.flushFreeMap(bm); err != nil {
		return false
	}

	o.log.FS("created %s size=%d sector=%d", path, size, sector)
	return true
}

// CreateDirectory creates an empty subdirectory at path, exactly as
// Create but allocating a directory-sized child file and marking the
// entry isFile=false. The write-back ordering below only persists the new
// subdirectory's content once its header has actually been allocated,
// rather than unconditionally touching a handle that was never opened.
func (o *Ops) CreateDirectory(path string) bool {
	target, err := o.resolveContainer(path, true)
	if err != nil {
		return false
	}
	if target.dir.Find(target.name) != -1 {
		return false
	}

	bm, err := o.loadFreeMap()
	if err != nil {
		return false
	}
	sector := bm.FindAndSet()
	if sector == -1 {
		return false
	}
	if !target.dir.Add(target.name, sector, false) {
		return false
	}

	hdr := NewHeader(o.geo)
	dirFileSize := o.geo.NumDirEntries * entrySize
	if err := hdr.Allocate(o.dev, bm, dirFileSize); err != nil {
		return false
	}
	if err := hdr.WriteBack(o.dev, sector); err != nil {
		return false
	}

	childDir := NewDirectory(o.geo.NumDirEntries)
	if err := childDir.WriteBack(o.dev, hdr); err != nil {
		return false
	}
	if err := target.dir.WriteBack(o.dev, target.dirHdr); err != nil {
		return false
	}
	if err := o.flushFreeMap(bm); err != nil {
		return false
	}

	o.log.FS("created directory %s sector=%d", path, sector)
	return true
}

// Open resolves path and allocates a new handle for the file it names. It
// returns the file's handle id.
func (o *Ops) Open(path string) (int, error) {
	target, err := o.resolveContainer(path, false)
	if err != nil {
		return 0, err
	}
	sector := target.dir.Find(target.name)
	if sector == -1 {
		return 0, ErrNotFound
	}

	hdr := NewHeader(o.geo)
	if err := hdr.FetchFrom(o.dev, sector); err != nil {
		return 0, err
	}

	id := o.nextHandle
	o.nextHandle++
	o.handles[id] = &OpenFile{hdr: hdr, sector: sector}
	return id, nil
}

// Read reads up to len(buf) bytes from the file at id, starting at its
// current cursor, and advances the cursor.
func (o *Ops) Read(id int, buf []byte) (int, error) {
	of, ok := o.handles[id]
	if !ok {
		return 0, ErrNoOpenFile
	}
	n, err := of.hdr.ReadAt(o.dev, buf, of.pos)
	of.pos += n
	return n, err
}

// Write writes len(buf) bytes to the file at id, starting at its current
// cursor, and advances the cursor. Files have a fixed size set at Create;
// writes past the end are silently truncated to the file's length,
// matching Nachos's non-extensible files.
func (o *Ops) Write(id int, buf []byte) (int, error) {
	of, ok := o.handles[id]
	if !ok {
		return 0, ErrNoOpenFile
	}
	n, err := of.hdr.WriteAt(o.dev, buf, of.pos)
	of.pos += n
	return n, err
}

// FileLength returns the length of the open file at id.
func (o *Ops) FileLength(id int) (int, error) {
	of, ok := o.handles[id]
	if !ok {
		return 0, ErrNoOpenFile
	}
	return of.Length(), nil
}

// Close drops the handle at id, in place of clearing a single
// process-wide "current open file" slot.
func (o *Ops) Close(id int) error {
	if _, ok := o.handles[id]; !ok {
		return ErrNoOpenFile
	}
	delete(o.handles, id)
	return nil
}

// Remove deletes the file or empty directory named by path: its data
// sectors and header sector are freed, and its directory entry is cleared.
func (o *Ops) Remove(path string) bool {
	target, err := o.resolveContainer(path, false)
	if err != nil {
		return false
	}
	sector := target.dir.Find(target.name)
	if sector == -1 {
		return false
	}

	hdr := NewHeader(o.geo)
	if err := hdr.FetchFrom(o.dev, sector); err != nil {
		return false
	}
	if isFile, _ := target.dir.IsFile(target.name); !isFile {
		sub := NewDirectory(o.geo.NumDirEntries)
		if err := sub.FetchFrom(o.dev, hdr); err != nil || len(sub.List()) > 0 {
			return false
		}
	}

	bm, err := o.loadFreeMap()
	if err != nil {
		return false
	}
	if err := hdr.Deallocate(o.dev, bm); err != nil {
		return false
	}
	bm.Clear(sector)
	target.dir.Remove(target.name)

	if err := o.flushFreeMap(bm); err != nil {
		return false
	}
	if err := target.dir.WriteBack(o.dev, target.dirHdr); err != nil {
		return false
	}

	o.log.FS("removed %s", path)
	return true
}

// List returns the directory entries at path.
func (o *Ops) List(path string) ([]DirEntry, error) {
	dir, _, err := o.resolveDirectory(path)
	if err != nil {
		return nil, err
	}
	return dir.List(), nil
}

// RecursiveList walks path and every subdirectory beneath it, returning
// one indented line per entry.
func (o *Ops) RecursiveList(path string) ([]string, error) {
	dir, _, err := o.resolveDirectory(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	o.recursiveList(dir, 0, &lines)
	return lines, nil
}

func (o *Ops) recursiveList(dir *Directory, depth int, lines *[]string) {
	for _, e := range dir.List() {
		*lines = append(*lines, strings.Repeat("  ", depth)+e.Name)
		if e.IsFile {
			continue
		}
		childHdr := NewHeader(o.geo)
		if err := childHdr.FetchFrom(o.dev, e.Sector); err != nil {
			continue
		}
		childDir := NewDirectory(o.geo.NumDirEntries)
		if err := childDir.FetchFrom(o.dev, childHdr); err != nil {
			continue
		}
		o.recursiveList(childDir, depth+1, lines)
	}
}

// DescribeAll dumps the free-map summary, the root directory, and every
// entry's header — the Go stand-in for Nachos's FileSystem::Print, backing
// the CLI's -p flag.
func (o *Ops) DescribeAll() []string {
	var lines []string

	bm, err := o.loadFreeMap()
	if err == nil {
		lines = append(lines, fmt.Sprintf("free-map: %d/%d sectors free", bm.NumClear(), bm.NumBits()))
	}

	dir, err := o.loadRootDir()
	if err != nil {
		return lines
	}
	lines = append(lines, "root directory:")
	for _, e := range dir.List() {
		kind := "dir"
		if e.IsFile {
			kind = "file"
		}
		info := ""
		hdr := NewHeader(o.geo)
		if err := hdr.FetchFrom(o.dev, e.Sector); err == nil {
			info = hdr.Describe()
		}
		lines = append(lines, fmt.Sprintf("  %-16s [%s] sector=%-4d %s", e.Name, kind, e.Sector, info))
	}
	return lines
}
