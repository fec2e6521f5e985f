package fs

import "github.com/nachos-go/nachos/kernel/config"

// testGeometry is a small disk geometry used by tests that don't care
// about realistic disk sizes, just fast setup.
func testGeometry() config.Geometry {
	return config.Geometry{SectorSize: 32, NumSectors: 512, NumDirEntries: 16}
}

// tinyGeometry yields NumDirect=2, so L2/L3/L4 are small enough for tests
// to exercise every header level (1 through 4) without allocating
// thousands of sectors. The largest file a level-4 header can address is
// NumDirect*L4 = 256 bytes, so NumDirEntries is kept at 6 (a 228-byte
// directory file) for tests that format a whole filesystem with it.
func tinyGeometry() config.Geometry {
	return config.Geometry{SectorSize: 16, NumSectors: 600, NumDirEntries: 6}
}
