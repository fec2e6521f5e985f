// Package config validates the kernel's tunable constants before they can
// corrupt a simulated disk or a scheduler run. It follows the same
// go-playground/validator struct-tag approach marmos91-dnfs's pkg/config
// package uses for its share configuration.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Geometry describes the simulated disk's shape. NumDirect is derived, not
// configured: it is fixed at (SectorSize-8)/4, one header sector minus the
// two leading integer fields, divided by the 4-byte width of a sector
// pointer.
type Geometry struct {
	SectorSize    int `validate:"required,min=64"`
	NumSectors    int `validate:"required,min=8"`
	NumDirEntries int `validate:"required,min=1,max=4096"`
}

// NumDirect returns the number of direct children a single header sector
// can hold.
func (g Geometry) NumDirect() int {
	return (g.SectorSize - 8) / 4
}

// DirectoryFileSize returns the byte size of a directory file of this
// geometry: NumDirEntries fixed-size entries.
func (g Geometry) DirectoryFileSize(entrySize int) int {
	return g.NumDirEntries * entrySize
}

// DefaultGeometry mirrors the Nachos defaults: 128-byte sectors, enough
// sectors for a handful of test files, and 64 directory entries.
func DefaultGeometry() Geometry {
	return Geometry{SectorSize: 128, NumSectors: 1024, NumDirEntries: 64}
}

// SchedConfig holds the scheduler's tunable timing constants.
type SchedConfig struct {
	AgingPeriodTicks    int     `validate:"required,min=1"`
	AgingThresholdTicks int     `validate:"required,min=1"`
	AgingPromotionStep  int     `validate:"required,min=1"`
	L3QuantumTicks      int     `validate:"required,min=1"`
	BurstSmoothingAlpha float64 `validate:"required,gt=0,lte=1"`
}

// DefaultSchedConfig mirrors the reference Nachos tuning: a 100-tick aging
// period and round-robin quantum, a 1500-tick aging threshold, a
// 10-point promotion step, and alpha=0.5 burst smoothing.
func DefaultSchedConfig() SchedConfig {
	return SchedConfig{
		AgingPeriodTicks:    100,
		AgingThresholdTicks: 1500,
		AgingPromotionStep:  10,
		L3QuantumTicks:      100,
		BurstSmoothingAlpha: 0.5,
	}
}

// Validate checks a Geometry's struct tags and the derived invariants that
// tags alone can't express.
func (g Geometry) Validate() error {
	if err := validate.Struct(g); err != nil {
		return formatErr(err)
	}
	if g.NumDirect() < 1 {
		return fmt.Errorf("sector_size %d too small: yields zero direct pointers", g.SectorSize)
	}
	return nil
}

// Validate checks a SchedConfig's struct tags.
func (s SchedConfig) Validate() error {
	if err := validate.Struct(s); err != nil {
		return formatErr(err)
	}
	return nil
}

func formatErr(err error) error {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		e := verrs[0]
		return fmt.Errorf("%s: validation failed on %q tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
