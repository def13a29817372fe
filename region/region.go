// Package region implements the per-region free-space manager (FSM) and
// the record operations built on top of it: allocate, free-and-coalesce,
// in-place rewrite, and tombstone.
//
// A Region is a lightweight computed view over a slice of the table's
// mapped image — (image, index) — not an owning object; nothing in this
// package retains a reference to a Region across calls.
package region

import (
	"encoding/binary"
	"fmt"

	"github.com/go-fstable/fstable/errs"
	"github.com/go-fstable/fstable/fieldlist"
	"github.com/go-fstable/fstable/internal/layout"
)

// Region is a view over one region's byte range within a table's mapped
// image: image is shared with the caller, not copied.
type Region struct {
	image []byte // exactly layout.RegionSize bytes: header then usable area
	index int
}

// New wraps a region's byte range. image must be exactly
// layout.RegionSize bytes long.
func New(image []byte, index int) Region {
	return Region{image: image, index: index}
}

func (r Region) header() []byte { return r.image[:layout.RegionHeaderSize] }
func (r Region) usable() []byte { return r.image[layout.RegionHeaderSize:] }

// Init writes the initial FSM state — a single entry (0, RegionUsableSize)
// — into an otherwise zeroed region.
func (r Region) Init() error {
	var fmes [layout.NumFMEs]fme
	fmes[0] = fme{offset: 0, length: layout.RegionUsableSize}

	return storeFMEs(r.header(), fmes)
}

// addr encodes a record address from this region's index and an offset
// within its usable area.
func (r Region) addr(offsetInRegion int) uint64 {
	return uint64(r.index)*uint64(layout.RegionUsableSize) + uint64(offsetInRegion)
}

// Insert encodes fl and places it in the first available extent large
// enough to hold it, returning the record's address.
func (r Region) Insert(fl fieldlist.FieldList) (uint64, error) {
	n, err := fl.EncodedLen()
	if err != nil {
		return 0, err
	}

	if n > layout.RegionUsableSize {
		return 0, fmt.Errorf("region: record of %d bytes exceeds usable area of %d: %w", n, layout.RegionUsableSize, errs.ErrNoSpace)
	}

	fmes := loadFMEs(r.header())

	off, err := allocate(&fmes, uint16(n)) //nolint:gosec // n bounded above by RegionUsableSize
	if err != nil {
		return 0, err
	}

	usable := r.usable()
	if _, err := fl.Store(usable[off : int(off)+n]); err != nil {
		return 0, err
	}

	if err := storeFMEs(r.header(), fmes); err != nil {
		return 0, err
	}

	return r.addr(int(off)), nil
}

// Read decodes the record at offsetInRegion.
func (r Region) Read(offsetInRegion int) (fieldlist.FieldList, error) {
	usable := r.usable()
	if offsetInRegion < 0 || offsetInRegion >= len(usable) {
		return fieldlist.FieldList{}, fmt.Errorf("region: offset %d out of bounds: %w", offsetInRegion, errs.ErrPrecondition)
	}

	fl, _, err := fieldlist.Load(usable[offsetInRegion:])

	return fl, err
}

// Rewrite overwrites the record at offsetInRegion with fl in place. The
// caller must have already verified fl.EncodedLen() does not exceed the
// existing on-disk record length at that offset.
func (r Region) Rewrite(offsetInRegion int, fl fieldlist.FieldList) error {
	usable := r.usable()
	if offsetInRegion < 0 || offsetInRegion >= len(usable) {
		return fmt.Errorf("region: offset %d out of bounds: %w", offsetInRegion, errs.ErrPrecondition)
	}

	n, err := fl.EncodedLen()
	if err != nil {
		return err
	}

	_, err = fl.Store(usable[offsetInRegion : offsetInRegion+n])

	return err
}

// ExistingLen reads the on-disk length of the record at offsetInRegion
// without decoding its fields, for callers deciding rewrite vs relocate.
func (r Region) ExistingLen(offsetInRegion int) (int, error) {
	usable := r.usable()
	if offsetInRegion < 0 || offsetInRegion+layout.FieldListHeaderSize > len(usable) {
		return 0, fmt.Errorf("region: offset %d out of bounds: %w", offsetInRegion, errs.ErrPrecondition)
	}

	hdr := usable[offsetInRegion : offsetInRegion+layout.FieldListHeaderSize]

	magic := binary.BigEndian.Uint32(hdr[0:4])
	if magic != layout.FieldListMagic {
		return 0, fmt.Errorf("region: bad record magic 0x%08x: %w", magic, errs.ErrCorruptRecord)
	}

	length := int(binary.BigEndian.Uint16(hdr[4:6]))
	if length == 0 {
		return 0, errs.ErrRecordDeleted
	}

	return length, nil
}

// Delete tombstones the record at offsetInRegion and frees its extent.
func (r Region) Delete(offsetInRegion int) error {
	usable := r.usable()
	if offsetInRegion < 0 || offsetInRegion >= len(usable) {
		return fmt.Errorf("region: offset %d out of bounds: %w", offsetInRegion, errs.ErrPrecondition)
	}

	oldLen, err := fieldlist.Tombstone(usable[offsetInRegion:])
	if err != nil {
		return err
	}

	fmes := loadFMEs(r.header())

	if err := free(&fmes, uint16(offsetInRegion), uint16(oldLen)); err != nil { //nolint:gosec // bounded by RegionUsableSize
		return err
	}

	return storeFMEs(r.header(), fmes)
}

// FreeBytes sums the lengths of every non-empty FSM entry, for tests and
// for the table's region-summary maintenance.
func (r Region) FreeBytes() int {
	fmes := loadFMEs(r.header())

	total := 0
	for _, e := range fmes {
		total += int(e.length)
	}

	return total
}
