// Package table owns the table's mapped file image, dispatches
// record-address operations to the owning region, and selects a region
// for new inserts via the region-summary array.
package table

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/go-fstable/fstable/errs"
	"github.com/go-fstable/fstable/fieldlist"
	"github.com/go-fstable/fstable/internal/layout"
	"github.com/go-fstable/fstable/internal/mmapfile"
	"github.com/go-fstable/fstable/region"
)

// Table is a file-backed, memory-mapped record store.
type Table struct {
	file   *mmapfile.File
	log    logrus.FieldLogger
	closed bool
}

func (t *Table) checkOpen() error {
	if t.closed {
		return fmt.Errorf("table: operation on closed table: %w", errs.ErrPrecondition)
	}

	return nil
}

func (t *Table) regionImage(idx int) []byte {
	start := layout.TableHeaderSize + idx*layout.RegionSize

	return t.file.Data[start : start+layout.RegionSize]
}

func (t *Table) summary() []byte {
	return t.file.Data[layout.TableRegionSummaryOffset : layout.TableRegionSummaryOffset+layout.NumRegions]
}

// splitAddr decodes a record address into its region index and the byte
// offset within that region's usable area, validating bounds.
func splitAddr(addr uint64) (int, int, error) {
	idx := int(addr / uint64(layout.RegionUsableSize))
	off := int(addr % uint64(layout.RegionUsableSize))

	if idx < 0 || idx >= layout.NumRegions {
		return 0, 0, fmt.Errorf("table: address %d resolves to out-of-range region %d: %w", addr, idx, errs.ErrPrecondition)
	}

	return idx, off, nil
}

// updateSummary recomputes region idx's percent-full hint from its FSM
// and writes it into the region-summary array.
func (t *Table) updateSummary(idx int) {
	r := region.New(t.regionImage(idx), idx)

	free := r.FreeBytes()
	percentFull := 100 - free*100/layout.RegionUsableSize

	switch {
	case percentFull < 0:
		percentFull = 0
	case percentFull > 100:
		percentFull = 100
	}

	t.summary()[idx] = byte(percentFull)
}

// candidateRegions returns region indices, ascending, whose summary hint
// suggests they have room for space bytes and are not past the 95%
// threshold (spec.md §4.4.1).
func (t *Table) candidateRegions(space int) []int {
	summary := t.summary()

	var candidates []int

	for i := 0; i < layout.NumRegions; i++ {
		percentFull := int(summary[i])
		freeEstimate := layout.RegionUsableSize * (100 - percentFull) / 100

		if freeEstimate >= space && percentFull <= 95 {
			candidates = append(candidates, i)
		}
	}

	return candidates
}

func (t *Table) insertInto(idx int, fl fieldlist.FieldList) (uint64, error) {
	r := region.New(t.regionImage(idx), idx)

	addr, err := r.Insert(fl)
	if err != nil {
		return 0, err
	}

	t.updateSummary(idx)

	return addr, nil
}

// Insert stores fl in the lowest-indexed region the summary deems
// likely to have room; if that region's FSM rejects the request despite
// the hint, insert falls through to other regions rather than failing
// outright — the summary is advisory, not authoritative.
func (t *Table) Insert(fl fieldlist.FieldList) (uint64, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}

	space, err := fl.EncodedLen()
	if err != nil {
		return 0, err
	}

	if space > layout.RegionUsableSize {
		return 0, fmt.Errorf("table: record of %d bytes cannot fit in any region: %w", space, errs.ErrNoSpace)
	}

	tried := make(map[int]bool, 4)

	for _, idx := range t.candidateRegions(space) {
		addr, err := t.insertInto(idx, fl)
		tried[idx] = true

		if err == nil {
			return addr, nil
		}

		if !errors.Is(err, errs.ErrNoSpace) && !errors.Is(err, errs.ErrFragmented) {
			return 0, err
		}

		t.log.WithFields(logrus.Fields{"region": idx, "space": space}).Debug("region rejected insert despite summary hint, falling through")
	}

	for idx := 0; idx < layout.NumRegions; idx++ {
		if tried[idx] {
			continue
		}

		addr, err := t.insertInto(idx, fl)
		if err == nil {
			return addr, nil
		}

		if !errors.Is(err, errs.ErrNoSpace) && !errors.Is(err, errs.ErrFragmented) {
			return 0, err
		}
	}

	return 0, fmt.Errorf("table: no region has room for %d bytes: %w", space, errs.ErrNoSpace)
}

// Lookup decodes the record at addr.
func (t *Table) Lookup(addr uint64) (fieldlist.FieldList, error) {
	if err := t.checkOpen(); err != nil {
		return fieldlist.FieldList{}, err
	}

	idx, off, err := splitAddr(addr)
	if err != nil {
		return fieldlist.FieldList{}, err
	}

	r := region.New(t.regionImage(idx), idx)

	return r.Read(off)
}

// Update merges newFields into the record at addr. If the merged
// record's encoded length does not exceed the existing on-disk record's
// length, it is rewritten in place and addr is returned unchanged;
// otherwise the old record is deleted and the merged field-list is
// reinserted, possibly in a different region, and its new address is
// returned.
func (t *Table) Update(addr uint64, newFields fieldlist.FieldList) (uint64, error) {
	if err := t.checkOpen(); err != nil {
		return 0, err
	}

	idx, off, err := splitAddr(addr)
	if err != nil {
		return 0, err
	}

	r := region.New(t.regionImage(idx), idx)

	existing, err := r.Read(off)
	if err != nil {
		return 0, err
	}

	existingLen, err := r.ExistingLen(off)
	if err != nil {
		return 0, err
	}

	merged := existing.Merge(newFields)

	mergedLen, err := merged.EncodedLen()
	if err != nil {
		return 0, err
	}

	if mergedLen <= existingLen {
		if err := r.Rewrite(off, merged); err != nil {
			return 0, err
		}

		return addr, nil
	}

	if err := r.Delete(off); err != nil {
		return 0, err
	}

	t.updateSummary(idx)

	return t.Insert(merged)
}

// Delete tombstones the record at addr and frees its extent.
func (t *Table) Delete(addr uint64) error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	idx, off, err := splitAddr(addr)
	if err != nil {
		return err
	}

	r := region.New(t.regionImage(idx), idx)

	if err := r.Delete(off); err != nil {
		return err
	}

	t.updateSummary(idx)

	return nil
}

// Sync flushes the mapped image to disk.
func (t *Table) Sync() error {
	if err := t.checkOpen(); err != nil {
		return err
	}

	return t.file.Sync()
}
