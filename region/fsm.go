package region

import (
	"encoding/binary"
	"fmt"

	"github.com/go-fstable/fstable/errs"
	"github.com/go-fstable/fstable/internal/layout"
)

// fme is one decoded free-map entry: a (offset, length) pair describing
// a free extent in a region's usable area. An entry with length == 0 is
// "empty" — it holds no extent.
type fme struct {
	offset uint16
	length uint16
}

func (e fme) empty() bool { return e.length == 0 }

// loadFMEs decodes the NUM_FMES entries packed into a region's header.
func loadFMEs(header []byte) [layout.NumFMEs]fme {
	var fmes [layout.NumFMEs]fme

	for i := 0; i < layout.NumFMEs; i++ {
		b := header[i*layout.FMESize : i*layout.FMESize+layout.FMESize]
		fmes[i] = fme{
			offset: binary.BigEndian.Uint16(b[0:2]),
			length: binary.BigEndian.Uint16(b[2:4]),
		}
	}

	return fmes
}

// storeFMEs re-encodes fmes into header, and self-checks by re-reading
// the written bytes back and comparing both offset and length of every
// entry — not length alone, as one source revision did.
func storeFMEs(header []byte, fmes [layout.NumFMEs]fme) error {
	for i, e := range fmes {
		b := header[i*layout.FMESize : i*layout.FMESize+layout.FMESize]
		binary.BigEndian.PutUint16(b[0:2], e.offset)
		binary.BigEndian.PutUint16(b[2:4], e.length)
	}

	for i, e := range fmes {
		b := header[i*layout.FMESize : i*layout.FMESize+layout.FMESize]
		gotOffset := binary.BigEndian.Uint16(b[0:2])
		gotLength := binary.BigEndian.Uint16(b[2:4])

		if gotOffset != e.offset || gotLength != e.length {
			return fmt.Errorf("region: fme[%d] self-check mismatch: wrote (%d,%d), read (%d,%d)", i, e.offset, e.length, gotOffset, gotLength)
		}
	}

	return nil
}

// firstNonEmptyCount returns the number of non-empty entries at the
// front of fmes, relying on invariant 2 (empties are compacted to the
// back) to stop scanning at the first empty slot.
func firstNonEmptyCount(fmes [layout.NumFMEs]fme) int {
	for i, e := range fmes {
		if e.empty() {
			return i
		}
	}

	return len(fmes)
}

// allocate finds the lowest-indexed entry with length >= space, first-fit,
// and returns the offset of the allocated extent within the region's
// usable area.
//
// The entry is shrunk from its low end: the returned offset is the
// entry's offset before shrinking. If shrinking exhausts the entry
// exactly, it is removed and the tail is compacted to keep all empty
// entries at the back (invariant 2).
func allocate(fmes *[layout.NumFMEs]fme, space uint16) (uint16, error) {
	count := firstNonEmptyCount(*fmes)

	for i := 0; i < count; i++ {
		if fmes[i].length < space {
			continue
		}

		off := fmes[i].offset

		if fmes[i].length == space {
			removeEntry(fmes, i, count)
		} else {
			fmes[i].offset += space
			fmes[i].length -= space
		}

		return off, nil
	}

	return 0, errs.ErrNoSpace
}

// removeEntry deletes the entry at index i (within the first count
// non-empty entries), shifting subsequent non-empty entries down and
// appending a fresh empty entry at the end of the live range.
func removeEntry(fmes *[layout.NumFMEs]fme, i, count int) {
	copy(fmes[i:count-1], fmes[i+1:count])
	fmes[count-1] = fme{}
}

// free folds the extent (offset, length) back into fmes, coalescing with
// adjacent non-empty entries, per the free-space manager's merge rules.
func free(fmes *[layout.NumFMEs]fme, offset, length uint16) error {
	newLo, newHi := offset, offset+length

	count := firstNonEmptyCount(*fmes)

	for i := 0; i < count; i++ {
		fmeLo, fmeHi := fmes[i].offset, fmes[i].offset+fmes[i].length

		switch {
		case fmeHi < newLo:
			continue

		case fmeHi == newLo:
			fmes[i].length += length

			if i+1 < count && fmes[i+1].offset == fmes[i].offset+fmes[i].length {
				fmes[i].length += fmes[i+1].length
				removeEntry(fmes, i+1, count)
			}

			return nil

		case fmeLo < newHi && fmeHi > newLo:
			return fmt.Errorf("region: freed extent (%d,%d) overlaps live extent (%d,%d): %w", offset, length, fmes[i].offset, fmes[i].length, errs.ErrCorruptRecord)

		case fmeLo == newHi:
			fmes[i].offset -= length
			fmes[i].length += length

			return nil

		case fmeLo > newHi:
			return insertEntry(fmes, i, count, fme{offset: offset, length: length})
		}
	}

	return insertEntry(fmes, count, count, fme{offset: offset, length: length})
}

// insertEntry inserts e at index i, preserving the sort order of the
// first count non-empty entries, and drops the last empty slot to keep
// the total entry count fixed. Fails with Fragmented if no empty slot
// remains to drop.
func insertEntry(fmes *[layout.NumFMEs]fme, i, count int, e fme) error {
	if count >= layout.NumFMEs {
		return errs.ErrFragmented
	}

	copy(fmes[i+1:count+1], fmes[i:count])
	fmes[i] = e

	return nil
}
