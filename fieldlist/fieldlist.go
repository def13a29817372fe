// Package fieldlist implements the field-list codec: a length-prefixed,
// magic-tagged record holding an ordered sequence of fields, with
// in-place "merge update" and "tombstone" mutations (spec.md §4.2).
package fieldlist

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/go-fstable/fstable/errs"
	"github.com/go-fstable/fstable/field"
	"github.com/go-fstable/fstable/internal/layout"
)

// FieldList is an ordered, key-sorted sequence of fields, ready to be
// stored or already loaded from a region's usable area. New stamps every
// field with one timestamp; Merge restamps only the incoming fields, so
// a merged list can carry more than one timestamp.
type FieldList struct {
	Fields []field.Field
}

// New builds a FieldList from fields, sorting them by key ascending and
// stamping every field with a freshly computed timestamp.
//
// fields must be non-empty; an empty list is a precondition violation.
func New(fields []field.Field) (FieldList, error) {
	if len(fields) == 0 {
		return FieldList{}, fmt.Errorf("fieldlist: field list must be non-empty: %w", errs.ErrPrecondition)
	}

	cp := make([]field.Field, len(fields))
	copy(cp, fields)
	sortByKey(cp)

	ts := computeTS()
	for i := range cp {
		cp[i].TS = ts
	}

	fl := FieldList{Fields: cp}
	if _, err := fl.EncodedLen(); err != nil {
		return FieldList{}, err
	}

	return fl, nil
}

func sortByKey(fields []field.Field) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Key < fields[j].Key
	})
}

// EncodedLen returns the total number of bytes Store would write,
// header included.
func (fl FieldList) EncodedLen() (int, error) {
	total := layout.FieldListHeaderSize

	for _, f := range fl.Fields {
		n, err := field.EncodedLen(f)
		if err != nil {
			return 0, err
		}
		total += n
	}

	return total, nil
}

// Merge performs a right-biased merge of incoming into fl and returns the
// result; fl is left unmodified.
//
// Incoming fields are stamped with a single fresh timestamp before
// merging. A field already present in fl under the same key is replaced
// outright (type, value and timestamp all come from incoming); a field
// present in fl but absent from incoming keeps its existing value and
// timestamp untouched — see SPEC_FULL.md for why this follows the
// original source over a literal reading of the field-list invariant
// that every field shares one timestamp.
func (fl FieldList) Merge(incoming FieldList) FieldList {
	merged := make([]field.Field, len(fl.Fields))
	copy(merged, fl.Fields)

	ts := computeTS()

	for _, inf := range incoming.Fields {
		inf.TS = ts

		idx := indexOfKey(merged, inf.Key)
		if idx >= 0 {
			merged[idx] = inf
		} else {
			merged = append(merged, inf)
		}
	}

	sortByKey(merged)

	return FieldList{Fields: merged}
}

func indexOfKey(fields []field.Field, key uint16) int {
	for i, f := range fields {
		if f.Key == key {
			return i
		}
	}

	return -1
}

// Store encodes fl into dst, which must be at least EncodedLen() bytes
// long, and returns the number of bytes written.
//
// The header's length field is set to the exact byte count written, so
// a subsequent Load or Tombstone against the same offset knows precisely
// where the record ends.
func (fl FieldList) Store(dst []byte) (int, error) {
	n, err := fl.EncodedLen()
	if err != nil {
		return 0, err
	}

	if len(dst) < n {
		return 0, fmt.Errorf("fieldlist: destination has %d bytes, need %d: %w", len(dst), n, errs.ErrPrecondition)
	}

	buf := dst[:0]

	var hdr [layout.FieldListHeaderSize]byte
	binary.BigEndian.PutUint32(hdr[0:4], layout.FieldListMagic)
	binary.BigEndian.PutUint16(hdr[4:6], uint16(n)) //nolint:gosec // n bounded by RegionUsableSize
	binary.BigEndian.PutUint16(hdr[6:8], 0)
	buf = append(buf, hdr[:]...)

	for _, f := range fl.Fields {
		buf, err = field.AppendEncode(buf, f)
		if err != nil {
			return 0, err
		}
	}

	if len(buf) != n {
		return 0, fmt.Errorf("fieldlist: encoded %d bytes, expected %d", len(buf), n)
	}

	return n, nil
}

// Load decodes a field-list record starting at the beginning of src,
// which must extend at least to the end of the record (e.g. the rest of
// a region's usable area). It returns the decoded FieldList and the
// on-disk length of the record, as recorded in its header.
//
// Load fails with errs.ErrCorruptRecord if the magic is wrong or the
// field decoder desynchronizes, and with errs.ErrRecordDeleted if the
// header is a tombstone.
func Load(src []byte) (FieldList, int, error) {
	if len(src) < layout.FieldListHeaderSize {
		return FieldList{}, 0, fmt.Errorf("fieldlist: header truncated: %w", errs.ErrCorruptRecord)
	}

	magic := binary.BigEndian.Uint32(src[0:4])
	if magic != layout.FieldListMagic {
		return FieldList{}, 0, fmt.Errorf("fieldlist: bad magic 0x%08x: %w", magic, errs.ErrCorruptRecord)
	}

	length := int(binary.BigEndian.Uint16(src[4:6]))
	if length == 0 {
		return FieldList{}, 0, errs.ErrRecordDeleted
	}

	if len(src) < length {
		return FieldList{}, 0, fmt.Errorf("fieldlist: record length %d exceeds available %d: %w", length, len(src), errs.ErrCorruptRecord)
	}

	payload := src[layout.FieldListHeaderSize:length]

	var fields []field.Field
	for len(payload) > 0 {
		f, n, err := field.Decode(payload)
		if err != nil {
			return FieldList{}, 0, fmt.Errorf("fieldlist: desynchronized decoding fields: %w", errs.ErrCorruptRecord)
		}

		fields = append(fields, f)
		payload = payload[n:]
	}

	return FieldList{Fields: fields}, length, nil
}

// Tombstone marks the record starting at the beginning of dst as
// deleted by zeroing its header's length field, and returns the
// record's previous on-disk length so the caller's free-space manager
// can release the extent.
//
// Tombstoning an already-deleted record fails with errs.ErrRecordDeleted
// rather than double-freeing the extent.
func Tombstone(dst []byte) (int, error) {
	if len(dst) < layout.FieldListHeaderSize {
		return 0, fmt.Errorf("fieldlist: header truncated: %w", errs.ErrCorruptRecord)
	}

	magic := binary.BigEndian.Uint32(dst[0:4])
	if magic != layout.FieldListMagic {
		return 0, fmt.Errorf("fieldlist: bad magic 0x%08x: %w", magic, errs.ErrCorruptRecord)
	}

	length := int(binary.BigEndian.Uint16(dst[4:6]))
	if length == 0 {
		return 0, errs.ErrRecordDeleted
	}

	binary.BigEndian.PutUint16(dst[4:6], 0)
	dst[6], dst[7] = 0, 0

	return length, nil
}
