// Package layout defines the physical, byte-for-byte structure of an
// fstable file: sizes, magic numbers and offsets shared by every other
// package in this module.
//
// No other package should hard-code one of these numbers; they exist
// here once so the on-disk format has a single source of truth.
package layout

const (
	// TableMagic is the big-endian uint32 magic at offset 0 of the file.
	TableMagic uint32 = 0xDB48BEEF

	// NumRegions is the number of fixed-size regions in a table.
	NumRegions = 1024

	// RegionSize is the total size in bytes of one region, header included.
	RegionSize = 65536

	// TableHeaderSize is the size of the table header: a 4 KiB fixed
	// header followed by the NumRegions-byte region-summary array.
	TableHeaderSize = 4096 + NumRegions

	// TableSize is the total size of the file: header plus every region.
	//
	// Computed from the formula in spec.md §3, not the literal total
	// quoted in spec.md §6 — see SPEC_FULL.md for why the two disagree.
	TableSize = TableHeaderSize + NumRegions*RegionSize

	// TableMagicOffset is the byte offset of the table magic.
	TableMagicOffset = 0
	// TableChecksumOffset is the byte offset of the reserved checksum.
	TableChecksumOffset = 4
	// TableRegionSummaryOffset is the byte offset of the region-summary array.
	TableRegionSummaryOffset = 4096

	// NumFMEs is the number of free-map entries in a region's FSM.
	NumFMEs = 1024
	// FMESize is the encoded size, in bytes, of a single free-map entry.
	FMESize = 4
	// RegionHeaderSize is the size of a region's FSM header.
	RegionHeaderSize = NumFMEs * FMESize
	// RegionUsableSize is the usable area of a region, after its FSM header.
	RegionUsableSize = RegionSize - RegionHeaderSize

	// FieldListMagic is the big-endian uint32 magic at the start of a
	// stored field-list record.
	FieldListMagic uint32 = 0x000FF537
	// FieldListHeaderSize is the size of a field-list record's header.
	FieldListHeaderSize = 8

	// FieldMagic is the single-byte magic at the start of an encoded field.
	FieldMagic uint8 = 0x48
	// FieldHeaderSize is the size of a field's fixed header.
	FieldHeaderSize = 8

	// TimestampEpoch is the Unix-seconds offset subtracted before scaling
	// to milliseconds, chosen so the result fits a uint32 millisecond
	// counter for roughly 49 days past 2013-03-31 (spec.md §3).
	TimestampEpoch int64 = 1364768380
)
