// Package fstable provides an embedded, single-file, memory-mapped
// record store. A fixed-size file is divided into a header plus a fixed
// number of equal-size regions; each region manages its own free space
// and stores variable-length records called field-lists. The store
// exposes four primitive operations over record addresses: insert,
// lookup, update, delete.
//
// # Basic Usage
//
//	tbl, err := fstable.Create("data.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tbl.Close()
//
//	fl, err := fstable.NewFieldList(
//	    fstable.Int(0, 42),
//	    fstable.Bytes(1, []byte("Hello, World!")),
//	)
//
//	addr, err := tbl.Insert(fl)
//
//	rec, err := tbl.Lookup(addr)
//
// # Package Structure
//
// This package is a convenience wrapper around table, region, fieldlist
// and field. Advanced callers needing direct control over region
// placement or the FSM should use those packages directly.
package fstable

import (
	"github.com/go-fstable/fstable/field"
	"github.com/go-fstable/fstable/fieldlist"
	"github.com/go-fstable/fstable/table"
)

// Table is a file-backed, memory-mapped record store.
type Table = table.Table

// Option configures a Table at Create or Open time.
type Option = table.Option

// WithLogger is re-exported from table for convenience.
var WithLogger = table.WithLogger

// Create creates a new table file at path.
func Create(path string, opts ...Option) (*Table, error) {
	return table.Create(path, opts...)
}

// Open maps an existing table file at path.
func Open(path string, opts ...Option) (*Table, error) {
	return table.Open(path, opts...)
}

// Int constructs an INT field.
func Int(key uint16, value uint32) field.Field {
	return field.NewInt(key, value)
}

// Bytes constructs a BYTES field.
func Bytes(key uint16, value []byte) field.Field {
	return field.NewBytes(key, value)
}

// Str constructs a STR field.
func Str(key uint16, value string) field.Field {
	return field.NewStr(key, value)
}

// NewFieldList builds a field-list from fields, ready to be passed to
// Table.Insert or Table.Update.
func NewFieldList(fields ...field.Field) (fieldlist.FieldList, error) {
	return fieldlist.New(fields)
}
