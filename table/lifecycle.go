package table

import (
	"encoding/binary"
	"fmt"

	"github.com/go-fstable/fstable/errs"
	"github.com/go-fstable/fstable/internal/layout"
	"github.com/go-fstable/fstable/internal/mmapfile"
	"github.com/go-fstable/fstable/internal/options"
	"github.com/go-fstable/fstable/region"
)

// Create creates a new table file at path, sized and zero-filled per the
// file format, writes the table magic, and initializes every region's
// free-space map to its single-entry starting state.
func Create(path string, opts ...Option) (*Table, error) {
	f, err := mmapfile.Create(path, layout.TableSize)
	if err != nil {
		return nil, err
	}

	t := &Table{file: f, log: defaultLogger()}
	if err := options.Apply(t, opts...); err != nil {
		_ = f.Close()

		return nil, err
	}

	binary.BigEndian.PutUint32(f.Data[layout.TableMagicOffset:layout.TableMagicOffset+4], layout.TableMagic)

	for i := 0; i < layout.NumRegions; i++ {
		r := region.New(t.regionImage(i), i)
		if err := r.Init(); err != nil {
			_ = f.Close()

			return nil, fmt.Errorf("table: initializing region %d: %w", i, err)
		}
	}

	return t, nil
}

// Open maps an existing table file at path and validates its magic.
func Open(path string, opts ...Option) (*Table, error) {
	f, err := mmapfile.Open(path, layout.TableSize)
	if err != nil {
		return nil, err
	}

	magic := binary.BigEndian.Uint32(f.Data[layout.TableMagicOffset : layout.TableMagicOffset+4])
	if magic != layout.TableMagic {
		_ = f.Close()

		return nil, fmt.Errorf("table: magic 0x%08x, want 0x%08x: %w", magic, layout.TableMagic, errs.ErrCorruptTable)
	}

	t := &Table{file: f, log: defaultLogger()}
	if err := options.Apply(t, opts...); err != nil {
		_ = f.Close()

		return nil, err
	}

	return t, nil
}

// Close unmaps the file and closes the underlying descriptor. Operations
// on a closed Table fail with errs.ErrPrecondition.
func (t *Table) Close() error {
	if t.closed {
		return fmt.Errorf("table: already closed: %w", errs.ErrPrecondition)
	}

	t.closed = true

	return t.file.Close()
}
