// Package mmapfile owns the OS file descriptor and mmap(2) mapping
// backing a table file.
//
// This is the file-lifecycle collaborator spec.md treats as external to
// the core (create/open semantics, not the record format); it exists so
// table.Table never touches os.File or the unix syscalls directly.
package mmapfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// File is a fixed-size file mapped entirely into memory.
type File struct {
	f    *os.File
	Data []byte
}

// Create creates (or truncates) the file at path to exactly size bytes
// and maps it read/write.
func Create(path string, size int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: create %s: %w", path, err)
	}

	if err := f.Truncate(int64(size)); err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("mmapfile: truncate %s: %w", path, err)
	}

	return mapFile(f, size)
}

// Open maps an existing file at path read/write. The caller is
// responsible for validating its size and contents.
func Open(path string, size int) (*File, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("mmapfile: open %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("mmapfile: stat %s: %w", path, err)
	}

	if info.Size() != int64(size) {
		_ = f.Close()

		return nil, fmt.Errorf("mmapfile: %s has size %d, want %d", path, info.Size(), size)
	}

	return mapFile(f, size)
}

func mapFile(f *os.File, size int) (*File, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = f.Close()

		return nil, fmt.Errorf("mmapfile: mmap %s: %w", f.Name(), err)
	}

	return &File{f: f, Data: data}, nil
}

// Sync flushes the mapping to disk.
func (mf *File) Sync() error {
	if err := unix.Msync(mf.Data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("mmapfile: msync: %w", err)
	}

	return nil
}

// Close unmaps the file and closes the underlying descriptor.
func (mf *File) Close() error {
	var errUnmap, errClose error

	if mf.Data != nil {
		errUnmap = unix.Munmap(mf.Data)
		mf.Data = nil
	}

	errClose = mf.f.Close()

	if errUnmap != nil {
		return fmt.Errorf("mmapfile: munmap: %w", errUnmap)
	}

	if errClose != nil {
		return fmt.Errorf("mmapfile: close: %w", errClose)
	}

	return nil
}
