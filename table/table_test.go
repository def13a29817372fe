package table

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-fstable/fstable/errs"
	"github.com/go-fstable/fstable/field"
	"github.com/go-fstable/fstable/fieldlist"
	"github.com/go-fstable/fstable/internal/layout"
	"github.com/go-fstable/fstable/region"
)

func createTempTable(t *testing.T) *Table {
	t.Helper()

	path := filepath.Join(t.TempDir(), "table.db")

	tbl, err := Create(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tbl.Close() })

	return tbl
}

func buildFieldList(t *testing.T, fields ...field.Field) fieldlist.FieldList {
	t.Helper()

	fl, err := fieldlist.New(fields)
	require.NoError(t, err)

	return fl
}

func TestCreateWritesMagicAndInitialFSM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.db")

	tbl, err := Create(path)
	require.NoError(t, err)
	defer tbl.Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(layout.TableSize), info.Size())
	require.Equal(t, []byte{0xDB, 0x48, 0xBE, 0xEF}, tbl.file.Data[layout.TableMagicOffset:layout.TableMagicOffset+4])

	r := region.New(tbl.regionImage(0), 0)
	require.Equal(t, layout.RegionUsableSize, r.FreeBytes())
}

func TestOpenRejectsBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.db")

	tbl, err := Create(path)
	require.NoError(t, err)
	tbl.file.Data[0] = 0x00
	require.NoError(t, tbl.Close())

	_, err = Open(path)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrCorruptTable))
}

func TestInsertAndLookupRoundTrip(t *testing.T) {
	tbl := createTempTable(t)

	fl := buildFieldList(t, field.NewInt(0, 42), field.NewBytes(1, []byte("Hello, World!")))

	addr, err := tbl.Insert(fl)
	require.NoError(t, err)
	require.Equal(t, uint64(0), addr)

	got, err := tbl.Lookup(addr)
	require.NoError(t, err)
	require.Equal(t, uint32(42), got.Fields[0].Int)
	require.Equal(t, []byte("Hello, World!"), got.Fields[1].Bytes)
}

func TestThreeInsertsAscendingAddressesReverseLookup(t *testing.T) {
	tbl := createTempTable(t)

	var addrs []uint64
	for i := 0; i < 3; i++ {
		fl := buildFieldList(t, field.NewBytes(0, []byte("Hello "+string(rune('0'+i)))))
		addr, err := tbl.Insert(fl)
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}

	require.Less(t, addrs[0], addrs[1])
	require.Less(t, addrs[1], addrs[2])

	for i := 2; i >= 0; i-- {
		fl, err := tbl.Lookup(addrs[i])
		require.NoError(t, err)
		require.Equal(t, []byte("Hello "+string(rune('0'+i))), fl.Fields[0].Bytes)
	}
}

func TestUpdateSameSizeRewritesInPlace(t *testing.T) {
	tbl := createTempTable(t)

	fl := buildFieldList(t, field.NewBytes(0, []byte("aaaa")))
	addr, err := tbl.Insert(fl)
	require.NoError(t, err)

	replacement := buildFieldList(t, field.NewBytes(0, []byte("bbbb")))

	newAddr, err := tbl.Update(addr, replacement)
	require.NoError(t, err)
	require.Equal(t, addr, newAddr)

	got, err := tbl.Lookup(addr)
	require.NoError(t, err)
	require.Equal(t, []byte("bbbb"), got.Fields[0].Bytes)
}

func TestUpdateWithGrowthRelocates(t *testing.T) {
	tbl := createTempTable(t)

	var addrs []uint64
	for i := 0; i < 3; i++ {
		fl := buildFieldList(t, field.NewBytes(0, []byte("Hello "+string(rune('0'+i)))))
		addr, err := tbl.Insert(fl)
		require.NoError(t, err)
		addrs = append(addrs, addr)
	}

	grown := buildFieldList(t, field.NewBytes(0, []byte("a much longer replacement value than before")))

	newAddr, err := tbl.Update(addrs[0], grown)
	require.NoError(t, err)
	require.NotEqual(t, addrs[0], newAddr)
	require.Greater(t, newAddr, addrs[2])

	_, err = tbl.Lookup(addrs[0])
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrRecordDeleted))

	got, err := tbl.Lookup(newAddr)
	require.NoError(t, err)
	require.Equal(t, []byte("a much longer replacement value than before"), got.Fields[0].Bytes)
}

func TestDeleteAllThenReinsertSumOfSizes(t *testing.T) {
	tbl := createTempTable(t)

	var addrs []uint64
	var total int
	for i := 0; i < 3; i++ {
		fl := buildFieldList(t, field.NewBytes(0, []byte("Hello "+string(rune('0'+i)))))
		addr, err := tbl.Insert(fl)
		require.NoError(t, err)
		addrs = append(addrs, addr)

		n, err := fl.EncodedLen()
		require.NoError(t, err)
		total += n
	}

	for _, addr := range addrs {
		require.NoError(t, tbl.Delete(addr))
	}

	for _, addr := range addrs {
		_, err := tbl.Lookup(addr)
		require.Error(t, err)
		require.True(t, errors.Is(err, errs.ErrRecordDeleted))
	}

	payload := make([]byte, total-layout.FieldListHeaderSize-layout.FieldHeaderSize-2)
	fl := buildFieldList(t, field.NewBytes(0, payload))

	addr, err := tbl.Insert(fl)
	require.NoError(t, err)
	require.Equal(t, uint64(0), addr)
}

func TestInsertExceedingRegionSizeFailsNoSpace(t *testing.T) {
	tbl := createTempTable(t)

	fl := buildFieldList(t, field.NewBytes(0, make([]byte, layout.RegionUsableSize)))

	_, err := tbl.Insert(fl)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrNoSpace))
}

func TestDeleteTwiceFailsWithoutDoubleFree(t *testing.T) {
	tbl := createTempTable(t)

	fl := buildFieldList(t, field.NewInt(0, 1))
	addr, err := tbl.Insert(fl)
	require.NoError(t, err)

	require.NoError(t, tbl.Delete(addr))

	err = tbl.Delete(addr)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrRecordDeleted))
}

func TestOperationsOnClosedTableFailPrecondition(t *testing.T) {
	path := filepath.Join(t.TempDir(), "table.db")

	tbl, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, tbl.Close())

	_, err = tbl.Insert(buildFieldList(t, field.NewInt(0, 1)))
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrPrecondition))

	err = tbl.Close()
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrPrecondition))
}
