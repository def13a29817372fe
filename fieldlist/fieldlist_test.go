package fieldlist

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/go-fstable/fstable/errs"
	"github.com/go-fstable/fstable/field"
)

func withFixedClock(t *testing.T, at time.Time) {
	t.Helper()

	prev := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = prev })
}

func TestNewSortsAndStampsFields(t *testing.T) {
	withFixedClock(t, time.Unix(1364768380, 0))

	fl, err := New([]field.Field{
		field.NewInt(5, 1),
		field.NewInt(1, 2),
		field.NewBytes(3, []byte("x")),
	})
	require.NoError(t, err)

	require.Len(t, fl.Fields, 3)
	require.Equal(t, []uint16{1, 3, 5}, []uint16{fl.Fields[0].Key, fl.Fields[1].Key, fl.Fields[2].Key})

	for _, f := range fl.Fields {
		require.Equal(t, uint32(0), f.TS)
	}
}

func TestNewRejectsEmpty(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrPrecondition))
}

func TestStoreLoadRoundTrip(t *testing.T) {
	withFixedClock(t, time.Unix(1364768381, 0))

	fl, err := New([]field.Field{
		field.NewInt(0, 7),
		field.NewStr(1, "hello"),
	})
	require.NoError(t, err)

	n, err := fl.EncodedLen()
	require.NoError(t, err)

	buf := make([]byte, n)
	written, err := fl.Store(buf)
	require.NoError(t, err)
	require.Equal(t, n, written)

	loaded, consumed, err := Load(buf)
	require.NoError(t, err)
	require.Equal(t, n, consumed)
	require.Len(t, loaded.Fields, 2)
	require.Equal(t, fl.Fields[0].Key, loaded.Fields[0].Key)
	require.Equal(t, fl.Fields[1].Bytes, loaded.Fields[1].Bytes)
}

func TestStoreRejectsUndersizedBuffer(t *testing.T) {
	fl, err := New([]field.Field{field.NewInt(0, 1)})
	require.NoError(t, err)

	_, err = fl.Store(make([]byte, 4))
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrPrecondition))
}

func TestLoadRejectsBadMagic(t *testing.T) {
	fl, err := New([]field.Field{field.NewInt(0, 1)})
	require.NoError(t, err)

	n, _ := fl.EncodedLen()
	buf := make([]byte, n)
	_, err = fl.Store(buf)
	require.NoError(t, err)

	buf[0] = 0xFF

	_, _, err = Load(buf)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrCorruptRecord))
}

func TestTombstoneThenLoadReportsDeleted(t *testing.T) {
	fl, err := New([]field.Field{field.NewInt(0, 1)})
	require.NoError(t, err)

	n, _ := fl.EncodedLen()
	buf := make([]byte, n)
	_, err = fl.Store(buf)
	require.NoError(t, err)

	oldLen, err := Tombstone(buf)
	require.NoError(t, err)
	require.Equal(t, n, oldLen)

	_, _, err = Load(buf)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrRecordDeleted))
}

func TestTombstoneTwiceFailsWithoutDoubleFree(t *testing.T) {
	fl, err := New([]field.Field{field.NewInt(0, 1)})
	require.NoError(t, err)

	n, _ := fl.EncodedLen()
	buf := make([]byte, n)
	_, err = fl.Store(buf)
	require.NoError(t, err)

	_, err = Tombstone(buf)
	require.NoError(t, err)

	_, err = Tombstone(buf)
	require.Error(t, err)
	require.True(t, errors.Is(err, errs.ErrRecordDeleted))
}

func TestMergeReplacesMatchingKeysAndKeepsOthers(t *testing.T) {
	withFixedClock(t, time.Unix(1364768380, 0))
	original, err := New([]field.Field{
		field.NewInt(0, 1),
		field.NewStr(1, "keep me"),
	})
	require.NoError(t, err)

	withFixedClock(t, time.Unix(1364768390, 0))
	incoming, err := New([]field.Field{
		field.NewInt(0, 99),
	})
	require.NoError(t, err)

	merged := original.Merge(incoming)
	require.Len(t, merged.Fields, 2)

	require.Equal(t, uint16(0), merged.Fields[0].Key)
	require.Equal(t, uint32(99), merged.Fields[0].Int)
	require.Equal(t, uint32(10000), merged.Fields[0].TS)

	require.Equal(t, uint16(1), merged.Fields[1].Key)
	require.Equal(t, "keep me", string(merged.Fields[1].Bytes))
	require.Equal(t, uint32(0), merged.Fields[1].TS)

	require.Len(t, original.Fields, 2)
}

func TestMergeAppendsNewKeys(t *testing.T) {
	original, err := New([]field.Field{field.NewInt(0, 1)})
	require.NoError(t, err)

	incoming, err := New([]field.Field{field.NewInt(5, 2)})
	require.NoError(t, err)

	merged := original.Merge(incoming)
	require.Len(t, merged.Fields, 2)
	require.Equal(t, uint16(0), merged.Fields[0].Key)
	require.Equal(t, uint16(5), merged.Fields[1].Key)
}
