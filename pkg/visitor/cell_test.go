package visitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lk2023060901/danmu-visitor/pkg/util/merr"
)

func TestCellRoundTrip(t *testing.T) {
	cell := NewCell(uint32(11))
	r := roundTrip(t, func(v *Visitor) error {
		return VisitCell(v, "Cell", cell, VisitValue[uint32])
	})
	out := NewCell(uint32(0))
	require.NoError(t, VisitCell(r, "Cell", out, VisitValue[uint32]))
	assert.Equal(t, uint32(11), out.Get())

	out.Set(3)
	assert.Equal(t, uint32(3), out.Get())
}

func TestRefCellAlreadyBorrowed(t *testing.T) {
	cell := NewRefCell(int64(5))
	_, release, ok := cell.TryBorrowMut()
	require.True(t, ok)

	err := VisitRefCell(New(), "Cell", cell, VisitValue[int64])
	assert.ErrorIs(t, err, merr.ErrRefCellAlreadyMutableBorrowed)
	assert.Equal(t, merr.ContentionError, merr.GetErrorType(err))

	release()
	r := roundTrip(t, func(v *Visitor) error {
		return VisitRefCell(v, "Cell", cell, VisitValue[int64])
	})
	out := NewRefCell(int64(0))
	require.NoError(t, VisitRefCell(r, "Cell", out, VisitValue[int64]))
	value, release, ok := out.TryBorrowMut()
	require.True(t, ok)
	assert.Equal(t, int64(5), *value)
	release()
}

func TestMutexRoundTrip(t *testing.T) {
	m := NewMutex(float32(2.5))
	r := roundTrip(t, func(v *Visitor) error {
		return VisitMutex(v, "Mutex", m, VisitValue[float32])
	})
	out := NewMutex(float32(0))
	require.NoError(t, VisitMutex(r, "Mutex", out, VisitValue[float32]))
	require.NoError(t, out.With(func(value *float32) error {
		assert.Equal(t, float32(2.5), *value)
		return nil
	}))
}

func TestMutexPoisoned(t *testing.T) {
	m := NewMutex(uint8(1))
	assert.Panics(t, func() {
		_ = m.With(func(*uint8) error { panic("boom") })
	})
	assert.True(t, m.IsPoisoned())

	err := VisitMutex(New(), "Mutex", m, VisitValue[uint8])
	assert.ErrorIs(t, err, merr.ErrPoisonedMutex)
	assert.Contains(t, err.Error(), "Mutex")
}

func TestRwLock(t *testing.T) {
	l := NewRwLock(int16(-4))
	r := roundTrip(t, func(v *Visitor) error {
		return VisitRwLock(v, "Lock", l, VisitValue[int16])
	})
	out := NewRwLock(int16(0))
	require.NoError(t, VisitRwLock(r, "Lock", out, VisitValue[int16]))
	require.NoError(t, out.Read(func(value *int16) error {
		assert.Equal(t, int16(-4), *value)
		return nil
	}))

	assert.Panics(t, func() {
		_ = out.Write(func(*int16) error { panic("boom") })
	})
	assert.ErrorIs(t, VisitRwLock(New(), "Lock", out, VisitValue[int16]), merr.ErrPoisonedMutex)
	assert.ErrorIs(t, out.Read(func(*int16) error { return nil }), merr.ErrPoisonedMutex)
}
