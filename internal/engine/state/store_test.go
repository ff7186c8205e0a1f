package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStore_InitialValuesAreUnknown(t *testing.T) {
	s := New([]int{1, 4})
	assert.Equal(t, "x", s.Get(0))
	assert.Equal(t, "xxxx", s.Get(1))
	assert.Equal(t, 2, s.Len())
}

func TestStore_SetReturnsPrevious(t *testing.T) {
	s := New([]int{1})
	assert.Equal(t, "x", s.Set(0, "0"))
	assert.Equal(t, "0", s.Set(0, "1"))
	assert.Equal(t, "1", s.Get(0))
}

func TestStore_ViewIsLive(t *testing.T) {
	s := New([]int{1})
	v := s.Current()
	s.Set(0, "1")
	assert.Equal(t, "1", v.Get(0))
	assert.Equal(t, 1, v.Len())

	f := v.Capture()
	s.Set(0, "0")
	assert.Equal(t, "1", f.Get(0))
	assert.Equal(t, "0", v.Get(0))
}

func TestStore_CaptureIsImmutable(t *testing.T) {
	s := New([]int{1, 2})
	s.Set(0, "1")
	s.Set(1, "10")

	f := s.Capture()
	s.Set(0, "0")
	s.Set(1, "zz")

	assert.Equal(t, "1", f.Get(0))
	assert.Equal(t, "10", f.Get(1))
	assert.Equal(t, 2, f.Len())
}
