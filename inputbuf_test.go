package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInputRingPushConsume(t *testing.T) {
	var r inputRing
	require.Equal(t, inputRingSize, r.Room())

	n := r.Push([]byte("hello"))
	require.Equal(t, 5, n)
	require.Equal(t, 5, r.Len())
	require.Equal(t, "hello", string(r.Bytes()))

	r.Consume(2)
	require.Equal(t, 3, r.Len())
	require.Equal(t, "llo", string(r.Bytes()))
}

func TestInputRingWrapsAround(t *testing.T) {
	var r inputRing

	// Fill to near capacity, drain most of it so head advances close to the
	// end of the backing array, then push enough to force the tail to wrap.
	r.Push(make([]byte, inputRingSize-4))
	r.Consume(inputRingSize - 8)
	require.Equal(t, 4, r.Len())

	r.Push([]byte("abcdefgh"))
	require.Equal(t, 12, r.Len())

	got := r.Bytes()
	require.Len(t, got, 12)
	require.Equal(t, "abcdefgh", string(got[4:]))
}

func TestInputRingFullRejectsExcess(t *testing.T) {
	var r inputRing
	n := r.Push(make([]byte, inputRingSize+10))
	require.Equal(t, inputRingSize, n)
	require.Equal(t, 0, r.Room())
}
