package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seqs(entries []replayEntry) []int64 {
	out := make([]int64, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Seq)
	}
	return out
}

func TestReplayBuffer_PartialFillSkipsUnusedSlots(t *testing.T) {
	rb := NewReplayBuffer(8)
	rb.Push(1, []byte(`{"a":1}`))
	rb.Push(2, []byte(`{"a":2}`))
	rb.Push(3, []byte(`{"a":3}`))

	assert.Equal(t, 3, rb.Len())
	// a range starting at 0 would match the zero-seq slots if they leaked
	assert.Equal(t, []int64{1, 2, 3}, seqs(rb.Range(0, 100)))
	assert.Equal(t, []int64{2}, seqs(rb.Range(2, 2)))
	assert.Empty(t, rb.Range(4, 10))
}

func TestReplayBuffer_LenCappedAfterWrap(t *testing.T) {
	rb := NewReplayBuffer(4)
	for i := int64(1); i <= 11; i++ {
		rb.Push(i, []byte("x"))
		want := int(i)
		if want > 4 {
			want = 4
		}
		require.Equal(t, want, rb.Len(), "after push %d", i)
	}
	assert.Equal(t, []int64{8, 9, 10, 11}, seqs(rb.Range(0, 100)))
	assert.Equal(t, []int64{9, 10}, seqs(rb.Range(9, 10)))
}

func TestReplayBuffer_DefaultCapacity(t *testing.T) {
	for _, capacity := range []int{0, -3} {
		rb := NewReplayBuffer(capacity)
		require.Equal(t, 500, rb.window.Len(), "capacity %d", capacity)
		for i := int64(1); i <= 501; i++ {
			rb.Push(i, nil)
		}
		assert.Equal(t, 500, rb.Len())
		got := rb.Range(1, 1)
		assert.Empty(t, got, "seq 1 should have been evicted")
	}
}

func TestReplayBuffer_PushCopiesData(t *testing.T) {
	rb := NewReplayBuffer(2)
	buf := []byte("abc")
	rb.Push(1, buf)
	buf[0] = 'z'

	got := rb.Range(1, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "abc", string(got[0].Data))
}
