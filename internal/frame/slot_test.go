package frame

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlot_EmptyReturnsNil(t *testing.T) {
	s := NewSlot()
	assert.Nil(t, s.Latest())
}

func TestSlot_LatestWins(t *testing.T) {
	s := NewSlot()

	require.True(t, s.Publish(&Frame{Seq: 1}))
	require.True(t, s.Publish(&Frame{Seq: 2}))
	require.True(t, s.Publish(&Frame{Seq: 3}))

	got := s.Latest()
	require.NotNil(t, got)
	assert.Equal(t, uint64(3), got.Seq)

	st := s.Stats()
	assert.Equal(t, uint64(3), st.Published)
	assert.Equal(t, uint64(2), st.Dropped, "frames 1 and 2 were never read")
	assert.Equal(t, uint64(3), st.LatestSeq)
}

func TestSlot_ReadFrameIsNotCountedAsDropped(t *testing.T) {
	s := NewSlot()

	s.Publish(&Frame{Seq: 1})
	s.Latest()
	s.Publish(&Frame{Seq: 2})

	assert.Equal(t, uint64(0), s.Stats().Dropped)
}

func TestSlot_CloseRejectsPublish(t *testing.T) {
	s := NewSlot()
	s.Publish(&Frame{Seq: 1})

	s.Close()

	assert.True(t, s.Closed())
	assert.False(t, s.Publish(&Frame{Seq: 2}))
	require.NotNil(t, s.Latest())
	assert.Equal(t, uint64(1), s.Latest().Seq)
}

func TestSlot_ConcurrentReadersSeeMonotonicSequence(t *testing.T) {
	s := NewSlot()
	const frames = 2000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := uint64(1); i <= frames; i++ {
			s.Publish(&Frame{Seq: i, Data: []byte{byte(i)}})
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var last uint64
			for i := 0; i < frames; i++ {
				f := s.Latest()
				if f == nil {
					continue
				}
				if f.Seq < last {
					t.Errorf("sequence went backwards: %d after %d", f.Seq, last)
					return
				}
				if len(f.Data) != 1 || f.Data[0] != byte(f.Seq) {
					t.Errorf("frame %d has foreign data", f.Seq)
					return
				}
				last = f.Seq
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, uint64(frames), s.Latest().Seq)
}
