package podlog

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLineBufferDrain(t *testing.T) {
	var b lineBuffer
	require.Empty(t, b.Drain())

	b.Append("one")
	b.Append("two")
	require.Equal(t, 2, b.Len())
	require.Equal(t, []string{"one", "two"}, b.Drain())
	require.Empty(t, b.Drain(), "second drain returns nothing new")

	b.Append("three")
	require.Equal(t, []string{"three"}, b.Drain())
}

func TestLineBufferConcurrentWritersKeepPerWriterOrder(t *testing.T) {
	var b lineBuffer
	const writers, perWriter = 4, 200
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				b.Append(fmt.Sprintf("w%d %d", w, i))
			}
		}()
	}

	var drained []string
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
loop:
	for {
		select {
		case <-done:
			break loop
		default:
			drained = append(drained, b.Drain()...)
		}
	}
	drained = append(drained, b.Drain()...)
	require.Len(t, drained, writers*perWriter)

	next := make([]int, writers)
	for _, line := range drained {
		var w, i int
		_, err := fmt.Sscanf(line, "w%d %d", &w, &i)
		require.NoError(t, err)
		require.Equalf(t, next[w], i, "writer %d out of order", w)
		next[w]++
	}
}
