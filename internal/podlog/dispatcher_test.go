package podlog

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"
)

func TestDispatcherSkipsEmptyTicks(t *testing.T) {
	out := make(chan Event, 4)
	d := &dispatcher{buf: &lineBuffer{}, out: out, interval: time.Millisecond, log: logr.Discard()}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, d.Run(ctx))
	require.Empty(t, out)
}

func TestDispatcherDeliversBatchesInOrder(t *testing.T) {
	out := make(chan Event, 16)
	buf := &lineBuffer{}
	d := &dispatcher{buf: buf, out: out, interval: 2 * time.Millisecond, log: logr.Discard()}
	buf.Append("a")
	buf.Append("b")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	first := <-out
	require.Equal(t, []string{"a", "b"}, first.Lines)
	require.NoError(t, first.Err)

	buf.Append("c")
	second := <-out
	require.Equal(t, []string{"c"}, second.Lines)

	cancel()
	require.NoError(t, <-done)
}

func TestDispatcherFlushesOnShutdown(t *testing.T) {
	out := make(chan Event, 1)
	buf := &lineBuffer{}
	// The ticker never fires, so only the shutdown flush can deliver.
	d := &dispatcher{buf: buf, out: out, interval: time.Hour, log: logr.Discard()}
	buf.Append("last words")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, d.Run(ctx))
	ev := <-out
	require.Equal(t, []string{"last words"}, ev.Lines)
}

func TestDispatcherKeepsBatchLostToCancellation(t *testing.T) {
	out := make(chan Event)
	buf := &lineBuffer{}
	d := &dispatcher{buf: buf, out: out, interval: time.Second, log: logr.Discard()}
	buf.Append("a")
	buf.Append("b")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Nobody is receiving, so the cancelled context wins.
	pending := d.flush(ctx)
	require.Equal(t, []string{"a", "b"}, pending)
	require.Zero(t, buf.Len())

	buf.Append("c")
	got := make(chan Event, 1)
	go func() { got <- <-out }()
	d.finalFlush(pending)
	require.Equal(t, []string{"a", "b", "c"}, (<-got).Lines)
}
