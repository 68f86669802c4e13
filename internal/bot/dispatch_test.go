package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherLimitsConcurrency(t *testing.T) {
	d := NewDispatcher(2, time.Second)

	var running, peak atomic.Int32
	release := make(chan struct{})
	go func() {
		for running.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		close(release)
	}()

	for range 5 {
		require.True(t, d.Go(t.Context(), func(ctx context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-release
			running.Add(-1)
		}))
	}
	d.Wait()
	assert.EqualValues(t, 2, peak.Load())
}

func TestDispatcherAppliesTimeout(t *testing.T) {
	d := NewDispatcher(1, 20*time.Millisecond)

	done := make(chan error, 1)
	d.Go(t.Context(), func(ctx context.Context) {
		<-ctx.Done()
		done <- ctx.Err()
	})
	d.Wait()
	assert.ErrorIs(t, <-done, context.DeadlineExceeded)
}

func TestDispatcherStopsWhenContextEnds(t *testing.T) {
	d := NewDispatcher(1, time.Second)
	block := make(chan struct{})
	require.True(t, d.Go(t.Context(), func(context.Context) { <-block }))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.False(t, d.Go(ctx, func(context.Context) {}))

	close(block)
	d.Wait()
}

func TestServeHandlesUpdatesUntilClosed(t *testing.T) {
	e := newTestEnv(t)
	updates := make(chan tgbotapi.Update, 2)
	updates <- e.message("/help")
	updates <- e.message("/nope")
	close(updates)

	d := NewDispatcher(1, time.Second)
	e.handler.Serve(t.Context(), updates, d)
	d.Wait()

	require.Len(t, e.tg.texts, 2)
	assert.Equal(t, helpText, e.tg.texts[0])
	assert.Contains(t, e.tg.texts[1], "Unknown command")
}
