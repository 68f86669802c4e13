package bot

import (
	"context"
	"errors"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Dispatcher runs update handlers in the background, at most maxConcurrent at
// a time, each under its own timeout derived from the dispatch context.
type Dispatcher struct {
	sem     chan struct{}
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(maxConcurrent int, timeout time.Duration) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if timeout <= 0 {
		timeout = 180 * time.Second
	}
	return &Dispatcher{sem: make(chan struct{}, maxConcurrent), timeout: timeout}
}

// Go blocks until a slot is free, then runs fn in a goroutine. It reports
// false when ctx ended first.
func (d *Dispatcher) Go(ctx context.Context, fn func(ctx context.Context)) bool {
	select {
	case d.sem <- struct{}{}:
	case <-ctx.Done():
		return false
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() { <-d.sem }()

		reqCtx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()

		fn(reqCtx)
	}()
	return true
}

// Wait blocks until every running handler has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Serve feeds updates to the handler until ctx is done or the channel closes.
func (h *Handler) Serve(ctx context.Context, updates <-chan tgbotapi.Update, d *Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				h.logger.Info("updates channel closed")
				return
			}

			started := d.Go(ctx, func(ctx context.Context) {
				if err := h.HandleUpdate(ctx, update); err != nil && !errors.Is(err, context.Canceled) {
					h.logger.Error("handle update failed", "update_id", update.UpdateID, "err", err)
				}
			})
			if !started {
				return
			}
		}
	}
}
