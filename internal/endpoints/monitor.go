package endpoints

import (
	"context"
	"sync"
	"time"
)

// Monitor runs a check immediately and then once per interval until stopped.
type Monitor struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// StartMonitor starts polling. The first check runs on the new goroutine
// before the first tick.
func StartMonitor(ctx context.Context, interval time.Duration, check func(context.Context)) *Monitor {
	ctx, cancel := context.WithCancel(ctx)
	m := &Monitor{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(m.done)

		check(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				check(ctx)
			}
		}
	}()

	return m
}

// Stop ends polling and waits for an in-flight check to return.
// It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(m.cancel)
	<-m.done
}

// Done is closed once the polling goroutine has exited
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}
