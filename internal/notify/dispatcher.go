package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Simplici0/markup/internal/logger"
)

// Dispatcher sends submissions in the background so the wizard never waits on
// a channel.
type Dispatcher struct {
	notifier Notifier
	timeout  time.Duration
	log      logger.Logger
	wg       sync.WaitGroup
}

func NewDispatcher(n Notifier, timeout time.Duration, log logger.Logger) *Dispatcher {
	return &Dispatcher{notifier: n, timeout: timeout, log: log}
}

// Dispatch starts delivery and returns immediately.
func (d *Dispatcher) Dispatch(sub Submission) {
	if d == nil || d.notifier == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		fields := map[string]interface{}{
			"submission_id": sub.ID,
			"notifier":      d.notifier.Name(),
		}
		if err := d.notifier.Notify(ctx, sub); err != nil {
			d.log.WithError(err).Warn("lead notification failed", fields)
			return
		}
		d.log.Info("lead notification sent", fields)
	}()
}

// Wait blocks until every started delivery has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
