package watcher

import (
	"context"
	"time"
)

// debouncer collapses bursts of change events into one. An event is
// emitted after quietPeriod without further changes, or after maxWait at
// the latest.
type debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

func newDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *debouncer {
	return &debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 4),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

func (d *debouncer) start(ctx context.Context) {
	go d.run(ctx)
}

func (d *debouncer) run(ctx context.Context) {
	defer close(d.output)

	var (
		pending  *ChangeEvent
		quiet    <-chan time.Time
		deadline <-chan time.Time
	)

	flush := func() {
		if pending == nil {
			return
		}
		d.output <- *pending
		pending = nil
		quiet = nil
		deadline = nil
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			if pending == nil {
				deadline = time.After(d.maxWait)
			}
			pending = &event
			quiet = time.After(d.quietPeriod)

		case <-quiet:
			flush()

		case <-deadline:
			flush()
		}
	}
}
