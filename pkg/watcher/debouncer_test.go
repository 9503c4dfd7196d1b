package watcher

import (
	"context"
	"testing"
	"time"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	input := make(chan ChangeEvent, 16)
	d := newDebouncer(input, 50*time.Millisecond, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.start(ctx)

	for i := 0; i < 5; i++ {
		input <- ChangeEvent{Path: "dag.dot", Timestamp: time.Now()}
	}

	select {
	case event := <-d.output:
		if event.Path != "dag.dot" {
			t.Errorf("Event path = %q", event.Path)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for debounced event")
	}

	// The burst should produce exactly one event.
	select {
	case event := <-d.output:
		t.Errorf("Unexpected second event: %+v", event)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestDebouncerMaxWait(t *testing.T) {
	input := make(chan ChangeEvent, 64)
	d := newDebouncer(input, 100*time.Millisecond, 300*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.start(ctx)

	// Keep the stream busy so the quiet period never elapses.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(30 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				input <- ChangeEvent{Path: "dag.dot", Timestamp: time.Now()}
			}
		}
	}()
	defer close(stop)

	select {
	case <-d.output:
		// flushed by maxWait despite continuous changes
	case <-time.After(time.Second):
		t.Fatal("maxWait flush never happened")
	}
}

func TestDebouncerFlushesOnClose(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := newDebouncer(input, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.start(ctx)

	input <- ChangeEvent{Path: "dag.dot", Timestamp: time.Now()}
	close(input)

	select {
	case event, ok := <-d.output:
		if !ok {
			t.Fatal("Output closed without flushing pending event")
		}
		if event.Path != "dag.dot" {
			t.Errorf("Event path = %q", event.Path)
		}
	case <-time.After(time.Second):
		t.Fatal("Timeout waiting for flush on close")
	}

	if _, ok := <-d.output; ok {
		t.Error("Output should be closed after input closes")
	}
}
