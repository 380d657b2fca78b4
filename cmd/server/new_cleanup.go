package main

import (
	"context"
	"io"
	"log/slog"
)

// shutdownStep is one named part of process teardown.
type shutdownStep struct {
	name string
	run  func(context.Context) error
}

// teardown collects shutdown steps as resources are acquired and runs them
// in reverse, so a dependant is always released before what it depends on.
// The authenticator writes last_used_at through the store, so it is added
// after the store and therefore drained before the store is closed.
type teardown struct {
	steps []shutdownStep
}

// add registers fn under name. A nil fn is ignored.
func (t *teardown) add(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}
	t.steps = append(t.steps, shutdownStep{name: name, run: fn})
}

// addCloser registers c.Close. A nil closer is ignored.
func (t *teardown) addCloser(name string, c io.Closer) {
	if c == nil {
		return
	}
	t.add(name, func(context.Context) error { return c.Close() })
}

// newCleanup returns the hook that runs every registered step with ctx,
// newest first. A failed step is logged and does not stop the rest.
func newCleanup(ctx context.Context, t *teardown) func() {
	return func() {
		for i := len(t.steps) - 1; i >= 0; i-- {
			step := t.steps[i]
			if err := step.run(ctx); err != nil {
				slog.WarnContext(ctx, "shutdown step failed", "step", step.name, "error", err)
				continue
			}
			slog.InfoContext(ctx, "shutdown step complete", "step", step.name)
		}
	}
}
