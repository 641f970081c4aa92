package stream

import (
	"context"
	"time"

	"github.com/m-mizutani/envlake/internal/util"
)

// Trigger decides when a fetch window closes. Wait returns when the window
// should be closed, or ctx is done.
type Trigger interface {
	Wait(ctx context.Context) error
}

// IntervalTrigger closes window after fixed interval.
type IntervalTrigger struct {
	Interval time.Duration
}

// Wait sleeps Interval
func (x *IntervalTrigger) Wait(ctx context.Context) error {
	return util.Sleep(ctx, x.Interval)
}

// ManualTrigger closes window by Fire. Fire blocks until a window receives it.
type ManualTrigger struct {
	ch chan struct{}
}

// NewManualTrigger is constructor of ManualTrigger
func NewManualTrigger() *ManualTrigger {
	return &ManualTrigger{ch: make(chan struct{})}
}

// Fire closes the current (or next) window
func (x *ManualTrigger) Fire() {
	x.ch <- struct{}{}
}

// Wait waits Fire
func (x *ManualTrigger) Wait(ctx context.Context) error {
	select {
	case <-x.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
