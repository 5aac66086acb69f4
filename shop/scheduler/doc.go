// Package scheduler provides the periodic driver that calls an action at a fixed target rate.
//
// The schedule is anchored to the start of Run: tick i is due at start + i*period, so a slow
// tick does not shift the ticks after it. When an action overruns by more than a full period
// the missed slots are skipped rather than replayed. Cancellation is cooperative: the context
// passed to Run is checked between ticks, and an action that is already running always completes.
package scheduler
