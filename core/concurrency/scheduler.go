// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Timer-driven scheduler that fires callbacks on an executor.

package concurrency

import (
	"sync/atomic"
	"time"

	"github.com/momentics/grainws/api"
)

// TimerScheduler implements api.Scheduler over time.AfterFunc. Expired
// callbacks are submitted to exec rather than run on the timer goroutine.
type TimerScheduler struct {
	exec api.Executor
}

var _ api.Scheduler = (*TimerScheduler)(nil)

// NewTimerScheduler creates a scheduler bound to exec.
func NewTimerScheduler(exec api.Executor) *TimerScheduler {
	return &TimerScheduler{exec: exec}
}

// AfterFunc schedules fn to run on the executor after d.
func (s *TimerScheduler) AfterFunc(d time.Duration, fn func()) api.Cancelable {
	t := &timerHandle{}
	t.timer = time.AfterFunc(d, func() {
		_ = s.exec.Submit(func() {
			if t.canceled.Load() {
				return
			}
			fn()
		})
	})
	return t
}

type timerHandle struct {
	timer    *time.Timer
	canceled atomic.Bool
}

// Cancel stops the timer. A callback already queued on the executor is
// suppressed as well.
func (t *timerHandle) Cancel() bool {
	if !t.canceled.CompareAndSwap(false, true) {
		return false
	}
	return t.timer.Stop()
}
