// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Keepalive loop: Idle -> PingSent -> (Pong -> Idle) | (timeout -> Failed).

package adapters

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/momentics/grainws/api"
	"github.com/momentics/grainws/control"
)

type livenessState uint8

const (
	livenessIdle livenessState = iota
	livenessPingSent
	livenessFailed
	livenessStopped
)

func (s livenessState) String() string {
	switch s {
	case livenessIdle:
		return "idle"
	case livenessPingSent:
		return "ping_sent"
	case livenessFailed:
		return "failed"
	default:
		return "stopped"
	}
}

// livenessLoop is one supervised task for its whole life: done resolves when
// the loop fails or is stopped, never per cycle. It runs entirely on the
// owner's executor; awaitingPong is written here and cleared by the Pong path.
type livenessLoop struct {
	out      Outbound
	tasks    TaskSupervisor
	sched    api.Scheduler
	interval time.Duration
	policy   LivenessPolicy
	log      zerolog.Logger
	metrics  *control.MetricsRegistry
	id       uint64

	state        livenessState
	awaitingPong bool
	misses       int
	timer        api.Cancelable
	resolve      api.Resolver
}

func (l *livenessLoop) start() {
	done, resolve := api.NewPromise()
	l.resolve = resolve
	l.tasks.Add(done)
	l.ping()
}

// ping enters PingSent.
func (l *livenessLoop) ping() {
	l.state = livenessPingSent
	l.awaitingPong = true
	l.tasks.Add(l.out.sendPing())
	l.metrics.Add(control.MetricPingsSent, 1)
	l.timer = l.sched.AfterFunc(l.interval, l.check)
}

func (l *livenessLoop) check() {
	if l.state != livenessPingSent {
		return
	}
	l.timer = nil
	if !l.awaitingPong {
		l.state = livenessIdle
		l.misses = 0
		l.ping()
		return
	}

	l.misses++
	l.metrics.Add(control.MetricLivenessTimeouts, 1)
	if l.policy == LivenessRetry {
		l.log.Warn().Int("misses", l.misses).Dur("interval", l.interval).Msg("pong overdue, pinging again")
		l.ping()
		return
	}
	l.state = livenessFailed
	l.resolve(api.NewError(api.ErrCodeLivenessTimeout, "no pong received").
		WithContext("adapter_id", l.id).
		WithContext("interval", l.interval.String()))
}

func (l *livenessLoop) pong() {
	l.awaitingPong = false
}

// stop cancels the pending delay and resolves the loop successfully.
// A ping already handed to the sender is not recalled.
func (l *livenessLoop) stop() {
	if l.state == livenessFailed || l.state == livenessStopped {
		return
	}
	l.state = livenessStopped
	if l.timer != nil {
		l.timer.Cancel()
		l.timer = nil
	}
	l.resolve(nil)
}
