// Package concurrency
// Author: momentics <momentics@gmail.com>
//
// Single-threaded cooperative execution for grainws.
//
// Includes:
//   - EventLoop: one goroutine draining an unbounded FIFO of tasks
//   - Supervisor: fire-and-forget task registry with one failure observer
//   - TimerScheduler: delayed callbacks delivered onto an executor
//
// Adapter state is confined to its EventLoop and needs no locks. Everything
// that originates elsewhere (socket reads, timer expiry, task completion)
// reaches that state only through EventLoop.Submit.
package concurrency
