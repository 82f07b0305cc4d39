// Package fake
// Author: momentics <momentics@gmail.com>
//
// Recording message handler and inline executor.

package fake

import (
	"sync"

	"github.com/momentics/grainws/api"
)

// Handler records delivered messages and returns Result for each.
type Handler struct {
	mu       sync.Mutex
	messages []api.Message
	// Result produces the task promise for a message; nil means resolved OK.
	Result func(api.Message) *api.Promise
}

// NewHandler creates a recording handler.
func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) HandleMessage(msg api.Message) *api.Promise {
	h.mu.Lock()
	h.messages = append(h.messages, msg)
	result := h.Result
	h.mu.Unlock()
	if result == nil {
		return api.Resolved(nil)
	}
	return result(msg)
}

// Messages returns a snapshot of delivered messages.
func (h *Handler) Messages() []api.Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]api.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// InlineExecutor runs tasks synchronously on the submitting goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Submit(task func()) error {
	task()
	return nil
}
