// File: adapters/handler_adapter.go
// Package adapters
// Author: momentics <momentics@gmail.com>
//
// MessageHandler middleware chain.

package adapters

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/momentics/grainws/api"
	"github.com/momentics/grainws/control"
)

// Middleware decorates a MessageHandler.
type Middleware func(api.MessageHandler) api.MessageHandler

// Chain wraps h so that mw[0] is the outermost layer.
func Chain(h api.MessageHandler, mw ...Middleware) api.MessageHandler {
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// LoggingMiddleware logs each message and its task outcome.
func LoggingMiddleware(logger zerolog.Logger) Middleware {
	return func(next api.MessageHandler) api.MessageHandler {
		return api.MessageHandlerFunc(func(msg api.Message) *api.Promise {
			logger.Debug().Stringer("type", msg.Type).Int("len", len(msg.Payload)).Msg("message")
			p := next.HandleMessage(msg)
			if p != nil {
				p.OnComplete(func(err error) {
					if err != nil {
						logger.Debug().Err(err).Stringer("type", msg.Type).Msg("handler task failed")
					}
				})
			}
			return p
		})
	}
}

// RecoveryMiddleware turns a panic in the synchronous part of the handler
// into a failed task.
func RecoveryMiddleware(next api.MessageHandler) api.MessageHandler {
	return api.MessageHandlerFunc(func(msg api.Message) (p *api.Promise) {
		defer func() {
			if r := recover(); r != nil {
				p = api.Resolved(fmt.Errorf("%w: %v", api.ErrTaskPanicked, r))
			}
		}()
		return next.HandleMessage(msg)
	})
}

// MetricsMiddleware counts handled messages by type.
func MetricsMiddleware(m *control.MetricsRegistry) Middleware {
	return func(next api.MessageHandler) api.MessageHandler {
		return api.MessageHandlerFunc(func(msg api.Message) *api.Promise {
			m.Add("handler."+msg.Type.String(), 1)
			return next.HandleMessage(msg)
		})
	}
}
