// File: server/handler.go
// Package server
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"github.com/momentics/grainws/adapters"
	"github.com/momentics/grainws/api"
)

// EchoHandler replies to every message with the same message.
func EchoHandler(out adapters.Outbound) api.MessageHandler {
	return api.MessageHandlerFunc(func(msg api.Message) *api.Promise {
		return out.SendMessage(msg)
	})
}
