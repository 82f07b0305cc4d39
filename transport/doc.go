// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Outbound issuing for WebSocket peers. Subpackage tcp accepts and upgrades
// connections.
package transport
