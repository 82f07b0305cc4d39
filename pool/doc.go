// Package pool
// Author: momentics <momentics@gmail.com>
//
// Reusable byte buffers for connection read paths.
package pool
