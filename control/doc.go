// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, runtime metrics and debug introspection for grainws.
//
// Provides concurrent-safe primitives including:
//   - Typed configuration loaded from file, environment and flags
//   - Config file watching with reload hooks
//   - Counter and gauge registry
//   - Debug probe registration and state export
package control
