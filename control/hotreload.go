// control/hotreload.go
// Author: momentics <momentics@gmail.com>
//
// Config file watching. Hooks receive the re-validated Config; a file that
// fails to parse or validate is reported and the previous Config stays live.

package control

import (
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ReloadHook receives a reloaded Config or the error that prevented it.
type ReloadHook func(cfg *Config, err error)

var (
	hooksMu     sync.Mutex
	reloadHooks []ReloadHook
)

// RegisterReloadHook adds a component reload listener.
func RegisterReloadHook(fn ReloadHook) {
	hooksMu.Lock()
	reloadHooks = append(reloadHooks, fn)
	hooksMu.Unlock()
}

// TriggerHotReloadSync invokes all reload hooks synchronously.
func TriggerHotReloadSync(cfg *Config, err error) {
	hooksMu.Lock()
	hooks := append([]ReloadHook(nil), reloadHooks...)
	hooksMu.Unlock()
	for _, fn := range hooks {
		fn(cfg, err)
	}
}

// Watch re-reads the loaded config file on change and dispatches the result
// to registered hooks. It is a no-op when no file was loaded.
func (l *Loader) Watch() {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(fsnotify.Event) {
		cfg, err := l.decode()
		TriggerHotReloadSync(cfg, err)
	})
	l.v.WatchConfig()
}
