package control_test

import (
	"errors"
	"testing"

	"github.com/momentics/grainws/control"
)

func TestReloadHooksReceiveConfig(t *testing.T) {
	var got *control.Config
	var gotErr error
	control.RegisterReloadHook(func(cfg *control.Config, err error) {
		got, gotErr = cfg, err
	})

	cfg := control.DefaultConfig()
	control.TriggerHotReloadSync(cfg, nil)
	if got != cfg || gotErr != nil {
		t.Fatalf("hook saw %v, %v", got, gotErr)
	}

	bad := errors.New("parse failure")
	control.TriggerHotReloadSync(nil, bad)
	if got != nil || !errors.Is(gotErr, bad) {
		t.Fatalf("hook saw %v, %v", got, gotErr)
	}
}
