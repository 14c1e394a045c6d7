package registry

import (
	"context"
	"testing"

	"cmms.GO/app"
)

func TestRegistry_Register_Resolve(t *testing.T) {
	defer Unregister("testEcho")

	Register("testEcho", func(ctx context.Context, _ *app.App, args map[string]interface{}) (interface{}, error) {
		return map[string]interface{}{"echo": args["v"]}, nil
	})

	got, err := Resolve(context.Background(), nil, "testEcho", map[string]interface{}{"v": "ok"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	m, ok := got.(map[string]interface{})
	if !ok || m["echo"] != "ok" {
		t.Errorf("got %v, want map[echo:ok]", got)
	}
}

func TestRegistry_Resolve_Unknown(t *testing.T) {
	// Resolve locks the registry; Unregister releases it for later tests.
	defer Unregister("nonexistent")

	_, err := Resolve(context.Background(), nil, "nonexistent", nil)
	if err == nil {
		t.Fatal("want error for unknown extension")
	}
}

func TestRegistry_Names(t *testing.T) {
	defer Unregister("namesTest")
	Register("namesTest", func(context.Context, *app.App, map[string]interface{}) (interface{}, error) { return nil, nil })

	found := false
	for _, n := range Names() {
		if n == "namesTest" {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("Names() = %v, want to include namesTest", Names())
	}
}

func TestRegistry_RegisterAfterResolvePanics(t *testing.T) {
	defer Unregister("late")
	Resolve(context.Background(), nil, "nonexistent", nil)

	defer func() {
		if recover() == nil {
			t.Error("Register after Resolve should panic")
		}
	}()
	Register("late", func(context.Context, *app.App, map[string]interface{}) (interface{}, error) { return nil, nil })
}
