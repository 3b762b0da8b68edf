package factory

import (
	"strings"
	"testing"
	"time"
)

type sample struct{ Path string }

type sampleConf struct {
	Path    string        `json:"path"`
	Batch   int           `json:"batch"`
	Timeout time.Duration `json:"timeout"`
}

// Test registry registration and instantiation using Decode.
func TestRegistry_Create(t *testing.T) {
	reg := NewRegistry[*sample]()
	if err := reg.Register("csv", func(conf map[string]any) (*sample, error) {
		var c sampleConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sample{Path: c.Path}, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	inst, err := reg.Create(ModuleConfig{Type: "csv", Conf: map[string]any{"path": "trips.csv"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if inst.Path != "trips.csv" {
		t.Fatalf("expected trips.csv got %s", inst.Path)
	}
}

// Test that string values from env overrides decode into typed fields.
func TestDecode_WeaklyTyped(t *testing.T) {
	var c sampleConf
	if err := Decode(map[string]any{"batch": "25", "timeout": "5s"}, &c); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Batch != 25 || c.Timeout != 5*time.Second {
		t.Fatalf("unexpected decode result %+v", c)
	}
}

// Test duplicate registration and unknown type errors.
func TestRegistry_Errors(t *testing.T) {
	reg := NewRegistry[int]()
	if err := reg.Register("x", func(map[string]any) (int, error) { return 1, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register("x", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	if err := reg.Register("x", func(map[string]any) (int, error) { return 2, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	_, err := reg.Create(ModuleConfig{Type: "y"})
	if err == nil || !strings.Contains(err.Error(), "x") {
		t.Fatalf("expected unknown type error listing x, got %v", err)
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "x" {
		t.Fatalf("unexpected names %v", names)
	}
}
