package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
backend: wasm
wasm:
  module: ./libdxfeed.wasm
  memory_limit_pages: 256
  cache: true
  env:
    DXFEED_HOME: /opt/dxfeed
log:
  level: debug
properties:
  dxfeed.address: demo.dxfeed.com:7300
  dxfeed.aggregationPeriod: 1s
`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if cfg.Backend != BackendWASM {
		t.Errorf("expected wasm backend, got %q", cfg.Backend)
	}
	if cfg.WASM.Module != "./libdxfeed.wasm" || cfg.WASM.MemoryLimitPages != 256 || !cfg.WASM.Cache {
		t.Errorf("unexpected wasm section: %+v", cfg.WASM)
	}
	if cfg.WASM.Env["DXFEED_HOME"] != "/opt/dxfeed" {
		t.Errorf("unexpected wasm env: %v", cfg.WASM.Env)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Log.Level)
	}
	if got := cfg.Properties["dxfeed.address"]; got != "demo.dxfeed.com:7300" {
		t.Errorf("unexpected dxfeed.address: %q", got)
	}
	if len(cfg.Properties) != 2 {
		t.Errorf("expected 2 properties, got %d", len(cfg.Properties))
	}
}

func TestParseEmptyUsesDefaults(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Backend != BackendSim {
		t.Errorf("expected sim backend, got %q", cfg.Backend)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("expected warn level, got %q", cfg.Log.Level)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"unknown backend", "backend: jni", "unknown backend"},
		{"wasm without module", "backend: wasm", "wasm.module"},
		{"bad log level", "log:\n  level: loud", "invalid log level"},
		{"unknown field", "backnd: sim", "parse config"},
		{"malformed", "backend: [", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestUnknownBackendIsSentinel(t *testing.T) {
	_, err := Parse([]byte("backend: jni"))
	if !errors.Is(err, ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graaliso.yaml")
	if err := os.WriteFile(path, []byte("backend: graal\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Backend != BackendGraal {
		t.Errorf("expected graal backend, got %q", cfg.Backend)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
