package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/caffeineduck/graaliso/internal/config"
	"github.com/caffeineduck/graaliso/isolate"
	"github.com/caffeineduck/graaliso/native/graal"
	"github.com/caffeineduck/graaliso/native/sim"
	"github.com/caffeineduck/graaliso/native/wasm"
	"github.com/caffeineduck/graaliso/system"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestOpenSim(t *testing.T) {
	rt, err := Open(context.Background(), config.Default(), nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, ok := rt.(*sim.Runtime); !ok {
		t.Errorf("expected *sim.Runtime, got %T", rt)
	}
	if err := Close(rt); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Backend: "jni"}, nil)
	if !errors.Is(err, config.ErrUnknownBackend) {
		t.Errorf("expected ErrUnknownBackend, got %v", err)
	}
}

func TestOpenWASMRejectsIncompleteModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wasm")
	if err := os.WriteFile(path, []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Backend: config.BackendWASM,
		WASM:    config.WASM{Module: path, MemoryLimitPages: 16},
	}
	_, err := Open(context.Background(), cfg, nil)
	if !errors.Is(err, wasm.ErrMissingExport) {
		t.Errorf("expected ErrMissingExport, got %v", err)
	}
}

func TestOpenGraalWithoutNativeLibrary(t *testing.T) {
	rt, err := Open(context.Background(), &config.Config{Backend: config.BackendGraal}, nil)
	if err != nil {
		// Only binaries built with -tags graal link the library.
		if !errors.Is(err, graal.ErrNotBuilt) {
			t.Errorf("expected ErrNotBuilt, got %v", err)
		}
		return
	}
	if rt == nil {
		t.Error("expected runtime")
	}
}

func TestOpenWASM(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	cfg := &config.Config{
		Backend: config.BackendWASM,
		WASM: config.WASM{
			Module:           filepath.Join("..", "..", "native", "wasm", "testdata", "props.wasm"),
			MemoryLimitPages: 4,
			Env:              map[string]string{"DXFEED_HOME": "/opt/dxfeed"},
		},
	}
	rt, err := Open(context.Background(), cfg, zap.New(core))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	iso, err := isolate.Create(rt)
	if err != nil {
		t.Fatalf("create isolate: %v", err)
	}
	sys := system.New(system.Static(iso), nil)
	if !sys.SetProperty("dxfeed.address", "demo.dxfeed.com:7300") {
		t.Fatal("SetProperty returned false")
	}
	if got := sys.GetProperty("dxfeed.address"); got != "demo.dxfeed.com:7300" {
		t.Errorf("GetProperty = %q", got)
	}

	if err := iso.Close(); err != nil {
		t.Fatalf("Close isolate: %v", err)
	}
	if err := Close(rt); err != nil {
		t.Errorf("Close runtime: %v", err)
	}
	if logs.FilterMessage("loading wasm runtime").Len() != 1 {
		t.Error("expected a debug entry for the module load")
	}
}
