// Package backend opens the native runtime selected in the configuration.
package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/caffeineduck/graaliso/internal/config"
	"github.com/caffeineduck/graaliso/native"
	"github.com/caffeineduck/graaliso/native/graal"
	"github.com/caffeineduck/graaliso/native/sim"
	"github.com/caffeineduck/graaliso/native/wasm"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zapio"
)

// Open returns the runtime named by cfg.Backend. Runtimes implementing
// native.Closer must be closed by the caller once the isolate is torn down.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (native.Runtime, error) {
	if log == nil {
		log = zap.NewNop()
	}

	switch cfg.Backend {
	case config.BackendSim:
		log.Debug("using simulated runtime")
		return sim.New(), nil

	case config.BackendWASM:
		modLog := log.Named("wasm")
		stdout := &zapio.Writer{Log: modLog, Level: zapcore.InfoLevel}
		stderr := &zapio.Writer{Log: modLog, Level: zapcore.WarnLevel}

		opts := []wasm.Option{wasm.WithOutput(stdout, stderr)}
		if cfg.WASM.MemoryLimitPages > 0 {
			opts = append(opts, wasm.WithMemoryLimit(cfg.WASM.MemoryLimitPages))
		}
		if cfg.WASM.Cache {
			opts = append(opts, wasm.WithDiskCache())
		}
		for k, v := range cfg.WASM.Env {
			opts = append(opts, wasm.WithEnv(k, v))
		}
		log.Debug("loading wasm runtime",
			zap.String("module", cfg.WASM.Module),
			zap.Uint32("memory_limit_pages", cfg.WASM.MemoryLimitPages))
		rt, err := wasm.LoadFile(ctx, cfg.WASM.Module, opts...)
		if err != nil {
			return nil, fmt.Errorf("open wasm backend: %w", err)
		}
		return &wasmRuntime{Runtime: rt, stdout: stdout, stderr: stderr}, nil

	case config.BackendGraal:
		log.Debug("using linked native library")
		rt, err := graal.New()
		if err != nil {
			return nil, fmt.Errorf("open graal backend: %w", err)
		}
		return rt, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownBackend, cfg.Backend)
	}
}

// Close releases rt if it holds resources of its own.
func Close(rt native.Runtime) error {
	if c, ok := rt.(native.Closer); ok {
		return c.Close()
	}
	return nil
}

// wasmRuntime flushes the module's log writers once the module is closed.
type wasmRuntime struct {
	*wasm.Runtime
	stdout *zapio.Writer
	stderr *zapio.Writer
}

func (r *wasmRuntime) Close() error {
	return errors.Join(r.Runtime.Close(), r.stdout.Close(), r.stderr.Close())
}
