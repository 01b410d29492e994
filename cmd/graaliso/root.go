package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/caffeineduck/graaliso/internal/backend"
	"github.com/caffeineduck/graaliso/internal/config"
	"github.com/caffeineduck/graaliso/isolate"
	"github.com/caffeineduck/graaliso/native"
	"github.com/caffeineduck/graaliso/system"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type rootOptions struct {
	configPath string
	backend    string
	module     string
	debug      bool
	properties map[string]string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "graaliso",
		Short: "Drive a GraalVM native isolate from the command line",
		Long: `graaliso - Create a native isolate and read or write its JVM system properties.

The isolate is created on first use and torn down when the command exits.
Backends:
  sim    in-process simulation (default)
  wasm   WebAssembly build of the native library, run with wazero
  graal  shared library linked through cgo (build with -tags graal)`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Configuration file (YAML)")
	flags.StringVarP(&opts.backend, "backend", "b", "", "Backend: sim, wasm, graal (default from config, else sim)")
	flags.StringVarP(&opts.module, "module", "m", "", "WebAssembly module for the wasm backend")
	flags.BoolVar(&opts.debug, "debug", false, "Log isolate lifecycle events at debug level")
	flags.StringToStringVarP(&opts.properties, "define", "D", nil, "Set a property before running (key=value, can be repeated)")

	cmd.AddCommand(
		newGetCmd(opts),
		newSetCmd(opts),
		newPropsCmd(opts),
		newReplCmd(opts),
		newStressCmd(opts),
	)
	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file, if any, and applies flag overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		var err error
		if cfg, err = config.Load(o.configPath); err != nil {
			return nil, err
		}
	}

	if o.module != "" {
		cfg.WASM.Module = o.module
		if o.backend == "" {
			cfg.Backend = config.BackendWASM
		}
	}
	if o.backend != "" {
		cfg.Backend = o.backend
	}
	if o.debug {
		cfg.Log.Level = "debug"
	}
	if len(o.properties) > 0 {
		if cfg.Properties == nil {
			cfg.Properties = make(map[string]string, len(o.properties))
		}
		for k, v := range o.properties {
			cfg.Properties[k] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl := zapcore.WarnLevel
	if level != "" {
		var err error
		if lvl, err = zapcore.ParseLevel(level); err != nil {
			return nil, err
		}
	}

	zc := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

// app is everything a command needs to talk to the isolate.
type app struct {
	cfg  *config.Config
	log  *zap.Logger
	rt   native.Runtime
	prov *isolate.Provider
	sys  *system.System
}

// open loads the configuration, opens the backend and applies the configured
// properties. The isolate is created by the first property call.
func (o *rootOptions) open(ctx context.Context) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}

	log, err := newLogger(cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	rt, err := backend.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	isolate.SetLogger(log)
	prov := isolate.NewProvider(rt, isolate.WithName(cfg.Backend))
	isolate.SetDefault(prov)

	a := &app{
		cfg:  cfg,
		log:  log,
		rt:   rt,
		prov: prov,
		sys:  system.New(prov, log),
	}

	if len(cfg.Properties) > 0 {
		if err := a.sys.SetProperties(cfg.Properties); err != nil {
			a.Close()
			return nil, err
		}
	}
	return a, nil
}

// Close tears the isolate down and releases the backend.
func (a *app) Close() error {
	isolate.SetDefault(nil)
	err := errors.Join(a.prov.Shutdown(), backend.Close(a.rt))
	_ = a.log.Sync()
	return err
}
