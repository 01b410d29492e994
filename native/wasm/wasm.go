// Package wasm runs the native library compiled to WebAssembly.
//
// The module must be a reactor exporting its linear memory, malloc/free and
// the same C entry points as the shared library:
//
//	graal_create_isolate(params: i32, isolate_out: i32, thread_out: i32) -> i32
//	graal_attach_thread(isolate: i32, thread_out: i32) -> i32
//	graal_detach_thread(thread: i32) -> i32
//	graal_detach_all_threads_and_tear_down_isolate(thread: i32) -> i32
//	dxfg_system_set_property(thread: i32, key: i32, value: i32) -> i32
//	dxfg_system_get_property(thread: i32, key: i32) -> i32 (char*, NULL if unset)
//	dxfg_system_release_property(thread: i32, value: i32) -> i32
//
// WebAssembly has no threads of its own, so thread handles are whatever the
// module hands out; the isolate package still serializes every call.
package wasm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/caffeineduck/graaliso/native"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

// Memory management exports.
const (
	ExportMemory = "memory"
	ExportMalloc = "malloc"
	ExportFree   = "free"
)

// Entry point exports.
const (
	ExportCreateIsolate   = "graal_create_isolate"
	ExportAttachThread    = "graal_attach_thread"
	ExportDetachThread    = "graal_detach_thread"
	ExportTearDown        = "graal_detach_all_threads_and_tear_down_isolate"
	ExportSetProperty     = "dxfg_system_set_property"
	ExportGetProperty     = "dxfg_system_get_property"
	ExportReleaseProperty = "dxfg_system_release_property"
)

var (
	// ErrMissingExport is returned when the module lacks a required export.
	ErrMissingExport = errors.New("missing export")
	// ErrSignature is returned when an export has an unexpected signature.
	ErrSignature = errors.New("unexpected export signature")
)

type signature struct {
	params  int
	results int
}

var exports = map[string]signature{
	ExportMalloc:          {1, 1},
	ExportFree:            {1, 0},
	ExportCreateIsolate:   {3, 1},
	ExportAttachThread:    {2, 1},
	ExportDetachThread:    {1, 1},
	ExportTearDown:        {1, 1},
	ExportSetProperty:     {3, 1},
	ExportGetProperty:     {2, 1},
	ExportReleaseProperty: {2, 1},
}

// Runtime is a native.Runtime backed by a WebAssembly module.
type Runtime struct {
	ctx     context.Context
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	mod     api.Module
	mem     api.Memory
	fns     map[string]api.Function

	// Module instances are not safe for concurrent calls.
	mu     sync.Mutex
	closed bool
}

var _ native.Runtime = (*Runtime)(nil)
var _ native.Closer = (*Runtime)(nil)

// LoadFile reads and instantiates the module at path.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Runtime, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read module: %w", err)
	}
	return Load(ctx, data, opts...)
}

// Load compiles and instantiates the module. ctx is used for every later
// call into the module.
func Load(ctx context.Context, module []byte, opts ...Option) (*Runtime, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	var cache wazero.CompilationCache
	var err error

	if cfg.diskCache {
		cacheDir := cfg.cacheDir
		if cacheDir == "" {
			cacheDir = defaultCacheDir()
		}
		cache, err = wazero.NewCompilationCacheWithDir(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("create disk cache: %w", err)
		}
	}

	rtConfig := wazero.NewRuntimeConfig().WithCloseOnContextDone(true)
	if cache != nil {
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	if cfg.memoryLimitPages > 0 {
		rtConfig = rtConfig.WithMemoryLimitPages(cfg.memoryLimitPages)
	}

	r := &Runtime{
		ctx:     ctx,
		runtime: wazero.NewRuntimeWithConfig(ctx, rtConfig),
		cache:   cache,
		fns:     make(map[string]api.Function, len(exports)),
	}

	if err := r.instantiate(module, cfg); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

func (r *Runtime) instantiate(module []byte, cfg config) error {
	if _, err := wasi_snapshot_preview1.Instantiate(r.ctx, r.runtime); err != nil {
		return fmt.Errorf("instantiate WASI: %w", err)
	}

	compiled, err := r.runtime.CompileModule(r.ctx, module)
	if err != nil {
		return fmt.Errorf("compile module: %w", err)
	}

	moduleConfig := wazero.NewModuleConfig().
		WithStartFunctions("_initialize").
		WithName("")
	if cfg.stdout != nil {
		moduleConfig = moduleConfig.WithStdout(cfg.stdout)
	}
	if cfg.stderr != nil {
		moduleConfig = moduleConfig.WithStderr(cfg.stderr)
	}
	for k, v := range cfg.env {
		moduleConfig = moduleConfig.WithEnv(k, v)
	}

	mod, err := r.runtime.InstantiateModule(r.ctx, compiled, moduleConfig)
	if err != nil {
		return fmt.Errorf("instantiate module: %w", err)
	}
	r.mod = mod

	// Memory() wraps a nil instance in a non-nil interface; look the export up.
	mem := mod.ExportedMemory(ExportMemory)
	if mem == nil {
		return fmt.Errorf("%w: %s", ErrMissingExport, ExportMemory)
	}
	r.mem = mem

	var missing []string
	for name, sig := range exports {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			missing = append(missing, name)
			continue
		}
		def := fn.Definition()
		if len(def.ParamTypes()) != sig.params || len(def.ResultTypes()) != sig.results {
			return fmt.Errorf("%w: %s takes %d params and returns %d results",
				ErrSignature, name, len(def.ParamTypes()), len(def.ResultTypes()))
		}
		r.fns[name] = fn
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrMissingExport, strings.Join(missing, ", "))
	}
	return nil
}

// Close releases the module, the wazero runtime and the compilation cache.
func (r *Runtime) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error
	if err := r.runtime.Close(r.ctx); err != nil {
		errs = append(errs, err)
	}
	if r.cache != nil {
		if err := r.cache.Close(r.ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// call invokes an entry point returning a status. Must be called with r.mu
// held. A trap inside the module surfaces as UNSPECIFIED.
func (r *Runtime) call(name string, params ...uint64) (uint64, native.Status) {
	if r.closed {
		return 0, native.StatusUninitializedIsolate
	}
	res, err := r.fns[name].Call(r.ctx, params...)
	if err != nil || len(res) == 0 {
		return 0, native.StatusUnspecified
	}
	return res[0], native.StatusNoError
}

func status(res uint64) native.Status {
	return native.StatusOf(int(int32(uint32(res))))
}

// alloc reserves n bytes of linear memory. Must be called with r.mu held.
func (r *Runtime) alloc(n uint32) (uint32, native.Status) {
	res, st := r.call(ExportMalloc, uint64(n))
	if !st.OK() {
		return 0, st
	}
	if res == 0 {
		return 0, native.StatusUnspecified
	}
	return uint32(res), native.StatusNoError
}

func (r *Runtime) free(ptr uint32) {
	if ptr != 0 {
		r.call(ExportFree, uint64(ptr))
	}
}

// cstring copies s into linear memory as a NUL-terminated string.
func (r *Runtime) cstring(s string) (uint32, native.Status) {
	ptr, st := r.alloc(uint32(len(s)) + 1)
	if !st.OK() {
		return 0, st
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	if !r.mem.Write(ptr, buf) {
		r.free(ptr)
		return 0, native.StatusUnspecified
	}
	return ptr, native.StatusNoError
}

// outParam reserves a pointer-sized out parameter.
func (r *Runtime) outParam() (uint32, native.Status) {
	ptr, st := r.alloc(4)
	if !st.OK() {
		return 0, st
	}
	if !r.mem.WriteUint32Le(ptr, 0) {
		r.free(ptr)
		return 0, native.StatusUnspecified
	}
	return ptr, native.StatusNoError
}

func (r *Runtime) readOut(ptr uint32) uint32 {
	v, _ := r.mem.ReadUint32Le(ptr)
	return v
}

func (r *Runtime) CreateIsolate() (native.IsolateHandle, native.ThreadHandle, native.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	isoOut, st := r.outParam()
	if !st.OK() {
		return 0, 0, st
	}
	defer r.free(isoOut)
	threadOut, st := r.outParam()
	if !st.OK() {
		return 0, 0, st
	}
	defer r.free(threadOut)

	res, st := r.call(ExportCreateIsolate, 0, uint64(isoOut), uint64(threadOut))
	if !st.OK() {
		return 0, 0, st
	}
	if st := status(res); !st.OK() {
		return 0, 0, st
	}
	return native.IsolateHandle(r.readOut(isoOut)), native.ThreadHandle(r.readOut(threadOut)), native.StatusNoError
}

func (r *Runtime) AttachThread(iso native.IsolateHandle) (native.ThreadHandle, native.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	threadOut, st := r.outParam()
	if !st.OK() {
		return 0, st
	}
	defer r.free(threadOut)

	res, st := r.call(ExportAttachThread, uint64(iso), uint64(threadOut))
	if !st.OK() {
		return 0, st
	}
	if st := status(res); !st.OK() {
		return 0, st
	}
	return native.ThreadHandle(r.readOut(threadOut)), native.StatusNoError
}

func (r *Runtime) DetachThread(thread native.ThreadHandle) native.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, st := r.call(ExportDetachThread, uint64(thread))
	if !st.OK() {
		return st
	}
	return status(res)
}

func (r *Runtime) DetachAllThreadsAndTearDownIsolate(thread native.ThreadHandle) native.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, st := r.call(ExportTearDown, uint64(thread))
	if !st.OK() {
		return st
	}
	return status(res)
}

func (r *Runtime) SetProperty(thread native.ThreadHandle, key, value string) native.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	keyPtr, st := r.cstring(key)
	if !st.OK() {
		return st
	}
	defer r.free(keyPtr)
	valuePtr, st := r.cstring(value)
	if !st.OK() {
		return st
	}
	defer r.free(valuePtr)

	res, st := r.call(ExportSetProperty, uint64(thread), uint64(keyPtr), uint64(valuePtr))
	if !st.OK() {
		return st
	}
	return status(res)
}

func (r *Runtime) GetProperty(thread native.ThreadHandle, key string) (native.CString, native.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keyPtr, st := r.cstring(key)
	if !st.OK() {
		return 0, st
	}
	defer r.free(keyPtr)

	res, st := r.call(ExportGetProperty, uint64(thread), uint64(keyPtr))
	if !st.OK() {
		return 0, st
	}
	return native.CString(uint32(res)), native.StatusNoError
}

func (r *Runtime) ReleaseProperty(thread native.ThreadHandle, value native.CString) native.Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, st := r.call(ExportReleaseProperty, uint64(thread), uint64(value))
	if !st.OK() {
		return st
	}
	return status(res)
}

func (r *Runtime) GoString(value native.CString) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if value == 0 || r.closed {
		return ""
	}

	mem := r.mem
	var buf []byte
	for off := uint32(value); ; off++ {
		b, ok := mem.ReadByte(off)
		if !ok || b == 0 {
			break
		}
		buf = append(buf, b)
	}
	return string(buf)
}
