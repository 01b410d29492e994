// Package system reads and writes system properties of the JVM running
// inside the native isolate.
package system

import (
	"errors"
	"fmt"
	"sort"

	"github.com/caffeineduck/graaliso/isolate"
	"github.com/caffeineduck/graaliso/native"
	"go.uber.org/zap"
)

// Source yields the isolate to operate on. *isolate.Provider implements it.
type Source interface {
	Get() (*isolate.Isolate, error)
}

type static struct {
	iso *isolate.Isolate
}

func (s static) Get() (*isolate.Isolate, error) {
	if s.iso == nil {
		return nil, isolate.ErrUnavailable
	}
	return s.iso, nil
}

// Static returns a Source for an already created isolate.
func Static(iso *isolate.Isolate) Source {
	return static{iso: iso}
}

// System gives access to JVM system properties.
type System struct {
	src Source
	log *zap.Logger
}

// New returns a System bound to src. A nil logger disables logging.
func New(src Source, log *zap.Logger) *System {
	if log == nil {
		log = zap.NewNop()
	}
	return &System{src: src, log: log}
}

// SetProperty sets the property and reports whether the native call succeeded.
// It returns false when the isolate is unavailable.
func (s *System) SetProperty(key, value string) bool {
	err := s.set(key, value)
	s.log.Debug("set property", zap.String("key", key), zap.String("value", value), zap.Error(err))
	return err == nil
}

func (s *System) set(key, value string) error {
	iso, err := s.src.Get()
	if err != nil {
		return err
	}
	rt := iso.Runtime()
	return iso.Run(func(th native.ThreadHandle) error {
		return rt.SetProperty(th, key, value).Err()
	})
}

// GetProperty returns the property value, or an empty string when it is unset
// or cannot be read.
func (s *System) GetProperty(key string) string {
	value, _, err := s.LookupProperty(key)
	if err != nil {
		return ""
	}
	return value
}

// LookupProperty returns the property value and whether it is set. The error
// is non-nil only when the isolate could not be reached or the native call
// failed, so an unset property is distinguishable from a failure.
func (s *System) LookupProperty(key string) (string, bool, error) {
	iso, err := s.src.Get()
	if err != nil {
		return "", false, err
	}
	rt := iso.Runtime()

	type lookup struct {
		value string
		found bool
	}

	var res lookup
	err = iso.Run(func(th native.ThreadHandle) error {
		cs, st := rt.GetProperty(th, key)
		if !st.OK() {
			return st
		}
		if cs == 0 {
			return nil
		}
		res = lookup{value: rt.GoString(cs), found: true}
		if st := rt.ReleaseProperty(th, cs); !st.OK() {
			s.log.Warn("release property failed", zap.String("key", key), zap.Stringer("status", st))
		}
		return nil
	})

	s.log.Debug("get property", zap.String("key", key), zap.String("value", res.value), zap.Bool("found", res.found), zap.Error(err))
	if err != nil {
		return "", false, err
	}
	return res.value, res.found, nil
}

// SetProperties sets every property in key order and stops at the first
// failure.
func (s *System) SetProperties(props map[string]string) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := s.set(k, props[k]); err != nil {
			return fmt.Errorf("set property %q: %w", k, err)
		}
	}
	return nil
}

// IsUnavailable reports whether err means no isolate could be used.
func IsUnavailable(err error) bool {
	return errors.Is(err, isolate.ErrUnavailable) || errors.Is(err, isolate.ErrClosed)
}
