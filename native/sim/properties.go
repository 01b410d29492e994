package sim

import (
	"errors"
	"sort"
	"sync"
)

var (
	errEmptyKey      = errors.New("key can't be empty")
	errKeyTooLarge   = errors.New("key exceeds max size")
	errValueTooLarge = errors.New("value exceeds max size")
	errTooMany       = errors.New("property table full")
)

// Limits bounds the property table of each simulated isolate.
// Zero means unlimited.
type Limits struct {
	MaxKeySize   int
	MaxValueSize int
	MaxEntries   int
}

// DefaultLimits mirrors the sizes a JVM accepts without complaint in practice.
func DefaultLimits() Limits {
	return Limits{
		MaxKeySize:   1024,
		MaxValueSize: 64 * 1024,
		MaxEntries:   10000,
	}
}

// properties is the system property table of one isolate.
type properties struct {
	data   map[string]string
	limits Limits
	mu     sync.RWMutex
}

func newProperties(limits Limits, seed map[string]string) *properties {
	p := &properties{data: make(map[string]string, len(seed)), limits: limits}
	for k, v := range seed {
		p.data[k] = v
	}
	return p
}

func (p *properties) get(key string) (string, bool) {
	p.mu.RLock()
	val, ok := p.data[key]
	p.mu.RUnlock()
	return val, ok
}

func (p *properties) set(key, value string) error {
	if key == "" {
		return errEmptyKey
	}
	if p.limits.MaxKeySize > 0 && len(key) > p.limits.MaxKeySize {
		return errKeyTooLarge
	}
	if p.limits.MaxValueSize > 0 && len(value) > p.limits.MaxValueSize {
		return errValueTooLarge
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.data[key]; !exists && p.limits.MaxEntries > 0 && len(p.data) >= p.limits.MaxEntries {
		return errTooMany
	}
	p.data[key] = value
	return nil
}

func (p *properties) keys() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.data))
	for k := range p.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
