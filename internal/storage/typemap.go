package storage

import (
	"sync"
)

// TypeMapperFunc turns a logical model type such as "int" or "timestamp"
// into a column type for one backend.
type TypeMapperFunc func(logical string) string

var (
	typeMu  sync.RWMutex
	typeFns = map[string]TypeMapperFunc{}
)

// RegisterTypeMapper registers (or replaces) the mapper for a storage kind.
// Backends call it from init.
func RegisterTypeMapper(kind string, fn TypeMapperFunc) {
	typeMu.Lock()
	defer typeMu.Unlock()
	typeFns[kind] = fn
}

// TypeMapper returns the mapper registered for kind.
func TypeMapper(kind string) (TypeMapperFunc, bool) {
	typeMu.RLock()
	defer typeMu.RUnlock()
	fn, ok := typeFns[kind]
	return fn, ok
}
