// Package cache holds large read-only objects, such as word banks, that
// several commands or players in one process would otherwise load again.
package cache

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type cache struct {
	sync.Mutex
	objects map[string]any
}

var global = &cache{objects: make(map[string]any)}

func (c *cache) get(key string, load func() (any, error)) (any, error) {
	c.Lock()
	defer c.Unlock()
	if obj, ok := c.objects[key]; ok {
		log.Debug().Str("key", key).Msg("getting obj from cache")
		return obj, nil
	}
	log.Debug().Str("key", key).Msg("loading into cache")
	obj, err := load()
	if err != nil {
		return nil, err
	}
	c.objects[key] = obj
	return obj, nil
}

// Load returns the object cached under key, calling load on a miss.
// Failed loads are not cached.
func Load[T any](key string, load func() (T, error)) (T, error) {
	obj, err := global.get(key, func() (any, error) { return load() })
	if err != nil {
		var zero T
		return zero, err
	}
	return obj.(T), nil
}

// Forget drops key so the next Load reads it again.
func Forget(key string) {
	global.Lock()
	defer global.Unlock()
	delete(global.objects, key)
}
