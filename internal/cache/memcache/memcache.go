// Package memcache is an in-process BytesCache for single-instance setups,
// backed by ttlcache.
package memcache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

type Cache struct {
	items *ttlcache.Cache[string, []byte]
}

// New returns a cache whose entries expire exactly ttl after Set; reads do
// not extend them.
func New() *Cache {
	return &Cache{
		items: ttlcache.New[string, []byte](
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		),
	}
}

func (c *Cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	it := c.items.Get(key)
	if it == nil {
		return nil, false, nil
	}
	return it.Value(), true, nil
}

// Set stores a copy of value. A non-positive ttl stores nothing.
func (c *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	v := make([]byte, len(value))
	copy(v, value)
	c.items.Set(key, v, ttl)
	return nil
}

// Run evicts expired entries in the background until ctx is done. Without it
// expired entries are only hidden from Get.
func (c *Cache) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		c.items.Stop()
	}()
	c.items.Start()
	return nil
}

func (c *Cache) Len() int {
	return c.items.Len()
}
