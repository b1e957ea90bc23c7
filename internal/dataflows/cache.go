package dataflows

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache is a file-backed JSON cache keyed by source, method and request params.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
	now     func() time.Time
}

func NewCache(dir string, ttl time.Duration, enabled bool) *Cache {
	return &Cache{dir: dir, ttl: ttl, enabled: enabled && dir != "", now: time.Now}
}

func (c *Cache) path(source, method string, params any) string {
	data, _ := json.Marshal(params)
	return filepath.Join(c.dir, fmt.Sprintf("%s_%s_%x.json", source, method, md5.Sum(data)))
}

// Get loads a cached entry into out. Expired entries are removed.
func (c *Cache) Get(source, method string, params any, out any) bool {
	if c == nil || !c.enabled {
		return false
	}
	p := c.path(source, method, params)
	info, err := os.Stat(p)
	if err != nil {
		return false
	}
	if c.now().Sub(info.ModTime()) > c.ttl {
		_ = os.Remove(p)
		return false
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (c *Cache) Set(source, method string, params any, value any) error {
	if c == nil || !c.enabled {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}
	p := c.path(source, method, params)
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return os.Rename(tmp, p)
}
