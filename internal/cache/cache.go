// Package cache stores parsed test modules on disk so unchanged files are
// not re-parsed between runs.
package cache

import (
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/panbanda/gravedigger/pkg/registry"
	"github.com/zeebo/blake3"
)

// schemaVersion is part of every key; bump it when ClassDescriptor changes shape.
const schemaVersion = "v1"

// Cache provides file-based caching of module scan results.
type Cache struct {
	dir     string
	ttl     time.Duration
	enabled bool
}

// Entry represents a cached module.
type Entry struct {
	Hash      string                     `json:"hash"`
	Timestamp time.Time                  `json:"timestamp"`
	Classes   []registry.ClassDescriptor `json:"classes"`
}

// New creates a new cache instance.
func New(dir string, ttlHours int, enabled bool) (*Cache, error) {
	if !enabled {
		return &Cache{enabled: false}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Cache{
		dir:     dir,
		ttl:     time.Duration(ttlHours) * time.Hour,
		enabled: true,
	}, nil
}

// Disabled returns a cache that never stores anything.
func Disabled() *Cache {
	return &Cache{}
}

// Enabled reports whether the cache stores entries.
func (c *Cache) Enabled() bool {
	return c != nil && c.enabled
}

// HashBytes computes a BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// Get returns the cached classes of the module at path if the stored
// content hash matches hash and the entry has not expired.
func (c *Cache) Get(path, hash string) ([]registry.ClassDescriptor, bool) {
	if !c.Enabled() {
		return nil, false
	}

	keyPath := c.keyPath(path)
	data, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, false
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	if entry.Hash != hash {
		return nil, false
	}

	if c.ttl > 0 && time.Since(entry.Timestamp) > c.ttl {
		os.Remove(keyPath)
		return nil, false
	}

	return entry.Classes, true
}

// Set stores the classes of the module at path together with its content hash.
func (c *Cache) Set(path, hash string, classes []registry.ClassDescriptor) error {
	if !c.Enabled() {
		return nil
	}

	entryData, err := json.Marshal(Entry{
		Hash:      hash,
		Timestamp: time.Now(),
		Classes:   classes,
	})
	if err != nil {
		return err
	}

	return os.WriteFile(c.keyPath(path), entryData, 0600)
}

// keyPath converts a module path to a cache file path.
func (c *Cache) keyPath(path string) string {
	hash := blake3.Sum256([]byte(schemaVersion + ":" + path))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".json")
}
