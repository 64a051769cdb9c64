package gateway

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// DefaultStaleness is how long a warmed entry stays fresh. Stale entries are
// still served; staleness only makes them eligible for an async refresh.
const DefaultStaleness = 5 * time.Minute

// interestingCharacteristics is the fixed allow-list of characteristic names
// the cache tracks. Everything else is read on demand, never cached.
var interestingCharacteristics = []string{
	"power", "brightness", "current_temperature", "target_temperature",
	"mode", "lock_state", "door_state", "position", "active",
	"rotation_speed", "motion", "contact", "humidity", "battery_level",
}

// Interesting reports whether a characteristic name is on the cache
// allow-list.
func Interesting(name string) bool {
	return slices.Contains(interestingCharacteristics, strings.ToLower(name))
}

// CacheEntry is the last known interesting state of one accessory.
type CacheEntry struct {
	Values   map[string]string `json:"values"`
	WarmedAt time.Time         `json:"warmed_at"`
}

// cacheFile is the persisted shape of the cache: one JSON document.
type cacheFile struct {
	Fingerprint string                 `json:"fingerprint"`
	Entries     map[string]*CacheEntry `json:"entries"`
}

// Cache holds the last known interesting state per accessory, persisted to
// disk after every mutation so restarts start warm.
//
// Cache is not safe for concurrent use: the graph-owner loop is its only
// mutator, and every reader goes through that loop.
type Cache struct {
	path        string
	staleness   time.Duration
	fingerprint string
	entries     map[string]*CacheEntry
}

// NewCache creates an empty cache persisted at path. staleness <= 0 selects
// DefaultStaleness.
func NewCache(path string, staleness time.Duration) *Cache {
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Cache{
		path:      path,
		staleness: staleness,
		entries:   make(map[string]*CacheEntry),
	}
}

// Load restores the persisted cache. A missing file leaves the cache empty.
func (c *Cache) Load() error {
	var file cacheFile
	found, err := readJSONFile(c.path, &file)
	if err != nil || !found {
		return err
	}
	c.fingerprint = file.Fingerprint
	if file.Entries != nil {
		c.entries = file.Entries
	}
	return nil
}

func (c *Cache) persist() {
	if c.path == "" {
		return
	}
	file := cacheFile{Fingerprint: c.fingerprint, Entries: c.entries}
	if err := writeJSONFile(c.path, file); err != nil {
		slog.Warn("failed to persist cache", "path", c.path, "err", err)
	}
}

// Fingerprint computes the stable device-set fingerprint: a sha256 over the
// sorted id set.
func Fingerprint(ids []string) string {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	sum := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(sum[:8])
}

// SetFingerprint records the current filtered-set fingerprint. When it
// differs from the stored one, the whole cache is invalidated: stale values
// could belong to now-excluded devices.
func (c *Cache) SetFingerprint(fp string) (invalidated bool) {
	if c.fingerprint == fp {
		return false
	}
	hadEntries := len(c.entries) > 0
	c.fingerprint = fp
	c.entries = make(map[string]*CacheEntry)
	c.persist()
	return hadEntries
}

// Values returns the cached values of one accessory, or nil.
func (c *Cache) Values(id string) map[string]string {
	if entry, ok := c.entries[id]; ok {
		return entry.Values
	}
	return nil
}

// Fresh reports whether the accessory's entry exists and is inside the
// staleness window.
func (c *Cache) Fresh(id string) bool {
	entry, ok := c.entries[id]
	return ok && time.Since(entry.WarmedAt) < c.staleness
}

// Put replaces the entry of one accessory with freshly-read values.
func (c *Cache) Put(id string, values map[string]string) {
	c.entries[id] = &CacheEntry{Values: values, WarmedAt: time.Now()}
	c.persist()
}

// Patch updates exactly one field from a change notification, without
// touching the warm timestamp. Missing entries are created so device-set
// changes are visible before the next warm.
func (c *Cache) Patch(id, name, value string) {
	entry, ok := c.entries[id]
	if !ok {
		entry = &CacheEntry{Values: make(map[string]string)}
		c.entries[id] = entry
	}
	entry.Values[name] = value
	c.persist()
}

// Stats summarizes the cache for the status command.
func (c *Cache) Stats() (entries, fresh int, lastWarm time.Time) {
	for id, entry := range c.entries {
		entries++
		if c.Fresh(id) {
			fresh++
		}
		if entry.WarmedAt.After(lastWarm) {
			lastWarm = entry.WarmedAt
		}
	}
	return entries, fresh, lastWarm
}

// StoredFingerprint returns the fingerprint of the persisted entry set.
func (c *Cache) StoredFingerprint() string {
	return c.fingerprint
}
