package application

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

// slotCache stores recently computed calendar views so repeated slot queries
// do not re-run availability resolution while the mentor's calendar remains
// unchanged. Any write touching a mentor invalidates that mentor's entries.
type slotCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	entries    map[string]slotCacheEntry
}

type slotCacheEntry struct {
	mentorID  string
	slots     []Slot
	expiresAt time.Time
}

func newSlotCache(ttl time.Duration, maxEntries int, now func() time.Time) *slotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 128
	}
	if now == nil {
		now = time.Now
	}
	return &slotCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]slotCacheEntry),
	}
}

func (c *slotCache) Get(key string) ([]Slot, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, false
	}
	return cloneSlots(entry.slots), true
}

func (c *slotCache) Store(key, mentorID string, slots []Slot) {
	if c == nil {
		return
	}
	cloned := cloneSlots(slots)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = slotCacheEntry{mentorID: mentorID, slots: cloned, expiresAt: expiry}
}

// InvalidateMentor drops every cached view for the mentor.
func (c *slotCache) InvalidateMentor(mentorID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	for key, entry := range c.entries {
		if entry.mentorID == mentorID {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

func (c *slotCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *slotCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneSlots(slots []Slot) []Slot {
	if len(slots) == 0 {
		return nil
	}
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}

func buildSlotCacheKey(mentorID string, date time.Time, granularity time.Duration) string {
	builder := strings.Builder{}
	builder.WriteString(mentorID)
	builder.WriteString("|")
	builder.WriteString(date.UTC().Format("2006-01-02"))
	builder.WriteString("|")
	builder.WriteString(strconv.FormatInt(int64(granularity/time.Minute), 10))
	return builder.String()
}
