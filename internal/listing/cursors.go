package listing

import "github.com/mastera/partnerdesk/internal/registry"

// CursorCache maps page numbers to the cursor that fetches them. The entry
// for page 1 is always the null cursor. The cache is only meaningful for the
// filter snapshot it was built under.
type CursorCache struct {
	// entries[p-1] is the cursor for page p.
	entries []registry.Cursor
}

// NewCursorCache returns a cache that knows only page 1.
func NewCursorCache() CursorCache {
	return CursorCache{entries: []registry.Cursor{""}}
}

// Reset forgets every page except page 1.
func (c *CursorCache) Reset() {
	c.entries = []registry.Cursor{""}
}

// CursorFor returns the cursor for page p. ok is false when page p has not
// been reached under the current snapshot.
func (c *CursorCache) CursorFor(p int) (registry.Cursor, bool) {
	if p < 1 || p > len(c.entries) {
		return "", false
	}
	return c.entries[p-1], true
}

// Known returns the highest page whose cursor is known.
func (c *CursorCache) Known() int {
	return len(c.entries)
}

// Record stores the result of fetching page p: the cursor for page p+1 when
// hasNext is true. A cursor that differs from a previously recorded one, or
// a page without a successor, invalidates every later page.
func (c *CursorCache) Record(p int, next registry.Cursor, hasNext bool) {
	if p < 1 || p > len(c.entries) {
		return
	}
	if !hasNext {
		c.entries = c.entries[:p]
		return
	}
	if p < len(c.entries) {
		if c.entries[p] == next {
			return
		}
		c.entries = c.entries[:p]
	}
	c.entries = append(c.entries, next)
}

// Snapshot returns a copy of the cached cursors, page 1 first.
func (c *CursorCache) Snapshot() []registry.Cursor {
	return append([]registry.Cursor(nil), c.entries...)
}
