package user

import (
	"sync"

	"github.com/hashicorp/golang-lru/v2"

	"zentra/internal/gateway/entity"
)

// docCache is an LRU of raw user documents. A read that started before a
// write finished is not allowed to store its result: each in-flight read
// records the user's write generation and fill checks it is unchanged.
type docCache struct {
	mu    sync.Mutex
	lru   *lru.Cache[entity.UserID, []byte]
	reads map[entity.UserID]*pendingRead
}

type pendingRead struct {
	gen uint64
	n   int
}

func newDocCache(size int) (*docCache, error) {
	l, err := lru.New[entity.UserID, []byte](size)
	if err != nil {
		return nil, err
	}
	return &docCache{lru: l, reads: map[entity.UserID]*pendingRead{}}, nil
}

func (c *docCache) get(id entity.UserID) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Get(id)
}

// beginRead registers a read that will miss the cache and go to the
// database. The returned generation must be handed back to fill.
func (c *docCache) beginRead(id entity.UserID) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.reads[id]
	if p == nil {
		p = &pendingRead{}
		c.reads[id] = p
	}
	p.n++
	return p.gen
}

// fill ends a read. raw is cached only when no write to id completed since
// beginRead; a nil raw just releases the read. It reports whether raw was
// cached.
func (c *docCache) fill(id entity.UserID, gen uint64, raw []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.reads[id]
	if p == nil {
		return false
	}
	current := p.gen == gen
	if p.n--; p.n == 0 {
		delete(c.reads, id)
	}
	if !current || raw == nil {
		return false
	}
	c.lru.Add(id, raw)
	return true
}

// invalidate evicts id and fences off reads still in flight. Writers call
// it after their statement has finished.
func (c *docCache) invalidate(id entity.UserID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p := c.reads[id]; p != nil {
		p.gen++
	}
	c.lru.Remove(id)
}

func (c *docCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
