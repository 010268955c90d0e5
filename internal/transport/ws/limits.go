package ws

import (
	"sync"
	"time"

	"thegrind.cafe/internal/protocol"
)

const (
	// Replayed ACTION ids get the original RESULT for this many ticks.
	resultTTLTicks = uint64(3000)

	actionWindow     = time.Second
	actionsPerWindow = 20
)

type resultKey struct {
	client string
	id     string
}

type cachedResult struct {
	res     protocol.ResultMsg
	expires uint64
}

// resultCache remembers RESULTs by (client name, action id) across sessions,
// so a client retrying after a dropped connection does not buy twice.
type resultCache struct {
	mu sync.Mutex
	m  map[resultKey]cachedResult
}

func (c *resultCache) get(client, id string, now uint64) (protocol.ResultMsg, bool) {
	if id == "" {
		return protocol.ResultMsg{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range c.m {
		if now >= v.expires {
			delete(c.m, k)
		}
	}
	e, ok := c.m[resultKey{client, id}]
	return e.res, ok
}

func (c *resultCache) put(client string, res protocol.ResultMsg, now uint64) {
	if res.ID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = map[resultKey]cachedResult{}
	}
	c.m[resultKey{client, res.ID}] = cachedResult{res: res, expires: now + resultTTLTicks}
}

// allow is a fixed-window action counter.
func (s *session) allow(now time.Time) bool {
	if now.Sub(s.windowStart) >= actionWindow {
		s.windowStart = now
		s.windowCount = 0
	}
	s.windowCount++
	return s.windowCount <= actionsPerWindow
}
