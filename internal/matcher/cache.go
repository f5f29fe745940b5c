package matcher

import "sync"

// resultCache memoizes resolve() outcomes per session id for the life of
// the process. A cached no-match is stored as a nil entry so repeated
// no-match sessions don't re-run the full pipeline.
type resultCache struct {
	mu      sync.Mutex
	results map[string]*Result
	known   map[string]bool
}

func newResultCache() *resultCache {
	return &resultCache{
		results: map[string]*Result{},
		known:   map[string]bool{},
	}
}

func (c *resultCache) get(sessionID string) (*Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.known[sessionID] {
		return nil, false
	}
	return c.results[sessionID], true
}

func (c *resultCache) set(sessionID string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[sessionID] = true
	c.results[sessionID] = result
}
