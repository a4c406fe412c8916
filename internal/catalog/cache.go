package catalog

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hpungsan/pmprep/internal/errors"
	"github.com/hpungsan/pmprep/internal/question"
)

// Cache fetches the full catalog at most once and answers filtered queries
// from memory. Filtering uses question.Filter, the same equality match the
// store applies, so a cached query returns what the store would.
//
// A failed fetch is not cached; the next call tries again. Concurrent callers
// that miss the cache share one fetch, and a caller that gives up does not
// cancel it for the others.
type Cache struct {
	src   Source
	group singleflight.Group

	mu     sync.Mutex
	loaded bool
	gen    int
	all    []question.Question
}

var _ Source = (*Cache)(nil)

// NewCache wraps src.
func NewCache(src Source) *Cache {
	return &Cache{src: src}
}

// Questions returns the cached catalog filtered by f.
func (c *Cache) Questions(ctx context.Context, f question.Filter) ([]question.Question, error) {
	c.mu.Lock()
	if c.loaded {
		out := f.Clean().Apply(c.all)
		c.mu.Unlock()
		return out, nil
	}
	gen := c.gen
	c.mu.Unlock()

	// The shared fetch is detached from any one caller's cancellation; the
	// source's own timeout bounds it. Each caller still stops waiting when
	// its ctx is done.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("all", func() (any, error) {
		return c.src.Questions(fetchCtx, question.Filter{})
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, errors.NewFetchFailed("fetch catalog", ctx.Err())
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	all := res.Val.([]question.Question)

	c.mu.Lock()
	defer c.mu.Unlock()
	// An Invalidate during the fetch wins; the result is still returned
	// to this caller but not kept.
	if c.gen == gen && !c.loaded {
		c.all = append([]question.Question(nil), all...)
		c.loaded = true
	}
	if c.loaded {
		return f.Clean().Apply(c.all), nil
	}
	return f.Clean().Apply(all), nil
}

// Categories passes through to the wrapped source.
func (c *Cache) Categories(ctx context.Context) ([]string, error) {
	return c.src.Categories(ctx)
}

// SubCategories passes through to the wrapped source.
func (c *Cache) SubCategories(ctx context.Context, category string) ([]string, error) {
	return c.src.SubCategories(ctx, category)
}

// Toggle passes through and, on success, updates the cached flag.
func (c *Cache) Toggle(ctx context.Context, id string) (bool, error) {
	completed, err := c.src.Toggle(ctx, id)
	if err != nil {
		return false, err
	}
	c.mu.Lock()
	for i := range c.all {
		if c.all[i].ID == id {
			c.all[i].IsCompleted = completed
		}
	}
	c.mu.Unlock()
	return completed, nil
}

// Invalidate drops the cached catalog.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.gen++
	c.all = nil
	c.mu.Unlock()
}
