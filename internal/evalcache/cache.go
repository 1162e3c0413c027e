package evalcache

import (
	"context"
	"sync"

	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
	"go.uber.org/zap"
)

// Store is a second-level cache backend shared across processes.
// Load returns (zero, false, nil) on a miss.
type Store interface {
	Load(ctx context.Context, fen string) (evaluation.Result, bool, error)
	Save(ctx context.Context, res evaluation.Result) error
	Close() error
}

// Cache is an insert-only in-memory evaluation cache with an optional
// backing store. Entries live for the lifetime of the process.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]evaluation.Result
	store   Store
	logger  *zap.Logger
}

type Option func(*Cache)

func WithStore(s Store) Option { return func(c *Cache) { c.store = s } }

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]evaluation.Result),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ evaluation.Cache = (*Cache)(nil)

// Peek reads the in-memory entries only.
func (c *Cache) Peek(fen string) (evaluation.Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	res, ok := c.entries[fen]
	return res, ok
}

// Get reads memory first, then the backing store. Store hits are kept in memory.
func (c *Cache) Get(ctx context.Context, fen string) (evaluation.Result, bool) {
	res, ok := c.Peek(fen)
	if ok || c.store == nil {
		return res, ok
	}

	res, ok, err := c.store.Load(ctx, fen)
	if err != nil {
		c.logger.Warn("evalcache_store_load_error", zap.String("fen", fen), zap.Error(err))
		return evaluation.Result{}, false
	}
	if !ok {
		return evaluation.Result{}, false
	}
	c.insert(res)
	return res, true
}

// Put records a result. An existing entry for the same position is kept.
func (c *Cache) Put(ctx context.Context, res evaluation.Result) {
	if res.FEN == "" || res.Score.Empty() {
		return
	}
	if !c.insert(res) {
		return
	}
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, res); err != nil {
		c.logger.Warn("evalcache_store_save_error", zap.String("fen", res.FEN), zap.Error(err))
	}
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *Cache) insert(res evaluation.Result) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[res.FEN]; exists {
		return false
	}
	c.entries[res.FEN] = res
	return true
}
