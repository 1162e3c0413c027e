package evalcache

import (
	"context"
	"os"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/Cheese-Analysis-Board/internal/evaluation"
	"github.com/redis/go-redis/v9"
)

const testFEN = "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewRedisStore(rdb, 0), mr
}

func TestMemoryCacheIsInsertOnly(t *testing.T) {
	c := New()
	ctx := context.Background()
	c.Put(ctx, evaluation.Result{FEN: testFEN, Score: evaluation.Centipawns(30), Source: evaluation.SourceCloud})
	c.Put(ctx, evaluation.Result{FEN: testFEN, Score: evaluation.Centipawns(-99), Source: evaluation.SourceLocal})

	got, ok := c.Get(ctx, testFEN)
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if got.Source != evaluation.SourceCloud || *got.Score.CP != 30 {
		t.Fatalf("first entry was overwritten: %+v", got)
	}
	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
}

type countingStore struct {
	loads int
	res   evaluation.Result
}

func (s *countingStore) Load(_ context.Context, fen string) (evaluation.Result, bool, error) {
	s.loads++
	return s.res, s.res.FEN == fen, nil
}

func (s *countingStore) Save(context.Context, evaluation.Result) error { return nil }
func (s *countingStore) Close() error                                  { return nil }

func TestPeekNeverTouchesStore(t *testing.T) {
	store := &countingStore{res: evaluation.Result{FEN: testFEN, Score: evaluation.Centipawns(7), Source: evaluation.SourceCloud}}
	c := New(WithStore(store))

	if _, ok := c.Peek(testFEN); ok || store.loads != 0 {
		t.Fatalf("Peek must stay in memory: ok=%v loads=%d", ok, store.loads)
	}
	if _, ok := c.Get(context.Background(), testFEN); !ok || store.loads != 1 {
		t.Fatalf("Get should read through: ok=%v loads=%d", ok, store.loads)
	}
	if got, ok := c.Peek(testFEN); !ok || *got.Score.CP != 7 {
		t.Fatalf("store hit should be kept in memory, got %+v ok=%v", got, ok)
	}
	if store.loads != 1 {
		t.Fatalf("unexpected store loads %d", store.loads)
	}
}

func TestEmptyScoresAreNotCached(t *testing.T) {
	c := New()
	c.Put(context.Background(), evaluation.Result{FEN: testFEN})
	if _, ok := c.Get(context.Background(), testFEN); ok {
		t.Fatalf("empty score should not be cached")
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	if _, ok, err := s.Load(ctx, testFEN); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	want := evaluation.Result{FEN: testFEN, Score: evaluation.MateIn(-3), Source: evaluation.SourceLocal, Depth: 18}
	if err := s.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := s.Load(ctx, testFEN)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if got.Score.Mate == nil || *got.Score.Mate != -3 || got.Depth != 18 {
		t.Fatalf("unexpected result: %+v", got)
	}
	if ttl := mr.TTL("eval:" + testFEN); ttl <= 0 {
		t.Fatalf("expected ttl on key, got %v", ttl)
	}
}

func TestCacheReadsThroughRedis(t *testing.T) {
	s, _ := newTestRedisStore(t)
	ctx := context.Background()

	writer := New(WithStore(s))
	writer.Put(ctx, evaluation.Result{FEN: testFEN, Score: evaluation.Centipawns(12), Source: evaluation.SourceCloud})

	// a second process sharing the same redis
	reader := New(WithStore(s))
	got, ok := reader.Get(ctx, testFEN)
	if !ok || got.Score.CP == nil || *got.Score.CP != 12 {
		t.Fatalf("expected read-through hit, got %+v ok=%v", got, ok)
	}
	if reader.Len() != 1 {
		t.Fatalf("read-through entry not promoted to memory")
	}
}

func TestBadgerStoreInMemory(t *testing.T) {
	s, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	first := evaluation.Result{FEN: testFEN, Score: evaluation.Centipawns(44), Source: evaluation.SourceCloud}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Save(ctx, evaluation.Result{FEN: testFEN, Score: evaluation.Centipawns(1), Source: evaluation.SourceLocal}); err != nil {
		t.Fatalf("Save#2: %v", err)
	}
	got, ok, err := s.Load(ctx, testFEN)
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if *got.Score.CP != 44 {
		t.Fatalf("badger entry overwritten: %+v", got)
	}
}

func TestBadgerStoreOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	if err := s.Save(context.Background(), evaluation.Result{FEN: testFEN, Score: evaluation.MateIn(1), Source: evaluation.SourceLocal}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := OpenBadger(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, err := reopened.Load(context.Background(), testFEN); err != nil || !ok {
		t.Fatalf("entry lost across reopen: ok=%v err=%v", ok, err)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("EVALCACHE_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("EVALCACHE_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres: %v", err)
	}
	defer s.Close()

	fen := "8/8/8/8/8/8/8/K6k w - - 0 1"
	if err := s.Save(ctx, evaluation.Result{FEN: fen, Score: evaluation.Centipawns(0), Source: evaluation.SourceLocal}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, ok, err := s.Load(ctx, fen)
	if err != nil || !ok || got.Score.CP == nil {
		t.Fatalf("Load: %+v ok=%v err=%v", got, ok, err)
	}
}

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@cache.local:6380/2")
	if err != nil {
		t.Fatalf("parseRedisURL: %v", err)
	}
	if opts.Addr != "cache.local:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if _, err := parseRedisURL("http://x"); err == nil {
		t.Fatalf("expected scheme error")
	}
	secure, err := parseRedisURL("rediss://cache.local:6380/0")
	if err != nil {
		t.Fatalf("parseRedisURL rediss: %v", err)
	}
	if secure.TLSConfig == nil || secure.TLSConfig.ServerName != "cache.local" {
		t.Fatalf("rediss must enable TLS, got %+v", secure.TLSConfig)
	}
	plain, err := parseRedisURL("redis://cache.local")
	if err != nil {
		t.Fatalf("parseRedisURL: %v", err)
	}
	if plain.TLSConfig != nil || plain.Addr != "cache.local:6379" {
		t.Fatalf("unexpected plain options %+v", plain)
	}
}

func TestTieredBackfillsFasterStore(t *testing.T) {
	redisStore, _ := newTestRedisStore(t)
	disk, err := OpenBadger("")
	if err != nil {
		t.Fatalf("OpenBadger: %v", err)
	}
	ctx := context.Background()
	want := evaluation.Result{FEN: testFEN, Score: evaluation.Centipawns(12), Source: evaluation.SourceCloud}
	if err := disk.Save(ctx, want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	tiered := NewTiered(redisStore, nil, disk)
	defer tiered.Close()
	if tiered.Len() != 2 {
		t.Fatalf("nil store should be dropped")
	}

	got, ok, err := tiered.Load(ctx, testFEN)
	if err != nil || !ok || *got.Score.CP != 12 {
		t.Fatalf("Load: %+v ok=%v err=%v", got, ok, err)
	}
	if _, ok, err := redisStore.Load(ctx, testFEN); err != nil || !ok {
		t.Fatalf("redis tier not back-filled: ok=%v err=%v", ok, err)
	}
}
