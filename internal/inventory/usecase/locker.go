package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fekuna/omnipos-checkout-service/internal/inventory"
	"github.com/fekuna/omnipos-checkout-service/internal/model"
	"github.com/fekuna/omnipos-checkout-service/pkg/cache"
	"github.com/fekuna/omnipos-checkout-service/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func sortedKeys(keys []model.StockKey) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		s := k.String()
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}

// LocalLocker holds one slot per stock key for a single process. Keys are
// always taken in sorted order so overlapping batches cannot deadlock. A
// caller waiting on a busy key gives up when its context ends.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	slot chan struct{}
	refs int
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*keyLock)}
}

func (l *LocalLocker) Lock(ctx context.Context, keys []model.StockKey) (func(), error) {
	names := sortedKeys(keys)
	held := make([]*keyLock, 0, len(names))
	unwind := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i].slot
			l.release(names[i])
		}
	}

	for _, name := range names {
		kl := l.acquire(name)
		select {
		case kl.slot <- struct{}{}:
			held = append(held, kl)
		case <-ctx.Done():
			l.release(name)
			unwind()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(unwind) }, nil
}

func (l *LocalLocker) acquire(name string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl, ok := l.locks[name]
	if !ok {
		kl = &keyLock{slot: make(chan struct{}, 1)}
		l.locks[name] = kl
	}
	kl.refs++
	return kl
}

func (l *LocalLocker) release(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	kl := l.locks[name]
	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, name)
	}
}

type RedisLockerConfig struct {
	TTL        time.Duration
	Retries    int
	RetryDelay time.Duration
}

// RedisLocker takes one SETNX lock per key so several service instances can
// share a ledger.
type RedisLocker struct {
	cache  *cache.RedisClient
	cfg    RedisLockerConfig
	logger logger.ZapLogger
}

func NewRedisLocker(c *cache.RedisClient, cfg RedisLockerConfig, log logger.ZapLogger) *RedisLocker {
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 100 * time.Millisecond
	}
	return &RedisLocker{cache: c, cfg: cfg, logger: log}
}

func (l *RedisLocker) Lock(ctx context.Context, keys []model.StockKey) (func(), error) {
	token := uuid.New().String()
	names := sortedKeys(keys)
	held := make([]string, 0, len(names))

	releaseAll := func() {
		// release with a fresh context so a cancelled request still unlocks
		rctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if err := l.cache.ReleaseLock(rctx, held[i], token); err != nil {
				l.logger.Warn("failed to release stock lock", zap.String("key", held[i]), zap.Error(err))
			}
		}
	}

	for _, name := range names {
		lockKey := "lock:stock:" + name
		acquired := false
		for i := 0; i < l.cfg.Retries; i++ {
			ok, err := l.cache.AcquireLock(ctx, lockKey, token, l.cfg.TTL)
			if err != nil {
				l.logger.Error("failed to acquire lock redis error", zap.String("key", lockKey), zap.Error(err))
			}
			if ok {
				acquired = true
				break
			}
			select {
			case <-ctx.Done():
				releaseAll()
				return nil, ctx.Err()
			case <-time.After(l.cfg.RetryDelay):
			}
		}
		if !acquired {
			releaseAll()
			return nil, fmt.Errorf("%w: %s", inventory.ErrLockTimeout, name)
		}
		held = append(held, lockKey)
	}

	var once sync.Once
	return func() { once.Do(releaseAll) }, nil
}
