package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"bikerental/internal/utils"
	"bikerental/pkg/cache"
)

// LockService hands out expiring mutual-exclusion locks. *cache.RedisCache
// implements it for multi-replica deployments.
type LockService interface {
	AcquireLock(ctx context.Context, key string, expiration time.Duration) (*cache.Lock, error)
	ReleaseLock(ctx context.Context, lock *cache.Lock) error
}

type localLock struct {
	token     string
	expiresAt time.Time
}

// localLockService is an in-process LockService for single-replica runs
// without Redis.
type localLockService struct {
	mu    sync.Mutex
	locks map[string]localLock
	clock utils.TimeProvider
}

func NewLocalLockService(clock utils.TimeProvider) LockService {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &localLockService{
		locks: make(map[string]localLock),
		clock: clock,
	}
}

func (s *localLockService) AcquireLock(ctx context.Context, key string, expiration time.Duration) (*cache.Lock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if held, ok := s.locks[key]; ok && now.Before(held.expiresAt) {
		return nil, cache.ErrLockNotAcquired
	}

	token := uuid.NewString()
	s.locks[key] = localLock{token: token, expiresAt: now.Add(expiration)}
	return &cache.Lock{Key: key, Token: token, Expiration: expiration}, nil
}

func (s *localLockService) ReleaseLock(ctx context.Context, lock *cache.Lock) error {
	if lock == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if held, ok := s.locks[lock.Key]; ok && held.token == lock.Token {
		delete(s.locks, lock.Key)
	}
	return nil
}
