package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"

	"github.com/artur-silva-empresa/Texdex/internal/domain"
	"github.com/artur-silva-empresa/Texdex/pkg/logging"
)

// ImportLockKey is the Redis key guarding imports
const ImportLockKey = "texflow:import"

// DefaultImportLockTTL outlives the merge timeout so a slow import keeps the lock
const DefaultImportLockTTL = 10 * time.Minute

// Obtainer is the part of redislock.Client the import lock uses
type Obtainer interface {
	Obtain(ctx context.Context, key string, ttl time.Duration, opt *redislock.Options) (*redislock.Lock, error)
}

// ImportLock implements domain.ImportLock with a Redis lease
type ImportLock struct {
	locker Obtainer
	key    string
	ttl    time.Duration
	logger *logging.Logger
}

// NewImportLock creates a new ImportLock; locker is usually redislock.New(rdb)
func NewImportLock(locker Obtainer, ttl time.Duration, logger *logging.Logger) *ImportLock {
	if ttl <= 0 {
		ttl = DefaultImportLockTTL
	}
	return &ImportLock{
		locker: locker,
		key:    ImportLockKey,
		ttl:    ttl,
		logger: logger.WithComponent("import-lock"),
	}
}

// Acquire takes the lock without waiting
func (l *ImportLock) Acquire(ctx context.Context) (func(), error) {
	lock, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrImportInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain import lock: %w", err)
	}

	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := lock.Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.logger.WithError(err).Warn("Failed to release import lock")
		}
	}, nil
}
