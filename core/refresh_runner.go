package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultRefreshMaxAttempts    = 3
	defaultRefreshInitialBackoff = 500 * time.Millisecond
	defaultRefreshMaxBackoff     = 10 * time.Second
	defaultRefreshLockTTL        = 30 * time.Second
)

type LockHandle interface {
	Unlock(ctx context.Context) error
}

type ConnectionLocker interface {
	Acquire(ctx context.Context, connectionID string, ttl time.Duration) (LockHandle, error)
}

type RefreshBackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultRefreshInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultRefreshMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// RefreshGroup collapses concurrent refreshes for the same connection into a
// single in-flight call. Every waiter receives the same TokenSet or error.
type RefreshGroup struct {
	mu    sync.Mutex
	calls map[string]*refreshCall
}

type refreshCall struct {
	done   chan struct{}
	tokens TokenSet
	err    error
}

func NewRefreshGroup() *RefreshGroup {
	return &RefreshGroup{calls: make(map[string]*refreshCall)}
}

// Do runs fn for connectionID unless another goroutine is already running it,
// in which case it waits for that result instead. The shared flag reports
// whether the result came from another caller's run.
func (g *RefreshGroup) Do(ctx context.Context, connectionID string, fn func(ctx context.Context) (TokenSet, error)) (tokens TokenSet, shared bool, err error) {
	if g == nil {
		tokens, err = fn(ctx)
		return tokens, false, err
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return TokenSet{}, false, fmt.Errorf("core: connection id is required")
	}

	g.mu.Lock()
	if call, ok := g.calls[connectionID]; ok {
		g.mu.Unlock()
		select {
		case <-call.done:
			return call.tokens, true, call.err
		case <-ctx.Done():
			return TokenSet{}, true, ctx.Err()
		}
	}

	call := &refreshCall{done: make(chan struct{})}
	g.calls[connectionID] = call
	g.mu.Unlock()

	call.tokens, call.err = fn(ctx)
	close(call.done)

	g.mu.Lock()
	delete(g.calls, connectionID)
	g.mu.Unlock()

	return call.tokens, false, call.err
}

func isUnrecoverableRefreshError(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.Category {
		case goerrors.CategoryAuth, goerrors.CategoryAuthz, goerrors.CategoryValidation, goerrors.CategoryNotFound:
			return true
		}
		switch strings.TrimSpace(strings.ToUpper(richErr.TextCode)) {
		case ErrorCodeReconnectRequired, ErrorCodeAuthExchange, "TOKEN_EXPIRED", "UNAUTHORIZED":
			return true
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(msg, "invalid_grant") ||
		strings.Contains(msg, "invalid refresh token") ||
		strings.Contains(msg, "reauthorization required")
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type MemoryConnectionLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	nowFn func() time.Time
}

func NewMemoryConnectionLocker() *MemoryConnectionLocker {
	return &MemoryConnectionLocker{
		locks: make(map[string]time.Time),
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryConnectionLocker) Acquire(_ context.Context, connectionID string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: connection locker is not configured")
	}
	connectionID = strings.TrimSpace(connectionID)
	if connectionID == "" {
		return nil, fmt.Errorf("core: connection id is required for lock acquisition")
	}
	if ttl <= 0 {
		ttl = defaultRefreshLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.locks[connectionID]; ok && now.Before(until) {
		return nil, newServiceError(
			fmt.Sprintf("refresh lock already held for connection %q", connectionID),
			goerrors.CategoryConflict, ErrorCodeRefreshLocked)
	}
	l.locks[connectionID] = now.Add(ttl)
	return &memoryLockHandle{locker: l, connectionID: connectionID}, nil
}

type memoryLockHandle struct {
	locker       *MemoryConnectionLocker
	connectionID string
	once         sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.locks, h.connectionID)
		h.locker.mu.Unlock()
	})
	return nil
}
