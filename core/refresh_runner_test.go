package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

func TestExponentialBackoffScheduler_NextDelay(t *testing.T) {
	scheduler := ExponentialBackoffScheduler{Initial: 100 * time.Millisecond, Max: time.Second}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{attempt: 0, want: 100 * time.Millisecond},
		{attempt: 1, want: 100 * time.Millisecond},
		{attempt: 2, want: 200 * time.Millisecond},
		{attempt: 3, want: 400 * time.Millisecond},
		{attempt: 4, want: 800 * time.Millisecond},
		{attempt: 5, want: time.Second},
		{attempt: 10, want: time.Second},
	}
	for _, tc := range cases {
		if got := scheduler.NextDelay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}
}

func TestExponentialBackoffScheduler_ZeroValuesUseDefaults(t *testing.T) {
	scheduler := ExponentialBackoffScheduler{}
	if got := scheduler.NextDelay(1); got != defaultRefreshInitialBackoff {
		t.Fatalf("expected default initial backoff, got %v", got)
	}
	if got := scheduler.NextDelay(20); got != defaultRefreshMaxBackoff {
		t.Fatalf("expected default max backoff, got %v", got)
	}
}

func TestRefreshGroup_CollapsesConcurrentRefreshes(t *testing.T) {
	group := NewRefreshGroup()
	release := make(chan struct{})
	var calls int

	const waiters = 5
	results := make([]bool, waiters)
	var wg sync.WaitGroup
	wg.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func(idx int) {
			defer wg.Done()
			tokens, shared, err := group.Do(context.Background(), "conn_1", func(context.Context) (TokenSet, error) {
				calls++
				<-release
				return TokenSet{AccessToken: "at-shared"}, nil
			})
			if err != nil {
				t.Errorf("refresh %d: %v", idx, err)
				return
			}
			if tokens.AccessToken != "at-shared" {
				t.Errorf("refresh %d: unexpected tokens %+v", idx, tokens)
			}
			results[idx] = shared
		}(i)
	}

	// Let the waiters pile onto the in-flight call before releasing it.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls != 1 {
		t.Fatalf("expected a single refresh call, got %d", calls)
	}
	sharedCount := 0
	for _, shared := range results {
		if shared {
			sharedCount++
		}
	}
	if sharedCount != waiters-1 {
		t.Fatalf("expected %d shared results, got %d", waiters-1, sharedCount)
	}
}

func TestRefreshGroup_ErrorsAreSharedWithWaiters(t *testing.T) {
	group := NewRefreshGroup()
	wantErr := fmt.Errorf("upstream refused")

	_, _, err := group.Do(context.Background(), "conn_1", func(context.Context) (TokenSet, error) {
		return TokenSet{}, wantErr
	})
	if err == nil || err.Error() != wantErr.Error() {
		t.Fatalf("expected refresh error, got: %v", err)
	}

	// The failed call is no longer in flight; the next caller runs its own.
	tokens, shared, err := group.Do(context.Background(), "conn_1", func(context.Context) (TokenSet, error) {
		return TokenSet{AccessToken: "at-retry"}, nil
	})
	if err != nil {
		t.Fatalf("retry refresh: %v", err)
	}
	if shared {
		t.Fatalf("expected a fresh call, not a shared result")
	}
	if tokens.AccessToken != "at-retry" {
		t.Fatalf("unexpected tokens: %+v", tokens)
	}
}

func TestMemoryConnectionLocker_ConflictAndUnlock(t *testing.T) {
	ctx := context.Background()
	locker := NewMemoryConnectionLocker()

	handle, err := locker.Acquire(ctx, "conn_1", time.Minute)
	if err != nil {
		t.Fatalf("acquire lock: %v", err)
	}

	_, err = locker.Acquire(ctx, "conn_1", time.Minute)
	if err == nil {
		t.Fatalf("expected held lock to reject a second acquisition")
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		t.Fatalf("expected rich error, got %T", err)
	}
	if richErr.Category != goerrors.CategoryConflict || richErr.TextCode != ErrorCodeRefreshLocked {
		t.Fatalf("unexpected lock conflict envelope: category=%v text_code=%q", richErr.Category, richErr.TextCode)
	}

	if err := handle.Unlock(ctx); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if _, err := locker.Acquire(ctx, "conn_1", time.Minute); err != nil {
		t.Fatalf("expected lock to be reacquirable after unlock: %v", err)
	}

	// Unlock is idempotent and does not release the new holder's lock.
	if err := handle.Unlock(ctx); err != nil {
		t.Fatalf("second unlock: %v", err)
	}
	if _, err := locker.Acquire(ctx, "conn_1", time.Minute); err == nil {
		t.Fatalf("expected the new holder's lock to survive a stale unlock")
	}
}

func TestIsUnrecoverableRefreshError(t *testing.T) {
	unrecoverable := []error{
		goerrors.New("refresh token revoked", goerrors.CategoryAuth),
		goerrors.New("bad grant", goerrors.CategoryExternal).WithTextCode("TOKEN_EXPIRED"),
		fmt.Errorf("provider says invalid_grant"),
		fmt.Errorf("invalid refresh token"),
	}
	for _, err := range unrecoverable {
		if !isUnrecoverableRefreshError(err) {
			t.Fatalf("expected %v to be unrecoverable", err)
		}
	}

	recoverable := []error{
		nil,
		fmt.Errorf("connection reset by peer"),
		goerrors.New("upstream 502", goerrors.CategoryExternal),
	}
	for _, err := range recoverable {
		if isUnrecoverableRefreshError(err) {
			t.Fatalf("expected %v to be recoverable", err)
		}
	}
}
