package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/secretlink/secretlink/internal/logging"
)

type countingRepo struct {
	calls atomic.Int64
	err   error
}

func (r *countingRepo) CreateSingleUse(ctx context.Context, jti string, expiresAt time.Time) error {
	return nil
}

func (r *countingRepo) CreateMultiUse(ctx context.Context, jti string, clicksLeft int, expiresAt time.Time) error {
	return nil
}

func (r *countingRepo) ConsumeSingleUse(ctx context.Context, jti string) (bool, error) {
	return false, nil
}

func (r *countingRepo) ConsumeMultiUse(ctx context.Context, jti string) (*int, error) {
	return nil, nil
}

func (r *countingRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	r.calls.Add(1)
	return 2, r.err
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

func TestRun_SweepsOnceWhenIntervalDisabled(t *testing.T) {
	repo := &countingRepo{}
	s := New(repo, testLogger(), 0)

	s.Run(context.Background()) // returns after the startup sweep

	if got := repo.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one sweep, got %d", got)
	}
}

func TestRun_SweepsPeriodicallyUntilCancelled(t *testing.T) {
	repo := &countingRepo{}
	s := New(repo, testLogger(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if got := repo.calls.Load(); got < 2 {
		t.Fatalf("expected at least 2 sweeps (startup + ticks), got %d", got)
	}
}

func TestRun_StorageFaultDoesNotStopTheLoop(t *testing.T) {
	repo := &countingRepo{err: errors.New("db down")}
	s := New(repo, testLogger(), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	<-done

	if got := repo.calls.Load(); got < 2 {
		t.Fatalf("failed sweeps must not stop the loop, got %d calls", got)
	}
}
