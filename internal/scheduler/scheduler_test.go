package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type blockingRefresher struct {
	calls   int32
	started chan struct{}
	release chan struct{}
}

func newBlockingRefresher() *blockingRefresher {
	return &blockingRefresher{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
	}
}

func (r *blockingRefresher) Refresh(ctx context.Context) {
	atomic.AddInt32(&r.calls, 1)
	r.started <- struct{}{}
	<-r.release
}

type countingRefresher struct {
	calls int32
}

func (r *countingRefresher) Refresh(ctx context.Context) {
	atomic.AddInt32(&r.calls, 1)
}

func TestForceRun_SkipsWhileRunning(t *testing.T) {
	r := newBlockingRefresher()
	s := NewScheduler(r, time.Hour, zap.NewNop())

	s.ForceRun()
	select {
	case <-r.started:
	case <-time.After(time.Second):
		t.Fatal("refresh never started")
	}

	s.ForceRun()
	time.Sleep(50 * time.Millisecond)
	close(r.release)

	assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
}

func TestStart_RunsOnInterval(t *testing.T) {
	r := &countingRefresher{}
	s := NewScheduler(r, time.Second, zap.NewNop())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&r.calls) >= 1
	}, 3*time.Second, 50*time.Millisecond)

	status := s.GetStatus()
	assert.Equal(t, true, status["running"])
	assert.Equal(t, "1s", status["interval"])
}

func TestStart_RejectsNonPositiveInterval(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, 0, zap.NewNop())
	assert.Error(t, s.Start())
	assert.Equal(t, false, s.GetStatus()["running"])
}

func TestStop_Idempotent(t *testing.T) {
	s := NewScheduler(&countingRefresher{}, time.Minute, zap.NewNop())
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	s.Stop()
	s.Stop()
	assert.Equal(t, false, s.GetStatus()["running"])
}
