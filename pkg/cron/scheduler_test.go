package cron

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProcessor struct {
	calls   atomic.Int32
	limit   atomic.Int32
	err     error
	release chan struct{}
}

func (p *stubProcessor) ProcessPending(ctx context.Context, limit int) (int, error) {
	p.calls.Add(1)
	p.limit.Store(int32(limit))
	if p.release != nil {
		<-p.release
	}
	return 1, p.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_RunNow(t *testing.T) {
	p := &stubProcessor{}
	s := NewScheduler(p, Options{Schedule: "@every 1h", BatchSize: 7}, discardLogger())

	s.RunNow()

	assert.Equal(t, int32(1), p.calls.Load())
	assert.Equal(t, int32(7), p.limit.Load())
}

func TestScheduler_Defaults(t *testing.T) {
	s := NewScheduler(&stubProcessor{}, Options{Schedule: "@every 1h"}, discardLogger())

	assert.Equal(t, 20, s.opts.BatchSize)
	assert.Equal(t, 5*time.Minute, s.opts.JobTimeout)
}

func TestScheduler_ErrorDoesNotPanic(t *testing.T) {
	p := &stubProcessor{err: errors.New("db down")}
	s := NewScheduler(p, Options{Schedule: "@every 1h"}, discardLogger())

	assert.NotPanics(t, s.RunNow)
	assert.Equal(t, int32(1), p.calls.Load())
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	p := &stubProcessor{release: make(chan struct{})}
	s := NewScheduler(p, Options{Schedule: "@every 1h"}, discardLogger())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.RunNow()
	}()

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	// first run still blocked, so this one is dropped
	s.RunNow()
	assert.Equal(t, int32(1), p.calls.Load())

	close(p.release)
	wg.Wait()
}

func TestScheduler_StartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(&stubProcessor{}, Options{Schedule: "not a schedule"}, discardLogger())
	assert.Error(t, s.Start())
}

func TestScheduler_StartStop(t *testing.T) {
	s := NewScheduler(&stubProcessor{}, Options{Schedule: "*/5 * * * *"}, discardLogger())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 1)

	<-s.Stop().Done()
}
