package application_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/trackersync/internal/application"
	"github.com/ericfisherdev/trackersync/internal/domain/model"
)

type fakeRunner struct {
	mu      sync.Mutex
	calls   int32
	filters []model.SyncFilter
	err     error
}

func (r *fakeRunner) SyncNow(_ context.Context, filter model.SyncFilter) (model.SyncResult, error) {
	atomic.AddInt32(&r.calls, 1)
	r.mu.Lock()
	r.filters = append(r.filters, filter)
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return model.SyncResult{}, err
	}
	return model.SyncResult{Scanned: 2, Pulled: 1, Errors: []string{"ENG-2: boom"}, At: time.Now().UTC()}, nil
}

func (r *fakeRunner) count() int32 { return atomic.LoadInt32(&r.calls) }

func startPoller(t *testing.T, p *application.Poller) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Start(context.Background())
	}()
	t.Cleanup(func() {
		p.Stop()
		<-done
	})
}

func TestPoller_TriggerNow(t *testing.T) {
	runner := &fakeRunner{}
	p := application.NewPoller(runner, time.Hour)
	startPoller(t, p)

	_, ok := p.LastResult()
	assert.False(t, ok)

	filter := model.SyncFilter{TaskID: "task-1"}
	result, err := p.TriggerNow(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pulled)
	assert.Equal(t, []model.SyncFilter{filter}, runner.filters)

	last, ok := p.LastResult()
	require.True(t, ok)
	assert.Equal(t, result, last)
}

func TestPoller_SyncNowDelegatesToLoop(t *testing.T) {
	runner := &fakeRunner{}
	p := application.NewPoller(runner, time.Hour)
	startPoller(t, p)

	var runnerIface application.SyncRunner = p
	_, err := runnerIface.SyncNow(context.Background(), model.SyncFilter{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), runner.count())
}

func TestPoller_TicksOnInterval(t *testing.T) {
	runner := &fakeRunner{}
	p := application.NewPoller(runner, 10*time.Millisecond)
	startPoller(t, p)

	assert.Eventually(t, func() bool { return runner.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestPoller_FailedPassKeepsPreviousResult(t *testing.T) {
	runner := &fakeRunner{}
	p := application.NewPoller(runner, time.Hour)
	startPoller(t, p)

	first, err := p.TriggerNow(context.Background(), model.SyncFilter{})
	require.NoError(t, err)

	runner.mu.Lock()
	runner.err = errors.New("db down")
	runner.mu.Unlock()

	_, err = p.TriggerNow(context.Background(), model.SyncFilter{})
	require.Error(t, err)

	last, ok := p.LastResult()
	require.True(t, ok)
	assert.Equal(t, first, last)
}

func TestPoller_TriggerWithoutLoopHonorsContext(t *testing.T) {
	p := application.NewPoller(&fakeRunner{}, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.TriggerNow(ctx, model.SyncFilter{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoller_StopWithoutStart(t *testing.T) {
	p := application.NewPoller(&fakeRunner{}, time.Hour)
	assert.NotPanics(t, p.Stop)
}
