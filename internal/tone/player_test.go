package tone

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/telnotify/internal/model"
)

// fakeProvider records resource lifecycle calls.
type fakeProvider struct {
	mu         sync.Mutex
	next       Handle
	held       map[Handle]Class
	events     []string
	acquireErr error
	startErr   error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{held: make(map[Handle]Class)}
}

func (p *fakeProvider) Acquire(class Class, volume float64) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return 0, p.acquireErr
	}
	p.next++
	p.held[p.next] = class
	p.events = append(p.events, fmt.Sprintf("acquire %d", p.next))
	return p.next, nil
}

func (p *fakeProvider) StartTone(h Handle, id model.ToneID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.events = append(p.events, fmt.Sprintf("start %d %s", h, id))
	return nil
}

func (p *fakeProvider) StopTone(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, fmt.Sprintf("stop %d", h))
}

func (p *fakeProvider) Release(h Handle) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.held[h]; !ok {
		p.events = append(p.events, fmt.Sprintf("double-release %d", h))
		return
	}
	delete(p.held, h)
	p.events = append(p.events, fmt.Sprintf("release %d", h))
}

func (p *fakeProvider) heldCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.held)
}

func (p *fakeProvider) log() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.events...)
}

func waitDone(t *testing.T, tone *Tone) {
	t.Helper()
	select {
	case <-tone.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("tone %s did not finish", tone.ID())
	}
}

func TestTone_CompletesToOff(t *testing.T) {
	p := newFakeProvider()
	tone := NewTone(model.ToneCallEnded, ClassInCall, 5*time.Millisecond, 1, p, nil)

	tone.Start(context.Background())
	waitDone(t, tone)

	assert.Equal(t, StateOff, tone.State())
	assert.Equal(t, ResultCompleted, tone.Result())
	assert.Equal(t, []string{
		"acquire 1",
		"start 1 call-ended",
		"stop 1",
		"release 1",
	}, p.log())
	assert.Zero(t, p.heldCount())
}

func TestTone_StopWhileOn(t *testing.T) {
	p := newFakeProvider()
	tone := NewTone(model.ToneBusy, ClassInCall, time.Minute, 1, p, nil)

	tone.Start(context.Background())
	require.Eventually(t, func() bool { return tone.State() == StateOn }, time.Second, time.Millisecond)

	tone.Stop()
	waitDone(t, tone)

	assert.Equal(t, StateStopped, tone.State())
	assert.Equal(t, ResultStopped, tone.Result())
	assert.Zero(t, p.heldCount())
	assert.NotContains(t, p.log(), "double-release 1")
}

func TestTone_StopBeforeRun(t *testing.T) {
	p := newFakeProvider()
	tone := NewTone(model.ToneBusy, ClassInCall, time.Minute, 1, p, nil)

	tone.Stop()
	tone.Stop() // idempotent
	tone.Run(context.Background())

	assert.Equal(t, StateStopped, tone.State())
	assert.Equal(t, []string{"acquire 1", "release 1"}, p.log())
}

func TestTone_ContextCancelStops(t *testing.T) {
	p := newFakeProvider()
	tone := NewTone(model.ToneBusy, ClassInCall, time.Minute, 1, p, nil)

	ctx, cancel := context.WithCancel(context.Background())
	tone.Start(ctx)
	require.Eventually(t, func() bool { return tone.State() == StateOn }, time.Second, time.Millisecond)

	cancel()
	waitDone(t, tone)

	assert.Equal(t, StateStopped, tone.State())
	assert.Zero(t, p.heldCount())
}

func TestTone_AcquireFailure(t *testing.T) {
	p := newFakeProvider()
	p.acquireErr = errors.New("device busy")
	tone := NewTone(model.ToneBusy, ClassInCall, time.Minute, 1, p, nil)

	tone.Run(context.Background())

	assert.Equal(t, StateOff, tone.State())
	assert.Equal(t, ResultFailed, tone.Result())
	assert.Empty(t, p.log())
}

func TestTone_StartFailureReleases(t *testing.T) {
	p := newFakeProvider()
	p.startErr = errors.New("no such tone")
	tone := NewTone(model.ToneBusy, ClassInCall, time.Minute, 1, p, nil)

	tone.Run(context.Background())

	assert.Equal(t, StateOff, tone.State())
	assert.Equal(t, ResultFailed, tone.Result())
	assert.Equal(t, []string{"acquire 1", "release 1"}, p.log())
}

func TestStateAndResultStrings(t *testing.T) {
	assert.Equal(t, "off", StateOff.String())
	assert.Equal(t, "on", StateOn.String())
	assert.Equal(t, "stopped", StateStopped.String())
	assert.Equal(t, "unknown", State(99).String())

	assert.Equal(t, "pending", ResultPending.String())
	assert.Equal(t, "completed", ResultCompleted.String())
	assert.Equal(t, "stopped", ResultStopped.String())
	assert.Equal(t, "failed", ResultFailed.String())
}
