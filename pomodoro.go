package main

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// pomodoroManager runs the two-phase focus timer: a focus wait, a
// notification, a rest wait, a final notification. Each user has at most
// one running sequence; starting a new one cancels the old one, and an
// explicit stop cancels any pending notification.
type pomodoroManager struct {
	mu       sync.Mutex
	active   map[string]context.CancelFunc
	maxPhase time.Duration
	wg       sync.WaitGroup
}

func newPomodoroManager(maxPhase time.Duration) *pomodoroManager {
	return &pomodoroManager{
		active:   make(map[string]context.CancelFunc),
		maxPhase: maxPhase,
	}
}

// Start validates the phases and schedules the sequence. The notify
// callback delivers the two phase-end messages; it is called from the
// timer goroutine. Nothing is scheduled when validation fails.
func (p *pomodoroManager) Start(ctx context.Context, userID string, focus, rest time.Duration, notify func(message string)) error {
	if focus <= 0 {
		return fmt.Errorf("집중 시간은 1분 이상이어야 합니다")
	}
	if rest <= 0 {
		return fmt.Errorf("휴식 시간은 1분 이상이어야 합니다")
	}
	if p.maxPhase > 0 && (focus > p.maxPhase || rest > p.maxPhase) {
		return fmt.Errorf("시간은 최대 %d분까지 설정할 수 있습니다", int(p.maxPhase.Minutes()))
	}
	if notify == nil {
		notify = func(string) {}
	}

	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if prev, ok := p.active[userID]; ok {
		prev()
	}
	p.active[userID] = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go p.run(runCtx, userID, focus, rest, notify)
	return nil
}

// Stop cancels the user's running sequence, reporting whether one
// existed.
func (p *pomodoroManager) Stop(userID string) bool {
	p.mu.Lock()
	cancel, ok := p.active[userID]
	if ok {
		delete(p.active, userID)
	}
	p.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// StopAll cancels every running sequence and waits for the timer
// goroutines to exit. Used at shutdown.
func (p *pomodoroManager) StopAll() {
	p.mu.Lock()
	for userID, cancel := range p.active {
		cancel()
		delete(p.active, userID)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *pomodoroManager) running(userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.active[userID]
	return ok
}

func (p *pomodoroManager) run(ctx context.Context, userID string, focus, rest time.Duration, notify func(string)) {
	defer p.wg.Done()
	defer p.finish(ctx, userID)

	if !sleepCtx(ctx, focus) {
		return
	}
	notify(fmt.Sprintf("⏰ <@%s> 집중 시간이 끝났습니다! 이제 %d분 동안 휴식하세요.", userID, int(rest.Minutes())))

	if !sleepCtx(ctx, rest) {
		return
	}
	notify(fmt.Sprintf("🔔 <@%s> 휴식 시간이 끝났습니다!", userID))
}

// finish drops the bookkeeping entry after a completed run. When the run
// was cancelled or replaced, its context is already done and the map
// entry belongs to someone else, so leave it alone.
func (p *pomodoroManager) finish(ctx context.Context, userID string) {
	if ctx.Err() != nil {
		return
	}
	p.mu.Lock()
	delete(p.active, userID)
	p.mu.Unlock()
}

// sleepCtx waits for d, returning false when the context is cancelled
// first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
