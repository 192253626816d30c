package main

import "sync"

// botMetrics collects coarse counters for the status endpoint. All
// methods are nil-safe so wiring stays optional in tests.
type botMetrics struct {
	mu               sync.RWMutex
	sessionsRecorded uint64
	persistErrors    uint64
	commandsServed   uint64
	pomodorosStarted uint64
}

func newBotMetrics() *botMetrics {
	return &botMetrics{}
}

func (m *botMetrics) sessionRecorded() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.sessionsRecorded++
	m.mu.Unlock()
}

func (m *botMetrics) persistFailed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.persistErrors++
	m.mu.Unlock()
}

func (m *botMetrics) commandServed() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.commandsServed++
	m.mu.Unlock()
}

func (m *botMetrics) pomodoroStarted() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.pomodorosStarted++
	m.mu.Unlock()
}

type metricsSnapshot struct {
	SessionsRecorded uint64 `json:"sessions_recorded"`
	PersistErrors    uint64 `json:"persist_errors"`
	CommandsServed   uint64 `json:"commands_served"`
	PomodorosStarted uint64 `json:"pomodoros_started"`
}

func (m *botMetrics) snapshot() metricsSnapshot {
	if m == nil {
		return metricsSnapshot{}
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return metricsSnapshot{
		SessionsRecorded: m.sessionsRecorded,
		PersistErrors:    m.persistErrors,
		CommandsServed:   m.commandsServed,
		PomodorosStarted: m.pomodorosStarted,
	}
}
