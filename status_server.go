package main

import (
	"context"
	"net/http"
	"time"

	"github.com/hako/durafmt"
)

// statusServer exposes a small read-only JSON endpoint with uptime,
// counters, and the currently tracked sessions (user ids anonymized).
type statusServer struct {
	engine    *studyEngine
	metrics   *botMetrics
	startedAt time.Time
	srv       *http.Server
}

type statusResponse struct {
	Uptime         string          `json:"uptime"`
	UsersTracked   int             `json:"users_tracked"`
	ActiveSessions []activeSession `json:"active_sessions"`
	Metrics        metricsSnapshot `json:"metrics"`
}

func newStatusServer(addr string, engine *studyEngine, metrics *botMetrics) *statusServer {
	if addr == "" {
		return nil
	}
	s := &statusServer{
		engine:    engine,
		metrics:   metrics,
		startedAt: time.Now(),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *statusServer) start() {
	if s == nil {
		return
	}
	go func() {
		logger.Info("status server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("status server failed", "error", err)
		}
	}()
}

func (s *statusServer) stop(ctx context.Context) {
	if s == nil {
		return
	}
	_ = s.srv.Shutdown(ctx)
}

func (s *statusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	now := time.Now()
	resp := statusResponse{
		Uptime:         durafmt.Parse(now.Sub(s.startedAt)).LimitFirstN(2).String(),
		UsersTracked:   s.engine.trackedUserCount(),
		ActiveSessions: s.engine.snapshotActiveSessions(now),
		Metrics:        s.metrics.snapshot(),
	}

	data, err := fastJSONMarshal(resp)
	if err != nil {
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
