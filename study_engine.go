package main

import (
	"sync"
	"time"

	"github.com/hako/durafmt"
)

// recordSaver is the slice of the record store the engine needs; tests
// substitute fakes to observe or fail persists.
type recordSaver interface {
	save(StudyRecords) error
}

// studyEngine owns the accounting state: the per-user daily records and
// the in-memory join times of users currently in a voice channel. One
// mutex serializes every mutation and read, which also keeps persists
// for a single user in event order.
type studyEngine struct {
	mu        sync.Mutex
	records   StudyRecords
	joinTimes map[string]time.Time
	store     recordSaver
	journal   *sessionJournal
	metrics   *botMetrics
}

func newStudyEngine(records StudyRecords, store recordSaver, journal *sessionJournal, metrics *botMetrics) *studyEngine {
	if records == nil {
		records = make(StudyRecords)
	}
	return &studyEngine{
		records:   records,
		joinTimes: make(map[string]time.Time),
		store:     store,
		journal:   journal,
		metrics:   metrics,
	}
}

// restoreOpenSessions seeds join times from the journal after a restart
// so sessions spanning the restart are still credited on leave.
func (e *studyEngine) restoreOpenSessions(sessions map[string]time.Time) {
	if len(sessions) == 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for userID, startedAt := range sessions {
		e.joinTimes[userID] = startedAt
	}
	logger.Info("restored open sessions from journal", "count", len(sessions))
}

// OnPresenceChange applies one voice presence transition.
//
//   - absent → present: record the join time (overwriting any stale
//     entry) and journal it.
//   - present → absent: close the session and accumulate its duration.
//     A leave with no recorded join is a logged no-op; this legitimately
//     happens when the session started before a restart that predates
//     the journal file.
//   - present → present and absent → absent are ignored.
func (e *studyEngine) OnPresenceChange(userID string, wasPresent, isPresent bool, now time.Time) {
	if userID == "" || wasPresent == isPresent {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if isPresent {
		e.joinTimes[userID] = now
		if err := e.journal.RecordStart(userID, now); err != nil {
			logger.Warn("journal session start failed", "user", userIDHash(userID), "error", err)
		}
		logger.Debug("session started", "user", userIDHash(userID))
		return
	}

	start, ok := e.joinTimes[userID]
	delete(e.joinTimes, userID)
	if err := e.journal.ClearStart(userID); err != nil {
		logger.Warn("journal session clear failed", "user", userIDHash(userID), "error", err)
	}
	if !ok {
		logger.Info("session end without matching start; skipping", "user", userIDHash(userID))
		return
	}

	if err := e.recordSessionLocked(userID, start, now); err != nil {
		logger.Error("persist study records failed", "user", userIDHash(userID), "error", err)
	}
}

// recordSessionLocked accumulates one closed session and persists the
// full record set. Callers must hold e.mu.
//
// The whole duration is credited to the day the session ended, so a
// session straddling midnight lands entirely on the later day. Known
// simplification, kept on purpose.
func (e *studyEngine) recordSessionLocked(userID string, start, end time.Time) error {
	duration := end.Sub(start).Seconds()
	if duration < 0 {
		// Clock skew between events; never let it shrink a total.
		duration = 0
	}

	e.records.addSeconds(userID, dateKey(end), duration)
	e.metrics.sessionRecorded()
	logger.Info("session closed",
		"user", userIDHash(userID),
		"duration", durafmt.Parse(end.Sub(start)).LimitFirstN(2).String(),
		"date", dateKey(end))

	if err := e.store.save(e.records); err != nil {
		// Records in memory stay authoritative; the next session close
		// rewrites the whole file and retries the persist.
		e.metrics.persistFailed()
		return err
	}
	return nil
}

type activeSession struct {
	UserHash string `json:"user"`
	Since    string `json:"since"`
	Elapsed  string `json:"elapsed"`
}

// snapshotActiveSessions reports who is currently being tracked, with
// anonymized user ids, for the status endpoint.
func (e *studyEngine) snapshotActiveSessions(now time.Time) []activeSession {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]activeSession, 0, len(e.joinTimes))
	for userID, startedAt := range e.joinTimes {
		out = append(out, activeSession{
			UserHash: userIDHash(userID),
			Since:    startedAt.Format(time.RFC3339),
			Elapsed:  humanShortDuration(now.Sub(startedAt)),
		})
	}
	return out
}

func (e *studyEngine) trackedUserCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.records)
}
