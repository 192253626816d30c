package main

import (
	"errors"
	"testing"
	"time"
)

type fakeSaver struct {
	saves int
	fail  bool
	last  StudyRecords
}

func (f *fakeSaver) save(records StudyRecords) error {
	f.saves++
	f.last = records.clone()
	if f.fail {
		return errors.New("disk full")
	}
	return nil
}

func newTestEngine() (*studyEngine, *fakeSaver) {
	saver := &fakeSaver{}
	return newStudyEngine(make(StudyRecords), saver, nil, newBotMetrics()), saver
}

func TestPresenceSessionAccumulatesNinetySeconds(t *testing.T) {
	engine, saver := newTestEngine()

	t0 := time.Date(2024, 6, 1, 14, 0, 0, 0, time.Local)
	engine.OnPresenceChange("user-1", false, true, t0)
	if saver.saves != 0 {
		t.Fatalf("join must not persist, got %d saves", saver.saves)
	}

	engine.OnPresenceChange("user-1", true, false, t0.Add(90*time.Second))
	if saver.saves != 1 {
		t.Fatalf("expected exactly 1 persist after session close, got %d", saver.saves)
	}

	key := dateKey(t0.Add(90 * time.Second))
	if got := engine.records["user-1"][key]; got != 90 {
		t.Fatalf("expected 90 seconds at %s, got %v", key, got)
	}
}

func TestSessionEndWithoutStartIsPureNoOp(t *testing.T) {
	engine, saver := newTestEngine()

	now := time.Date(2024, 6, 1, 14, 0, 0, 0, time.Local)
	engine.OnPresenceChange("user-1", true, false, now)

	if saver.saves != 0 {
		t.Fatalf("end without start must not persist, got %d saves", saver.saves)
	}
	if len(engine.records) != 0 {
		t.Fatalf("end without start must not mutate records: %v", engine.records)
	}
}

func TestNegativeDurationClampedToZero(t *testing.T) {
	engine, _ := newTestEngine()

	t0 := time.Date(2024, 6, 1, 14, 0, 0, 0, time.Local)
	engine.OnPresenceChange("user-1", false, true, t0)
	// Clock skew: the leave event carries an earlier timestamp.
	end := t0.Add(-30 * time.Second)
	engine.OnPresenceChange("user-1", true, false, end)

	if got := engine.records["user-1"][dateKey(end)]; got != 0 {
		t.Fatalf("skewed session must clamp to zero, got %v", got)
	}
}

func TestZeroLengthSessionAddsZero(t *testing.T) {
	engine, saver := newTestEngine()

	t0 := time.Date(2024, 6, 1, 14, 0, 0, 0, time.Local)
	engine.OnPresenceChange("user-1", false, true, t0)
	engine.OnPresenceChange("user-1", true, false, t0)

	if got := engine.records["user-1"][dateKey(t0)]; got != 0 {
		t.Fatalf("start == end must add zero, got %v", got)
	}
	if saver.saves != 1 {
		t.Fatalf("zero-length session still closes and persists, got %d saves", saver.saves)
	}
}

func TestMidnightStraddleCreditedToEndDay(t *testing.T) {
	engine, _ := newTestEngine()

	start := time.Date(2024, 6, 1, 23, 45, 0, 0, time.Local)
	end := time.Date(2024, 6, 2, 0, 15, 0, 0, time.Local)
	engine.OnPresenceChange("user-1", false, true, start)
	engine.OnPresenceChange("user-1", true, false, end)

	if got := engine.records["user-1"]["2024-06-01"]; got != 0 {
		t.Fatalf("start day must stay empty, got %v", got)
	}
	if got := engine.records["user-1"]["2024-06-02"]; got != 1800 {
		t.Fatalf("end day must hold the whole 1800s, got %v", got)
	}
}

func TestSameStateTransitionsIgnored(t *testing.T) {
	engine, saver := newTestEngine()

	now := time.Date(2024, 6, 1, 14, 0, 0, 0, time.Local)
	engine.OnPresenceChange("user-1", true, true, now)
	engine.OnPresenceChange("user-1", false, false, now)

	if saver.saves != 0 || len(engine.records) != 0 || len(engine.joinTimes) != 0 {
		t.Fatalf("present→present and absent→absent must be no-ops")
	}
}

func TestJoinOverwritesStaleStart(t *testing.T) {
	engine, _ := newTestEngine()

	t0 := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	t1 := t0.Add(2 * time.Hour)
	engine.OnPresenceChange("user-1", false, true, t0)
	engine.OnPresenceChange("user-1", false, true, t1)
	engine.OnPresenceChange("user-1", true, false, t1.Add(time.Minute))

	if got := engine.records["user-1"][dateKey(t1)]; got != 60 {
		t.Fatalf("stale start must be overwritten by the later join, got %v", got)
	}
}

func TestPersistFailureKeepsRecordsAuthoritative(t *testing.T) {
	engine, saver := newTestEngine()
	saver.fail = true

	t0 := time.Date(2024, 6, 1, 14, 0, 0, 0, time.Local)
	engine.OnPresenceChange("user-1", false, true, t0)
	engine.OnPresenceChange("user-1", true, false, t0.Add(time.Minute))

	if got := engine.records["user-1"][dateKey(t0)]; got != 60 {
		t.Fatalf("failed persist must not roll back memory, got %v", got)
	}
	if got := engine.metrics.snapshot().PersistErrors; got != 1 {
		t.Fatalf("expected 1 persist error counted, got %d", got)
	}

	// The next close retries the full write and includes the old data.
	saver.fail = false
	t1 := t0.Add(time.Hour)
	engine.OnPresenceChange("user-1", false, true, t1)
	engine.OnPresenceChange("user-1", true, false, t1.Add(30*time.Second))

	if got := saver.last["user-1"][dateKey(t0)]; got != 90 {
		t.Fatalf("retried persist must carry accumulated 90s, got %v", got)
	}
}

func TestRestoreOpenSessionsCreditsAcrossRestart(t *testing.T) {
	engine, _ := newTestEngine()

	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local)
	engine.restoreOpenSessions(map[string]time.Time{"user-1": start})
	engine.OnPresenceChange("user-1", true, false, start.Add(10*time.Minute))

	if got := engine.records["user-1"][dateKey(start)]; got != 600 {
		t.Fatalf("restored session must be credited on leave, got %v", got)
	}
}

func TestPerUserPersistOrdering(t *testing.T) {
	engine, saver := newTestEngine()

	t0 := time.Date(2024, 6, 1, 8, 0, 0, 0, time.Local)
	for i := 0; i < 3; i++ {
		start := t0.Add(time.Duration(i) * time.Hour)
		engine.OnPresenceChange("user-1", false, true, start)
		engine.OnPresenceChange("user-1", true, false, start.Add(time.Minute))
		if got := saver.last["user-1"][dateKey(start)]; got != float64((i+1)*60) {
			t.Fatalf("persist %d must reflect %ds accumulated, got %v", i+1, (i+1)*60, got)
		}
	}
	if saver.saves != 3 {
		t.Fatalf("expected one persist per session close, got %d", saver.saves)
	}
}
