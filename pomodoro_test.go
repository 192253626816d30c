package main

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestPomodoroRejectsNonPositiveMinutes(t *testing.T) {
	pomo := newPomodoroManager(time.Hour)

	if err := pomo.Start(context.Background(), "user-1", 0, time.Minute, nil); err == nil {
		t.Fatalf("expected error for zero focus duration")
	}
	if err := pomo.Start(context.Background(), "user-1", time.Minute, -time.Minute, nil); err == nil {
		t.Fatalf("expected error for negative rest duration")
	}
	if pomo.running("user-1") {
		t.Fatalf("rejected start must not schedule anything")
	}
}

func TestPomodoroRejectsOverlongPhase(t *testing.T) {
	pomo := newPomodoroManager(30 * time.Minute)

	if err := pomo.Start(context.Background(), "user-1", time.Hour, time.Minute, nil); err == nil {
		t.Fatalf("expected error for focus phase over the cap")
	}
}

func TestPomodoroFiresBothPhases(t *testing.T) {
	pomo := newPomodoroManager(time.Hour)

	msgs := make(chan string, 2)
	notify := func(msg string) { msgs <- msg }
	if err := pomo.Start(context.Background(), "user-1", 10*time.Millisecond, 10*time.Millisecond, notify); err != nil {
		t.Fatalf("Start: %v", err)
	}

	var got []string
	for i := 0; i < 2; i++ {
		select {
		case m := <-msgs:
			got = append(got, m)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for notification %d", i+1)
		}
	}
	if !strings.Contains(got[0], "집중 시간이 끝났습니다") {
		t.Fatalf("first notification must end the focus phase, got %q", got[0])
	}
	if !strings.Contains(got[1], "휴식 시간이 끝났습니다") {
		t.Fatalf("second notification must end the rest phase, got %q", got[1])
	}

	pomo.StopAll()
	if pomo.running("user-1") {
		t.Fatalf("completed sequence must be cleaned up")
	}
}

func TestPomodoroStopCancelsPendingNotifications(t *testing.T) {
	pomo := newPomodoroManager(time.Hour)

	msgs := make(chan string, 2)
	notify := func(msg string) { msgs <- msg }
	if err := pomo.Start(context.Background(), "user-1", time.Second, time.Second, notify); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if !pomo.Stop("user-1") {
		t.Fatalf("Stop must report a running sequence")
	}
	if pomo.Stop("user-1") {
		t.Fatalf("second Stop must report nothing running")
	}
	pomo.StopAll()

	select {
	case m := <-msgs:
		t.Fatalf("cancelled sequence must not notify, got %q", m)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPomodoroRestartReplacesRunningSequence(t *testing.T) {
	pomo := newPomodoroManager(time.Hour)

	oldMsgs := make(chan string, 2)
	if err := pomo.Start(context.Background(), "user-1", time.Hour, time.Hour, func(m string) { oldMsgs <- m }); err != nil {
		t.Fatalf("first Start: %v", err)
	}

	newMsgs := make(chan string, 2)
	if err := pomo.Start(context.Background(), "user-1", 10*time.Millisecond, 10*time.Millisecond, func(m string) { newMsgs <- m }); err != nil {
		t.Fatalf("second Start: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-newMsgs:
		case <-time.After(2 * time.Second):
			t.Fatalf("replacement sequence did not fire notification %d", i+1)
		}
	}
	select {
	case m := <-oldMsgs:
		t.Fatalf("replaced sequence must stay silent, got %q", m)
	default:
	}

	pomo.StopAll()
}
