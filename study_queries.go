package main

import (
	"strings"
	"time"
)

// DaySample is one point of an N-day history series.
type DaySample struct {
	DateKey string
	Hours   float64
}

// DailySeconds returns the accumulated seconds for now's calendar day.
func (e *studyEngine) DailySeconds(userID string, now time.Time) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.records[userID][dateKey(now)]
}

// WeeklySeconds sums the rolling window of 7 calendar days ending on
// now's date, inclusive. This is deliberately not an aligned calendar
// week; see MonthlySeconds for the contrast.
func (e *studyEngine) WeeklySeconds(userID string, now time.Time) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.records[userID]
	if rec == nil {
		return 0
	}
	total := 0.0
	for i := 0; i < 7; i++ {
		total += rec[dateKey(now.AddDate(0, 0, -i))]
	}
	return total
}

// MonthlySeconds sums every bucket in now's calendar month, i.e. true
// month-to-date. The asymmetry with WeeklySeconds (rolling window there,
// calendar month here) matches the shipped behavior and must not be
// harmonized without product sign-off.
func (e *studyEngine) MonthlySeconds(userID string, now time.Time) float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.records[userID]
	if rec == nil {
		return 0
	}
	prefix := monthKey(now) + "-"
	total := 0.0
	for key, secs := range rec {
		if strings.HasPrefix(key, prefix) {
			total += secs
		}
	}
	return total
}

// HistorySeries returns one sample per day for the last days calendar
// days ending on now's date, oldest first. Missing buckets yield zero
// hours. days must be positive; otherwise the series is nil.
func (e *studyEngine) HistorySeries(userID string, now time.Time, days int) []DaySample {
	if days <= 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	rec := e.records[userID]
	series := make([]DaySample, 0, days)
	for i := days - 1; i >= 0; i-- {
		key := dateKey(now.AddDate(0, 0, -i))
		series = append(series, DaySample{
			DateKey: key,
			Hours:   rec[key] / 3600,
		})
	}
	return series
}
