package main

import "time"

// dateKeyLayout is the per-day bucket key: calendar day in the local
// time zone, matching the on-disk record format.
const dateKeyLayout = "2006-01-02"

const monthKeyLayout = "2006-01"

// UserRecord maps a date key ("YYYY-MM-DD") to accumulated study seconds
// for that day. Values only ever grow once written.
type UserRecord map[string]float64

// StudyRecords is the entire persisted accounting state: one UserRecord
// per Discord user id.
type StudyRecords map[string]UserRecord

func dateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

func monthKey(t time.Time) string {
	return t.Format(monthKeyLayout)
}

// addSeconds merges secs into the user's bucket for key, creating the
// UserRecord on first use.
func (r StudyRecords) addSeconds(userID, key string, secs float64) {
	rec := r[userID]
	if rec == nil {
		rec = make(UserRecord)
		r[userID] = rec
	}
	rec[key] += secs
}

// clone returns a deep copy so callers can hand records to encoders or
// tests without racing the live map.
func (r StudyRecords) clone() StudyRecords {
	out := make(StudyRecords, len(r))
	for userID, rec := range r {
		cp := make(UserRecord, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out[userID] = cp
	}
	return out
}
