// Package sbsdr acquires one day of security-based swap disclosure data,
// walking an ordered list of candidate hosts through the transport ladder.
package sbsdr

import "time"

// DayPayload is the raw content retrieved for one calendar date.
// Absent means every host definitively had nothing for the day (or all
// routes failed) — an expected state, distinct from a fetch error.
type DayPayload struct {
	Date   time.Time
	Body   []byte
	Absent bool
	// Host that served the payload; empty when absent.
	Host string
	// HostRank is the index of the serving host in the candidate list:
	// 0 is the primary, anything higher is a mirror.
	HostRank int
}

// AbsentPayload returns the explicit no-data marker for date.
func AbsentPayload(date time.Time) DayPayload {
	return DayPayload{Date: date, Absent: true}
}
