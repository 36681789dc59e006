package viewstate

import "time"

// Entry is a persisted view snapshot.
type Entry struct {
	Ticker    string    `json:"ticker"`
	View      ViewState `json:"view"`
	WrittenAt time.Time `json:"writtenAt"`
}

// Fresh reports whether the entry is younger than ttl at now.
func (e Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.WrittenAt) < ttl
}
