package dto

import (
	"encoding/json"
	"time"
)

// DetectionEvent is pushed to viewers for every logged detection.
type DetectionEvent struct {
	Time     time.Time `json:"-"`
	Type     string    `json:"type"`
	Accuracy float64   `json:"accuracy"`
	Frame    int       `json:"frame"`
}

// MarshalJSON splits Time into the date and time-of-day strings shown in the feed.
func (e DetectionEvent) MarshalJSON() ([]byte, error) {
	type Alias DetectionEvent
	return json.Marshal(&struct {
		Kind string `json:"kind"`
		Time string `json:"time"`
		Date string `json:"date"`
		Alias
	}{
		Kind:  "detection",
		Time:  e.Time.Format("15:04:05"),
		Date:  e.Time.Format("2006-01-02"),
		Alias: (Alias)(e),
	})
}
