package model

import "time"

// Session is the index row describing one pipeline run.
type Session struct {
	ID        string     `json:"id"`
	Source    string     `json:"source"`
	RootDir   string     `json:"root_dir"`
	StartedAt time.Time  `json:"started_at"`
	StoppedAt *time.Time `json:"stopped_at,omitempty"`
	Frames    int        `json:"frames"`
	Alerted   bool       `json:"alerted"`
}
