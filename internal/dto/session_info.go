package dto

import "time"

// SessionInfo is a snapshot of the active session's on-disk layout and progress.
type SessionInfo struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	RootDir    string    `json:"rootDir"`
	LogPath    string    `json:"logPath"`
	FramesDir  string    `json:"framesDir"`
	VideoPath  string    `json:"videoPath"`
	FrameCount int       `json:"frameCount"`
}
