package sqlite

import (
	"cctvstation/internal/model"
	"cctvstation/internal/repository"
)

// Index records pipeline sessions and detections. It satisfies pipeline.SessionIndex.
type Index struct {
	Sessions   repository.SessionRepository
	Detections repository.DetectionRepository
}

// NewIndex wires both repositories over db.
func NewIndex(db *DB) *Index {
	return &Index{
		Sessions:   NewSessionRepository(db),
		Detections: NewDetectionRepository(db),
	}
}

func (x *Index) StartSession(s *model.Session) error {
	return x.Sessions.Start(s)
}

func (x *Index) FinishSession(s *model.Session) error {
	return x.Sessions.Finish(s)
}

func (x *Index) InsertDetection(rec *model.DetectionRecord) error {
	id, err := x.Detections.Insert(rec)
	if err != nil {
		return err
	}
	rec.ID = id
	return nil
}
