package repository

import (
	"cctvstation/internal/dto"
	"cctvstation/internal/model"
)

// SessionRepository defines the interface for session index operations.
type SessionRepository interface {
	// Create/update operations
	Start(s *model.Session) error
	Finish(s *model.Session) error

	// Read operations
	GetByID(id string) (*model.Session, error)
	GetAll(limit, offset int) ([]model.Session, error)
	GetByRootDir(rootDir string) (*model.Session, error)
}

// DetectionRepository defines the interface for detection data operations.
type DetectionRepository interface {
	// Create operations
	Insert(rec *model.DetectionRecord) (int64, error)
	InsertBatch(records []model.DetectionRecord) error

	// Read operations
	GetAll(filter *dto.DetectionFilters) ([]model.DetectionRecord, error)
	GetTotalCount(filter *dto.DetectionFilters) (int, error)
	GetAllLabels() ([]string, error)

	// Delete operations
	DeleteBySessionID(sessionID string) error
}
