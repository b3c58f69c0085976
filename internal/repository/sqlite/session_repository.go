package sqlite

import (
	"database/sql"
	"fmt"

	"cctvstation/internal/model"
)

// SessionRepository implements repository.SessionRepository for SQLite.
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SQLite session repository.
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Start records a session as it begins.
func (r *SessionRepository) Start(s *model.Session) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO sessions (id, source, root_dir, started_at, stopped_at, frames, alerted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Source, s.RootDir, s.StartedAt, nullTime(s), s.Frames, s.Alerted)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// Finish stores the final frame count, stop time and alert outcome of a session.
func (r *SessionRepository) Finish(s *model.Session) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		UPDATE sessions SET stopped_at = ?, frames = ?, alerted = ? WHERE id = ?
	`, nullTime(s), s.Frames, s.Alerted, s.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", s.ID)
	}
	return nil
}

// GetByID retrieves a session by its ID. It returns nil when there is none.
func (r *SessionRepository) GetByID(id string) (*model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(r.db.Conn().QueryRow(`
		SELECT id, source, root_dir, started_at, stopped_at, frames, alerted
		FROM sessions WHERE id = ?
	`, id))
}

// GetByRootDir retrieves the session stored in rootDir. It returns nil when there is none.
func (r *SessionRepository) GetByRootDir(rootDir string) (*model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	return r.scanOne(r.db.Conn().QueryRow(`
		SELECT id, source, root_dir, started_at, stopped_at, frames, alerted
		FROM sessions WHERE root_dir = ?
	`, rootDir))
}

// GetAll lists sessions, newest first.
func (r *SessionRepository) GetAll(limit, offset int) ([]model.Session, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query := `
		SELECT id, source, root_dir, started_at, stopped_at, frames, alerted
		FROM sessions ORDER BY started_at DESC
	`
	args := []interface{}{}

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) scanOne(row *sql.Row) (*model.Session, error) {
	s, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row scanner) (*model.Session, error) {
	var (
		s       model.Session
		stopped sql.NullTime
	)
	err := row.Scan(&s.ID, &s.Source, &s.RootDir, &s.StartedAt, &stopped, &s.Frames, &s.Alerted)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}
	if stopped.Valid {
		t := stopped.Time
		s.StoppedAt = &t
	}
	return &s, nil
}

func nullTime(s *model.Session) sql.NullTime {
	if s.StoppedAt == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *s.StoppedAt, Valid: true}
}
