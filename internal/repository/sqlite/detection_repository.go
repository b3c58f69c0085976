package sqlite

import (
	"fmt"

	"cctvstation/internal/dto"
	"cctvstation/internal/model"
)

// DetectionRepository implements repository.DetectionRepository for SQLite.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

const insertDetection = `
	INSERT INTO detections (session_id, label, x, y, confidence, detected_at, frame_index)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Insert adds a new detection record to the database.
func (r *DetectionRepository) Insert(rec *model.DetectionRecord) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(insertDetection,
		rec.SessionID, rec.Label, rec.X, rec.Y, rec.Confidence, rec.Time, rec.FrameIndex)
	if err != nil {
		return 0, fmt.Errorf("failed to insert detection: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple detections in a single transaction.
func (r *DetectionRepository) InsertBatch(records []model.DetectionRecord) error {
	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(insertDetection)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.Exec(rec.SessionID, rec.Label, rec.X, rec.Y, rec.Confidence, rec.Time, rec.FrameIndex); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

func applyFilter(query string, filter *dto.DetectionFilters) (string, []interface{}) {
	args := []interface{}{}
	if filter == nil {
		return query, args
	}

	if filter.SessionID != "" {
		query += " AND session_id = ?"
		args = append(args, filter.SessionID)
	}

	if filter.Label != "" {
		query += " AND label = ?"
		args = append(args, filter.Label)
	}

	return query, args
}

// GetAll retrieves detections in log order based on filter criteria.
func (r *DetectionRepository) GetAll(filter *dto.DetectionFilters) ([]model.DetectionRecord, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query, args := applyFilter(`
		SELECT id, session_id, label, x, y, confidence, detected_at, frame_index
		FROM detections
		WHERE 1=1
	`, filter)

	query += " ORDER BY id"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	records := []model.DetectionRecord{}
	for rows.Next() {
		var rec model.DetectionRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.Label, &rec.X, &rec.Y, &rec.Confidence, &rec.Time, &rec.FrameIndex); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// GetTotalCount returns the total count of detections matching the filter.
func (r *DetectionRepository) GetTotalCount(filter *dto.DetectionFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	query, args := applyFilter(`SELECT COUNT(*) FROM detections WHERE 1=1`, filter)

	var count int
	if err := r.db.Conn().QueryRow(query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count detections: %w", err)
	}
	return count, nil
}

// GetAllLabels returns a list of all unique detected labels.
func (r *DetectionRepository) GetAllLabels() ([]string, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`SELECT DISTINCT label FROM detections ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("failed to query labels: %w", err)
	}
	defer rows.Close()

	labels := []string{}
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, fmt.Errorf("failed to scan label: %w", err)
		}
		labels = append(labels, label)
	}

	return labels, rows.Err()
}

// DeleteBySessionID removes all detections of a session.
func (r *DetectionRepository) DeleteBySessionID(sessionID string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM detections WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete detections: %w", err)
	}
	return nil
}
