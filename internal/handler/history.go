package handler

import (
	"net/http"
	"strconv"

	"cctvstation/internal/dto"
	"cctvstation/internal/logger"
	"cctvstation/internal/repository"
)

// SessionsHandler returns indexed sessions, newest first.
func SessionsHandler(sessionRepo repository.SessionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 50)

		sessions, err := sessionRepo.GetAll(limit, (page-1)*limit)
		if err != nil {
			logger.Error("Error querying sessions from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sessions":    sessions,
			"currentPage": page,
			"limit":       limit,
		}, logger)
	}
}

// DetectionsHandler returns the detection feed filtered by session and label.
func DetectionsHandler(detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 100)

		filter := &dto.DetectionFilters{
			SessionID: q.Get("session"),
			Label:     q.Get("label"),
			Limit:     limit,
			Offset:    (page - 1) * limit,
		}

		detections, err := detectionRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying detections from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := detectionRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting detections: %v", err)
			totalCount = len(detections)
		}

		labels, err := detectionRepo.GetAllLabels()
		if err != nil {
			logger.Error("Error listing labels: %v", err)
			labels = []string{}
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"detections":  detections,
			"labels":      labels,
			"length":      totalCount,
			"totalPages":  (totalCount + limit - 1) / limit,
			"currentPage": page,
			"limit":       limit,
		}, logger)
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
