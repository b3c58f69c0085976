package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"cctvstation/internal/config"
	"cctvstation/internal/dto"
	"cctvstation/internal/logger"
	"cctvstation/internal/pipeline"
	"cctvstation/internal/service/capture"
)

// PipelineController is the part of the frame pipeline the control API drives.
type PipelineController interface {
	Start(source string) error
	Stop()
	Status() dto.PipelineStatus
	SetAlertEnabled(enabled bool)
	AlertEnabled() bool
}

// AlertLink is the part of the serial alert channel the control API drives.
type AlertLink interface {
	Open(name string) error
	Close() error
	SendTest() error
	IsOpen() bool
	PortName() string
}

// StartPipelineHandler handles POST /api/pipeline/start. The "source" form value
// selects the capture source and defaults to the configured one.
func StartPipelineHandler(p PipelineController, link AlertLink, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		source := strings.TrimSpace(r.FormValue("source"))
		if source == "" {
			source = cfg.CaptureSource
		}

		if err := p.Start(source); err != nil {
			logger.Error("Failed to start pipeline on %s: %v", source, err)
			switch {
			case errors.Is(err, pipeline.ErrAlreadyRunning):
				http.Error(w, err.Error(), http.StatusConflict)
			case errors.Is(err, capture.ErrUnavailable):
				http.Error(w, err.Error(), http.StatusBadRequest)
			default:
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, status(p, link), logger)
	}
}

// StopPipelineHandler handles POST /api/pipeline/stop. Stopping a stopped pipeline is not an error.
func StopPipelineHandler(p PipelineController, link AlertLink, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		p.Stop()
		writeJSON(w, http.StatusOK, status(p, link), logger)
	}
}

// PipelineStatusHandler handles GET /api/pipeline/status.
func PipelineStatusHandler(p PipelineController, link AlertLink, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, status(p, link), logger)
	}
}

func status(p PipelineController, link AlertLink) dto.PipelineStatus {
	s := p.Status()
	if link != nil {
		s.PortOpen = link.IsOpen()
		s.Port = link.PortName()
	}
	return s
}

func writeJSON(w http.ResponseWriter, code int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}
