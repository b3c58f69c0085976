package handler

import (
	"net/http"

	"cctvstation/internal/logger"
)

// CamerasHandler handles GET /api/cameras by probing capture device indices.
func CamerasHandler(enumerate func(limit int) []int, limit int, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cameras := enumerate(limit)
		if cameras == nil {
			cameras = []int{}
		}
		writeJSON(w, http.StatusOK, map[string][]int{"cameras": cameras}, logger)
	}
}

// PortsHandler handles GET /api/ports by listing serial ports.
func PortsHandler(list func() ([]string, error), logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ports, err := list()
		if err != nil {
			logger.Error("Failed to list serial ports: %v", err)
			http.Error(w, "Unable to list serial ports", http.StatusInternalServerError)
			return
		}
		if ports == nil {
			ports = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"ports": ports}, logger)
	}
}
