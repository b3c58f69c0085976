package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"cctvstation/internal/logger"
	"cctvstation/internal/service/alert"
)

// SelectPortHandler handles POST /api/alert/port. An empty "port" closes the link.
func SelectPortHandler(link AlertLink, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		port := strings.TrimSpace(r.FormValue("port"))
		if port == "" {
			if err := link.Close(); err != nil {
				logger.Warning("Failed to close alert port: %v", err)
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"portOpen": false}, logger)
			return
		}

		if err := link.Open(port); err != nil {
			logger.Error("Failed to open alert port %s: %v", port, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		logger.Info("Alert port selected: %s", link.PortName())
		writeJSON(w, http.StatusOK, map[string]interface{}{"portOpen": true, "port": link.PortName()}, logger)
	}
}

// AlertEnabledHandler handles POST /api/alert/enabled with enabled=true|false.
func AlertEnabledHandler(p PipelineController, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		enabled, err := strconv.ParseBool(r.FormValue("enabled"))
		if err != nil {
			http.Error(w, "enabled must be true or false", http.StatusBadRequest)
			return
		}

		p.SetAlertEnabled(enabled)
		logger.Info("Alert system enabled: %t", enabled)
		writeJSON(w, http.StatusOK, map[string]bool{"alertEnabled": p.AlertEnabled()}, logger)
	}
}

// AlertTestHandler handles POST /api/alert/test by writing the diagnostic payload.
func AlertTestHandler(link AlertLink, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := link.SendTest(); err != nil {
			logger.Error("Alert test failed: %v", err)
			if errors.Is(err, alert.ErrPortClosed) {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"sent": alert.TestPayload, "port": link.PortName()}, logger)
	}
}
