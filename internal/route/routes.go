package route

import (
	"net/http"
	"os"
	"path/filepath"

	"cctvstation/internal/config"
	"cctvstation/internal/handler"
	"cctvstation/internal/logger"
	"cctvstation/internal/metrics"
	"cctvstation/internal/middleware"
	"cctvstation/internal/repository"
	"cctvstation/internal/service/alert"
	"cctvstation/internal/service/capture"
	"cctvstation/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", path+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// Dependencies are the services exposed over HTTP.
type Dependencies struct {
	Pipeline      handler.PipelineController
	Alert         handler.AlertLink
	Hub           *websocket.HubService
	SessionRepo   repository.SessionRepository
	DetectionRepo repository.DetectionRepository
	Metrics       *metrics.Metrics
	// Cameras and Ports default to OpenCV probing and the serial port list.
	Cameras func(limit int) []int
	Ports   func() ([]string, error)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware.
func SetupRoutes(deps Dependencies, cfg *config.Config, logger *logger.Logger) http.Handler {
	if deps.Cameras == nil {
		deps.Cameras = capture.Enumerate
	}
	if deps.Ports == nil {
		deps.Ports = alert.ListPorts
	}

	tokens := middleware.NewTokenStore(middleware.TokenTTL)
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Pipeline control
	mux.HandleFunc("/api/pipeline/start", handler.StartPipelineHandler(deps.Pipeline, deps.Alert, cfg, logger))
	mux.HandleFunc("/api/pipeline/stop", handler.StopPipelineHandler(deps.Pipeline, deps.Alert, logger))
	mux.HandleFunc("/api/pipeline/status", handler.PipelineStatusHandler(deps.Pipeline, deps.Alert, logger))

	// Alert channel
	mux.HandleFunc("/api/alert/port", handler.SelectPortHandler(deps.Alert, logger))
	mux.HandleFunc("/api/alert/enabled", handler.AlertEnabledHandler(deps.Pipeline, logger))
	mux.HandleFunc("/api/alert/test", handler.AlertTestHandler(deps.Alert, logger))

	// Devices
	mux.HandleFunc("/api/cameras", handler.CamerasHandler(deps.Cameras, capture.ProbeLimit, logger))
	mux.HandleFunc("/api/ports", handler.PortsHandler(deps.Ports, logger))

	// Live view and history
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(deps.Hub, logger))
	mux.HandleFunc("/api/sessions", handler.SessionsHandler(deps.SessionRepo, logger))
	mux.HandleFunc("/api/detections", handler.DetectionsHandler(deps.DetectionRepo, logger))

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowInfoLogsHandler(cfg))
	mux.HandleFunc("/logs/warning", handler.ShowWarningLogsHandler(cfg))
	mux.HandleFunc("/logs/error", handler.ShowErrorLogsHandler(cfg))

	mux.HandleFunc("/logs/info/clear", handler.ClearLogsHandler(logger, "info.log"))
	mux.HandleFunc("/logs/warning/clear", handler.ClearLogsHandler(logger, "warning.log"))
	mux.HandleFunc("/logs/error/clear", handler.ClearLogsHandler(logger, "error.log"))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, tokens, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler(tokens))

	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware(tokens, mux)
}
