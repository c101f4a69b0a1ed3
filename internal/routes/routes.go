package routes

import (
	"net/http"
	"os"
	"path/filepath"

	"kiosk/internal/config"
	"kiosk/internal/handler"
	"kiosk/internal/logger"
	"kiosk/internal/middleware"
	"kiosk/internal/repository"
	"kiosk/internal/service/websocket"
)

// StaticDir holds the kiosk and operator pages.
var StaticDir = "static"

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/kiosk"
	}

	filePath := filepath.Join(StaticDir, filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the kiosk websocket, the snapshot and log APIs and
// static pages, and wraps the mux with the authentication middleware. A nil
// upload leaves the camera upload endpoint unmounted.
func SetupRoutes(cfg *config.Config, logger *logger.Logger, hub *websocket.HubService,
	snapshotRepo repository.SnapshotRepository, itemRepo repository.SnapshotItemRepository,
	upload http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(StaticDir))))

	// Kiosk screen
	mux.HandleFunc("/api/kiosk", handler.KioskWebsocketHandler(hub, logger))

	if upload != nil {
		mux.Handle("/api/camera/upload", upload)
	}

	// Snapshots
	mux.HandleFunc("/api/snapshots", handler.GetSnapshotsHandler(logger, snapshotRepo, itemRepo))
	mux.HandleFunc("/api/snapshots/view", handler.ViewSnapshotHandler(cfg))
	mux.HandleFunc("/api/snapshots/delete", handler.DeleteSnapshotHandler(cfg, logger, snapshotRepo))

	// Logs
	for _, name := range []string{"info", "warning", "error"} {
		file := name + ".log"
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(cfg, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(logger, file))
	}

	// Auth
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// /login -> static/login.html, /snapshots -> static/snapshots.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware(mux)
}
