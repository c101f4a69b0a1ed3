package handler

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"kiosk/internal/config"
	"kiosk/internal/dto"
	"kiosk/internal/logger"
	"kiosk/internal/model"
	"kiosk/internal/repository"
)

// GetSnapshotsHandler returns a filtered, paginated list of snapshots with
// their receipt lines.
func GetSnapshotsHandler(logger *logger.Logger, snapshotRepo repository.SnapshotRepository,
	itemRepo repository.SnapshotItemRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.SnapshotFilters{
			Class:      strings.ToLower(strings.TrimSpace(q.Get("class"))),
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		snapshots, err := snapshotRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying snapshots from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := snapshotRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting snapshots: %v", err)
			totalCount = len(snapshots)
		}

		classes, err := itemRepo.GetAllClasses()
		if err != nil {
			logger.Error("Error listing classes: %v", err)
		}

		infos := make([]dto.SnapshotInfo, 0, len(snapshots))
		for _, s := range snapshots {
			items, err := itemRepo.GetBySnapshotID(s.ID)
			if err != nil {
				logger.Error("Error getting receipt lines for snapshot %d: %v", s.ID, err)
			}
			infos = append(infos, snapshotInfo(s, items))
		}

		data := dto.SnapshotsData{
			Snapshots:   infos,
			Classes:     classes,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

func snapshotInfo(s model.Snapshot, items []model.SnapshotItem) dto.SnapshotInfo {
	lines := make([]dto.LineItem, 0, len(items))
	for _, item := range items {
		line := dto.LineItem{Class: item.Class, Count: item.Count, UnitPrice: dto.Unpriced, Total: dto.Unpriced}
		if item.UnitPrice.Valid {
			line.UnitPrice = item.UnitPrice.Decimal.StringFixed(2)
		}
		if item.Total.Valid {
			line.Total = item.Total.Decimal.StringFixed(2)
		}
		lines = append(lines, line)
	}
	return dto.SnapshotInfo{
		Name:      s.Filename,
		ReceiptID: s.ReceiptID,
		Date:      s.Timestamp,
		TimeOfDay: s.Timestamp,
		Total:     s.Total.StringFixed(2),
		Items:     lines,
	}
}

// ViewSnapshotHandler serves a single snapshot file named by the "snapshot" query parameter.
func ViewSnapshotHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("snapshot")
		if name == "" {
			http.Error(w, "Snapshot parameter is required", http.StatusBadRequest)
			return
		}
		if !isValidFilename(name) {
			http.Error(w, "Invalid snapshot name", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(cfg.SnapshotDirectory, name))
	}
}

// DeleteSnapshotHandler removes a snapshot from disk and database.
func DeleteSnapshotHandler(cfg *config.Config, logger *logger.Logger, snapshotRepo repository.SnapshotRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete && r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		filename := r.URL.Query().Get("filename")
		if filename == "" {
			http.Error(w, "Filename required", http.StatusBadRequest)
			return
		}
		if !isValidFilename(filename) {
			http.Error(w, "Invalid filename", http.StatusBadRequest)
			return
		}

		filePath := filepath.Join(cfg.SnapshotDirectory, filename)
		if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
			logger.Error("Failed to delete file %s: %v", filePath, err)
		}

		if snapshotRepo != nil {
			if err := snapshotRepo.DeleteByFilename(filename); err != nil {
				logger.Error("Failed to delete from database: %v", err)
			}
		}

		logger.Info("Deleted snapshot: %s", filename)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "deleted", "filename": filename})
	}
}

// isValidFilename accepts plain file names only: no separators, no parent
// references, no NUL bytes.
func isValidFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, "/\\\x00") || strings.HasPrefix(name, "..") {
		return false
	}
	return filepath.Base(name) == name
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
