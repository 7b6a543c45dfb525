package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/harborline/harborwatch/internal/database"
	"github.com/harborline/harborwatch/internal/scheduler"
	"github.com/harborline/harborwatch/internal/version"
)

// TrackingStatus reports the state of the live tracking feed. Satisfied by the
// Cargoes Flow websocket client.
type TrackingStatus interface {
	IsConnected() bool
}

// SystemHandlers contains HTTP handlers for system monitoring and operations
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	databases map[string]*database.DB
	history   *scheduler.JobHistoryRepository
	tracking  TrackingStatus
	sched     *scheduler.Scheduler
	syncJob   scheduler.Job
	startTime time.Time
}

// NewSystemHandlers creates a new system handlers instance
func NewSystemHandlers(
	log zerolog.Logger,
	dataDir string,
	databases map[string]*database.DB,
	history *scheduler.JobHistoryRepository,
	tracking TrackingStatus,
	sched *scheduler.Scheduler,
	syncJob scheduler.Job,
) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("handler", "system").Logger(),
		dataDir:   dataDir,
		databases: databases,
		history:   history,
		tracking:  tracking,
		sched:     sched,
		syncJob:   syncJob,
		startTime: time.Now(),
	}
}

// SystemStatusResponse is the payload for GET /api/system/status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	TrackingFeed  string  `json:"tracking_feed"`
	LastChecked   string  `json:"last_checked"`
}

// HandleSystemStatus returns overall system health
// GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	cpuPercent, memPercent := h.getSystemStats()

	feed := "disabled"
	if h.tracking != nil {
		if h.tracking.IsConnected() {
			feed = "connected"
		} else {
			feed = "disconnected"
		}
	}

	response := SystemStatusResponse{
		Status:        "ok",
		Version:       version.Version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		CPUPercent:    cpuPercent,
		MemoryPercent: memPercent,
		TrackingFeed:  feed,
		LastChecked:   time.Now().Format(time.RFC3339),
	}

	h.writeJSON(w, response)
}

// HandleJobsStatus returns the recorded state of all background jobs
// GET /api/system/jobs
func (h *SystemHandlers) HandleJobsStatus(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		h.writeJSON(w, []scheduler.JobRun{})
		return
	}

	runs, err := h.history.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list job history")
		http.Error(w, "failed to list job history", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, runs)
}

// DBStatsEntry describes one database in the stats response
type DBStatsEntry struct {
	Name         string  `json:"name"`
	SizeMB       float64 `json:"size_mb"`
	WALSizeMB    float64 `json:"wal_size_mb"`
	PageCount    int64   `json:"page_count"`
	PageSizeByte int64   `json:"page_size_bytes"`
}

// DatabaseStatsResponse is the payload for GET /api/system/database/stats
type DatabaseStatsResponse struct {
	Databases   []DBStatsEntry `json:"databases"`
	TotalSizeMB float64        `json:"total_size_mb"`
	LastChecked string         `json:"last_checked"`
}

// HandleDatabaseStats returns database statistics
// GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	entries := make([]DBStatsEntry, 0, len(h.databases))
	totalSizeMB := 0.0

	for name, db := range h.databases {
		stats, err := db.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Str("database", name).Msg("Failed to get database stats")
			continue
		}

		sizeMB := float64(stats.SizeBytes) / 1024 / 1024
		totalSizeMB += sizeMB

		entries = append(entries, DBStatsEntry{
			Name:         name,
			SizeMB:       sizeMB,
			WALSizeMB:    float64(stats.WALSizeBytes) / 1024 / 1024,
			PageCount:    stats.PageCount,
			PageSizeByte: stats.PageSize,
		})
	}

	h.writeJSON(w, DatabaseStatsResponse{
		Databases:   entries,
		TotalSizeMB: totalSizeMB,
		LastChecked: time.Now().Format(time.RFC3339),
	})
}

// DiskUsageResponse is the payload for GET /api/system/disk
type DiskUsageResponse struct {
	DataDirMB float64 `json:"data_dir_mb"`
	StagingMB float64 `json:"staging_mb"`
	TotalMB   float64 `json:"total_mb"`
}

// HandleDiskUsage returns disk usage statistics
// GET /api/system/disk
func (h *SystemHandlers) HandleDiskUsage(w http.ResponseWriter, r *http.Request) {
	dataDirSize := h.getDirSize(h.dataDir)
	stagingSize := h.getDirSize(filepath.Join(h.dataDir, "backup-staging"))

	h.writeJSON(w, DiskUsageResponse{
		DataDirMB: dataDirSize,
		StagingMB: stagingSize,
		TotalMB:   dataDirSize,
	})
}

// HandleTriggerSync triggers a tracking sync cycle outside its schedule
// POST /api/system/sync
func (h *SystemHandlers) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if h.sched == nil || h.syncJob == nil {
		http.Error(w, "sync job not available", http.StatusServiceUnavailable)
		return
	}

	// The job itself refuses to overlap a running cycle, so triggering is
	// always safe
	go func() {
		if err := h.sched.RunNow(h.syncJob); err != nil {
			h.log.Error().Err(err).Msg("Manually triggered sync failed")
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "triggered"}); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// Samples CPU over 100ms so the status endpoint stays responsive.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
