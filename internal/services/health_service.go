package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"petrodash/internal/config"
	"petrodash/internal/infrastructure"
)

// ClientTracker reports on live WebSocket connections
type ClientTracker interface {
	ClientCount() int
	Stats() map[string]int64
}

// HealthService provides health check functionality
type HealthService struct {
	version     string
	buildTime   string
	buildID     string
	dataDir     string
	prefBackend string
	hub         ClientTracker
	startTime   time.Time
	logger      *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// BuildInfo is stamped into the binary at link time
type BuildInfo struct {
	Version   string
	BuildTime string
	BuildID   string
}

// NewHealthService creates a health service
func NewHealthService(build BuildInfo, paths config.Paths, prefBackend string, hub ClientTracker, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	if build.Version == "" {
		build.Version = config.AppVersion
	}

	logger.Info("HealthService initialized",
		slog.String("version", build.Version),
		slog.String("build_time", build.BuildTime),
		slog.String("preferences_backend", prefBackend))

	return &HealthService{
		version:     build.Version,
		buildTime:   build.BuildTime,
		buildID:     build.BuildID,
		dataDir:     paths.DataDir,
		prefBackend: prefBackend,
		hub:         hub,
		startTime:   time.Now(),
		logger:      logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime:   infrastructure.CollectSystemStats(hs.startTime).FormatStats(),
	}
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"websocket":   hs.checkWebSocketHealth(),
			"data":        hs.checkDataHealth(),
			"preferences": ServiceHealth{Status: "ready", Message: hs.prefBackend},
		},
	}

	for _, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			break
		}
	}
	if status.Status != "ready" {
		hs.logger.WarnContext(ctx, "readiness check failed", slog.Any("services", status.Services))
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"name":         config.AppName,
		"version":      hs.version,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.buildID != "" {
		result["build_id"] = hs.buildID
	}
	return result
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_ready", Message: "websocket hub not initialized"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d clients connected", hs.hub.ClientCount()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}

func (hs *HealthService) checkDataHealth() ServiceHealth {
	info, err := os.Stat(hs.dataDir)
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory not accessible: %s", hs.dataDir),
		}
	}
	if !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: hs.dataDir + " is not a directory"}
	}

	probe, err := os.CreateTemp(hs.dataDir, ".health-*")
	if err != nil {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Cannot write to data directory: %v", err),
		}
	}
	probe.Close()
	os.Remove(filepath.Clean(probe.Name()))

	return ServiceHealth{Status: "ready", Message: "Data directory is writable"}
}

// GetDetailedHealth returns comprehensive health information
func (hs *HealthService) GetDetailedHealth(ctx context.Context) map[string]interface{} {
	detail := map[string]interface{}{
		"health":    hs.HealthCheck(ctx),
		"readiness": hs.ReadinessCheck(ctx),
		"liveness":  hs.LivenessCheck(ctx),
	}
	if hs.hub != nil {
		detail["websocket"] = hs.hub.Stats()
	}
	return detail
}
