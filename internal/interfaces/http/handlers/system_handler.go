package handlers

import (
	"runtime"
	"time"

	"github.com/gofiber/fiber/v2"
)

// SessionCounter reports the number of open sessions
type SessionCounter interface {
	Len() int
}

// SystemHandler handles process status requests
type SystemHandler struct {
	sessions  SessionCounter
	storeName string
	startedAt time.Time
}

// NewSystemHandler creates a new system handler
func NewSystemHandler(sessions SessionCounter, storeName string) *SystemHandler {
	return &SystemHandler{
		sessions:  sessions,
		storeName: storeName,
		startedAt: time.Now(),
	}
}

// SystemInfo is a snapshot of the running process
type SystemInfo struct {
	Store        string  `json:"store"`
	OpenSessions int     `json:"open_sessions"`
	Goroutines   int     `json:"goroutines"`
	HeapAllocMB  float64 `json:"heap_alloc_mb"`
	UptimeSec    int64   `json:"uptime_sec"`
	GoVersion    string  `json:"go_version"`
}

// GetSystemInfo returns current process information
func (h *SystemHandler) GetSystemInfo(c *fiber.Ctx) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(fiber.Map{
		"data": SystemInfo{
			Store:        h.storeName,
			OpenSessions: h.sessions.Len(),
			Goroutines:   runtime.NumGoroutine(),
			HeapAllocMB:  float64(mem.HeapAlloc) / 1024 / 1024,
			UptimeSec:    int64(time.Since(h.startedAt).Seconds()),
			GoVersion:    runtime.Version(),
		},
	})
}
