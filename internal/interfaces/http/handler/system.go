package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
)

// SystemHandler serves liveness and build information
type SystemHandler struct {
	BaseHandler
	name    string
	version string
	started time.Time
	counts  map[string]func() int
}

// NewSystemHandler creates a SystemHandler for the named service
func NewSystemHandler(name, version string) *SystemHandler {
	return &SystemHandler{
		name:    name,
		version: version,
		started: time.Now(),
		counts:  make(map[string]func() int),
	}
}

// Track adds a live counter to the info response, such as stored
// customers or open form sessions. Call before serving.
func (h *SystemHandler) Track(name string, count func() int) *SystemHandler {
	h.counts[name] = count
	return h
}

// SystemInfoResponse describes the running service
type SystemInfoResponse struct {
	Name      string         `json:"name" example:"custdesk-backend"`
	Version   string         `json:"version" example:"1.0.0"`
	GoVersion string         `json:"go_version" example:"go1.25.5"`
	Uptime    string         `json:"uptime" example:"1h30m45s"`
	Counts    map[string]int `json:"counts,omitempty"`
}

// GetSystemInfo godoc
// @ID           getSystemInfo
// @Summary      Get system information
// @Description  Returns version, uptime and live counts of customers and open forms
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[SystemInfoResponse]
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
	}
	if len(h.counts) > 0 {
		info.Counts = make(map[string]int, len(h.counts))
		for name, count := range h.counts {
			info.Counts[name] = count()
		}
	}
	h.Success(c, info)
}

// PingResponse answers a ping
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @ID           pingSystem
// @Summary      Ping the API
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[PingResponse]
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{Message: "pong", Timestamp: time.Now().UTC().Format(time.RFC3339)})
}

// Health reports liveness for load balancers. It sits outside the API
// group and the envelope.
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": h.name})
}
