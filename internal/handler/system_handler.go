package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/response"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports process and database health.
type SystemHandler struct {
	db        Pinger
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(db Pinger, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthStatus struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Uptime     string `json:"uptime"`
	Goroutines int    `json:"goroutines"`
	HeapAlloc  string `json:"heap_alloc"`
}

// Health godoc
// GET /health
// 200 while the database answers a ping, 503 otherwise.
func (h *SystemHandler) Health(c *gin.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	out := healthStatus{
		Status:     "ok",
		Database:   "ok",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  humanize.Bytes(mem.HeapAlloc),
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Msg("database ping failed")
			response.Fail(c, http.StatusServiceUnavailable, response.ErrDatabase)
			return
		}
	}

	response.Success(c, http.StatusOK, out)
}
