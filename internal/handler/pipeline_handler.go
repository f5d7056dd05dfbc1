package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/service"
	"github.com/stemsi/gradcafe-backend/internal/worker"
)

// PipelineHandler exposes the busy-guarded background actions.
type PipelineHandler struct {
	slot     *worker.JobSlot
	pipeline *service.PipelineService
	analysis *service.AnalysisService
	log      zerolog.Logger
}

// NewPipelineHandler creates a new PipelineHandler.
func NewPipelineHandler(slot *worker.JobSlot, pipeline *service.PipelineService, analysis *service.AnalysisService, log zerolog.Logger) *PipelineHandler {
	return &PipelineHandler{
		slot:     slot,
		pipeline: pipeline,
		analysis: analysis,
		log:      log.With().Str("component", "pipeline_handler").Logger(),
	}
}

// ─── Action Responses ───────────────────────────────────────────────

type actionAccepted struct {
	OK bool `json:"ok"`
}

type actionBusy struct {
	Busy bool `json:"busy"`
}

// PullData godoc
// POST /pull-data
// Starts scrape → clean → standardize → load in the background.
// 202 {"ok":true} when started, 409 {"busy":true} when a job is running.
func (h *PipelineHandler) PullData(c *gin.Context) {
	h.start(c, worker.JobPullData, http.StatusAccepted, h.runPipeline)
}

// UpdateAnalysis godoc
// POST /update-analysis
// Re-runs the report queries in the background.
// 200 {"ok":true} when started, 409 {"busy":true} when a job is running.
func (h *PipelineHandler) UpdateAnalysis(c *gin.Context) {
	h.start(c, worker.JobUpdateAnalysis, http.StatusOK, func(ctx context.Context, _ func(string)) error {
		return h.analysis.Refresh(ctx)
	})
}

// Status godoc
// GET /status
// Returns the slot snapshot without waiting for the running job.
func (h *PipelineHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.slot.Status())
}

func (h *PipelineHandler) start(c *gin.Context, kind worker.JobKind, okStatus int, fn worker.JobFunc) {
	task, err := h.slot.TryStart(kind, fn)
	if errors.Is(err, worker.ErrBusy) {
		h.log.Info().Str("kind", string(kind)).Msg("rejected, slot busy")
		c.JSON(http.StatusConflict, actionBusy{Busy: true})
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("kind", string(kind)).Msg("start job")
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.Header("X-Task-ID", task.ID.String())
	c.JSON(okStatus, actionAccepted{OK: true})
}

// runPipeline loads new rows, then refreshes the cached reports so the
// dashboard reflects them.
func (h *PipelineHandler) runPipeline(ctx context.Context, progress func(string)) error {
	report, err := h.pipeline.Run(ctx, progress)
	if err != nil {
		return err
	}
	if report.Load.Inserted > 0 {
		if err := h.analysis.Refresh(ctx); err != nil {
			h.log.Warn().Err(err).Msg("analysis refresh after pipeline failed")
		}
	}
	return nil
}
