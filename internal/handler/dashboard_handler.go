package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradcafe-backend/internal/model"
	"github.com/stemsi/gradcafe-backend/internal/service"
	"github.com/stemsi/gradcafe-backend/internal/worker"
	"golang.org/x/sync/errgroup"
)

// DashboardHandler renders the analysis page.
type DashboardHandler struct {
	analysis *service.AnalysisService
	slot     *worker.JobSlot
	log      zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(analysis *service.AnalysisService, slot *worker.JobSlot, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		analysis: analysis,
		slot:     slot,
		log:      log.With().Str("component", "dashboard_handler").Logger(),
	}
}

type dashboardView struct {
	Analysis      model.Analysis
	Summary       model.TableSummary
	Distributions map[string][]model.Distribution
	Status        worker.Status
	DBError       string
}

// Index godoc
// GET / and GET /analysis
// Renders the report table, stat cards and the action buttons. A database
// outage still renders the page, with the failure shown in a banner and in
// the affected rows.
func (h *DashboardHandler) Index(c *gin.Context) {
	ctx := c.Request.Context()
	view := dashboardView{Status: h.slot.Status()}

	var g errgroup.Group
	g.Go(func() error {
		view.Analysis = h.analysis.Latest(ctx)
		return nil
	})
	g.Go(func() error {
		sum, err := h.analysis.Summary(ctx)
		if err != nil {
			return err
		}
		view.Summary = sum
		return nil
	})
	g.Go(func() error {
		dist, err := h.analysis.Distributions(ctx)
		if err != nil {
			return err
		}
		view.Distributions = dist
		return nil
	})

	if err := g.Wait(); err != nil {
		h.log.Error().Err(err).Msg("dashboard data unavailable")
		view.DBError = "Database unavailable: " + err.Error()
	}

	c.HTML(http.StatusOK, "index.html", view)
}
