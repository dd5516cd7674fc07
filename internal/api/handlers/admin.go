package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

type AdminHandler struct {
	ingest    *services.IngestService
	refresher *services.Refresher
}

func NewAdminHandler(ingest *services.IngestService, refresher *services.Refresher) *AdminHandler {
	return &AdminHandler{
		ingest:    ingest,
		refresher: refresher,
	}
}

// TriggerSync pulls one season of provider data into the store
func (a *AdminHandler) TriggerSync(c *gin.Context) {
	season, err := strconv.Atoi(c.Param("season"))
	if err != nil || season <= 0 {
		utils.SendValidationError(c, "Invalid season", c.Param("season"))
		return
	}

	if a.ingest == nil {
		utils.SendPreconditionFailed(c, "No stat provider configured")
		return
	}

	summary, err := a.ingest.SyncSeason(c.Request.Context(), season)
	if err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, summary)
}

// TriggerRefresh runs the nightly sync + revalidation pass on demand
func (a *AdminHandler) TriggerRefresh(c *gin.Context) {
	if a.refresher == nil {
		utils.SendPreconditionFailed(c, "Background refresher not configured")
		return
	}

	if err := a.refresher.RefreshNow(c.Request.Context()); err != nil {
		utils.SendDomainError(c, err)
		return
	}

	utils.SendSuccess(c, a.refresher.Status())
}
