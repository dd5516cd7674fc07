package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

type ExportHandler struct {
	db            *database.DB
	exportService *services.ExportService
}

func NewExportHandler(db *database.DB) *ExportHandler {
	return &ExportHandler{
		db:            db,
		exportService: services.NewExportService(),
	}
}

// ExportProjections exports a filtered projection slice as CSV or JSON.
// No scenario_id exports the global baseline scope.
func (h *ExportHandler) ExportProjections(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "json" {
		utils.SendValidationError(c, "Unsupported format", "format must be csv or json")
		return
	}

	season, _ := strconv.Atoi(c.DefaultQuery("season", "0"))
	position := c.Query("position")
	team := c.Query("team")

	var scenarioID *uint
	if raw := c.Query("scenario_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			utils.SendValidationError(c, "Invalid scenario ID", err.Error())
			return
		}
		sid := uint(id)
		scenarioID = &sid
	}

	q := h.db.Model(&models.Projection{}).Preload("Player").
		Joins("JOIN players ON players.id = projections.player_id")
	if scenarioID == nil {
		q = q.Where("projections.scenario_id IS NULL")
	} else {
		q = q.Where("projections.scenario_id = ?", *scenarioID)
	}
	if season > 0 {
		q = q.Where("projections.season = ?", season)
	}
	if position != "" {
		q = q.Where("players.position = ?", position)
	}
	if team != "" {
		q = q.Where("players.team = ?", team)
	}

	var projections []models.Projection
	if err := q.Order("projections.half_ppr DESC").Find(&projections).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch projections")
		return
	}

	var scenarios []models.Scenario
	if err := h.db.Find(&scenarios).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch scenarios")
		return
	}
	scenarioNames := make(map[uint]string, len(scenarios))
	for _, sc := range scenarios {
		scenarioNames[sc.ID] = sc.Name
	}

	rows := h.exportService.BuildRows(projections, scenarioNames)

	if format == "json" {
		utils.SendSuccess(c, rows)
		return
	}

	data, err := h.exportService.MarshalCSV(rows)
	if err != nil {
		utils.SendInternalError(c, "Failed to build CSV")
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", services.FileName(season, "csv")))
	c.Data(http.StatusOK, "text/csv", data)
}
