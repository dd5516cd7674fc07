package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/gridiron-projections/internal/models"
	"github.com/jstittsworth/gridiron-projections/internal/services"
	"github.com/jstittsworth/gridiron-projections/pkg/database"
	"github.com/jstittsworth/gridiron-projections/pkg/utils"
)

type PlayerHandler struct {
	db    *database.DB
	cache *services.CacheService
}

func NewPlayerHandler(db *database.DB, cache *services.CacheService) *PlayerHandler {
	return &PlayerHandler{
		db:    db,
		cache: cache,
	}
}

// GetPlayers returns the roster, filtered and cached. Fill players are
// hidden unless ?include_fill=true.
func (h *PlayerHandler) GetPlayers(c *gin.Context) {
	position := c.Query("position")
	team := c.Query("team")
	status := c.Query("status")
	search := c.Query("search")
	includeFill := c.DefaultQuery("include_fill", "false") == "true"

	ctx := c.Request.Context()
	cacheKey := services.PlayerListKey(position, team, status)
	cacheable := search == "" && !includeFill

	var players []models.Player
	if cacheable {
		if err := h.cache.Get(ctx, cacheKey, &players); err == nil {
			utils.SendSuccess(c, players)
			return
		}
	}

	query := h.db.Model(&models.Player{})
	if !includeFill {
		query = query.Where("is_fill_player = ?", false)
	}
	if position != "" {
		query = query.Where("position = ?", position)
	}
	if team != "" {
		query = query.Where("team = ?", team)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	if err := query.Order("name").Find(&players).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch players")
		return
	}

	if cacheable {
		h.cache.Set(ctx, cacheKey, players, services.PlayerCacheTTL)
	}
	utils.SendSuccess(c, players)
}

// GetPlayer returns a single player by ID
func (h *PlayerHandler) GetPlayer(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid player ID", err.Error())
		return
	}

	ctx := c.Request.Context()
	cacheKey := services.PlayerKey(uint(id))

	var player models.Player
	if err := h.cache.Get(ctx, cacheKey, &player); err == nil {
		utils.SendSuccess(c, player)
		return
	}

	if err := h.db.First(&player, id).Error; err != nil {
		utils.SendNotFound(c, "Player not found")
		return
	}

	h.cache.Set(ctx, cacheKey, player, services.PlayerCacheTTL)
	utils.SendSuccess(c, player)
}
