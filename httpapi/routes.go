package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// GetTables returns waiting tables and seated players for every wager tier
func (h *Handler) GetTables(c *gin.Context) {
	lobby, err := h.cubeGame.GetLobby(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	tables := make([]TableResponse, 0, len(lobby))
	for _, counts := range lobby {
		tables = append(tables, newTableResponse(counts))
	}
	c.JSON(http.StatusOK, gin.H{"tables": tables})
}

// GetStats returns aggregate figures over every finished duel
func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.stats.GetCubeGameStats(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		TotalGames:        stats.TotalGames,
		TotalWagered:      stats.TotalWagered.StringFixed(2),
		TotalWon:          stats.TotalWon.StringFixed(2),
		TotalLost:         stats.TotalLost.StringFixed(2),
		BotCommission:     stats.BotCommission.StringFixed(2),
		CommissionPercent: stats.CommissionPercent.String(),
	})
}

func (h *Handler) ListSettings(c *gin.Context) {
	settings, err := h.settings.List(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}

	resp := make([]SettingResponse, 0, len(settings))
	for _, s := range settings {
		resp = append(resp, newSettingResponse(s))
	}
	c.JSON(http.StatusOK, gin.H{"settings": resp})
}

func (h *Handler) GetSetting(c *gin.Context) {
	key := c.Param("key")

	value, err := h.settings.Get(c.Request.Context(), key)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, SettingResponse{Key: key, Value: value.String()})
}

func (h *Handler) UpdateSetting(c *gin.Context) {
	var req UpdateSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		badRequest(c, "value must be a decimal number")
		return
	}

	setting, err := h.settings.Update(c.Request.Context(), c.Param("key"), value)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSettingResponse(setting))
}

func (h *Handler) GetUser(c *gin.Context) {
	telegramID, ok := telegramIDParam(c)
	if !ok {
		return
	}

	user, err := h.users.GetByTelegramID(c.Request.Context(), telegramID)
	if err != nil {
		h.handleError(c, err)
		return
	}

	stats, err := h.stats.GetUserStats(c.Request.Context(), user.ID)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user, stats))
}

func (h *Handler) AdjustStars(c *gin.Context) {
	telegramID, ok := telegramIDParam(c)
	if !ok {
		return
	}

	var req AdjustStarsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	delta, err := decimal.NewFromString(req.Delta)
	if err != nil || delta.IsZero() || !delta.Equal(delta.Round(2)) {
		badRequest(c, "delta must be a non-zero amount with at most two decimals")
		return
	}

	user, err := h.users.AdjustStars(c.Request.Context(), telegramID, delta, req.Reason)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, newUserResponse(user, nil))
}

func (h *Handler) SetBanned(c *gin.Context) {
	telegramID, ok := telegramIDParam(c)
	if !ok {
		return
	}

	var req SetBannedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body")
		return
	}

	if err := h.users.SetBanned(c.Request.Context(), telegramID, *req.Banned); err != nil {
		h.handleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func telegramIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("telegram_id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "telegram_id must be a positive integer")
		return 0, false
	}
	return id, true
}
