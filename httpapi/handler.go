package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"cubeduel/models"
	"cubeduel/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Handler serves the operator HTTP API
type Handler struct {
	cubeGame service.CubeGameService
	stats    service.StatsService
	settings service.GameSettingsService
	users    service.UserService
	token    string
}

func NewHandler(
	cubeGame service.CubeGameService,
	stats service.StatsService,
	settings service.GameSettingsService,
	users service.UserService,
	token string,
) *Handler {
	return &Handler{
		cubeGame: cubeGame,
		stats:    stats,
		settings: settings,
		users:    users,
		token:    token,
	}
}

func (h *Handler) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(
		RequestIDMiddleware(),
		LoggingMiddleware(),
		gin.Recovery(),
	)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	cube := v1.Group("/cube")
	cube.GET("/tables", h.GetTables)
	cube.GET("/stats", h.GetStats)

	admin := v1.Group("", BearerAuthMiddleware(h.token))

	settings := admin.Group("/settings")
	settings.GET("", h.ListSettings)
	settings.GET("/:key", h.GetSetting)
	settings.PUT("/:key", h.UpdateSetting)

	users := admin.Group("/users")
	users.GET("/:telegram_id", h.GetUser)
	users.POST("/:telegram_id/stars", h.AdjustStars)
	users.PUT("/:telegram_id/ban", h.SetBanned)

	return router
}

// Server wraps the HTTP server lifecycle
type Server struct {
	httpServer *http.Server
}

func NewServer(port int, handler *Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler.SetupRoutes(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background until Shutdown is called
func (s *Server) Start() {
	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("Ops API listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Ops API stopped unexpectedly")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (h *Handler) handleError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "INTERNAL_SERVER_ERROR"

	switch {
	case errors.Is(err, models.ErrInsufficientBalance):
		status = http.StatusBadRequest
		code = "INSUFFICIENT_BALANCE"
	case errors.Is(err, models.ErrInvalidSetting):
		status = http.StatusBadRequest
		code = "INVALID_SETTING"
	case errors.Is(err, models.ErrInvalidWager):
		status = http.StatusBadRequest
		code = "INVALID_WAGER"
	case errors.Is(err, models.ErrUserNotFound):
		status = http.StatusNotFound
		code = "USER_NOT_FOUND"
	case errors.Is(err, models.ErrSettingNotFound):
		status = http.StatusNotFound
		code = "SETTING_NOT_FOUND"
	case errors.Is(err, models.ErrMatchNotFound):
		status = http.StatusNotFound
		code = "MATCH_NOT_FOUND"
	case errors.Is(err, models.ErrInvalidTransition), errors.Is(err, models.ErrTableInPlay):
		status = http.StatusConflict
		code = "INVALID_STATE"
	}

	if status == http.StatusInternalServerError {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("internal server error")
		c.JSON(status, ErrorResponse{Error: "internal error", Code: code})
		return
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Code: "INVALID_REQUEST"})
}
