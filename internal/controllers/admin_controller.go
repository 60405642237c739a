package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/franciscosanchezn/gin-token-exchange/internal/cache"
	"github.com/franciscosanchezn/gin-token-exchange/internal/invalidation"
	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CacheAdmin is the part of the tiered cache exposed to operators.
type CacheAdmin interface {
	Stats() cache.Stats
	Clear(ctx context.Context) error
}

// AdminController serves the minimal admin surface. Every mutation that changes
// what the edge router may serve is followed by a rebuild trigger.
type AdminController struct {
	tokens    *services.TokenService
	store     services.CredentialStore
	cache     CacheAdmin
	publisher invalidation.Publisher
	log       logrus.FieldLogger
}

func NewAdminController(tokens *services.TokenService, store services.CredentialStore, c CacheAdmin, publisher invalidation.Publisher, logger logrus.FieldLogger) *AdminController {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if publisher == nil {
		publisher = invalidation.NoopPublisher{Log: logger}
	}
	return &AdminController{
		tokens:    tokens,
		store:     store,
		cache:     c,
		publisher: publisher,
		log:       logger.WithField("component", "admin"),
	}
}

// RegisterRoutes mounts the admin endpoints. read carries the inspection endpoints,
// write everything that mutates state. Both groups must already be authenticated.
func (ac *AdminController) RegisterRoutes(read, write gin.IRouter) {
	read.GET("/tokens/stats", ac.TokenStats)
	read.GET("/cache/stats", ac.CacheStats)

	write.POST("/tokens/revoke", ac.RevokeToken)
	write.PATCH("/clients/:id/status", ac.UpdateClientStatus)
	write.PATCH("/upstream-accounts/:id/status", ac.UpdateUpstreamAccountStatus)
	write.POST("/sync", ac.TriggerSync)
	write.DELETE("/cache", ac.ClearCache)
}

// RevokeToken godoc
// @Summary Revoke an access token
// @Description Revokes an active token mapping and triggers an edge cache rebuild
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body object{access_token=string,reason=string} true "Token to revoke"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Security BearerAuth
// @Router /admin/tokens/revoke [post]
func (ac *AdminController) RevokeToken(c *gin.Context) {
	var req struct {
		AccessToken string `json:"access_token" binding:"required"`
		Reason      string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, err.Error()))
		return
	}
	if req.Reason == "" {
		req.Reason = "admin_revoke"
	}

	err := ac.tokens.Revoke(c.Request.Context(), req.AccessToken, req.Reason)
	if errors.Is(err, services.ErrInvalidToken) {
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, "token not found or already inactive"))
		return
	}
	if err != nil {
		ac.log.WithError(err).Error("Failed to revoke token")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to revoke token"))
		return
	}

	ac.publisher.Publish(c.Request.Context(), "token_revoke")
	c.JSON(http.StatusOK, gin.H{"revoked": true, "reason": req.Reason})
}

// TokenStats godoc
// @Summary Token mapping statistics
// @Description Counts and usage figures for token mappings, optionally for one client token
// @Tags Admin
// @Produce json
// @Param client_token query string false "Restrict to a client token"
// @Success 200 {object} models.MappingStats
// @Failure 500 {object} models.APIError
// @Security BearerAuth
// @Router /admin/tokens/stats [get]
func (ac *AdminController) TokenStats(c *gin.Context) {
	stats, err := ac.tokens.Stats(c.Request.Context(), c.Query("client_token"))
	if err != nil {
		ac.log.WithError(err).Error("Failed to compute token stats")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to compute token stats"))
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TriggerSync godoc
// @Summary Trigger an edge cache rebuild
// @Description Publishes the rebuild trigger without changing any state
// @Tags Admin
// @Produce json
// @Success 202 {object} map[string]string
// @Security BearerAuth
// @Router /admin/sync [post]
func (ac *AdminController) TriggerSync(c *gin.Context) {
	ac.publisher.Publish(c.Request.Context(), "manual_sync")
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// CacheStats godoc
// @Summary Token cache statistics
// @Tags Admin
// @Produce json
// @Success 200 {object} cache.Stats
// @Security BearerAuth
// @Router /admin/cache/stats [get]
func (ac *AdminController) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, ac.cache.Stats())
}

// ClearCache godoc
// @Summary Clear the token cache
// @Description Drops every cached mapping in both layers. The store stays authoritative.
// @Tags Admin
// @Success 204 "Cache cleared"
// @Failure 500 {object} models.APIError
// @Security BearerAuth
// @Router /admin/cache [delete]
func (ac *AdminController) ClearCache(c *gin.Context) {
	if err := ac.cache.Clear(c.Request.Context()); err != nil {
		ac.log.WithError(err).Error("Failed to clear token cache")
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to clear cache"))
		return
	}
	c.Status(http.StatusNoContent)
}
