package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/gin-token-exchange/internal/models"
	"github.com/franciscosanchezn/gin-token-exchange/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type statusRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// UpdateClientStatus godoc
// @Summary Enable or disable a client
// @Description Toggles a client and triggers an edge cache rebuild
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Client row ID"
// @Param request body object{enabled=bool} true "New status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Security BearerAuth
// @Router /admin/clients/{id}/status [patch]
func (ac *AdminController) UpdateClientStatus(c *gin.Context) {
	id, enabled, ok := bindStatus(c)
	if !ok {
		return
	}

	err := ac.store.SetClientEnabled(c.Request.Context(), id, enabled)
	if !ac.statusResult(c, err, "client") {
		return
	}

	ac.log.WithFields(logrus.Fields{"client_row_id": id, "enabled": enabled}).Info("Client status changed")
	ac.publisher.Publish(c.Request.Context(), "client_status")
	c.JSON(http.StatusOK, gin.H{"id": id, "enabled": enabled})
}

// UpdateUpstreamAccountStatus godoc
// @Summary Enable or disable a server account
// @Description Toggles an upstream service account and triggers an edge cache rebuild
// @Tags Admin
// @Accept json
// @Produce json
// @Param id path int true "Server account ID"
// @Param request body object{enabled=bool} true "New status"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 500 {object} models.APIError
// @Security BearerAuth
// @Router /admin/upstream-accounts/{id}/status [patch]
func (ac *AdminController) UpdateUpstreamAccountStatus(c *gin.Context) {
	id, enabled, ok := bindStatus(c)
	if !ok {
		return
	}

	err := ac.store.SetUpstreamAccountEnabled(c.Request.Context(), id, enabled)
	if !ac.statusResult(c, err, "server account") {
		return
	}

	ac.log.WithFields(logrus.Fields{"server_account_id": id, "enabled": enabled}).Info("Server account status changed")
	ac.publisher.Publish(c.Request.Context(), "server_account_status")
	c.JSON(http.StatusOK, gin.H{"id": id, "enabled": enabled})
}

func bindStatus(c *gin.Context) (uint, bool, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "invalid id format"))
		return 0, false, false
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, "enabled is required"))
		return 0, false, false
	}
	return uint(id), *req.Enabled, true
}

func (ac *AdminController) statusResult(c *gin.Context, err error, what string) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, models.NewAPIError(models.ErrNotFound, what+" not found"))
	default:
		ac.log.WithError(err).Errorf("Failed to update %s status", what)
		c.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "failed to update "+what+" status"))
	}
	return false
}
