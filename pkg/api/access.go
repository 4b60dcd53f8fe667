package api

import (
	"net/http"

	"github.com/labstack/echo"
	log "github.com/sirupsen/logrus"

	"github.com/gestionclick24-cpu/captive/pkg/api/resource"
)

func (h *Handler) handleProvisionAccess(c echo.Context) error {
	r := &resource.AccessRequestResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	if err := resource.ValidateAccessRequest(r); err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	grant, err := h.broker.ProvisionAccess(c.Request().Context(), r.ClientID, r.DeviceID, c.RealIP())
	if err != nil {
		log.WithFields(log.Fields{
			"client_id": r.ClientID,
			"device_id": r.DeviceID,
		}).Warn("api provisioning request failed: ", err.Error())
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewAccessGrant(grant))
}

func (h *Handler) handleRevokeAccess(c echo.Context) error {
	deviceID, err := paramID(c, "deviceId")
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}
	username := c.Param("username")

	if err := h.broker.RevokeAccess(c.Request().Context(), deviceID, username); err != nil {
		return errorResponse(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
