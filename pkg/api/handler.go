package api

import (
	"net/http"

	"github.com/labstack/echo"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/gestionclick24-cpu/captive/pkg/api/resource"
	"github.com/gestionclick24-cpu/captive/pkg/broker"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

// Handler contains all properties to serve the API
type Handler struct {
	nc     *nats.Conn
	store  storage.Interface
	broker *broker.Broker
}

// NewHandler create a new API handler
func NewHandler(nc *nats.Conn, store storage.Interface, b *broker.Broker) *Handler {
	return &Handler{
		nc:     nc,
		store:  store,
		broker: b,
	}
}

// RegisterRoutes attaches the handlers to the echo web server
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	log.Debug("Register API routes")
	api := e.Group("/api/v1")

	api.GET("/devices", h.handleFetchDevices)
	api.POST("/devices", h.handleCreateDevice)
	api.GET("/devices/:id", h.handleGetDeviceByID)
	api.PUT("/devices/:id", h.handleUpdateDevice)
	api.GET("/devices/:id/occupancy", h.handleGetDeviceOccupancy)
	api.GET("/devices/:id/active-users", h.handleGetDeviceActiveUsers)
	api.POST("/devices/:id/sync", h.handleSyncDevice)

	api.POST("/access", h.handleProvisionAccess)
	api.DELETE("/access/:deviceId/:username", h.handleRevokeAccess)

	api.GET("/clients", h.handleFetchClients)
	api.POST("/clients", h.handleCreateClient)
	api.GET("/clients/:id", h.handleGetClientByID)
	api.POST("/clients/:id/credits", h.handleAddCredits)

	api.GET("/sessions", h.handleFetchSessions)

	api.GET("/events", h.handleFetchEvents)

	api.Any("/realtime-events", h.realtimeEventsHandler())
}

// errorResponse maps broker and storage errors to a status code and a
// stable machine-checkable reason payload.
func errorResponse(c echo.Context, err error) error {
	if err == storage.ErrNotFound {
		return c.JSON(http.StatusNotFound, resource.NewError("ERR_NOT_FOUND", "not found"))
	}

	switch e := err.(type) {
	case *broker.DenialError:
		return c.JSON(http.StatusBadRequest, resource.NewError(e.Reason.String(), e.Message))
	case *broker.TransportError:
		status := http.StatusBadGateway
		if e.Reason == broker.ErrReasonDeviceTimeout {
			status = http.StatusGatewayTimeout
		}
		return c.JSON(status, resource.NewError(e.Reason.String(), e.Error()))
	}

	return c.JSON(http.StatusInternalServerError,
		resource.NewError("ERR_TECHNICAL_EXCEPTION", err.Error()))
}
