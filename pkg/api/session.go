package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/gestionclick24-cpu/captive/pkg/api/resource"
)

func (h *Handler) handleFetchSessions(c echo.Context) error {
	if clientParam := c.QueryParam("clientId"); clientParam != "" {
		clientID, err := strconv.Atoi(clientParam)
		if err != nil {
			return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
		}

		m, err := h.store.Sessions().FetchByClient(int32(clientID))
		if err != nil {
			return errorResponse(c, err)
		}

		return c.JSON(http.StatusOK, resource.NewSessionList(m))
	}

	m, err := h.store.Sessions().FetchAll()
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewSessionList(m))
}
