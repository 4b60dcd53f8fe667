package api

import (
	"net/http"

	"github.com/labstack/echo"

	"github.com/gestionclick24-cpu/captive/pkg/api/resource"
)

func (h *Handler) handleFetchEvents(c echo.Context) error {
	m, err := h.store.Events().FetchAll()
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewEventList(m))
}
