package api

import (
	"net/http"

	"github.com/labstack/echo"

	"github.com/gestionclick24-cpu/captive/pkg/api/resource"
)

func (h *Handler) handleFetchClients(c echo.Context) error {
	m, err := h.store.Clients().FetchAll()
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewClientList(m))
}

func (h *Handler) handleGetClientByID(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	m, err := h.store.Clients().FindByID(id)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewClient(m))
}

func (h *Handler) handleCreateClient(c echo.Context) error {
	r := &resource.ClientResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	m, err := resource.ValidateClient(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	if err := h.store.Clients().Create(m); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, resource.NewClient(m))
}

// handleAddCredits is the entry point of the external payment settlement:
// an approved payment tops up the client's balance here.
func (h *Handler) handleAddCredits(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	r := &resource.CreditTopUpResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}
	if r.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", "amount must be positive"))
	}

	if err := h.store.Clients().AddCredits(id, r.Amount); err != nil {
		return errorResponse(c, err)
	}

	m, err := h.store.Clients().FindByID(id)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewClient(m))
}
