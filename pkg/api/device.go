package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo"

	"github.com/gestionclick24-cpu/captive/pkg/api/resource"
)

func (h *Handler) handleFetchDevices(c echo.Context) error {
	m, err := h.store.Devices().FetchAll()
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewDeviceList(m))
}

func (h *Handler) handleGetDeviceByID(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	m, err := h.store.Devices().FindByID(id)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewDevice(m))
}

func (h *Handler) handleCreateDevice(c echo.Context) error {
	r := &resource.DeviceResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	m, err := resource.ValidateDevice(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	if err := h.store.Devices().Create(m); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, resource.NewDevice(m))
}

// handleUpdateDevice lets an operator change capacity, credentials or the
// active flag. Occupancy fields stay owned by the synchronizer. Devices
// are never deleted through the API, deactivation is the supported way to
// retire one.
func (h *Handler) handleUpdateDevice(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	current, err := h.store.Devices().FindByID(id)
	if err != nil {
		return errorResponse(c, err)
	}

	r := &resource.DeviceResource{}
	if err := c.Bind(r); err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	if r.APIPassword == "" {
		r.APIPassword = current.APIPassword
	}

	m, err := resource.ValidateDevice(r)
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	m.ID = current.ID
	m.CurrentUsers = current.CurrentUsers
	m.LastSyncAt = current.LastSyncAt
	m.CreatedAt = current.CreatedAt

	if err := h.store.Devices().Update(m); err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewDevice(m))
}

func (h *Handler) handleGetDeviceOccupancy(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	occ, err := h.broker.GetDeviceOccupancy(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	out := &resource.OccupancyResource{
		Current: occ.Current,
		Max:     occ.Max,
	}
	if !occ.SyncedAt.IsZero() {
		t := occ.SyncedAt
		out.SyncedAt = &t
	}

	return c.JSON(http.StatusOK, out)
}

func (h *Handler) handleGetDeviceActiveUsers(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	if _, err := h.store.Devices().FindByID(id); err != nil {
		return errorResponse(c, err)
	}

	users, err := h.broker.ActiveUsers(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, resource.NewActiveUserList(users))
}

func (h *Handler) handleSyncDevice(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, resource.NewError("ERR_BAD_REQUEST", err.Error()))
	}

	if _, err := h.store.Devices().FindByID(id); err != nil {
		return errorResponse(c, err)
	}

	count, err := h.broker.Sync(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, map[string]int{"occupancy": count})
}

func paramID(c echo.Context, name string) (int32, error) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, err
	}
	return int32(id), nil
}
