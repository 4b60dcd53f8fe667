package resource

import (
	"fmt"
	"sort"
	"time"

	"github.com/gestionclick24-cpu/captive/pkg/model"
)

type DeviceResource struct {
	ID           int32      `json:"id"`
	Name         string     `json:"name"`
	Location     string     `json:"location,omitempty"`
	Address      string     `json:"address"`
	APIPort      int        `json:"apiPort"`
	APIUsername  string     `json:"apiUsername"`
	APIPassword  string     `json:"apiPassword,omitempty"`
	UseTLS       bool       `json:"useTls"`
	MaxUsers     int        `json:"maxUsers"`
	CurrentUsers int        `json:"currentUsers"`
	Available    bool       `json:"available"`
	Active       bool       `json:"active"`
	LastSyncAt   *time.Time `json:"lastSyncAt,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

type DeviceListResource struct {
	Members []*DeviceResource `json:"members"`
}

func NewDevice(m *model.Device) (out *DeviceResource) {
	out = &DeviceResource{
		ID:           m.ID,
		Name:         m.Name,
		Location:     m.Location,
		Address:      m.Address,
		APIPort:      m.APIPort,
		APIUsername:  m.APIUsername,
		UseTLS:       m.UseTLS,
		MaxUsers:     m.MaxUsers,
		CurrentUsers: m.CurrentUsers,
		Available:    m.Active && m.CurrentUsers < m.MaxUsers,
		Active:       m.Active,
	}

	// The API password never leaves the system

	if !m.LastSyncAt.IsZero() {
		out.LastSyncAt = &time.Time{}
		*out.LastSyncAt = m.LastSyncAt.Round(time.Second)
	}
	if !m.CreatedAt.IsZero() {
		out.CreatedAt = &time.Time{}
		*out.CreatedAt = m.CreatedAt.Round(time.Second)
	}
	if !m.UpdatedAt.IsZero() {
		out.UpdatedAt = &time.Time{}
		*out.UpdatedAt = m.UpdatedAt.Round(time.Second)
	}

	return // out
}

func NewDeviceList(m map[int32]model.Device) (out *DeviceListResource) {
	out = &DeviceListResource{
		Members: make([]*DeviceResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewDevice(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}

func ValidateDevice(r *DeviceResource) (m *model.Device, err error) {
	if r.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if r.Address == "" {
		return nil, fmt.Errorf("address is required")
	}
	if r.APIUsername == "" {
		return nil, fmt.Errorf("apiUsername is required")
	}
	if r.APIPassword == "" {
		return nil, fmt.Errorf("apiPassword is required")
	}
	if r.MaxUsers < 0 {
		return nil, fmt.Errorf("maxUsers must not be negative")
	}

	m = &model.Device{
		Name:        r.Name,
		Location:    r.Location,
		Address:     r.Address,
		APIPort:     r.APIPort,
		APIUsername: r.APIUsername,
		APIPassword: r.APIPassword,
		UseTLS:      r.UseTLS,
		MaxUsers:    r.MaxUsers,
		Active:      r.Active,
	}

	return m, nil
}

type OccupancyResource struct {
	Current  int        `json:"current"`
	Max      int        `json:"max"`
	SyncedAt *time.Time `json:"syncedAt,omitempty"`
}

type ActiveUserResource struct {
	Username string `json:"username"`
	Address  string `json:"address,omitempty"`
	Uptime   string `json:"uptime,omitempty"`
}

type ActiveUserListResource struct {
	Members []*ActiveUserResource `json:"members"`
}

func NewActiveUserList(users []model.ActiveUser) (out *ActiveUserListResource) {
	out = &ActiveUserListResource{
		Members: make([]*ActiveUserResource, 0, len(users)),
	}

	for _, u := range users {
		out.Members = append(out.Members, &ActiveUserResource{
			Username: u.Username,
			Address:  u.Address,
			Uptime:   u.Uptime,
		})
	}

	return // out
}
