package resource

import (
	"fmt"
	"sort"
	"time"

	"github.com/gestionclick24-cpu/captive/pkg/model"
)

type ClientResource struct {
	ID          int32      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Credits     int        `json:"credits"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
}

type ClientListResource struct {
	Members []*ClientResource `json:"members"`
}

func NewClient(m *model.Client) (out *ClientResource) {
	out = &ClientResource{
		ID:      m.ID,
		Email:   m.Email,
		Name:    m.Name,
		Credits: m.Credits,
		Active:  m.Active,
	}

	if !m.LastLoginAt.IsZero() {
		out.LastLoginAt = &time.Time{}
		*out.LastLoginAt = m.LastLoginAt.Round(time.Second)
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

func NewClientList(m map[int32]model.Client) (out *ClientListResource) {
	out = &ClientListResource{
		Members: make([]*ClientResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewClient(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}

func ValidateClient(r *ClientResource) (m *model.Client, err error) {
	if r.Email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if r.Name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if r.Credits < 0 {
		return nil, fmt.Errorf("credits must not be negative")
	}

	m = &model.Client{
		Email:   r.Email,
		Name:    r.Name,
		Credits: r.Credits,
		Active:  true,
	}

	return m, nil
}

type CreditTopUpResource struct {
	Amount int `json:"amount"`
}
