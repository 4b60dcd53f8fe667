package resource

import (
	"sort"
	"time"

	"github.com/gestionclick24-cpu/captive/pkg/model"
)

type SessionResource struct {
	ID        int32      `json:"id"`
	ClientID  int32      `json:"clientId"`
	DeviceID  int32      `json:"deviceId"`
	Username  string     `json:"username"`
	StartedAt *time.Time `json:"startedAt,omitempty"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
	DataUsed  int64      `json:"dataUsed"`
	RemoteIP  string     `json:"remoteIp,omitempty"`
	Open      bool       `json:"open"`
}

type SessionListResource struct {
	Members []*SessionResource `json:"members"`
}

func NewSession(m *model.Session) (out *SessionResource) {
	out = &SessionResource{
		ID:       m.ID,
		ClientID: m.ClientID,
		DeviceID: m.DeviceID,
		Username: m.Username,
		DataUsed: m.DataUsed,
		RemoteIP: m.RemoteIP,
		Open:     m.Open(),
	}

	if !m.StartedAt.IsZero() {
		out.StartedAt = &time.Time{}
		*out.StartedAt = m.StartedAt.Round(time.Second)
	}
	if m.EndedAt != nil {
		out.EndedAt = &time.Time{}
		*out.EndedAt = m.EndedAt.Round(time.Second)
	}

	return // out
}

func NewSessionList(m map[int32]model.Session) (out *SessionListResource) {
	out = &SessionListResource{
		Members: make([]*SessionResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewSession(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}
