package resource

import (
	"sort"
	"time"

	"github.com/gestionclick24-cpu/captive/pkg/model"
)

type EventResource struct {
	ID         int32      `json:"id"`
	SourceType string     `json:"sourceType"`
	SourceID   string     `json:"sourceId"`
	Topic      string     `json:"topic"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Details    string     `json:"details,omitempty"`
}

type EventListResource struct {
	Members []*EventResource `json:"members"`
}

func NewEvent(m *model.Event) (out *EventResource) {
	out = &EventResource{
		ID:         m.ID,
		SourceType: m.SourceType,
		SourceID:   m.SourceID,
		Topic:      m.Topic,
		Details:    m.Details,
	}

	if !m.Timestamp.IsZero() {
		out.Timestamp = &time.Time{}
		*out.Timestamp = m.Timestamp.Round(time.Second)
	}

	return // out
}

func NewEventList(m map[int32]model.Event) (out *EventListResource) {
	out = &EventListResource{
		Members: make([]*EventResource, 0),
	}

	for _, elem := range m {
		out.Members = append(out.Members, NewEvent(&elem))
	}

	// Default sort by ID
	sort.Slice(out.Members, func(i, j int) bool {
		return out.Members[i].ID < out.Members[j].ID
	})

	return // out
}
