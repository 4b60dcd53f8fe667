package postgres

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

func newEventStore(db *sqlx.DB) *eventStore {
	return &eventStore{
		db: db,
	}
}

type eventStore struct {
	db *sqlx.DB
}

type sqlDataEvent struct {
	ID         int32     `db:"id"`
	SourceType string    `db:"source_type"`
	SourceID   string    `db:"source_id"`
	Topic      string    `db:"topic"`
	Timestamp  time.Time `db:"timestamp"`
	Details    string    `db:"details"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

var sqlParamsEvent = []string{
	"id",
	"source_type",
	"source_id",
	"topic",
	"timestamp",
	"details",
	"created_at",
	"updated_at",
}

func (d *sqlDataEvent) Scan(m *model.Event) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.SourceType = m.SourceType
	d.SourceID = m.SourceID
	d.Topic = m.Topic
	d.Timestamp = m.Timestamp
	d.Details = m.Details
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataEvent) Model() (*model.Event, error) {
	m := &model.Event{
		ID:         d.ID,
		SourceType: d.SourceType,
		SourceID:   d.SourceID,
		Topic:      d.Topic,
		Timestamp:  d.Timestamp,
		Details:    d.Details,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}

	return m, nil
}

func (s *eventStore) FetchAll() (map[int32]model.Event, error) {
	rows := make([]sqlDataEvent, 0)
	models := make(map[int32]model.Event)

	query := "SELECT * FROM events ORDER BY id"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all events")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to event model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *eventStore) FindByID(id int32) (*model.Event, error) {
	d := sqlDataEvent{}
	query := "SELECT * FROM events WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find event")
	}

	return d.Model()
}

func (s *eventStore) Create(m *model.Event) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().Round(time.Second).UTC()
	}

	d := sqlDataEvent{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert event model to SQL data")
	}

	cols := insertColumns(sqlParamsEvent)
	query := fmt.Sprintf(
		"INSERT INTO events (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "),
		":"+strings.Join(cols, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to create event")
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}
