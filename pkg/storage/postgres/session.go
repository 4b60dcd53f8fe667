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

func newSessionStore(db *sqlx.DB) *sessionStore {
	return &sessionStore{
		db: db,
	}
}

type sessionStore struct {
	db *sqlx.DB
}

type sqlDataSession struct {
	ID        int32        `db:"id"`
	ClientID  int32        `db:"client_id"`
	DeviceID  int32        `db:"device_id"`
	Username  string       `db:"username"`
	StartedAt time.Time    `db:"started_at"`
	EndedAt   sql.NullTime `db:"ended_at"`
	DataUsed  int64        `db:"data_used"`
	RemoteIP  string       `db:"remote_ip"`
	CreatedAt time.Time    `db:"created_at"`
	UpdatedAt time.Time    `db:"updated_at"`
}

var sqlParamsSession = []string{
	"id",
	"client_id",
	"device_id",
	"username",
	"started_at",
	"ended_at",
	"data_used",
	"remote_ip",
	"created_at",
	"updated_at",
}

func (d *sqlDataSession) Scan(m *model.Session) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.ClientID = m.ClientID
	d.DeviceID = m.DeviceID
	d.Username = m.Username
	d.StartedAt = m.StartedAt
	if m.EndedAt != nil {
		d.EndedAt = sql.NullTime{Time: *m.EndedAt, Valid: true}
	}
	d.DataUsed = m.DataUsed
	d.RemoteIP = m.RemoteIP
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataSession) Model() (*model.Session, error) {
	m := &model.Session{
		ID:        d.ID,
		ClientID:  d.ClientID,
		DeviceID:  d.DeviceID,
		Username:  d.Username,
		StartedAt: d.StartedAt,
		DataUsed:  d.DataUsed,
		RemoteIP:  d.RemoteIP,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}

	if d.EndedAt.Valid {
		t := d.EndedAt.Time
		m.EndedAt = &t
	}

	return m, nil
}

func (s *sessionStore) FetchAll() (map[int32]model.Session, error) {
	return fetchSessions(s.db, "SELECT * FROM sessions ORDER BY id")
}

func (s *sessionStore) FetchByClient(clientID int32) (map[int32]model.Session, error) {
	return fetchSessions(s.db, "SELECT * FROM sessions WHERE client_id=$1 ORDER BY id", clientID)
}

func (s *sessionStore) FindByID(id int32) (*model.Session, error) {
	d := sqlDataSession{}
	query := "SELECT * FROM sessions WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find session")
	}

	return d.Model()
}

func (s *sessionStore) FindOpenByDeviceAndUsername(deviceID int32, username string) (*model.Session, error) {
	d := sqlDataSession{}
	query := "SELECT * FROM sessions WHERE device_id=$1 AND username=$2 AND ended_at IS NULL"
	if err := s.db.Get(&d, query, deviceID, username); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find open session")
	}

	return d.Model()
}

func (s *sessionStore) CountOpenByDevice(deviceID int32) (int, error) {
	var count int
	query := "SELECT COUNT(*) FROM sessions WHERE device_id=$1 AND ended_at IS NULL"
	if err := s.db.Get(&count, query, deviceID); err != nil {
		return 0, errors.Wrap(err, "failed to count open sessions")
	}

	return count, nil
}

func (s *sessionStore) Create(m *model.Session) error {
	d := sqlDataSession{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert session model to SQL data")
	}

	cols := insertColumns(sqlParamsSession)
	query := fmt.Sprintf(
		"INSERT INTO sessions (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "),
		":"+strings.Join(cols, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to create session")
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}

// Close sets the end time once. The ended_at IS NULL guard keeps closing
// monotonic without a read-modify-write cycle.
func (s *sessionStore) Close(id int32, endedAt time.Time) error {
	query := "UPDATE sessions SET ended_at=$1, updated_at=$2 WHERE id=$3 AND ended_at IS NULL"
	_, err := s.db.Exec(query, endedAt, time.Now().Round(time.Second).UTC(), id)
	if err != nil {
		return errors.Wrap(err, "failed to close session")
	}

	return nil
}

func fetchSessions(db *sqlx.DB, query string, args ...interface{}) (map[int32]model.Session, error) {
	rows := make([]sqlDataSession, 0)
	models := make(map[int32]model.Session)

	if err := db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to fetch sessions")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to session model")
		}

		models[d.ID] = *m
	}

	return models, nil
}
