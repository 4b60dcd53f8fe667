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

func newDeviceStore(db *sqlx.DB) *deviceStore {
	return &deviceStore{
		db: db,
	}
}

type deviceStore struct {
	db *sqlx.DB
}

type sqlDataDevice struct {
	ID           int32        `db:"id"`
	Name         string       `db:"name"`
	Location     string       `db:"location"`
	Address      string       `db:"address"`
	APIPort      int          `db:"api_port"`
	APIUsername  string       `db:"api_username"`
	APIPassword  string       `db:"api_password"`
	UseTLS       bool         `db:"use_tls"`
	MaxUsers     int          `db:"max_users"`
	CurrentUsers int          `db:"current_users"`
	LastSyncAt   sql.NullTime `db:"last_sync_at"`
	Active       bool         `db:"active"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

var sqlParamsDevice = []string{
	"id",
	"name",
	"location",
	"address",
	"api_port",
	"api_username",
	"api_password",
	"use_tls",
	"max_users",
	"current_users",
	"last_sync_at",
	"active",
	"created_at",
	"updated_at",
}

func (d *sqlDataDevice) Scan(m *model.Device) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.Name = m.Name
	d.Location = m.Location
	d.Address = m.Address
	d.APIPort = m.APIPort
	d.APIUsername = m.APIUsername
	d.APIPassword = m.APIPassword
	d.UseTLS = m.UseTLS
	d.MaxUsers = m.MaxUsers
	d.CurrentUsers = m.CurrentUsers
	d.LastSyncAt = sql.NullTime{Time: m.LastSyncAt, Valid: !m.LastSyncAt.IsZero()}
	d.Active = m.Active
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataDevice) Model() (*model.Device, error) {
	m := &model.Device{
		ID:           d.ID,
		Name:         d.Name,
		Location:     d.Location,
		Address:      d.Address,
		APIPort:      d.APIPort,
		APIUsername:  d.APIUsername,
		APIPassword:  d.APIPassword,
		UseTLS:       d.UseTLS,
		MaxUsers:     d.MaxUsers,
		CurrentUsers: d.CurrentUsers,
		Active:       d.Active,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}

	if d.LastSyncAt.Valid {
		m.LastSyncAt = d.LastSyncAt.Time
	}

	return m, nil
}

func (s *deviceStore) FetchAll() (map[int32]model.Device, error) {
	return fetchDevices(s.db, "SELECT * FROM devices ORDER BY id")
}

func (s *deviceStore) FetchActive() (map[int32]model.Device, error) {
	return fetchDevices(s.db, "SELECT * FROM devices WHERE active = TRUE ORDER BY id")
}

func (s *deviceStore) FindByID(id int32) (*model.Device, error) {
	d := sqlDataDevice{}
	query := "SELECT * FROM devices WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find device")
	}

	return d.Model()
}

func (s *deviceStore) Create(m *model.Device) error {
	// Set default values
	if m.APIPort == 0 {
		m.APIPort = 8728
	}
	if m.MaxUsers == 0 {
		m.MaxUsers = 50
	}

	d := sqlDataDevice{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert device model to SQL data")
	}

	cols := insertColumns(sqlParamsDevice)
	query := fmt.Sprintf(
		"INSERT INTO devices (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "),
		":"+strings.Join(cols, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to create device")
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}

func (s *deviceStore) Update(m *model.Device) error {
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	d := sqlDataDevice{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert device model to SQL data")
	}

	query := `UPDATE devices SET name=:name, location=:location,
		address=:address, api_port=:api_port, api_username=:api_username,
		api_password=:api_password, use_tls=:use_tls, max_users=:max_users,
		active=:active, updated_at=:updated_at WHERE id=:id`
	res, err := s.db.NamedExec(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to update device")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *deviceStore) UpdateOccupancy(id int32, count int, syncedAt time.Time) error {
	query := "UPDATE devices SET current_users=$1, last_sync_at=$2, updated_at=$3 WHERE id=$4"
	res, err := s.db.Exec(query, count, syncedAt, time.Now().Round(time.Second).UTC(), id)
	if err != nil {
		return errors.Wrap(err, "failed to update device occupancy")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *deviceStore) Delete(id int32) error {
	query := "DELETE FROM devices WHERE id=$1"
	_, err := s.db.Exec(query, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete device")
	}

	return nil
}

func fetchDevices(db *sqlx.DB, query string, args ...interface{}) (map[int32]model.Device, error) {
	rows := make([]sqlDataDevice, 0)
	models := make(map[int32]model.Device)

	if err := db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "failed to fetch devices")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to device model")
		}

		models[d.ID] = *m
	}

	return models, nil
}
