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

func newClientStore(db *sqlx.DB) *clientStore {
	return &clientStore{
		db: db,
	}
}

type clientStore struct {
	db *sqlx.DB
}

type sqlDataClient struct {
	ID          int32        `db:"id"`
	Email       string       `db:"email"`
	Name        string       `db:"name"`
	Credits     int          `db:"credits"`
	Active      bool         `db:"active"`
	LastLoginAt sql.NullTime `db:"last_login_at"`
	CreatedAt   time.Time    `db:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at"`
}

var sqlParamsClient = []string{
	"id",
	"email",
	"name",
	"credits",
	"active",
	"last_login_at",
	"created_at",
	"updated_at",
}

func (d *sqlDataClient) Scan(m *model.Client) error {
	var createdAt, updatedAt = m.CreatedAt, m.UpdatedAt

	if m.CreatedAt.IsZero() {
		createdAt = time.Now().Round(time.Second).UTC()
	}

	if m.UpdatedAt.IsZero() {
		updatedAt = time.Now().Round(time.Second).UTC()
	}

	d.ID = m.ID
	d.Email = m.Email
	d.Name = m.Name
	d.Credits = m.Credits
	d.Active = m.Active
	d.LastLoginAt = sql.NullTime{Time: m.LastLoginAt, Valid: !m.LastLoginAt.IsZero()}
	d.CreatedAt = createdAt
	d.UpdatedAt = updatedAt

	return nil
}

func (d *sqlDataClient) Model() (*model.Client, error) {
	m := &model.Client{
		ID:        d.ID,
		Email:     d.Email,
		Name:      d.Name,
		Credits:   d.Credits,
		Active:    d.Active,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}

	if d.LastLoginAt.Valid {
		m.LastLoginAt = d.LastLoginAt.Time
	}

	return m, nil
}

func (s *clientStore) FetchAll() (map[int32]model.Client, error) {
	rows := make([]sqlDataClient, 0)
	models := make(map[int32]model.Client)

	query := "SELECT * FROM clients ORDER BY id"
	if err := s.db.Select(&rows, query); err != nil {
		return nil, errors.Wrap(err, "failed to fetch all clients")
	}

	for _, d := range rows {
		m, err := d.Model()
		if err != nil {
			return nil, errors.Wrap(err, "failed to convert SQL data to client model")
		}

		models[d.ID] = *m
	}

	return models, nil
}

func (s *clientStore) FindByID(id int32) (*model.Client, error) {
	d := sqlDataClient{}
	query := "SELECT * FROM clients WHERE id=$1"
	if err := s.db.Get(&d, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find client")
	}

	return d.Model()
}

func (s *clientStore) FindByEmail(email string) (*model.Client, error) {
	d := sqlDataClient{}
	query := "SELECT * FROM clients WHERE email=$1"
	if err := s.db.Get(&d, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, storage.ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to find client")
	}

	return d.Model()
}

func (s *clientStore) Create(m *model.Client) error {
	d := sqlDataClient{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert client model to SQL data")
	}

	cols := insertColumns(sqlParamsClient)
	query := fmt.Sprintf(
		"INSERT INTO clients (%s) VALUES (%s) RETURNING id",
		strings.Join(cols, ", "),
		":"+strings.Join(cols, ", :"),
	)
	rows, err := s.db.NamedQuery(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to create client")
	}
	defer rows.Close()
	if rows.Next() {
		rows.Scan(&m.ID)
	}

	return nil
}

func (s *clientStore) Update(m *model.Client) error {
	m.UpdatedAt = time.Now().Round(time.Second).UTC()

	d := sqlDataClient{}
	if err := d.Scan(m); err != nil {
		return errors.Wrap(err, "failed to convert client model to SQL data")
	}

	query := `UPDATE clients SET email=:email, name=:name, active=:active,
		last_login_at=:last_login_at, updated_at=:updated_at WHERE id=:id`
	res, err := s.db.NamedExec(query, d)
	if err != nil {
		return errors.Wrap(err, "failed to update client")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

func (s *clientStore) AddCredits(id int32, amount int) error {
	query := "UPDATE clients SET credits=credits+$1, updated_at=$2 WHERE id=$3"
	res, err := s.db.Exec(query, amount, time.Now().Round(time.Second).UTC(), id)
	if err != nil {
		return errors.Wrap(err, "failed to add credits")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// DecrementCredit debits in a single guarded UPDATE so the balance can
// never go negative, even with concurrent debits against the same client.
func (s *clientStore) DecrementCredit(id int32, amount int) error {
	query := "UPDATE clients SET credits=credits-$1, updated_at=$2 WHERE id=$3 AND credits>=$1"
	res, err := s.db.Exec(query, amount, time.Now().Round(time.Second).UTC(), id)
	if err != nil {
		return errors.Wrap(err, "failed to decrement credit")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to decrement credit")
	}
	if n == 0 {
		// Either the client is unknown or the balance is too low
		if _, err := s.FindByID(id); err != nil {
			return err
		}
		return storage.ErrInsufficientCredit
	}

	return nil
}
