package model

import "time"

// Client is a model of the persistency layer. Credits are granted by the
// external payment settlement and consumed by the credential provisioner,
// one unit per successfully provisioned session. The balance never goes
// negative, the storage layer enforces that on debit.
type Client struct {
	ID      int32
	Email   string
	Name    string
	Credits int
	Active  bool

	LastLoginAt time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
