// Package broker implements the hotspot access broker: it pools
// connections to gateway devices, provisions and revokes ephemeral
// hotspot credentials, enforces capacity and credit before committing a
// session and reconciles cached device occupancy with the device's
// authoritative state.
package broker

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/routeros"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

// Options configures a broker instance. Store and Dialer are required,
// everything else has a sensible default.
type Options struct {
	Store  storage.Interface
	Dialer routeros.Dialer

	// NATS is optional, without it events are only recorded in the
	// event store.
	NATS *nats.Conn

	CommandTimeout  time.Duration
	OccupancyMaxAge time.Duration
	Profile         string
	Uptime          string
}

// Broker is the façade the HTTP layer talks to. It wires the connection
// pool, the guard, the provisioner and the synchronizer together and owns
// their lifecycle.
type Broker struct {
	store       storage.Interface
	pool        *Pool
	syncer      *Syncer
	guard       *Guard
	provisioner *Provisioner
}

func New(opts Options) *Broker {
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = DefaultCommandTimeout
	}

	events := newEventPublisher(opts.NATS, opts.Store)
	pool := NewPool(opts.Store, opts.Dialer, opts.CommandTimeout)
	syncer := NewSyncer(opts.Store, pool, events, opts.OccupancyMaxAge)
	guard := NewGuard(opts.Store, syncer)
	provisioner := NewProvisioner(opts.Store, pool, guard, syncer, events,
		opts.Profile, opts.Uptime)

	return &Broker{
		store:       opts.Store,
		pool:        pool,
		syncer:      syncer,
		guard:       guard,
		provisioner: provisioner,
	}
}

// AccessGrant is the result of a successful provisioning request. The
// credential it carries is shown to the client once and never stored.
type AccessGrant struct {
	Username         string
	Password         string
	DeviceName       string
	DeviceLocation   string
	RemainingCredits int
}

// Occupancy is the cached occupancy view of a device.
type Occupancy struct {
	Current  int
	Max      int
	SyncedAt time.Time
}

// ProvisionAccess spends one credit of the client for a freshly minted
// credential on the device. The grant reports the balance left by that
// debit.
func (b *Broker) ProvisionAccess(ctx context.Context, clientID, deviceID int32, remoteIP string) (*AccessGrant, error) {
	cred, session, remaining, err := b.provisioner.Provision(ctx, clientID, deviceID, remoteIP)
	if err != nil {
		return nil, err
	}

	device, err := b.store.Devices().FindByID(session.DeviceID)
	if err != nil {
		return nil, err
	}

	return &AccessGrant{
		Username:         cred.Username,
		Password:         cred.Password,
		DeviceName:       device.Name,
		DeviceLocation:   device.Location,
		RemainingCredits: remaining,
	}, nil
}

// GetDeviceOccupancy returns the occupancy of a device, syncing first
// when the cached value is stale.
func (b *Broker) GetDeviceOccupancy(ctx context.Context, deviceID int32) (*Occupancy, error) {
	device, err := b.store.Devices().FindByID(deviceID)
	if err != nil {
		return nil, err
	}

	device = b.syncer.EnsureFresh(ctx, device)

	return &Occupancy{
		Current:  device.CurrentUsers,
		Max:      device.MaxUsers,
		SyncedAt: device.LastSyncAt,
	}, nil
}

// RevokeAccess removes a hotspot user from a device and closes its
// session. Idempotent.
func (b *Broker) RevokeAccess(ctx context.Context, deviceID int32, username string) error {
	return b.provisioner.Revoke(ctx, deviceID, username)
}

// Sync forces an occupancy reconciliation for a device.
func (b *Broker) Sync(ctx context.Context, deviceID int32) (int, error) {
	return b.syncer.Sync(ctx, deviceID)
}

// ActiveUsers lists the currently active hotspot users on a device.
func (b *Broker) ActiveUsers(ctx context.Context, deviceID int32) ([]model.ActiveUser, error) {
	gw, err := b.pool.Acquire(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	rows, err := gw.Execute(ctx, "/ip/hotspot/active/print")
	if err != nil {
		return nil, err
	}

	users := make([]model.ActiveUser, 0, len(rows))
	for _, row := range rows {
		users = append(users, model.ActiveUser{
			Username: row["user"],
			Address:  row["address"],
			Uptime:   row["uptime"],
		})
	}

	return users, nil
}

// Close drains all pooled device connections. Called at shutdown.
func (b *Broker) Close() {
	b.pool.CloseAll()
}
