package broker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/routeros"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

// Provisioner mints ephemeral credentials and issues the add/remove
// commands that activate them on a device. The ordering invariant lives
// here: the client's credit is debited and the session appended only
// after the device accepted the credential, so a failed device command
// leaves no state behind.
type Provisioner struct {
	store   storage.Interface
	pool    *Pool
	guard   *Guard
	syncer  *Syncer
	events  *eventPublisher
	profile string
	uptime  string
}

func NewProvisioner(store storage.Interface, pool *Pool, guard *Guard, syncer *Syncer, events *eventPublisher, profile, uptime string) *Provisioner {
	return &Provisioner{
		store:   store,
		pool:    pool,
		guard:   guard,
		syncer:  syncer,
		events:  events,
		profile: profile,
		uptime:  uptime,
	}
}

// Provision runs the full admission and activation sequence for one
// access request. On success the returned credential has been accepted by
// the device, one credit was debited and an open session was recorded.
// The returned balance is the one left by this debit, never a later
// re-read that concurrent requests or top-ups could have moved.
func (p *Provisioner) Provision(ctx context.Context, clientID, deviceID int32, remoteIP string) (*Credential, *model.Session, int, error) {
	client, device, err := p.guard.Authorize(ctx, clientID, deviceID)
	if err != nil {
		return nil, nil, 0, err
	}

	cred, err := newCredential(client.ID, p.profile, p.uptime)
	if err != nil {
		return nil, nil, 0, err
	}

	_, err = p.execute(ctx, deviceID, "/ip/hotspot/user/add",
		routeros.Arg("name", cred.Username),
		routeros.Arg("password", cred.Password),
		routeros.Arg("profile", cred.Profile),
		routeros.Arg("limit-uptime", cred.Uptime))
	if err != nil {
		// No credit debited, no session written
		return nil, nil, 0, err
	}

	log.WithFields(log.Fields{
		"client_id": client.ID,
		"device_id": device.ID,
		"username":  cred.Username,
	}).Info("provisioner activated credential on device")

	// The device accepted the credential. A failure from here on is the
	// documented partial-failure gap: the device-side user exists without
	// its accounting. Record enough context for an operator sweep.
	if err := p.store.Clients().DecrementCredit(client.ID, 1); err != nil {
		p.reportPartialFailure(device.ID, client.ID, cred.Username, "debit", err)
		return nil, nil, 0, err
	}
	remaining := client.Credits - 1

	session := &model.Session{
		ClientID:  client.ID,
		DeviceID:  device.ID,
		Username:  cred.Username,
		StartedAt: time.Now().Round(time.Second).UTC(),
		RemoteIP:  remoteIP,
	}
	if err := p.store.Sessions().Create(session); err != nil {
		p.reportPartialFailure(device.ID, client.ID, cred.Username, "session write", err)
		return nil, nil, 0, err
	}

	p.events.publish(device.ID, TopicSessionProvisioned, map[string]interface{}{
		"client_id":  client.ID,
		"session_id": session.ID,
		"username":   cred.Username,
	})
	p.syncer.SyncInBackground(device.ID)

	return cred, session, remaining, nil
}

// Revoke removes a hotspot user from the device and closes the matching
// session. Revoking a username that is already absent is not an error, so
// a retried revoke acknowledges as well.
func (p *Provisioner) Revoke(ctx context.Context, deviceID int32, username string) error {
	rows, err := p.execute(ctx, deviceID, "/ip/hotspot/user/print",
		routeros.Query("name", username))
	if err != nil {
		return err
	}

	if len(rows) > 0 {
		if _, err := p.execute(ctx, deviceID, "/ip/hotspot/user/remove",
			routeros.Arg(".id", rows[0][".id"])); err != nil {
			return err
		}
		log.Infof("provisioner removed user %q from device %d", username, deviceID)
	}

	session, err := p.store.Sessions().FindOpenByDeviceAndUsername(deviceID, username)
	if err == nil {
		endedAt := time.Now().Round(time.Second).UTC()
		if err := p.store.Sessions().Close(session.ID, endedAt); err != nil {
			return err
		}
	} else if err != storage.ErrNotFound {
		return err
	}

	p.events.publish(deviceID, TopicSessionRevoked, map[string]interface{}{
		"username": username,
	})
	p.syncer.SyncInBackground(deviceID)

	return nil
}

// execute acquires a pooled gateway and issues one command. A handle that
// died between acquisition and use is evicted by the gateway itself, the
// retry below re-acquires a fresh connection once, transparent to the
// caller.
func (p *Provisioner) execute(ctx context.Context, deviceID int32, path string, words ...string) ([]routeros.Row, error) {
	gw, err := p.pool.Acquire(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	rows, err := gw.Execute(ctx, path, words...)
	if IsHandleClosed(err) {
		gw, err = p.pool.Acquire(ctx, deviceID)
		if err != nil {
			return nil, err
		}
		rows, err = gw.Execute(ctx, path, words...)
	}

	return rows, err
}

func (p *Provisioner) reportPartialFailure(deviceID, clientID int32, username, stage string, cause error) {
	log.WithFields(log.Fields{
		"device_id": deviceID,
		"client_id": clientID,
		"username":  username,
		"stage":     stage,
	}).Error("provisioner partial failure, device credential has no accounting: ", cause.Error())

	p.events.publish(deviceID, TopicProvisionPartialFailure, map[string]interface{}{
		"client_id": clientID,
		"username":  username,
		"stage":     stage,
		"error":     cause.Error(),
	})
}
