package broker

import (
	"context"
	"fmt"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

// Guard validates a provisioning request against the client's credit
// balance and the device's capacity before any device mutation happens.
// It certifies that, as of the read, provisioning may proceed. It never
// mutates state itself.
//
// The occupancy it reads is a cached value refreshed asynchronously, so
// two concurrent authorizations against a nearly-full device may both
// pass. That is deliberate best-effort admission, holding a lock across
// the slow device round trip would serialize every client of a device.
type Guard struct {
	store  storage.Interface
	syncer *Syncer
}

func NewGuard(store storage.Interface, syncer *Syncer) *Guard {
	return &Guard{
		store:  store,
		syncer: syncer,
	}
}

// Authorize returns the client and device records a provisioning request
// may proceed with, or a denial. Credit is checked first so a client
// without credit never causes a device command, not even a staleness
// sync.
func (g *Guard) Authorize(ctx context.Context, clientID, deviceID int32) (*model.Client, *model.Device, error) {
	client, err := g.store.Clients().FindByID(clientID)
	if err != nil {
		return nil, nil, err
	}

	if client.Credits <= 0 {
		return nil, nil, NewDenialError(ErrReasonInsufficientCredit,
			"no credits left, purchase a plan to connect")
	}

	device, err := g.store.Devices().FindByID(deviceID)
	if err != nil {
		return nil, nil, err
	}

	if !device.Active {
		return nil, nil, NewDenialError(ErrReasonDeviceInactive,
			fmt.Sprintf("hotspot %q is not available at the moment", device.Name))
	}

	device = g.syncer.EnsureFresh(ctx, device)

	if device.CurrentUsers >= device.MaxUsers {
		return nil, nil, NewDenialError(ErrReasonDeviceFull,
			fmt.Sprintf("hotspot %q reached its maximum capacity, try again later", device.Name))
	}

	return client, device, nil
}
