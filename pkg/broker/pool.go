package broker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gestionclick24-cpu/captive/pkg/routeros"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

// Pool caches one gateway per device. Acquisition is single-flighted per
// device key: the first caller dials, concurrent callers for the same
// device wait for that dial and share the handle. Different devices never
// block each other, the map lock is only held for bookkeeping, never
// across a dial.
type Pool struct {
	store   storage.Interface
	dialer  routeros.Dialer
	timeout time.Duration

	mu      sync.Mutex
	entries map[int32]*poolEntry
}

type poolEntry struct {
	// ready is closed once the dial attempt finished, successfully or
	// not. Waiters read gw/err only after ready is closed.
	ready chan struct{}
	gw    *Gateway
	err   error
}

func NewPool(store storage.Interface, dialer routeros.Dialer, commandTimeout time.Duration) *Pool {
	return &Pool{
		store:   store,
		dialer:  dialer,
		timeout: commandTimeout,
		entries: make(map[int32]*poolEntry),
	}
}

// Acquire returns the live gateway for a device, dialing a new connection
// when none is cached. A failed dial is not cached, the next Acquire
// starts from scratch.
func (p *Pool) Acquire(ctx context.Context, deviceID int32) (*Gateway, error) {
	p.mu.Lock()
	if entry, ok := p.entries[deviceID]; ok {
		p.mu.Unlock()
		return p.wait(ctx, deviceID, entry)
	}

	entry := &poolEntry{ready: make(chan struct{})}
	p.entries[deviceID] = entry
	p.mu.Unlock()

	go p.dial(ctx, deviceID, entry)

	return p.wait(ctx, deviceID, entry)
}

func (p *Pool) wait(ctx context.Context, deviceID int32, entry *poolEntry) (*Gateway, error) {
	select {
	case <-entry.ready:
	case <-ctx.Done():
		return nil, NewTransportError(ErrReasonDeviceUnreachable, deviceID, "acquire", ctx.Err())
	}

	if entry.err != nil {
		return nil, entry.err
	}
	return entry.gw, nil
}

func (p *Pool) dial(ctx context.Context, deviceID int32, entry *poolEntry) {
	device, err := p.store.Devices().FindByID(deviceID)
	if err != nil {
		p.finishDial(deviceID, entry, nil, err)
		return
	}

	conn, err := p.dialer.Dial(ctx, device)
	if err != nil {
		log.Warnf("pool failed to connect device %d (%s): %s", deviceID, device.Name, err.Error())
		p.finishDial(deviceID, entry, nil,
			NewTransportError(ErrReasonDeviceUnreachable, deviceID, "dial", err))
		return
	}

	gw := newGateway(deviceID, conn, p.timeout, func(dead *Gateway) {
		p.Evict(deviceID, dead)
	})
	log.Infof("pool connected device %d (%s)", deviceID, device.Name)
	p.finishDial(deviceID, entry, gw, nil)
}

func (p *Pool) finishDial(deviceID int32, entry *poolEntry, gw *Gateway, err error) {
	p.mu.Lock()
	entry.gw = gw
	entry.err = err
	if err != nil {
		// Drop the failed entry so the next Acquire re-dials
		if current, ok := p.entries[deviceID]; ok && current == entry {
			delete(p.entries, deviceID)
		}
	}
	p.mu.Unlock()
	close(entry.ready)
}

// Evict removes a dead gateway from the pool. The gw argument guards
// against evicting a fresh replacement that was cached after the dead one
// was handed out.
func (p *Pool) Evict(deviceID int32, gw *Gateway) {
	p.mu.Lock()
	defer p.mu.Unlock()

	entry, ok := p.entries[deviceID]
	if ok && entry.gw == gw {
		delete(p.entries, deviceID)
		log.Infof("pool evicted connection to device %d", deviceID)
	}
}

// CloseAll drains the pool on shutdown.
func (p *Pool) CloseAll() {
	p.mu.Lock()
	entries := p.entries
	p.entries = make(map[int32]*poolEntry)
	p.mu.Unlock()

	for deviceID, entry := range entries {
		select {
		case <-entry.ready:
		default:
			// Dial still in flight, leave it to fail on its own
			continue
		}
		if entry.gw != nil {
			entry.gw.Close()
			log.Infof("pool closed connection to device %d", deviceID)
		}
	}
}
