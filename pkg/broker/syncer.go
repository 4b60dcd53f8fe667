package broker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

// DefaultOccupancyMaxAge is the window after which the cached occupancy
// of a device counts as stale.
const DefaultOccupancyMaxAge = 5 * time.Minute

// Syncer reconciles the device's authoritative active-user count into the
// persistent device record. Syncs run as short-lived tasks triggered
// after provision/revoke or by a lazy staleness check, never as a global
// polling loop. Concurrent syncs of the same device are single-flighted.
type Syncer struct {
	store  storage.Interface
	pool   *Pool
	events *eventPublisher
	maxAge time.Duration

	mu       sync.Mutex
	inflight map[int32]*syncEntry
}

type syncEntry struct {
	done  chan struct{}
	count int
	err   error
}

func NewSyncer(store storage.Interface, pool *Pool, events *eventPublisher, maxAge time.Duration) *Syncer {
	if maxAge <= 0 {
		maxAge = DefaultOccupancyMaxAge
	}
	return &Syncer{
		store:    store,
		pool:     pool,
		events:   events,
		maxAge:   maxAge,
		inflight: make(map[int32]*syncEntry),
	}
}

// Sync lists the active hotspot users of a device and writes the count
// plus the sync timestamp onto the device record. Callers arriving while
// a sync for the same device is in flight share its result instead of
// issuing a duplicate list command.
func (s *Syncer) Sync(ctx context.Context, deviceID int32) (int, error) {
	s.mu.Lock()
	if entry, ok := s.inflight[deviceID]; ok {
		s.mu.Unlock()
		<-entry.done
		return entry.count, entry.err
	}

	entry := &syncEntry{done: make(chan struct{})}
	s.inflight[deviceID] = entry
	s.mu.Unlock()

	entry.count, entry.err = s.sync(ctx, deviceID)

	s.mu.Lock()
	delete(s.inflight, deviceID)
	s.mu.Unlock()
	close(entry.done)

	return entry.count, entry.err
}

func (s *Syncer) sync(ctx context.Context, deviceID int32) (int, error) {
	gw, err := s.pool.Acquire(ctx, deviceID)
	if err != nil {
		return 0, err
	}

	rows, err := gw.Execute(ctx, "/ip/hotspot/active/print")
	if err != nil {
		return 0, err
	}

	count := len(rows)
	syncedAt := time.Now().Round(time.Second).UTC()
	if err := s.store.Devices().UpdateOccupancy(deviceID, count, syncedAt); err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{
		"device_id": deviceID,
		"occupancy": count,
	}).Info("syncer updated device occupancy")

	s.events.publish(deviceID, TopicOccupancySynced, map[string]interface{}{
		"occupancy": count,
		"synced_at": syncedAt,
	})

	return count, nil
}

// EnsureFresh syncs a device whose cached occupancy is stale and returns
// the refreshed record. A failed sync is logged and leaves the cached
// value and the sync timestamp untouched, so staleness persists and the
// next read retries.
func (s *Syncer) EnsureFresh(ctx context.Context, device *model.Device) *model.Device {
	if !device.OccupancyStale(s.maxAge, time.Now()) {
		return device
	}

	if _, err := s.Sync(ctx, device.ID); err != nil {
		log.Warnf("syncer failed to refresh device %d: %s", device.ID, err.Error())
		return device
	}

	refreshed, err := s.store.Devices().FindByID(device.ID)
	if err != nil {
		log.Warnf("syncer failed to re-read device %d: %s", device.ID, err.Error())
		return device
	}

	return refreshed
}

// SyncInBackground fires an opportunistic occupancy resync that does not
// block the in-flight caller. Failures are logged only.
func (s *Syncer) SyncInBackground(deviceID int32) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultCommandTimeout)
		defer cancel()

		if _, err := s.Sync(ctx, deviceID); err != nil {
			log.Warnf("syncer background sync of device %d failed: %s", deviceID, err.Error())
		}
	}()
}
