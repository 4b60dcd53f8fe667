package broker

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/storage"
)

// Event topics published by the broker.
const (
	TopicSessionProvisioned      = "sessionprovisioned"
	TopicSessionRevoked          = "sessionrevoked"
	TopicOccupancySynced         = "occupancysynced"
	TopicProvisionPartialFailure = "provisionpartialfailure"
)

// eventPublisher records broker events in the event store and, when a
// NATS connection is present, publishes them on
// captive.hotspot.v1.<device>.events.<topic> for the realtime feed. Event
// delivery is best effort and never fails the operation it reports on.
type eventPublisher struct {
	nc    *nats.Conn
	store storage.Interface
}

func newEventPublisher(nc *nats.Conn, store storage.Interface) *eventPublisher {
	return &eventPublisher{
		nc:    nc,
		store: store,
	}
}

func (p *eventPublisher) publish(deviceID int32, topic string, details interface{}) {
	data, err := json.Marshal(details)
	if err != nil {
		log.Warnf("events failed to marshal %s details: %s", topic, err.Error())
		return
	}

	event := &model.Event{
		SourceType: "device",
		SourceID:   strconv.Itoa(int(deviceID)),
		Topic:      topic,
		Timestamp:  time.Now().Round(time.Second).UTC(),
		Details:    string(data),
	}
	if err := p.store.Events().Create(event); err != nil {
		log.Warnf("events failed to record %s event: %s", topic, err.Error())
	}

	if p.nc == nil {
		return
	}

	subject := fmt.Sprintf("captive.hotspot.v1.%d.events.%s", deviceID, topic)
	if err := p.nc.Publish(subject, data); err != nil {
		log.Warnf("events failed to publish on %s: %s", subject, err.Error())
	}
}
