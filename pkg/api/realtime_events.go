package api

import (
	"encoding/json"
	"net"
	"strings"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/labstack/echo"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"

	"github.com/gestionclick24-cpu/captive/pkg/api/resource"
)

// realtimeSession is one websocket subscriber of the event feed. The
// NATS callback and the client-frame drain both report the peer going
// away, signalClose makes the two racing closers safe.
type realtimeSession struct {
	conn     net.Conn
	closedCh chan struct{}
	once     sync.Once
}

func newRealtimeSession(conn net.Conn) *realtimeSession {
	return &realtimeSession{
		conn:     conn,
		closedCh: make(chan struct{}),
	}
}

func (s *realtimeSession) signalClose() {
	s.once.Do(func() {
		close(s.closedCh)
	})
}

// forward pushes one event frame to the peer and signals shutdown when
// the write fails.
func (s *realtimeSession) forward(event *resource.RealtimeEventResource) {
	out, err := json.Marshal(event)
	if err != nil {
		return
	}

	if err := wsutil.WriteServerMessage(s.conn, ws.OpText, out); err != nil {
		log.Error("api: failed to send realtime event: ", err)
		s.signalClose()
	}
}

// drain reads and discards client frames so we notice the peer going
// away.
func (s *realtimeSession) drain() {
	for {
		if _, _, err := wsutil.ReadClientData(s.conn); err != nil {
			s.signalClose()
			return
		}
	}
}

// realtimeEventsHandler upgrades the request to a websocket and forwards
// every broker event published on NATS to the connected dashboard.
func (h *Handler) realtimeEventsHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		if h.nc == nil {
			return echo.NewHTTPError(503, "realtime events unavailable without NATS")
		}

		conn, _, _, err := ws.UpgradeHTTP(c.Request(), c.Response())
		if err != nil {
			log.Error("api: failed to upgrade to websocket: ", err)
			return nil
		}

		session := newRealtimeSession(conn)

		sub, err := h.nc.Subscribe("captive.hotspot.v1.*.events.*", func(msg *nats.Msg) {
			// Get device id and topic from the NATS subject
			strippedSubject := strings.TrimPrefix(msg.Subject, "captive.hotspot.v1.")
			s := strings.Split(strippedSubject, ".")
			deviceID := s[0]
			topic := s[2]

			var data interface{}
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				return
			}

			session.forward(resource.NewRealtimeEvent(deviceID, topic, data))
		})
		if err != nil {
			log.Error("api: failed to subscribe for realtime events: ", err)
			conn.Close()
			return nil
		}

		go func() {
			defer conn.Close()
			defer sub.Unsubscribe()

			go session.drain()

			<-session.closedCh
		}()

		return nil
	}
}
