package broker

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gestionclick24-cpu/captive/pkg/routeros"
)

// DefaultCommandTimeout bounds a single device command round trip.
const DefaultCommandTimeout = 30 * time.Second

// Gateway is the device session gateway: a thin blocking command
// abstraction over one live connection to one device. A gateway that
// timed out or hit a transport error marks itself dead and notifies the
// pool, further calls fail immediately with ERR_HANDLE_CLOSED.
type Gateway struct {
	deviceID int32
	conn     routeros.Conn
	timeout  time.Duration

	// onDead is set by the pool so a dying gateway evicts itself.
	onDead func(*Gateway)

	mu   sync.Mutex
	dead bool
}

func newGateway(deviceID int32, conn routeros.Conn, timeout time.Duration, onDead func(*Gateway)) *Gateway {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Gateway{
		deviceID: deviceID,
		conn:     conn,
		timeout:  timeout,
		onDead:   onDead,
	}
}

type executeResult struct {
	rows []routeros.Row
	err  error
}

// Execute issues a single command and blocks the caller until the device
// replies, the command timeout expires or the context is done.
func (gw *Gateway) Execute(ctx context.Context, path string, words ...string) ([]routeros.Row, error) {
	if gw.Dead() {
		return nil, NewTransportError(ErrReasonHandleClosed, gw.deviceID, "execute "+path, nil)
	}

	resultCh := make(chan executeResult, 1)
	go func() {
		rows, err := gw.conn.Execute(path, words...)
		resultCh <- executeResult{rows: rows, err: err}
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			log.Warnf("gateway command %s failed on device %d: %s", path, gw.deviceID, res.err.Error())
			gw.kill()
			return nil, NewTransportError(ErrReasonDeviceUnreachable, gw.deviceID, "execute "+path, res.err)
		}
		return res.rows, nil
	case <-time.After(gw.timeout):
		log.Warnf("gateway command %s timed out on device %d", path, gw.deviceID)
		gw.kill()
		return nil, NewTransportError(ErrReasonDeviceTimeout, gw.deviceID, "execute "+path, nil)
	case <-ctx.Done():
		gw.kill()
		return nil, NewTransportError(ErrReasonDeviceTimeout, gw.deviceID, "execute "+path, ctx.Err())
	}
}

// Dead reports whether the gateway has been marked dead.
func (gw *Gateway) Dead() bool {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	return gw.dead
}

// Close tears down the underlying connection without notifying the pool.
// It is called by the pool itself during eviction and drain.
func (gw *Gateway) Close() {
	gw.mu.Lock()
	if gw.dead {
		gw.mu.Unlock()
		return
	}
	gw.dead = true
	gw.mu.Unlock()

	if err := gw.conn.Close(); err != nil {
		log.Warnf("gateway failed to close connection to device %d: %s", gw.deviceID, err.Error())
	}
}

// kill marks the gateway dead and tells the pool to evict it. Closing the
// connection also unblocks a command goroutine that is still waiting on a
// reply that will never come.
func (gw *Gateway) kill() {
	gw.mu.Lock()
	if gw.dead {
		gw.mu.Unlock()
		return
	}
	gw.dead = true
	gw.mu.Unlock()

	if err := gw.conn.Close(); err != nil {
		log.Warnf("gateway failed to close connection to device %d: %s", gw.deviceID, err.Error())
	}

	if gw.onDead != nil {
		gw.onDead(gw)
	}
}
