package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gestionclick24-cpu/captive/pkg/model"
	"github.com/gestionclick24-cpu/captive/pkg/routeros"
)

// fakeTransport emulates the RouterOS command surface of a fleet of
// devices. State is kept per device id so a re-dial after eviction sees
// the same hotspot users again.
type fakeTransport struct {
	mu      sync.Mutex
	devices map[int32]*fakeDeviceState

	dials       int
	execCalls   int
	execStarts  int
	listCalls   int
	dialErr     error
	execErr     error
	dialBlockCh chan struct{}
	execBlockCh chan struct{}
}

type fakeDeviceState struct {
	users  map[string]string // username -> row id
	nextID int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		devices: make(map[int32]*fakeDeviceState),
	}
}

func (t *fakeTransport) Dial(ctx context.Context, device *model.Device) (routeros.Conn, error) {
	t.mu.Lock()
	blockCh := t.dialBlockCh
	t.mu.Unlock()

	if blockCh != nil {
		select {
		case <-blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.dials++
	if t.dialErr != nil {
		return nil, t.dialErr
	}

	state, ok := t.devices[device.ID]
	if !ok {
		state = &fakeDeviceState{users: make(map[string]string), nextID: 1}
		t.devices[device.ID] = state
	}

	return &fakeConn{t: t, state: state}, nil
}

func (t *fakeTransport) dialCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dials
}

func (t *fakeTransport) execCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.execCalls
}

func (t *fakeTransport) execStartCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.execStarts
}

func (t *fakeTransport) listCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.listCalls
}

func (t *fakeTransport) userCount(deviceID int32) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if state, ok := t.devices[deviceID]; ok {
		return len(state.users)
	}
	return 0
}

// preloadUsers seeds active hotspot users on a device, as if other
// clients had been provisioned earlier.
func (t *fakeTransport) preloadUsers(deviceID int32, n int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.devices[deviceID]
	if !ok {
		state = &fakeDeviceState{users: make(map[string]string), nextID: 1}
		t.devices[deviceID] = state
	}
	for i := 0; i < n; i++ {
		state.users[fmt.Sprintf("preloaded_%d", i)] = fmt.Sprintf("*%X", state.nextID)
		state.nextID++
	}
}

type fakeConn struct {
	t     *fakeTransport
	state *fakeDeviceState

	mu     sync.Mutex
	closed bool
}

func (c *fakeConn) Execute(path string, words ...string) ([]routeros.Row, error) {
	c.t.mu.Lock()
	c.t.execStarts++
	blockCh := c.t.execBlockCh
	c.t.mu.Unlock()

	if blockCh != nil {
		<-blockCh
	}

	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return nil, fmt.Errorf("use of closed connection")
	}

	c.t.mu.Lock()
	defer c.t.mu.Unlock()

	c.t.execCalls++
	if c.t.execErr != nil {
		return nil, c.t.execErr
	}

	args := parseWords(words)

	switch path {
	case "/ip/hotspot/user/add":
		name := args["name"]
		if _, exists := c.state.users[name]; exists {
			return nil, fmt.Errorf("failure: already have user with this name")
		}
		c.state.users[name] = fmt.Sprintf("*%X", c.state.nextID)
		c.state.nextID++
		return nil, nil

	case "/ip/hotspot/user/print":
		rows := make([]routeros.Row, 0)
		for name, id := range c.state.users {
			if query, ok := args["name"]; ok && query != name {
				continue
			}
			rows = append(rows, routeros.Row{".id": id, "name": name})
		}
		return rows, nil

	case "/ip/hotspot/user/remove":
		for name, id := range c.state.users {
			if id == args[".id"] {
				delete(c.state.users, name)
				break
			}
		}
		return nil, nil

	case "/ip/hotspot/active/print":
		c.t.listCalls++
		rows := make([]routeros.Row, 0, len(c.state.users))
		for name := range c.state.users {
			rows = append(rows, routeros.Row{"user": name, "address": "10.0.0.2", "uptime": "1m"})
		}
		return rows, nil
	}

	return nil, fmt.Errorf("unknown command %s", path)
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func parseWords(words []string) map[string]string {
	args := make(map[string]string, len(words))
	for _, w := range words {
		w = strings.TrimLeft(w, "=?")
		parts := strings.SplitN(w, "=", 2)
		if len(parts) == 2 {
			args[parts[0]] = parts[1]
		}
	}
	return args
}
