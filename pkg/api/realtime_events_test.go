package api

import (
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestionclick24-cpu/captive/pkg/api/resource"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// Both the forwarding callback and the drain goroutine report the same
// peer disconnect, so the two closers race. Neither of them may panic on
// the second close.
func TestRealtimeSessionConcurrentClose(t *testing.T) {
	session := newRealtimeSession(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.signalClose()
		}()
	}
	wg.Wait()

	select {
	case <-session.closedCh:
	default:
		t.Fatal("session not marked closed")
	}
}

func TestRealtimeSessionPeerDisconnect(t *testing.T) {
	conn, peer := net.Pipe()
	require.NoError(t, peer.Close())

	session := newRealtimeSession(conn)

	// The dead peer fails the drain and every forward at the same time
	go session.drain()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.forward(resource.NewRealtimeEvent("1", "occupancysynced", nil))
		}()
	}
	wg.Wait()

	select {
	case <-session.closedCh:
	case <-time.After(2 * time.Second):
		t.Fatal("session not marked closed after peer disconnect")
	}

	assert.NoError(t, conn.Close())
}
