package routeros

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAPIDialerTLSConfig(t *testing.T) {
	insecure := NewAPIDialer(30*time.Second, true)
	assert.True(t, insecure.tlsConfig().InsecureSkipVerify)

	verifying := NewAPIDialer(30*time.Second, false)
	assert.False(t, verifying.tlsConfig().InsecureSkipVerify)
}
