// Package routeros is the transport boundary between the broker core and
// the RouterOS API wire protocol. The core only sees the Conn and Dialer
// interfaces, the actual encoding is owned by the go-routeros client.
package routeros

import (
	"context"
	"fmt"

	"github.com/gestionclick24-cpu/captive/pkg/model"
)

// Row is a single tabular reply sentence, attribute name to value.
type Row map[string]string

// Conn is a live command connection to a single device. Execute blocks
// until the device replies or the connection fails. A failed connection
// stays failed, callers are expected to close and re-dial.
type Conn interface {
	Execute(path string, words ...string) ([]Row, error)
	Close() error
}

// Dialer opens a Conn for a device using its stored transport
// credentials.
type Dialer interface {
	Dial(ctx context.Context, device *model.Device) (Conn, error)
}

// Arg builds an attribute word, e.g. Arg("name", "bob") -> "=name=bob".
func Arg(key, value string) string {
	return fmt.Sprintf("=%s=%s", key, value)
}

// Query builds a query word for print commands, e.g. Query("name",
// "bob") -> "?name=bob".
func Query(key, value string) string {
	return fmt.Sprintf("?%s=%s", key, value)
}
