package routeros

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	ros "github.com/go-routeros/routeros/v3"
	"github.com/pkg/errors"

	"github.com/gestionclick24-cpu/captive/pkg/model"
)

// APIDialer dials the RouterOS binary API port of a device. It is the
// production Dialer implementation, tests inject their own.
type APIDialer struct {
	// DialTimeout bounds the TCP connect plus login handshake.
	DialTimeout time.Duration

	// TLSInsecureSkipVerify disables certificate verification for
	// devices dialed with UseTLS. RouterOS appliances commonly serve
	// self-signed certificates, fleets with a proper CA turn
	// verification back on via TLS_INSECURE=false.
	TLSInsecureSkipVerify bool
}

func NewAPIDialer(timeout time.Duration, tlsInsecureSkipVerify bool) *APIDialer {
	return &APIDialer{
		DialTimeout:           timeout,
		TLSInsecureSkipVerify: tlsInsecureSkipVerify,
	}
}

func (d *APIDialer) tlsConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify: d.TLSInsecureSkipVerify}
}

func (d *APIDialer) Dial(ctx context.Context, device *model.Device) (Conn, error) {
	address := fmt.Sprintf("%s:%d", device.Address, device.APIPort)

	timeout := d.DialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	var client *ros.Client
	var err error
	if device.UseTLS {
		client, err = ros.DialTLSTimeout(address, device.APIUsername,
			device.APIPassword, d.tlsConfig(), timeout)
	} else {
		client, err = ros.DialTimeout(address, device.APIUsername,
			device.APIPassword, timeout)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial device %q at %s", device.Name, address)
	}

	return &apiConn{client: client}, nil
}

type apiConn struct {
	client *ros.Client
}

func (c *apiConn) Execute(path string, words ...string) ([]Row, error) {
	sentence := append([]string{path}, words...)
	reply, err := c.client.Run(sentence...)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(reply.Re))
	for _, re := range reply.Re {
		row := make(Row, len(re.Map))
		for k, v := range re.Map {
			row[k] = v
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func (c *apiConn) Close() error {
	c.client.Close()
	return nil
}
