package broker

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// DefaultProfile is the hotspot user profile credentials are issued
// under.
const DefaultProfile = "default"

// DefaultUptime is the device-side access window of a credential. Plans
// sell credits, one credit always buys one day of access regardless of
// the plan length.
const DefaultUptime = "1d"

const passwordLength = 10
const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Credential is an ephemeral device-scoped login. It is handed to the
// requesting client once and never persisted.
type Credential struct {
	Username string
	Password string
	Profile  string
	Uptime   string
}

// newCredential mints a credential for a client. The random suffix keeps
// usernames pairwise distinct even for concurrent requests of the same
// client against the same device.
func newCredential(clientID int32, profile, uptime string) (*Credential, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	if uptime == "" {
		uptime = DefaultUptime
	}

	password, err := randomPassword(passwordLength)
	if err != nil {
		return nil, err
	}

	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]

	return &Credential{
		Username: fmt.Sprintf("user_%d_%s", clientID, suffix),
		Password: password,
		Profile:  profile,
		Uptime:   uptime,
	}, nil
}

func randomPassword(length int) (string, error) {
	var sb strings.Builder
	max := big.NewInt(int64(len(passwordCharset)))

	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "failed to generate password")
		}
		sb.WriteByte(passwordCharset[n.Int64()])
	}

	return sb.String(), nil
}
