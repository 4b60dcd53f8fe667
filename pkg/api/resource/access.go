package resource

import (
	"fmt"

	"github.com/gestionclick24-cpu/captive/pkg/broker"
)

type AccessRequestResource struct {
	ClientID int32 `json:"clientId"`
	DeviceID int32 `json:"deviceId"`
}

func ValidateAccessRequest(r *AccessRequestResource) error {
	if r.ClientID == 0 {
		return fmt.Errorf("clientId is required")
	}
	if r.DeviceID == 0 {
		return fmt.Errorf("deviceId is required")
	}
	return nil
}

type AccessGrantResource struct {
	Username         string `json:"username"`
	Password         string `json:"password"`
	DeviceName       string `json:"deviceName"`
	DeviceLocation   string `json:"deviceLocation,omitempty"`
	RemainingCredits int    `json:"remainingCredits"`
}

func NewAccessGrant(g *broker.AccessGrant) *AccessGrantResource {
	return &AccessGrantResource{
		Username:         g.Username,
		Password:         g.Password,
		DeviceName:       g.DeviceName,
		DeviceLocation:   g.DeviceLocation,
		RemainingCredits: g.RemainingCredits,
	}
}
