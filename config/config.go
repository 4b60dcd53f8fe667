package config

import "time"

// Config contains all application settings
type Config struct {
	BindPort      int    `mapstructure:"PORT" yaml:"port"`
	BindHost      string `mapstructure:"HOST" yaml:"host"`
	DatabaseURL   string `mapstructure:"DATABASE_URL" yaml:"database_url"`
	NATSServerURL string `mapstructure:"NATS_URL" yaml:"nats_url"`

	// Broker settings
	DeviceTimeoutSeconds   int    `mapstructure:"DEVICE_TIMEOUT" yaml:"device_timeout"`
	OccupancyMaxAgeSeconds int    `mapstructure:"OCCUPANCY_MAX_AGE" yaml:"occupancy_max_age"`
	HotspotProfile         string `mapstructure:"HOTSPOT_PROFILE" yaml:"hotspot_profile"`
	AccessUptime           string `mapstructure:"ACCESS_UPTIME" yaml:"access_uptime"`
	TLSInsecureSkipVerify  bool   `mapstructure:"TLS_INSECURE" yaml:"tls_insecure"`

	// Version
	BuildVersion string `yaml:"-"`
	BuildHash    string `yaml:"-"`
	BuildTime    string `yaml:"-"`
}

// DeviceTimeout returns the device command timeout as a duration
func (c *Config) DeviceTimeout() time.Duration {
	return time.Duration(c.DeviceTimeoutSeconds) * time.Second
}

// OccupancyMaxAge returns the staleness window for cached occupancy
func (c *Config) OccupancyMaxAge() time.Duration {
	return time.Duration(c.OccupancyMaxAgeSeconds) * time.Second
}
