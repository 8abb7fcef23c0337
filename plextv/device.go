package plextv

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

// Device carries the X-Plex-* identity headers every upstream call sends.
// ClientID must stay stable across sessions or plex.tv registers a new
// device each launch; callers persist it alongside the account token.
type Device struct {
	Product         string
	Version         string
	Platform        string
	PlatformVersion string
	Name            string
	ClientID        string
}

// NewDevice
func NewDevice(v *viper.Viper) (*Device, error) {
	var (
		err error
		d   = new(Device)
	)
	if err = v.UnmarshalKey("device", d); err != nil {
		return nil, err
	}
	d.fillDefaults()
	return d, err
}

// DefaultDevice returns a device identity with a fresh client identifier.
func DefaultDevice() Device {
	d := Device{}
	d.fillDefaults()
	return d
}

func (d *Device) fillDefaults() {
	if d.Product == "" {
		d.Product = "plexgrid"
	}
	if d.Version == "" {
		d.Version = "0.1.0"
	}
	if d.Platform == "" {
		d.Platform = "Linux"
	}
	if d.Name == "" {
		d.Name = "plexgrid"
	}
	if d.ClientID == "" {
		d.ClientID = uuid.NewString()
	}
}

// Header builds the identity headers for one request.
func (d Device) Header() http.Header {
	h := http.Header{}
	h.Set("X-Plex-Product", d.Product)
	h.Set("X-Plex-Version", d.Version)
	h.Set("X-Plex-Platform", d.Platform)
	if d.PlatformVersion != "" {
		h.Set("X-Plex-Platform-Version", d.PlatformVersion)
	}
	h.Set("X-Plex-Device-Name", d.Name)
	h.Set("X-Plex-Client-Identifier", d.ClientID)
	return h
}
