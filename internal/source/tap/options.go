// Package tap reads frames from a Linux TAP device.
package tap

const Name = "tap"

// Options configures the tap source.
type Options struct {
	// Name of the device to create or attach to. Empty lets the kernel pick.
	Name    string `mapstructure:"name"`
	Persist bool   `mapstructure:"persist"`
	MTU     int    `mapstructure:"mtu"`
}

func DefaultOptions() Options {
	return Options{MTU: 1500}
}
